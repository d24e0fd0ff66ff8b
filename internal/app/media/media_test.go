package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestIsImageReference(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{"https://media.test/cat.gif", true},
		{"https://media.test/cat.GIF", true},
		{"https://bucket.test/ab12CD/x.png?X-Amz-Signature=abc", true},
		{"funny.jpeg", true},
		{"https://media.test/page.html", false},
		{"look at this.gif", false},
		{"hello", false},
		{"", false},
		{"https://media.test/?file=cat.gif", false},
	}

	for _, tt := range tests {
		if got := IsImageReference(tt.body); got != tt.want {
			t.Errorf("IsImageReference(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestValidateFileSize(t *testing.T) {
	for _, size := range []int64{0, -1, MaxAttachmentSize + 1} {
		if err := ValidateFileSize(size); !errors.Is(err, ErrFileSizeInvalid) {
			t.Errorf("ValidateFileSize(%d) = %v", size, err)
		}
	}
	if err := ValidateFileSize(MaxAttachmentSize); err != nil {
		t.Errorf("max size rejected: %v", err)
	}
}

func TestDetectMIME(t *testing.T) {
	mime, err := DetectMIME("Photo.JPG")
	if err != nil || mime != "image/jpeg" {
		t.Fatalf("DetectMIME = %q, %v", mime, err)
	}

	for _, name := range []string{"notes.txt", "noext", "."} {
		if _, err := DetectMIME(name); !errors.Is(err, ErrFileTypeInvalid) {
			t.Errorf("DetectMIME(%q) = %v, want ErrFileTypeInvalid", name, err)
		}
	}
}

type fakeUploader struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.input = input
	b, _ := io.ReadAll(input.Body)
	f.body = string(b)
	if f.err != nil {
		return nil, f.err
	}
	return &manager.UploadOutput{}, nil
}

func TestSharePublicURL(t *testing.T) {
	up := &fakeUploader{}
	store := newStore(ServiceConfig{S3BucketName: "chat", S3PublicBaseURL: "https://cdn.test/chat/"}, up, nil)

	url, err := store.Share(context.Background(), "cat.gif", 4, strings.NewReader("GIF8"))
	if err != nil {
		t.Fatalf("Share: %v", err)
	}

	if !strings.HasPrefix(url, "https://cdn.test/chat/") || !IsImageReference(url) {
		t.Fatalf("unexpected url %q", url)
	}
	if *up.input.Bucket != "chat" || *up.input.ContentType != "image/gif" {
		t.Fatalf("unexpected upload input: bucket=%s type=%s", *up.input.Bucket, *up.input.ContentType)
	}
	if up.body != "GIF8" {
		t.Fatalf("uploaded body = %q", up.body)
	}
	if !strings.HasSuffix(url, *up.input.Key) {
		t.Fatalf("url %q does not point at key %q", url, *up.input.Key)
	}
}

func TestSharePresignedURL(t *testing.T) {
	var gotKey string
	var gotDuration time.Duration
	presign := func(_ context.Context, key string, d time.Duration) (string, error) {
		gotKey, gotDuration = key, d
		return "https://s3.test/chat/" + key + "?X-Amz-Signature=sig", nil
	}

	store := newStore(ServiceConfig{S3BucketName: "chat"}, &fakeUploader{}, presign)

	url, err := store.Share(context.Background(), "cat.png", 3, strings.NewReader("PNG"))
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if gotKey == "" || gotDuration != SharedURLDuration {
		t.Fatalf("presign called with key=%q duration=%s", gotKey, gotDuration)
	}
	if !IsImageReference(url) {
		t.Fatalf("presigned url %q is not recognized as an image", url)
	}
}

func TestShareRejectsBeforeUpload(t *testing.T) {
	up := &fakeUploader{}
	store := newStore(ServiceConfig{S3BucketName: "chat", S3PublicBaseURL: "https://cdn.test"}, up, nil)

	if _, err := store.Share(context.Background(), "notes.txt", 10, strings.NewReader("x")); !errors.Is(err, ErrFileTypeInvalid) {
		t.Fatalf("Expectation: ErrFileTypeInvalid, Received: %v", err)
	}
	if _, err := store.Share(context.Background(), "big.gif", MaxAttachmentSize+1, strings.NewReader("x")); !errors.Is(err, ErrFileSizeInvalid) {
		t.Fatalf("Expectation: ErrFileSizeInvalid, Received: %v", err)
	}
	if up.input != nil {
		t.Fatal("invalid files reached the uploader")
	}
}

func TestShareUploadFailure(t *testing.T) {
	store := newStore(ServiceConfig{S3BucketName: "chat", S3PublicBaseURL: "https://cdn.test"}, &fakeUploader{err: errors.New("boom")}, nil)

	if _, err := store.Share(context.Background(), "cat.gif", 1, strings.NewReader("x")); !errors.Is(err, ErrStorageFailed) {
		t.Fatalf("Expectation: ErrStorageFailed, Received: %v", err)
	}
}
