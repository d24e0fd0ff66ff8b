/*
Package media covers images exchanged as chat messages.

A chat body that points at an image file is displayed as an image by the surfaces; that display
policy lives here. When S3-compatible storage is configured, a local image can be uploaded and its
URL posted as an ordinary message body.
*/
package media

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

const (
	// MaxAttachmentSizeMB is the maximum allowed file size in megabytes.
	MaxAttachmentSizeMB = 5

	// MaxAttachmentSize is the maximum allowed file size in bytes.
	MaxAttachmentSize = MaxAttachmentSizeMB * 1024 * 1024
)

var (
	// ErrFileSizeInvalid is returned for empty files or files over MaxAttachmentSize.
	ErrFileSizeInvalid = errors.New("media: invalid file size")

	// ErrFileTypeInvalid is returned for files whose extension is not a supported image type.
	ErrFileTypeInvalid = errors.New("media: unsupported file type")
)

// ExtToMIME maps supported image extensions to their MIME types.
var ExtToMIME = map[string]string{
	".gif":  "image/gif",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// IsImageReference reports whether a message body should be displayed as an image: its path
// ends with a supported image extension. For http(s) URLs the query and fragment are ignored.
func IsImageReference(body string) bool {
	body = strings.TrimSpace(body)
	if body == "" || strings.ContainsAny(body, " \n\t") {
		return false
	}

	p := body
	if u, err := url.Parse(body); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		p = u.Path
	}

	_, ok := ExtToMIME[strings.ToLower(path.Ext(p))]
	return ok
}

// ValidateFileSize checks that size is positive and within MaxAttachmentSize.
func ValidateFileSize(size int64) error {
	if size <= 0 || size > MaxAttachmentSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileSizeInvalid, size, MaxAttachmentSize)
	}
	return nil
}

// DetectMIME returns the MIME type for fileName, or ErrFileTypeInvalid.
func DetectMIME(fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) < 2 {
		return "", fmt.Errorf("%w: %q has no extension", ErrFileTypeInvalid, fileName)
	}

	mime, ok := ExtToMIME[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFileTypeInvalid, ext)
	}

	return mime, nil
}
