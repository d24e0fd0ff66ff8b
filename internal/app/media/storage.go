package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"lumochat/internal/pkg/logx"
	"lumochat/internal/pkg/randx"
)

// SharedURLDuration is how long a presigned download URL stays valid when no public base URL
// is configured.
const SharedURLDuration = 24 * time.Hour

// ErrStorageFailed wraps every failure of the storage backend.
var ErrStorageFailed = errors.New("media: storage operation failed")

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// S3PublicBaseURL, when set, is used to build permanent object URLs instead of presigned ones.
	S3PublicBaseURL string
}

// Service uploads images and returns a URL suitable as a chat message body.
type Service interface {
	// Share validates and uploads the file, returning the URL to post.
	Share(ctx context.Context, fileName string, size int64, body io.Reader) (string, error)
}

// objectUploader is the subset of *manager.Uploader used by the store.
type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// presignFunc returns a time-limited download URL for key.
type presignFunc func(ctx context.Context, key string, duration time.Duration) (string, error)

// s3Store implements Service on S3-compatible storage.
type s3Store struct {
	cfg      ServiceConfig
	uploader objectUploader
	presign  presignFunc
	logger   zerolog.Logger
}

// NewService is the factory function for Service. It initializes an S3 client that supports
// S3-compatible endpoints (path-style addressing, custom base endpoint).
func NewService(ctx context.Context, cfg ServiceConfig) (Service, error) {
	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client configuration: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	presignClient := s3.NewPresignClient(client)

	store := newStore(cfg, manager.NewUploader(client), func(ctx context.Context, key string, duration time.Duration) (string, error) {
		req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(cfg.S3BucketName),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(duration))
		if err != nil {
			return "", err
		}
		return req.URL, nil
	})

	return store, nil
}

func newStore(cfg ServiceConfig, uploader objectUploader, presign presignFunc) *s3Store {
	return &s3Store{
		cfg:      cfg,
		uploader: uploader,
		presign:  presign,
		logger:   logx.Component("media").With().Str("bucket", cfg.S3BucketName).Logger(),
	}
}

// Share validates size and type, uploads under a random key and returns the object URL.
func (s *s3Store) Share(ctx context.Context, fileName string, size int64, body io.Reader) (string, error) {
	if err := ValidateFileSize(size); err != nil {
		return "", err
	}

	mimeType, err := DetectMIME(fileName)
	if err != nil {
		return "", err
	}

	key, err := randx.MediaKey(filepath.Ext(fileName))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.S3BucketName),
		Key:           aws.String(key),
		Body:          io.LimitReader(body, size),
		ContentType:   aws.String(mimeType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Upload failed.")
		return "", fmt.Errorf("%w: upload %s: %w", ErrStorageFailed, key, err)
	}

	url, err := s.objectURL(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to build shared URL.")
		return "", fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}

	s.logger.Info().Str("key", key).Int64("size", size).Msg("Image shared.")
	return url, nil
}

func (s *s3Store) objectURL(ctx context.Context, key string) (string, error) {
	if base := strings.TrimRight(s.cfg.S3PublicBaseURL, "/"); base != "" {
		return base + "/" + key, nil
	}
	return s.presign(ctx, key, SharedURLDuration)
}
