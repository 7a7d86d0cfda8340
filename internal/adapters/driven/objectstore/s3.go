package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/custodia-labs/digest-core/internal/adapters/driven/blobref"
	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.BlobStore = (*S3BlobStore)(nil)

// S3Config holds the S3 connection settings
type S3Config struct {
	Bucket string
	Region string
	Prefix string

	// AccessKey and SecretKey select static credentials.
	// When empty the default AWS credential chain is used.
	AccessKey string
	SecretKey string

	// Endpoint overrides the service URL (MinIO, LocalStack).
	// Path-style addressing is enabled whenever it is set.
	Endpoint string

	UploadTimeout time.Duration
	FetchTimeout  time.Duration
}

// S3BlobStore implements driven.BlobStore on an S3 bucket
type S3BlobStore struct {
	client        *s3.Client
	uploader      *manager.Uploader
	bucket        string
	prefix        string
	uploadTimeout time.Duration
	fetchTimeout  time.Duration
}

// NewS3BlobStore loads AWS configuration and creates the store
func NewS3BlobStore(ctx context.Context, cfg S3Config) (*S3BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: S3 bucket name not set", domain.ErrInvalidInput)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("%w: AWS region not set", domain.ErrInvalidInput)
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3BlobStore(client, cfg), nil
}

func newS3BlobStore(client *s3.Client, cfg S3Config) *S3BlobStore {
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 2 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	return &S3BlobStore{
		client:        client,
		uploader:      manager.NewUploader(client),
		bucket:        cfg.Bucket,
		prefix:        cfg.Prefix,
		uploadTimeout: cfg.UploadTimeout,
		fetchTimeout:  cfg.FetchTimeout,
	}
}

// Store uploads data under its content-addressed key
func (s *S3BlobStore) Store(ctx context.Context, data []byte) (string, error) {
	ref := blobref.For(data)
	key, _ := objectKey(s.prefix, ref)

	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return ref, nil
}

// Fetch downloads the bytes behind ref
func (s *S3BlobStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	key, ok := objectKey(s.prefix, ref)
	if !ok {
		return nil, fmt.Errorf("%w: unrecognised reference %q", domain.ErrBlobNotFound, ref)
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, domain.ErrBlobNotFound
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
