package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/digest-core/internal/adapters/driven/blobref"
	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.BlobStore = (*GCSBlobStore)(nil)

// GCSBlobStore implements driven.BlobStore on a Cloud Storage bucket
type GCSBlobStore struct {
	bucket *storage.BucketHandle
	prefix string
	logger *slog.Logger
}

// NewGCSBlobStore creates a store over bucket. The client is owned by the caller.
func NewGCSBlobStore(client *storage.Client, bucket, prefix string, logger *slog.Logger) (*GCSBlobStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: GCS bucket name not set", domain.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GCSBlobStore{
		bucket: client.Bucket(bucket),
		prefix: prefix,
		logger: logger,
	}, nil
}

// Store writes data only if the object does not exist yet
func (g *GCSBlobStore) Store(ctx context.Context, data []byte) (string, error) {
	ref := blobref.For(data)
	key, _ := objectKey(g.prefix, ref)

	writer := g.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "application/pdf"

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			g.logger.Debug("blob already stored", "object", key)
			return ref, nil
		}
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			g.logger.Debug("blob already stored", "object", key)
			return ref, nil
		}
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return ref, nil
}

// Fetch reads the object behind ref
func (g *GCSBlobStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	key, ok := objectKey(g.prefix, ref)
	if !ok {
		return nil, fmt.Errorf("%w: unrecognised reference %q", domain.ErrBlobNotFound, ref)
	}

	reader, err := g.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, domain.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object: %w", err)
	}
	return data, nil
}

// isPreconditionFailed reports a DoesNotExist condition that lost to an existing object
func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
