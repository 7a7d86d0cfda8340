package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/digest-core/internal/adapters/driven/blobref"
	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.BlobStore = (*BlobStore)(nil)

const blobPrefix = "digest:blob:"

// BlobStore implements driven.BlobStore using Redis string values.
// Keys are content-addressed, so storing the same PDF twice shares one key.
type BlobStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBlobStore creates a new Redis-backed BlobStore.
// A zero ttl keeps blobs until they are removed externally.
func NewBlobStore(client *redis.Client, ttl time.Duration) *BlobStore {
	return &BlobStore{client: client, ttl: ttl}
}

// Store saves data under its content hash. Every Store restarts the expiry,
// so a re-upload stays fetchable for a full ttl.
func (b *BlobStore) Store(ctx context.Context, data []byte) (string, error) {
	ref := blobref.For(data)
	digest, _ := blobref.Digest(ref)
	if err := b.client.Set(ctx, blobPrefix+digest, data, b.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}
	return ref, nil
}

// Fetch returns the bytes behind ref
func (b *BlobStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	digest, ok := blobref.Digest(ref)
	if !ok {
		return nil, fmt.Errorf("%w: unrecognised reference %q", domain.ErrBlobNotFound, ref)
	}
	data, err := b.client.Get(ctx, blobPrefix+digest).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blob: %w", err)
	}
	return data, nil
}
