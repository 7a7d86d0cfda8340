package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/digest-core/internal/config"
	"github.com/custodia-labs/digest-core/internal/core/domain"
)

func redisConfig(t *testing.T) *config.Config {
	t.Helper()
	mr := miniredis.RunT(t)
	return &config.Config{
		RedisURL:      "redis://" + mr.Addr() + "/0",
		DocumentStore: config.BackendRedis,
		QueueBackend:  config.BackendRedis,
		BlobStore:     config.BackendRedis,
		ConsumerName:  "test-worker",
		VisibilityTTL: time.Minute,
	}
}

func TestOpenBackends_AllRedis(t *testing.T) {
	ctx := context.Background()
	b, err := OpenBackends(ctx, redisConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	require.NotNil(t, b.Documents)
	require.NotNil(t, b.Queue)
	require.NotNil(t, b.Blobs)
	assert.Contains(t, b.Checks, "redis")
	assert.Contains(t, b.Checks, "queue")
	assert.NotContains(t, b.Checks, "postgres")

	for name, check := range b.Checks {
		assert.NoError(t, check.Ping(ctx), name)
	}

	ref, err := b.Blobs.Store(ctx, []byte("%PDF-1.4"))
	require.NoError(t, err)
	doc := domain.NewDocument("doc-1", "a.pdf", ref, domain.ExtractionModePlainText)
	require.NoError(t, b.Documents.Create(ctx, doc))
	require.NoError(t, b.Queue.Enqueue(ctx, domain.NewJob(domain.JobKindExtract, doc.ID, doc.ExtractionMode)))

	job, err := b.Queue.Dequeue(ctx, domain.JobKindExtract, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, doc.ID, job.DocumentID)
}

func TestOpenBackends_RedisUnreachable(t *testing.T) {
	cfg := redisConfig(t)
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	_, err := OpenBackends(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestOpenBackends_BadRedisURL(t *testing.T) {
	cfg := redisConfig(t)
	cfg.RedisURL = "not a url"

	_, err := OpenBackends(context.Background(), cfg, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "got %v", err)
}

func TestOpenBackends_UnknownBackend(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"document store", func(c *config.Config) { c.DocumentStore = "mongo" }},
		{"queue", func(c *config.Config) { c.QueueBackend = "kafka" }},
		{"blob store", func(c *config.Config) { c.BlobStore = "ftp" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := redisConfig(t)
			tt.mutate(cfg)

			b, err := OpenBackends(context.Background(), cfg, nil)
			assert.Nil(t, b)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestConsumerName(t *testing.T) {
	assert.Equal(t, "named", consumerName("named"))
	assert.NotEmpty(t, consumerName(""))
}

func TestBackends_CloseIsIdempotent(t *testing.T) {
	b, err := OpenBackends(context.Background(), redisConfig(t), nil)
	require.NoError(t, err)

	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}
