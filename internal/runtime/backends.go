package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/digest-core/internal/adapters/driven/firestore"
	"github.com/custodia-labs/digest-core/internal/adapters/driven/objectstore"
	"github.com/custodia-labs/digest-core/internal/adapters/driven/postgres"
	pgqueue "github.com/custodia-labs/digest-core/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/custodia-labs/digest-core/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/digest-core/internal/adapters/driven/redis"
	"github.com/custodia-labs/digest-core/internal/config"
	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// Pinger is a dependency that can report its health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backends is the set of storage and queue adapters selected by configuration
type Backends struct {
	Documents driven.DocumentStore
	Queue     driven.WorkQueue
	Blobs     driven.BlobStore

	// Checks back the readiness endpoint, keyed by name
	Checks map[string]Pinger

	closers []io.Closer
	logger  *slog.Logger
}

// OpenBackends connects to every backend cfg selects.
// Connections opened before a failure are closed again.
func OpenBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backends{Checks: make(map[string]Pinger), logger: logger}

	if err := b.open(ctx, cfg); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backends) open(ctx context.Context, cfg *config.Config) error {
	var db *postgres.DB
	if cfg.UsesPostgres() {
		var err error
		db, err = openPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, db)
		b.Checks["postgres"] = db
		b.logger.Info("postgres connected")
	}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		var err error
		rdb, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, rdb)
		b.Checks["redis"] = redisPinger{rdb}
		b.logger.Info("redis connected")
	}

	if err := b.openDocuments(ctx, cfg, db, rdb); err != nil {
		return err
	}
	if err := b.openQueue(ctx, cfg, db, rdb); err != nil {
		return err
	}
	return b.openBlobs(ctx, cfg, rdb)
}

func (b *Backends) openDocuments(ctx context.Context, cfg *config.Config, db *postgres.DB, rdb *redis.Client) error {
	switch cfg.DocumentStore {
	case config.BackendPostgres:
		b.Documents = postgres.NewDocumentStore(db)
	case config.BackendRedis:
		b.Documents = redisadapter.NewDocumentStore(rdb)
	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.GCPProject)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, client)
		store := firestore.NewDocumentStore(client, cfg.FirestoreColl)
		b.Documents = store
		b.Checks["firestore"] = store
	default:
		return fmt.Errorf("%w: unknown document store %q", domain.ErrInvalidInput, cfg.DocumentStore)
	}
	b.logger.Info("document store ready", "backend", cfg.DocumentStore)
	return nil
}

func (b *Backends) openQueue(ctx context.Context, cfg *config.Config, db *postgres.DB, rdb *redis.Client) error {
	switch cfg.QueueBackend {
	case config.BackendRedis:
		q, err := redisqueue.NewQueue(ctx, rdb, redisqueue.Config{
			ConsumerName:      consumerName(cfg.ConsumerName),
			VisibilityTimeout: cfg.VisibilityTTL,
		})
		if err != nil {
			return fmt.Errorf("create redis queue: %w", err)
		}
		b.Queue = q
	case config.BackendPostgres:
		b.Queue = pgqueue.NewQueue(db.DB, pgqueue.Config{VisibilityTimeout: cfg.VisibilityTTL})
	default:
		return fmt.Errorf("%w: unknown queue backend %q", domain.ErrInvalidInput, cfg.QueueBackend)
	}
	b.closers = append(b.closers, b.Queue)
	b.Checks["queue"] = b.Queue
	b.logger.Info("work queue ready", "backend", cfg.QueueBackend)
	return nil
}

func (b *Backends) openBlobs(ctx context.Context, cfg *config.Config, rdb *redis.Client) error {
	switch cfg.BlobStore {
	case config.BackendRedis:
		b.Blobs = redisadapter.NewBlobStore(rdb, cfg.BlobTTL)
	case config.BackendS3:
		store, err := objectstore.NewS3BlobStore(ctx, objectstore.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.AWSRegion,
			Prefix:    cfg.ObjectPrefix,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
		if err != nil {
			return err
		}
		b.Blobs = store
	case config.BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create GCS client: %w", err)
		}
		b.closers = append(b.closers, client)
		store, err := objectstore.NewGCSBlobStore(client, cfg.GCSBucket, cfg.ObjectPrefix, b.logger)
		if err != nil {
			return err
		}
		b.Blobs = store
	default:
		return fmt.Errorf("%w: unknown blob store %q", domain.ErrInvalidInput, cfg.BlobStore)
	}
	b.logger.Info("blob store ready", "backend", cfg.BlobStore)
	return nil
}

// Close releases every connection in reverse order of opening
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i].Close())
	}
	b.closers = nil
	return errors.Join(errs...)
}

func openPostgres(ctx context.Context, cfg *config.Config) (*postgres.DB, error) {
	dbConfig := postgres.DefaultConfig(cfg.DatabaseURL)
	dbConfig.MaxOpenConns = cfg.DBMaxOpenConns
	dbConfig.MaxIdleConns = cfg.DBMaxIdleConns

	db, err := postgres.Connect(ctx, dbConfig)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: parse redis URL: %w", domain.ErrInvalidInput, err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// consumerName defaults to a name unique per process
func consumerName(name string) string {
	if name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
