package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// Ensure Queue implements WorkQueue
var _ driven.WorkQueue = (*Queue)(nil)

const (
	jobStatusPending = "pending"
	jobStatusDone    = "done"
)

// Config configures the PostgreSQL queue
type Config struct {
	// VisibilityTimeout is how long a lease lasts before the job is visible again (default: 5m)
	VisibilityTimeout time.Duration

	// PollInterval is how often Dequeue re-checks an empty queue while waiting (default: 500ms)
	PollInterval time.Duration
}

// Queue implements WorkQueue using PostgreSQL with SKIP LOCKED for reliable job leasing.
// This is the fallback queue when Redis is not available.
type Queue struct {
	db                *sql.DB
	visibilityTimeout time.Duration
	pollInterval      time.Duration
}

// NewQueue creates a new PostgreSQL-backed work queue.
// Assumes the jobs table has been created via the embedded schema.
func NewQueue(db *sql.DB, cfg Config) *Queue {
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = 5 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	return &Queue{
		db:                db,
		visibilityTimeout: cfg.VisibilityTimeout,
		pollInterval:      cfg.PollInterval,
	}
}

// Enqueue adds a job. The (kind, document_id) unique key drops duplicates.
func (q *Queue) Enqueue(ctx context.Context, job *domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO jobs (kind, document_id, mode, status, enqueued_at, visible_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (kind, document_id) DO NOTHING
	`

	_, err := q.db.ExecContext(ctx, query,
		job.Kind,
		job.DocumentID,
		job.Mode,
		jobStatusPending,
		job.EnqueuedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert job: %w", domain.ErrQueueUnavailable, err)
	}
	return nil
}

// Dequeue leases the next visible job of kind, polling until wait elapses.
func (q *Queue) Dequeue(ctx context.Context, kind domain.JobKind, wait time.Duration) (*domain.Job, error) {
	deadline := time.Now().Add(wait)
	for {
		job, err := q.lease(ctx, kind)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil
			}
			return nil, err
		}
		if job != nil {
			return job, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(min(q.pollInterval, remaining)):
		}
	}
}

// lease selects one visible job with SKIP LOCKED and pushes its visibility forward.
func (q *Queue) lease(ctx context.Context, kind domain.JobKind) (*domain.Job, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %w", domain.ErrQueueUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	selectQuery := `
		SELECT id, document_id, mode, attempts, enqueued_at
		FROM jobs
		WHERE kind = $1
		  AND status = $2
		  AND visible_at <= NOW()
		ORDER BY enqueued_at ASC, id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	var id int64
	job := &domain.Job{Kind: kind}
	err = tx.QueryRowContext(ctx, selectQuery, kind, jobStatusPending).Scan(
		&id,
		&job.DocumentID,
		&job.Mode,
		&job.Attempts,
		&job.EnqueuedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select job: %w", domain.ErrQueueUnavailable, err)
	}

	job.Token = uuid.NewString()
	job.Attempts++
	job.EnqueuedAt = job.EnqueuedAt.UTC()

	updateQuery := `
		UPDATE jobs
		SET attempts = $2,
			lease_token = $3,
			visible_at = NOW() + ($4::double precision * INTERVAL '1 millisecond'),
			updated_at = NOW()
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, updateQuery, id, job.Attempts, job.Token, q.visibilityTimeout.Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("%w: lease job: %w", domain.ErrQueueUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit lease: %w", domain.ErrQueueUnavailable, err)
	}
	return job, nil
}

// Ack marks the leased job done. A stale token (the lease moved on) is reported as not found.
func (q *Queue) Ack(ctx context.Context, kind domain.JobKind, token string) error {
	query := `
		UPDATE jobs
		SET status = $3, lease_token = NULL, updated_at = NOW()
		WHERE kind = $1 AND lease_token = $2 AND status = $4
	`

	result, err := q.db.ExecContext(ctx, query, kind, token, jobStatusDone, jobStatusPending)
	if err != nil {
		return fmt.Errorf("%w: ack job: %w", domain.ErrQueueUnavailable, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: ack job: %w", domain.ErrQueueUnavailable, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: lease %s", domain.ErrNotFound, token)
	}
	return nil
}

// Stats returns pending and in-flight counts for one kind.
func (q *Queue) Stats(ctx context.Context, kind domain.JobKind) (*domain.QueueStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE visible_at <= NOW()),
			COUNT(*) FILTER (WHERE visible_at > NOW())
		FROM jobs
		WHERE kind = $1 AND status = $2
	`

	stats := &domain.QueueStats{Kind: kind}
	err := q.db.QueryRowContext(ctx, query, kind, jobStatusPending).Scan(
		&stats.PendingCount,
		&stats.InFlightCount,
	)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Close cleans up resources.
func (q *Queue) Close() error {
	// DB connection is shared, don't close it here
	return nil
}
