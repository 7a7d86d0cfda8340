package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/digest-core/internal/core/domain"
)

// WorkQueue carries stage jobs between producers and workers.
// Each JobKind is a separate logical queue so a worker pool only sees its own stage.
// Implementations can use Redis Streams (preferred) or Postgres (fallback).
type WorkQueue interface {
	// Enqueue durably adds a job. Delivery is at-least-once.
	// Enqueueing the same (kind, document) twice is deduplicated to a single job.
	Enqueue(ctx context.Context, job *domain.Job) error

	// Dequeue returns the next visible job of the given kind, waiting up to wait.
	// The returned job carries a delivery token and its delivery count.
	// Returns nil, nil if nothing arrives within wait or the context is cancelled.
	// A delivered job that is not acknowledged becomes visible again after
	// the queue's visibility timeout.
	Dequeue(ctx context.Context, kind domain.JobKind, wait time.Duration) (*domain.Job, error)

	// Ack marks the delivery identified by token as done so it is never redelivered.
	Ack(ctx context.Context, kind domain.JobKind, token string) error

	// Stats returns queue statistics for one job kind.
	Stats(ctx context.Context, kind domain.JobKind) (*domain.QueueStats, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}
