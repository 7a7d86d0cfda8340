package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

const (
	// Stream and group names
	streamPrefix = "digest:jobs:"
	jobGroup     = "digest:workers"

	// Dedup markers, one per (kind, document)
	dedupPrefix = "digest:job:"

	// Default consumer name prefix
	consumerPrefix = "worker-"

	// Defaults
	defaultVisibilityTimeout = 5 * time.Minute
	defaultDedupTTL          = 24 * time.Hour
	claimBatch               = 10
)

// Verify interface compliance
var _ driven.WorkQueue = (*Queue)(nil)

// Config configures the Redis Streams queue
type Config struct {
	// ConsumerName should be unique per worker instance (e.g., hostname + PID)
	ConsumerName string

	// VisibilityTimeout is how long a delivered job may stay unacknowledged
	// before another consumer claims it (default: 5m)
	VisibilityTimeout time.Duration

	// DedupTTL is how long an enqueued (kind, document) pair blocks duplicates (default: 24h)
	DedupTTL time.Duration
}

// Queue implements WorkQueue using Redis Streams.
// Each job kind has its own stream and consumer group; pending entries
// idle past the visibility timeout are claimed and redelivered.
type Queue struct {
	client            *redis.Client
	consumerName      string
	visibilityTimeout time.Duration
	dedupTTL          time.Duration
}

// NewQueue creates a new Redis-backed work queue and its consumer groups.
func NewQueue(ctx context.Context, client *redis.Client, cfg Config) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = defaultVisibilityTimeout
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = defaultDedupTTL
	}

	q := &Queue{
		client:            client,
		consumerName:      cfg.ConsumerName,
		visibilityTimeout: cfg.VisibilityTimeout,
		dedupTTL:          cfg.DedupTTL,
	}

	for _, kind := range domain.JobKinds {
		err := q.client.XGroupCreateMkStream(ctx, streamName(kind), jobGroup, "0").Err()
		if err != nil && !isGroupExistsError(err) {
			return nil, fmt.Errorf("failed to create consumer group: %w", err)
		}
	}

	return q, nil
}

// enqueueScript sets the dedup marker and appends to the stream atomically,
// so a failed enqueue never leaves a marker behind that blocks the retry.
var enqueueScript = redis.NewScript(`
	if redis.call("set", KEYS[1], "1", "NX", "PX", ARGV[1]) then
		return redis.call("xadd", KEYS[2], "*",
			"document_id", ARGV[2], "kind", ARGV[3], "mode", ARGV[4], "enqueued_at", ARGV[5])
	end
	return false
`)

// Enqueue adds a job to its kind's stream. Duplicates are dropped silently.
func (q *Queue) Enqueue(ctx context.Context, job *domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	keys := []string{dedupPrefix + job.DedupKey(), streamName(job.Kind)}
	_, err := enqueueScript.Run(ctx, q.client, keys,
		q.dedupTTL.Milliseconds(),
		job.DocumentID,
		string(job.Kind),
		string(job.Mode),
		job.EnqueuedAt.UTC().Format(time.RFC3339Nano),
	).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: failed to enqueue job: %w", domain.ErrQueueUnavailable, err)
	}
	return nil
}

// Dequeue returns the next job of the given kind, waiting up to wait.
// Abandoned deliveries are reclaimed before new entries are read.
func (q *Queue) Dequeue(ctx context.Context, kind domain.JobKind, wait time.Duration) (*domain.Job, error) {
	job, err := q.claimAbandonedJob(ctx, kind)
	if err != nil {
		if isContextError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to claim pending jobs: %w", domain.ErrQueueUnavailable, err)
	}
	if job != nil {
		return job, nil
	}

	// Block < 0 omits BLOCK; 0 would block forever.
	block := wait
	if wait <= 0 {
		block = -1
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    jobGroup,
		Consumer: q.consumerName,
		Streams:  []string{streamName(kind), ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || isContextError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to read from stream: %w", domain.ErrQueueUnavailable, err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	msg := streams[0].Messages[0]
	job, ok := decodeJob(kind, msg)
	if !ok {
		q.discard(ctx, kind, msg.ID)
		return nil, nil
	}
	job.Attempts = 1
	return job, nil
}

// claimAbandonedJob claims a delivery that has been idle longer than the visibility timeout.
func (q *Queue) claimAbandonedJob(ctx context.Context, kind domain.JobKind) (*domain.Job, error) {
	stream := streamName(kind)
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  jobGroup,
		Start:  "-",
		End:    "+",
		Count:  claimBatch,
		Idle:   q.visibilityTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   stream,
			Group:    jobGroup,
			Consumer: q.consumerName,
			MinIdle:  q.visibilityTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			// Another consumer won the claim
			continue
		}

		msg := claimed[0]
		job, ok := decodeJob(kind, msg)
		if !ok {
			q.discard(ctx, kind, msg.ID)
			continue
		}
		// RetryCount is the delivery count before this claim.
		job.Attempts = int(p.RetryCount) + 1
		return job, nil
	}

	return nil, nil
}

// Ack acknowledges a delivery and removes the entry from the stream.
func (q *Queue) Ack(ctx context.Context, kind domain.JobKind, token string) error {
	stream := streamName(kind)
	var acked *redis.IntCmd

	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		acked = pipe.XAck(ctx, stream, jobGroup, token)
		pipe.XDel(ctx, stream, token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to ack job: %w", domain.ErrQueueUnavailable, err)
	}
	if acked.Val() == 0 {
		return fmt.Errorf("%w: delivery %s", domain.ErrNotFound, token)
	}
	return nil
}

// Stats returns pending and in-flight counts for one kind.
func (q *Queue) Stats(ctx context.Context, kind domain.JobKind) (*domain.QueueStats, error) {
	stream := streamName(kind)
	stats := &domain.QueueStats{Kind: kind}

	length, err := q.client.XLen(ctx, stream).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get stream length: %w", err)
	}

	pending, err := q.client.XPending(ctx, stream, jobGroup).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get pending summary: %w", err)
	}
	if pending != nil {
		stats.InFlightCount = pending.Count
	}

	// Acked entries are deleted, so the stream holds pending plus in-flight.
	stats.PendingCount = length - stats.InFlightCount
	if stats.PendingCount < 0 {
		stats.PendingCount = 0
	}
	return stats, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close cleans up resources.
func (q *Queue) Close() error {
	// Redis client is shared, don't close it here
	return nil
}

// discard drops an entry that cannot be decoded so it is not redelivered forever.
func (q *Queue) discard(ctx context.Context, kind domain.JobKind, id string) {
	stream := streamName(kind)
	q.client.XAck(ctx, stream, jobGroup, id)
	q.client.XDel(ctx, stream, id)
}

func decodeJob(kind domain.JobKind, msg redis.XMessage) (*domain.Job, bool) {
	documentID, _ := msg.Values["document_id"].(string)
	if documentID == "" {
		return nil, false
	}
	mode, _ := msg.Values["mode"].(string)
	job := &domain.Job{
		DocumentID: documentID,
		Kind:       kind,
		Mode:       domain.ExtractionMode(mode),
		Token:      msg.ID,
	}
	if raw, ok := msg.Values["enqueued_at"].(string); ok {
		job.EnqueuedAt, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return job, true
}

// Helper functions

func streamName(kind domain.JobKind) string {
	return streamPrefix + strings.ToLower(string(kind))
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
