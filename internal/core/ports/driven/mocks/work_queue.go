package mocks

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

var _ driven.WorkQueue = (*MockWorkQueue)(nil)

type queuedJob struct {
	job       domain.Job
	token     string
	attempts  int
	visibleAt time.Time
	delivered bool
}

// MockWorkQueue is an in-memory WorkQueue with dedup, delivery counting and a visibility timeout
type MockWorkQueue struct {
	mu                sync.Mutex
	queues            map[domain.JobKind][]*queuedJob
	seen              map[string]bool
	enqueued          map[domain.JobKind]int
	acked             map[domain.JobKind]int
	nextToken         int
	visibilityTimeout time.Duration
	pollInterval      time.Duration

	// Custom behavior hooks (optional)
	EnqueueFn func(job *domain.Job) error
	AckFn     func(kind domain.JobKind, token string) error
	PingFn    func() error
}

// NewMockWorkQueue creates a queue whose unacknowledged jobs reappear after visibilityTimeout
func NewMockWorkQueue(visibilityTimeout time.Duration) *MockWorkQueue {
	return &MockWorkQueue{
		queues:            make(map[domain.JobKind][]*queuedJob),
		seen:              make(map[string]bool),
		enqueued:          make(map[domain.JobKind]int),
		acked:             make(map[domain.JobKind]int),
		visibilityTimeout: visibilityTimeout,
		pollInterval:      5 * time.Millisecond,
	}
}

func (m *MockWorkQueue) Enqueue(ctx context.Context, job *domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if m.EnqueueFn != nil {
		if err := m.EnqueueFn(job); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[job.DedupKey()] {
		return nil
	}
	m.seen[job.DedupKey()] = true
	m.enqueued[job.Kind]++
	m.queues[job.Kind] = append(m.queues[job.Kind], &queuedJob{job: *job})
	return nil
}

func (m *MockWorkQueue) Dequeue(ctx context.Context, kind domain.JobKind, wait time.Duration) (*domain.Job, error) {
	deadline := time.Now().Add(wait)
	for {
		if job := m.tryDequeue(kind); job != nil {
			return job, nil
		}
		if wait <= 0 || time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(m.pollInterval):
		}
	}
}

func (m *MockWorkQueue) tryDequeue(kind domain.JobKind) *domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, q := range m.queues[kind] {
		if q.delivered && now.Before(q.visibleAt) {
			continue
		}
		m.nextToken++
		q.token = strconv.Itoa(m.nextToken)
		q.attempts++
		q.delivered = true
		q.visibleAt = now.Add(m.visibilityTimeout)

		job := q.job
		job.Token = q.token
		job.Attempts = q.attempts
		return &job
	}
	return nil
}

func (m *MockWorkQueue) Ack(ctx context.Context, kind domain.JobKind, token string) error {
	if m.AckFn != nil {
		if err := m.AckFn(kind, token); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	queue := m.queues[kind]
	for i, q := range queue {
		if q.token == token {
			m.queues[kind] = append(queue[:i], queue[i+1:]...)
			m.acked[kind]++
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockWorkQueue) Stats(ctx context.Context, kind domain.JobKind) (*domain.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.QueueStats{Kind: kind}
	for _, q := range m.queues[kind] {
		if q.delivered {
			stats.InFlightCount++
		} else {
			stats.PendingCount++
		}
	}
	return stats, nil
}

func (m *MockWorkQueue) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

func (m *MockWorkQueue) Close() error {
	return nil
}

// Helper methods for testing

// EnqueuedCount returns how many distinct jobs of kind were accepted
func (m *MockWorkQueue) EnqueuedCount(kind domain.JobKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enqueued[kind]
}

// AckedCount returns how many jobs of kind were acknowledged
func (m *MockWorkQueue) AckedCount(kind domain.JobKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acked[kind]
}

// Len returns how many jobs of kind are still queued or in flight
func (m *MockWorkQueue) Len(kind domain.JobKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[kind])
}
