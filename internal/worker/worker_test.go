package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func outcomeHandler(outcome domain.JobOutcome, err error) StageHandler {
	return StageHandlerFunc(func(context.Context, *domain.Job) (domain.JobOutcome, error) {
		return outcome, err
	})
}

func TestNewWorker_Defaults(t *testing.T) {
	queue := mocks.NewMockWorkQueue(time.Minute)

	w := NewWorker(WorkerConfig{
		Queue:          queue,
		Kind:           domain.JobKindExtract,
		Handler:        outcomeHandler(domain.OutcomeCompleted, nil),
		Concurrency:    0, // Should default to 1
		DequeueTimeout: 0, // Should default to 5s
	})

	if w.concurrency != 1 {
		t.Errorf("expected default concurrency 1, got %d", w.concurrency)
	}
	if w.dequeueTimeout != 5*time.Second {
		t.Errorf("expected default dequeue timeout 5s, got %s", w.dequeueTimeout)
	}
	if w.logger == nil {
		t.Error("expected default logger")
	}
}

func TestWorker_Start_Validation(t *testing.T) {
	queue := mocks.NewMockWorkQueue(time.Minute)

	w := NewWorker(WorkerConfig{Queue: queue, Kind: "BOGUS", Handler: outcomeHandler(domain.OutcomeCompleted, nil)})
	if err := w.Start(context.Background()); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown kind, got %v", err)
	}

	w = NewWorker(WorkerConfig{Queue: queue, Kind: domain.JobKindExtract})
	if err := w.Start(context.Background()); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing handler, got %v", err)
	}
}

func TestWorker_StartStop(t *testing.T) {
	queue := mocks.NewMockWorkQueue(time.Minute)

	w := NewWorker(WorkerConfig{
		Queue:          queue,
		Kind:           domain.JobKindExtract,
		Handler:        outcomeHandler(domain.OutcomeCompleted, nil),
		Logger:         discardLogger(),
		Concurrency:    2,
		DequeueTimeout: 20 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	health := w.Health(ctx)
	if !health.Running {
		t.Error("expected worker to be running")
	}
	if health.Kind != domain.JobKindExtract {
		t.Errorf("expected kind EXTRACT, got %s", health.Kind)
	}

	// Start again should be no-op
	if err := w.Start(ctx); err != nil {
		t.Errorf("second start should not error: %v", err)
	}

	w.Stop()

	health = w.Health(ctx)
	if health.Running {
		t.Error("expected worker to be stopped")
	}

	// Stop again should be no-op
	w.Stop()
}

func TestWorker_Health_QueueError(t *testing.T) {
	queue := mocks.NewMockWorkQueue(time.Minute)
	queue.PingFn = func() error {
		return errors.New("connection failed")
	}

	w := NewWorker(WorkerConfig{Queue: queue, Kind: domain.JobKindSummarize})

	health := w.Health(context.Background())
	if health.QueueHealth {
		t.Error("expected queue to be unhealthy")
	}
	if health.Error != "connection failed" {
		t.Errorf("expected error message, got %q", health.Error)
	}
}

func TestWorker_ProcessJob_AckPolicy(t *testing.T) {
	tests := []struct {
		name    string
		outcome domain.JobOutcome
		err     error
		wantAck bool
	}{
		{"completed", domain.OutcomeCompleted, nil, true},
		{"skipped", domain.OutcomeSkipped, nil, true},
		{"failed", domain.OutcomeFailed, nil, true},
		{"deferred", domain.OutcomeDeferred, nil, false},
		{"infrastructure error", "", errors.New("store down"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			queue := mocks.NewMockWorkQueue(time.Minute)
			if err := queue.Enqueue(ctx, domain.NewExtractJob("doc-1", domain.ExtractionModePlainText)); err != nil {
				t.Fatalf("enqueue failed: %v", err)
			}
			job, _ := queue.Dequeue(ctx, domain.JobKindExtract, 0)

			w := NewWorker(WorkerConfig{
				Queue:   queue,
				Kind:    domain.JobKindExtract,
				Handler: outcomeHandler(tt.outcome, tt.err),
				Logger:  discardLogger(),
			})
			w.processJob(ctx, job, w.logger)

			acked := queue.AckedCount(domain.JobKindExtract) == 1
			if acked != tt.wantAck {
				t.Errorf("expected ack=%v, got %v", tt.wantAck, acked)
			}
		})
	}
}

func TestWorker_ProcessesQueuedJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := mocks.NewMockWorkQueue(time.Minute)
	for _, id := range []string{"a", "b", "c"} {
		_ = queue.Enqueue(ctx, domain.NewSummarizeJob(id, domain.ExtractionModePlainText))
	}
	// Jobs of the other kind must never reach this worker.
	_ = queue.Enqueue(ctx, domain.NewExtractJob("a", domain.ExtractionModePlainText))

	var processed atomic.Int32
	w := NewWorker(WorkerConfig{
		Queue: queue,
		Kind:  domain.JobKindSummarize,
		Handler: StageHandlerFunc(func(_ context.Context, job *domain.Job) (domain.JobOutcome, error) {
			if job.Kind != domain.JobKindSummarize {
				t.Errorf("unexpected job kind %s", job.Kind)
			}
			processed.Add(1)
			return domain.OutcomeCompleted, nil
		}),
		Logger:         discardLogger(),
		Concurrency:    2,
		DequeueTimeout: 10 * time.Millisecond,
	})
	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for queue.AckedCount(domain.JobKindSummarize) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()

	if got := processed.Load(); got != 3 {
		t.Errorf("expected 3 processed jobs, got %d", got)
	}
	if queue.Len(domain.JobKindExtract) != 1 {
		t.Error("expected the EXTRACT job to remain queued")
	}
}

func TestWorker_Run_StopsOnCancel(t *testing.T) {
	queue := mocks.NewMockWorkQueue(time.Minute)
	w := NewWorker(WorkerConfig{
		Queue:          queue,
		Kind:           domain.JobKindExtract,
		Handler:        outcomeHandler(domain.OutcomeCompleted, nil),
		Logger:         discardLogger(),
		DequeueTimeout: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
