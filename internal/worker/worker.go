package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// StageHandler runs one pipeline stage for a delivered job.
// A non-nil error means infrastructure failure; the job is left for redelivery.
type StageHandler interface {
	Process(ctx context.Context, job *domain.Job) (domain.JobOutcome, error)
}

// StageHandlerFunc adapts a function to StageHandler
type StageHandlerFunc func(ctx context.Context, job *domain.Job) (domain.JobOutcome, error)

func (f StageHandlerFunc) Process(ctx context.Context, job *domain.Job) (domain.JobOutcome, error) {
	return f(ctx, job)
}

// Worker consumes jobs of a single kind and hands them to the stage handler.
// Each goroutine runs an independent blocking dequeue loop.
type Worker struct {
	queue   driven.WorkQueue
	kind    domain.JobKind
	handler StageHandler
	logger  *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout time.Duration
	errorBackoff   time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	Queue          driven.WorkQueue
	Kind           domain.JobKind
	Handler        StageHandler
	Logger         *slog.Logger
	Concurrency    int           // Number of concurrent job processors
	DequeueTimeout time.Duration // How long to wait for a job before checking again
}

// NewWorker creates a new stage worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5 * time.Second
	}

	return &Worker{
		queue:          cfg.Queue,
		kind:           cfg.Kind,
		handler:        cfg.Handler,
		logger:         logger.With("job_kind", cfg.Kind),
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
		errorBackoff:   time.Second,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	if !w.kind.IsValid() {
		return fmt.Errorf("%w: unknown job kind %q", domain.ErrInvalidInput, w.kind)
	}
	if w.handler == nil {
		return fmt.Errorf("%w: stage handler is required", domain.ErrInvalidInput)
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker. In-flight jobs finish first.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

// Run starts the worker and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Debug("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Debug("worker stop signal received")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx, w.kind, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue job", "error", err)
			w.backoff(ctx)
			continue
		}

		if job == nil {
			continue
		}

		w.processJob(ctx, job, logger)
	}
}

// processJob runs one delivery and acknowledges it unless it must be redelivered.
func (w *Worker) processJob(ctx context.Context, job *domain.Job, logger *slog.Logger) {
	logger = logger.With("document_id", job.DocumentID, "attempt", job.Attempts)
	logger.Debug("processing job")

	startTime := time.Now()
	outcome, err := w.handler.Process(ctx, job)
	duration := time.Since(startTime)

	if err != nil {
		// No ack: the queue's visibility timeout redelivers the job.
		logger.Error("job failed", "duration", duration, "error", err)
		return
	}

	if !outcome.ShouldAck() {
		logger.Info("job deferred for redelivery", "duration", duration)
		return
	}

	logger.Info("job done", "outcome", outcome, "duration", duration)

	if ackErr := w.queue.Ack(ctx, w.kind, job.Token); ackErr != nil {
		logger.Error("failed to ack job", "ack_error", ackErr)
	}
}

func (w *Worker) backoff(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-w.stopCh:
	case <-time.After(w.errorBackoff):
	}
}

// Health returns health status of the worker.
type Health struct {
	Kind        domain.JobKind `json:"kind"`
	Running     bool           `json:"running"`
	QueueHealth bool           `json:"queue_health"`
	Error       string         `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Kind:    w.kind,
		Running: running,
	}

	if err := w.queue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
