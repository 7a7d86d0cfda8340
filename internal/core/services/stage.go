package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// failDocument moves a document to ERROR if it still holds the expected status.
// Losing the race means another delivery already settled the document.
func failDocument(ctx context.Context, store driven.DocumentStore, logger *slog.Logger, id string, expected domain.DocumentStatus, detail string) (domain.JobOutcome, error) {
	_, err := store.Update(ctx, id, expected, func(d *domain.Document) error {
		d.MarkError(detail)
		return nil
	})
	switch {
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrNotFound):
		logger.Info("document already settled, skipping error update", "detail", detail)
		return domain.OutcomeSkipped, nil
	case err != nil:
		return "", err
	}
	logger.Warn("document failed", "detail", detail)
	return domain.OutcomeFailed, nil
}

// capabilityFailure decides between redelivery and a terminal ERROR for a failed AI call
func capabilityFailure(ctx context.Context, store driven.DocumentStore, logger *slog.Logger, job *domain.Job, maxAttempts int, callErr error) (domain.JobOutcome, error) {
	// Shutdown, not a capability failure: leave the job for another worker.
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if domain.IsTransient(callErr) && !job.RetriesExhausted(maxAttempts) {
		logger.Warn("transient capability failure, leaving job for redelivery",
			"error", callErr,
			"max_attempts", maxAttempts,
		)
		return domain.OutcomeDeferred, nil
	}
	logger.Error("capability failed", "error", callErr, "transient", domain.IsTransient(callErr))
	return failDocument(ctx, store, logger, job.DocumentID, job.Kind.ExpectedStatus(), domain.FailureReason(callErr))
}

// beyondBudget catches deliveries that never reported back, such as a worker
// crashing mid-call, once the redelivery counter passes the budget.
func beyondBudget(job *domain.Job, maxAttempts int) bool {
	return maxAttempts > 0 && job.Attempts > maxAttempts
}

func jobLogger(logger *slog.Logger, job *domain.Job) *slog.Logger {
	return logger.With(
		"job_kind", job.Kind,
		"document_id", job.DocumentID,
		"attempt", job.Attempts,
	)
}
