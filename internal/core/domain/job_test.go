package domain

import (
	"errors"
	"testing"
)

func TestNewJob(t *testing.T) {
	job := NewExtractJob("doc-1", ExtractionModeMarkdown)

	if job.Kind != JobKindExtract {
		t.Errorf("expected EXTRACT, got %s", job.Kind)
	}
	if job.Mode != ExtractionModeMarkdown {
		t.Errorf("expected markdown, got %s", job.Mode)
	}
	if job.EnqueuedAt.IsZero() {
		t.Error("expected enqueued_at to be set")
	}
	if job.DedupKey() != "EXTRACT:doc-1" {
		t.Errorf("unexpected dedup key %s", job.DedupKey())
	}
}

func TestJobKind_ExpectedStatus(t *testing.T) {
	if JobKindExtract.ExpectedStatus() != StatusUploaded {
		t.Error("expected EXTRACT to require UPLOADED")
	}
	if JobKindSummarize.ExpectedStatus() != StatusTextReady {
		t.Error("expected SUMMARIZE to require TEXT_READY")
	}
}

func TestJob_Validate(t *testing.T) {
	var nilJob *Job
	if err := nilJob.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil job, got %v", err)
	}
	if err := NewJob("RESIZE", "doc-1", ExtractionModePlainText).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown kind, got %v", err)
	}
	if err := NewSummarizeJob("", ExtractionModePlainText).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing document, got %v", err)
	}
	if err := NewSummarizeJob("doc-1", ExtractionModePlainText).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestJob_RetriesExhausted(t *testing.T) {
	job := NewExtractJob("doc-1", ExtractionModePlainText)

	job.Attempts = 2
	if job.RetriesExhausted(3) {
		t.Error("expected attempt 2 of 3 to have budget left")
	}
	job.Attempts = 3
	if !job.RetriesExhausted(3) {
		t.Error("expected attempt 3 of 3 to exhaust the budget")
	}
	if job.RetriesExhausted(0) {
		t.Error("expected zero budget to mean unbounded")
	}
}

func TestJobOutcome_ShouldAck(t *testing.T) {
	for _, o := range []JobOutcome{OutcomeCompleted, OutcomeSkipped, OutcomeFailed} {
		if !o.ShouldAck() {
			t.Errorf("expected %s to be acknowledged", o)
		}
	}
	if OutcomeDeferred.ShouldAck() {
		t.Error("expected deferred jobs to be left for redelivery")
	}
}
