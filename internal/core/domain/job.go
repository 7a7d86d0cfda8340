package domain

import (
	"fmt"
	"time"
)

// JobKind identifies which pipeline stage a job drives
type JobKind string

const (
	// JobKindExtract asks the extraction stage to pull text from a PDF
	JobKindExtract JobKind = "EXTRACT"
	// JobKindSummarize asks the summarization stage to summarise extracted text
	JobKindSummarize JobKind = "SUMMARIZE"
)

// JobKinds lists every stage in pipeline order
var JobKinds = []JobKind{JobKindExtract, JobKindSummarize}

// IsValid reports whether k is a known job kind
func (k JobKind) IsValid() bool {
	return k == JobKindExtract || k == JobKindSummarize
}

// ExpectedStatus is the document status a job of this kind requires before it runs
func (k JobKind) ExpectedStatus() DocumentStatus {
	if k == JobKindSummarize {
		return StatusTextReady
	}
	return StatusUploaded
}

// Job is a queued unit of work. It lives only inside the queue.
type Job struct {
	// DocumentID is the document this job advances
	DocumentID string `json:"document_id"`

	// Kind is the stage to run
	Kind JobKind `json:"kind"`

	// Mode is the extraction mode chosen at submission
	Mode ExtractionMode `json:"mode"`

	// EnqueuedAt is when the producer committed the job
	EnqueuedAt time.Time `json:"enqueued_at"`

	// Token is the opaque delivery token used to acknowledge this delivery.
	// Set by the queue on dequeue.
	Token string `json:"-"`

	// Attempts counts deliveries of this job including the current one.
	// Set by the queue on dequeue.
	Attempts int `json:"-"`
}

// NewJob creates a job ready to enqueue
func NewJob(kind JobKind, documentID string, mode ExtractionMode) *Job {
	return &Job{
		DocumentID: documentID,
		Kind:       kind,
		Mode:       mode,
		EnqueuedAt: time.Now().UTC(),
	}
}

// NewExtractJob creates the first job for a freshly submitted document
func NewExtractJob(documentID string, mode ExtractionMode) *Job {
	return NewJob(JobKindExtract, documentID, mode)
}

// NewSummarizeJob creates the follow-up job once text is committed
func NewSummarizeJob(documentID string, mode ExtractionMode) *Job {
	return NewJob(JobKindSummarize, documentID, mode)
}

// DedupKey identifies a job for enqueue deduplication
func (j *Job) DedupKey() string {
	return string(j.Kind) + ":" + j.DocumentID
}

// Validate checks a job before it is enqueued
func (j *Job) Validate() error {
	if j == nil {
		return fmt.Errorf("%w: job is required", ErrInvalidInput)
	}
	if !j.Kind.IsValid() {
		return fmt.Errorf("%w: unknown job kind %q", ErrInvalidInput, j.Kind)
	}
	if j.DocumentID == "" {
		return fmt.Errorf("%w: document_id is required", ErrInvalidInput)
	}
	return nil
}

// RetriesExhausted reports whether this delivery is the last one the budget allows
func (j *Job) RetriesExhausted(maxAttempts int) bool {
	return maxAttempts > 0 && j.Attempts >= maxAttempts
}

// JobOutcome is what a stage reports back to the worker after processing a job
type JobOutcome string

const (
	// OutcomeCompleted means the stage committed its update (and next job)
	OutcomeCompleted JobOutcome = "completed"
	// OutcomeSkipped means the document was already past this stage
	OutcomeSkipped JobOutcome = "skipped"
	// OutcomeFailed means the document was moved to ERROR
	OutcomeFailed JobOutcome = "failed"
	// OutcomeDeferred means a transient failure; leave the job for redelivery
	OutcomeDeferred JobOutcome = "deferred"
)

// ShouldAck reports whether the delivery should be acknowledged
func (o JobOutcome) ShouldAck() bool {
	return o != OutcomeDeferred
}

// QueueStats contains per-kind queue statistics
type QueueStats struct {
	Kind JobKind `json:"kind"`

	// PendingCount is the number of jobs waiting for a first delivery
	PendingCount int64 `json:"pending_count"`

	// InFlightCount is the number of delivered but unacknowledged jobs
	InFlightCount int64 `json:"in_flight_count"`
}
