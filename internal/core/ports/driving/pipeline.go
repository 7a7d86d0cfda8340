package driving

import (
	"context"

	"github.com/custodia-labs/digest-core/internal/core/domain"
)

// SubmitRequest carries an uploaded file into the pipeline
type SubmitRequest struct {
	Filename    string
	ContentType string
	Data        []byte

	// Mode is the caller-selected extraction mode. Empty means plain_text.
	Mode string
}

// SubmitResult is returned once the document record and its first job are committed
type SubmitResult struct {
	DocumentID string                `json:"document_id"`
	Status     domain.DocumentStatus `json:"status"`
}

// ListFilter narrows a document listing
type ListFilter struct {
	// InProgress keeps only documents that have not reached a terminal status
	InProgress bool
}

// PipelineService is the API-facing entry point of the processing pipeline.
// Document mutation is reserved for the stage workers.
type PipelineService interface {
	// Submit validates and stores a PDF, creates its record and enqueues extraction.
	// Returns a validation error before any record exists when the input is rejected.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns documents ordered by updated_at descending
	List(ctx context.Context, filter ListFilter) (*domain.DocumentList, error)

	// QueueStats returns statistics for every job kind
	QueueStats(ctx context.Context) ([]*domain.QueueStats, error)
}
