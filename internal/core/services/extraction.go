package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// ExtractionService runs the extraction stage for EXTRACT jobs
type ExtractionService struct {
	documents driven.DocumentStore
	queue     driven.WorkQueue
	blobs     driven.BlobStore
	extractor driven.Extractor
	settings  domain.PipelineConfig
	logger    *slog.Logger
}

// ExtractionServiceConfig holds the dependencies of the extraction stage
type ExtractionServiceConfig struct {
	Documents driven.DocumentStore
	Queue     driven.WorkQueue
	Blobs     driven.BlobStore
	Extractor driven.Extractor
	Settings  domain.PipelineConfig
	Logger    *slog.Logger
}

// NewExtractionService creates a new ExtractionService
func NewExtractionService(cfg ExtractionServiceConfig) *ExtractionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{
		documents: cfg.Documents,
		queue:     cfg.Queue,
		blobs:     cfg.Blobs,
		extractor: cfg.Extractor,
		settings:  cfg.Settings.WithDefaults(),
		logger:    logger.With("stage", domain.StageExtraction),
	}
}

// Process handles one EXTRACT delivery. The returned error is reserved for
// infrastructure failures; the job must then stay unacknowledged.
func (s *ExtractionService) Process(ctx context.Context, job *domain.Job) (domain.JobOutcome, error) {
	if job.Kind != domain.JobKindExtract {
		return "", fmt.Errorf("%w: extraction cannot process %s jobs", domain.ErrInvalidInput, job.Kind)
	}
	logger := jobLogger(s.logger, job)

	doc, err := s.documents.Get(ctx, job.DocumentID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("document not found, dropping job")
		return domain.OutcomeSkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("get document: %w", err)
	}

	switch doc.Status {
	case domain.StatusUploaded:
	case domain.StatusTextReady:
		// A previous delivery committed the text but may have died before
		// the follow-up enqueue. The queue deduplicates, so replaying is safe.
		if err := s.enqueueSummary(ctx, doc); err != nil {
			return "", err
		}
		logger.Info("text already extracted, replayed summarize enqueue")
		return domain.OutcomeSkipped, nil
	default:
		logger.Info("document past extraction, skipping", "status", doc.Status)
		return domain.OutcomeSkipped, nil
	}

	if beyondBudget(job, s.settings.MaxAttempts) {
		return failDocument(ctx, s.documents, logger, doc.ID, domain.StatusUploaded, domain.DetailRetriesExhausted)
	}

	pdf, err := s.blobs.Fetch(ctx, doc.RawContentRef)
	if errors.Is(err, domain.ErrBlobNotFound) {
		return failDocument(ctx, s.documents, logger, doc.ID, domain.StatusUploaded, domain.DetailBinaryMissing)
	}
	if err != nil {
		return "", fmt.Errorf("fetch pdf: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.settings.CallTimeout)
	text, err := s.extractor.Extract(callCtx, pdf, doc.ExtractionMode)
	cancel()
	if err != nil {
		return capabilityFailure(ctx, s.documents, logger, job, s.settings.MaxAttempts, err)
	}
	if strings.TrimSpace(text) == "" {
		return failDocument(ctx, s.documents, logger, doc.ID, domain.StatusUploaded, domain.DetailNoExtractableText)
	}

	updated, err := s.documents.Update(ctx, doc.ID, domain.StatusUploaded, func(d *domain.Document) error {
		d.MarkTextReady(text)
		return nil
	})
	if errors.Is(err, domain.ErrConflict) {
		logger.Info("document moved on during extraction, skipping")
		return domain.OutcomeSkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("store extracted text: %w", err)
	}

	if err := s.enqueueSummary(ctx, updated); err != nil {
		return "", err
	}

	logger.Info("text extracted", "chars", len(text), "mode", doc.ExtractionMode)
	return domain.OutcomeCompleted, nil
}

func (s *ExtractionService) enqueueSummary(ctx context.Context, doc *domain.Document) error {
	if err := s.queue.Enqueue(ctx, domain.NewSummarizeJob(doc.ID, doc.ExtractionMode)); err != nil {
		return fmt.Errorf("%w: enqueue summarize: %w", domain.ErrQueueUnavailable, err)
	}
	return nil
}
