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

// SummarizationService runs the terminal stage for SUMMARIZE jobs
type SummarizationService struct {
	documents  driven.DocumentStore
	summarizer driven.Summarizer
	settings   domain.PipelineConfig
	logger     *slog.Logger
}

// SummarizationServiceConfig holds the dependencies of the summarization stage
type SummarizationServiceConfig struct {
	Documents  driven.DocumentStore
	Summarizer driven.Summarizer
	Settings   domain.PipelineConfig
	Logger     *slog.Logger
}

// NewSummarizationService creates a new SummarizationService
func NewSummarizationService(cfg SummarizationServiceConfig) *SummarizationService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SummarizationService{
		documents:  cfg.Documents,
		summarizer: cfg.Summarizer,
		settings:   cfg.Settings.WithDefaults(),
		logger:     logger.With("stage", domain.StageSummarization),
	}
}

// Process handles one SUMMARIZE delivery. No further job is produced.
func (s *SummarizationService) Process(ctx context.Context, job *domain.Job) (domain.JobOutcome, error) {
	if job.Kind != domain.JobKindSummarize {
		return "", fmt.Errorf("%w: summarization cannot process %s jobs", domain.ErrInvalidInput, job.Kind)
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
	if doc.Status != domain.StatusTextReady {
		logger.Info("document not awaiting summary, skipping", "status", doc.Status)
		return domain.OutcomeSkipped, nil
	}

	if doc.ExtractedText == nil || strings.TrimSpace(*doc.ExtractedText) == "" {
		return failDocument(ctx, s.documents, logger, doc.ID, domain.StatusTextReady, domain.DetailMissingText)
	}
	if beyondBudget(job, s.settings.MaxAttempts) {
		return failDocument(ctx, s.documents, logger, doc.ID, domain.StatusTextReady, domain.DetailRetriesExhausted)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.settings.CallTimeout)
	summary, err := s.summarizer.Summarize(callCtx, *doc.ExtractedText, doc.ExtractionMode)
	cancel()
	if err == nil && strings.TrimSpace(summary) == "" {
		err = domain.NewSummarizationError("empty response", true, nil)
	}
	if err != nil {
		return capabilityFailure(ctx, s.documents, logger, job, s.settings.MaxAttempts, err)
	}

	_, err = s.documents.Update(ctx, doc.ID, domain.StatusTextReady, func(d *domain.Document) error {
		d.MarkSummaryReady(summary)
		return nil
	})
	if errors.Is(err, domain.ErrConflict) {
		logger.Info("document moved on during summarization, skipping")
		return domain.OutcomeSkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("store summary: %w", err)
	}

	logger.Info("summary ready", "chars", len(summary))
	return domain.OutcomeCompleted, nil
}
