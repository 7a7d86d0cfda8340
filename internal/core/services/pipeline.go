package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
	"github.com/custodia-labs/digest-core/internal/core/ports/driving"
)

// Ensure pipelineService implements PipelineService
var _ driving.PipelineService = (*pipelineService)(nil)

// pipelineService is the pipeline coordinator. It owns submission and the read path.
type pipelineService struct {
	documents driven.DocumentStore
	queue     driven.WorkQueue
	blobs     driven.BlobStore
	inspector driven.PDFInspector
	settings  domain.PipelineConfig
	newID     func() string
	logger    *slog.Logger
}

// PipelineServiceConfig holds the dependencies of the pipeline coordinator
type PipelineServiceConfig struct {
	Documents driven.DocumentStore
	Queue     driven.WorkQueue
	Blobs     driven.BlobStore
	Inspector driven.PDFInspector // Optional: page count and structural check
	Settings  domain.PipelineConfig
	Logger    *slog.Logger

	// NewID generates document IDs (default: random UUID)
	NewID func() string
}

// NewPipelineService creates a new PipelineService
func NewPipelineService(cfg PipelineServiceConfig) driving.PipelineService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &pipelineService{
		documents: cfg.Documents,
		queue:     cfg.Queue,
		blobs:     cfg.Blobs,
		inspector: cfg.Inspector,
		settings:  cfg.Settings.WithDefaults(),
		newID:     newID,
		logger:    logger,
	}
}

// Submit validates the upload, stores its bytes, creates the record and enqueues extraction
func (s *pipelineService) Submit(ctx context.Context, req driving.SubmitRequest) (*driving.SubmitResult, error) {
	mode, err := domain.ParseExtractionMode(req.Mode)
	if err != nil {
		return nil, err
	}
	pages, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	ref, err := s.blobs.Store(ctx, req.Data)
	if err != nil {
		return nil, fmt.Errorf("store pdf: %w", err)
	}

	doc := domain.NewDocument(s.newID(), cleanFilename(req.Filename), ref, mode)
	doc.PageCount = pages
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	logger := s.logger.With("document_id", doc.ID)
	if err := s.queue.Enqueue(ctx, domain.NewExtractJob(doc.ID, mode)); err != nil {
		logger.Error("failed to enqueue extraction job", "error", err)
		if _, uerr := s.documents.Update(ctx, doc.ID, domain.StatusUploaded, func(d *domain.Document) error {
			d.MarkError(domain.DetailEnqueueFailed)
			return nil
		}); uerr != nil {
			logger.Warn("failed to mark document as errored", "error", uerr)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrQueueUnavailable, err)
	}

	logger.Info("document submitted",
		"filename", doc.Filename,
		"mode", mode,
		"size", len(req.Data),
		"pages", pages,
	)

	return &driving.SubmitResult{DocumentID: doc.ID, Status: doc.Status}, nil
}

// validate rejects anything that is not a PDF within the size limit.
// It returns the page count when an inspector is configured.
func (s *pipelineService) validate(ctx context.Context, req driving.SubmitRequest) (int, error) {
	if !domain.IsPDFContentType(mediaType(req.ContentType)) {
		return 0, fmt.Errorf("%w: content type %q", domain.ErrInvalidFileType, req.ContentType)
	}
	if len(req.Data) == 0 {
		return 0, domain.ErrEmptyFile
	}
	if int64(len(req.Data)) > s.settings.MaxUploadBytes {
		return 0, fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrFileTooLarge, len(req.Data), s.settings.MaxUploadBytes)
	}
	if !bytes.HasPrefix(req.Data, []byte(domain.PDFSignature)) {
		return 0, fmt.Errorf("%w: missing PDF signature", domain.ErrInvalidFileType)
	}
	if s.inspector == nil {
		return 0, nil
	}
	pages, err := s.inspector.PageCount(ctx, req.Data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidFileType, err)
	}
	return pages, nil
}

// Get retrieves a document by ID
func (s *pipelineService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.documents.Get(ctx, id)
}

// List returns documents newest first, optionally only those still processing
func (s *pipelineService) List(ctx context.Context, filter driving.ListFilter) (*domain.DocumentList, error) {
	docs, err := s.documents.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Document, 0, len(docs))
	for _, doc := range docs {
		if filter.InProgress && !doc.InProgress() {
			continue
		}
		result = append(result, doc)
	}

	return &domain.DocumentList{Documents: result, Count: len(result)}, nil
}

// QueueStats returns statistics for every job kind
func (s *pipelineService) QueueStats(ctx context.Context) ([]*domain.QueueStats, error) {
	stats := make([]*domain.QueueStats, 0, len(domain.JobKinds))
	for _, kind := range domain.JobKinds {
		st, err := s.queue.Stats(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrQueueUnavailable, err)
		}
		stats = append(stats, st)
	}
	return stats, nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "document.pdf"
	}
	return name
}
