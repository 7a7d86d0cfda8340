package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/digest-core/internal/core/ports/driving"
)

var testPDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

type testEnv struct {
	documents  *mocks.MockDocumentStore
	queue      *mocks.MockWorkQueue
	blobs      *mocks.MockBlobStore
	extractor  *mocks.MockExtractor
	summarizer *mocks.MockSummarizer
	inspector  *mocks.MockPDFInspector

	pipeline      driving.PipelineService
	extraction    *ExtractionService
	summarization *SummarizationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	settings := domain.PipelineConfig{MaxUploadBytes: 1024, MaxAttempts: 3, CallTimeout: time.Second}

	env := &testEnv{
		documents:  mocks.NewMockDocumentStore(),
		queue:      mocks.NewMockWorkQueue(time.Hour),
		blobs:      mocks.NewMockBlobStore(),
		extractor:  &mocks.MockExtractor{},
		summarizer: &mocks.MockSummarizer{},
		inspector:  &mocks.MockPDFInspector{Pages: 2},
	}
	env.pipeline = NewPipelineService(PipelineServiceConfig{
		Documents: env.documents,
		Queue:     env.queue,
		Blobs:     env.blobs,
		Inspector: env.inspector,
		Settings:  settings,
		Logger:    logger,
	})
	env.extraction = NewExtractionService(ExtractionServiceConfig{
		Documents: env.documents,
		Queue:     env.queue,
		Blobs:     env.blobs,
		Extractor: env.extractor,
		Settings:  settings,
		Logger:    logger,
	})
	env.summarization = NewSummarizationService(SummarizationServiceConfig{
		Documents:  env.documents,
		Summarizer: env.summarizer,
		Settings:   settings,
		Logger:     logger,
	})
	return env
}

func (e *testEnv) submit(t *testing.T, filename string) string {
	t.Helper()
	result, err := e.pipeline.Submit(context.Background(), driving.SubmitRequest{
		Filename:    filename,
		ContentType: "application/pdf",
		Data:        testPDF,
		Mode:        "plain_text",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return result.DocumentID
}

// next dequeues one job of kind without waiting
func (e *testEnv) next(t *testing.T, kind domain.JobKind) *domain.Job {
	t.Helper()
	job, err := e.queue.Dequeue(context.Background(), kind, 0)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if job == nil {
		t.Fatalf("expected a %s job", kind)
	}
	return job
}

func (e *testEnv) status(t *testing.T, id string) domain.DocumentStatus {
	t.Helper()
	doc, err := e.documents.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	return doc.Status
}

func submitMarkdown() driving.SubmitRequest {
	return driving.SubmitRequest{
		Filename:    "notes.pdf",
		ContentType: "application/pdf",
		Data:        testPDF,
		Mode:        "markdown",
	}
}

func submitRequest(filename string, data []byte) driving.SubmitRequest {
	return driving.SubmitRequest{
		Filename:    filename,
		ContentType: "application/pdf",
		Data:        data,
	}
}
