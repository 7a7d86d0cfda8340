package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

var (
	_ driven.Extractor    = (*MockExtractor)(nil)
	_ driven.Summarizer   = (*MockSummarizer)(nil)
	_ driven.PDFInspector = (*MockPDFInspector)(nil)
)

// MockExtractor returns "extracted: <pdf>" unless ExtractFn is set
type MockExtractor struct {
	mu    sync.Mutex
	calls int

	ExtractFn func(ctx context.Context, pdf []byte, mode domain.ExtractionMode) (string, error)
}

func (m *MockExtractor) Extract(ctx context.Context, pdf []byte, mode domain.ExtractionMode) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.ExtractFn != nil {
		return m.ExtractFn(ctx, pdf, mode)
	}
	return "extracted: " + string(pdf), nil
}

// Calls returns how many times Extract ran
func (m *MockExtractor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSummarizer returns "summary of <text>" unless SummarizeFn is set
type MockSummarizer struct {
	mu    sync.Mutex
	calls int

	SummarizeFn func(ctx context.Context, text string, mode domain.ExtractionMode) (string, error)
}

func (m *MockSummarizer) Summarize(ctx context.Context, text string, mode domain.ExtractionMode) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.SummarizeFn != nil {
		return m.SummarizeFn(ctx, text, mode)
	}
	return "summary of " + text, nil
}

// Calls returns how many times Summarize ran
func (m *MockSummarizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockPDFInspector reports a fixed page count unless PageCountFn is set
type MockPDFInspector struct {
	Pages       int
	PageCountFn func(pdf []byte) (int, error)
}

func (m *MockPDFInspector) PageCount(ctx context.Context, pdf []byte) (int, error) {
	if m.PageCountFn != nil {
		return m.PageCountFn(pdf)
	}
	return m.Pages, nil
}
