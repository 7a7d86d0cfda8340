package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven/mocks"
)

// closingExtractor records whether Close was called
type closingExtractor struct {
	mocks.MockExtractor
	closed bool
}

func (c *closingExtractor) Close() error {
	c.closed = true
	return nil
}

// closingSummarizer records whether Close was called
type closingSummarizer struct {
	mocks.MockSummarizer
	closed   bool
	closeErr error
}

func (c *closingSummarizer) Close() error {
	c.closed = true
	return c.closeErr
}

// stubFactory returns fixed capabilities or errors
type stubFactory struct {
	extractor     driven.Extractor
	summarizer    driven.Summarizer
	extractorErr  error
	summarizerErr error
}

func (f *stubFactory) CreateExtractor(ctx context.Context, settings *domain.AISettings) (driven.Extractor, error) {
	return f.extractor, f.extractorErr
}

func (f *stubFactory) CreateSummarizer(ctx context.Context, settings *domain.AISettings) (driven.Summarizer, error) {
	return f.summarizer, f.summarizerErr
}

func TestNewCapabilities(t *testing.T) {
	caps := NewCapabilities()

	if caps == nil {
		t.Fatal("expected non-nil capabilities")
	}
	if caps.Extractor() != nil {
		t.Error("expected nil extractor initially")
	}
	if caps.Summarizer() != nil {
		t.Error("expected nil summarizer initially")
	}
}

func TestCapabilities_UnsetIsTransient(t *testing.T) {
	caps := NewCapabilities()
	ctx := context.Background()

	_, err := caps.Extract(ctx, []byte("%PDF"), domain.ExtractionModePlainText)
	if err == nil || !domain.IsTransient(err) {
		t.Errorf("expected transient extraction error, got %v", err)
	}

	_, err = caps.Summarize(ctx, "text", domain.ExtractionModePlainText)
	if err == nil || !domain.IsTransient(err) {
		t.Errorf("expected transient summarization error, got %v", err)
	}
}

func TestCapabilities_Delegates(t *testing.T) {
	caps := NewCapabilities()
	extractor := &mocks.MockExtractor{}
	summarizer := &mocks.MockSummarizer{}
	caps.SetExtractor(extractor)
	caps.SetSummarizer(summarizer)

	text, err := caps.Extract(context.Background(), []byte("pdf"), domain.ExtractionModePlainText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "extracted: pdf" {
		t.Errorf("expected delegated text, got %q", text)
	}

	summary, err := caps.Summarize(context.Background(), "text", domain.ExtractionModeMarkdown)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "summary of text" {
		t.Errorf("expected delegated summary, got %q", summary)
	}
	if extractor.Calls() != 1 || summarizer.Calls() != 1 {
		t.Errorf("expected one call each, got %d and %d", extractor.Calls(), summarizer.Calls())
	}
}

func TestCapabilities_SetClosesOld(t *testing.T) {
	caps := NewCapabilities()

	oldExtractor := &closingExtractor{}
	caps.SetExtractor(oldExtractor)
	caps.SetExtractor(&closingExtractor{})
	if !oldExtractor.closed {
		t.Error("expected old extractor to be closed")
	}

	oldSummarizer := &closingSummarizer{}
	caps.SetSummarizer(oldSummarizer)
	caps.SetSummarizer(nil)
	if !oldSummarizer.closed {
		t.Error("expected old summarizer to be closed")
	}
	if caps.Summarizer() != nil {
		t.Error("expected nil summarizer after SetSummarizer(nil)")
	}
}

func TestCapabilities_Load(t *testing.T) {
	caps := NewCapabilities()
	old := &closingExtractor{}
	caps.SetExtractor(old)

	extractor := &closingExtractor{}
	summarizer := &closingSummarizer{}
	settings := domain.AISettings{Provider: domain.AIProviderGemini, APIKey: "key"}

	err := caps.Load(context.Background(), &stubFactory{extractor: extractor, summarizer: summarizer}, settings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !old.closed {
		t.Error("expected replaced extractor to be closed")
	}
	if caps.Extractor() != extractor || caps.Summarizer() != summarizer {
		t.Error("expected loaded capabilities to be current")
	}
	if caps.Settings().Provider != domain.AIProviderGemini {
		t.Errorf("expected settings to be recorded, got %q", caps.Settings().Provider)
	}
}

func TestCapabilities_LoadFailureKeepsCurrent(t *testing.T) {
	caps := NewCapabilities()
	current := &closingExtractor{}
	caps.SetExtractor(current)

	built := &closingExtractor{}
	factory := &stubFactory{extractor: built, summarizerErr: domain.ErrInvalidProvider}

	err := caps.Load(context.Background(), factory, domain.AISettings{})
	if !errors.Is(err, domain.ErrInvalidProvider) {
		t.Fatalf("expected ErrInvalidProvider, got %v", err)
	}
	if !built.closed {
		t.Error("expected half-built extractor to be closed")
	}
	if current.closed {
		t.Error("current extractor should survive a failed load")
	}
	if caps.Extractor() != current {
		t.Error("expected current extractor to remain")
	}
}

func TestCapabilities_LoadExtractorFailure(t *testing.T) {
	caps := NewCapabilities()
	factory := &stubFactory{extractorErr: domain.ErrInvalidProvider}

	if err := caps.Load(context.Background(), factory, domain.AISettings{}); !errors.Is(err, domain.ErrInvalidProvider) {
		t.Fatalf("expected ErrInvalidProvider, got %v", err)
	}
	if caps.Extractor() != nil || caps.Summarizer() != nil {
		t.Error("expected nothing to be set")
	}
}

func TestCapabilities_Close(t *testing.T) {
	caps := NewCapabilities()
	extractor := &closingExtractor{}
	closeErr := errors.New("close failed")
	summarizer := &closingSummarizer{closeErr: closeErr}
	caps.SetExtractor(extractor)
	caps.SetSummarizer(summarizer)

	err := caps.Close()
	if !errors.Is(err, closeErr) {
		t.Errorf("expected close error to be reported, got %v", err)
	}
	if !extractor.closed || !summarizer.closed {
		t.Error("expected both capabilities to be closed")
	}
	if caps.Extractor() != nil || caps.Summarizer() != nil {
		t.Error("expected capabilities to be cleared")
	}
}
