package runtime

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// Ensure Capabilities can stand in for both capabilities
var (
	_ driven.Extractor  = (*Capabilities)(nil)
	_ driven.Summarizer = (*Capabilities)(nil)
)

// errNotConfigured marks a stage whose capability has not been set yet
var errNotConfigured = errors.New("capability not configured")

// Capabilities holds the AI capabilities the workers call.
// They can be swapped at runtime; workers keep a reference to the registry,
// never to a concrete provider. Thread-safe for concurrent access.
type Capabilities struct {
	mu sync.RWMutex

	settings domain.AISettings

	// Dynamic capabilities (can be nil until loaded)
	extractor  driven.Extractor
	summarizer driven.Summarizer
}

// NewCapabilities creates an empty registry
func NewCapabilities() *Capabilities {
	return &Capabilities{}
}

// Settings returns the settings the current capabilities were built from
func (c *Capabilities) Settings() domain.AISettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// Extractor returns the current extractor (may be nil)
func (c *Capabilities) Extractor() driven.Extractor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.extractor
}

// Summarizer returns the current summarizer (may be nil)
func (c *Capabilities) Summarizer() driven.Summarizer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.summarizer
}

// SetExtractor replaces the extractor, closing the old one if it holds resources
func (c *Capabilities) SetExtractor(e driven.Extractor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	closeQuietly(c.extractor)
	c.extractor = e
}

// SetSummarizer replaces the summarizer, closing the old one if it holds resources
func (c *Capabilities) SetSummarizer(s driven.Summarizer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	closeQuietly(c.summarizer)
	c.summarizer = s
}

// Load builds both capabilities from settings and swaps them in together.
// Nothing is replaced if either one fails to build.
func (c *Capabilities) Load(ctx context.Context, factory driven.CapabilityFactory, settings domain.AISettings) error {
	extractor, err := factory.CreateExtractor(ctx, &settings)
	if err != nil {
		return err
	}
	summarizer, err := factory.CreateSummarizer(ctx, &settings)
	if err != nil {
		closeQuietly(extractor)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	closeQuietly(c.extractor)
	closeQuietly(c.summarizer)
	c.extractor = extractor
	c.summarizer = summarizer
	c.settings = settings
	return nil
}

// Extract delegates to the current extractor.
// An unset extractor is reported as transient so the job waits for a reload.
func (c *Capabilities) Extract(ctx context.Context, pdf []byte, mode domain.ExtractionMode) (string, error) {
	e := c.Extractor()
	if e == nil {
		return "", domain.NewExtractionError("extractor_unavailable", true, errNotConfigured)
	}
	return e.Extract(ctx, pdf, mode)
}

// Summarize delegates to the current summarizer
func (c *Capabilities) Summarize(ctx context.Context, text string, mode domain.ExtractionMode) (string, error) {
	s := c.Summarizer()
	if s == nil {
		return "", domain.NewSummarizationError("summarizer_unavailable", true, errNotConfigured)
	}
	return s.Summarize(ctx, text, mode)
}

// Close shuts down all capabilities
func (c *Capabilities) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if closer, ok := c.extractor.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if closer, ok := c.summarizer.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	c.extractor = nil
	c.summarizer = nil
	return errors.Join(errs...)
}

func closeQuietly(v any) {
	if closer, ok := v.(io.Closer); ok {
		_ = closer.Close()
	}
}
