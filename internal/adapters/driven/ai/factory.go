package ai

import (
	"context"
	"fmt"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// Ensure Factory implements CapabilityFactory
var _ driven.CapabilityFactory = (*Factory)(nil)

// Factory creates AI capabilities based on configuration
type Factory struct{}

// NewFactory creates a new capability factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateExtractor builds a ModeRouter: docconv for plain_text, the generative
// provider for markdown. The markdown route is left empty when no provider
// able to read PDFs is configured, which fails markdown jobs permanently.
func (f *Factory) CreateExtractor(ctx context.Context, settings *domain.AISettings) (driven.Extractor, error) {
	router := &ModeRouter{PlainText: NewPlainTextExtractor()}

	md := settings.MarkdownSettings()
	if md == nil || !md.IsConfigured() {
		return router, nil
	}

	switch md.Provider {
	case domain.AIProviderGemini:
		g, err := NewGemini(ctx, md.APIKey, md.Model)
		if err != nil {
			return nil, err
		}
		router.Markdown = g
	case domain.AIProviderVertex:
		v, err := NewVertex(ctx, md.ProjectID, md.Region, md.Model)
		if err != nil {
			return nil, err
		}
		router.Markdown = v
	case domain.AIProviderOpenAI:
		// chat completions cannot read PDFs
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, md.Provider)
	}
	return router, nil
}

// CreateSummarizer creates the summarizer for the configured provider
func (f *Factory) CreateSummarizer(ctx context.Context, settings *domain.AISettings) (driven.Summarizer, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: AI provider not configured", domain.ErrInvalidProvider)
	}

	switch settings.Provider {
	case domain.AIProviderGemini:
		return NewGemini(ctx, settings.APIKey, settings.Model)
	case domain.AIProviderVertex:
		return NewVertex(ctx, settings.ProjectID, settings.Region, settings.Model)
	case domain.AIProviderOpenAI:
		return NewOpenAISummarizer(settings.APIKey, settings.Model, settings.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}
