package driven

import (
	"context"

	"github.com/custodia-labs/digest-core/internal/core/domain"
)

// Extractor pulls text out of PDF bytes.
// Failures are returned as *domain.CapabilityError with Stage "extraction".
type Extractor interface {
	Extract(ctx context.Context, pdf []byte, mode domain.ExtractionMode) (string, error)
}

// Summarizer condenses extracted text.
// mode tells the model whether its input (and expected output) is Markdown.
// Failures are returned as *domain.CapabilityError with Stage "summarization".
type Summarizer interface {
	Summarize(ctx context.Context, text string, mode domain.ExtractionMode) (string, error)
}

// PDFInspector reads structural facts from a PDF at the submission boundary.
type PDFInspector interface {
	// PageCount parses the PDF and returns its page count.
	PageCount(ctx context.Context, pdf []byte) (int, error)
}

// CapabilityFactory creates the AI capabilities from configuration
type CapabilityFactory interface {
	// CreateExtractor creates the extractor for the configured provider
	CreateExtractor(ctx context.Context, settings *domain.AISettings) (Extractor, error)

	// CreateSummarizer creates the summarizer for the configured provider
	CreateSummarizer(ctx context.Context, settings *domain.AISettings) (Summarizer, error)
}
