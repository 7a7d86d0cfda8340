package ai

import (
	"context"
	"errors"
	"io"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

var _ driven.Extractor = (*ModeRouter)(nil)

// ModeRouter sends each extraction to the extractor configured for its mode
type ModeRouter struct {
	PlainText driven.Extractor
	Markdown  driven.Extractor
}

// Extract dispatches on mode
func (r *ModeRouter) Extract(ctx context.Context, pdf []byte, mode domain.ExtractionMode) (string, error) {
	var target driven.Extractor
	switch mode {
	case domain.ExtractionModeMarkdown:
		target = r.Markdown
	case domain.ExtractionModePlainText, "":
		target = r.PlainText
	default:
		return "", domain.NewExtractionError("unsupported mode "+string(mode), false, domain.ErrInvalidExtractionMode)
	}
	if target == nil {
		return "", domain.NewExtractionError("no extractor configured for "+string(mode), false, nil)
	}
	return target.Extract(ctx, pdf, mode)
}

// Close closes every routed extractor that holds resources
func (r *ModeRouter) Close() error {
	var errs []error
	for _, e := range []driven.Extractor{r.PlainText, r.Markdown} {
		if c, ok := e.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
