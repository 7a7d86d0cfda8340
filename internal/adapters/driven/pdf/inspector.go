// Package pdf reads structural facts from uploaded PDFs with pdfcpu.
package pdf

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PDFInspector = (*Inspector)(nil)

// Inspector implements driven.PDFInspector. A PDF pdfcpu cannot read in
// relaxed mode is rejected at submission instead of failing in a worker.
type Inspector struct {
	conf *model.Configuration
}

// NewInspector creates an inspector with relaxed validation
func NewInspector() *Inspector {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return &Inspector{conf: cfg}
}

// PageCount parses pdf and returns its page count
func (i *Inspector) PageCount(ctx context.Context, pdf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := api.PageCount(bytes.NewReader(pdf), i.conf)
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	return n, nil
}
