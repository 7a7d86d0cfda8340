package ai

import (
	"bytes"
	"context"
	"io"
	"strings"

	"code.sajari.com/docconv"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

var _ driven.Extractor = (*PlainTextExtractor)(nil)

// PlainTextExtractor pulls the text layer out of a PDF locally with docconv.
// It needs the poppler pdftotext binary on PATH.
type PlainTextExtractor struct {
	convert func(r io.Reader, mimeType string) (string, error)
}

// NewPlainTextExtractor creates a docconv-backed extractor
func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{convert: docconvText}
}

func docconvText(r io.Reader, mimeType string) (string, error) {
	res, err := docconv.Convert(r, mimeType, false)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

// Extract returns the document's text. The mode is ignored; plain text is all docconv produces.
func (e *PlainTextExtractor) Extract(ctx context.Context, pdf []byte, _ domain.ExtractionMode) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := e.convert(bytes.NewReader(pdf), "application/pdf")
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", extractionFailure("docconv", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return "", domain.NewExtractionError("docconv", false, r.err)
		}
		return strings.TrimSpace(r.text), nil
	}
}
