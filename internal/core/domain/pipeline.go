package domain

import "time"

// PDFContentTypes lists the accepted upload content types
var PDFContentTypes = []string{"application/pdf", "application/x-pdf"}

// PDFSignature is the magic prefix every PDF file starts with
const PDFSignature = "%PDF-"

// Terminal error details written by the pipeline itself
const (
	DetailBinaryMissing     = "binary_missing"
	DetailMissingText       = "missing_text_for_summary"
	DetailNoExtractableText = "no_extractable_text"
	DetailEnqueueFailed     = "enqueue_failed"
	DetailRetriesExhausted  = "retries_exhausted"
)

// PipelineConfig holds the tunables shared by the coordinator and the stages
type PipelineConfig struct {
	// MaxUploadBytes rejects larger submissions
	MaxUploadBytes int64

	// MaxAttempts is the per-job delivery budget for transient failures
	MaxAttempts int

	// CallTimeout bounds each outbound AI call
	CallTimeout time.Duration
}

// DefaultPipelineConfig returns the defaults: 5 MiB uploads, 3 attempts, 2 minute calls
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MaxUploadBytes: 5 * 1024 * 1024,
		MaxAttempts:    3,
		CallTimeout:    2 * time.Minute,
	}
}

// WithDefaults fills zero values from DefaultPipelineConfig
func (c PipelineConfig) WithDefaults() PipelineConfig {
	d := DefaultPipelineConfig()
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = d.CallTimeout
	}
	return c
}

// IsPDFContentType reports whether ct names a PDF
func IsPDFContentType(ct string) bool {
	for _, accepted := range PDFContentTypes {
		if ct == accepted {
			return true
		}
	}
	return false
}
