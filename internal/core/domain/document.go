package domain

import (
	"fmt"
	"time"
)

// DocumentStatus is a document's position in the processing lifecycle
type DocumentStatus string

const (
	// StatusUploaded means the PDF is stored and waiting for extraction
	StatusUploaded DocumentStatus = "UPLOADED"
	// StatusTextReady means extraction committed and summarization is pending
	StatusTextReady DocumentStatus = "TEXT_READY"
	// StatusSummaryReady is the terminal success state
	StatusSummaryReady DocumentStatus = "SUMMARY_READY"
	// StatusError is the terminal failure state
	StatusError DocumentStatus = "ERROR"
)

// IsValid reports whether s is a known status
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusUploaded, StatusTextReady, StatusSummaryReady, StatusError:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted from s
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusSummaryReady || s == StatusError
}

// rank orders the success path. ERROR has no rank.
func (s DocumentStatus) rank() int {
	switch s {
	case StatusUploaded:
		return 1
	case StatusTextReady:
		return 2
	case StatusSummaryReady:
		return 3
	}
	return 0
}

// CanTransitionTo reports whether from -> to is an edge of the lifecycle state machine.
//
//	UPLOADED   -> TEXT_READY | ERROR
//	TEXT_READY -> SUMMARY_READY | ERROR
func (s DocumentStatus) CanTransitionTo(to DocumentStatus) bool {
	if s.IsTerminal() || !s.IsValid() {
		return false
	}
	if to == StatusError {
		return true
	}
	return to.rank() == s.rank()+1
}

// ExtractionMode selects how text is pulled out of the PDF
type ExtractionMode string

const (
	ExtractionModePlainText ExtractionMode = "plain_text"
	ExtractionModeMarkdown  ExtractionMode = "markdown"
)

// ParseExtractionMode validates a caller-supplied mode. Empty means plain_text.
func ParseExtractionMode(s string) (ExtractionMode, error) {
	switch ExtractionMode(s) {
	case "":
		return ExtractionModePlainText, nil
	case ExtractionModePlainText, ExtractionModeMarkdown:
		return ExtractionMode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidExtractionMode, s)
}

// Document tracks one uploaded PDF through extraction and summarization
type Document struct {
	ID             string         `json:"id"`
	Filename       string         `json:"filename"`
	Status         DocumentStatus `json:"status"`
	ExtractionMode ExtractionMode `json:"extraction_mode"`
	ExtractedText  *string        `json:"extracted_text"`
	Summary        *string        `json:"summary"`
	ErrorDetail    *string        `json:"error_detail,omitempty"`
	PageCount      int            `json:"page_count,omitempty"`
	RawContentRef  string         `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewDocument creates a document in the UPLOADED state
func NewDocument(id, filename, rawContentRef string, mode ExtractionMode) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:             id,
		Filename:       filename,
		Status:         StatusUploaded,
		ExtractionMode: mode,
		RawContentRef:  rawContentRef,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a deep copy so stores never hand out shared pointers
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.ExtractedText = cloneString(d.ExtractedText)
	c.Summary = cloneString(d.Summary)
	c.ErrorDetail = cloneString(d.ErrorDetail)
	return &c
}

// InProgress reports whether clients should keep polling this document
func (d *Document) InProgress() bool {
	return !d.Status.IsTerminal()
}

// MarkTextReady records extracted text and advances to TEXT_READY
func (d *Document) MarkTextReady(text string) {
	d.Status = StatusTextReady
	d.ExtractedText = &text
}

// MarkSummaryReady records the summary and advances to SUMMARY_READY
func (d *Document) MarkSummaryReady(summary string) {
	d.Status = StatusSummaryReady
	d.Summary = &summary
}

// MarkError moves the document to ERROR. Extracted text survives a downstream failure.
func (d *Document) MarkError(detail string) {
	d.Status = StatusError
	d.ErrorDetail = &detail
	d.Summary = nil
}

// Touch refreshes UpdatedAt without ever moving it backwards
func (d *Document) Touch(now time.Time) {
	now = now.UTC()
	if now.After(d.UpdatedAt) {
		d.UpdatedAt = now
	}
}

// CheckTransition validates an update from before to after. It guards the
// state machine and the field invariants tied to each status.
func CheckTransition(before, after *Document) error {
	if after.ID != before.ID || after.Filename != before.Filename || after.RawContentRef != before.RawContentRef {
		return fmt.Errorf("%w: immutable field changed", ErrInvalidTransition)
	}
	if !before.Status.CanTransitionTo(after.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, before.Status, after.Status)
	}

	switch after.Status {
	case StatusTextReady:
		if after.ExtractedText == nil || after.Summary != nil {
			return fmt.Errorf("%w: TEXT_READY requires extracted text and no summary", ErrInvalidTransition)
		}
	case StatusSummaryReady:
		if after.ExtractedText == nil || after.Summary == nil {
			return fmt.Errorf("%w: SUMMARY_READY requires text and summary", ErrInvalidTransition)
		}
	case StatusError:
		if after.ErrorDetail == nil || after.Summary != nil {
			return fmt.Errorf("%w: ERROR requires an error detail and no summary", ErrInvalidTransition)
		}
	}
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// DocumentList is the polling read model returned to clients
type DocumentList struct {
	Documents []*Document `json:"documents"`
	Count     int         `json:"count"`
}
