package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewDocument(t *testing.T) {
	doc := NewDocument("doc-123", "report.pdf", "blob:abc", ExtractionModeMarkdown)

	if doc.Status != StatusUploaded {
		t.Errorf("expected status UPLOADED, got %s", doc.Status)
	}
	if doc.ExtractedText != nil || doc.Summary != nil || doc.ErrorDetail != nil {
		t.Error("expected optional fields to be unset")
	}
	if doc.UpdatedAt.IsZero() {
		t.Error("expected updated_at to be set")
	}
	if doc.ExtractionMode != ExtractionModeMarkdown {
		t.Errorf("expected markdown mode, got %s", doc.ExtractionMode)
	}
}

func TestDocumentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from DocumentStatus
		to   DocumentStatus
		want bool
	}{
		{StatusUploaded, StatusTextReady, true},
		{StatusUploaded, StatusError, true},
		{StatusUploaded, StatusSummaryReady, false},
		{StatusUploaded, StatusUploaded, false},
		{StatusTextReady, StatusSummaryReady, true},
		{StatusTextReady, StatusError, true},
		{StatusTextReady, StatusUploaded, false},
		{StatusSummaryReady, StatusError, false},
		{StatusSummaryReady, StatusTextReady, false},
		{StatusError, StatusUploaded, false},
		{StatusError, StatusError, false},
		{DocumentStatus("bogus"), StatusError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDocumentStatus_IsTerminal(t *testing.T) {
	if StatusUploaded.IsTerminal() || StatusTextReady.IsTerminal() {
		t.Error("expected in-progress statuses to be non-terminal")
	}
	if !StatusSummaryReady.IsTerminal() || !StatusError.IsTerminal() {
		t.Error("expected SUMMARY_READY and ERROR to be terminal")
	}
}

func TestParseExtractionMode(t *testing.T) {
	mode, err := ParseExtractionMode("")
	if err != nil || mode != ExtractionModePlainText {
		t.Errorf("expected empty mode to default to plain_text, got %q, %v", mode, err)
	}

	mode, err = ParseExtractionMode("markdown")
	if err != nil || mode != ExtractionModeMarkdown {
		t.Errorf("expected markdown, got %q, %v", mode, err)
	}

	_, err = ParseExtractionMode("html")
	if !errors.Is(err, ErrInvalidExtractionMode) {
		t.Errorf("expected ErrInvalidExtractionMode, got %v", err)
	}
}

func TestCheckTransition(t *testing.T) {
	base := NewDocument("doc-1", "a.pdf", "ref", ExtractionModePlainText)

	t.Run("extract success", func(t *testing.T) {
		after := base.Clone()
		after.MarkTextReady("hello")
		if err := CheckTransition(base, after); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("text ready without text", func(t *testing.T) {
		after := base.Clone()
		after.Status = StatusTextReady
		if err := CheckTransition(base, after); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("skip a stage", func(t *testing.T) {
		after := base.Clone()
		after.MarkTextReady("hello")
		after.MarkSummaryReady("short")
		if err := CheckTransition(base, after); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("summary success", func(t *testing.T) {
		before := base.Clone()
		before.MarkTextReady("hello")
		after := before.Clone()
		after.MarkSummaryReady("short")
		if err := CheckTransition(before, after); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("error keeps extracted text", func(t *testing.T) {
		before := base.Clone()
		before.MarkTextReady("hello")
		after := before.Clone()
		after.MarkError("summarization_failed: quota")
		if err := CheckTransition(before, after); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if after.ExtractedText == nil || *after.ExtractedText != "hello" {
			t.Error("expected extracted text to survive a downstream error")
		}
	})

	t.Run("immutable filename", func(t *testing.T) {
		after := base.Clone()
		after.Filename = "b.pdf"
		after.MarkTextReady("x")
		if err := CheckTransition(base, after); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("terminal is final", func(t *testing.T) {
		before := base.Clone()
		before.MarkError("boom")
		after := before.Clone()
		after.MarkTextReady("late")
		if err := CheckTransition(before, after); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestDocument_Touch(t *testing.T) {
	doc := NewDocument("doc-1", "a.pdf", "ref", ExtractionModePlainText)
	original := doc.UpdatedAt

	doc.Touch(original.Add(-time.Hour))
	if !doc.UpdatedAt.Equal(original) {
		t.Error("expected updated_at to never move backwards")
	}

	later := original.Add(time.Second)
	doc.Touch(later)
	if !doc.UpdatedAt.Equal(later.UTC()) {
		t.Errorf("expected updated_at %v, got %v", later, doc.UpdatedAt)
	}
}

func TestDocument_Clone(t *testing.T) {
	doc := NewDocument("doc-1", "a.pdf", "ref", ExtractionModePlainText)
	doc.MarkTextReady("original")

	clone := doc.Clone()
	*clone.ExtractedText = "changed"

	if *doc.ExtractedText != "original" {
		t.Error("expected clone to not share extracted text")
	}
	if (*Document)(nil).Clone() != nil {
		t.Error("expected nil clone of nil document")
	}
}

func TestDocument_InProgress(t *testing.T) {
	doc := NewDocument("doc-1", "a.pdf", "ref", ExtractionModePlainText)
	if !doc.InProgress() {
		t.Error("expected UPLOADED document to be in progress")
	}
	doc.MarkError("x")
	if doc.InProgress() {
		t.Error("expected ERROR document to not be in progress")
	}
}
