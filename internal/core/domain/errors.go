package domain

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrConflict indicates a compare-and-set lost: the stored status no longer
	// matches the expected pre-state
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition indicates a mutation that breaks the lifecycle state machine
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidFileType indicates the upload is not a PDF
	ErrInvalidFileType = errors.New("invalid file type")

	// ErrFileTooLarge indicates the upload exceeds the configured maximum size
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmptyFile indicates an upload with no content
	ErrEmptyFile = errors.New("empty file")

	// ErrInvalidExtractionMode indicates an unknown extraction mode
	ErrInvalidExtractionMode = errors.New("invalid extraction mode")

	// ErrQueueUnavailable indicates the work queue could not be reached
	ErrQueueUnavailable = errors.New("queue unavailable")

	// ErrBlobNotFound indicates the stored PDF bytes are gone
	ErrBlobNotFound = errors.New("blob not found")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")
)

// IsValidationError reports whether err rejects a submission at the boundary
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidFileType) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrInvalidExtractionMode)
}

// Stage names used in CapabilityError
const (
	StageExtraction    = "extraction"
	StageSummarization = "summarization"
)

// CapabilityError is a failure of a remote AI capability. Stage distinguishes
// an ExtractionError from a SummarizationError.
type CapabilityError struct {
	Stage     string
	Reason    string
	Transient bool
	Err       error
}

func (e *CapabilityError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed (%s): %s: %v", e.Stage, kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s failed (%s): %s", e.Stage, kind, e.Reason)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates an extraction capability error
func NewExtractionError(reason string, transient bool, err error) *CapabilityError {
	return &CapabilityError{Stage: StageExtraction, Reason: reason, Transient: transient, Err: err}
}

// NewSummarizationError creates a summarization capability error
func NewSummarizationError(reason string, transient bool, err error) *CapabilityError {
	return &CapabilityError{Stage: StageSummarization, Reason: reason, Transient: transient, Err: err}
}

// IsTransient reports whether a capability failure is worth redelivering.
// Deadline expiry is always transient; unclassified errors are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return ce.Transient
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// FailureReason gives the human-readable detail stored on an ERROR document
func FailureReason(err error) string {
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return ce.Stage + "_failed: " + ce.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}
