package ai

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/digest-core/internal/core/domain"
)

// httpStatusError is a provider response with a non-2xx status
type httpStatusError struct {
	Code    int
	Message string
}

func (e *httpStatusError) Error() string {
	if e.Message != "" {
		return http.StatusText(e.Code) + ": " + e.Message
	}
	return http.StatusText(e.Code)
}

// isTransientCode reports HTTP statuses worth retrying: rate limits and server errors
func isTransientCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusRequestTimeout ||
		code >= http.StatusInternalServerError
}

// isTransient classifies a provider error. Unknown errors are permanent.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return isTransientCode(statusErr.Code)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return isTransientCode(gerr.Code)
	}

	switch status.Code(err) {
	case codes.ResourceExhausted, codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		return true
	}
	return false
}

// extractionFailure wraps err as an extraction CapabilityError
func extractionFailure(reason string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return domain.NewExtractionError(reason, isTransient(err), err)
}

// summarizationFailure wraps err as a summarization CapabilityError
func summarizationFailure(reason string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return domain.NewSummarizationError(reason, isTransient(err), err)
}
