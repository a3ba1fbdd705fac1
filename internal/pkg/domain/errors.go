package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuelReschke/TrafficWatch/app/repository"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/retry"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/upload"
)

var (
	ErrNotAuthenticated   = errors.New("not signed in")
	ErrForbidden          = errors.New("admin access required")
	ErrRestrictedCategory = errors.New("category is reserved for officials")
	ErrReasonRequired     = errors.New("rejection reason required")
	ErrExpiryRequired     = errors.New("expiry date required")
	ErrExpiryInPast       = errors.New("expiry date must be in the future")
	ErrNotFound           = errors.New("not found")
	// ErrUnavailable marks failures of the database or network; they are retried.
	ErrUnavailable = errors.New("service unavailable")
)

// ValidationError lists invalid form fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	for _, field := range []string{"title", "description", "location", "category", "offender_plate", "priority", "status", "document_type", "file"} {
		if msg, ok := e.Fields[field]; ok {
			return msg
		}
	}
	for _, msg := range e.Fields {
		return msg
	}
	return "invalid input"
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// remote classifies an error from a repository call.
func remote(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

// Retryable reports whether err is a transient failure worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, platform.ErrUnavailable) ||
		errors.Is(err, platform.ErrStorage) ||
		errors.Is(err, retry.ErrAttemptTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

// UserMessage turns a domain error into text for the user.
func UserMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrNotAuthenticated):
		return "Please sign in to continue."
	case errors.Is(err, ErrForbidden):
		return "Only administrators can perform this action."
	case errors.Is(err, ErrRestrictedCategory):
		return "This violation category can only be reported by traffic officials."
	case errors.Is(err, ErrReasonRequired):
		return "Please provide a reason for rejection"
	case errors.Is(err, ErrExpiryRequired):
		return "Please select the document's expiry date"
	case errors.Is(err, ErrExpiryInPast):
		return "Expiry date must be in the future"
	case errors.Is(err, ErrNotFound):
		return "The requested record could not be found."
	case uploadError(err) != nil:
		return uploadError(err).Error()
	case errors.Is(err, platform.ErrPermissionDenied):
		return "Permission denied. Please sign in again and retry."
	case errors.Is(err, platform.ErrStorage):
		return "The file could not be stored. Please try again."
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, retry.ErrAttemptTimeout):
		return "The request timed out. Please check your connection and try again."
	default:
		return "Something went wrong. Please check your connection and try again."
	}
}

func uploadError(err error) error {
	for _, target := range []error{upload.ErrDocumentType, upload.ErrDocumentTooLarge, upload.ErrEvidenceType, upload.ErrEvidenceTooLarge, upload.ErrScriptable} {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}
