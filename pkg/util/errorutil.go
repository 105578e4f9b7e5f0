package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fieldserve/fieldserve/internal/domain"
)

// DomainError standardizes application errors for the HTTP layer.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError maps lifecycle typed errors and generic errors to a
// DomainError with a stable code and HTTP status. PreconditionFailed carries
// the missing-field list so clients can prompt for exactly what is needed.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		return &DomainError{
			Code:       "NOT_FOUND",
			Message:    notFound.Error(),
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{"ticket_id": notFound.TicketID},
		}
	}
	var invalid *domain.InvalidTransitionError
	if errors.As(err, &invalid) {
		return &DomainError{
			Code:       "INVALID_TRANSITION",
			Message:    invalid.Error(),
			HTTPStatus: http.StatusUnprocessableEntity,
			Details:    map[string]any{"from": invalid.From, "to": invalid.To},
		}
	}
	var precondition *domain.PreconditionFailedError
	if errors.As(err, &precondition) {
		return &DomainError{
			Code:       "PRECONDITION_FAILED",
			Message:    precondition.Error(),
			HTTPStatus: http.StatusUnprocessableEntity,
			Details:    map[string]any{"missing": precondition.Missing},
		}
	}
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return &DomainError{
			Code:       "CONFLICT",
			Message:    conflict.Error(),
			HTTPStatus: http.StatusConflict,
		}
	}
	var immutable *domain.ImmutableError
	if errors.As(err, &immutable) {
		return &DomainError{
			Code:       "TICKET_IMMUTABLE",
			Message:    immutable.Error(),
			HTTPStatus: http.StatusConflict,
			Details:    map[string]any{"status": immutable.Status},
		}
	}

	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
