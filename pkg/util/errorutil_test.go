package util

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldserve/fieldserve/internal/domain"
)

func TestToDomainErrorMapsTypedErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"not found", &domain.NotFoundError{TicketID: "tkt-1"}, "NOT_FOUND", http.StatusNotFound},
		{"invalid transition", &domain.InvalidTransitionError{From: domain.StatusNew, To: domain.StatusClosed}, "INVALID_TRANSITION", http.StatusUnprocessableEntity},
		{"precondition", &domain.PreconditionFailedError{Missing: []string{"diagnosis"}}, "PRECONDITION_FAILED", http.StatusUnprocessableEntity},
		{"conflict", &domain.ConflictError{Message: "concurrent write"}, "CONFLICT", http.StatusConflict},
		{"immutable", &domain.ImmutableError{Status: domain.StatusClosed}, "TICKET_IMMUTABLE", http.StatusConflict},
		{"unknown", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := ToDomainError(tc.err)
			require.Equal(t, tc.wantCode, mapped.Code)
			require.Equal(t, tc.wantStatus, mapped.HTTPStatus)
		})
	}
}

func TestToDomainErrorCarriesMissingFields(t *testing.T) {
	mapped := ToDomainError(&domain.PreconditionFailedError{Missing: []string{"diagnosis", "warranty_decision"}})
	require.Equal(t, []string{"diagnosis", "warranty_decision"}, mapped.Details["missing"])
}

func TestToDomainErrorPassesThroughDomainError(t *testing.T) {
	original := NewUnauthorized("missing token")
	mapped := ToDomainError(original)
	require.Equal(t, "UNAUTHORIZED", mapped.Code)
	require.Equal(t, http.StatusUnauthorized, mapped.HTTPStatus)
}

func TestToDomainErrorNil(t *testing.T) {
	require.Nil(t, ToDomainError(nil))
}
