package domain

import (
	"fmt"
	"strings"
)

// NotFoundError reports a ticket absent from the caller's org or soft-deleted.
type NotFoundError struct {
	TicketID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ticket %s not found", e.TicketID)
}

// InvalidTransitionError reports a target status unreachable from the current one.
type InvalidTransitionError struct {
	From TicketStatus
	To   TicketStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s is not allowed", e.From, e.To)
}

// PreconditionFailedError carries the fields a transition still requires.
type PreconditionFailedError struct {
	Missing []string
}

func (e *PreconditionFailedError) Error() string {
	return fmt.Sprintf("precondition failed: missing %s", strings.Join(e.Missing, ", "))
}

// ConflictError reports a concurrent-write race or an idempotency violation.
// Callers may retry after reloading the ticket.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// ImmutableError reports a mutation attempted on a terminal ticket.
type ImmutableError struct {
	Status TicketStatus
}

func (e *ImmutableError) Error() string {
	return fmt.Sprintf("ticket is %s and can no longer be modified", e.Status)
}
