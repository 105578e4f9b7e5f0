package lifecycle

import (
	"context"
	"errors"
	"strings"

	"github.com/fieldserve/fieldserve/internal/domain"
	"github.com/fieldserve/fieldserve/internal/events"
	"github.com/fieldserve/fieldserve/internal/repository"
)

// Assign resolves the assignee through the staff directory, denormalizes the
// name onto the ticket and moves it to ASSIGNED, or PENDING_ACCEPTANCE when
// the assignee must explicitly accept.
func (e *Engine) Assign(ctx context.Context, actor domain.Actor, ticketID, assigneeID string, requireAcceptance bool) (*domain.Ticket, error) {
	if strings.TrimSpace(assigneeID) == "" {
		return nil, &domain.PreconditionFailedError{Missing: []string{"assignee_id"}}
	}
	assignee, err := e.staff.GetByID(ctx, actor.OrgID, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.PreconditionFailedError{Missing: []string{"assignee_id"}}
		}
		return nil, err
	}
	if !assignee.Active {
		return nil, &domain.ConflictError{Message: "assignee is inactive"}
	}

	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	target := domain.StatusAssigned
	if requireAcceptance {
		target = domain.StatusPendingAcceptance
	}
	now := e.clock.Now()
	updated, err := e.transitionTo(ctx, actor, ticket, target, "assigned to "+assignee.Name, func(t *domain.Ticket) error {
		t.AssignedToID = &assignee.ID
		t.AssignedToName = &assignee.Name
		if target == domain.StatusAssigned {
			freezeResponseSLA(t, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, actor, updated, events.EventTicketAssigned, events.TicketAssignedPayload{
		AssigneeID:   assignee.ID,
		AssigneeName: assignee.Name,
	})
	return updated, nil
}

// Accept confirms a pending assignment. Only the assignee may accept.
func (e *Engine) Accept(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.AssignedToID == nil || *ticket.AssignedToID != actor.ID {
		return nil, &domain.ConflictError{Message: "only the assigned technician may accept"}
	}
	now := e.clock.Now()
	return e.transitionTo(ctx, actor, ticket, domain.StatusAssigned, "accepted", func(t *domain.Ticket) error {
		freezeResponseSLA(t, now)
		return nil
	})
}

// Decline rejects a pending assignment with a reason and clears the assignee.
func (e *Engine) Decline(ctx context.Context, actor domain.Actor, ticketID, reason string) (*domain.Ticket, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &domain.PreconditionFailedError{Missing: []string{"reason"}}
	}
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return e.transitionTo(ctx, actor, ticket, domain.StatusNew, reason, func(t *domain.Ticket) error {
		t.AssignedToID = nil
		t.AssignedToName = nil
		return nil
	})
}

// Start begins on-site work, ASSIGNED -> IN_PROGRESS. Leaving PENDING_PARTS
// goes through AcknowledgePartsReceived instead so the pause clock resumes.
func (e *Engine) Start(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.StatusPendingParts {
		return nil, &domain.PreconditionFailedError{Missing: []string{"parts_received"}}
	}
	return e.transitionTo(ctx, actor, ticket, domain.StatusInProgress, "work started", nil)
}
