package lifecycle

import (
	"context"
	"strings"

	"github.com/fieldserve/fieldserve/internal/domain"
	"github.com/fieldserve/fieldserve/internal/events"
)

// DiagnosisInput describes the technician's findings.
type DiagnosisInput struct {
	Problem          string
	RootCause        string
	Observations     string
	TimeSpentMinutes int
}

// RecordDiagnosis stores the diagnosis while the ticket is IN_PROGRESS. The
// diagnosis is overwritable until a resolution path commits; each call adds
// its time-spent to the ticket's running total.
func (e *Engine) RecordDiagnosis(ctx context.Context, actor domain.Actor, ticketID string, input DiagnosisInput) (*domain.Ticket, error) {
	var missing []string
	if strings.TrimSpace(input.Problem) == "" {
		missing = append(missing, "problem")
	}
	if strings.TrimSpace(input.RootCause) == "" {
		missing = append(missing, "root_cause")
	}
	if len(missing) > 0 {
		return nil, &domain.PreconditionFailedError{Missing: missing}
	}
	if input.TimeSpentMinutes < 0 {
		return nil, &domain.PreconditionFailedError{Missing: []string{"time_spent_minutes"}}
	}

	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.StatusInProgress {
		return nil, &domain.InvalidTransitionError{From: ticket.Status, To: domain.StatusInProgress}
	}
	if ticket.ResolutionPath != nil {
		return nil, &domain.ConflictError{Message: "diagnosis is frozen once a resolution path is selected"}
	}

	now := e.clock.Now()
	updated, err := e.updateInPlace(ctx, ticket, func(t *domain.Ticket) error {
		t.Diagnosis = &domain.Diagnosis{
			Problem:          strings.TrimSpace(input.Problem),
			RootCause:        strings.TrimSpace(input.RootCause),
			Observations:     strings.TrimSpace(input.Observations),
			TimeSpentMinutes: input.TimeSpentMinutes,
			RecordedByID:     actor.ID,
			RecordedByName:   actor.Name,
			RecordedAt:       now,
		}
		t.TimeSpentMinutes += input.TimeSpentMinutes
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, actor, updated, events.EventDiagnosisAdded, nil)
	return updated, nil
}

// SelectPath commits the ticket to exactly one of the three resolution
// paths. Requires a recorded diagnosis; rejects re-selection.
func (e *Engine) SelectPath(ctx context.Context, actor domain.Actor, ticketID string, path domain.ResolutionPath, summary string) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.ResolutionPath != nil {
		return nil, &domain.ConflictError{Message: "resolution path already selected"}
	}
	if ticket.Status != domain.StatusInProgress {
		return nil, &domain.InvalidTransitionError{From: ticket.Status, To: targetForPath(path)}
	}
	if ticket.Diagnosis == nil {
		return nil, &domain.PreconditionFailedError{Missing: []string{"diagnosis"}}
	}

	now := e.clock.Now()
	var updated *domain.Ticket
	switch path {
	case domain.PathResolvedOnVisit:
		summary = strings.TrimSpace(summary)
		if summary == "" {
			return nil, &domain.PreconditionFailedError{Missing: []string{"resolution_summary"}}
		}
		updated, err = e.transitionTo(ctx, actor, ticket, domain.StatusCompleted, "resolved on visit", func(t *domain.Ticket) error {
			p := domain.PathResolvedOnVisit
			t.ResolutionPath = &p
			t.ResolutionSummary = &summary
			freezeResolutionSLA(t, now)
			return nil
		})
	case domain.PathPendingForPart:
		updated, err = e.transitionTo(ctx, actor, ticket, domain.StatusPendingParts, "waiting for parts", func(t *domain.Ticket) error {
			p := domain.PathPendingForPart
			t.ResolutionPath = &p
			pauseSLA(t, now)
			return nil
		})
	case domain.PathDeviceToBackoffice:
		updated, err = e.transitionTo(ctx, actor, ticket, domain.StatusDevicePickup, "device to back office", func(t *domain.Ticket) error {
			p := domain.PathDeviceToBackoffice
			t.ResolutionPath = &p
			return nil
		})
	default:
		return nil, &domain.PreconditionFailedError{Missing: []string{"path"}}
	}
	if err != nil {
		return nil, err
	}
	e.publish(ctx, actor, updated, events.EventPathSelected, events.PathSelectedPayload{Path: path})
	return updated, nil
}

// AcknowledgePartsReceived resumes work once the awaited parts arrive,
// PENDING_PARTS -> IN_PROGRESS. The pause window is folded into the total.
func (e *Engine) AcknowledgePartsReceived(ctx context.Context, actor domain.Actor, ticketID, notes string) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.StatusPendingParts {
		return nil, &domain.ConflictError{Message: "ticket is not waiting for parts"}
	}
	now := e.clock.Now()
	reason := "parts received"
	if strings.TrimSpace(notes) != "" {
		reason = "parts received: " + strings.TrimSpace(notes)
	}
	return e.transitionTo(ctx, actor, ticket, domain.StatusInProgress, reason, func(t *domain.Ticket) error {
		resumeSLA(t, now)
		return nil
	})
}

// CompleteRepair finishes on-site work once the awaited parts were fitted,
// IN_PROGRESS -> COMPLETED. Only valid on the pending_for_part path; the
// resolved_on_visit shortcut goes through SelectPath instead.
func (e *Engine) CompleteRepair(ctx context.Context, actor domain.Actor, ticketID, summary string) (*domain.Ticket, error) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, &domain.PreconditionFailedError{Missing: []string{"resolution_summary"}}
	}
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.ResolutionPath == nil || *ticket.ResolutionPath != domain.PathPendingForPart {
		return nil, &domain.ConflictError{Message: "ticket is not on the pending_for_part path"}
	}
	now := e.clock.Now()
	return e.transitionTo(ctx, actor, ticket, domain.StatusCompleted, "repair completed on site", func(t *domain.Ticket) error {
		t.ResolutionSummary = &summary
		freezeResolutionSLA(t, now)
		return nil
	})
}

func targetForPath(path domain.ResolutionPath) domain.TicketStatus {
	switch path {
	case domain.PathPendingForPart:
		return domain.StatusPendingParts
	case domain.PathDeviceToBackoffice:
		return domain.StatusDevicePickup
	default:
		return domain.StatusCompleted
	}
}
