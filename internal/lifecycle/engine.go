package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldserve/fieldserve/internal/clock"
	"github.com/fieldserve/fieldserve/internal/domain"
	"github.com/fieldserve/fieldserve/internal/events"
	"github.com/fieldserve/fieldserve/internal/repository"
)

// Engine is the transition guard: the only component permitted to mutate
// ticket status, status history and custody log. Every mutation is a
// read-validate-write against (id, expected status, version); a concurrent
// writer surfaces as domain.ConflictError and nothing is partially applied.
type Engine struct {
	tickets    repository.TicketRepository
	staff      repository.StaffRepository
	policies   repository.SLAPolicyRepository
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

// Dependencies bundles collaborators for the engine.
type Dependencies struct {
	TicketRepo repository.TicketRepository
	StaffRepo  repository.StaffRepository
	PolicyRepo repository.SLAPolicyRepository
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Logger     *zap.Logger
}

// NewEngine constructs the lifecycle engine.
func NewEngine(deps Dependencies) *Engine {
	c := deps.Clock
	if c == nil {
		c = clock.NewSystem()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		tickets:    deps.TicketRepo,
		staff:      deps.StaffRepo,
		policies:   deps.PolicyRepo,
		dispatcher: deps.Dispatcher,
		clock:      c,
		logger:     logger,
	}
}

// CreateInput describes ticket creation payload. Customer, device and
// location values are snapshots captured at creation and never re-joined.
type CreateInput struct {
	Title           string
	Description     string
	Priority        domain.TicketPriority
	CustomerName    string
	CustomerPhone   string
	DeviceModel     string
	DeviceSerial    string
	LocationAddress string
}

// ListFilter describes listing parameters exposed by the engine.
type ListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	AssigneeID  *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// CreateTicket creates a ticket in NEW with SLA due dates from the org's
// priority policy.
func (e *Engine) CreateTicket(ctx context.Context, actor domain.Actor, input CreateInput) (*domain.Ticket, error) {
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	policy, err := e.policies.GetByPriority(ctx, actor.OrgID, priority)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	responseDue, resolutionDue := ComputeDueDates(policy, now)

	ticket := &domain.Ticket{
		OrgID:           actor.OrgID,
		TicketNumber:    newTicketNumber(),
		Title:           strings.TrimSpace(input.Title),
		Description:     strings.TrimSpace(input.Description),
		Priority:        priority,
		Status:          domain.StatusNew,
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerPhone:   strings.TrimSpace(input.CustomerPhone),
		DeviceModel:     strings.TrimSpace(input.DeviceModel),
		DeviceSerial:    strings.TrimSpace(input.DeviceSerial),
		LocationAddress: strings.TrimSpace(input.LocationAddress),
		ResponseDueAt:   &responseDue,
		ResolutionDueAt: &resolutionDue,
		CustodyLog:      []domain.CustodyEntry{},
		StatusHistory:   []domain.StatusChange{},
	}

	if err := e.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	e.publish(ctx, actor, ticket, events.EventTicketCreated, events.TicketCreatedPayload{
		TicketNumber: ticket.TicketNumber,
		Priority:     ticket.Priority,
		Title:        ticket.Title,
	})
	return ticket, nil
}

// Get loads a ticket scoped to the actor's org.
func (e *Engine) Get(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	return e.load(ctx, actor, ticketID)
}

// List returns tickets in the actor's org matching the filter.
func (e *Engine) List(ctx context.Context, actor domain.Actor, filter ListFilter) ([]domain.Ticket, error) {
	return e.tickets.ListWithFilter(ctx, repository.TicketFilter{
		OrgID:       actor.OrgID,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		AssigneeID:  filter.AssigneeID,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
}

// Cancel moves any non-terminal ticket to CANCELLED. A reason is required.
func (e *Engine) Cancel(ctx context.Context, actor domain.Actor, ticketID, reason string) (*domain.Ticket, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &domain.PreconditionFailedError{Missing: []string{"cancellation_reason"}}
	}
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	updated, err := e.transitionTo(ctx, actor, ticket, domain.StatusCancelled, reason, func(t *domain.Ticket) error {
		t.CancellationReason = &reason
		// stop the pause clock so total minutes stay meaningful
		resumeSLA(t, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, actor, updated, events.EventTicketCancelled, nil)
	return updated, nil
}

// Close moves a COMPLETED ticket to its immutable terminal state. For the
// device_to_backoffice path the device must have been delivered back.
func (e *Engine) Close(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.ResolutionPath != nil && *ticket.ResolutionPath == domain.PathDeviceToBackoffice {
		var missing []string
		if !ticket.HasDelivery() {
			missing = append(missing, "delivery_record")
		}
		if ticket.DeviceInCustody {
			missing = append(missing, "device_returned")
		}
		if len(missing) > 0 {
			return nil, &domain.PreconditionFailedError{Missing: missing}
		}
	}
	now := e.clock.Now()
	updated, err := e.transitionTo(ctx, actor, ticket, domain.StatusClosed, "closed", func(t *domain.Ticket) error {
		t.ClosedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, actor, updated, events.EventTicketClosed, nil)
	return updated, nil
}

// SoftDelete flags the ticket deleted without touching its history.
func (e *Engine) SoftDelete(ctx context.Context, actor domain.Actor, ticketID string) error {
	err := e.tickets.SoftDelete(ctx, actor.OrgID, ticketID, e.clock.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.NotFoundError{TicketID: ticketID}
	}
	return err
}

// Transition is the generic guarded entry point: it routes a target status
// plus its typed payload to the matching operation.
func (e *Engine) Transition(ctx context.Context, actor domain.Actor, ticketID string, target domain.TicketStatus, payload TransitionPayload) (*domain.Ticket, error) {
	if !KnownStatus(target) {
		ticket, err := e.load(ctx, actor, ticketID)
		if err != nil {
			return nil, err
		}
		return nil, &domain.InvalidTransitionError{From: ticket.Status, To: target}
	}

	switch target {
	case domain.StatusAssigned:
		switch p := payload.(type) {
		case AssignPayload:
			return e.Assign(ctx, actor, ticketID, p.AssigneeID, false)
		case AcceptPayload:
			return e.Accept(ctx, actor, ticketID)
		}
		return nil, &domain.PreconditionFailedError{Missing: []string{"assignee_id"}}
	case domain.StatusPendingAcceptance:
		p, ok := payload.(AssignPayload)
		if !ok {
			return nil, &domain.PreconditionFailedError{Missing: []string{"assignee_id"}}
		}
		return e.Assign(ctx, actor, ticketID, p.AssigneeID, true)
	case domain.StatusNew:
		p, ok := payload.(DeclinePayload)
		if !ok {
			return nil, &domain.PreconditionFailedError{Missing: []string{"reason"}}
		}
		return e.Decline(ctx, actor, ticketID, p.Reason)
	case domain.StatusInProgress:
		if p, ok := payload.(PartsReceivedPayload); ok {
			return e.AcknowledgePartsReceived(ctx, actor, ticketID, p.Notes)
		}
		return e.Start(ctx, actor, ticketID)
	case domain.StatusCompleted:
		switch p := payload.(type) {
		case ResolveOnVisitPayload:
			ticket, err := e.load(ctx, actor, ticketID)
			if err != nil {
				return nil, err
			}
			if ticket.ResolutionPath != nil && *ticket.ResolutionPath == domain.PathPendingForPart {
				return e.CompleteRepair(ctx, actor, ticketID, p.Summary)
			}
			return e.SelectPath(ctx, actor, ticketID, domain.PathResolvedOnVisit, p.Summary)
		case DeliveryPayload:
			return e.RecordDelivery(ctx, actor, ticketID, p.Notes)
		}
		return nil, &domain.PreconditionFailedError{Missing: []string{"resolution_summary"}}
	case domain.StatusPendingParts:
		return e.SelectPath(ctx, actor, ticketID, domain.PathPendingForPart, "")
	case domain.StatusDevicePickup:
		return e.SelectPath(ctx, actor, ticketID, domain.PathDeviceToBackoffice, "")
	case domain.StatusDeviceUnderRepair:
		p, _ := payload.(PickupPayload)
		return e.RecordPickup(ctx, actor, ticketID, p.Notes)
	case domain.StatusReadyForDelivery:
		return e.MarkReadyForDelivery(ctx, actor, ticketID)
	case domain.StatusOutForDelivery:
		return e.MarkOutForDelivery(ctx, actor, ticketID)
	case domain.StatusCancelled:
		p, ok := payload.(CancelPayload)
		if !ok {
			return nil, &domain.PreconditionFailedError{Missing: []string{"cancellation_reason"}}
		}
		return e.Cancel(ctx, actor, ticketID, p.Reason)
	case domain.StatusClosed:
		return e.Close(ctx, actor, ticketID)
	}
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return nil, &domain.InvalidTransitionError{From: ticket.Status, To: target}
}

// load fetches the ticket scoped to the actor's org, mapping repository
// misses to the typed not-found error.
func (e *Engine) load(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := e.tickets.GetByID(ctx, actor.OrgID, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{TicketID: ticketID}
		}
		return nil, err
	}
	return ticket, nil
}

// transitionTo validates the hop against the allowed-transition table,
// applies side-effect mutations, appends the audit entry and commits with a
// conditional write. Either the whole transition persists or none of it does.
func (e *Engine) transitionTo(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, target domain.TicketStatus, reason string, apply func(*domain.Ticket) error) (*domain.Ticket, error) {
	if ticket.Status.IsTerminal() {
		return nil, &domain.ImmutableError{Status: ticket.Status}
	}
	if !CanTransition(ticket.Status, target) {
		return nil, &domain.InvalidTransitionError{From: ticket.Status, To: target}
	}

	from := ticket.Status
	expectedVersion := ticket.Version
	if apply != nil {
		if err := apply(ticket); err != nil {
			return nil, err
		}
	}

	now := e.clock.Now()
	ticket.Status = target
	appendStatusChange(ticket, from, target, actor, reason, now)
	ticket.UpdatedAt = now

	if err := e.commit(ctx, ticket, from, expectedVersion); err != nil {
		return nil, err
	}

	e.publish(ctx, actor, ticket, events.EventStatusChanged, events.StatusChangedPayload{
		OldStatus: from,
		NewStatus: target,
		Reason:    reason,
	})
	return ticket, nil
}

// updateInPlace commits a mutation that does not change status (diagnosis,
// warranty decision, repair records, custody transfer). The same conditional
// write discipline serializes concurrent appends.
func (e *Engine) updateInPlace(ctx context.Context, ticket *domain.Ticket, apply func(*domain.Ticket) error) (*domain.Ticket, error) {
	if ticket.Status.IsTerminal() {
		return nil, &domain.ImmutableError{Status: ticket.Status}
	}
	expectedStatus := ticket.Status
	expectedVersion := ticket.Version
	if err := apply(ticket); err != nil {
		return nil, err
	}
	ticket.UpdatedAt = e.clock.Now()
	if err := e.commit(ctx, ticket, expectedStatus, expectedVersion); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (e *Engine) commit(ctx context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus, expectedVersion int64) error {
	err := e.tickets.UpdateConditional(ctx, ticket, expectedStatus, expectedVersion)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrVersionConflict) {
		e.logger.Warn("concurrent ticket write detected",
			zap.String("ticket_id", ticket.ID),
			zap.String("expected_status", string(expectedStatus)))
		return &domain.ConflictError{Message: "ticket was modified concurrently; reload and retry"}
	}
	return err
}

func (e *Engine) publish(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, eventType events.EventType, payload interface{}) {
	if e.dispatcher == nil {
		return
	}
	_ = e.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		OrgID:     ticket.OrgID,
		TicketID:  ticket.ID,
		Actor:     events.Actor{ID: actor.ID, Name: actor.Name, Role: actor.Role},
		Timestamp: e.clock.Now(),
		Payload:   payload,
	})
}

func newTicketNumber() string {
	return "FS-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
