package lifecycle

import (
	"context"

	"github.com/fieldserve/fieldserve/internal/domain"
	"github.com/fieldserve/fieldserve/internal/events"
)

// RecordPickup logs taking custody of the customer's device and advances
// DEVICE_PICKUP -> DEVICE_UNDER_REPAIR.
func (e *Engine) RecordPickup(ctx context.Context, actor domain.Actor, ticketID, notes string) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.StatusDevicePickup {
		return nil, &domain.InvalidTransitionError{From: ticket.Status, To: domain.StatusDeviceUnderRepair}
	}
	now := e.clock.Now()
	updated, err := e.transitionTo(ctx, actor, ticket, domain.StatusDeviceUnderRepair, "device picked up", func(t *domain.Ticket) error {
		appendCustody(t, domain.CustodyPickup, actor, notes, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, actor, updated, events.EventCustodyRecorded, events.CustodyRecordedPayload{Action: domain.CustodyPickup})
	return updated, nil
}

// RecordTransfer logs a hand-over between staff while the device stays in
// custody. No status change.
func (e *Engine) RecordTransfer(ctx context.Context, actor domain.Actor, ticketID, notes string) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.DeviceInCustody {
		return nil, &domain.PreconditionFailedError{Missing: []string{"device_in_custody"}}
	}
	now := e.clock.Now()
	updated, err := e.updateInPlace(ctx, ticket, func(t *domain.Ticket) error {
		appendCustody(t, domain.CustodyTransfer, actor, notes, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, actor, updated, events.EventCustodyRecorded, events.CustodyRecordedPayload{Action: domain.CustodyTransfer})
	return updated, nil
}

// RecordDelivery logs returning the device to the customer and completes the
// ticket. Requires an active custody chain: delivery without a prior pickup
// is rejected.
func (e *Engine) RecordDelivery(ctx context.Context, actor domain.Actor, ticketID, notes string) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.StatusReadyForDelivery && ticket.Status != domain.StatusOutForDelivery {
		return nil, &domain.InvalidTransitionError{From: ticket.Status, To: domain.StatusCompleted}
	}
	if !ticket.DeviceInCustody {
		return nil, &domain.PreconditionFailedError{Missing: []string{"device_in_custody"}}
	}
	now := e.clock.Now()
	updated, err := e.transitionTo(ctx, actor, ticket, domain.StatusCompleted, "device delivered", func(t *domain.Ticket) error {
		appendCustody(t, domain.CustodyDelivery, actor, notes, now)
		freezeResolutionSLA(t, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, actor, updated, events.EventCustodyRecorded, events.CustodyRecordedPayload{Action: domain.CustodyDelivery})
	return updated, nil
}

// MarkOutForDelivery is the optional hop READY_FOR_DELIVERY -> OUT_FOR_DELIVERY.
func (e *Engine) MarkOutForDelivery(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return e.transitionTo(ctx, actor, ticket, domain.StatusOutForDelivery, "out for delivery", nil)
}
