package lifecycle

import (
	"context"
	"strings"

	"github.com/fieldserve/fieldserve/internal/domain"
	"github.com/fieldserve/fieldserve/internal/events"
)

// DecideWarranty classifies the repair once. Re-submitting the same value is
// a no-op; a different value is rejected.
func (e *Engine) DecideWarranty(ctx context.Context, actor domain.Actor, ticketID string, warrantyType domain.WarrantyType) (*domain.Ticket, error) {
	switch warrantyType {
	case domain.WarrantyAMC, domain.WarrantyOEM, domain.WarrantyNone:
	default:
		return nil, &domain.PreconditionFailedError{Missing: []string{"warranty_type"}}
	}

	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.StatusDeviceUnderRepair {
		return nil, &domain.InvalidTransitionError{From: ticket.Status, To: domain.StatusDeviceUnderRepair}
	}
	if ticket.WarrantyType != nil {
		if *ticket.WarrantyType == warrantyType {
			return ticket, nil
		}
		return nil, &domain.ConflictError{Message: "warranty decision already made"}
	}

	updated, err := e.updateInPlace(ctx, ticket, func(t *domain.Ticket) error {
		t.WarrantyType = &warrantyType
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, actor, updated, events.EventWarrantyDecided, events.WarrantyDecidedPayload{WarrantyType: warrantyType})
	return updated, nil
}

// AMCRepairInput describes the AMC vendor engagement.
type AMCRepairInput struct {
	VendorName string
	Notes      string
}

// RecordAMCRepair opens the AMC sub-workflow. Gated on an under_amc decision.
func (e *Engine) RecordAMCRepair(ctx context.Context, actor domain.Actor, ticketID string, input AMCRepairInput) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireWarranty(ticket, domain.WarrantyAMC); err != nil {
		return nil, err
	}
	if ticket.AMCRepair != nil {
		return nil, &domain.ConflictError{Message: "AMC repair already recorded"}
	}
	now := e.clock.Now()
	return e.updateInPlace(ctx, ticket, func(t *domain.Ticket) error {
		t.AMCRepair = &domain.AMCRepair{
			Status:     domain.RepairUnderRepair,
			VendorName: strings.TrimSpace(input.VendorName),
			Notes:      strings.TrimSpace(input.Notes),
			StartedAt:  now,
		}
		return nil
	})
}

// CompleteAMCRepair marks the AMC sub-workflow completed.
func (e *Engine) CompleteAMCRepair(ctx context.Context, actor domain.Actor, ticketID, notes string) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireWarranty(ticket, domain.WarrantyAMC); err != nil {
		return nil, err
	}
	if ticket.AMCRepair == nil {
		return nil, &domain.PreconditionFailedError{Missing: []string{"amc_repair"}}
	}
	if ticket.AMCRepair.Status == domain.RepairCompleted {
		return ticket, nil
	}
	now := e.clock.Now()
	return e.updateInPlace(ctx, ticket, func(t *domain.Ticket) error {
		t.AMCRepair.Status = domain.RepairCompleted
		t.AMCRepair.CompletedAt = &now
		if notes = strings.TrimSpace(notes); notes != "" {
			t.AMCRepair.Notes = notes
		}
		return nil
	})
}

// OEMRepairInput describes the OEM warranty shipment.
type OEMRepairInput struct {
	RMANumber string
	Notes     string
}

// RecordOEMRepair opens the OEM sub-workflow: the device is sent to the
// manufacturer. Gated on an under_oem decision.
func (e *Engine) RecordOEMRepair(ctx context.Context, actor domain.Actor, ticketID string, input OEMRepairInput) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireWarranty(ticket, domain.WarrantyOEM); err != nil {
		return nil, err
	}
	if ticket.OEMRepair != nil {
		return nil, &domain.ConflictError{Message: "OEM repair already recorded"}
	}
	now := e.clock.Now()
	return e.updateInPlace(ctx, ticket, func(t *domain.Ticket) error {
		t.OEMRepair = &domain.OEMRepair{
			Status:    domain.RepairSentToOEM,
			RMANumber: strings.TrimSpace(input.RMANumber),
			Notes:     strings.TrimSpace(input.Notes),
			SentAt:    now,
		}
		return nil
	})
}

// MarkOEMReceived stamps the device's return from the manufacturer, which is
// the precondition for completing the OEM sub-workflow.
func (e *Engine) MarkOEMReceived(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireWarranty(ticket, domain.WarrantyOEM); err != nil {
		return nil, err
	}
	if ticket.OEMRepair == nil {
		return nil, &domain.PreconditionFailedError{Missing: []string{"oem_repair"}}
	}
	if ticket.OEMRepair.ReceivedBackAt != nil {
		return ticket, nil
	}
	now := e.clock.Now()
	return e.updateInPlace(ctx, ticket, func(t *domain.Ticket) error {
		t.OEMRepair.ReceivedBackAt = &now
		return nil
	})
}

// CompleteOEMRepair marks the OEM sub-workflow completed. The device must
// have been received back first.
func (e *Engine) CompleteOEMRepair(ctx context.Context, actor domain.Actor, ticketID, notes string) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireWarranty(ticket, domain.WarrantyOEM); err != nil {
		return nil, err
	}
	if ticket.OEMRepair == nil {
		return nil, &domain.PreconditionFailedError{Missing: []string{"oem_repair"}}
	}
	if ticket.OEMRepair.ReceivedBackAt == nil {
		return nil, &domain.PreconditionFailedError{Missing: []string{"received_back_date"}}
	}
	if ticket.OEMRepair.Status == domain.RepairCompleted {
		return ticket, nil
	}
	now := e.clock.Now()
	return e.updateInPlace(ctx, ticket, func(t *domain.Ticket) error {
		t.OEMRepair.Status = domain.RepairCompleted
		t.OEMRepair.CompletedAt = &now
		if notes = strings.TrimSpace(notes); notes != "" {
			t.OEMRepair.Notes = notes
		}
		return nil
	})
}

// MarkReadyForDelivery advances DEVICE_UNDER_REPAIR -> READY_FOR_DELIVERY.
// Requires the warranty decision and, for AMC/OEM, a completed sub-workflow.
// An out_of_warranty decision needs no sub-workflow record.
func (e *Engine) MarkReadyForDelivery(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := e.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.StatusDeviceUnderRepair {
		return nil, &domain.InvalidTransitionError{From: ticket.Status, To: domain.StatusReadyForDelivery}
	}
	if ticket.WarrantyType == nil {
		return nil, &domain.PreconditionFailedError{Missing: []string{"warranty_decision"}}
	}
	switch *ticket.WarrantyType {
	case domain.WarrantyAMC:
		if ticket.AMCRepair == nil || ticket.AMCRepair.Status != domain.RepairCompleted {
			return nil, &domain.PreconditionFailedError{Missing: []string{"amc_repair_completed"}}
		}
	case domain.WarrantyOEM:
		if ticket.OEMRepair == nil || ticket.OEMRepair.Status != domain.RepairCompleted {
			return nil, &domain.PreconditionFailedError{Missing: []string{"oem_repair_completed"}}
		}
	}
	return e.transitionTo(ctx, actor, ticket, domain.StatusReadyForDelivery, "repair completed", nil)
}

func requireWarranty(ticket *domain.Ticket, want domain.WarrantyType) error {
	if ticket.Status != domain.StatusDeviceUnderRepair {
		return &domain.InvalidTransitionError{From: ticket.Status, To: domain.StatusDeviceUnderRepair}
	}
	if ticket.WarrantyType == nil {
		return &domain.PreconditionFailedError{Missing: []string{"warranty_decision"}}
	}
	if *ticket.WarrantyType != want {
		return &domain.ConflictError{Message: "repair workflow does not match warranty decision"}
	}
	return nil
}
