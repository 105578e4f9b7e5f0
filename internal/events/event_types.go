package events

import (
	"time"

	"github.com/fieldserve/fieldserve/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketAssigned  EventType = "ticket_assigned"
	EventStatusChanged   EventType = "ticket_status_changed"
	EventDiagnosisAdded  EventType = "ticket_diagnosis_recorded"
	EventPathSelected    EventType = "ticket_path_selected"
	EventCustodyRecorded EventType = "ticket_custody_recorded"
	EventWarrantyDecided EventType = "ticket_warranty_decided"
	EventTicketCancelled EventType = "ticket_cancelled"
	EventTicketClosed    EventType = "ticket_closed"
)

// Actor records attribution on an event.
type Actor struct {
	ID   string           `json:"id"`
	Name string           `json:"name"`
	Role domain.StaffRole `json:"role"`
}

// Event is a fire-and-forget notification emitted by the lifecycle engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	OrgID     string      `json:"org_id"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Reason    string              `json:"reason,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Priority     domain.TicketPriority `json:"priority"`
	Title        string                `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID   string `json:"assignee_id"`
	AssigneeName string `json:"assignee_name"`
}

// PathSelectedPayload payload.
type PathSelectedPayload struct {
	Path domain.ResolutionPath `json:"path"`
}

// CustodyRecordedPayload payload.
type CustodyRecordedPayload struct {
	Action domain.CustodyAction `json:"action"`
}

// WarrantyDecidedPayload payload.
type WarrantyDecidedPayload struct {
	WarrantyType domain.WarrantyType `json:"warranty_type"`
}
