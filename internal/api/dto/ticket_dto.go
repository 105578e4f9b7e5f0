package dto

import (
	"time"

	"github.com/fieldserve/fieldserve/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Priority        domain.TicketPriority `json:"priority"`
	CustomerName    string                `json:"customer_name"`
	CustomerPhone   string                `json:"customer_phone"`
	DeviceModel     string                `json:"device_model"`
	DeviceSerial    string                `json:"device_serial"`
	LocationAddress string                `json:"location_address"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeID        string `json:"assignee_id"`
	RequireAcceptance bool   `json:"require_acceptance"`
}

// DeclineRequest payload.
type DeclineRequest struct {
	Reason string `json:"reason"`
}

// DiagnosisRequest payload.
type DiagnosisRequest struct {
	Problem          string `json:"problem"`
	RootCause        string `json:"root_cause"`
	Observations     string `json:"observations"`
	TimeSpentMinutes int    `json:"time_spent_minutes"`
}

// SelectPathRequest payload.
type SelectPathRequest struct {
	Path              domain.ResolutionPath `json:"path"`
	ResolutionSummary string                `json:"resolution_summary"`
}

// NotesRequest carries optional free-text notes for custody operations.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// WarrantyRequest payload.
type WarrantyRequest struct {
	WarrantyType domain.WarrantyType `json:"warranty_type"`
}

// AMCRepairRequest payload.
type AMCRepairRequest struct {
	VendorName string `json:"vendor_name"`
	Notes      string `json:"notes"`
}

// OEMRepairRequest payload.
type OEMRepairRequest struct {
	RMANumber string `json:"rma_number"`
	Notes     string `json:"notes"`
}

// CompleteRepairRequest payload.
type CompleteRepairRequest struct {
	ResolutionSummary string `json:"resolution_summary"`
}

// CancelRequest payload.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// TransitionRequest is the generic transition payload; which fields are
// required depends on the target status.
type TransitionRequest struct {
	TargetStatus      domain.TicketStatus `json:"target_status"`
	AssigneeID        string              `json:"assignee_id,omitempty"`
	Reason            string              `json:"reason,omitempty"`
	ResolutionSummary string              `json:"resolution_summary,omitempty"`
	Notes             string              `json:"notes,omitempty"`
	PartsReceived     bool                `json:"parts_received,omitempty"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             string                 `json:"id"`
	TicketNumber   string                 `json:"ticket_number"`
	Title          string                 `json:"title"`
	Status         domain.TicketStatus    `json:"status"`
	Priority       domain.TicketPriority  `json:"priority"`
	CustomerName   string                 `json:"customer_name"`
	AssignedToName *string                `json:"assigned_to_name,omitempty"`
	ResolutionPath *domain.ResolutionPath `json:"resolution_path,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// TicketDetail provides the full aggregate view.
type TicketDetail struct {
	ID              string                `json:"id"`
	TicketNumber    string                `json:"ticket_number"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	CustomerName    string                `json:"customer_name"`
	CustomerPhone   string                `json:"customer_phone"`
	DeviceModel     string                `json:"device_model"`
	DeviceSerial    string                `json:"device_serial"`
	LocationAddress string                `json:"location_address"`

	AssignedToID   *string `json:"assigned_to_id,omitempty"`
	AssignedToName *string `json:"assigned_to_name,omitempty"`

	Diagnosis         *domain.Diagnosis      `json:"diagnosis,omitempty"`
	TimeSpentMinutes  int                    `json:"time_spent_minutes"`
	ResolutionPath    *domain.ResolutionPath `json:"resolution_path,omitempty"`
	ResolutionSummary *string                `json:"resolution_summary,omitempty"`

	WarrantyType *domain.WarrantyType `json:"warranty_type,omitempty"`
	AMCRepair    *domain.AMCRepair    `json:"amc_repair,omitempty"`
	OEMRepair    *domain.OEMRepair    `json:"oem_repair,omitempty"`

	DeviceInCustody bool                  `json:"device_in_custody"`
	CustodyLog      []domain.CustodyEntry `json:"custody_log"`
	StatusHistory   []domain.StatusChange `json:"status_history"`

	SLAPaused             bool       `json:"sla_paused"`
	SLAPausedAt           *time.Time `json:"sla_paused_at,omitempty"`
	TotalSLAPausedMinutes int        `json:"total_sla_paused_minutes"`
	ResponseDueAt         *time.Time `json:"response_due_at,omitempty"`
	ResolutionDueAt       *time.Time `json:"resolution_due_at,omitempty"`
	FirstResponseAt       *time.Time `json:"first_response_at,omitempty"`
	ResolvedAt            *time.Time `json:"resolved_at,omitempty"`
	SLAResponseMet        *bool      `json:"sla_response_met,omitempty"`
	SLAResolutionMet      *bool      `json:"sla_resolution_met,omitempty"`

	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
}

// FromTicket builds a summary view.
func FromTicket(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:             t.ID,
		TicketNumber:   t.TicketNumber,
		Title:          t.Title,
		Status:         t.Status,
		Priority:       t.Priority,
		CustomerName:   t.CustomerName,
		AssignedToName: t.AssignedToName,
		ResolutionPath: t.ResolutionPath,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// DetailFromTicket builds the full view.
func DetailFromTicket(t *domain.Ticket) TicketDetail {
	return TicketDetail{
		ID:                    t.ID,
		TicketNumber:          t.TicketNumber,
		Title:                 t.Title,
		Description:           t.Description,
		Status:                t.Status,
		Priority:              t.Priority,
		CustomerName:          t.CustomerName,
		CustomerPhone:         t.CustomerPhone,
		DeviceModel:           t.DeviceModel,
		DeviceSerial:          t.DeviceSerial,
		LocationAddress:       t.LocationAddress,
		AssignedToID:          t.AssignedToID,
		AssignedToName:        t.AssignedToName,
		Diagnosis:             t.Diagnosis,
		TimeSpentMinutes:      t.TimeSpentMinutes,
		ResolutionPath:        t.ResolutionPath,
		ResolutionSummary:     t.ResolutionSummary,
		WarrantyType:          t.WarrantyType,
		AMCRepair:             t.AMCRepair,
		OEMRepair:             t.OEMRepair,
		DeviceInCustody:       t.DeviceInCustody,
		CustodyLog:            t.CustodyLog,
		StatusHistory:         t.StatusHistory,
		SLAPaused:             t.SLAPaused,
		SLAPausedAt:           t.SLAPausedAt,
		TotalSLAPausedMinutes: t.TotalSLAPausedMinutes,
		ResponseDueAt:         t.ResponseDueAt,
		ResolutionDueAt:       t.ResolutionDueAt,
		FirstResponseAt:       t.FirstResponseAt,
		ResolvedAt:            t.ResolvedAt,
		SLAResponseMet:        t.SLAResponseMet,
		SLAResolutionMet:      t.SLAResolutionMet,
		CancellationReason:    t.CancellationReason,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
		ClosedAt:              t.ClosedAt,
	}
}
