package domain

import "time"

// TicketStatus enumerates lifecycle states for service tickets.
type TicketStatus string

const (
	StatusNew               TicketStatus = "NEW"
	StatusPendingAcceptance TicketStatus = "PENDING_ACCEPTANCE"
	StatusAssigned          TicketStatus = "ASSIGNED"
	StatusInProgress        TicketStatus = "IN_PROGRESS"
	StatusPendingParts      TicketStatus = "PENDING_PARTS"
	StatusDevicePickup      TicketStatus = "DEVICE_PICKUP"
	StatusDeviceUnderRepair TicketStatus = "DEVICE_UNDER_REPAIR"
	StatusReadyForDelivery  TicketStatus = "READY_FOR_DELIVERY"
	StatusOutForDelivery    TicketStatus = "OUT_FOR_DELIVERY"
	StatusCompleted         TicketStatus = "COMPLETED"
	StatusClosed            TicketStatus = "CLOSED"
	StatusCancelled         TicketStatus = "CANCELLED"
)

// IsTerminal reports whether a status permits no further transitions.
func (s TicketStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "LOW"
	PriorityMedium TicketPriority = "MEDIUM"
	PriorityHigh   TicketPriority = "HIGH"
	PriorityUrgent TicketPriority = "URGENT"
)

// ResolutionPath is the mandatory post-diagnosis branch. Set at most once.
type ResolutionPath string

const (
	PathResolvedOnVisit    ResolutionPath = "resolved_on_visit"
	PathPendingForPart     ResolutionPath = "pending_for_part"
	PathDeviceToBackoffice ResolutionPath = "device_to_backoffice"
)

// WarrantyType classifies a back-office repair. Set once, immutable after.
type WarrantyType string

const (
	WarrantyAMC  WarrantyType = "under_amc"
	WarrantyOEM  WarrantyType = "under_oem"
	WarrantyNone WarrantyType = "out_of_warranty"
)

// RepairStatus tracks a nested repair sub-workflow.
type RepairStatus string

const (
	RepairPending     RepairStatus = "pending"
	RepairUnderRepair RepairStatus = "under_repair"
	RepairSentToOEM   RepairStatus = "sent_to_oem"
	RepairCompleted   RepairStatus = "completed"
)

// CustodyAction enumerates custody log entry kinds.
type CustodyAction string

const (
	CustodyPickup   CustodyAction = "pickup"
	CustodyTransfer CustodyAction = "transfer"
	CustodyDelivery CustodyAction = "delivery"
)

// Diagnosis records the technician's findings while on site.
type Diagnosis struct {
	Problem          string    `json:"problem"`
	RootCause        string    `json:"root_cause"`
	Observations     string    `json:"observations,omitempty"`
	TimeSpentMinutes int       `json:"time_spent_minutes"`
	RecordedByID     string    `json:"recorded_by_id"`
	RecordedByName   string    `json:"recorded_by_name"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// StatusChange is an immutable audit trail entry for one status hop.
type StatusChange struct {
	FromStatus TicketStatus `json:"from_status"`
	ToStatus   TicketStatus `json:"to_status"`
	ActorID    string       `json:"actor_id"`
	ActorName  string       `json:"actor_name"`
	Reason     string       `json:"reason,omitempty"`
	ChangedAt  time.Time    `json:"changed_at"`
}

// CustodyEntry is an immutable custody log entry. Entries are never edited.
type CustodyEntry struct {
	Action    CustodyAction `json:"action"`
	ActorID   string        `json:"actor_id"`
	ActorName string        `json:"actor_name"`
	Notes     string        `json:"notes,omitempty"`
	At        time.Time     `json:"at"`
}

// AMCRepair tracks an AMC-covered repair nested in DEVICE_UNDER_REPAIR.
type AMCRepair struct {
	Status      RepairStatus `json:"status"`
	VendorName  string       `json:"vendor_name,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// OEMRepair tracks an OEM warranty repair. Completion requires the device
// to have been received back from the manufacturer.
type OEMRepair struct {
	Status         RepairStatus `json:"status"`
	RMANumber      string       `json:"rma_number,omitempty"`
	SentAt         time.Time    `json:"sent_at"`
	ReceivedBackAt *time.Time   `json:"received_back_at,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
}

// Ticket is the aggregate for one service request through its lifecycle.
// Status, history and custody log are mutated exclusively by the lifecycle
// engine; a single conditional write commits the aggregate atomically.
type Ticket struct {
	ID           string
	OrgID        string
	TicketNumber string

	Title       string
	Description string
	Priority    TicketPriority
	Status      TicketStatus

	// Customer/device/location snapshots, denormalized at creation.
	CustomerName    string
	CustomerPhone   string
	DeviceModel     string
	DeviceSerial    string
	LocationAddress string

	AssignedToID   *string
	AssignedToName *string

	Diagnosis         *Diagnosis
	TimeSpentMinutes  int
	ResolutionPath    *ResolutionPath
	ResolutionSummary *string

	WarrantyType *WarrantyType
	AMCRepair    *AMCRepair
	OEMRepair    *OEMRepair

	DeviceInCustody bool
	CustodyLog      []CustodyEntry
	StatusHistory   []StatusChange

	SLAPaused             bool
	SLAPausedAt           *time.Time
	TotalSLAPausedMinutes int
	ResponseDueAt         *time.Time
	ResolutionDueAt       *time.Time
	FirstResponseAt       *time.Time
	ResolvedAt            *time.Time
	SLAResponseMet        *bool
	SLAResolutionMet      *bool

	CancellationReason *string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
	DeletedAt *time.Time
}

// LastCustodyAction returns the most recent custody log action, if any.
func (t *Ticket) LastCustodyAction() (CustodyAction, bool) {
	if len(t.CustodyLog) == 0 {
		return "", false
	}
	return t.CustodyLog[len(t.CustodyLog)-1].Action, true
}

// HasDelivery reports whether a delivery custody entry exists.
func (t *Ticket) HasDelivery() bool {
	for _, entry := range t.CustodyLog {
		if entry.Action == CustodyDelivery {
			return true
		}
	}
	return false
}
