package lifecycle

// TransitionPayload carries the status-specific required fields for the
// generic transition operation. One concrete type per target keeps required
// fields checked by the compiler rather than by runtime key lookups.
type TransitionPayload interface {
	isTransitionPayload()
}

// AssignPayload targets ASSIGNED or PENDING_ACCEPTANCE from NEW.
type AssignPayload struct {
	AssigneeID        string
	RequireAcceptance bool
}

// AcceptPayload targets ASSIGNED from PENDING_ACCEPTANCE.
type AcceptPayload struct{}

// DeclinePayload targets NEW from PENDING_ACCEPTANCE.
type DeclinePayload struct {
	Reason string
}

// StartPayload targets IN_PROGRESS from ASSIGNED.
type StartPayload struct{}

// ResolveOnVisitPayload targets COMPLETED via the resolved_on_visit path.
type ResolveOnVisitPayload struct {
	Summary string
}

// PendingPartsPayload targets PENDING_PARTS via the pending_for_part path.
type PendingPartsPayload struct {
	Notes string
}

// DevicePickupPayload targets DEVICE_PICKUP via device_to_backoffice.
type DevicePickupPayload struct{}

// PartsReceivedPayload targets IN_PROGRESS from PENDING_PARTS.
type PartsReceivedPayload struct {
	Notes string
}

// PickupPayload targets DEVICE_UNDER_REPAIR from DEVICE_PICKUP.
type PickupPayload struct {
	Notes string
}

// ReadyForDeliveryPayload targets READY_FOR_DELIVERY.
type ReadyForDeliveryPayload struct{}

// OutForDeliveryPayload targets OUT_FOR_DELIVERY.
type OutForDeliveryPayload struct{}

// DeliveryPayload targets COMPLETED from a delivery-capable status.
type DeliveryPayload struct {
	Notes string
}

// CancelPayload targets CANCELLED from any non-terminal status.
type CancelPayload struct {
	Reason string
}

// ClosePayload targets CLOSED from COMPLETED.
type ClosePayload struct{}

func (AssignPayload) isTransitionPayload()           {}
func (AcceptPayload) isTransitionPayload()           {}
func (DeclinePayload) isTransitionPayload()          {}
func (StartPayload) isTransitionPayload()            {}
func (ResolveOnVisitPayload) isTransitionPayload()   {}
func (PendingPartsPayload) isTransitionPayload()     {}
func (DevicePickupPayload) isTransitionPayload()     {}
func (PartsReceivedPayload) isTransitionPayload()    {}
func (PickupPayload) isTransitionPayload()           {}
func (ReadyForDeliveryPayload) isTransitionPayload() {}
func (OutForDeliveryPayload) isTransitionPayload()   {}
func (DeliveryPayload) isTransitionPayload()         {}
func (CancelPayload) isTransitionPayload()           {}
func (ClosePayload) isTransitionPayload()            {}
