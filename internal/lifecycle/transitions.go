package lifecycle

import "github.com/fieldserve/fieldserve/internal/domain"

// allowedTransitions is the single source of truth for reachable statuses.
// Loaded once at startup and never mutated; CANCELLED is reachable from every
// non-terminal status, COMPLETED included.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.StatusNew: {
		domain.StatusAssigned,
		domain.StatusPendingAcceptance,
		domain.StatusCancelled,
	},
	domain.StatusPendingAcceptance: {
		domain.StatusAssigned,
		domain.StatusNew,
		domain.StatusCancelled,
	},
	domain.StatusAssigned: {
		domain.StatusInProgress,
		domain.StatusCancelled,
	},
	domain.StatusInProgress: {
		domain.StatusCompleted,
		domain.StatusPendingParts,
		domain.StatusDevicePickup,
		domain.StatusCancelled,
	},
	domain.StatusPendingParts: {
		domain.StatusInProgress,
		domain.StatusCancelled,
	},
	domain.StatusDevicePickup: {
		domain.StatusDeviceUnderRepair,
		domain.StatusCancelled,
	},
	domain.StatusDeviceUnderRepair: {
		domain.StatusReadyForDelivery,
		domain.StatusCancelled,
	},
	domain.StatusReadyForDelivery: {
		domain.StatusOutForDelivery,
		domain.StatusCompleted,
		domain.StatusCancelled,
	},
	domain.StatusOutForDelivery: {
		domain.StatusCompleted,
		domain.StatusCancelled,
	},
	domain.StatusCompleted: {
		domain.StatusClosed,
		domain.StatusCancelled,
	},
	domain.StatusClosed:    {},
	domain.StatusCancelled: {},
}

// CanTransition reports whether target is reachable from current.
func CanTransition(current, target domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == target {
			return true
		}
	}
	return false
}

// AllowedTargets returns the statuses reachable from current.
func AllowedTargets(current domain.TicketStatus) []domain.TicketStatus {
	targets := allowedTransitions[current]
	out := make([]domain.TicketStatus, len(targets))
	copy(out, targets)
	return out
}

// KnownStatus reports whether s is a member of the status enum.
func KnownStatus(s domain.TicketStatus) bool {
	_, ok := allowedTransitions[s]
	return ok
}
