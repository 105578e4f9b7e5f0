package lifecycle

import (
	"time"

	"github.com/fieldserve/fieldserve/internal/domain"
)

// appendStatusChange records one audit entry. Called only by the transition
// guard as the last step before the atomic write, so from always equals the
// ticket's status immediately before the hop.
func appendStatusChange(t *domain.Ticket, from, to domain.TicketStatus, actor domain.Actor, reason string, at time.Time) {
	t.StatusHistory = append(t.StatusHistory, domain.StatusChange{
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Reason:     reason,
		ChangedAt:  at,
	})
}

// appendCustody records one custody log entry and keeps device_in_custody in
// sync with the log's last action.
func appendCustody(t *domain.Ticket, action domain.CustodyAction, actor domain.Actor, notes string, at time.Time) {
	t.CustodyLog = append(t.CustodyLog, domain.CustodyEntry{
		Action:    action,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Notes:     notes,
		At:        at,
	})
	t.DeviceInCustody = action != domain.CustodyDelivery
}
