package lifecycle

import (
	"time"

	"github.com/fieldserve/fieldserve/internal/domain"
)

// Business window used when a policy counts business hours only.
const (
	businessDayStart = 9
	businessDayEnd   = 18
)

// ComputeDueDates derives response and resolution due timestamps from a
// policy. Pure function over timestamps.
func ComputeDueDates(policy *domain.SLAPolicy, createdAt time.Time) (response, resolution time.Time) {
	if policy.BusinessHoursOnly {
		return addBusinessHours(createdAt, policy.ResponseTimeHours),
			addBusinessHours(createdAt, policy.ResolutionTimeHours)
	}
	return createdAt.Add(time.Duration(policy.ResponseTimeHours) * time.Hour),
		createdAt.Add(time.Duration(policy.ResolutionTimeHours) * time.Hour)
}

// addBusinessHours advances start by the given number of hours counting only
// the Mon-Fri business window.
func addBusinessHours(start time.Time, hours int) time.Time {
	t := start
	remaining := time.Duration(hours) * time.Hour
	for remaining > 0 {
		t = nextBusinessInstant(t)
		endOfDay := time.Date(t.Year(), t.Month(), t.Day(), businessDayEnd, 0, 0, 0, t.Location())
		window := endOfDay.Sub(t)
		if window >= remaining {
			return t.Add(remaining)
		}
		remaining -= window
		t = endOfDay
	}
	return t
}

func nextBusinessInstant(t time.Time) time.Time {
	for {
		switch {
		case t.Weekday() == time.Saturday || t.Weekday() == time.Sunday:
			t = time.Date(t.Year(), t.Month(), t.Day()+1, businessDayStart, 0, 0, 0, t.Location())
		case t.Hour() < businessDayStart:
			t = time.Date(t.Year(), t.Month(), t.Day(), businessDayStart, 0, 0, 0, t.Location())
		case t.Hour() >= businessDayEnd:
			t = time.Date(t.Year(), t.Month(), t.Day()+1, businessDayStart, 0, 0, 0, t.Location())
		default:
			return t
		}
	}
}

// pauseSLA snapshots the pause instant. Idempotent while already paused.
func pauseSLA(t *domain.Ticket, now time.Time) {
	if t.SLAPaused {
		return
	}
	t.SLAPaused = true
	t.SLAPausedAt = &now
}

// resumeSLA folds the elapsed pause window into the running total and
// returns the minutes added. Total only ever grows.
func resumeSLA(t *domain.Ticket, now time.Time) int {
	if !t.SLAPaused || t.SLAPausedAt == nil {
		return 0
	}
	minutes := int(now.Sub(*t.SLAPausedAt).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	t.TotalSLAPausedMinutes += minutes
	t.SLAPaused = false
	t.SLAPausedAt = nil
	return minutes
}

// adjustedDue shifts a due date by the accumulated pause time.
func adjustedDue(due time.Time, pausedMinutes int) time.Time {
	return due.Add(time.Duration(pausedMinutes) * time.Minute)
}

// freezeResponseSLA stamps first_response_at and freezes sla_response_met the
// first time the milestone is reached. Later calls are no-ops.
func freezeResponseSLA(t *domain.Ticket, now time.Time) {
	if t.FirstResponseAt != nil {
		return
	}
	t.FirstResponseAt = &now
	if t.ResponseDueAt != nil {
		met := !now.After(adjustedDue(*t.ResponseDueAt, t.TotalSLAPausedMinutes))
		t.SLAResponseMet = &met
	}
}

// freezeResolutionSLA stamps resolved_at and freezes sla_resolution_met.
func freezeResolutionSLA(t *domain.Ticket, now time.Time) {
	if t.ResolvedAt != nil {
		return
	}
	t.ResolvedAt = &now
	if t.ResolutionDueAt != nil {
		met := !now.After(adjustedDue(*t.ResolutionDueAt, t.TotalSLAPausedMinutes))
		t.SLAResolutionMet = &met
	}
}
