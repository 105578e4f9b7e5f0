package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fieldserve/fieldserve/internal/domain"
)

func TestComputeDueDatesCalendarHours(t *testing.T) {
	policy := &domain.SLAPolicy{
		OrgID: "org-1", Priority: domain.PriorityUrgent,
		ResponseTimeHours: 2, ResolutionTimeHours: 8,
	}
	created := time.Date(2025, 3, 7, 16, 0, 0, 0, time.UTC) // Friday 16:00

	response, resolution := ComputeDueDates(policy, created)
	require.Equal(t, created.Add(2*time.Hour), response)
	require.Equal(t, created.Add(8*time.Hour), resolution)
}

func TestComputeDueDatesBusinessHoursSkipWeekend(t *testing.T) {
	policy := &domain.SLAPolicy{
		OrgID: "org-1", Priority: domain.PriorityHigh,
		ResponseTimeHours: 4, ResolutionTimeHours: 24,
		BusinessHoursOnly: true,
	}
	created := time.Date(2025, 3, 7, 16, 0, 0, 0, time.UTC) // Friday 16:00

	response, resolution := ComputeDueDates(policy, created)

	// 2h left on Friday, remaining 2h land Monday morning
	require.Equal(t, time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC), response)
	// 24 business hours: 2h Friday, 9h Mon, 9h Tue, 4h Wed
	require.Equal(t, time.Date(2025, 3, 12, 13, 0, 0, 0, time.UTC), resolution)
}

func TestComputeDueDatesBusinessHoursFromWeekend(t *testing.T) {
	policy := &domain.SLAPolicy{
		OrgID: "org-1", Priority: domain.PriorityMedium,
		ResponseTimeHours: 8, ResolutionTimeHours: 10,
		BusinessHoursOnly: true,
	}
	created := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC) // Saturday

	response, resolution := ComputeDueDates(policy, created)
	require.Equal(t, time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC), response)
	// one hour beyond a full business day spills into Tuesday morning
	require.Equal(t, time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC), resolution)
}

func TestPauseResumeAccumulates(t *testing.T) {
	ticket := &domain.Ticket{}
	start := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	pauseSLA(ticket, start)
	require.True(t, ticket.SLAPaused)
	require.Equal(t, start, *ticket.SLAPausedAt)

	// pausing again while paused keeps the original instant
	pauseSLA(ticket, start.Add(10*time.Minute))
	require.Equal(t, start, *ticket.SLAPausedAt)

	added := resumeSLA(ticket, start.Add(90*time.Minute))
	require.Equal(t, 90, added)
	require.Equal(t, 90, ticket.TotalSLAPausedMinutes)
	require.False(t, ticket.SLAPaused)
	require.Nil(t, ticket.SLAPausedAt)

	// resume without a pause is a no-op
	require.Equal(t, 0, resumeSLA(ticket, start.Add(2*time.Hour)))
	require.Equal(t, 90, ticket.TotalSLAPausedMinutes)

	// a second pause window adds to the same total
	pauseSLA(ticket, start.Add(3*time.Hour))
	resumeSLA(ticket, start.Add(3*time.Hour+30*time.Minute))
	require.Equal(t, 120, ticket.TotalSLAPausedMinutes)
}

func TestFreezeResponseSLAIsOneShot(t *testing.T) {
	due := time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{ResponseDueAt: &due}

	onTime := due.Add(-time.Hour)
	freezeResponseSLA(ticket, onTime)
	require.Equal(t, onTime, *ticket.FirstResponseAt)
	require.True(t, *ticket.SLAResponseMet)

	// later calls never move the milestone
	freezeResponseSLA(ticket, due.Add(time.Hour))
	require.Equal(t, onTime, *ticket.FirstResponseAt)
	require.True(t, *ticket.SLAResponseMet)
}

func TestFreezeResolutionSLAHonorsPausedMinutes(t *testing.T) {
	due := time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{ResolutionDueAt: &due, TotalSLAPausedMinutes: 90}

	// 60 minutes past the raw due date, but inside the pause-adjusted window
	freezeResolutionSLA(ticket, due.Add(time.Hour))
	require.True(t, *ticket.SLAResolutionMet)

	breached := &domain.Ticket{ResolutionDueAt: &due, TotalSLAPausedMinutes: 30}
	freezeResolutionSLA(breached, due.Add(time.Hour))
	require.False(t, *breached.SLAResolutionMet)
}
