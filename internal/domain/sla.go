package domain

// SLAPolicy holds per-org, per-priority response and resolution targets.
// Lookups are read-only and shared safely across concurrent callers.
type SLAPolicy struct {
	OrgID               string
	Priority            TicketPriority
	ResponseTimeHours   int
	ResolutionTimeHours int
	BusinessHoursOnly   bool
}

// DefaultSLAPolicy is used when an org has no policy row for a priority.
func DefaultSLAPolicy(orgID string, priority TicketPriority) *SLAPolicy {
	policy := &SLAPolicy{OrgID: orgID, Priority: priority}
	switch priority {
	case PriorityUrgent:
		policy.ResponseTimeHours, policy.ResolutionTimeHours = 2, 8
	case PriorityHigh:
		policy.ResponseTimeHours, policy.ResolutionTimeHours = 4, 24
	case PriorityLow:
		policy.ResponseTimeHours, policy.ResolutionTimeHours = 24, 96
	default:
		policy.ResponseTimeHours, policy.ResolutionTimeHours = 8, 48
	}
	return policy
}
