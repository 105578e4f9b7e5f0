package domain

import "time"

// StaffRole enumerates field-service operator roles.
type StaffRole string

const (
	StaffRoleTechnician  StaffRole = "TECHNICIAN"
	StaffRoleCoordinator StaffRole = "COORDINATOR"
	StaffRoleAdmin       StaffRole = "ADMIN"
)

// Actor identifies who performed a lifecycle operation. The engine trusts a
// pre-authorized actor and only records attribution.
type Actor struct {
	ID    string
	Name  string
	Role  StaffRole
	OrgID string
}

// StaffMember models a technician, coordinator or administrator.
type StaffMember struct {
	ID           string
	OrgID        string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor converts a staff member into lifecycle attribution.
func (s *StaffMember) Actor() Actor {
	return Actor{ID: s.ID, Name: s.Name, Role: s.Role, OrgID: s.OrgID}
}
