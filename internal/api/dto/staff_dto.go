package dto

import (
	"time"

	"github.com/fieldserve/fieldserve/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse payload.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Staff     StaffSummary `json:"staff"`
}

// StaffSummary response.
type StaffSummary struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Email string           `json:"email"`
	Role  domain.StaffRole `json:"role"`
}

// FromStaff builds a summary view.
func FromStaff(s *domain.StaffMember) StaffSummary {
	return StaffSummary{ID: s.ID, Name: s.Name, Email: s.Email, Role: s.Role}
}
