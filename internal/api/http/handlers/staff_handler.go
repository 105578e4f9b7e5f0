package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldserve/fieldserve/internal/api/dto"
	"github.com/fieldserve/fieldserve/internal/service"
	apperrors "github.com/fieldserve/fieldserve/pkg/util"
)

// StaffHandler exposes staff authentication.
type StaffHandler struct {
	authService *service.AuthService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService) *StaffHandler {
	return &StaffHandler{authService: authService}
}

// Login POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Staff:     dto.FromStaff(result.Staff),
	}})
}
