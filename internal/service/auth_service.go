package service

import (
	"context"
	"errors"
	"time"

	"github.com/fieldserve/fieldserve/internal/auth"
	"github.com/fieldserve/fieldserve/internal/config"
	"github.com/fieldserve/fieldserve/internal/domain"
	"github.com/fieldserve/fieldserve/internal/repository"
	apperrors "github.com/fieldserve/fieldserve/pkg/util"
)

// AuthService handles staff authentication.
type AuthService struct {
	staff  repository.StaffRepository
	tokens *auth.TokenManager
	cfg    config.AuthConfig
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.Config, staffRepo repository.StaffRepository) *AuthService {
	return &AuthService{
		staff:  staffRepo,
		tokens: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		cfg:    cfg.Auth,
	}
}

// TokenManager exposes the JWT manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// LoginResult carries the issued token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Staff     *domain.StaffMember
}

// Login verifies credentials and issues a JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !staff.Active {
		return nil, apperrors.NewForbidden("staff account disabled")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(staff)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Staff: staff}, nil
}
