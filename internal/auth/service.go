// Package auth implements credential verification and login session
// bookkeeping.
package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/stockkeep/stockkeep/internal/shared"
	"github.com/stockkeep/stockkeep/internal/users"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials. Lookup failures,
// inactive accounts and hash mismatches all collapse into the same
// error so callers cannot probe for registered emails.
func (s *Service) Authenticate(ctx context.Context, email, password string) (users.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
