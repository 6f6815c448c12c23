package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/stockkeep/stockkeep/internal/policy"
	"github.com/stockkeep/stockkeep/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	InsertUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// Service handles user administration and is the source of policy
// subjects for the authorization middleware.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateUserInput describes a new user account.
type CreateUserInput struct {
	Actor    policy.Subject
	Email    string
	Name     string
	Password string
	Role     policy.Role
	Grants   policy.Grants
	IsActive bool
}

// UpdateUserInput rewrites an existing account. Password is optional;
// empty keeps the current hash.
type UpdateUserInput struct {
	Actor    policy.Subject
	ID       int64
	Email    string
	Name     string
	Password string
	Role     policy.Role
	Grants   policy.Grants
	IsActive bool
}

// CreateUser validates and persists a user account.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	if !policy.Authorize(input.Actor, policy.ModuleUsers, policy.ActionCreate) {
		return User{}, shared.ErrForbidden
	}
	user := User{
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Name:     strings.TrimSpace(input.Name),
		Role:     input.Role,
		Grants:   input.Grants,
		IsActive: input.IsActive,
	}
	if err := validateUser(user, input.Password, true); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user.PasswordHash = string(hash)
	if user.Grants == nil {
		user.Grants = policy.Grants{}
	}
	if err := s.repo.InsertUser(ctx, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// UpdateUser applies changes to an existing account.
func (s *Service) UpdateUser(ctx context.Context, input UpdateUserInput) (User, error) {
	if !policy.Authorize(input.Actor, policy.ModuleUsers, policy.ActionEdit) {
		return User{}, shared.ErrForbidden
	}
	user, err := s.repo.GetUser(ctx, input.ID)
	if err != nil {
		return User{}, err
	}
	user.Email = strings.ToLower(strings.TrimSpace(input.Email))
	user.Name = strings.TrimSpace(input.Name)
	user.Role = input.Role
	user.Grants = input.Grants
	user.IsActive = input.IsActive
	if err := validateUser(user, input.Password, input.Password != ""); err != nil {
		return User{}, err
	}
	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		user.PasswordHash = string(hash)
	}
	if user.Grants == nil {
		user.Grants = policy.Grants{}
	}
	if err := s.repo.UpdateUser(ctx, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context, actor policy.Subject) ([]User, error) {
	if !policy.Authorize(actor, policy.ModuleUsers, policy.ActionView) {
		return nil, shared.ErrForbidden
	}
	return s.repo.ListUsers(ctx)
}

// GetUser returns one user by ID.
func (s *Service) GetUser(ctx context.Context, actor policy.Subject, id int64) (User, error) {
	if !policy.Authorize(actor, policy.ModuleUsers, policy.ActionView) {
		return User{}, shared.ErrForbidden
	}
	return s.repo.GetUser(ctx, id)
}

// ResolveSubject loads the policy subject for an authenticated user.
// Inactive accounts resolve to an unauthorized error so stale sessions
// lose access immediately.
func (s *Service) ResolveSubject(ctx context.Context, userID int64) (policy.Subject, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return policy.Subject{}, err
	}
	if !user.IsActive {
		return policy.Subject{}, shared.ErrUnauthorized
	}
	return user.Subject(), nil
}

func validateUser(user User, password string, requirePassword bool) error {
	if user.Email == "" || !strings.Contains(user.Email, "@") {
		return fmt.Errorf("%w: valid email is required", shared.ErrValidation)
	}
	if user.Name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if !policy.ValidRole(user.Role) {
		return fmt.Errorf("%w: unknown role %q", shared.ErrValidation, user.Role)
	}
	if requirePassword && len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", shared.ErrValidation)
	}
	return nil
}
