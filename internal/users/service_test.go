package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockkeep/stockkeep/internal/policy"
	"github.com/stockkeep/stockkeep/internal/shared"
)

type memoryUserRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]User)}
}

func (r *memoryUserRepo) InsertUser(ctx context.Context, user *User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return shared.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepo) UpdateUser(ctx context.Context, user *User) error {
	if _, ok := r.users[user.ID]; !ok {
		return shared.ErrNotFound
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepo) GetUser(ctx context.Context, id int64) (User, error) {
	user, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return user, nil
}

func (r *memoryUserRepo) GetUserByEmail(ctx context.Context, email string) (User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (r *memoryUserRepo) ListUsers(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, nil
}

func admin() policy.Subject {
	return policy.Subject{UserID: 1, Role: policy.RoleSuperAdmin}
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	user, err := svc.CreateUser(context.Background(), CreateUserInput{
		Actor:    admin(),
		Email:    "  Ravi@Stockkeep.Local ",
		Name:     "Ravi Kumar",
		Password: "changeme123",
		Role:     policy.RoleSupportStaff,
		IsActive: true,
	})
	require.NoError(t, err)
	require.Equal(t, "ravi@stockkeep.local", user.Email)
	require.NotEqual(t, "changeme123", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("changeme123")))
	require.NotNil(t, user.Grants)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	input := CreateUserInput{
		Actor:    admin(),
		Email:    "ravi@stockkeep.local",
		Name:     "Ravi Kumar",
		Password: "changeme123",
		Role:     policy.RoleSupportStaff,
		IsActive: true,
	}
	_, err := svc.CreateUser(context.Background(), input)
	require.NoError(t, err)
	_, err = svc.CreateUser(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateUserValidation(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	cases := []struct {
		name  string
		input CreateUserInput
	}{
		{"bad email", CreateUserInput{Actor: admin(), Email: "not-an-email", Name: "X", Password: "changeme123", Role: policy.RoleSupportStaff}},
		{"missing name", CreateUserInput{Actor: admin(), Email: "a@b.c", Password: "changeme123", Role: policy.RoleSupportStaff}},
		{"short password", CreateUserInput{Actor: admin(), Email: "a@b.c", Name: "X", Password: "short", Role: policy.RoleSupportStaff}},
		{"unknown role", CreateUserInput{Actor: admin(), Email: "a@b.c", Name: "X", Password: "changeme123", Role: "owner"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), tc.input)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
	require.Empty(t, repo.users)
}

func TestUpdateUserKeepsHashWhenPasswordEmpty(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	created, err := svc.CreateUser(context.Background(), CreateUserInput{
		Actor:    admin(),
		Email:    "ravi@stockkeep.local",
		Name:     "Ravi Kumar",
		Password: "changeme123",
		Role:     policy.RoleSupportStaff,
		IsActive: true,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateUser(context.Background(), UpdateUserInput{
		Actor:    admin(),
		ID:       created.ID,
		Email:    "ravi@stockkeep.local",
		Name:     "Ravi K",
		Role:     policy.RoleAdmin,
		IsActive: true,
	})
	require.NoError(t, err)
	require.Equal(t, "Ravi K", updated.Name)
	require.Equal(t, policy.RoleAdmin, updated.Role)
	require.Equal(t, created.PasswordHash, updated.PasswordHash)

	rotated, err := svc.UpdateUser(context.Background(), UpdateUserInput{
		Actor:    admin(),
		ID:       created.ID,
		Email:    "ravi@stockkeep.local",
		Name:     "Ravi K",
		Password: "newsecret99",
		Role:     policy.RoleAdmin,
		IsActive: true,
	})
	require.NoError(t, err)
	require.NotEqual(t, created.PasswordHash, rotated.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(rotated.PasswordHash), []byte("newsecret99")))
}

func TestResolveSubject(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	created, err := svc.CreateUser(context.Background(), CreateUserInput{
		Actor:    admin(),
		Email:    "staff@stockkeep.local",
		Name:     "Staff",
		Password: "changeme123",
		Role:     policy.RoleSupportStaff,
		Grants: policy.Grants{
			{Module: policy.ModuleInventory, Action: policy.ActionView}: {},
		},
		IsActive: true,
	})
	require.NoError(t, err)

	subject, err := svc.ResolveSubject(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, subject.UserID)
	require.Equal(t, policy.RoleSupportStaff, subject.Role)
	require.True(t, policy.Authorize(subject, policy.ModuleInventory, policy.ActionView))
	require.False(t, policy.Authorize(subject, policy.ModuleInventory, policy.ActionEdit))

	// Deactivated accounts resolve to unauthorized, not a subject with
	// empty grants.
	_, err = svc.UpdateUser(context.Background(), UpdateUserInput{
		Actor:    admin(),
		ID:       created.ID,
		Email:    created.Email,
		Name:     created.Name,
		Role:     created.Role,
		Grants:   created.Grants,
		IsActive: false,
	})
	require.NoError(t, err)

	_, err = svc.ResolveSubject(context.Background(), created.ID)
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = svc.ResolveSubject(context.Background(), 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUserAdminRequiresPermission(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)
	nobody := policy.Subject{UserID: 5, Role: policy.RoleSupportStaff}

	_, err := svc.CreateUser(context.Background(), CreateUserInput{Actor: nobody, Email: "a@b.c", Name: "X", Password: "changeme123", Role: policy.RoleSupportStaff})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.UpdateUser(context.Background(), UpdateUserInput{Actor: nobody, ID: 1})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.ListUsers(context.Background(), nobody)
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.GetUser(context.Background(), nobody, 1)
	require.ErrorIs(t, err, shared.ErrForbidden)
}
