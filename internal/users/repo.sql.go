package users

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockkeep/stockkeep/internal/policy"
	"github.com/stockkeep/stockkeep/internal/shared"
)

// Repository provides PostgreSQL backed persistence. Grants are
// stored as JSONB in the module -> actions shape.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, password_hash, role, grants, is_active, created_at, updated_at`

// InsertUser stores a new user and assigns its ID.
func (r *Repository) InsertUser(ctx context.Context, user *User) error {
	grants, err := encodeGrants(user.Grants)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	err = r.pool.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, role, grants, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
RETURNING id`, user.Email, user.Name, user.PasswordHash, user.Role, grants, user.IsActive, now).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicate
		}
		return err
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// UpdateUser rewrites the mutable fields of an existing user.
func (r *Repository) UpdateUser(ctx context.Context, user *User) error {
	grants, err := encodeGrants(user.Grants)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `UPDATE users
SET email = $2, name = $3, password_hash = $4, role = $5, grants = $6, is_active = $7, updated_at = $8
WHERE id = $1`, user.ID, user.Email, user.Name, user.PasswordHash, user.Role, grants, user.IsActive, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	user.UpdatedAt = now
	return nil
}

// GetUser fetches a user by ID.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// ListUsers returns all users.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	var grants []byte
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Role, &grants, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	user.Grants, err = decodeGrants(grants)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func encodeGrants(grants policy.Grants) ([]byte, error) {
	return json.Marshal(grants.ToMap())
}

func decodeGrants(raw []byte) (policy.Grants, error) {
	if len(raw) == 0 {
		return policy.Grants{}, nil
	}
	var shaped map[string][]string
	if err := json.Unmarshal(raw, &shaped); err != nil {
		return nil, err
	}
	return policy.GrantsFromMap(shaped)
}
