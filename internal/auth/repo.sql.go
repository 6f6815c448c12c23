package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockkeep/stockkeep/internal/users"
)

// PGRepository implements Repository using PostgreSQL. User lookup is
// delegated to the users repository so both modules agree on the row
// shape.
type PGRepository struct {
	users *users.Repository
	pool  *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{users: users.NewRepository(pool), pool: pool}
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (users.User, error) {
	return r.users.GetUserByEmail(ctx, email)
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua)
VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))
ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at`, id, userID, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)
