package users

import (
	"time"

	"github.com/stockkeep/stockkeep/internal/policy"
)

// User is an account able to sign in and to hold permission grants.
type User struct {
	ID           int64         `json:"id"`
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	PasswordHash string        `json:"-"`
	Role         policy.Role   `json:"role"`
	Grants       policy.Grants `json:"-"`
	IsActive     bool          `json:"isActive"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Subject projects the user into the shape the policy evaluates.
func (u User) Subject() policy.Subject {
	return policy.Subject{UserID: u.ID, Role: u.Role, Grants: u.Grants}
}
