package model

import (
	"database/sql"
	"time"
)

// Roles a user account can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account tiers.
const (
	TierRegular = "regular"
	TierPremium = "premium"
)

// User represents a user account.
type User struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Role         string       `json:"role"`
	Tier         string       `json:"tier"`
	PremiumSince sql.NullTime `json:"-"`
	PremiumUntil sql.NullTime `json:"-"`
	// Settings is a free-form JSON document of user preferences.
	Settings     sql.NullString `json:"-"`
	TotalPlays   int64          `json:"totalPlays"`
	TotalSeconds int64          `json:"totalSeconds"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
