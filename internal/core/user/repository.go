package user

import (
	"context"
	"time"
)

// Repository defines the interface for user persistence operations.
type Repository interface {
	// Create persists a new user and returns its ID.
	Create(ctx context.Context, u User) (int64, error)

	// FindByID retrieves a user by primary key. Returns nil if not found.
	FindByID(ctx context.Context, id int64) (*User, error)

	// FindByUsername retrieves a user by username. Returns nil if not found.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindByEmail retrieves a user by email. Returns nil if not found.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByResetToken retrieves a user by an unexpired reset token.
	// Returns nil if the token is unknown or expired.
	FindByResetToken(ctx context.Context, token string) (*User, error)

	// UpdatePassword replaces the password hash and clears any reset token.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// SetResetToken stores a password-reset token and its expiry.
	SetResetToken(ctx context.Context, id int64, token string, expira time.Time) error
}
