package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"simpleit/simpledfe_core/internal/core/user"
)

// Repository implements the user.Repository interface using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewRepository creates a new PostgreSQL user repository.
func NewRepository(pool *pgxpool.Pool, log *slog.Logger) user.Repository {
	return &Repository{pool: pool, log: log}
}

const userColumns = `id, username, email, password_hash, nome, tipo, status, reset_token, reset_token_expira, created_at`

// Create persists a new user and returns its ID.
func (r *Repository) Create(ctx context.Context, u user.User) (int64, error) {
	query := `
		INSERT INTO users (username, email, password_hash, nome, tipo, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query,
		u.Username, u.Email, u.PasswordHash, u.Nome, u.Tipo, u.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// FindByID retrieves a user by primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (*user.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByUsername retrieves a user by username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// FindByEmail retrieves a user by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByResetToken retrieves a user by an unexpired reset token.
func (r *Repository) FindByResetToken(ctx context.Context, token string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1 AND reset_token_expira > NOW()`
	return r.findOne(ctx, query, token)
}

func (r *Repository) findOne(ctx context.Context, query string, args ...interface{}) (*user.User, error) {
	var u user.User
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Nome, &u.Tipo,
		&u.Status, &u.ResetToken, &u.ResetTokenExpira, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

// UpdatePassword replaces the password hash and clears any reset token.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token = NULL, reset_token_expira = NULL
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNaoEncontrado
	}
	return nil
}

// SetResetToken stores a password-reset token and its expiry.
func (r *Repository) SetResetToken(ctx context.Context, id int64, token string, expira time.Time) error {
	query := `UPDATE users SET reset_token = $2, reset_token_expira = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, token, expira)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNaoEncontrado
	}
	return nil
}
