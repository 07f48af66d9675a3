package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/stewardrx/platform/internal/shared/errors"
	"github.com/stewardrx/platform/internal/shared/types"
)

// Repository handles user persistence
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, username, password_hash, full_name, role, active, created_at, updated_at`

// Create inserts a new user account
func (r *Repository) Create(ctx context.Context, u *User) error {
	query := fmt.Sprintf(`
		INSERT INTO users (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, userColumns)

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Username, u.PasswordHash, u.FullName, u.Role, u.Active,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return apperrors.Conflict(fmt.Sprintf("username %s is taken", u.Username))
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByUsername fetches a user by username
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, username), username)
}

// GetByID fetches a user by ID
func (r *Repository) GetByID(ctx context.Context, id types.ID) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, id), id.String())
}

func (r *Repository) scanOne(row pgx.Row, id string) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role,
		&u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
