package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lewisian8787/wrestleguess/models"
)

// PostgresUserRepository implements UserRepository using pgx
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository constructs a repository backed by Postgres
func NewPostgresUserRepository(pg *Postgres) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pg.Pool}
}

const userColumns = `id, display_name, email, password, is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.DisplayName, &u.Email, &u.Password, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail finds a user by email, case-insensitively
func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// GetUserByID finds a user by id
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// CreateUser inserts a user and fills in the generated id and timestamps
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (display_name, email, password, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	user.Email = strings.ToLower(user.Email)
	err := r.pool.QueryRow(ctx, q, user.DisplayName, user.Email, user.Password, user.IsAdmin).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateEmail, user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
