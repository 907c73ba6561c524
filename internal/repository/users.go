package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsersRepository performs database operations on user accounts.
type UsersRepository struct {
	pool *pgxpool.Pool
}

// NewUsersRepository constructs a UsersRepository on the shared pool.
func NewUsersRepository(pool *pgxpool.Pool) *UsersRepository {
	return &UsersRepository{pool: pool}
}

// Create inserts a new user and returns it with the generated ID and
// timestamps. A duplicate login surfaces as a unique violation on
// users_login_key.
func (r *UsersRepository) Create(ctx context.Context, user *User) (*User, error) {
	query := `
		INSERT INTO users (name, login, password)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, user.Name, user.Login, user.Password).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	return user, nil
}

// GetByLogin retrieves the user with the given login. The lookup is
// case-insensitive: hero@example.com and HERO@EXAMPLE.COM are the same
// account.
func (r *UsersRepository) GetByLogin(ctx context.Context, login string) (*User, error) {
	query := `
		SELECT id, name, login, password, refresh_token, created_at, updated_at
		FROM users
		WHERE lower(login) = lower($1)`

	user := &User{}
	err := r.pool.QueryRow(ctx, query, login).Scan(
		&user.ID, &user.Name, &user.Login, &user.Password,
		&user.RefreshToken, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("table:users: %w", pgx.ErrNoRows)
		}
		return nil, fmt.Errorf("querying user by login: %w", err)
	}

	return user, nil
}

// UpdateRefreshToken stores the user's current refresh token; nil clears it
// (logout / token reuse detected).
func (r *UsersRepository) UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	query := `
		UPDATE users
		SET refresh_token = $2, updated_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, userID, token)
	if err != nil {
		return fmt.Errorf("updating refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("table:users: %w", pgx.ErrNoRows)
	}

	return nil
}
