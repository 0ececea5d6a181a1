package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunchmates/lunchmates/internal/shared"
)

// Repository defines persistence operations for user accounts.
type Repository interface {
	Create(ctx context.Context, username, email, passwordHash string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	UpdateProfile(ctx context.Context, id int64, username, zipcode string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Deactivate(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL. Email and username
// uniqueness is enforced by the table constraints, so two concurrent
// registrations for the same email resolve to one row and one
// ErrDuplicateEmail regardless of interleaving.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, zipcode, is_active, created_at, updated_at`

// Create inserts a new user row.
func (r *PGRepository) Create(ctx context.Context, username, email, passwordHash string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING `+userColumns,
		username, email, passwordHash)
	user, err := scanUser(row)
	if err != nil {
		return nil, mapConstraint(err)
	}
	return user, nil
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// UpdateProfile updates username and zipcode.
func (r *PGRepository) UpdateProfile(ctx context.Context, id int64, username, zipcode string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET username = $2, zipcode = $3, updated_at = now() WHERE id = $1`,
		id, username, zipcode)
	if err != nil {
		return mapConstraint(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdatePassword overwrites the stored password hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Deactivate flips the active flag. Accounts are never hard-deleted.
func (r *PGRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Zipcode, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// mapConstraint translates unique-violation errors into the sentinels the
// handlers render as form messages.
func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_email_key":
			return shared.ErrDuplicateEmail
		case "users_username_key":
			return shared.ErrDuplicateUsername
		}
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
