package repository

import (
	"context"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles user data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, external_id, email, name, role, credits, password_hash, created_at, updated_at`

func scanUser(row pgx.Row, u *model.User) error {
	return row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.Role, &u.Credits,
		&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u := &model.User{}
	if err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetAdminByEmail retrieves a back-office account by email.
func (r *UserRepository) GetAdminByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE LOWER(email) = LOWER($1) AND role = 'ADMIN' AND password_hash <> ''`, email), u)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpsertExternal mirrors an identity-provider subject into users, refreshing
// the profile fields when they are provided.
func (r *UserRepository) UpsertExternal(ctx context.Context, externalID, email, name string) (*model.User, error) {
	u := &model.User{}
	err := scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users (external_id, email, name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (external_id) DO UPDATE
		 SET email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
		     name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
		     updated_at = CASE
		         WHEN users.email IS DISTINCT FROM COALESCE(NULLIF(EXCLUDED.email, ''), users.email)
		           OR users.name IS DISTINCT FROM COALESCE(NULLIF(EXCLUDED.name, ''), users.name)
		         THEN NOW() ELSE users.updated_at END
		 RETURNING `+userColumns,
		externalID, email, name), u)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateAdmin inserts or promotes a local back-office account.
func (r *UserRepository) CreateAdmin(ctx context.Context, u *model.User) error {
	return scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users (external_id, email, name, role, password_hash)
		 VALUES ($1, $2, $3, 'ADMIN', $4)
		 ON CONFLICT (external_id) DO UPDATE
		 SET role = 'ADMIN', password_hash = EXCLUDED.password_hash, name = EXCLUDED.name, updated_at = NOW()
		 RETURNING `+userColumns,
		u.ExternalID, u.Email, u.Name, u.PasswordHash), u)
}

// LockCredits reads a user's balance inside tx, holding the row lock.
func (r *UserRepository) LockCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error) {
	var credits int
	err := tx.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&credits)
	return credits, err
}

// AddCredits applies a signed delta and returns the new balance.
func (r *UserRepository) AddCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) (int, error) {
	var credits int
	err := tx.QueryRow(ctx,
		`UPDATE users SET credits = credits + $1, updated_at = NOW() WHERE id = $2 RETURNING credits`,
		delta, id,
	).Scan(&credits)
	return credits, err
}
