package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-spaces/backend/internal/models"
	"github.com/aura-spaces/backend/pkg/apperr"
)

// Resolver maps a verified external identity to an internal user record,
// creating it lazily on first sight. Keyed solely on the provider subject id.
type Resolver interface {
	Resolve(ctx context.Context, identity *Identity) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Repository is the Postgres-backed Resolver.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an identity repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Resolve performs the idempotent get-or-create. A single upsert keyed on
// external_identity_id keeps concurrent first-sign-ins from racing: both
// callers land on the same row.
func (r *Repository) Resolve(ctx context.Context, identity *Identity) (*models.User, error) {
	const q = `INSERT INTO users (external_identity_id, email, display_name, avatar_url)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (external_identity_id) DO UPDATE
			SET email = EXCLUDED.email,
			    display_name = EXCLUDED.display_name,
			    avatar_url = COALESCE(EXCLUDED.avatar_url, users.avatar_url),
			    updated_at = NOW()
		RETURNING id, external_identity_id, email, display_name, COALESCE(avatar_url, ''), created_at, updated_at`
	var u models.User
	err := r.pool.QueryRow(ctx, q, identity.SubjectID, identity.Email, identity.DisplayName, identity.AvatarURL).
		Scan(&u.ID, &u.ExternalIdentityID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return &u, nil
}

// GetByID returns a user by internal id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, external_identity_id, email, display_name, COALESCE(avatar_url, ''), created_at, updated_at
		FROM users WHERE id = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.ExternalIdentityID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(apperr.CodeUserNotFound, "user not found")
		}
		return nil, apperr.Unexpected(err)
	}
	return &u, nil
}
