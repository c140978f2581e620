package spaces

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-spaces/backend/internal/models"
	"github.com/aura-spaces/backend/pkg/apperr"
)

const spaceColumns = `id, title, description, join_code, host_user_id, status, recording_status,
	start_time, end_time, duration_seconds, created_at, updated_at`

const participantColumns = `id, space_id, user_id, participant_session_id, display_name, role,
	is_active, is_guest, has_recording, joined_at, left_at, created_at, updated_at`

// Repository is the Postgres-backed space store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a space repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the space and its HOST participant in one transaction.
// The unique constraint on join_code is the authoritative uniqueness check;
// a violation rolls back the whole transaction.
func (r *Repository) Create(ctx context.Context, p CreateParams) (*models.Space, *models.Participant, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, apperr.Unexpected(err)
	}
	defer tx.Rollback(ctx)

	const insertSpace = `INSERT INTO spaces (title, description, join_code, host_user_id, status, start_time)
		VALUES ($1, $2, $3, $4, 'LIVE', NOW())
		RETURNING ` + spaceColumns
	var s models.Space
	err = tx.QueryRow(ctx, insertSpace, p.Title, p.Description, p.JoinCode, p.HostUserID).Scan(
		&s.ID, &s.Title, &s.Description, &s.JoinCode, &s.HostUserID, &s.Status, &s.RecordingStatus,
		&s.StartTime, &s.EndTime, &s.DurationSeconds, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, apperr.Conflict(apperr.CodeJoinCodeTaken, "join code already in use")
		}
		return nil, nil, apperr.Unexpected(err)
	}

	const insertHost = `INSERT INTO participants (space_id, user_id, participant_session_id, display_name, role, is_active, is_guest)
		VALUES ($1, $2, $3, $4, 'HOST', TRUE, FALSE)
		RETURNING ` + participantColumns
	var host models.Participant
	err = tx.QueryRow(ctx, insertHost, s.ID, p.HostUserID, p.HostSessionID, p.HostDisplayName).Scan(
		&host.ID, &host.SpaceID, &host.UserID, &host.ParticipantSessionID, &host.DisplayName, &host.Role,
		&host.IsActive, &host.IsGuest, &host.HasRecording, &host.JoinedAt, &host.LeftAt, &host.CreatedAt, &host.UpdatedAt)
	if err != nil {
		return nil, nil, apperr.Unexpected(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, apperr.Unexpected(err)
	}
	return &s, &host, nil
}

// End flips LIVE -> ENDED, stamps end_time/duration, and deactivates every
// active participant, all in one transaction. The status guard lives in the
// UPDATE's WHERE clause so a concurrent end loses cleanly.
func (r *Repository) End(ctx context.Context, spaceID uuid.UUID) (*models.Space, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	defer tx.Rollback(ctx)

	const endSpace = `UPDATE spaces
		SET status = 'ENDED', end_time = NOW(),
		    duration_seconds = EXTRACT(EPOCH FROM (NOW() - start_time))::BIGINT,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'LIVE'
		RETURNING ` + spaceColumns
	var s models.Space
	err = tx.QueryRow(ctx, endSpace, spaceID).Scan(
		&s.ID, &s.Title, &s.Description, &s.JoinCode, &s.HostUserID, &s.Status, &s.RecordingStatus,
		&s.StartTime, &s.EndTime, &s.DurationSeconds, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.endFailureReason(ctx, spaceID)
		}
		return nil, apperr.Unexpected(err)
	}

	const deactivate = `UPDATE participants SET is_active = FALSE, left_at = NOW(), updated_at = NOW()
		WHERE space_id = $1 AND is_active`
	if _, err := tx.Exec(ctx, deactivate, spaceID); err != nil {
		return nil, apperr.Unexpected(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return &s, nil
}

// endFailureReason distinguishes a missing space from one that already ended.
func (r *Repository) endFailureReason(ctx context.Context, spaceID uuid.UUID) error {
	_, err := r.GetByID(ctx, spaceID)
	if err != nil {
		return err
	}
	return apperr.InvalidState(apperr.CodeSpaceNotLive, "space is not live")
}

// Update applies a partial patch to title/description.
func (r *Repository) Update(ctx context.Context, spaceID uuid.UUID, p UpdateParams) (*models.Space, error) {
	const q = `UPDATE spaces
		SET title = COALESCE($2, title), description = COALESCE($3, description), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + spaceColumns
	var s models.Space
	err := r.pool.QueryRow(ctx, q, spaceID, p.Title, p.Description).Scan(
		&s.ID, &s.Title, &s.Description, &s.JoinCode, &s.HostUserID, &s.Status, &s.RecordingStatus,
		&s.StartTime, &s.EndTime, &s.DurationSeconds, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(apperr.CodeSpaceNotFound, "space not found")
		}
		return nil, apperr.Unexpected(err)
	}
	return &s, nil
}

// GetByID returns a space by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Space, error) {
	const q = `SELECT ` + spaceColumns + ` FROM spaces WHERE id = $1`
	return r.scanOne(ctx, q, id)
}

// GetByJoinCode returns a space by its join code.
func (r *Repository) GetByJoinCode(ctx context.Context, code string) (*models.Space, error) {
	const q = `SELECT ` + spaceColumns + ` FROM spaces WHERE join_code = $1`
	return r.scanOne(ctx, q, code)
}

func (r *Repository) scanOne(ctx context.Context, q string, arg interface{}) (*models.Space, error) {
	var s models.Space
	err := r.pool.QueryRow(ctx, q, arg).Scan(
		&s.ID, &s.Title, &s.Description, &s.JoinCode, &s.HostUserID, &s.Status, &s.RecordingStatus,
		&s.StartTime, &s.EndTime, &s.DurationSeconds, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(apperr.CodeSpaceNotFound, "space not found")
		}
		return nil, apperr.Unexpected(err)
	}
	return &s, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
