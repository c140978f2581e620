package participants

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

const participantColumns = `id, space_id, user_id, participant_session_id, display_name, role,
	is_active, is_guest, has_recording, joined_at, left_at, created_at, updated_at`

const spaceColumns = `id, title, description, join_code, host_user_id, status, recording_status,
	start_time, end_time, duration_seconds, created_at, updated_at`

// Repository is the Postgres-backed membership store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a membership repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Join reactivates the caller's existing membership row or inserts a new
// GUEST row. The reactivate-first order plus a retry on unique violation
// keeps concurrent joins from the same user on a single row.
func (r *Repository) Join(ctx context.Context, p JoinParams) (*JoinResult, error) {
	space, err := r.getSpace(ctx, p.SpaceID)
	if err != nil {
		return nil, err
	}
	if !space.IsLive() {
		return nil, apperr.InvalidState(apperr.CodeSpaceNotLive, "space is not live")
	}

	existing, err := r.reactivate(ctx, p)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &JoinResult{Participant: existing, Space: space, Rejoined: true}, nil
	}

	const insert = `INSERT INTO participants (space_id, user_id, participant_session_id, display_name, role, is_active, is_guest)
		VALUES ($1, $2, $3, $4, 'GUEST', TRUE, $5)
		RETURNING ` + participantColumns
	var created models.Participant
	err = r.pool.QueryRow(ctx, insert, p.SpaceID, p.UserID, p.SessionID, p.DisplayName, p.UserID == nil).Scan(
		scanTargets(&created)...)
	if err != nil {
		// A concurrent join for the same member won the insert; land on
		// that row instead.
		if isUniqueViolation(err) {
			existing, rerr := r.reactivate(ctx, p)
			if rerr != nil {
				return nil, rerr
			}
			if existing != nil {
				return &JoinResult{Participant: existing, Space: space, Rejoined: true}, nil
			}
		}
		return nil, apperr.Unexpected(err)
	}
	return &JoinResult{Participant: &created, Space: space, Rejoined: false}, nil
}

// reactivate updates the caller's existing row in place, refreshing the
// session id, display name, and join time. Returns nil with no error when no
// row exists.
func (r *Repository) reactivate(ctx context.Context, p JoinParams) (*models.Participant, error) {
	var (
		q    string
		args []interface{}
	)
	if p.UserID != nil {
		q = `UPDATE participants
			SET is_active = TRUE, left_at = NULL, joined_at = NOW(), participant_session_id = $3, display_name = $4, updated_at = NOW()
			WHERE space_id = $1 AND user_id = $2
			RETURNING ` + participantColumns
		args = []interface{}{p.SpaceID, *p.UserID, p.SessionID, p.DisplayName}
	} else {
		q = `UPDATE participants
			SET is_active = TRUE, left_at = NULL, joined_at = NOW(), display_name = $3, updated_at = NOW()
			WHERE space_id = $1 AND participant_session_id = $2 AND is_guest
			RETURNING ` + participantColumns
		args = []interface{}{p.SpaceID, p.SessionID, p.DisplayName}
	}
	var existing models.Participant
	err := r.pool.QueryRow(ctx, q, args...).Scan(scanTargets(&existing)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Unexpected(err)
	}
	return &existing, nil
}

// Leave deactivates an active row. The is_active guard in the WHERE clause
// makes a concurrent double-leave lose cleanly.
func (r *Repository) Leave(ctx context.Context, participantID uuid.UUID) (*models.Participant, error) {
	const q = `UPDATE participants SET is_active = FALSE, left_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING ` + participantColumns
	var p models.Participant
	err := r.pool.QueryRow(ctx, q, participantID).Scan(scanTargets(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.deactivateFailureReason(ctx, participantID)
		}
		return nil, apperr.Unexpected(err)
	}
	return &p, nil
}

// UpdateRole changes a non-host row's role. The role <> 'HOST' guard keeps
// the host row untouchable at the store level regardless of caller checks.
func (r *Repository) UpdateRole(ctx context.Context, participantID uuid.UUID, role models.ParticipantRole) (*models.Participant, error) {
	const q = `UPDATE participants SET role = $2, updated_at = NOW()
		WHERE id = $1 AND role <> 'HOST'
		RETURNING ` + participantColumns
	var p models.Participant
	err := r.pool.QueryRow(ctx, q, participantID, role).Scan(scanTargets(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, gerr := r.GetByID(ctx, participantID)
			if gerr != nil {
				return nil, gerr
			}
			if existing.IsHost() {
				return nil, apperr.InvalidState(apperr.CodeCannotChangeHostRole, "the host's role cannot be changed")
			}
			return nil, apperr.Unexpected(err)
		}
		return nil, apperr.Unexpected(err)
	}
	return &p, nil
}

// Kick force-deactivates an active non-host row.
func (r *Repository) Kick(ctx context.Context, participantID uuid.UUID) (*models.Participant, error) {
	const q = `UPDATE participants SET is_active = FALSE, left_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_active AND role <> 'HOST'
		RETURNING ` + participantColumns
	var p models.Participant
	err := r.pool.QueryRow(ctx, q, participantID).Scan(scanTargets(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, gerr := r.GetByID(ctx, participantID)
			if gerr != nil {
				return nil, gerr
			}
			if existing.IsHost() {
				return nil, apperr.InvalidState(apperr.CodeCannotKickHost, "the host cannot be kicked")
			}
			return nil, apperr.InvalidState(apperr.CodeParticipantAlreadyLeft, "participant has already left")
		}
		return nil, apperr.Unexpected(err)
	}
	return &p, nil
}

// List returns a space's participants ordered by join time.
func (r *Repository) List(ctx context.Context, spaceID uuid.UUID, activeOnly bool) ([]models.Participant, error) {
	q := `SELECT ` + participantColumns + ` FROM participants WHERE space_id = $1`
	if activeOnly {
		q += ` AND is_active`
	}
	q += ` ORDER BY joined_at ASC`

	rows, err := r.pool.Query(ctx, q, spaceID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	defer rows.Close()

	out := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(scanTargets(&p)...); err != nil {
			return nil, apperr.Unexpected(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return out, nil
}

// GetByID returns a participant by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	const q = `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	return r.scanOne(ctx, q, id)
}

// GetBySpaceAndUser returns a signed-in user's membership row.
func (r *Repository) GetBySpaceAndUser(ctx context.Context, spaceID, userID uuid.UUID) (*models.Participant, error) {
	const q = `SELECT ` + participantColumns + ` FROM participants WHERE space_id = $1 AND user_id = $2`
	return r.scanOne(ctx, q, spaceID, userID)
}

// GetBySpaceAndSession returns a guest membership row by session id.
func (r *Repository) GetBySpaceAndSession(ctx context.Context, spaceID uuid.UUID, sessionID string) (*models.Participant, error) {
	const q = `SELECT ` + participantColumns + ` FROM participants WHERE space_id = $1 AND participant_session_id = $2 AND is_guest`
	return r.scanOne(ctx, q, spaceID, sessionID)
}

func (r *Repository) scanOne(ctx context.Context, q string, args ...interface{}) (*models.Participant, error) {
	var p models.Participant
	err := r.pool.QueryRow(ctx, q, args...).Scan(scanTargets(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(apperr.CodeParticipantNotFound, "participant not found")
		}
		return nil, apperr.Unexpected(err)
	}
	return &p, nil
}

func (r *Repository) getSpace(ctx context.Context, id uuid.UUID) (*models.Space, error) {
	const q = `SELECT ` + spaceColumns + ` FROM spaces WHERE id = $1`
	var s models.Space
	err := r.pool.QueryRow(ctx, q, id).Scan(
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

// deactivateFailureReason distinguishes a missing row from one already left.
func (r *Repository) deactivateFailureReason(ctx context.Context, participantID uuid.UUID) error {
	_, err := r.GetByID(ctx, participantID)
	if err != nil {
		return err
	}
	return apperr.InvalidState(apperr.CodeParticipantAlreadyLeft, "participant has already left")
}

func scanTargets(p *models.Participant) []interface{} {
	return []interface{}{
		&p.ID, &p.SpaceID, &p.UserID, &p.ParticipantSessionID, &p.DisplayName, &p.Role,
		&p.IsActive, &p.IsGuest, &p.HasRecording, &p.JoinedAt, &p.LeftAt, &p.CreatedAt, &p.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
