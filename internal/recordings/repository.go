package recordings

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

const sessionColumns = `id, space_id, space_recording_session_id, status, started_at, stopped_at, created_at, updated_at`

const recordingColumns = `id, recording_session_id, participant_id, type, is_screen_share, mime_type, width, height,
	status, expected_segments, uploaded_segments, is_complete, last_chunk_at, created_at, updated_at`

// Repository is the Postgres-backed recording store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recording repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StartSession inserts an ACTIVE session and flips the space's
// recording_status in one transaction. The liveness check rides on the
// space UPDATE's WHERE clause; the one-active-session rule rides on the
// partial unique index.
func (r *Repository) StartSession(ctx context.Context, p StartSessionParams) (*models.RecordingSession, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	defer tx.Rollback(ctx)

	const flip = `UPDATE spaces SET recording_status = 'RECORDING', updated_at = NOW()
		WHERE id = $1 AND status = 'LIVE'`
	tag, err := tx.Exec(ctx, flip, p.SpaceID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, r.startFailureReason(ctx, p.SpaceID)
	}

	const insert = `INSERT INTO recording_sessions (space_id, space_recording_session_id)
		VALUES ($1, $2)
		RETURNING ` + sessionColumns
	var s models.RecordingSession
	err = tx.QueryRow(ctx, insert, p.SpaceID, p.ClientSessionID).Scan(sessionTargets(&s)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "recording_sessions_one_active_key" {
				return nil, apperr.Conflict(apperr.CodeRecordingAlreadyActive, "a recording session is already active")
			}
			// Same client session id replayed: hand back the session the
			// first attempt created.
			return r.getByClientID(ctx, p.SpaceID, p.ClientSessionID)
		}
		return nil, apperr.Unexpected(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return &s, nil
}

func (r *Repository) startFailureReason(ctx context.Context, spaceID uuid.UUID) error {
	const q = `SELECT status FROM spaces WHERE id = $1`
	var status models.SpaceStatus
	err := r.pool.QueryRow(ctx, q, spaceID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(apperr.CodeSpaceNotFound, "space not found")
		}
		return apperr.Unexpected(err)
	}
	return apperr.InvalidState(apperr.CodeSpaceNotLive, "space is not live")
}

func (r *Repository) getByClientID(ctx context.Context, spaceID uuid.UUID, clientID string) (*models.RecordingSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM recording_sessions
		WHERE space_id = $1 AND space_recording_session_id = $2`
	var s models.RecordingSession
	err := r.pool.QueryRow(ctx, q, spaceID, clientID).Scan(sessionTargets(&s)...)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return &s, nil
}

// StopSession flips ACTIVE -> STOPPED and mirrors the space's
// recording_status in one transaction. Stopping twice is an invalid-state
// error, not a no-op.
func (r *Repository) StopSession(ctx context.Context, sessionID uuid.UUID) (*models.RecordingSession, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	defer tx.Rollback(ctx)

	const stop = `UPDATE recording_sessions SET status = 'STOPPED', stopped_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'ACTIVE'
		RETURNING ` + sessionColumns
	var s models.RecordingSession
	err = tx.QueryRow(ctx, stop, sessionID).Scan(sessionTargets(&s)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.stopFailureReason(ctx, sessionID)
		}
		return nil, apperr.Unexpected(err)
	}

	const flip = `UPDATE spaces SET recording_status = 'STOPPED', updated_at = NOW() WHERE id = $1`
	if _, err := tx.Exec(ctx, flip, s.SpaceID); err != nil {
		return nil, apperr.Unexpected(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return &s, nil
}

func (r *Repository) stopFailureReason(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	return apperr.InvalidState(apperr.CodeSessionNotActive, "recording session is not active")
}

// GetSession returns a session by id.
func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.RecordingSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM recording_sessions WHERE id = $1`
	var s models.RecordingSession
	err := r.pool.QueryRow(ctx, q, id).Scan(sessionTargets(&s)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(apperr.CodeSessionNotFound, "recording session not found")
		}
		return nil, apperr.Unexpected(err)
	}
	return &s, nil
}

// ListSessions returns a space's sessions, newest first.
func (r *Repository) ListSessions(ctx context.Context, spaceID uuid.UUID) ([]models.RecordingSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM recording_sessions
		WHERE space_id = $1 ORDER BY started_at DESC`
	rows, err := r.pool.Query(ctx, q, spaceID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	defer rows.Close()

	out := []models.RecordingSession{}
	for rows.Next() {
		var s models.RecordingSession
		if err := rows.Scan(sessionTargets(&s)...); err != nil {
			return nil, apperr.Unexpected(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return out, nil
}

// CreateRecording inserts a track under an ACTIVE session and marks the
// owning participant's has_recording flag, both in one transaction.
func (r *Repository) CreateRecording(ctx context.Context, p CreateRecordingParams) (*models.ParticipantRecording, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	defer tx.Rollback(ctx)

	// The guarded select-join makes the insert itself fail closed when the
	// session is missing or no longer ACTIVE, or when the participant does
	// not belong to the session's space.
	const insert = `INSERT INTO participant_recordings
			(recording_session_id, participant_id, type, is_screen_share, mime_type, width, height)
		SELECT s.id, pt.id, $3, $4, $5, $6, $7
		FROM recording_sessions s
		JOIN participants pt ON pt.id = $2 AND pt.space_id = s.space_id
		WHERE s.id = $1 AND s.status = 'ACTIVE'
		RETURNING ` + recordingColumns
	var rec models.ParticipantRecording
	err = tx.QueryRow(ctx, insert,
		p.RecordingSessionID, p.ParticipantID, p.Type, p.IsScreenShare, p.MimeType, p.Width, p.Height).
		Scan(recordingTargets(&rec)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.createFailureReason(ctx, p)
		}
		return nil, apperr.Unexpected(err)
	}

	const mark = `UPDATE participants SET has_recording = TRUE, updated_at = NOW() WHERE id = $1`
	if _, err := tx.Exec(ctx, mark, p.ParticipantID); err != nil {
		return nil, apperr.Unexpected(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return &rec, nil
}

func (r *Repository) createFailureReason(ctx context.Context, p CreateRecordingParams) error {
	sess, err := r.GetSession(ctx, p.RecordingSessionID)
	if err != nil {
		return err
	}
	if sess.Status != models.SessionStatusActive {
		return apperr.InvalidState(apperr.CodeSessionNotActive, "recording session is not active")
	}
	const q = `SELECT 1 FROM participants WHERE id = $1 AND space_id = $2`
	var one int
	if err := r.pool.QueryRow(ctx, q, p.ParticipantID, sess.SpaceID).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(apperr.CodeParticipantNotFound, "participant is not in this space")
		}
		return apperr.Unexpected(err)
	}
	return apperr.Unexpected(errors.New("participant recording insert affected no rows"))
}

// UpdateRecording patches media metadata on a not-yet-complete track. Every
// patch stamps last_chunk_at, so metadata-only updates keep the track looking
// alive to staleness checks.
func (r *Repository) UpdateRecording(ctx context.Context, id uuid.UUID, p UpdateRecordingParams) (*models.ParticipantRecording, error) {
	const q = `UPDATE participant_recordings
		SET mime_type = COALESCE($2, mime_type),
		    width = COALESCE($3, width),
		    height = COALESCE($4, height),
		    expected_segments = COALESCE($5, expected_segments),
		    last_chunk_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND NOT is_complete
		RETURNING ` + recordingColumns
	var rec models.ParticipantRecording
	err := r.pool.QueryRow(ctx, q, id, p.MimeType, p.Width, p.Height, p.ExpectedSegments).
		Scan(recordingTargets(&rec)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.mutateFailureReason(ctx, id)
		}
		return nil, apperr.Unexpected(err)
	}
	return &rec, nil
}

// CompleteRecording finalizes a track: is_complete becomes true only when the
// ledger covers the declared count, so a short complete leaves the track open
// for the missing appends and a retried complete. The comparison happens
// inside the UPDATE so a racing segment append is counted.
func (r *Repository) CompleteRecording(ctx context.Context, id uuid.UUID, expectedSegments int) (*models.ParticipantRecording, error) {
	const q = `UPDATE participant_recordings
		SET expected_segments = $2,
		    is_complete = uploaded_segments >= $2,
		    status = CASE WHEN uploaded_segments >= $2 THEN 'UPLOADED' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1 AND NOT is_complete
		RETURNING ` + recordingColumns
	var rec models.ParticipantRecording
	err := r.pool.QueryRow(ctx, q, id, expectedSegments).Scan(recordingTargets(&rec)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.mutateFailureReason(ctx, id)
		}
		return nil, apperr.Unexpected(err)
	}
	return &rec, nil
}

func (r *Repository) mutateFailureReason(ctx context.Context, id uuid.UUID) error {
	_, err := r.GetRecording(ctx, id)
	if err != nil {
		return err
	}
	return apperr.InvalidState(apperr.CodeRecordingAlreadyComplete, "recording is already complete")
}

// GetRecording returns a track by id.
func (r *Repository) GetRecording(ctx context.Context, id uuid.UUID) (*models.ParticipantRecording, error) {
	const q = `SELECT ` + recordingColumns + ` FROM participant_recordings WHERE id = $1`
	var rec models.ParticipantRecording
	err := r.pool.QueryRow(ctx, q, id).Scan(recordingTargets(&rec)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(apperr.CodeRecordingNotFound, "recording not found")
		}
		return nil, apperr.Unexpected(err)
	}
	return &rec, nil
}

// ListRecordings returns a session's tracks in creation order.
func (r *Repository) ListRecordings(ctx context.Context, sessionID uuid.UUID) ([]models.ParticipantRecording, error) {
	const q = `SELECT ` + recordingColumns + ` FROM participant_recordings
		WHERE recording_session_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	defer rows.Close()

	out := []models.ParticipantRecording{}
	for rows.Next() {
		var rec models.ParticipantRecording
		if err := rows.Scan(recordingTargets(&rec)...); err != nil {
			return nil, apperr.Unexpected(err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return out, nil
}

// SetRecordingStatus force-sets a track's status, bypassing the completed
// guard. The verifier uses this after completion.
func (r *Repository) SetRecordingStatus(ctx context.Context, id uuid.UUID, status models.ParticipantRecordingStatus) (*models.ParticipantRecording, error) {
	const q = `UPDATE participant_recordings SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + recordingColumns
	var rec models.ParticipantRecording
	err := r.pool.QueryRow(ctx, q, id, status).Scan(recordingTargets(&rec)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(apperr.CodeRecordingNotFound, "recording not found")
		}
		return nil, apperr.Unexpected(err)
	}
	return &rec, nil
}

func sessionTargets(s *models.RecordingSession) []interface{} {
	return []interface{}{
		&s.ID, &s.SpaceID, &s.SpaceRecordingSessionID, &s.Status,
		&s.StartedAt, &s.StoppedAt, &s.CreatedAt, &s.UpdatedAt,
	}
}

func recordingTargets(rec *models.ParticipantRecording) []interface{} {
	return []interface{}{
		&rec.ID, &rec.RecordingSessionID, &rec.ParticipantID, &rec.Type, &rec.IsScreenShare,
		&rec.MimeType, &rec.Width, &rec.Height, &rec.Status, &rec.ExpectedSegments,
		&rec.UploadedSegments, &rec.IsComplete, &rec.LastChunkAt, &rec.CreatedAt, &rec.UpdatedAt,
	}
}
