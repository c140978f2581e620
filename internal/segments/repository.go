package segments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-spaces/backend/internal/models"
	"github.com/aura-spaces/backend/pkg/apperr"
)

const segmentColumns = `id, participant_recording_id, sequence_number, asset_key,
	start_ms, duration_ms, size_bytes, COALESCE(checksum, ''), status, uploaded_at`

// Repository is the Postgres-backed segment store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a segment repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append bumps the recording's counter and inserts the segment row in one
// transaction. The increment happens in SQL so concurrent appends never lose
// updates; the NOT is_complete guard refuses late chunks.
func (r *Repository) Append(ctx context.Context, p AppendParams) (*models.RecordingSegment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	defer tx.Rollback(ctx)

	const bump = `UPDATE participant_recordings
		SET uploaded_segments = uploaded_segments + 1, last_chunk_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND NOT is_complete`
	tag, err := tx.Exec(ctx, bump, p.ParticipantRecordingID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, r.appendFailureReason(ctx, p.ParticipantRecordingID)
	}

	const insert = `INSERT INTO recording_segments
			(participant_recording_id, sequence_number, asset_key, start_ms, duration_ms, size_bytes, checksum)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING ` + segmentColumns
	var seg models.RecordingSegment
	err = tx.QueryRow(ctx, insert,
		p.ParticipantRecordingID, p.SequenceNumber, p.AssetKey, p.StartMs, p.DurationMs, p.SizeBytes, p.Checksum).
		Scan(segmentTargets(&seg)...)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return &seg, nil
}

func (r *Repository) appendFailureReason(ctx context.Context, recordingID uuid.UUID) error {
	const q = `SELECT is_complete FROM participant_recordings WHERE id = $1`
	var complete bool
	err := r.pool.QueryRow(ctx, q, recordingID).Scan(&complete)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(apperr.CodeRecordingNotFound, "recording not found")
		}
		return apperr.Unexpected(err)
	}
	return apperr.InvalidState(apperr.CodeRecordingAlreadyComplete, "recording is already complete")
}

// List returns a recording's segments ordered by sequence number, then
// upload time for duplicates.
func (r *Repository) List(ctx context.Context, recordingID uuid.UUID) ([]models.RecordingSegment, error) {
	const q = `SELECT ` + segmentColumns + ` FROM recording_segments
		WHERE participant_recording_id = $1
		ORDER BY sequence_number ASC, uploaded_at ASC`
	rows, err := r.pool.Query(ctx, q, recordingID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	defer rows.Close()

	out := []models.RecordingSegment{}
	for rows.Next() {
		var seg models.RecordingSegment
		if err := rows.Scan(segmentTargets(&seg)...); err != nil {
			return nil, apperr.Unexpected(err)
		}
		out = append(out, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return out, nil
}

// SetStatus marks a segment UPLOADED or MISSING.
func (r *Repository) SetStatus(ctx context.Context, segmentID uuid.UUID, status models.SegmentStatus) error {
	const q = `UPDATE recording_segments SET status = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, segmentID, status)
	if err != nil {
		return apperr.Unexpected(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(apperr.CodeRecordingNotFound, "segment not found")
	}
	return nil
}

func segmentTargets(seg *models.RecordingSegment) []interface{} {
	return []interface{}{
		&seg.ID, &seg.ParticipantRecordingID, &seg.SequenceNumber, &seg.AssetKey,
		&seg.StartMs, &seg.DurationMs, &seg.SizeBytes, &seg.Checksum, &seg.Status, &seg.UploadedAt,
	}
}
