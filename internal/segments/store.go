// Package segments implements the per-chunk upload ledger for participant
// recordings, plus pre-signed URL issuance for direct-to-storage uploads.
package segments

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-spaces/backend/internal/models"
)

// AppendParams are the inputs for registering one uploaded chunk.
type AppendParams struct {
	ParticipantRecordingID uuid.UUID
	SequenceNumber         int
	AssetKey               string
	StartMs                int64
	DurationMs             int64
	SizeBytes              int64
	Checksum               string
}

// Store defines segment ledger operations. Appending a segment and bumping
// the owning recording's uploaded counter must be atomic; the counter is
// incremented in the store, never read-modify-written by callers. Duplicate
// and gapped sequence numbers are accepted.
type Store interface {
	// Append records an uploaded chunk against a not-yet-complete
	// recording and increments its uploaded_segments counter atomically.
	// Appending to a completed recording is
	// InvalidState(RECORDING_ALREADY_COMPLETE).
	Append(ctx context.Context, p AppendParams) (*models.RecordingSegment, error)

	// List returns a recording's segments ordered by sequence number.
	List(ctx context.Context, recordingID uuid.UUID) ([]models.RecordingSegment, error)

	// SetStatus marks a segment UPLOADED or MISSING. Used by the verifier.
	SetStatus(ctx context.Context, segmentID uuid.UUID, status models.SegmentStatus) error
}
