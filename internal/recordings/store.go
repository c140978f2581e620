// Package recordings implements recording sessions (one activation window of
// recording per space) and the per-participant track records within them.
package recordings

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-spaces/backend/internal/models"
)

// StartSessionParams are the inputs for activating recording on a space.
// ClientSessionID is a client-chosen id, unique within the space, that makes
// a retried start land on the already-created session.
type StartSessionParams struct {
	SpaceID         uuid.UUID
	ClientSessionID string
}

// CreateRecordingParams are the inputs for registering one participant track.
type CreateRecordingParams struct {
	RecordingSessionID uuid.UUID
	ParticipantID      uuid.UUID
	Type               models.RecordingType
	IsScreenShare      bool
	MimeType           string
	Width              int
	Height             int
}

// UpdateRecordingParams is a partial patch for a track's media metadata.
type UpdateRecordingParams struct {
	MimeType         *string
	Width            *int
	Height           *int
	ExpectedSegments *int
}

// Store defines recording-session and track operations. Implementations must
// keep each session-state change and its mirrored Space.RecordingStatus flip
// in one transaction, and must surface the one-active-session rule as
// Conflict(RECORDING_ALREADY_ACTIVE) from the store's own partial unique
// index.
type Store interface {
	// StartSession activates recording on a LIVE space and flips the
	// space's recording_status to RECORDING atomically. Starting with a
	// ClientSessionID the space has already seen returns the existing
	// session.
	StartSession(ctx context.Context, p StartSessionParams) (*models.RecordingSession, error)

	// StopSession transitions ACTIVE -> STOPPED exactly once and flips the
	// space's recording_status to STOPPED atomically.
	StopSession(ctx context.Context, sessionID uuid.UUID) (*models.RecordingSession, error)

	// GetSession returns a session by id.
	GetSession(ctx context.Context, id uuid.UUID) (*models.RecordingSession, error)

	// ListSessions returns a space's sessions, newest first.
	ListSessions(ctx context.Context, spaceID uuid.UUID) ([]models.RecordingSession, error)

	// CreateRecording registers a track under an ACTIVE session and marks
	// the owning participant's has_recording flag in the same transaction.
	CreateRecording(ctx context.Context, p CreateRecordingParams) (*models.ParticipantRecording, error)

	// UpdateRecording patches a track's media metadata. Completed tracks
	// refuse patches with InvalidState(RECORDING_ALREADY_COMPLETE).
	UpdateRecording(ctx context.Context, id uuid.UUID, p UpdateRecordingParams) (*models.ParticipantRecording, error)

	// CompleteRecording finalizes a track with the uploader's expected
	// segment count. When the uploaded counter already covers the expected
	// count the track moves to UPLOADED; otherwise it keeps its status for
	// the verifier to settle.
	CompleteRecording(ctx context.Context, id uuid.UUID, expectedSegments int) (*models.ParticipantRecording, error)

	// GetRecording returns a track by id.
	GetRecording(ctx context.Context, id uuid.UUID) (*models.ParticipantRecording, error)

	// ListRecordings returns a session's tracks in creation order.
	ListRecordings(ctx context.Context, sessionID uuid.UUID) ([]models.ParticipantRecording, error)

	// SetRecordingStatus force-sets a track's status. Used by the segment
	// verifier, which runs after completion and is exempt from the
	// completed-track guard.
	SetRecordingStatus(ctx context.Context, id uuid.UUID, status models.ParticipantRecordingStatus) (*models.ParticipantRecording, error)
}
