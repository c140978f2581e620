package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the recording session lifecycle.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "ACTIVE"
	SessionStatusStopped SessionStatus = "STOPPED"
)

// RecordingSession is one continuous recording-activation window for a space.
// At most one ACTIVE session exists per space, enforced by a partial unique
// index; its activation/deactivation is mirrored into Space.RecordingStatus
// in the same transaction.
type RecordingSession struct {
	ID                      uuid.UUID     `json:"id"`
	SpaceID                 uuid.UUID     `json:"space_id"`
	SpaceRecordingSessionID string        `json:"space_recording_session_id"`
	Status                  SessionStatus `json:"status"`
	StartedAt               time.Time     `json:"started_at"`
	StoppedAt               *time.Time    `json:"stopped_at,omitempty"`
	CreatedAt               time.Time     `json:"created_at"`
	UpdatedAt               time.Time     `json:"updated_at"`
}

// RecordingType is the media kind of a participant recording.
type RecordingType string

const (
	RecordingTypeAudio RecordingType = "AUDIO"
	RecordingTypeVideo RecordingType = "VIDEO"
)

// ParticipantRecordingStatus is the upload/processing lifecycle of one track.
type ParticipantRecordingStatus string

const (
	ParticipantRecordingUploading  ParticipantRecordingStatus = "UPLOADING"
	ParticipantRecordingUploaded   ParticipantRecordingStatus = "UPLOADED"
	ParticipantRecordingProcessing ParticipantRecordingStatus = "PROCESSING"
	ParticipantRecordingReady      ParticipantRecordingStatus = "READY"
	ParticipantRecordingFailed     ParticipantRecordingStatus = "FAILED"
)

// ParticipantRecording is one audio/video track's recording record within a
// session, owned by exactly one participant. Mutation rights derive from
// participant_id equality.
type ParticipantRecording struct {
	ID                 uuid.UUID                  `json:"id"`
	RecordingSessionID uuid.UUID                  `json:"recording_session_id"`
	ParticipantID      uuid.UUID                  `json:"participant_id"`
	Type               RecordingType              `json:"type"`
	IsScreenShare      bool                       `json:"is_screen_share"`
	MimeType           string                     `json:"mime_type,omitempty"`
	Width              int                        `json:"width,omitempty"`
	Height             int                        `json:"height,omitempty"`
	Status             ParticipantRecordingStatus `json:"status"`
	ExpectedSegments   *int                       `json:"expected_segments,omitempty"`
	UploadedSegments   int                        `json:"uploaded_segments"`
	IsComplete         bool                       `json:"is_complete"`
	LastChunkAt        *time.Time                 `json:"last_chunk_at,omitempty"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

// SegmentStatus is the per-segment upload status.
type SegmentStatus string

const (
	SegmentStatusUploaded SegmentStatus = "UPLOADED"
	SegmentStatusMissing  SegmentStatus = "MISSING"
)

// RecordingSegment is one uploaded chunk of a participant recording. The
// ledger accepts duplicate and gapped sequence numbers; reconciliation is a
// downstream concern.
type RecordingSegment struct {
	ID                     uuid.UUID     `json:"id"`
	ParticipantRecordingID uuid.UUID     `json:"participant_recording_id"`
	SequenceNumber         int           `json:"sequence_number"`
	AssetKey               string        `json:"asset_key"`
	StartMs                int64         `json:"start_ms"`
	DurationMs             int64         `json:"duration_ms"`
	SizeBytes              int64         `json:"size_bytes"`
	Checksum               string        `json:"checksum,omitempty"`
	Status                 SegmentStatus `json:"status"`
	UploadedAt             time.Time     `json:"uploaded_at"`
}
