package models

import (
	"time"

	"github.com/google/uuid"
)

// SpaceStatus is the space lifecycle status.
type SpaceStatus string

const (
	SpaceStatusLive  SpaceStatus = "LIVE"
	SpaceStatusEnded SpaceStatus = "ENDED"
)

// RecordingStatus is the cached recording projection on a space. It is
// updated only inside the same transaction as the session-state change.
type RecordingStatus string

const (
	RecordingStatusNone      RecordingStatus = "NONE"
	RecordingStatusRecording RecordingStatus = "RECORDING"
	RecordingStatusStopped   RecordingStatus = "STOPPED"
)

// Space is a live meeting instance with a globally unique join code.
type Space struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	JoinCode        string          `json:"join_code"`
	HostUserID      uuid.UUID       `json:"host_user_id"`
	Status          SpaceStatus     `json:"status"`
	RecordingStatus RecordingStatus `json:"recording_status"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
	DurationSeconds *int64          `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SpacePreview is the public shape returned for join-code lookups. It never
// exposes host identity or recording state.
type SpacePreview struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	JoinCode    string      `json:"join_code"`
	Status      SpaceStatus `json:"status"`
	StartTime   time.Time   `json:"start_time"`
}

// ToPreview converts a Space to its public preview.
func (s *Space) ToPreview() SpacePreview {
	return SpacePreview{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		JoinCode:    s.JoinCode,
		Status:      s.Status,
		StartTime:   s.StartTime,
	}
}

// IsLive reports whether the space accepts joins and recordings.
func (s *Space) IsLive() bool { return s.Status == SpaceStatusLive }
