package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantRole is a participant's role within a space.
type ParticipantRole string

const (
	// RoleHost is the space creator. Exactly one per space, assigned at
	// creation; never reassigned or removed.
	RoleHost   ParticipantRole = "HOST"
	RoleCoHost ParticipantRole = "CO_HOST"
	RoleGuest  ParticipantRole = "GUEST"
)

// Participant binds an identity or guest session to a space.
// De-duplication key: (space_id, user_id) for authenticated identities,
// (space_id, participant_session_id) for guests.
type Participant struct {
	ID                   uuid.UUID       `json:"id"`
	SpaceID              uuid.UUID       `json:"space_id"`
	UserID               *uuid.UUID      `json:"user_id,omitempty"`
	ParticipantSessionID string          `json:"participant_session_id"`
	DisplayName          string          `json:"display_name"`
	Role                 ParticipantRole `json:"role"`
	IsActive             bool            `json:"is_active"`
	IsGuest              bool            `json:"is_guest"`
	HasRecording         bool            `json:"has_recording"`
	JoinedAt             time.Time       `json:"joined_at"`
	LeftAt               *time.Time      `json:"left_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// IsHost reports whether this participant is the space host.
func (p *Participant) IsHost() bool { return p.Role == RoleHost }

// CanModerate reports whether this participant may act on other participants.
func (p *Participant) CanModerate() bool {
	return p.IsActive && (p.Role == RoleHost || p.Role == RoleCoHost)
}
