// Package participants implements space membership: join/rejoin, leave,
// moderation (kick, role changes), and roster listing.
package participants

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-spaces/backend/internal/models"
)

// JoinParams are the inputs for joining a space. UserID is nil for guests;
// guests are identified within a space by SessionID instead.
type JoinParams struct {
	SpaceID     uuid.UUID
	UserID      *uuid.UUID
	SessionID   string
	DisplayName string
}

// JoinResult is the outcome of a join. Rejoined is true when an existing
// membership row was reactivated instead of a new one being created.
type JoinResult struct {
	Participant *models.Participant
	Space       *models.Space
	Rejoined    bool
}

// Store defines membership operations. A participant keeps one row per space
// for their whole membership history; rejoin reactivates that row in place
// and preserves the role it carried. Implementations rely on the store's
// partial unique indexes, not pre-checks, to keep the one-row-per-member
// invariant under concurrent joins.
type Store interface {
	// Join adds the caller to a LIVE space as a GUEST, or reactivates
	// their existing row. Joining a non-live space is
	// InvalidState(SPACE_NOT_LIVE).
	Join(ctx context.Context, p JoinParams) (*JoinResult, error)

	// Leave deactivates an active membership row. Leaving twice is
	// InvalidState(PARTICIPANT_ALREADY_LEFT), not a no-op.
	Leave(ctx context.Context, participantID uuid.UUID) (*models.Participant, error)

	// UpdateRole changes a non-host participant's role between CO_HOST and
	// GUEST. Touching the HOST row is InvalidState(CANNOT_CHANGE_HOST_ROLE).
	UpdateRole(ctx context.Context, participantID uuid.UUID, role models.ParticipantRole) (*models.Participant, error)

	// Kick force-deactivates an active non-host participant.
	Kick(ctx context.Context, participantID uuid.UUID) (*models.Participant, error)

	// List returns a space's participants, optionally only the active ones,
	// ordered by join time.
	List(ctx context.Context, spaceID uuid.UUID, activeOnly bool) ([]models.Participant, error)

	// GetByID returns a participant by id.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Participant, error)

	// GetBySpaceAndUser returns the membership row of a signed-in user.
	GetBySpaceAndUser(ctx context.Context, spaceID, userID uuid.UUID) (*models.Participant, error)

	// GetBySpaceAndSession returns a guest membership row by session id.
	GetBySpaceAndSession(ctx context.Context, spaceID uuid.UUID, sessionID string) (*models.Participant, error)
}
