// Package authz centralizes the role gates used by handlers. Checks are
// read-only: a refused caller never mutates state.
package authz

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-spaces/backend/internal/models"
	"github.com/aura-spaces/backend/pkg/apperr"
)

// ParticipantSource looks up a caller's membership row in a space.
type ParticipantSource interface {
	GetBySpaceAndUser(ctx context.Context, spaceID, userID uuid.UUID) (*models.Participant, error)
}

// Guard evaluates authorization predicates against space and membership state.
type Guard struct {
	participants ParticipantSource
}

// NewGuard creates a guard backed by the given membership source.
func NewGuard(participants ParticipantSource) *Guard {
	return &Guard{participants: participants}
}

// RequireHost refuses every caller except the space's host.
func (g *Guard) RequireHost(space *models.Space, userID uuid.UUID) error {
	if space.HostUserID != userID {
		return apperr.Forbidden("only the host can perform this action")
	}
	return nil
}

// RequireModerator refuses callers who are neither the host nor an active
// CO_HOST participant of the space.
func (g *Guard) RequireModerator(ctx context.Context, space *models.Space, userID uuid.UUID) error {
	if space.HostUserID == userID {
		return nil
	}
	p, err := g.participants.GetBySpaceAndUser(ctx, space.ID, userID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.Forbidden("moderator role required")
		}
		return err
	}
	if !p.IsActive || !p.CanModerate() {
		return apperr.Forbidden("moderator role required")
	}
	return nil
}

// RequireMember refuses callers with no membership row in the space at all.
// The host always passes; an inactive (left) participant still counts as a
// member for read access.
func (g *Guard) RequireMember(ctx context.Context, space *models.Space, userID uuid.UUID) error {
	if space.HostUserID == userID {
		return nil
	}
	_, err := g.participants.GetBySpaceAndUser(ctx, space.ID, userID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.Forbidden("not a participant of this space")
		}
		return err
	}
	return nil
}
