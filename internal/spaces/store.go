// Package spaces implements the space lifecycle: creation with its host
// participant, live updates, and the single irreversible end transition.
package spaces

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-spaces/backend/internal/models"
)

// CreateParams are the inputs for creating a space. The host participant is
// inserted in the same transaction as the space itself.
type CreateParams struct {
	Title           string
	Description     string
	JoinCode        string
	HostUserID      uuid.UUID
	HostDisplayName string
	HostSessionID   string
}

// UpdateParams is a partial patch for mutable space fields.
type UpdateParams struct {
	Title       *string
	Description *string
}

// Store defines space lifecycle operations. Implementations must keep the
// space + host-participant insert and the end + mass-deactivate step atomic,
// and must surface join-code collisions as Conflict(JOIN_CODE_TAKEN) from
// the store's own uniqueness constraint, not from a pre-check.
type Store interface {
	// Create inserts a LIVE space together with its HOST participant.
	Create(ctx context.Context, p CreateParams) (*models.Space, *models.Participant, error)

	// End transitions LIVE -> ENDED exactly once, stamps end_time and
	// duration, and deactivates every active participant. Ending twice is
	// InvalidState(SPACE_NOT_LIVE), not a no-op.
	End(ctx context.Context, spaceID uuid.UUID) (*models.Space, error)

	// Update applies a partial patch to title/description.
	Update(ctx context.Context, spaceID uuid.UUID, p UpdateParams) (*models.Space, error)

	// GetByID returns a space by id.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Space, error)

	// GetByJoinCode returns a space by its join code.
	GetByJoinCode(ctx context.Context, code string) (*models.Space, error)
}
