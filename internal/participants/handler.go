package participants

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-spaces/backend/internal/auth"
	"github.com/aura-spaces/backend/internal/authz"
	"github.com/aura-spaces/backend/internal/models"
	"github.com/aura-spaces/backend/pkg/response"
)

// SpaceSource is the slice of the space store the membership handler needs.
type SpaceSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Space, error)
}

// Handler handles membership HTTP endpoints.
type Handler struct {
	store  Store
	spaces SpaceSource
	guard  *authz.Guard
	logger *zap.Logger
}

// NewHandler creates a membership handler.
func NewHandler(store Store, spaces SpaceSource, guard *authz.Guard, logger *zap.Logger) *Handler {
	return &Handler{store: store, spaces: spaces, guard: guard, logger: logger}
}

type joinRequest struct {
	DisplayName string `json:"display_name" binding:"required,max=100"`
	SessionID   string `json:"session_id" binding:"required,max=128"`
}

type leaveRequest struct {
	SessionID string `json:"session_id" binding:"omitempty,max=128"`
}

type updateRoleRequest struct {
	Role models.ParticipantRole `json:"role" binding:"required,oneof=CO_HOST GUEST"`
}

// Join handles POST /spaces/:id/join. Signed-in callers are keyed by their
// user id, guests by the client-supplied session id. Rejoining reactivates
// the caller's existing row with its role intact.
func (h *Handler) Join(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid space id")
		return
	}
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	params := JoinParams{
		SpaceID:     spaceID,
		SessionID:   req.SessionID,
		DisplayName: req.DisplayName,
	}
	if v, ok := c.Get(auth.ContextUserID); ok {
		userID := v.(uuid.UUID)
		params.UserID = &userID
	}

	res, err := h.store.Join(c.Request.Context(), params)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	data := gin.H{"participant": res.Participant, "space": res.Space, "rejoined": res.Rejoined}
	if res.Rejoined {
		response.OK(c, data)
		return
	}
	response.Created(c, data)
}

// Leave handles POST /spaces/:id/leave. Guests identify themselves with
// their session id; signed-in callers are matched by user id.
func (h *Handler) Leave(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid space id")
		return
	}
	var req leaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var p *models.Participant
	if v, ok := c.Get(auth.ContextUserID); ok {
		p, err = h.store.GetBySpaceAndUser(c.Request.Context(), spaceID, v.(uuid.UUID))
	} else {
		if req.SessionID == "" {
			response.BadRequest(c, "session_id is required for guests")
			return
		}
		p, err = h.store.GetBySpaceAndSession(c.Request.Context(), spaceID, req.SessionID)
	}
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	left, err := h.store.Leave(c.Request.Context(), p.ID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, left)
}

// List handles GET /spaces/:id/participants. Members only; ?active=true
// narrows to the current roster.
func (h *Handler) List(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid space id")
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	space, err := h.spaces.GetByID(c.Request.Context(), spaceID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if err := h.guard.RequireMember(c.Request.Context(), space, userID); err != nil {
		response.Error(c, h.logger, err)
		return
	}

	list, err := h.store.List(c.Request.Context(), spaceID, c.Query("active") == "true")
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// UpdateRole handles PATCH /participants/:id/role. Host only; the host's
// own row cannot be retargeted.
func (h *Handler) UpdateRole(c *gin.Context) {
	participantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid participant id")
		return
	}
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	target, err := h.store.GetByID(c.Request.Context(), participantID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	space, err := h.spaces.GetByID(c.Request.Context(), target.SpaceID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if err := h.guard.RequireHost(space, userID); err != nil {
		response.Error(c, h.logger, err)
		return
	}

	updated, err := h.store.UpdateRole(c.Request.Context(), participantID, req.Role)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	h.logger.Info("participant role updated",
		zap.String("participant_id", updated.ID.String()),
		zap.String("role", string(updated.Role)),
	)
	response.OK(c, updated)
}

// Kick handles POST /participants/:id/kick. Host or co-host; the host
// cannot be kicked.
func (h *Handler) Kick(c *gin.Context) {
	participantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid participant id")
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	target, err := h.store.GetByID(c.Request.Context(), participantID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	space, err := h.spaces.GetByID(c.Request.Context(), target.SpaceID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if err := h.guard.RequireModerator(c.Request.Context(), space, userID); err != nil {
		response.Error(c, h.logger, err)
		return
	}

	kicked, err := h.store.Kick(c.Request.Context(), participantID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	h.logger.Info("participant kicked",
		zap.String("participant_id", kicked.ID.String()),
		zap.String("space_id", kicked.SpaceID.String()),
	)
	response.OK(c, kicked)
}
