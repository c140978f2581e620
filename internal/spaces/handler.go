package spaces

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-spaces/backend/internal/auth"
	"github.com/aura-spaces/backend/internal/authz"
	"github.com/aura-spaces/backend/pkg/apperr"
	"github.com/aura-spaces/backend/pkg/response"
)

// maxJoinCodeAttempts bounds the create retry loop when a generated join
// code collides with an existing one.
const maxJoinCodeAttempts = 5

// Handler handles space HTTP endpoints.
type Handler struct {
	store  Store
	guard  *authz.Guard
	logger *zap.Logger
}

// NewHandler creates a space handler.
func NewHandler(store Store, guard *authz.Guard, logger *zap.Logger) *Handler {
	return &Handler{store: store, guard: guard, logger: logger}
}

type createRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
	DisplayName string `json:"display_name" binding:"required,max=100"`
	SessionID   string `json:"session_id" binding:"required,max=128"`
}

type updateRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// Create handles POST /spaces. The caller becomes the host and gets an
// active HOST participant row in the same transaction. The join code is
// generated server-side and regenerated on collision.
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	for attempt := 0; attempt < maxJoinCodeAttempts; attempt++ {
		code, err := newJoinCode()
		if err != nil {
			response.Error(c, h.logger, apperr.Unexpected(err))
			return
		}
		space, host, err := h.store.Create(c.Request.Context(), CreateParams{
			Title:           req.Title,
			Description:     req.Description,
			JoinCode:        code,
			HostUserID:      userID,
			HostDisplayName: req.DisplayName,
			HostSessionID:   req.SessionID,
		})
		if err != nil {
			if apperr.CodeOf(err) == apperr.CodeJoinCodeTaken {
				continue
			}
			response.Error(c, h.logger, err)
			return
		}
		response.Created(c, gin.H{"space": space, "participant": host})
		return
	}
	response.Error(c, h.logger, apperr.Conflict(apperr.CodeJoinCodeTaken, "could not allocate a join code"))
}

// Get handles GET /spaces/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid space id")
		return
	}
	space, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, space)
}

// GetByCode handles GET /spaces/code/:code. Public: returns only the
// preview fields needed to render a join screen.
func (h *Handler) GetByCode(c *gin.Context) {
	space, err := h.store.GetByJoinCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, space.ToPreview())
}

// Update handles PATCH /spaces/:id. Host only.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid space id")
		return
	}
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	space, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if err := h.guard.RequireHost(space, userID); err != nil {
		response.Error(c, h.logger, err)
		return
	}
	updated, err := h.store.Update(c.Request.Context(), id, UpdateParams{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, updated)
}

// End handles POST /spaces/:id/end. Host only; ending twice is a conflict.
func (h *Handler) End(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid space id")
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	space, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if err := h.guard.RequireHost(space, userID); err != nil {
		response.Error(c, h.logger, err)
		return
	}
	ended, err := h.store.End(c.Request.Context(), id)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	h.logger.Info("space ended",
		zap.String("space_id", ended.ID.String()),
		zap.Int64p("duration_seconds", ended.DurationSeconds),
	)
	response.OK(c, ended)
}
