package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-spaces/backend/pkg/response"
)

// ContextUserID is the gin context key under which the auth middleware
// stores the resolved internal user id.
const ContextUserID = "user_id"

// Handler handles identity HTTP endpoints.
type Handler struct {
	resolver Resolver
	logger   *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(resolver Resolver, logger *zap.Logger) *Handler {
	return &Handler{resolver: resolver, logger: logger}
}

// Me handles GET /auth/me: returns the user record for the verified caller.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet(ContextUserID).(uuid.UUID)
	u, err := h.resolver.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, u)
}
