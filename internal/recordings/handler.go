package recordings

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-spaces/backend/internal/auth"
	"github.com/aura-spaces/backend/internal/authz"
	"github.com/aura-spaces/backend/internal/models"
	"github.com/aura-spaces/backend/pkg/apperr"
	"github.com/aura-spaces/backend/pkg/queue"
	"github.com/aura-spaces/backend/pkg/response"
)

// SpaceSource is the slice of the space store the recording handler needs.
type SpaceSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Space, error)
}

// ParticipantSource resolves membership rows for ownership checks.
type ParticipantSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Participant, error)
	GetBySpaceAndUser(ctx context.Context, spaceID, userID uuid.UUID) (*models.Participant, error)
}

// VerifyEnqueuer schedules post-completion segment verification.
type VerifyEnqueuer interface {
	EnqueueSegmentVerify(ctx context.Context, payload queue.SegmentVerifyPayload) error
}

// Handler handles recording HTTP endpoints.
type Handler struct {
	store        Store
	spaces       SpaceSource
	participants ParticipantSource
	guard        *authz.Guard
	verify       VerifyEnqueuer
	logger       *zap.Logger
}

// NewHandler creates a recording handler.
func NewHandler(store Store, spaces SpaceSource, participants ParticipantSource, guard *authz.Guard, verify VerifyEnqueuer, logger *zap.Logger) *Handler {
	return &Handler{store: store, spaces: spaces, participants: participants, guard: guard, verify: verify, logger: logger}
}

type startSessionRequest struct {
	SessionID string `json:"session_id" binding:"required,max=128"`
}

type createRecordingRequest struct {
	Type          models.RecordingType `json:"type" binding:"required,oneof=AUDIO VIDEO"`
	IsScreenShare bool                 `json:"is_screen_share"`
	MimeType      string               `json:"mime_type" binding:"omitempty,max=100"`
	Width         int                  `json:"width" binding:"omitempty,min=0"`
	Height        int                  `json:"height" binding:"omitempty,min=0"`
}

type updateRecordingRequest struct {
	MimeType         *string `json:"mime_type" binding:"omitempty,max=100"`
	Width            *int    `json:"width" binding:"omitempty,min=0"`
	Height           *int    `json:"height" binding:"omitempty,min=0"`
	ExpectedSegments *int    `json:"expected_segments" binding:"omitempty,min=0"`
}

type completeRecordingRequest struct {
	ExpectedSegments *int `json:"expected_segments" binding:"required,min=0"`
}

// StartSession handles POST /spaces/:id/recording/start. Host or co-host.
func (h *Handler) StartSession(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid space id")
		return
	}
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	space, err := h.spaces.GetByID(c.Request.Context(), spaceID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if err := h.guard.RequireModerator(c.Request.Context(), space, userID); err != nil {
		response.Error(c, h.logger, err)
		return
	}

	session, err := h.store.StartSession(c.Request.Context(), StartSessionParams{
		SpaceID:         spaceID,
		ClientSessionID: req.SessionID,
	})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	h.logger.Info("recording session started",
		zap.String("space_id", spaceID.String()),
		zap.String("session_id", session.ID.String()),
	)
	response.Created(c, session)
}

// StopSession handles POST /recording-sessions/:id/stop. Host or co-host of
// the session's space.
func (h *Handler) StopSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	session, err := h.store.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	space, err := h.spaces.GetByID(c.Request.Context(), session.SpaceID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if err := h.guard.RequireModerator(c.Request.Context(), space, userID); err != nil {
		response.Error(c, h.logger, err)
		return
	}

	stopped, err := h.store.StopSession(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, stopped)
}

// ListSessions handles GET /spaces/:id/recording-sessions. Members only.
func (h *Handler) ListSessions(c *gin.Context) {
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

	sessions, err := h.store.ListSessions(c.Request.Context(), spaceID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, sessions)
}

// ListRecordings handles GET /recording-sessions/:id/recordings. Members of
// the session's space only.
func (h *Handler) ListRecordings(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	session, err := h.store.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	space, err := h.spaces.GetByID(c.Request.Context(), session.SpaceID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if err := h.guard.RequireMember(c.Request.Context(), space, userID); err != nil {
		response.Error(c, h.logger, err)
		return
	}

	recs, err := h.store.ListRecordings(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, recs)
}

// CreateRecording handles POST /recording-sessions/:id/recordings. The track
// is owned by the caller's own membership row in the session's space.
func (h *Handler) CreateRecording(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req createRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	session, err := h.store.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	me, err := h.participants.GetBySpaceAndUser(c.Request.Context(), session.SpaceID, userID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			response.Error(c, h.logger, apperr.Forbidden("not a participant of this space"))
			return
		}
		response.Error(c, h.logger, err)
		return
	}

	rec, err := h.store.CreateRecording(c.Request.Context(), CreateRecordingParams{
		RecordingSessionID: sessionID,
		ParticipantID:      me.ID,
		Type:               req.Type,
		IsScreenShare:      req.IsScreenShare,
		MimeType:           req.MimeType,
		Width:              req.Width,
		Height:             req.Height,
	})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.Created(c, rec)
}

// UpdateRecording handles PATCH /recordings/:id. Owner only.
func (h *Handler) UpdateRecording(c *gin.Context) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	var req updateRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	if _, err := h.ownedRecording(c.Request.Context(), recordingID, userID); err != nil {
		response.Error(c, h.logger, err)
		return
	}

	rec, err := h.store.UpdateRecording(c.Request.Context(), recordingID, UpdateRecordingParams{
		MimeType:         req.MimeType,
		Width:            req.Width,
		Height:           req.Height,
		ExpectedSegments: req.ExpectedSegments,
	})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, rec)
}

// CompleteRecording handles POST /recordings/:id/complete. Owner only; a
// verification job is scheduled after the commit.
func (h *Handler) CompleteRecording(c *gin.Context) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	var req completeRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	if _, err := h.ownedRecording(c.Request.Context(), recordingID, userID); err != nil {
		response.Error(c, h.logger, err)
		return
	}

	rec, err := h.store.CompleteRecording(c.Request.Context(), recordingID, *req.ExpectedSegments)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	session, err := h.store.GetSession(c.Request.Context(), rec.RecordingSessionID)
	if err != nil {
		// Completion already committed; the lost verification is traceable
		// from this log line.
		h.logger.Warn("failed to load session for segment verify",
			zap.String("recording_id", rec.ID.String()),
			zap.Error(err),
		)
	} else if qerr := h.verify.EnqueueSegmentVerify(c.Request.Context(), queue.SegmentVerifyPayload{
		ParticipantRecordingID: rec.ID,
		RecordingSessionID:     session.ID,
		SpaceID:                session.SpaceID,
	}); qerr != nil {
		h.logger.Warn("failed to enqueue segment verify",
			zap.String("recording_id", rec.ID.String()),
			zap.Error(qerr),
		)
	}
	response.OK(c, rec)
}

// ownedRecording loads a recording and refuses callers who do not own its
// participant row.
func (h *Handler) ownedRecording(ctx context.Context, recordingID, userID uuid.UUID) (*models.ParticipantRecording, error) {
	rec, err := h.store.GetRecording(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	owner, err := h.participants.GetByID(ctx, rec.ParticipantID)
	if err != nil {
		return nil, err
	}
	if owner.UserID == nil || *owner.UserID != userID {
		return nil, apperr.Forbidden("recording belongs to another participant")
	}
	return rec, nil
}
