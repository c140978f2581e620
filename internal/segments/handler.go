package segments

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-spaces/backend/internal/auth"
	"github.com/aura-spaces/backend/internal/models"
	"github.com/aura-spaces/backend/pkg/apperr"
	"github.com/aura-spaces/backend/pkg/response"
	"github.com/aura-spaces/backend/pkg/storage"
)

// RecordingSource resolves recordings and their sessions for ownership and
// asset-key derivation.
type RecordingSource interface {
	GetRecording(ctx context.Context, id uuid.UUID) (*models.ParticipantRecording, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.RecordingSession, error)
}

// ParticipantSource resolves membership rows for ownership checks.
type ParticipantSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Participant, error)
}

// URLSigner issues pre-signed upload URLs for direct-to-storage segment
// uploads.
type URLSigner interface {
	GeneratePresignedUploadURL(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	PresignExpire() time.Duration
}

// Handler handles segment HTTP endpoints.
type Handler struct {
	store        Store
	recordings   RecordingSource
	participants ParticipantSource
	signer       URLSigner
	logger       *zap.Logger
}

// NewHandler creates a segment handler.
func NewHandler(store Store, recordings RecordingSource, participants ParticipantSource, signer URLSigner, logger *zap.Logger) *Handler {
	return &Handler{store: store, recordings: recordings, participants: participants, signer: signer, logger: logger}
}

type appendRequest struct {
	SequenceNumber *int   `json:"sequence_number" binding:"required,min=0"`
	AssetKey       string `json:"asset_key" binding:"omitempty,max=1024"`
	StartMs        int64  `json:"start_ms" binding:"omitempty,min=0"`
	DurationMs     int64  `json:"duration_ms" binding:"omitempty,min=0"`
	SizeBytes      int64  `json:"size_bytes" binding:"omitempty,min=0"`
	Checksum       string `json:"checksum" binding:"omitempty,max=128"`
}

type uploadURLRequest struct {
	SequenceNumber *int   `json:"sequence_number" binding:"required,min=0"`
	ContentType    string `json:"content_type" binding:"omitempty,max=100"`
}

// Append handles POST /recordings/:id/segments. Owner only. When the client
// omits asset_key the canonical segment key is derived server-side.
func (h *Handler) Append(c *gin.Context) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	var req appendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	rec, err := h.ownedRecording(c.Request.Context(), recordingID, userID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	assetKey := req.AssetKey
	if assetKey == "" {
		session, serr := h.recordings.GetSession(c.Request.Context(), rec.RecordingSessionID)
		if serr != nil {
			response.Error(c, h.logger, serr)
			return
		}
		assetKey = storage.SegmentKey(session.SpaceID.String(), rec.ID.String(), *req.SequenceNumber)
	}

	seg, err := h.store.Append(c.Request.Context(), AppendParams{
		ParticipantRecordingID: recordingID,
		SequenceNumber:         *req.SequenceNumber,
		AssetKey:               assetKey,
		StartMs:                req.StartMs,
		DurationMs:             req.DurationMs,
		SizeBytes:              req.SizeBytes,
		Checksum:               req.Checksum,
	})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.Created(c, seg)
}

// List handles GET /recordings/:id/segments. Owner only.
func (h *Handler) List(c *gin.Context) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	if _, err := h.ownedRecording(c.Request.Context(), recordingID, userID); err != nil {
		response.Error(c, h.logger, err)
		return
	}

	list, err := h.store.List(c.Request.Context(), recordingID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// UploadURL handles POST /recordings/:id/segments/upload-url. Owner only:
// issues a pre-signed PUT URL so segment bytes go straight to storage.
func (h *Handler) UploadURL(c *gin.Context) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)

	rec, err := h.ownedRecording(c.Request.Context(), recordingID, userID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if rec.IsComplete {
		response.Error(c, h.logger, apperr.InvalidState(apperr.CodeRecordingAlreadyComplete, "recording is already complete"))
		return
	}

	session, err := h.recordings.GetSession(c.Request.Context(), rec.RecordingSessionID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "video/webm"
	}
	key := storage.SegmentKey(session.SpaceID.String(), rec.ID.String(), *req.SequenceNumber)
	expires := h.signer.PresignExpire()
	url, err := h.signer.GeneratePresignedUploadURL(c.Request.Context(), key, contentType, expires)
	if err != nil {
		response.Error(c, h.logger, apperr.Unexpected(err))
		return
	}
	response.OK(c, gin.H{
		"upload_url": url,
		"asset_key":  key,
		"expires_in": int(expires.Seconds()),
	})
}

func (h *Handler) ownedRecording(ctx context.Context, recordingID, userID uuid.UUID) (*models.ParticipantRecording, error) {
	rec, err := h.recordings.GetRecording(ctx, recordingID)
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
