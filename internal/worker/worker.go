// Package worker runs the segment verifier: after a participant recording is
// marked complete, it checks every registered segment against object storage
// and settles the recording's final status.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-spaces/backend/internal/models"
	"github.com/aura-spaces/backend/pkg/queue"
)

// RecordingStore is the slice of the recording store the verifier needs.
type RecordingStore interface {
	GetRecording(ctx context.Context, id uuid.UUID) (*models.ParticipantRecording, error)
	SetRecordingStatus(ctx context.Context, id uuid.UUID, status models.ParticipantRecordingStatus) (*models.ParticipantRecording, error)
}

// SegmentStore is the slice of the segment store the verifier needs.
type SegmentStore interface {
	List(ctx context.Context, recordingID uuid.UUID) ([]models.RecordingSegment, error)
	SetStatus(ctx context.Context, segmentID uuid.UUID, status models.SegmentStatus) error
}

// ObjectStore checks that uploaded segment objects actually exist.
type ObjectStore interface {
	HeadObjectSize(ctx context.Context, key string) (int64, error)
}

// SegmentVerifier processes segment verification jobs: head every segment
// object, flag the missing ones, and settle the recording status.
type SegmentVerifier struct {
	recordings RecordingStore
	segments   SegmentStore
	objects    ObjectStore
	queue      *queue.Queue
	logger     *zap.Logger
}

// NewSegmentVerifier creates a segment verifier.
func NewSegmentVerifier(recordings RecordingStore, segments SegmentStore, objects ObjectStore, q *queue.Queue, logger *zap.Logger) *SegmentVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SegmentVerifier{recordings: recordings, segments: segments, objects: objects, queue: q, logger: logger}
}

// Process executes one verification job.
func (v *SegmentVerifier) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeSegmentVerify {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.SegmentVerifyPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	rec, err := v.recordings.GetRecording(ctx, payload.ParticipantRecordingID)
	if err != nil {
		return fmt.Errorf("load recording: %w", err)
	}
	if rec.Status == models.ParticipantRecordingReady || rec.Status == models.ParticipantRecordingFailed {
		v.logger.Info("recording already settled",
			zap.String("recording_id", rec.ID.String()),
			zap.String("status", string(rec.Status)))
		return nil
	}

	segs, err := v.segments.List(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("list segments: %w", err)
	}

	var totalBytes int64
	missing := 0
	for _, seg := range segs {
		size, herr := v.objects.HeadObjectSize(ctx, seg.AssetKey)
		if herr != nil {
			missing++
			if serr := v.segments.SetStatus(ctx, seg.ID, models.SegmentStatusMissing); serr != nil {
				v.logger.Warn("failed to flag missing segment",
					zap.String("segment_id", seg.ID.String()), zap.Error(serr))
			}
			continue
		}
		totalBytes += size
	}

	status := models.ParticipantRecordingReady
	if missing > 0 || !v.countsCovered(rec, len(segs)) {
		status = models.ParticipantRecordingFailed
	}
	if _, err := v.recordings.SetRecordingStatus(ctx, rec.ID, status); err != nil {
		return fmt.Errorf("settle status: %w", err)
	}

	v.logger.Info("recording verified",
		zap.String("recording_id", rec.ID.String()),
		zap.String("status", string(status)),
		zap.Int("segments", len(segs)),
		zap.Int("missing", missing),
		zap.Int64("total_bytes", totalBytes),
	)
	return nil
}

// countsCovered reports whether the segment ledger covers the uploader's
// declared expectation. A recording without a declared count passes on the
// ledger alone.
func (v *SegmentVerifier) countsCovered(rec *models.ParticipantRecording, ledger int) bool {
	if rec.ExpectedSegments == nil {
		return true
	}
	return ledger >= *rec.ExpectedSegments
}

// Run starts the worker loop: dequeue, process, retry on error.
func (v *SegmentVerifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			v.logger.Info("segment verifier stopping")
			return
		default:
		}

		job, _, err := v.queue.Dequeue(ctx)
		if err != nil {
			v.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		v.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := v.Process(ctx, job); err != nil {
			v.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := v.queue.Retry(ctx, job); reErr != nil {
				v.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
