package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/aura-spaces/backend/internal/memstore"
	"github.com/aura-spaces/backend/internal/models"
	"github.com/aura-spaces/backend/internal/participants"
	"github.com/aura-spaces/backend/internal/recordings"
	"github.com/aura-spaces/backend/internal/segments"
	"github.com/aura-spaces/backend/internal/spaces"
	"github.com/aura-spaces/backend/internal/worker"
	"github.com/aura-spaces/backend/pkg/queue"
)

// fakeObjects serves object sizes from a map; absent keys error like S3 does
// for a missing object.
type fakeObjects struct {
	sizes map[string]int64
}

func (f *fakeObjects) HeadObjectSize(ctx context.Context, key string) (int64, error) {
	size, ok := f.sizes[key]
	if !ok {
		return 0, errors.New("NotFound: object does not exist")
	}
	return size, nil
}

type verifyFixture struct {
	store   *memstore.Store
	objects *fakeObjects
	rec     *models.ParticipantRecording
}

func newVerifyFixture(t *testing.T, uploaded int) *verifyFixture {
	t.Helper()
	return newShortFixture(t, uploaded, uploaded)
}

// newShortFixture uploads `uploaded` segments but completes the recording
// declaring `expected`.
func newShortFixture(t *testing.T, uploaded, expected int) *verifyFixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	space, _, err := store.Spaces.Create(ctx, spaces.CreateParams{
		Title:           "Demo day",
		JoinCode:        "WRK234",
		HostUserID:      uuid.New(),
		HostDisplayName: "Host",
		HostSessionID:   "sess-host",
	})
	if err != nil {
		t.Fatalf("create space: %v", err)
	}
	res, err := store.Participants.Join(ctx, participants.JoinParams{
		SpaceID: space.ID, SessionID: "sess-1", DisplayName: "Dana",
	})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	sess, err := store.Recordings.StartSession(ctx, recordings.StartSessionParams{
		SpaceID: space.ID, ClientSessionID: "client-1",
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	rec, err := store.Recordings.CreateRecording(ctx, recordings.CreateRecordingParams{
		RecordingSessionID: sess.ID,
		ParticipantID:      res.Participant.ID,
		Type:               models.RecordingTypeVideo,
	})
	if err != nil {
		t.Fatalf("create recording: %v", err)
	}

	objects := &fakeObjects{sizes: map[string]int64{}}
	for i := 0; i < uploaded; i++ {
		seg, err := store.Segments.Append(ctx, segments.AppendParams{
			ParticipantRecordingID: rec.ID,
			SequenceNumber:         i,
			AssetKey:               segKey(rec.ID, i),
			DurationMs:             3000,
			SizeBytes:              1 << 20,
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		objects.sizes[seg.AssetKey] = seg.SizeBytes
	}
	if _, err := store.Recordings.CompleteRecording(ctx, rec.ID, expected); err != nil {
		t.Fatalf("complete: %v", err)
	}
	return &verifyFixture{store: store, objects: objects, rec: rec}
}

func segKey(recID uuid.UUID, seq int) string {
	return fmt.Sprintf("segments/test/%s/%06d.webm", recID, seq)
}

func verifyJob(t *testing.T, recID uuid.UUID) *queue.Job {
	t.Helper()
	payload, err := json.Marshal(queue.SegmentVerifyPayload{ParticipantRecordingID: recID})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &queue.Job{ID: uuid.NewString(), Type: queue.JobTypeSegmentVerify, Payload: payload}
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("all objects present settles READY", func(t *testing.T) {
		f := newVerifyFixture(t, 3)
		v := worker.NewSegmentVerifier(f.store.Recordings, f.store.Segments, f.objects, nil, nil)

		if err := v.Process(ctx, verifyJob(t, f.rec.ID)); err != nil {
			t.Fatalf("Process: %v", err)
		}
		rec, _ := f.store.Recordings.GetRecording(ctx, f.rec.ID)
		if rec.Status != models.ParticipantRecordingReady {
			t.Errorf("status = %s, want READY", rec.Status)
		}
	})

	t.Run("missing object settles FAILED and flags the segment", func(t *testing.T) {
		f := newVerifyFixture(t, 3)
		segs, _ := f.store.Segments.List(ctx, f.rec.ID)
		delete(f.objects.sizes, segs[1].AssetKey)

		v := worker.NewSegmentVerifier(f.store.Recordings, f.store.Segments, f.objects, nil, nil)
		if err := v.Process(ctx, verifyJob(t, f.rec.ID)); err != nil {
			t.Fatalf("Process: %v", err)
		}
		rec, _ := f.store.Recordings.GetRecording(ctx, f.rec.ID)
		if rec.Status != models.ParticipantRecordingFailed {
			t.Errorf("status = %s, want FAILED", rec.Status)
		}
		segs, _ = f.store.Segments.List(ctx, f.rec.ID)
		if segs[1].Status != models.SegmentStatusMissing {
			t.Errorf("segment status = %s, want MISSING", segs[1].Status)
		}
	})

	t.Run("ledger short of expectation settles FAILED", func(t *testing.T) {
		f := newShortFixture(t, 2, 5)
		v := worker.NewSegmentVerifier(f.store.Recordings, f.store.Segments, f.objects, nil, nil)
		if err := v.Process(ctx, verifyJob(t, f.rec.ID)); err != nil {
			t.Fatalf("Process: %v", err)
		}
		rec, _ := f.store.Recordings.GetRecording(ctx, f.rec.ID)
		if rec.Status != models.ParticipantRecordingFailed {
			t.Errorf("status = %s, want FAILED", rec.Status)
		}
	})

	t.Run("already settled recording is a no-op", func(t *testing.T) {
		f := newVerifyFixture(t, 1)
		if _, err := f.store.Recordings.SetRecordingStatus(ctx, f.rec.ID, models.ParticipantRecordingFailed); err != nil {
			t.Fatalf("SetRecordingStatus: %v", err)
		}
		// Every object head would fail, but Process must not touch a
		// settled recording.
		f.objects.sizes = map[string]int64{}

		v := worker.NewSegmentVerifier(f.store.Recordings, f.store.Segments, f.objects, nil, nil)
		if err := v.Process(ctx, verifyJob(t, f.rec.ID)); err != nil {
			t.Fatalf("Process: %v", err)
		}
		rec, _ := f.store.Recordings.GetRecording(ctx, f.rec.ID)
		if rec.Status != models.ParticipantRecordingFailed {
			t.Errorf("status = %s, want FAILED untouched", rec.Status)
		}
	})

	t.Run("unknown job type errors", func(t *testing.T) {
		f := newVerifyFixture(t, 1)
		v := worker.NewSegmentVerifier(f.store.Recordings, f.store.Segments, f.objects, nil, nil)
		job := &queue.Job{ID: uuid.NewString(), Type: "unrelated", Payload: []byte("{}")}
		if err := v.Process(ctx, job); err == nil {
			t.Fatal("want error for unknown job type")
		}
	})
}
