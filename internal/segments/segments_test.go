package segments_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/aura-spaces/backend/internal/memstore"
	"github.com/aura-spaces/backend/internal/models"
	"github.com/aura-spaces/backend/internal/participants"
	"github.com/aura-spaces/backend/internal/recordings"
	"github.com/aura-spaces/backend/internal/segments"
	"github.com/aura-spaces/backend/internal/spaces"
	"github.com/aura-spaces/backend/pkg/apperr"
	"github.com/aura-spaces/backend/pkg/storage"
)

func newRecording(t *testing.T) (*memstore.Store, *models.ParticipantRecording) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	space, _, err := store.Spaces.Create(ctx, spaces.CreateParams{
		Title:           "Retro",
		JoinCode:        "SEG234",
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
		MimeType:           "video/webm",
	})
	if err != nil {
		t.Fatalf("create recording: %v", err)
	}
	return store, rec
}

func appendParams(recID uuid.UUID, seq int) segments.AppendParams {
	return segments.AppendParams{
		ParticipantRecordingID: recID,
		SequenceNumber:         seq,
		AssetKey:               storage.SegmentKey("space", recID.String(), seq),
		StartMs:                int64(seq) * 3000,
		DurationMs:             3000,
		SizeBytes:              1 << 20,
	}
}

func TestAppend(t *testing.T) {
	ctx := context.Background()

	t.Run("records the chunk and advances the counter", func(t *testing.T) {
		store, rec := newRecording(t)

		seg, err := store.Segments.Append(ctx, appendParams(rec.ID, 0))
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if seg.Status != models.SegmentStatusUploaded {
			t.Errorf("status = %s, want UPLOADED", seg.Status)
		}
		got, _ := store.Recordings.GetRecording(ctx, rec.ID)
		if got.UploadedSegments != 1 {
			t.Errorf("uploaded_segments = %d, want 1", got.UploadedSegments)
		}
		if got.LastChunkAt == nil {
			t.Error("last_chunk_at not stamped")
		}
	})

	t.Run("rejects a completed recording", func(t *testing.T) {
		store, rec := newRecording(t)
		if _, err := store.Recordings.CompleteRecording(ctx, rec.ID, 0); err != nil {
			t.Fatalf("CompleteRecording: %v", err)
		}
		_, err := store.Segments.Append(ctx, appendParams(rec.ID, 0))
		if apperr.CodeOf(err) != apperr.CodeRecordingAlreadyComplete {
			t.Fatalf("code = %s, want RECORDING_ALREADY_COMPLETE", apperr.CodeOf(err))
		}
	})

	t.Run("duplicate sequence numbers are accepted", func(t *testing.T) {
		store, rec := newRecording(t)
		for i := 0; i < 2; i++ {
			if _, err := store.Segments.Append(ctx, appendParams(rec.ID, 7)); err != nil {
				t.Fatalf("Append dup %d: %v", i, err)
			}
		}
		got, _ := store.Recordings.GetRecording(ctx, rec.ID)
		if got.UploadedSegments != 2 {
			t.Errorf("uploaded_segments = %d, want 2", got.UploadedSegments)
		}
	})

	t.Run("concurrent appends count exactly", func(t *testing.T) {
		store, rec := newRecording(t)
		const n = 32
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := store.Segments.Append(ctx, appendParams(rec.ID, i)); err != nil {
					t.Errorf("Append %d: %v", i, err)
				}
			}(i)
		}
		wg.Wait()
		got, _ := store.Recordings.GetRecording(ctx, rec.ID)
		if got.UploadedSegments != n {
			t.Fatalf("uploaded_segments = %d, want %d", got.UploadedSegments, n)
		}
	})

	t.Run("unknown recording is not found", func(t *testing.T) {
		store, _ := newRecording(t)
		_, err := store.Segments.Append(ctx, appendParams(uuid.New(), 0))
		if apperr.CodeOf(err) != apperr.CodeRecordingNotFound {
			t.Fatalf("code = %s, want RECORDING_NOT_FOUND", apperr.CodeOf(err))
		}
	})
}

func TestListOrdering(t *testing.T) {
	ctx := context.Background()
	store, rec := newRecording(t)

	for _, seq := range []int{3, 0, 2, 1} {
		if _, err := store.Segments.Append(ctx, appendParams(rec.ID, seq)); err != nil {
			t.Fatalf("Append %d: %v", seq, err)
		}
	}
	list, err := store.Segments.List(ctx, rec.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("segments = %d, want 4", len(list))
	}
	for i, seg := range list {
		if seg.SequenceNumber != i {
			t.Errorf("position %d has sequence %d", i, seg.SequenceNumber)
		}
	}
}

func TestSegmentKeyLayout(t *testing.T) {
	key := storage.SegmentKey("space-1", "rec-1", 12)
	want := fmt.Sprintf("segments/%s/%s/%06d.webm", "space-1", "rec-1", 12)
	if key != want {
		t.Errorf("key = %q, want %q", key, want)
	}
}
