package recordings_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/aura-spaces/backend/internal/memstore"
	"github.com/aura-spaces/backend/internal/models"
	"github.com/aura-spaces/backend/internal/participants"
	"github.com/aura-spaces/backend/internal/recordings"
	"github.com/aura-spaces/backend/internal/segments"
	"github.com/aura-spaces/backend/internal/spaces"
	"github.com/aura-spaces/backend/pkg/apperr"
)

func appendSegments(t *testing.T, store *memstore.Store, recordingID uuid.UUID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := store.Segments.Append(context.Background(), segments.AppendParams{
			ParticipantRecordingID: recordingID,
			SequenceNumber:         i,
			AssetKey:               fmt.Sprintf("segments/x/y/%06d.webm", i),
			DurationMs:             3000,
			SizeBytes:              1 << 20,
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
}

type fixture struct {
	store       *memstore.Store
	space       *models.Space
	participant *models.Participant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	space, _, err := store.Spaces.Create(ctx, spaces.CreateParams{
		Title:           "All hands",
		JoinCode:        "REC234",
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
	return &fixture{store: store, space: space, participant: res.Participant}
}

func (f *fixture) startSession(t *testing.T, clientID string) *models.RecordingSession {
	t.Helper()
	sess, err := f.store.Recordings.StartSession(context.Background(), recordings.StartSessionParams{
		SpaceID:         f.space.ID,
		ClientSessionID: clientID,
	})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return sess
}

func (f *fixture) createRecording(t *testing.T, sessionID uuid.UUID) *models.ParticipantRecording {
	t.Helper()
	rec, err := f.store.Recordings.CreateRecording(context.Background(), recordings.CreateRecordingParams{
		RecordingSessionID: sessionID,
		ParticipantID:      f.participant.ID,
		Type:               models.RecordingTypeVideo,
		MimeType:           "video/webm",
		Width:              1280,
		Height:             720,
	})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	return rec
}

func TestStartSession(t *testing.T) {
	ctx := context.Background()

	t.Run("activates and flips the space flag", func(t *testing.T) {
		f := newFixture(t)
		sess := f.startSession(t, "client-1")
		if sess.Status != models.SessionStatusActive {
			t.Errorf("status = %s, want ACTIVE", sess.Status)
		}
		space, _ := f.store.Spaces.GetByID(ctx, f.space.ID)
		if space.RecordingStatus != models.RecordingStatusRecording {
			t.Errorf("space recording_status = %s, want RECORDING", space.RecordingStatus)
		}
	})

	t.Run("second active session conflicts", func(t *testing.T) {
		f := newFixture(t)
		f.startSession(t, "client-1")
		_, err := f.store.Recordings.StartSession(ctx, recordings.StartSessionParams{
			SpaceID: f.space.ID, ClientSessionID: "client-2",
		})
		if apperr.CodeOf(err) != apperr.CodeRecordingAlreadyActive {
			t.Fatalf("code = %s, want RECORDING_ALREADY_ACTIVE", apperr.CodeOf(err))
		}
	})

	t.Run("replaying the client session id returns the existing session", func(t *testing.T) {
		f := newFixture(t)
		first := f.startSession(t, "client-1")
		again := f.startSession(t, "client-1")
		if again.ID != first.ID {
			t.Errorf("replay created a new session: %s vs %s", again.ID, first.ID)
		}
	})

	t.Run("cannot start on an ended space", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.store.Spaces.End(ctx, f.space.ID); err != nil {
			t.Fatalf("End: %v", err)
		}
		_, err := f.store.Recordings.StartSession(ctx, recordings.StartSessionParams{
			SpaceID: f.space.ID, ClientSessionID: "client-1",
		})
		if apperr.CodeOf(err) != apperr.CodeSpaceNotLive {
			t.Fatalf("code = %s, want SPACE_NOT_LIVE", apperr.CodeOf(err))
		}
	})
}

func TestStopSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.startSession(t, "client-1")

	stopped, err := f.store.Recordings.StopSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	if stopped.Status != models.SessionStatusStopped || stopped.StoppedAt == nil {
		t.Error("stop should set STOPPED and stopped_at")
	}
	space, _ := f.store.Spaces.GetByID(ctx, f.space.ID)
	if space.RecordingStatus != models.RecordingStatusStopped {
		t.Errorf("space recording_status = %s, want STOPPED", space.RecordingStatus)
	}

	if _, err := f.store.Recordings.StopSession(ctx, sess.ID); apperr.CodeOf(err) != apperr.CodeSessionNotActive {
		t.Fatalf("code = %s, want SESSION_NOT_ACTIVE", apperr.CodeOf(err))
	}

	// A stopped session no longer blocks a fresh start.
	next := f.startSession(t, "client-2")
	if next.ID == sess.ID {
		t.Error("restart should create a new session")
	}
}

func TestCreateRecording(t *testing.T) {
	ctx := context.Background()

	t.Run("marks the participant as having a recording", func(t *testing.T) {
		f := newFixture(t)
		sess := f.startSession(t, "client-1")
		rec := f.createRecording(t, sess.ID)
		if rec.Status != models.ParticipantRecordingUploading {
			t.Errorf("status = %s, want UPLOADING", rec.Status)
		}
		owner, _ := f.store.Participants.GetByID(ctx, f.participant.ID)
		if !owner.HasRecording {
			t.Error("participant has_recording not set")
		}
	})

	t.Run("rejects a stopped session", func(t *testing.T) {
		f := newFixture(t)
		sess := f.startSession(t, "client-1")
		if _, err := f.store.Recordings.StopSession(ctx, sess.ID); err != nil {
			t.Fatalf("StopSession: %v", err)
		}
		_, err := f.store.Recordings.CreateRecording(ctx, recordings.CreateRecordingParams{
			RecordingSessionID: sess.ID,
			ParticipantID:      f.participant.ID,
			Type:               models.RecordingTypeAudio,
		})
		if apperr.CodeOf(err) != apperr.CodeSessionNotActive {
			t.Fatalf("code = %s, want SESSION_NOT_ACTIVE", apperr.CodeOf(err))
		}
	})

	t.Run("rejects an unknown participant", func(t *testing.T) {
		f := newFixture(t)
		sess := f.startSession(t, "client-1")
		_, err := f.store.Recordings.CreateRecording(ctx, recordings.CreateRecordingParams{
			RecordingSessionID: sess.ID,
			ParticipantID:      uuid.New(),
			Type:               models.RecordingTypeVideo,
		})
		if apperr.CodeOf(err) != apperr.CodeParticipantNotFound {
			t.Fatalf("code = %s, want PARTICIPANT_NOT_FOUND", apperr.CodeOf(err))
		}
	})

	t.Run("rejects a participant from another space", func(t *testing.T) {
		f := newFixture(t)
		sess := f.startSession(t, "client-1")

		other, _, err := f.store.Spaces.Create(ctx, spaces.CreateParams{
			Title:           "Other space",
			JoinCode:        "REC235",
			HostUserID:      uuid.New(),
			HostDisplayName: "Host",
			HostSessionID:   "sess-host-2",
		})
		if err != nil {
			t.Fatalf("create space: %v", err)
		}
		stranger, err := f.store.Participants.Join(ctx, participants.JoinParams{
			SpaceID: other.ID, SessionID: "sess-x", DisplayName: "Eve",
		})
		if err != nil {
			t.Fatalf("join: %v", err)
		}

		_, err = f.store.Recordings.CreateRecording(ctx, recordings.CreateRecordingParams{
			RecordingSessionID: sess.ID,
			ParticipantID:      stranger.Participant.ID,
			Type:               models.RecordingTypeVideo,
		})
		if apperr.CodeOf(err) != apperr.CodeParticipantNotFound {
			t.Fatalf("code = %s, want PARTICIPANT_NOT_FOUND", apperr.CodeOf(err))
		}
	})
}

func TestUpdateRecording(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.startSession(t, "client-1")
	rec := f.createRecording(t, sess.ID)

	width, expected := 1920, 10
	updated, err := f.store.Recordings.UpdateRecording(ctx, rec.ID, recordings.UpdateRecordingParams{
		Width:            &width,
		ExpectedSegments: &expected,
	})
	if err != nil {
		t.Fatalf("UpdateRecording: %v", err)
	}
	if updated.Width != 1920 {
		t.Errorf("width = %d, want 1920", updated.Width)
	}
	if updated.ExpectedSegments == nil || *updated.ExpectedSegments != 10 {
		t.Error("expected_segments not patched")
	}
	if updated.Height != rec.Height {
		t.Errorf("height changed by partial patch: %d", updated.Height)
	}
	if updated.LastChunkAt == nil {
		t.Error("last_chunk_at not stamped by the patch")
	}

	if _, err := f.store.Recordings.CompleteRecording(ctx, rec.ID, 0); err != nil {
		t.Fatalf("CompleteRecording: %v", err)
	}
	_, err = f.store.Recordings.UpdateRecording(ctx, rec.ID, recordings.UpdateRecordingParams{Width: &width})
	if apperr.CodeOf(err) != apperr.CodeRecordingAlreadyComplete {
		t.Fatalf("code = %s, want RECORDING_ALREADY_COMPLETE", apperr.CodeOf(err))
	}
}

func TestCompleteRecording(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads covered flips to UPLOADED", func(t *testing.T) {
		f := newFixture(t)
		sess := f.startSession(t, "client-1")
		rec := f.createRecording(t, sess.ID)
		appendSegments(t, f.store, rec.ID, 3)

		done, err := f.store.Recordings.CompleteRecording(ctx, rec.ID, 3)
		if err != nil {
			t.Fatalf("CompleteRecording: %v", err)
		}
		if !done.IsComplete {
			t.Error("is_complete not set")
		}
		if done.Status != models.ParticipantRecordingUploaded {
			t.Errorf("status = %s, want UPLOADED", done.Status)
		}
	})

	t.Run("short complete leaves the track open", func(t *testing.T) {
		f := newFixture(t)
		sess := f.startSession(t, "client-1")
		rec := f.createRecording(t, sess.ID)
		appendSegments(t, f.store, rec.ID, 2)

		short, err := f.store.Recordings.CompleteRecording(ctx, rec.ID, 5)
		if err != nil {
			t.Fatalf("CompleteRecording: %v", err)
		}
		if short.IsComplete {
			t.Error("is_complete set although only 2 of 5 segments uploaded")
		}
		if short.Status != models.ParticipantRecordingUploading {
			t.Errorf("status = %s, want UPLOADING", short.Status)
		}

		// The missing segments can still arrive, and the retried complete
		// then succeeds.
		appendSegments(t, f.store, rec.ID, 3)
		done, err := f.store.Recordings.CompleteRecording(ctx, rec.ID, 5)
		if err != nil {
			t.Fatalf("retried CompleteRecording: %v", err)
		}
		if !done.IsComplete || done.Status != models.ParticipantRecordingUploaded {
			t.Errorf("retry: is_complete %v, status %s, want complete and UPLOADED", done.IsComplete, done.Status)
		}
	})

	t.Run("completing twice errors", func(t *testing.T) {
		f := newFixture(t)
		sess := f.startSession(t, "client-1")
		rec := f.createRecording(t, sess.ID)
		if _, err := f.store.Recordings.CompleteRecording(ctx, rec.ID, 0); err != nil {
			t.Fatalf("CompleteRecording: %v", err)
		}
		_, err := f.store.Recordings.CompleteRecording(ctx, rec.ID, 0)
		if apperr.CodeOf(err) != apperr.CodeRecordingAlreadyComplete {
			t.Fatalf("code = %s, want RECORDING_ALREADY_COMPLETE", apperr.CodeOf(err))
		}
	})
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first := f.startSession(t, "client-1")
	if _, err := f.store.Recordings.StopSession(ctx, first.ID); err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	f.startSession(t, "client-2")

	sessions, err := f.store.Recordings.ListSessions(ctx, f.space.ID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
}
