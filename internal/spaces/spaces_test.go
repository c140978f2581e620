package spaces_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/aura-spaces/backend/internal/memstore"
	"github.com/aura-spaces/backend/internal/models"
	"github.com/aura-spaces/backend/internal/participants"
	"github.com/aura-spaces/backend/internal/spaces"
	"github.com/aura-spaces/backend/pkg/apperr"
)

func guestJoin(spaceID uuid.UUID, i int) participants.JoinParams {
	return participants.JoinParams{
		SpaceID:     spaceID,
		SessionID:   fmt.Sprintf("sess-guest-%d", i),
		DisplayName: fmt.Sprintf("Guest %d", i),
	}
}

func createParams(code string) spaces.CreateParams {
	return spaces.CreateParams{
		Title:           "Friday standup",
		Description:     "weekly",
		JoinCode:        code,
		HostUserID:      uuid.New(),
		HostDisplayName: "Sam",
		HostSessionID:   "sess-host-1",
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	t.Run("creates live space with host participant", func(t *testing.T) {
		space, host, err := store.Spaces.Create(ctx, createParams("ABC234"))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if space.Status != models.SpaceStatusLive {
			t.Errorf("status = %s, want LIVE", space.Status)
		}
		if space.RecordingStatus != models.RecordingStatusNone {
			t.Errorf("recording_status = %s, want NONE", space.RecordingStatus)
		}
		if host.Role != models.RoleHost {
			t.Errorf("host role = %s, want HOST", host.Role)
		}
		if !host.IsActive {
			t.Error("host should be active")
		}
		if host.SpaceID != space.ID {
			t.Error("host participant not bound to space")
		}
	})

	t.Run("duplicate join code conflicts", func(t *testing.T) {
		if _, _, err := store.Spaces.Create(ctx, createParams("DUP234")); err != nil {
			t.Fatalf("first Create: %v", err)
		}
		_, _, err := store.Spaces.Create(ctx, createParams("DUP234"))
		if apperr.CodeOf(err) != apperr.CodeJoinCodeTaken {
			t.Fatalf("code = %s, want JOIN_CODE_TAKEN", apperr.CodeOf(err))
		}
		if !apperr.IsKind(err, apperr.KindConflict) {
			t.Errorf("kind = %v, want Conflict", apperr.KindOf(err))
		}
	})

	t.Run("concurrent creates with same code produce one winner", func(t *testing.T) {
		const n = 16
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _, errs[i] = store.Spaces.Create(ctx, createParams("RACE42"))
			}(i)
		}
		wg.Wait()

		wins, conflicts := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case apperr.CodeOf(err) == apperr.CodeJoinCodeTaken:
				conflicts++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 || conflicts != n-1 {
			t.Fatalf("wins = %d, conflicts = %d, want 1 and %d", wins, conflicts, n-1)
		}
	})
}

func TestEnd(t *testing.T) {
	ctx := context.Background()

	t.Run("ends once and stamps duration", func(t *testing.T) {
		store := memstore.New()
		space, _, err := store.Spaces.Create(ctx, createParams("END234"))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ended, err := store.Spaces.End(ctx, space.ID)
		if err != nil {
			t.Fatalf("End: %v", err)
		}
		if ended.Status != models.SpaceStatusEnded {
			t.Errorf("status = %s, want ENDED", ended.Status)
		}
		if ended.EndTime == nil || ended.DurationSeconds == nil {
			t.Error("end_time and duration_seconds should be set")
		}
	})

	t.Run("ending twice is SPACE_NOT_LIVE", func(t *testing.T) {
		store := memstore.New()
		space, _, _ := store.Spaces.Create(ctx, createParams("END235"))
		if _, err := store.Spaces.End(ctx, space.ID); err != nil {
			t.Fatalf("first End: %v", err)
		}
		_, err := store.Spaces.End(ctx, space.ID)
		if apperr.CodeOf(err) != apperr.CodeSpaceNotLive {
			t.Fatalf("code = %s, want SPACE_NOT_LIVE", apperr.CodeOf(err))
		}
	})

	t.Run("end deactivates all active participants", func(t *testing.T) {
		store := memstore.New()
		space, _, _ := store.Spaces.Create(ctx, createParams("END236"))
		for i := 0; i < 3; i++ {
			_, err := store.Participants.Join(ctx, guestJoin(space.ID, i))
			if err != nil {
				t.Fatalf("Join: %v", err)
			}
		}
		if _, err := store.Spaces.End(ctx, space.ID); err != nil {
			t.Fatalf("End: %v", err)
		}
		active, err := store.Participants.List(ctx, space.ID, true)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(active) != 0 {
			t.Fatalf("active roster = %d, want 0", len(active))
		}
		all, _ := store.Participants.List(ctx, space.ID, false)
		for _, p := range all {
			if p.LeftAt == nil {
				t.Errorf("participant %s missing left_at", p.ID)
			}
		}
	})

	t.Run("unknown space is not found", func(t *testing.T) {
		store := memstore.New()
		_, err := store.Spaces.End(ctx, uuid.New())
		if apperr.CodeOf(err) != apperr.CodeSpaceNotFound {
			t.Fatalf("code = %s, want SPACE_NOT_FOUND", apperr.CodeOf(err))
		}
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	space, _, _ := store.Spaces.Create(ctx, createParams("UPD234"))

	title := "Renamed"
	updated, err := store.Spaces.Update(ctx, space.ID, spaces.UpdateParams{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("title = %q, want Renamed", updated.Title)
	}
	if updated.Description != space.Description {
		t.Errorf("description changed by partial patch: %q", updated.Description)
	}
}

func TestGetByJoinCode(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	space, _, _ := store.Spaces.Create(ctx, createParams("GET234"))

	got, err := store.Spaces.GetByJoinCode(ctx, "GET234")
	if err != nil {
		t.Fatalf("GetByJoinCode: %v", err)
	}
	if got.ID != space.ID {
		t.Errorf("got space %s, want %s", got.ID, space.ID)
	}

	preview := got.ToPreview()
	if preview.JoinCode != "GET234" || preview.Title != space.Title {
		t.Errorf("preview mismatch: %+v", preview)
	}

	if _, err := store.Spaces.GetByJoinCode(ctx, "NOPE42"); apperr.CodeOf(err) != apperr.CodeSpaceNotFound {
		t.Fatalf("code = %s, want SPACE_NOT_FOUND", apperr.CodeOf(err))
	}
}
