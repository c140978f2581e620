package participants_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aura-spaces/backend/internal/memstore"
	"github.com/aura-spaces/backend/internal/models"
	"github.com/aura-spaces/backend/internal/participants"
	"github.com/aura-spaces/backend/internal/spaces"
	"github.com/aura-spaces/backend/pkg/apperr"
)

func newSpace(t *testing.T, store *memstore.Store) *models.Space {
	t.Helper()
	space, _, err := store.Spaces.Create(context.Background(), spaces.CreateParams{
		Title:           "Design review",
		JoinCode:        "JOIN42",
		HostUserID:      uuid.New(),
		HostDisplayName: "Host",
		HostSessionID:   "sess-host",
	})
	if err != nil {
		t.Fatalf("create space: %v", err)
	}
	return space
}

func TestJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("guest join creates a guest row", func(t *testing.T) {
		store := memstore.New()
		space := newSpace(t, store)

		res, err := store.Participants.Join(ctx, participants.JoinParams{
			SpaceID:     space.ID,
			SessionID:   "sess-guest-1",
			DisplayName: "Dana",
		})
		if err != nil {
			t.Fatalf("Join: %v", err)
		}
		if res.Rejoined {
			t.Error("first join reported as rejoin")
		}
		p := res.Participant
		if p.Role != models.RoleGuest || !p.IsGuest || !p.IsActive {
			t.Errorf("participant = role %s, guest %v, active %v", p.Role, p.IsGuest, p.IsActive)
		}
		if p.UserID != nil {
			t.Error("guest should have no user id")
		}
	})

	t.Run("authenticated join carries the user id", func(t *testing.T) {
		store := memstore.New()
		space := newSpace(t, store)
		userID := uuid.New()

		res, err := store.Participants.Join(ctx, participants.JoinParams{
			SpaceID:     space.ID,
			UserID:      &userID,
			SessionID:   "sess-user-1",
			DisplayName: "Lee",
		})
		if err != nil {
			t.Fatalf("Join: %v", err)
		}
		if res.Participant.IsGuest {
			t.Error("authenticated join flagged as guest")
		}
		if res.Participant.UserID == nil || *res.Participant.UserID != userID {
			t.Error("user id not recorded on participant")
		}
	})

	t.Run("rejoin reactivates the same row and keeps the role", func(t *testing.T) {
		store := memstore.New()
		space := newSpace(t, store)
		userID := uuid.New()

		first, err := store.Participants.Join(ctx, participants.JoinParams{
			SpaceID: space.ID, UserID: &userID, SessionID: "sess-a", DisplayName: "Lee",
		})
		if err != nil {
			t.Fatalf("Join: %v", err)
		}
		if _, err := store.Participants.UpdateRole(ctx, first.Participant.ID, models.RoleCoHost); err != nil {
			t.Fatalf("UpdateRole: %v", err)
		}
		if _, err := store.Participants.Leave(ctx, first.Participant.ID); err != nil {
			t.Fatalf("Leave: %v", err)
		}

		time.Sleep(time.Millisecond)
		again, err := store.Participants.Join(ctx, participants.JoinParams{
			SpaceID: space.ID, UserID: &userID, SessionID: "sess-b", DisplayName: "Lee A.",
		})
		if err != nil {
			t.Fatalf("rejoin: %v", err)
		}
		if !again.Rejoined {
			t.Error("rejoin not reported")
		}
		if again.Participant.ID != first.Participant.ID {
			t.Error("rejoin created a new row")
		}
		if again.Participant.Role != models.RoleCoHost {
			t.Errorf("role = %s, want CO_HOST preserved across rejoin", again.Participant.Role)
		}
		if again.Participant.ParticipantSessionID != "sess-b" {
			t.Errorf("session id = %q, want refreshed sess-b", again.Participant.ParticipantSessionID)
		}
		if !again.Participant.IsActive || again.Participant.LeftAt != nil {
			t.Error("rejoined participant should be active with left_at cleared")
		}
		if !again.Participant.JoinedAt.After(first.Participant.JoinedAt) {
			t.Error("rejoin should reset joined_at")
		}
	})

	t.Run("guest rejoin matches on session id", func(t *testing.T) {
		store := memstore.New()
		space := newSpace(t, store)

		first, _ := store.Participants.Join(ctx, participants.JoinParams{
			SpaceID: space.ID, SessionID: "sess-g", DisplayName: "Dana",
		})
		if _, err := store.Participants.Leave(ctx, first.Participant.ID); err != nil {
			t.Fatalf("Leave: %v", err)
		}
		again, err := store.Participants.Join(ctx, participants.JoinParams{
			SpaceID: space.ID, SessionID: "sess-g", DisplayName: "Dana",
		})
		if err != nil {
			t.Fatalf("rejoin: %v", err)
		}
		if !again.Rejoined || again.Participant.ID != first.Participant.ID {
			t.Error("guest rejoin should reactivate the original row")
		}
	})

	t.Run("joining an ended space fails", func(t *testing.T) {
		store := memstore.New()
		space := newSpace(t, store)
		if _, err := store.Spaces.End(ctx, space.ID); err != nil {
			t.Fatalf("End: %v", err)
		}
		_, err := store.Participants.Join(ctx, participants.JoinParams{
			SpaceID: space.ID, SessionID: "sess-late", DisplayName: "Late",
		})
		if apperr.CodeOf(err) != apperr.CodeSpaceNotLive {
			t.Fatalf("code = %s, want SPACE_NOT_LIVE", apperr.CodeOf(err))
		}
	})
}

func TestLeave(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	space := newSpace(t, store)

	res, _ := store.Participants.Join(ctx, participants.JoinParams{
		SpaceID: space.ID, SessionID: "sess-1", DisplayName: "Dana",
	})

	left, err := store.Participants.Leave(ctx, res.Participant.ID)
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if left.IsActive || left.LeftAt == nil {
		t.Error("leave should deactivate and stamp left_at")
	}

	_, err = store.Participants.Leave(ctx, res.Participant.ID)
	if apperr.CodeOf(err) != apperr.CodeParticipantAlreadyLeft {
		t.Fatalf("code = %s, want PARTICIPANT_ALREADY_LEFT", apperr.CodeOf(err))
	}

	_, err = store.Participants.Leave(ctx, uuid.New())
	if apperr.CodeOf(err) != apperr.CodeParticipantNotFound {
		t.Fatalf("code = %s, want PARTICIPANT_NOT_FOUND", apperr.CodeOf(err))
	}
}

func TestUpdateRole(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	space := newSpace(t, store)

	res, _ := store.Participants.Join(ctx, participants.JoinParams{
		SpaceID: space.ID, SessionID: "sess-1", DisplayName: "Dana",
	})

	t.Run("promote and demote", func(t *testing.T) {
		p, err := store.Participants.UpdateRole(ctx, res.Participant.ID, models.RoleCoHost)
		if err != nil {
			t.Fatalf("UpdateRole: %v", err)
		}
		if p.Role != models.RoleCoHost {
			t.Errorf("role = %s, want CO_HOST", p.Role)
		}
		if p, err = store.Participants.UpdateRole(ctx, res.Participant.ID, models.RoleGuest); err != nil || p.Role != models.RoleGuest {
			t.Fatalf("demote: role %s, err %v", p.Role, err)
		}
	})

	t.Run("host role is immutable", func(t *testing.T) {
		host := hostParticipant(t, store, space)
		_, err := store.Participants.UpdateRole(ctx, host.ID, models.RoleGuest)
		if apperr.CodeOf(err) != apperr.CodeCannotChangeHostRole {
			t.Fatalf("code = %s, want CANNOT_CHANGE_HOST_ROLE", apperr.CodeOf(err))
		}
	})
}

func TestKick(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	space := newSpace(t, store)

	res, _ := store.Participants.Join(ctx, participants.JoinParams{
		SpaceID: space.ID, SessionID: "sess-1", DisplayName: "Dana",
	})

	t.Run("kick deactivates", func(t *testing.T) {
		p, err := store.Participants.Kick(ctx, res.Participant.ID)
		if err != nil {
			t.Fatalf("Kick: %v", err)
		}
		if p.IsActive || p.LeftAt == nil {
			t.Error("kicked participant should be inactive with left_at set")
		}
	})

	t.Run("kicking again reports already left", func(t *testing.T) {
		_, err := store.Participants.Kick(ctx, res.Participant.ID)
		if apperr.CodeOf(err) != apperr.CodeParticipantAlreadyLeft {
			t.Fatalf("code = %s, want PARTICIPANT_ALREADY_LEFT", apperr.CodeOf(err))
		}
	})

	t.Run("host cannot be kicked", func(t *testing.T) {
		host := hostParticipant(t, store, space)
		_, err := store.Participants.Kick(ctx, host.ID)
		if apperr.CodeOf(err) != apperr.CodeCannotKickHost {
			t.Fatalf("code = %s, want CANNOT_KICK_HOST", apperr.CodeOf(err))
		}
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	space := newSpace(t, store)

	a, _ := store.Participants.Join(ctx, participants.JoinParams{SpaceID: space.ID, SessionID: "s1", DisplayName: "A"})
	if _, err := store.Participants.Join(ctx, participants.JoinParams{SpaceID: space.ID, SessionID: "s2", DisplayName: "B"}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := store.Participants.Leave(ctx, a.Participant.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	all, err := store.Participants.List(ctx, space.ID, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 { // host + two guests
		t.Fatalf("full roster = %d, want 3", len(all))
	}

	active, err := store.Participants.List(ctx, space.ID, true)
	if err != nil {
		t.Fatalf("List active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active roster = %d, want 2", len(active))
	}
	for _, p := range active {
		if !p.IsActive {
			t.Errorf("inactive participant %s in active roster", p.ID)
		}
	}
}

func hostParticipant(t *testing.T, store *memstore.Store, space *models.Space) *models.Participant {
	t.Helper()
	host, err := store.Participants.GetBySpaceAndUser(context.Background(), space.ID, space.HostUserID)
	if err != nil {
		t.Fatalf("host lookup: %v", err)
	}
	return host
}
