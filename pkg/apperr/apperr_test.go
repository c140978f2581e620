package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aura-spaces/backend/pkg/apperr"
)

func TestTaxonomy(t *testing.T) {
	t.Run("typed errors carry kind and code", func(t *testing.T) {
		err := apperr.NotFound(apperr.CodeSpaceNotFound, "space not found")
		if apperr.KindOf(err) != apperr.KindNotFound {
			t.Errorf("kind = %v, want NotFound", apperr.KindOf(err))
		}
		if apperr.CodeOf(err) != apperr.CodeSpaceNotFound {
			t.Errorf("code = %s", apperr.CodeOf(err))
		}
	})

	t.Run("wrapped typed errors are still recognized", func(t *testing.T) {
		inner := apperr.Conflict(apperr.CodeJoinCodeTaken, "join code already in use")
		err := fmt.Errorf("create space: %w", inner)
		if !apperr.IsKind(err, apperr.KindConflict) {
			t.Error("wrapped conflict not recognized")
		}
		if apperr.CodeOf(err) != apperr.CodeJoinCodeTaken {
			t.Errorf("code = %s", apperr.CodeOf(err))
		}
	})

	t.Run("unexpected wraps the cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := apperr.Unexpected(cause)
		if !errors.Is(err, cause) {
			t.Error("cause not reachable via errors.Is")
		}
		if apperr.KindOf(err) != apperr.KindUnexpected {
			t.Errorf("kind = %v, want Unexpected", apperr.KindOf(err))
		}
	})

	t.Run("untyped errors default to internal", func(t *testing.T) {
		err := errors.New("boom")
		if apperr.KindOf(err) != apperr.KindUnexpected {
			t.Errorf("kind = %v, want Unexpected", apperr.KindOf(err))
		}
		if apperr.CodeOf(err) != apperr.CodeInternal {
			t.Errorf("code = %s, want INTERNAL", apperr.CodeOf(err))
		}
	})
}
