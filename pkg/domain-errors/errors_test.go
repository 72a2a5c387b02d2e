package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodedErrors(t *testing.T) {
	t.Run("HasCode finds nested codes", func(t *testing.T) {
		inner := New(CodeAlreadyVoted, "already voted")
		outer := Wrap(inner, CodeConflict, "cast rejected")

		assert.True(t, HasCode(outer, CodeConflict))
		assert.True(t, HasCode(outer, CodeAlreadyVoted))
		assert.False(t, HasCode(outer, CodeNotEligible))
	})

	t.Run("Is only inspects the outermost coded error", func(t *testing.T) {
		inner := New(CodeAlreadyVoted, "already voted")
		outer := Wrap(inner, CodeConflict, "cast rejected")

		assert.True(t, Is(outer, CodeConflict))
		assert.False(t, Is(outer, CodeAlreadyVoted))
	})

	t.Run("codes survive fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(CodeElectionClosed, "closed"))
		assert.True(t, HasCode(err, CodeElectionClosed))
		assert.Equal(t, CodeElectionClosed, CodeOf(err))
	})

	t.Run("uncoded errors default to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})

	t.Run("Wrap keeps the cause reachable", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause, CodeStorageConflict, "write failed")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "write failed: connection reset", err.Error())
	})
}
