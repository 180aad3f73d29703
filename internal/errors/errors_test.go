package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		err := Wrap(ErrNotFound, "order lookup")
		assert.Error(t, err)
		assert.Equal(t, "order lookup: not found", err.Error())
		assert.True(t, Is(err, ErrNotFound))
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "context"))
	})

	t.Run("preserves chain across multiple wraps", func(t *testing.T) {
		err := Wrap(Wrap(ErrIllegalState, "pay"), "handle payment response")
		assert.True(t, Is(err, ErrIllegalState))
	})
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrConcurrentModification)
	assert.True(t, Is(err, ErrConcurrentModification))
	assert.False(t, Is(err, ErrConflict))
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrConflict, ErrInvalidInput, ErrIllegalState, ErrConcurrentModification}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, Is(a, b))
		}
	}
}
