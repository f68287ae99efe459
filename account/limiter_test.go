package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter(t *testing.T) {
	t.Cleanup(func() {
		now = time.Now
	})

	t.Run("not exceeded before the limit is reached", func(t *testing.T) {
		limiter := NewLimiter()
		for i := 0; i < 3; i++ {
			limiter.Failure("mock@ely.by")
		}

		require.False(t, limiter.Exceeded("mock@ely.by"))
	})

	t.Run("exceeded at the limit", func(t *testing.T) {
		limiter := NewLimiter()
		for i := 0; i < 4; i++ {
			limiter.Failure("mock@ely.by")
		}

		require.True(t, limiter.Exceeded("mock@ely.by"))
	})

	t.Run("keys are case insensitive", func(t *testing.T) {
		limiter := NewLimiter()
		for i := 0; i < 4; i++ {
			limiter.Failure("Mock@Ely.by")
		}

		require.True(t, limiter.Exceeded("mock@ely.by"))
	})

	t.Run("independent keys don't interfere", func(t *testing.T) {
		limiter := NewLimiter()
		for i := 0; i < 4; i++ {
			limiter.Failure("first@ely.by")
		}

		require.False(t, limiter.Exceeded("second@ely.by"))
	})

	t.Run("window expires", func(t *testing.T) {
		limiter := NewLimiter()
		for i := 0; i < 4; i++ {
			limiter.Failure("mock@ely.by")
		}

		now = func() time.Time {
			return time.Now().Add(61 * time.Second)
		}
		defer func() {
			now = time.Now
		}()

		require.False(t, limiter.Exceeded("mock@ely.by"))
	})

	t.Run("an over-limit hit refreshes the window", func(t *testing.T) {
		limiter := NewLimiter()
		for i := 0; i < 4; i++ {
			limiter.Failure("mock@ely.by")
		}

		// Half a window later the key is probed again
		now = func() time.Time {
			return time.Now().Add(30 * time.Second)
		}
		require.True(t, limiter.Exceeded("mock@ely.by"))

		// A full window after the original failures, but only half
		// a window after the last probe
		now = func() time.Time {
			return time.Now().Add(75 * time.Second)
		}
		defer func() {
			now = time.Now
		}()

		require.True(t, limiter.Exceeded("mock@ely.by"))
	})
}
