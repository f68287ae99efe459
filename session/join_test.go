package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJoinStorage(t *testing.T) {
	t.Cleanup(func() {
		now = time.Now
	})

	t.Run("match an existing ticket", func(t *testing.T) {
		storage := NewJoinStorage()
		storage.Put("profile1", "server id")

		require.True(t, storage.Match("profile1", "server id"))
		// Matching doesn't consume the ticket
		require.True(t, storage.Match("profile1", "server id"))
	})

	t.Run("mismatched server id", func(t *testing.T) {
		storage := NewJoinStorage()
		storage.Put("profile1", "server id")

		require.False(t, storage.Match("profile1", "another server id"))
	})

	t.Run("unknown profile", func(t *testing.T) {
		storage := NewJoinStorage()

		require.False(t, storage.Match("profile1", "server id"))
	})

	t.Run("a new ticket overwrites the previous one", func(t *testing.T) {
		storage := NewJoinStorage()
		storage.Put("profile1", "first server")
		storage.Put("profile1", "second server")

		require.False(t, storage.Match("profile1", "first server"))
		require.True(t, storage.Match("profile1", "second server"))
	})

	t.Run("expired ticket doesn't match", func(t *testing.T) {
		storage := NewJoinStorage()
		storage.Put("profile1", "server id")

		now = func() time.Time {
			return time.Now().Add(31 * time.Second)
		}
		defer func() {
			now = time.Now
		}()

		require.False(t, storage.Match("profile1", "server id"))
	})

	t.Run("gc removes expired tickets", func(t *testing.T) {
		storage := NewJoinStorage()
		storage.Put("profile1", "server id")
		storage.Put("profile2", "server id")

		now = func() time.Time {
			return time.Now().Add(31 * time.Second)
		}
		defer func() {
			now = time.Now
		}()

		storage.gc()

		storage.lock.RLock()
		defer storage.lock.RUnlock()
		require.Empty(t, storage.data)
	})
}
