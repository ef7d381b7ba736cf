package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
)

func TestTrackerLookup(t *testing.T) {
	t.Run("warms from store on miss", func(t *testing.T) {
		store := newMockStore()
		store.states[stateKey("guides", "guides/intro.md")] = driven.FileState{
			FileHash: "abc", Bytes: 10, MtimeNs: 100,
		}
		tracker := NewTracker(store)

		state, ok, err := tracker.Lookup(context.Background(), "guides", "guides/intro.md")

		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "abc", state.FileHash)
	})

	t.Run("caches a confirmed miss", func(t *testing.T) {
		store := newMockStore()
		tracker := NewTracker(store)
		ctx := context.Background()

		_, ok, err := tracker.Lookup(ctx, "guides", "guides/new.md")
		require.NoError(t, err)
		assert.False(t, ok)

		// A second lookup must not hit the store again even if the store
		// now errors.
		store.fetchErr = assert.AnError
		_, ok, err = tracker.Lookup(ctx, "guides", "guides/new.md")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("propagates store failures", func(t *testing.T) {
		store := newMockStore()
		store.fetchErr = assert.AnError
		tracker := NewTracker(store)

		_, _, err := tracker.Lookup(context.Background(), "guides", "guides/intro.md")

		assert.Error(t, err)
	})
}

func TestTrackerRecordForget(t *testing.T) {
	store := newMockStore()
	tracker := NewTracker(store)
	ctx := context.Background()

	tracker.Record("guides", "guides/intro.md", driven.FileState{FileHash: "abc", Bytes: 5, MtimeNs: 1})

	state, ok, err := tracker.Lookup(ctx, "guides", "guides/intro.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(5), state.Bytes)

	tracker.Forget("guides", "guides/intro.md")

	_, ok, err = tracker.Lookup(ctx, "guides", "guides/intro.md")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrackerForgetIndex(t *testing.T) {
	store := newMockStore()
	tracker := NewTracker(store)
	ctx := context.Background()

	tracker.Record("guides", "guides/a.md", driven.FileState{FileHash: "a"})
	tracker.Record("guides", "guides/b.md", driven.FileState{FileHash: "b"})
	tracker.Record("notes", "notes/c.md", driven.FileState{FileHash: "c"})

	tracker.ForgetIndex("guides")

	_, ok, err := tracker.Lookup(ctx, "guides", "guides/a.md")
	require.NoError(t, err)
	assert.False(t, ok)

	state, ok, err := tracker.Lookup(ctx, "notes", "notes/c.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c", state.FileHash)
}
