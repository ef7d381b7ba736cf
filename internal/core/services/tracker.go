package services

import (
	"context"
	"errors"
	"sync"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
)

// Tracker caches the last indexed state of every file so unchanged files are
// skipped without reading their bytes. The cache survives within a process;
// across restarts it is warmed lazily from the store.
type Tracker struct {
	store driven.DocumentStore

	mu     sync.Mutex
	states map[string]driven.FileState
	// missing records paths the store confirmed absent, so repeated events
	// for an unindexed path cost one round-trip, not many.
	missing map[string]struct{}
}

// NewTracker creates a tracker backed by the given store.
func NewTracker(store driven.DocumentStore) *Tracker {
	return &Tracker{
		store:   store,
		states:  make(map[string]driven.FileState),
		missing: make(map[string]struct{}),
	}
}

func trackerKey(uid, sourcePath string) string {
	return uid + "\x00" + sourcePath
}

// Lookup returns the last indexed state of a source path. On cache miss the
// store is consulted once. The second return is false when the path has never
// been indexed.
func (t *Tracker) Lookup(ctx context.Context, uid, sourcePath string) (driven.FileState, bool, error) {
	key := trackerKey(uid, sourcePath)

	t.mu.Lock()
	if state, ok := t.states[key]; ok {
		t.mu.Unlock()
		return state, true, nil
	}
	if _, ok := t.missing[key]; ok {
		t.mu.Unlock()
		return driven.FileState{}, false, nil
	}
	t.mu.Unlock()

	state, err := t.store.FetchFileState(ctx, uid, sourcePath)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			t.mu.Lock()
			t.missing[key] = struct{}{}
			t.mu.Unlock()
			return driven.FileState{}, false, nil
		}
		return driven.FileState{}, false, err
	}

	t.mu.Lock()
	t.states[key] = *state
	delete(t.missing, key)
	t.mu.Unlock()

	return *state, true, nil
}

// Record remembers the state just written for a source path.
func (t *Tracker) Record(uid, sourcePath string, state driven.FileState) {
	key := trackerKey(uid, sourcePath)

	t.mu.Lock()
	t.states[key] = state
	delete(t.missing, key)
	t.mu.Unlock()
}

// Forget drops a source path after its documents were removed.
func (t *Tracker) Forget(uid, sourcePath string) {
	key := trackerKey(uid, sourcePath)

	t.mu.Lock()
	delete(t.states, key)
	t.missing[key] = struct{}{}
	t.mu.Unlock()
}

// ForgetIndex drops every cached path under one index, used after a bulk
// refresh replaced the subtree.
func (t *Tracker) ForgetIndex(uid string) {
	prefix := uid + "\x00"

	t.mu.Lock()
	for key := range t.states {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(t.states, key)
		}
	}
	for key := range t.missing {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(t.missing, key)
		}
	}
	t.mu.Unlock()
}
