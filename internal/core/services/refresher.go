package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driving"
	"github.com/meiliwatch/meiliwatch/internal/logger"
)

// Ensure Refresher implements the interface.
var _ driving.RefreshService = (*Refresher)(nil)

type refreshState struct {
	phase     domain.RefreshPhase
	lastStats *domain.RefreshStats
	lastError string
}

// Refresher atomically replaces destination subtrees with staged trees and
// reconciles the corresponding index. At most one refresh per destination
// runs at a time; concurrent requests for the same destination are rejected,
// not queued.
type Refresher struct {
	cfg     *domain.Config
	store   driven.DocumentStore
	indexer *Indexer
	tracker *Tracker

	mu     sync.Mutex
	states map[string]*refreshState
}

// NewRefresher creates the bulk refresh coordinator.
func NewRefresher(cfg *domain.Config, store driven.DocumentStore, indexer *Indexer, tracker *Tracker) *Refresher {
	return &Refresher{
		cfg:     cfg,
		store:   store,
		indexer: indexer,
		tracker: tracker,
		states:  make(map[string]*refreshState),
	}
}

// Refresh swaps the staged tree into place for one destination, then
// reconciles index contents against the new tree. The swap is rename-based:
// at any instant the destination path holds either the complete old tree or
// the complete new one.
func (r *Refresher) Refresh(ctx context.Context, destination, stagedPath string) (*domain.RefreshStats, error) {
	if !domain.ValidDestination(destination) {
		return nil, fmt.Errorf("%w: invalid destination %q", domain.ErrInvalidInput, destination)
	}
	if err := checkStaged(stagedPath); err != nil {
		return nil, err
	}

	if !r.acquire(destination) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRefreshBusy, destination)
	}
	defer r.release(destination)

	start := time.Now()
	stats := &domain.RefreshStats{
		ID:          uuid.NewString(),
		Destination: destination,
	}
	logger.Info("refresh %s: swapping in %s (op %s)", destination, stagedPath, stats.ID)

	r.setPhase(destination, domain.RefreshSwapping)
	if err := r.swap(destination, stagedPath); err != nil {
		r.fail(destination, err)
		return nil, err
	}

	r.setPhase(destination, domain.RefreshReconciling)
	if err := r.reconcile(ctx, destination, stats); err != nil {
		r.fail(destination, err)
		return stats, err
	}

	stats.Duration = time.Since(start)
	stats.FinishedAt = time.Now().UTC()
	r.succeed(destination, stats)
	logger.Info("refresh %s done: %d added, %d updated, %d removed, %d errors in %s",
		destination, stats.Added, stats.Updated, stats.Removed, stats.Errors, stats.Duration.Round(time.Millisecond))

	return stats, nil
}

// RefreshAll refreshes each destination with bounded parallelism. Failures
// are isolated per destination and joined into the returned error.
func (r *Refresher) RefreshAll(ctx context.Context, staged map[string]string) (map[string]*domain.RefreshStats, error) {
	results := make(map[string]*domain.RefreshStats, len(staged))
	var (
		resultMu sync.Mutex
		errs     []error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Refresh.MaxParallel)

	for destination, stagedPath := range staged {
		g.Go(func() error {
			stats, err := r.Refresh(ctx, destination, stagedPath)

			resultMu.Lock()
			defer resultMu.Unlock()
			if stats != nil {
				results[destination] = stats
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", destination, err))
			}
			return nil
		})
	}

	// Goroutines never return errors directly, so Wait only observes
	// context cancellation.
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}

	return results, errors.Join(errs...)
}

// Status reports every known destination, sorted by name.
func (r *Refresher) Status() []driving.RefreshStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]driving.RefreshStatus, 0, len(r.states))
	for destination, state := range r.states {
		out = append(out, driving.RefreshStatus{
			Destination: destination,
			Phase:       state.phase,
			LastStats:   state.lastStats,
			LastError:   state.lastError,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Destination < out[j].Destination })
	return out
}

// swap replaces the live subtree with the staged one via two renames. On a
// failed second rename the old tree is moved back, so the destination never
// ends up missing.
func (r *Refresher) swap(destination, stagedPath string) error {
	live := filepath.Join(r.cfg.RootDir, destination)
	tombstone := filepath.Join(r.cfg.RootDir, ".old-"+destination+"-"+uuid.NewString()[:8])

	hadLive := true
	if err := os.Rename(live, tombstone); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("retire %s: %w", destination, err)
		}
		hadLive = false
	}

	if err := os.Rename(stagedPath, live); err != nil {
		if hadLive {
			if rbErr := os.Rename(tombstone, live); rbErr != nil {
				return fmt.Errorf("activate %s failed (%v) and rollback failed: %w", destination, err, rbErr)
			}
		}
		return fmt.Errorf("activate %s: %w", destination, err)
	}

	if hadLive {
		if err := os.RemoveAll(tombstone); err != nil {
			logger.Warn("cleanup %s: %v", tombstone, err)
		}
	}
	return nil
}

// reconcile indexes every file under the fresh tree, then removes documents
// whose source paths no longer exist on disk.
func (r *Refresher) reconcile(ctx context.Context, destination string, stats *domain.RefreshStats) error {
	uid := domain.SanitizeIndexUID(destination)
	r.tracker.ForgetIndex(uid)

	synced, err := r.indexer.SyncTree(ctx, destination)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", destination, err)
	}
	stats.Added = synced.Added
	stats.Updated = synced.Updated
	stats.Errors = synced.Errors

	// Seen includes unchanged files, so a path that produced no writes is
	// still protected from the stale sweep below.
	present := make(map[string]struct{}, len(synced.Seen[uid]))
	for _, p := range synced.Seen[uid] {
		present[p] = struct{}{}
	}

	stored, err := r.store.ListSourcePaths(ctx, uid)
	if err != nil {
		return fmt.Errorf("list %s: %w", uid, err)
	}

	for _, sourcePath := range stored {
		if _, ok := present[sourcePath]; ok {
			continue
		}
		if err := r.store.DeleteBySourcePath(ctx, uid, sourcePath); err != nil {
			logger.Warn("delete %s from %s: %v", sourcePath, uid, err)
			stats.Errors++
			continue
		}
		r.tracker.Forget(uid, sourcePath)
		stats.Removed++
	}

	return nil
}

func checkStaged(stagedPath string) error {
	info, err := os.Stat(stagedPath)
	if err != nil {
		return fmt.Errorf("%w: staged tree %s: %v", domain.ErrStagingIncomplete, stagedPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: staged tree %s is not a directory", domain.ErrStagingIncomplete, stagedPath)
	}
	entries, err := os.ReadDir(stagedPath)
	if err != nil {
		return fmt.Errorf("%w: staged tree %s: %v", domain.ErrStagingIncomplete, stagedPath, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: staged tree %s is empty", domain.ErrStagingIncomplete, stagedPath)
	}
	return nil
}

func (r *Refresher) acquire(destination string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[destination]
	if !ok {
		state = &refreshState{}
		r.states[destination] = state
	}
	if state.phase != domain.RefreshIdle {
		return false
	}
	state.phase = domain.RefreshStaging
	return true
}

func (r *Refresher) release(destination string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.states[destination]; ok && state.phase != domain.RefreshIdle {
		state.phase = domain.RefreshIdle
	}
}

func (r *Refresher) setPhase(destination string, phase domain.RefreshPhase) {
	r.mu.Lock()
	if state, ok := r.states[destination]; ok {
		state.phase = phase
	}
	r.mu.Unlock()
}

func (r *Refresher) fail(destination string, err error) {
	r.mu.Lock()
	if state, ok := r.states[destination]; ok {
		state.lastError = err.Error()
	}
	r.mu.Unlock()
}

func (r *Refresher) succeed(destination string, stats *domain.RefreshStats) {
	r.mu.Lock()
	if state, ok := r.states[destination]; ok {
		state.lastStats = stats
		state.lastError = ""
	}
	r.mu.Unlock()
}
