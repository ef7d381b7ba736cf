package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driving"
	"github.com/meiliwatch/meiliwatch/internal/logger"
)

// ReadyMarker is written at the root once the initial load completed, so
// external orchestration can gate on first-sync readiness.
const ReadyMarker = ".ready"

// Ensure Watcher implements the interface.
var _ driving.WatchService = (*Watcher)(nil)

// Watcher drives continuous synchronisation: one full initial load, then
// debounced filesystem events. Every changed path waits out a quiet window
// before it is processed; the state on disk at fire time decides between
// upsert and delete.
type Watcher struct {
	cfg     *domain.Config
	indexer *Indexer

	// due receives paths whose debounce window elapsed. Buffered so timer
	// goroutines do not block while a batch is being processed.
	due chan dueItem

	mu           sync.Mutex
	phase        domain.WatchPhase
	initialDone  bool
	filesIndexed int
	errors       int
	pending      map[string]*debounceEntry
}

// debounceEntry tracks the open window for one path. gen increments on every
// re-arm, so a queued dispatch from an earlier window can be recognised as
// stale.
type debounceEntry struct {
	timer *time.Timer
	gen   uint64
}

// dueItem is one elapsed debounce window.
type dueItem struct {
	rel string
	gen uint64
}

// NewWatcher creates the watch loop service.
func NewWatcher(cfg *domain.Config, indexer *Indexer) *Watcher {
	return &Watcher{
		cfg:     cfg,
		indexer: indexer,
		due:     make(chan dueItem, 1024),
		pending: make(map[string]*debounceEntry),
	}
}

// Run performs the initial load, writes the readiness marker and then blocks
// on filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.setPhase(domain.WatchInitialLoad)
	logger.Info("initial load of %s", w.cfg.RootDir)

	stats, err := w.indexer.SyncTree(ctx, "")
	if err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	w.mu.Lock()
	w.filesIndexed += stats.Added + stats.Updated
	w.errors += stats.Errors
	w.initialDone = true
	w.mu.Unlock()

	if err := w.writeReadyMarker(); err != nil {
		logger.Warn("ready marker: %v", err)
	}
	w.setPhase(domain.WatchSteady)
	logger.Info("initial load done: %d added, %d updated, %d unchanged, %d skipped, %d errors",
		stats.Added, stats.Updated, stats.Unchanged, stats.Skipped, stats.Errors)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.watchRecursive(fw, w.cfg.RootDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.RootDir, err)
	}

	// Intake runs on its own goroutine so store writes in the dispatcher
	// never stall event consumption; arming a timer is all the intake
	// side does per event.
	intakeDone := make(chan struct{})
	go func() {
		defer close(intakeDone)
		for {
			select {
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				w.handleEvent(fw, event)
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error: %v", err)
				w.countError()
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil
		case <-intakeDone:
			return nil
		case item := <-w.due:
			w.process(ctx, fw, item)
		}
	}
}

// Status reports the current phase and counters.
func (w *Watcher) Status() driving.WatchStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	return driving.WatchStatus{
		Phase:           w.phase,
		InitialLoadDone: w.initialDone,
		FilesIndexed:    w.filesIndexed,
		Errors:          w.errors,
		Pending:         len(w.pending),
	}
}

// handleEvent translates one raw event into debounced work. Directory
// creation extends the watch and schedules the files already inside, which
// covers moves of whole trees into the root.
func (w *Watcher) handleEvent(fw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	rel, ok := w.relPath(event.Name)
	if !ok {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watchRecursive(fw, event.Name); err != nil {
				logger.Warn("watch %s: %v", event.Name, err)
			}
			w.scheduleTree(event.Name)
			return
		}
	}

	w.schedule(rel)
}

// schedule (re)arms the debounce timer for one path. A burst of events within
// the window collapses into a single dispatch; each re-arm bumps the
// generation so a dispatch already queued from the previous window is
// discarded instead of indexing a half-written file.
func (w *Watcher) schedule(rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.pending[rel]
	if !ok {
		entry = &debounceEntry{}
		w.pending[rel] = entry
	} else {
		entry.timer.Stop()
	}
	entry.gen++

	gen := entry.gen
	entry.timer = time.AfterFunc(w.cfg.Debounce, func() {
		w.due <- dueItem{rel: rel, gen: gen}
	})
}

// scheduleTree debounces every file under a newly appeared directory.
func (w *Watcher) scheduleTree(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, ok := w.relPath(p); ok {
			w.schedule(rel)
		}
		return nil
	})
}

// process handles one debounced path: the file's presence on disk at fire
// time decides between upsert and removal. A dispatch whose generation no
// longer matches the pending entry was superseded by a newer event whose
// window is still open, so it is dropped.
func (w *Watcher) process(ctx context.Context, fw *fsnotify.Watcher, item dueItem) {
	rel := item.rel

	w.mu.Lock()
	entry, ok := w.pending[rel]
	if !ok || entry.gen != item.gen {
		w.mu.Unlock()
		return
	}
	entry.timer.Stop()
	delete(w.pending, rel)
	w.mu.Unlock()

	abs := filepath.Join(w.cfg.RootDir, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err):
		if err := w.indexer.RemoveFile(ctx, rel); err != nil {
			logger.Warn("remove %s: %v", rel, err)
			w.degrade()
			return
		}
		logger.Debug("removed %s", rel)
		w.recover()
	case err != nil:
		logger.Warn("stat %s: %v", rel, err)
		w.countError()
	case info.IsDir():
		if err := w.watchRecursive(fw, abs); err != nil {
			logger.Warn("watch %s: %v", abs, err)
		}
	default:
		ref := domain.FileRef{
			AbsPath: abs,
			RelPath: rel,
			Size:    info.Size(),
			MtimeNs: info.ModTime().UnixNano(),
		}
		outcome, err := w.indexer.IndexFile(ctx, ref)
		if err != nil {
			logger.Warn("index %s: %v", rel, err)
			w.degrade()
			return
		}
		if outcome == OutcomeAdded || outcome == OutcomeUpdated {
			w.mu.Lock()
			w.filesIndexed++
			w.mu.Unlock()
			logger.Debug("%s %s", outcome, rel)
		}
		w.recover()
	}
}

// watchRecursive registers dir and every non-hidden directory below it.
func (w *Watcher) watchRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(filepath.Base(p), ".") {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}

// relPath maps an absolute event path onto the slash-separated root-relative
// form, rejecting paths outside the root and hidden segments.
func (w *Watcher) relPath(abs string) (string, bool) {
	rel, err := filepath.Rel(w.cfg.RootDir, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return "", false
		}
	}
	return rel, true
}

func (w *Watcher) writeReadyMarker() error {
	marker := filepath.Join(w.cfg.RootDir, ReadyMarker)
	stamp := time.Now().UTC().Format(time.RFC3339) + "\n"
	return os.WriteFile(marker, []byte(stamp), 0o644)
}

func (w *Watcher) setPhase(phase domain.WatchPhase) {
	w.mu.Lock()
	w.phase = phase
	w.mu.Unlock()
}

func (w *Watcher) countError() {
	w.mu.Lock()
	w.errors++
	w.mu.Unlock()
}

// degrade marks the loop degraded after a store failure. Events keep being
// accepted; the next successful write restores the steady phase.
func (w *Watcher) degrade() {
	w.mu.Lock()
	w.errors++
	w.phase = domain.WatchDegraded
	w.mu.Unlock()
}

func (w *Watcher) recover() {
	w.mu.Lock()
	if w.phase == domain.WatchDegraded {
		w.phase = domain.WatchSteady
	}
	w.mu.Unlock()
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	for rel, entry := range w.pending {
		entry.timer.Stop()
		delete(w.pending, rel)
	}
	w.mu.Unlock()
}
