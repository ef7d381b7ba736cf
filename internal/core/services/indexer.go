package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
	"github.com/meiliwatch/meiliwatch/internal/logger"
)

const (
	maxWriteAttempts = 4
	retryBaseDelay   = 250 * time.Millisecond
)

// filterableAttributes every index carries. source_path backs targeted
// deletion; the rest support faceted queries.
var filterableAttributes = []string{"source_path", "ext", "filename"}

// Outcome is the result of indexing one file.
type Outcome int

const (
	// OutcomeSkipped means the file was ineligible or classified as skip.
	OutcomeSkipped Outcome = iota

	// OutcomeUnchanged means the stored state already matches the file.
	OutcomeUnchanged

	// OutcomeAdded means the file was indexed for the first time.
	OutcomeAdded

	// OutcomeUpdated means existing documents were replaced.
	OutcomeUpdated
)

// String returns the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeAdded:
		return "added"
	case OutcomeUpdated:
		return "updated"
	default:
		return "skipped"
	}
}

// SyncStats summarises one tree synchronisation.
type SyncStats struct {
	Added     int
	Updated   int
	Unchanged int
	Skipped   int
	Errors    int

	// Seen maps each index uid to the source paths encountered, for
	// reconciliation against the store.
	Seen map[string][]string
}

// Indexer turns files under the watched root into store documents. It owns
// change detection, chunking, settings reconciliation and batched writes.
type Indexer struct {
	cfg      *domain.Config
	store    driven.DocumentStore
	registry driven.ClassifierRegistry
	chunker  driven.Chunker
	tracker  *Tracker

	mu      sync.Mutex
	ensured map[string]bool
}

// NewIndexer creates an indexer over the configured root.
func NewIndexer(
	cfg *domain.Config,
	store driven.DocumentStore,
	registry driven.ClassifierRegistry,
	chunker driven.Chunker,
	tracker *Tracker,
) *Indexer {
	return &Indexer{
		cfg:      cfg,
		store:    store,
		registry: registry,
		chunker:  chunker,
		tracker:  tracker,
	}
}

// IndexFile synchronises one file into its index. The relative path decides
// the index; files directly under the root have none and are skipped.
func (s *Indexer) IndexFile(ctx context.Context, ref domain.FileRef) (Outcome, error) {
	uid, ok := domain.IndexForPath(ref.RelPath)
	if !ok {
		return OutcomeSkipped, nil
	}
	if !s.registry.Eligible(ref.RelPath, ref.Size) {
		return OutcomeSkipped, nil
	}

	docs, outcome, err := s.prepare(ctx, uid, ref)
	if err != nil || outcome == OutcomeUnchanged || outcome == OutcomeSkipped {
		return outcome, err
	}

	if err := s.ensureIndex(ctx, uid); err != nil {
		return outcome, err
	}
	if outcome == OutcomeUpdated {
		// Replace rather than merge so stale chunk documents from a
		// longer previous version do not linger.
		if err := s.store.DeleteBySourcePath(ctx, uid, ref.RelPath); err != nil {
			return outcome, err
		}
	}
	if err := s.writeBatched(ctx, uid, docs); err != nil {
		return outcome, err
	}

	s.tracker.Record(uid, ref.RelPath, driven.FileState{
		FileHash: docs[0].FileHash,
		Bytes:    ref.Size,
		MtimeNs:  ref.MtimeNs,
	})

	return outcome, nil
}

// RemoveFile deletes every document for a path that disappeared from disk.
// Removing a path that was never indexed is a no-op.
func (s *Indexer) RemoveFile(ctx context.Context, relPath string) error {
	uid, ok := domain.IndexForPath(relPath)
	if !ok {
		return nil
	}

	if err := s.store.DeleteBySourcePath(ctx, uid, relPath); err != nil {
		return err
	}
	s.tracker.Forget(uid, relPath)

	return nil
}

// SyncTree walks the root (or one top-level folder when subdir is set) and
// synchronises every eligible file. Per-file failures are counted, logged
// and skipped; the walk continues.
func (s *Indexer) SyncTree(ctx context.Context, subdir string) (*SyncStats, error) {
	root := s.cfg.RootDir
	start := root
	if subdir != "" {
		start = filepath.Join(root, subdir)
	}

	stats := &SyncStats{Seen: make(map[string][]string)}

	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			stats.Errors++
			logger.Warn("walk %s: %v", p, walkErr)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && strings.HasPrefix(path.Base(rel), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			stats.Errors++
			return nil
		}

		ref := domain.FileRef{
			AbsPath: p,
			RelPath: rel,
			Size:    info.Size(),
			MtimeNs: info.ModTime().UnixNano(),
		}

		outcome, err := s.IndexFile(ctx, ref)
		if err != nil {
			stats.Errors++
			logger.Warn("index %s: %v", rel, err)
			return nil
		}

		switch outcome {
		case OutcomeAdded:
			stats.Added++
		case OutcomeUpdated:
			stats.Updated++
		case OutcomeUnchanged:
			stats.Unchanged++
		default:
			stats.Skipped++
			return nil
		}

		if uid, ok := domain.IndexForPath(rel); ok {
			stats.Seen[uid] = append(stats.Seen[uid], rel)
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	for uid := range stats.Seen {
		sort.Strings(stats.Seen[uid])
	}
	return stats, nil
}

// prepare reads and classifies the file and decides whether documents must be
// written. The stat fast path skips reading entirely; when stats differ the
// content hash still rescues touched-but-identical files.
func (s *Indexer) prepare(ctx context.Context, uid string, ref domain.FileRef) ([]domain.Document, Outcome, error) {
	prev, known, err := s.tracker.Lookup(ctx, uid, ref.RelPath)
	if err != nil {
		return nil, OutcomeAdded, err
	}
	if known && prev.Bytes == ref.Size && prev.MtimeNs == ref.MtimeNs {
		return nil, OutcomeUnchanged, nil
	}

	content, err := os.ReadFile(ref.AbsPath)
	if err != nil {
		return nil, OutcomeAdded, fmt.Errorf("read %s: %w", ref.RelPath, err)
	}

	hash := domain.HashBytes(content)
	if known && prev.FileHash == hash {
		// Touched but identical. Refresh the stat record to restore the
		// fast path without rewriting documents.
		s.tracker.Record(uid, ref.RelPath, driven.FileState{
			FileHash: hash,
			Bytes:    ref.Size,
			MtimeNs:  ref.MtimeNs,
		})
		return nil, OutcomeUnchanged, nil
	}

	payload, err := s.registry.Load(ctx, ref.RelPath, content)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			logger.Debug("skipping %s: %v", ref.RelPath, err)
			return nil, OutcomeSkipped, nil
		}
		return nil, OutcomeAdded, err
	}
	if payload.Kind == domain.KindSkip || payload.Empty() {
		return nil, OutcomeSkipped, nil
	}

	outcome := OutcomeAdded
	if known {
		outcome = OutcomeUpdated
	}
	return s.buildDocuments(ref, payload, hash), outcome, nil
}

// buildDocuments produces one document per chunk window. The chunk-0 document
// carries the full content and structured data; higher chunks carry only
// their text window.
func (s *Indexer) buildDocuments(ref domain.FileRef, payload *domain.FilePayload, hash string) []domain.Document {
	chunks := s.chunker.Chunk(payload.Content)
	fileID := domain.FileID(ref.RelPath)
	filename := path.Base(ref.RelPath)
	ext := strings.ToLower(path.Ext(filename))

	docs := make([]domain.Document, 0, len(chunks))
	for i, text := range chunks {
		doc := domain.Document{
			ID:         domain.DocumentID(ref.RelPath, i),
			FileID:     fileID,
			FileHash:   hash,
			SourcePath: ref.RelPath,
			Path:       ref.RelPath,
			Filename:   filename,
			Ext:        ext,
			Bytes:      ref.Size,
			MtimeNs:    ref.MtimeNs,
			Chunk:      i,
			Text:       text,
		}
		if i == 0 {
			doc.Content = payload.Content
			doc.Data = payload.Data
		}
		docs = append(docs, doc)
	}
	return docs
}

// ensureIndex creates the index and reconciles its settings once per run.
func (s *Indexer) ensureIndex(ctx context.Context, uid string) error {
	s.mu.Lock()
	if s.ensured == nil {
		s.ensured = make(map[string]bool)
	}
	done := s.ensured[uid]
	s.mu.Unlock()
	if done {
		return nil
	}

	if err := s.store.EnsureIndex(ctx, uid); err != nil {
		return fmt.Errorf("ensure index %s: %w", uid, err)
	}
	// Settings failures degrade: search still works without filterable
	// attributes or embedders, so indexing proceeds.
	if err := s.store.EnsureSettings(ctx, uid, s.indexSettings()); err != nil {
		logger.Warn("settings for %s not applied: %v", uid, err)
	}

	s.mu.Lock()
	s.ensured[uid] = true
	s.mu.Unlock()

	logger.Debug("index %s ready", uid)
	return nil
}

func (s *Indexer) indexSettings() driven.IndexSettings {
	settings := driven.IndexSettings{
		FilterableAttributes: filterableAttributes,
	}
	if s.cfg.Embeddings.Enabled {
		settings.Embedder = &driven.EmbedderSettings{
			Name:             s.cfg.Embeddings.Name,
			Source:           "openAi",
			APIKey:           s.cfg.Embeddings.APIKey,
			Model:            s.cfg.Embeddings.Model,
			Dimensions:       s.cfg.Embeddings.Dimensions,
			DocumentTemplate: s.cfg.Embeddings.Template,
			TemplateMaxBytes: s.cfg.Embeddings.TemplateMaxBytes,
		}
	}
	return settings
}

// writeBatched splits docs into store-sized batches and writes each with
// bounded retry on transient failures.
func (s *Indexer) writeBatched(ctx context.Context, uid string, docs []domain.Document) error {
	batchSize := s.cfg.Store.BatchSize
	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		err := withRetry(ctx, maxWriteAttempts, func() error {
			return s.store.UpsertDocuments(ctx, uid, batch)
		})
		if err != nil {
			return fmt.Errorf("upsert %d documents into %s: %w", len(batch), uid, err)
		}
	}
	return nil
}

// withRetry runs fn up to attempts times, backing off exponentially between
// transient failures. Non-retryable errors return immediately.
func withRetry(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if !driven.IsRetryable(err) {
			return err
		}
		logger.Debug("transient store failure (attempt %d/%d): %v", attempt+1, attempts, err)
	}
	return err
}
