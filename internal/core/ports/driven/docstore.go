package driven

import (
	"context"
	"errors"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
)

// IndexSettings is the per-index schema the synchroniser reconciles once per
// run: the filterable attribute used for path-based deletion, and the
// embedder configuration when embeddings are enabled.
type IndexSettings struct {
	// FilterableAttributes must contain the source-path attribute.
	FilterableAttributes []string

	// Embedder is nil when embeddings are disabled.
	Embedder *EmbedderSettings
}

// EmbedderSettings configures store-side embedding generation.
type EmbedderSettings struct {
	Name             string
	Source           string
	APIKey           string
	Model            string
	Dimensions       int
	DocumentTemplate string
	TemplateMaxBytes int
}

// FileState is the stored stat snapshot for one source path, used to skip
// re-reading unchanged files across process restarts.
type FileState struct {
	FileHash string
	Bytes    int64
	MtimeNs  int64
}

// SearchHit is one ranked result from the store.
type SearchHit struct {
	ID         string  `json:"id"`
	SourcePath string  `json:"source_path"`
	Filename   string  `json:"filename"`
	Content    string  `json:"content,omitempty"`
	Text       string  `json:"text,omitempty"`
	Score      float64 `json:"score,omitempty"`
}

// SearchResult is a page of hits. Index is set on multi-index results.
type SearchResult struct {
	Hits      []SearchHit `json:"hits"`
	Index     string      `json:"index,omitempty"`
	Query     string      `json:"query"`
	Limit     int64       `json:"limit"`
	Offset    int64       `json:"offset"`
	TotalHits int64       `json:"total_hits"`
}

// DocumentStore is the boundary to the external search engine. All write
// operations are idempotent at the document-id level; one call submits one
// batch and waits for the store to apply it.
type DocumentStore interface {
	// EnsureIndex creates the index if it does not exist.
	EnsureIndex(ctx context.Context, uid string) error

	// EnsureSettings reconciles index settings. Safe to call repeatedly;
	// callers cache per run to avoid redundant round-trips.
	EnsureSettings(ctx context.Context, uid string, settings IndexSettings) error

	// UpsertDocuments writes one batch of documents.
	UpsertDocuments(ctx context.Context, uid string, docs []domain.Document) error

	// DeleteBySourcePath removes every document for the source path.
	// Deleting an already-absent path is not an error.
	DeleteBySourcePath(ctx context.Context, uid, sourcePath string) error

	// DeleteByIDs removes documents by identifier.
	DeleteByIDs(ctx context.Context, uid string, ids []string) error

	// FetchFileState returns the stored state for a source path, or
	// domain.ErrNotFound when no document exists for it.
	FetchFileState(ctx context.Context, uid, sourcePath string) (*FileState, error)

	// ListSourcePaths returns the distinct source paths indexed under uid.
	ListSourcePaths(ctx context.Context, uid string) ([]string, error)

	// Search runs a free-text query against one index.
	Search(ctx context.Context, uid, query string, limit, offset int64) (*SearchResult, error)

	// SearchAll runs one query against several indexes in a single call.
	// Results come back in uid order with Index set.
	SearchAll(ctx context.Context, uids []string, query string, limit int64) ([]SearchResult, error)

	// ListIndexes returns the uids of all indexes.
	ListIndexes(ctx context.Context) ([]string, error)

	// Health reports whether the store is reachable and serving.
	Health(ctx context.Context) error
}

// StoreError classifies a store failure so the caller can decide whether to
// retry. The operation itself never retries.
type StoreError struct {
	// Retryable marks transient failures: network errors, timeouts, the
	// store being busy or a task not yet applied.
	Retryable bool

	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Retryable {
		return "store (retryable): " + e.Err.Error()
	}
	return "store: " + e.Err.Error()
}

// Unwrap exposes the underlying cause.
func (e *StoreError) Unwrap() error { return e.Err }

// IsRetryable reports whether the error is a transient store failure.
func IsRetryable(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Retryable
}
