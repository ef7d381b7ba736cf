package driving

import (
	"context"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
)

// WatchStatus is the health snapshot of the watch loop.
type WatchStatus struct {
	Phase domain.WatchPhase `json:"phase"`

	// InitialLoadDone is true once the first full scan completed and the
	// readiness marker was written.
	InitialLoadDone bool `json:"initial_load_done"`

	// FilesIndexed and Errors count work since process start.
	FilesIndexed int `json:"files_indexed"`
	Errors       int `json:"errors"`

	// Pending is the number of paths waiting in a debounce window.
	Pending int `json:"pending"`
}

// WatchService is the top-level driver: one full initial synchronisation,
// then debounced filesystem events.
type WatchService interface {
	// Run blocks until the context is cancelled. In-flight work is drained
	// on shutdown rather than aborted mid-batch.
	Run(ctx context.Context) error

	// Status reports the current phase and counters.
	Status() WatchStatus
}

// RefreshStatus reports per-destination refresh state.
type RefreshStatus struct {
	Destination string              `json:"destination"`
	Phase       domain.RefreshPhase `json:"phase"`
	LastStats   *domain.RefreshStats `json:"last_stats,omitempty"`
	LastError   string              `json:"last_error,omitempty"`
}

// RefreshService coordinates atomic replacement of destination subtrees.
type RefreshService interface {
	// Refresh swaps the staged tree into place for the destination and
	// reconciles the index. Returns domain.ErrRefreshBusy when a refresh
	// for the same destination is already in flight.
	Refresh(ctx context.Context, destination, stagedPath string) (*domain.RefreshStats, error)

	// RefreshAll runs Refresh for each destination→stagedPath pair with
	// bounded parallelism across destinations.
	RefreshAll(ctx context.Context, staged map[string]string) (map[string]*domain.RefreshStats, error)

	// Status reports the phase of every known destination.
	Status() []RefreshStatus
}

// FileContent is the result of retrieving a file through the query boundary.
type FileContent struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"` // "utf-8" or "base64"
	Content  string `json:"content"`
}

// QueryService is the boundary exposed to the serving collaborator.
type QueryService interface {
	// Search runs a ranked free-text query against one index, subject to
	// the index allow-list.
	Search(ctx context.Context, uid, query string, limit, offset int64) (*driven.SearchResult, error)

	// SearchAll runs one query across every allow-listed index.
	SearchAll(ctx context.Context, query string, limit int64) ([]driven.SearchResult, error)

	// ListIndexes lists the indexes visible through the allow-list.
	ListIndexes(ctx context.Context) ([]string, error)

	// GetFile returns the exact bytes of a file under the watched root.
	// Paths resolving outside the root fail regardless of allow-list.
	GetFile(ctx context.Context, relPath string) (*FileContent, error)
}
