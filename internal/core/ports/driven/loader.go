package driven

import (
	"context"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
)

// Loader extracts a normalised payload from one file's bytes.
// Implementations are pure: no filesystem or network access.
type Loader interface {
	// Kind this loader produces.
	Kind() domain.Kind

	// Load parses content into a payload. A structured parse failure
	// demotes the file to plain text rather than returning an error;
	// errors are reserved for undecodable input.
	Load(ctx context.Context, relPath string, content []byte) (*domain.FilePayload, error)
}

// ClassifierRegistry decides the loader kind for a path and dispatches to the
// matching loader.
type ClassifierRegistry interface {
	// Eligible applies the skip conditions: extension allow-list,
	// hidden/temp names and the size ceiling.
	Eligible(relPath string, size int64) bool

	// Classify resolves the kind by rule priority: explicit per-path rule,
	// then extension table, then plain-text default.
	Classify(relPath string) domain.Kind

	// Load classifies and extracts in one step.
	Load(ctx context.Context, relPath string, content []byte) (*domain.FilePayload, error)
}

// Chunker splits long text into overlapping windows for per-chunk embedding
// input. Short text yields exactly one window.
type Chunker interface {
	Chunk(text string) []string
}
