package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Defaults mirror the values the service has always shipped with.
const (
	DefaultBatchSize        = 200
	DefaultMaxFileBytes     = 2 * 1024 * 1024
	DefaultChunkSize        = 1200
	DefaultChunkOverlap     = 150
	DefaultDebounce         = 350 * time.Millisecond
	DefaultRefreshParallel  = 4
	DefaultTemplateMaxBytes = 20000
	DefaultEmbedderName     = "openai"
	DefaultEmbedModel       = "text-embedding-3-small"
	DefaultDocumentTemplate = "{{doc.filename}}\n{{doc.path}}\n\n{{doc.text}}"
)

// DefaultAllowedExts is the extension allow-list applied when none is
// configured.
var DefaultAllowedExts = []string{
	".md", ".mdx", ".txt", ".json", ".yml", ".yaml", ".toml",
	".js", ".ts", ".vue", ".css", ".html", ".sh", ".py", ".csv",
}

// LoaderRule maps a top-level folder (and optional filename glob) to an
// explicit loader kind, overriding extension-based inference.
type LoaderRule struct {
	// Folder is the top-level folder the rule applies to.
	Folder string `toml:"folder"`

	// Pattern is an optional glob matched against the path inside the
	// folder. Empty matches every file in the folder.
	Pattern string `toml:"pattern"`

	// Kind is the loader kind name: frontmatter, structured, plaintext, skip.
	Kind string `toml:"kind"`
}

// Matches reports whether the rule applies to a slash-separated path relative
// to the watched root.
func (r LoaderRule) Matches(relPath string) bool {
	relPath = strings.Trim(relPath, "/")
	parts := strings.SplitN(relPath, "/", 2)
	if len(parts) < 2 || parts[0] != r.Folder {
		return false
	}
	if r.Pattern == "" {
		return true
	}
	if ok, err := path.Match(r.Pattern, parts[1]); err == nil && ok {
		return true
	}
	// Also try the bare filename so patterns like "*.yml" apply to nested
	// files.
	ok, err := path.Match(r.Pattern, path.Base(parts[1]))
	return err == nil && ok
}

// StoreConfig configures the document store boundary.
type StoreConfig struct {
	// Host is the Meilisearch base URL.
	Host string `toml:"host"`

	// MasterKey authenticates every store operation. Required.
	MasterKey string `toml:"master_key"`

	// BatchSize caps the number of documents per write operation.
	BatchSize int `toml:"batch_size"`
}

// EmbeddingConfig configures optional embedding generation in the store.
type EmbeddingConfig struct {
	Enabled bool `toml:"enabled"`

	// Name of the embedder as registered in index settings.
	Name string `toml:"name"`

	// APIKey for the embedding provider. Required when enabled.
	APIKey string `toml:"api_key"`

	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`

	// Template rendered per chunk as the embedding input.
	Template string `toml:"template"`

	// TemplateMaxBytes truncates oversized rendered templates.
	TemplateMaxBytes int `toml:"template_max_bytes"`
}

// RefreshConfig configures the bulk refresh coordinator.
type RefreshConfig struct {
	// StagingDir is where external fetches materialise staged trees.
	StagingDir string `toml:"staging_dir"`

	// MaxParallel bounds concurrent destination refreshes.
	MaxParallel int `toml:"max_parallel"`
}

// Config is the full configuration surface.
type Config struct {
	// RootDir is the watched root; one index per top-level folder.
	RootDir string `toml:"root_dir"`

	// AllowedExts restricts indexing to these extensions (with leading dot).
	AllowedExts []string `toml:"allowed_exts"`

	// MaxFileBytes skips files over this size.
	MaxFileBytes int64 `toml:"max_file_bytes"`

	// ChunkSize and ChunkOverlap control the embedding chunk windows.
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`

	// Debounce is the quiet window before a changed path is processed.
	// Parsed from a duration string by the config adapter.
	Debounce time.Duration `toml:"-"`

	// AllowedIndexes restricts the query boundary; empty allows all.
	AllowedIndexes []string `toml:"allowed_indexes"`

	Rules      []LoaderRule    `toml:"rules"`
	Store      StoreConfig     `toml:"store"`
	Embeddings EmbeddingConfig `toml:"embeddings"`
	Refresh    RefreshConfig   `toml:"refresh"`
}

// ApplyDefaults fills zero values with shipped defaults.
func (c *Config) ApplyDefaults() {
	if c.Store.Host == "" {
		c.Store.Host = "http://127.0.0.1:7700"
	}
	if c.Store.BatchSize <= 0 {
		c.Store.BatchSize = DefaultBatchSize
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = DefaultMaxFileBytes
	}
	if len(c.AllowedExts) == 0 {
		c.AllowedExts = append([]string(nil), DefaultAllowedExts...)
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = DefaultChunkOverlap
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.Refresh.MaxParallel <= 0 {
		c.Refresh.MaxParallel = DefaultRefreshParallel
	}
	if c.Embeddings.Name == "" {
		c.Embeddings.Name = DefaultEmbedderName
	}
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = DefaultEmbedModel
	}
	if c.Embeddings.Template == "" {
		c.Embeddings.Template = DefaultDocumentTemplate
	}
	if c.Embeddings.TemplateMaxBytes <= 0 {
		c.Embeddings.TemplateMaxBytes = DefaultTemplateMaxBytes
	}
}

// Validate rejects configurations the process must not start with.
func (c *Config) Validate() error {
	if c.RootDir == "" {
		return fmt.Errorf("%w: root_dir is required", ErrInvalidConfig)
	}
	if c.Store.MasterKey == "" {
		return fmt.Errorf("%w: store.master_key is required", ErrInvalidConfig)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be less than chunk_size (%d)",
			ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	if c.Embeddings.Enabled && c.Embeddings.APIKey == "" {
		return fmt.Errorf("%w: embeddings.api_key is required when embeddings are enabled",
			ErrInvalidConfig)
	}
	for _, r := range c.Rules {
		if _, err := ParseKind(r.Kind); err != nil {
			return err
		}
		if r.Folder == "" {
			return fmt.Errorf("%w: loader rule without folder", ErrInvalidConfig)
		}
	}
	return nil
}

// ExtAllowed reports whether the extension (with leading dot, lowercase)
// passes the allow-list.
func (c *Config) ExtAllowed(ext string) bool {
	if len(c.AllowedExts) == 0 {
		return true
	}
	for _, e := range c.AllowedExts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// IndexAllowed reports whether the query boundary may touch the index.
// An empty allow-list allows everything.
func (c *Config) IndexAllowed(uid string) bool {
	if len(c.AllowedIndexes) == 0 {
		return true
	}
	for _, a := range c.AllowedIndexes {
		if strings.EqualFold(a, uid) {
			return true
		}
	}
	return false
}
