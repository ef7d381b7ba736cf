package loaders

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
	"github.com/meiliwatch/meiliwatch/internal/loaders/frontmatter"
	"github.com/meiliwatch/meiliwatch/internal/loaders/plaintext"
	"github.com/meiliwatch/meiliwatch/internal/loaders/structured"
)

// Ensure Registry implements the interface.
var _ driven.ClassifierRegistry = (*Registry)(nil)

// extKinds is the extension-based inference table, consulted after explicit
// per-path rules.
var extKinds = map[string]domain.Kind{
	".md":   domain.KindFrontmatter,
	".mdx":  domain.KindFrontmatter,
	".json": domain.KindStructured,
	".yml":  domain.KindStructured,
	".yaml": domain.KindStructured,
	".csv":  domain.KindStructured,
}

// tempSuffixes are editor droppings that never belong in an index.
var tempSuffixes = []string{"~", ".swp", ".tmp"}

// Registry classifies paths and dispatches to the matching loader.
type Registry struct {
	rules        []domain.LoaderRule
	allowedExts  []string
	maxFileBytes int64

	frontmatter driven.Loader
	structured  driven.Loader
	plaintext   driven.Loader
}

// New creates a registry from the configured rules and limits.
func New(cfg *domain.Config) *Registry {
	return &Registry{
		rules:        cfg.Rules,
		allowedExts:  cfg.AllowedExts,
		maxFileBytes: cfg.MaxFileBytes,
		frontmatter:  frontmatter.New(),
		structured:   structured.New(),
		plaintext:    plaintext.New(),
	}
}

// Eligible applies the skip conditions in order: hidden path segments,
// temp/swap names, the extension allow-list, then the size ceiling.
func (r *Registry) Eligible(relPath string, size int64) bool {
	relPath = strings.Trim(relPath, "/")
	if relPath == "" {
		return false
	}

	for _, part := range strings.Split(relPath, "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}

	name := path.Base(relPath)
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(name, suffix) {
			return false
		}
	}

	ext := strings.ToLower(path.Ext(name))
	if !r.extAllowed(ext) {
		return false
	}

	if r.maxFileBytes > 0 && size > r.maxFileBytes {
		return false
	}

	return true
}

func (r *Registry) extAllowed(ext string) bool {
	if len(r.allowedExts) == 0 || ext == "" {
		return true
	}
	for _, e := range r.allowedExts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// Classify resolves the loader kind by priority: first matching explicit
// rule, then the extension table, then the plain-text default.
func (r *Registry) Classify(relPath string) domain.Kind {
	for _, rule := range r.rules {
		if rule.Matches(relPath) {
			kind, err := domain.ParseKind(rule.Kind)
			if err == nil {
				return kind
			}
		}
	}

	ext := strings.ToLower(path.Ext(relPath))
	if kind, ok := extKinds[ext]; ok {
		return kind
	}
	return domain.KindPlainText
}

// Load classifies the path and extracts its payload.
func (r *Registry) Load(ctx context.Context, relPath string, content []byte) (*domain.FilePayload, error) {
	switch r.Classify(relPath) {
	case domain.KindSkip:
		return &domain.FilePayload{Kind: domain.KindSkip}, nil
	case domain.KindFrontmatter:
		return r.frontmatter.Load(ctx, relPath, content)
	case domain.KindStructured:
		return r.structured.Load(ctx, relPath, content)
	case domain.KindPlainText:
		return r.plaintext.Load(ctx, relPath, content)
	default:
		return nil, fmt.Errorf("%w: unhandled loader kind", domain.ErrInvalidInput)
	}
}
