package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driving"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

// Ensure Query implements the interface.
var _ driving.QueryService = (*Query)(nil)

// Query is the read-only boundary exposed to serving collaborators. Every
// operation is subject to the index allow-list; file retrieval is confined to
// the watched root.
type Query struct {
	cfg   *domain.Config
	store driven.DocumentStore
}

// NewQuery creates the query boundary service.
func NewQuery(cfg *domain.Config, store driven.DocumentStore) *Query {
	return &Query{cfg: cfg, store: store}
}

// Search runs a ranked free-text query against one index.
func (q *Query) Search(ctx context.Context, uid, query string, limit, offset int64) (*driven.SearchResult, error) {
	uid = domain.SanitizeIndexUID(uid)
	if uid == "" {
		return nil, fmt.Errorf("%w: index is required", domain.ErrInvalidInput)
	}
	if !q.cfg.IndexAllowed(uid) {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotAllowed, uid)
	}

	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	return q.store.Search(ctx, uid, query, limit, offset)
}

// SearchAll fans one query out across every allow-listed index in a single
// store round-trip.
func (q *Query) SearchAll(ctx context.Context, query string, limit int64) ([]driven.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	uids, err := q.ListIndexes(ctx)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, nil
	}
	return q.store.SearchAll(ctx, uids, query, limit)
}

// ListIndexes returns the store's indexes filtered through the allow-list,
// sorted for stable output.
func (q *Query) ListIndexes(ctx context.Context) ([]string, error) {
	uids, err := q.store.ListIndexes(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(uids))
	for _, uid := range uids {
		if q.cfg.IndexAllowed(uid) {
			out = append(out, uid)
		}
	}
	sort.Strings(out)
	return out, nil
}

// GetFile returns the exact bytes of one file under the watched root. Content
// that is not valid UTF-8 is base64-encoded and marked as such.
func (q *Query) GetFile(ctx context.Context, relPath string) (*driving.FileContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, rel, err := q.resolve(relPath)
	if err != nil {
		return nil, err
	}

	// The first segment is the index the file belongs to, so the same
	// allow-list as Search applies.
	first, _, _ := strings.Cut(rel, "/")
	if !q.cfg.IndexAllowed(domain.SanitizeIndexUID(first)) {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotAllowed, first)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, rel)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, rel)
	}
	if q.cfg.MaxFileBytes > 0 && info.Size() > q.cfg.MaxFileBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, rel, q.cfg.MaxFileBytes)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	out := &driving.FileContent{
		Path: rel,
		Size: int64(len(content)),
	}
	if utf8.Valid(content) {
		out.Encoding = "utf-8"
		out.Content = string(content)
	} else {
		out.Encoding = "base64"
		out.Content = base64.StdEncoding.EncodeToString(content)
	}
	return out, nil
}

// resolve joins relPath onto the root and rejects anything that escapes it.
// The check is lexical on the cleaned path, so "../" sequences cannot climb
// out regardless of how they are spelled.
func (q *Query) resolve(relPath string) (abs, rel string, err error) {
	relPath = strings.TrimSpace(relPath)
	if relPath == "" || filepath.IsAbs(relPath) {
		return "", "", fmt.Errorf("%w: %q", domain.ErrPathOutsideRoot, relPath)
	}

	root := filepath.Clean(q.cfg.RootDir)
	abs = filepath.Join(root, filepath.FromSlash(relPath))

	inner, err := filepath.Rel(root, abs)
	if err != nil || inner == "." || inner == ".." || strings.HasPrefix(inner, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %q", domain.ErrPathOutsideRoot, relPath)
	}

	return abs, filepath.ToSlash(inner), nil
}
