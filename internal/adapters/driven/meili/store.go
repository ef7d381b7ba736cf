// Package meili implements the DocumentStore port against a Meilisearch
// instance using the official Go client. Every write is submitted as a task
// and awaited, so a returned nil error means the change is applied.
package meili

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"golang.org/x/time/rate"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
	"github.com/meiliwatch/meiliwatch/internal/logger"
)

const (
	taskPollInterval = 50 * time.Millisecond

	// listPageSize is the page size for document enumeration during
	// reconciliation and deletion fallback.
	listPageSize = 1000
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// documentPrimaryKey addresses documents in every index.
var documentPrimaryKey = "id"

// Store talks to one Meilisearch instance.
type Store struct {
	client  meilisearch.ServiceManager
	limiter *rate.Limiter
}

// New creates a store client for the configured host.
func New(cfg domain.StoreConfig) *Store {
	return &Store{
		client: meilisearch.New(cfg.Host, meilisearch.WithAPIKey(cfg.MasterKey)),
		// Smooths request bursts during full loads rather than hammering
		// the instance with one call per file.
		limiter: rate.NewLimiter(rate.Limit(50), 100),
	}
}

// EnsureIndex creates the index with the id primary key if it does not exist.
func (s *Store) EnsureIndex(ctx context.Context, uid string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	if _, err := s.client.GetIndexWithContext(ctx, uid); err == nil {
		return nil
	}

	task, err := s.client.CreateIndexWithContext(ctx, &meilisearch.IndexConfig{
		Uid:        uid,
		PrimaryKey: "id",
	})
	if err != nil {
		return classify(err)
	}
	if err := s.waitTask(ctx, task.TaskUID); err != nil {
		// A concurrent creator winning the race is fine.
		if _, getErr := s.client.GetIndexWithContext(ctx, uid); getErr == nil {
			return nil
		}
		return err
	}

	logger.Debug("created index %s", uid)
	return nil
}

// EnsureSettings applies filterable attributes and the embedder configuration.
func (s *Store) EnsureSettings(ctx context.Context, uid string, settings driven.IndexSettings) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	update := meilisearch.Settings{
		FilterableAttributes: settings.FilterableAttributes,
	}
	if e := settings.Embedder; e != nil {
		update.Embedders = map[string]meilisearch.Embedder{
			e.Name: {
				Source:                   meilisearch.EmbedderSource(e.Source),
				APIKey:                   e.APIKey,
				Model:                    e.Model,
				Dimensions:               e.Dimensions,
				DocumentTemplate:         e.DocumentTemplate,
				DocumentTemplateMaxBytes: e.TemplateMaxBytes,
			},
		}
	}

	task, err := s.client.Index(uid).UpdateSettingsWithContext(ctx, &update)
	if err != nil {
		return classify(err)
	}
	return s.waitTask(ctx, task.TaskUID)
}

// UpsertDocuments writes one batch and waits for it to be applied.
func (s *Store) UpsertDocuments(ctx context.Context, uid string, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	task, err := s.client.Index(uid).AddDocumentsWithContext(ctx, docs, &documentPrimaryKey)
	if err != nil {
		return classify(err)
	}
	return s.waitTask(ctx, task.TaskUID)
}

// DeleteBySourcePath removes every document for one source path. The primary
// mechanism is a filter deletion; when the filter is rejected (settings not
// applied yet on an old index) the documents are enumerated and deleted by id.
func (s *Store) DeleteBySourcePath(ctx context.Context, uid, sourcePath string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	task, err := s.client.Index(uid).DeleteDocumentsByFilterWithContext(ctx, sourcePathFilter(sourcePath))
	if err == nil {
		err = s.waitTask(ctx, task.TaskUID)
	} else {
		err = classify(err)
	}
	if err == nil {
		return nil
	}
	if driven.IsRetryable(err) {
		return err
	}

	logger.Debug("filter deletion failed for %s, falling back to id scan: %v", sourcePath, err)
	return s.deleteByScan(ctx, uid, sourcePath)
}

// DeleteByIDs removes documents by identifier.
func (s *Store) DeleteByIDs(ctx context.Context, uid string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	task, err := s.client.Index(uid).DeleteDocumentsWithContext(ctx, ids)
	if err != nil {
		return classify(err)
	}
	return s.waitTask(ctx, task.TaskUID)
}

type fileStateDoc struct {
	FileHash string `json:"file_hash"`
	Bytes    int64  `json:"bytes"`
	MtimeNs  int64  `json:"mtime_ns"`
}

// FetchFileState reads the stat snapshot off the chunk-0 document.
func (s *Store) FetchFileState(ctx context.Context, uid, sourcePath string) (*driven.FileState, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var doc fileStateDoc
	err := s.client.Index(uid).GetDocumentWithContext(ctx, domain.DocumentID(sourcePath, 0), &meilisearch.DocumentQuery{
		Fields: []string{"file_hash", "bytes", "mtime_ns"},
	}, &doc)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, classify(err)
	}

	return &driven.FileState{
		FileHash: doc.FileHash,
		Bytes:    doc.Bytes,
		MtimeNs:  doc.MtimeNs,
	}, nil
}

// ListSourcePaths enumerates the distinct source paths stored under uid.
func (s *Store) ListSourcePaths(ctx context.Context, uid string) ([]string, error) {
	seen := make(map[string]struct{})

	err := s.scanDocuments(ctx, uid, func(doc scanDoc) {
		if doc.SourcePath != "" {
			seen[doc.SourcePath] = struct{}{}
		}
	})
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// searchAttributes is the hit projection returned to callers.
var searchAttributes = []string{"id", "source_path", "filename", "content", "text"}

type searchHitDoc struct {
	ID         string  `json:"id"`
	SourcePath string  `json:"source_path"`
	Filename   string  `json:"filename"`
	Content    string  `json:"content"`
	Text       string  `json:"text"`
	Score      float64 `json:"_rankingScore"`
}

func decodeHits(hits meilisearch.Hits) []driven.SearchHit {
	out := make([]driven.SearchHit, 0, len(hits))
	for _, raw := range hits {
		var doc searchHitDoc
		if err := raw.Decode(&doc); err != nil {
			continue
		}
		out = append(out, driven.SearchHit{
			ID:         doc.ID,
			SourcePath: doc.SourcePath,
			Filename:   doc.Filename,
			Content:    doc.Content,
			Text:       doc.Text,
			Score:      doc.Score,
		})
	}
	return out
}

// Search runs one ranked query against an index.
func (s *Store) Search(ctx context.Context, uid, query string, limit, offset int64) (*driven.SearchResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := s.client.Index(uid).SearchWithContext(ctx, query, &meilisearch.SearchRequest{
		Limit:                limit,
		Offset:               offset,
		AttributesToRetrieve: searchAttributes,
		ShowRankingScore:     true,
	})
	if err != nil {
		return nil, classify(err)
	}

	return &driven.SearchResult{
		Hits:      decodeHits(resp.Hits),
		Query:     query,
		Limit:     limit,
		Offset:    offset,
		TotalHits: resp.EstimatedTotalHits,
	}, nil
}

// SearchAll fans one query out over several indexes in a single request.
func (s *Store) SearchAll(ctx context.Context, uids []string, query string, limit int64) ([]driven.SearchResult, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	queries := make([]*meilisearch.SearchRequest, 0, len(uids))
	for _, uid := range uids {
		queries = append(queries, &meilisearch.SearchRequest{
			IndexUID:             uid,
			Query:                query,
			Limit:                limit,
			AttributesToRetrieve: searchAttributes,
			ShowRankingScore:     true,
		})
	}

	resp, err := s.client.MultiSearchWithContext(ctx, &meilisearch.MultiSearchRequest{Queries: queries})
	if err != nil {
		return nil, classify(err)
	}

	results := make([]driven.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, driven.SearchResult{
			Hits:      decodeHits(r.Hits),
			Index:     r.IndexUID,
			Query:     query,
			Limit:     limit,
			TotalHits: r.EstimatedTotalHits,
		})
	}
	return results, nil
}

// ListIndexes returns every index uid on the instance.
func (s *Store) ListIndexes(ctx context.Context) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := s.client.ListIndexesWithContext(ctx, &meilisearch.IndexesQuery{Limit: listPageSize})
	if err != nil {
		return nil, classify(err)
	}

	uids := make([]string, 0, len(res.Results))
	for _, idx := range res.Results {
		uids = append(uids, idx.UID)
	}
	sort.Strings(uids)
	return uids, nil
}

// Health reports reachability of the instance.
func (s *Store) Health(ctx context.Context) error {
	if _, err := s.client.HealthWithContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// deleteByScan enumerates documents and removes the ones matching sourcePath.
func (s *Store) deleteByScan(ctx context.Context, uid, sourcePath string) error {
	var ids []string
	err := s.scanDocuments(ctx, uid, func(doc scanDoc) {
		if doc.SourcePath == sourcePath && doc.ID != "" {
			ids = append(ids, doc.ID)
		}
	})
	if err != nil {
		return err
	}
	return s.DeleteByIDs(ctx, uid, ids)
}

type scanDoc struct {
	ID         string `json:"id"`
	SourcePath string `json:"source_path"`
}

// scanDocuments pages through every document of an index, retrieving only the
// id and source_path attributes.
func (s *Store) scanDocuments(ctx context.Context, uid string, visit func(scanDoc)) error {
	idx := s.client.Index(uid)
	for offset := int64(0); ; offset += listPageSize {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		var page meilisearch.DocumentsResult
		err := idx.GetDocumentsWithContext(ctx, &meilisearch.DocumentsQuery{
			Limit:  listPageSize,
			Offset: offset,
			Fields: []string{"id", "source_path"},
		}, &page)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return classify(err)
		}

		for _, raw := range page.Results {
			var doc scanDoc
			if err := raw.Decode(&doc); err != nil {
				continue
			}
			visit(doc)
		}
		if offset+int64(len(page.Results)) >= page.Total || len(page.Results) == 0 {
			return nil
		}
	}
}

// waitTask blocks until the task settles and converts failures into errors.
func (s *Store) waitTask(ctx context.Context, taskUID int64) error {
	task, err := s.client.WaitForTaskWithContext(ctx, taskUID, taskPollInterval)
	if err != nil {
		return classify(err)
	}
	if task.Status != meilisearch.TaskStatusSucceeded {
		return taskError(task)
	}
	return nil
}
