package mcp

import (
	"context"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driving"
)

type mockQueryService struct {
	result     *driven.SearchResult
	allResults []driven.SearchResult
	indexes    []string
	file       *driving.FileContent
	err        error

	lastIndex  string
	lastQuery  string
	lastLimit  int64
	lastOffset int64
	lastPath   string
}

func (m *mockQueryService) Search(_ context.Context, uid, query string, limit, offset int64) (*driven.SearchResult, error) {
	m.lastIndex, m.lastQuery, m.lastLimit, m.lastOffset = uid, query, limit, offset
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &driven.SearchResult{Query: query, Limit: limit, Offset: offset}, nil
}

func (m *mockQueryService) SearchAll(_ context.Context, query string, limit int64) ([]driven.SearchResult, error) {
	m.lastQuery, m.lastLimit = query, limit
	if m.err != nil {
		return nil, m.err
	}
	return m.allResults, nil
}

func (m *mockQueryService) ListIndexes(_ context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.indexes, nil
}

func (m *mockQueryService) GetFile(_ context.Context, relPath string) (*driving.FileContent, error) {
	m.lastPath = relPath
	if m.err != nil {
		return nil, m.err
	}
	return m.file, nil
}

type mockWatchService struct {
	status driving.WatchStatus
}

func (m *mockWatchService) Run(context.Context) error   { return nil }
func (m *mockWatchService) Status() driving.WatchStatus { return m.status }

type mockRefreshService struct {
	statuses []driving.RefreshStatus
}

func (m *mockRefreshService) Refresh(context.Context, string, string) (*domain.RefreshStats, error) {
	return nil, nil
}

func (m *mockRefreshService) RefreshAll(context.Context, map[string]string) (map[string]*domain.RefreshStats, error) {
	return nil, nil
}

func (m *mockRefreshService) Status() []driving.RefreshStatus { return m.statuses }
