package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driving"
)

func TestNewServer(t *testing.T) {
	t.Run("requires a query service", func(t *testing.T) {
		_, err := NewServer(&Ports{})
		assert.ErrorIs(t, err, ErrMissingQueryService)
	})

	t.Run("watch and refresh are optional", func(t *testing.T) {
		server, err := NewServer(&Ports{Query: &mockQueryService{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns hits", func(t *testing.T) {
		query := &mockQueryService{
			result: &driven.SearchResult{
				Hits: []driven.SearchHit{
					{
						ID:         "abc-0",
						SourcePath: "guides/intro.md",
						Filename:   "intro.md",
						Text:       "matched window",
						Score:      0.92,
					},
				},
				TotalHits: 1,
			},
		}
		server, err := NewServer(&Ports{Query: query})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Index: "guides", Query: "intro", Limit: 5})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Hits, 1)
		assert.Equal(t, "abc-0", output.Hits[0].ID)
		assert.Equal(t, "guides/intro.md", output.Hits[0].SourcePath)
		assert.Equal(t, 0.92, output.Hits[0].Score)
		assert.Equal(t, int64(1), output.TotalHits)
		assert.Equal(t, "guides", query.lastIndex)
		assert.Equal(t, int64(5), query.lastLimit)
	})

	t.Run("propagates service errors", func(t *testing.T) {
		query := &mockQueryService{err: domain.ErrIndexNotAllowed}
		server, err := NewServer(&Ports{Query: query})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Index: "secrets", Query: "x"})
		assert.ErrorIs(t, err, domain.ErrIndexNotAllowed)
	})
}

func TestServer_handleSearchAll(t *testing.T) {
	ctx := context.Background()

	t.Run("groups hits by index", func(t *testing.T) {
		query := &mockQueryService{
			allResults: []driven.SearchResult{
				{
					Index:     "guides",
					Hits:      []driven.SearchHit{{ID: "abc-0", SourcePath: "guides/intro.md"}},
					TotalHits: 1,
				},
				{Index: "notes", TotalHits: 0},
			},
		}
		server, err := NewServer(&Ports{Query: query})
		require.NoError(t, err)

		_, output, err := server.handleSearchAll(ctx, nil, SearchAllInput{Query: "intro", Limit: 5})

		require.NoError(t, err)
		require.Len(t, output.Results, 2)
		assert.Equal(t, "guides", output.Results[0].Index)
		require.Len(t, output.Results[0].Hits, 1)
		assert.Equal(t, "abc-0", output.Results[0].Hits[0].ID)
		assert.Equal(t, "notes", output.Results[1].Index)
		assert.Empty(t, output.Results[1].Hits)
		assert.Equal(t, "intro", query.lastQuery)
		assert.Equal(t, int64(5), query.lastLimit)
	})

	t.Run("propagates service errors", func(t *testing.T) {
		query := &mockQueryService{err: domain.ErrInvalidInput}
		server, err := NewServer(&Ports{Query: query})
		require.NoError(t, err)

		_, _, err = server.handleSearchAll(ctx, nil, SearchAllInput{Query: ""})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestServer_handleListIndexes(t *testing.T) {
	query := &mockQueryService{indexes: []string{"guides", "notes"}}
	server, err := NewServer(&Ports{Query: query})
	require.NoError(t, err)

	_, output, err := server.handleListIndexes(context.Background(), nil, struct{}{})

	require.NoError(t, err)
	assert.Equal(t, []string{"guides", "notes"}, output.Indexes)
}

func TestServer_handleGetFile(t *testing.T) {
	ctx := context.Background()

	t.Run("returns file content", func(t *testing.T) {
		query := &mockQueryService{
			file: &driving.FileContent{
				Path:     "guides/intro.md",
				Size:     8,
				Encoding: "utf-8",
				Content:  "# Intro\n",
			},
		}
		server, err := NewServer(&Ports{Query: query})
		require.NoError(t, err)

		_, output, err := server.handleGetFile(ctx, nil, GetFileInput{Path: "guides/intro.md"})

		require.NoError(t, err)
		assert.Equal(t, "guides/intro.md", output.Path)
		assert.Equal(t, "utf-8", output.Encoding)
		assert.Equal(t, "# Intro\n", output.Content)
	})

	t.Run("propagates traversal rejections", func(t *testing.T) {
		query := &mockQueryService{err: domain.ErrPathOutsideRoot}
		server, err := NewServer(&Ports{Query: query})
		require.NoError(t, err)

		_, _, err = server.handleGetFile(ctx, nil, GetFileInput{Path: "../secrets"})
		assert.ErrorIs(t, err, domain.ErrPathOutsideRoot)
	})
}

func TestServer_handleStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("reports watch and refresh state", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Query: &mockQueryService{},
			Watch: &mockWatchService{status: driving.WatchStatus{
				Phase:           domain.WatchSteady,
				InitialLoadDone: true,
				FilesIndexed:    42,
			}},
			Refresh: &mockRefreshService{statuses: []driving.RefreshStatus{
				{Destination: "guides", Phase: domain.RefreshIdle},
			}},
		})
		require.NoError(t, err)

		_, output, err := server.handleStatus(ctx, nil, struct{}{})

		require.NoError(t, err)
		require.NotNil(t, output.Watch)
		assert.True(t, output.Watch.InitialLoadDone)
		assert.Equal(t, 42, output.Watch.FilesIndexed)
		require.Len(t, output.Refreshes, 1)
		assert.Equal(t, "guides", output.Refreshes[0].Destination)
	})

	t.Run("omits absent services", func(t *testing.T) {
		server, err := NewServer(&Ports{Query: &mockQueryService{}})
		require.NoError(t, err)

		_, output, err := server.handleStatus(ctx, nil, struct{}{})

		require.NoError(t, err)
		assert.Nil(t, output.Watch)
		assert.Empty(t, output.Refreshes)
	})
}
