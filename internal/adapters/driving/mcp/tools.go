package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/meiliwatch/meiliwatch/internal/core/ports/driving"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Index  string `json:"index" jsonschema:"the index to search, named after a top-level folder"`
	Query  string `json:"query" jsonschema:"the free-text search query"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10, max 100)"`
	Offset int    `json:"offset,omitempty" jsonschema:"number of results to skip for pagination"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Hits      []SearchHitOutput `json:"hits"`
	Count     int               `json:"count"`
	TotalHits int64             `json:"total_hits"`
}

// SearchHitOutput represents a single search hit.
type SearchHitOutput struct {
	ID         string  `json:"id"`
	SourcePath string  `json:"source_path"`
	Filename   string  `json:"filename"`
	Score      float64 `json:"score,omitempty"`
	Text       string  `json:"text,omitempty"`
	Content    string  `json:"content,omitempty"`
}

// SearchAllInput is the input schema for the search_all tool.
type SearchAllInput struct {
	Query string `json:"query" jsonschema:"the free-text search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results per index (default 10, max 100)"`
}

// SearchAllOutput groups hits by the index they came from.
type SearchAllOutput struct {
	Results []IndexResultOutput `json:"results"`
}

// IndexResultOutput is one index's slice of a multi-index search.
type IndexResultOutput struct {
	Index     string            `json:"index"`
	Hits      []SearchHitOutput `json:"hits"`
	TotalHits int64             `json:"total_hits"`
}

// ListIndexesOutput is the output schema for the list_indexes tool.
type ListIndexesOutput struct {
	Indexes []string `json:"indexes"`
}

// GetFileInput is the input schema for the get_file tool.
type GetFileInput struct {
	Path string `json:"path" jsonschema:"file path relative to the watched root"`
}

// GetFileOutput is the output schema for the get_file tool.
type GetFileOutput struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// StatusOutput is the output schema for the status tool.
type StatusOutput struct {
	Watch     *driving.WatchStatus    `json:"watch,omitempty"`
	Refreshes []driving.RefreshStatus `json:"refreshes,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search one index of the watched documentation tree",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_all",
		Description: "Search every visible index of the watched documentation tree at once",
	}, s.handleSearchAll)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_indexes",
		Description: "List the searchable indexes, one per top-level folder",
	}, s.handleListIndexes)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_file",
		Description: "Read the exact content of one file under the watched root",
	}, s.handleGetFile)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "status",
		Description: "Report watch loop health and refresh state",
	}, s.handleStatus)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	result, err := s.ports.Query.Search(ctx, input.Index, input.Query, int64(input.Limit), int64(input.Offset))
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Hits:      make([]SearchHitOutput, len(result.Hits)),
		Count:     len(result.Hits),
		TotalHits: result.TotalHits,
	}
	for i, hit := range result.Hits {
		output.Hits[i] = SearchHitOutput{
			ID:         hit.ID,
			SourcePath: hit.SourcePath,
			Filename:   hit.Filename,
			Score:      hit.Score,
			Text:       hit.Text,
			Content:    hit.Content,
		}
	}

	return nil, output, nil
}

// handleSearchAll handles the search_all tool invocation.
func (s *Server) handleSearchAll(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchAllInput,
) (*mcp.CallToolResult, SearchAllOutput, error) {
	results, err := s.ports.Query.SearchAll(ctx, input.Query, int64(input.Limit))
	if err != nil {
		return nil, SearchAllOutput{}, err
	}

	output := SearchAllOutput{Results: make([]IndexResultOutput, len(results))}
	for i, result := range results {
		hits := make([]SearchHitOutput, len(result.Hits))
		for j, hit := range result.Hits {
			hits[j] = SearchHitOutput{
				ID:         hit.ID,
				SourcePath: hit.SourcePath,
				Filename:   hit.Filename,
				Score:      hit.Score,
				Text:       hit.Text,
				Content:    hit.Content,
			}
		}
		output.Results[i] = IndexResultOutput{
			Index:     result.Index,
			Hits:      hits,
			TotalHits: result.TotalHits,
		}
	}
	return nil, output, nil
}

// handleListIndexes handles the list_indexes tool invocation.
func (s *Server) handleListIndexes(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, ListIndexesOutput, error) {
	uids, err := s.ports.Query.ListIndexes(ctx)
	if err != nil {
		return nil, ListIndexesOutput{}, err
	}
	return nil, ListIndexesOutput{Indexes: uids}, nil
}

// handleGetFile handles the get_file tool invocation.
func (s *Server) handleGetFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetFileInput,
) (*mcp.CallToolResult, GetFileOutput, error) {
	content, err := s.ports.Query.GetFile(ctx, input.Path)
	if err != nil {
		return nil, GetFileOutput{}, err
	}
	return nil, GetFileOutput{
		Path:     content.Path,
		Size:     content.Size,
		Encoding: content.Encoding,
		Content:  content.Content,
	}, nil
}

// handleStatus handles the status tool invocation.
func (s *Server) handleStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, StatusOutput, error) {
	var output StatusOutput
	if s.ports.Watch != nil {
		status := s.ports.Watch.Status()
		output.Watch = &status
	}
	if s.ports.Refresh != nil {
		output.Refreshes = s.ports.Refresh.Status()
	}
	return nil, output, nil
}
