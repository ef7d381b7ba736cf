// Package mcp exposes the query boundary over the Model Context Protocol so
// AI assistants can search indexes and read watched files.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
