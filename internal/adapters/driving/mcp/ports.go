package mcp

import (
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces the MCP server exposes.
type Ports struct {
	// Query serves search, index listing and file retrieval. Required.
	Query driving.QueryService

	// Watch reports watch loop health for the status tool. Optional; the
	// standalone server runs without a watch loop.
	Watch driving.WatchService

	// Refresh reports destination refresh state for the status tool.
	// Optional.
	Refresh driving.RefreshService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
