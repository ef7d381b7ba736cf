package domain

import (
	"encoding/json"
	"time"
)

// RefreshPhase is the per-destination state of the bulk refresh coordinator.
type RefreshPhase int

const (
	// RefreshIdle means no refresh is in flight for the destination.
	RefreshIdle RefreshPhase = iota

	// RefreshStaging means an external fetch is building the staged tree.
	RefreshStaging

	// RefreshSwapping means the staged tree is replacing the live subtree.
	RefreshSwapping

	// RefreshReconciling means index adds/removals are being applied.
	RefreshReconciling
)

// String returns the phase name for logs and status reporting.
func (p RefreshPhase) String() string {
	switch p {
	case RefreshStaging:
		return "staging"
	case RefreshSwapping:
		return "swapping"
	case RefreshReconciling:
		return "reconciling"
	default:
		return "idle"
	}
}

// MarshalJSON renders the phase name rather than its ordinal.
func (p RefreshPhase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// RefreshStats summarises one completed destination refresh.
type RefreshStats struct {
	// ID identifies the refresh operation in logs and status output.
	ID string `json:"id"`

	// Destination is the top-level folder that was refreshed.
	Destination string `json:"destination"`

	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Errors  int `json:"errors"`

	// Duration of swap plus reconciliation.
	Duration time.Duration `json:"duration"`

	// FinishedAt is when reconciliation completed.
	FinishedAt time.Time `json:"finished_at"`
}

// WatchPhase is the state of the watch loop driver.
type WatchPhase int

const (
	// WatchInitializing means the watcher has not started the initial load.
	WatchInitializing WatchPhase = iota

	// WatchInitialLoad means the full initial scan is running.
	WatchInitialLoad

	// WatchSteady means filesystem events are being observed.
	WatchSteady

	// WatchDegraded means the store is failing writes; events are still
	// accepted and retried on later changes.
	WatchDegraded
)

// String returns the phase name for status reporting.
func (p WatchPhase) String() string {
	switch p {
	case WatchInitialLoad:
		return "initial_load"
	case WatchSteady:
		return "watching"
	case WatchDegraded:
		return "watching-degraded"
	default:
		return "initializing"
	}
}

// MarshalJSON renders the phase name rather than its ordinal.
func (p WatchPhase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}
