package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates the configuration is unusable.
	// Fatal at startup; the initial load must not begin.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrRefreshBusy indicates a refresh is already in flight for the
	// destination. Concurrent requests are rejected, not queued.
	ErrRefreshBusy = errors.New("refresh already in progress")

	// ErrStagingIncomplete indicates the staged tree is missing or not a
	// directory; the live tree is left untouched.
	ErrStagingIncomplete = errors.New("staged tree incomplete")

	// ErrPathOutsideRoot indicates a resolved path escapes the watched root.
	ErrPathOutsideRoot = errors.New("path escapes watched root")

	// ErrIndexNotAllowed indicates the index is excluded by the allow-list.
	ErrIndexNotAllowed = errors.New("index not allowed")

	// ErrStoreUnavailable indicates the document store cannot be reached.
	ErrStoreUnavailable = errors.New("document store unavailable")
)
