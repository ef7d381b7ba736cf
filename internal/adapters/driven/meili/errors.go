package meili

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
)

// classify wraps a client error into a StoreError so callers can distinguish
// transient failures from permanent ones.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var me *meilisearch.Error
	if errors.As(err, &me) {
		return &driven.StoreError{Retryable: retryableMeili(me), Err: err}
	}

	// Anything below the protocol (dial failures, resets) is worth a retry.
	return &driven.StoreError{Retryable: true, Err: err}
}

func retryableMeili(me *meilisearch.Error) bool {
	switch me.ErrCode {
	case meilisearch.MeilisearchCommunicationError,
		meilisearch.MeilisearchTimeoutError,
		meilisearch.MeilisearchMaxRetriesExceeded:
		return true
	}
	if me.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return me.StatusCode >= http.StatusInternalServerError
}

// isNotFound reports whether the error is a missing index or document.
func isNotFound(err error) bool {
	var me *meilisearch.Error
	if !errors.As(err, &me) {
		return false
	}
	if me.StatusCode == http.StatusNotFound {
		return true
	}
	code := me.MeilisearchApiError.Code
	return code == "document_not_found" || code == "index_not_found"
}

// taskError converts a failed task into a non-retryable StoreError carrying
// the engine's message.
func taskError(task *meilisearch.Task) error {
	msg := task.Error.Message
	if msg == "" {
		msg = string(task.Status)
	}
	return &driven.StoreError{
		Retryable: false,
		Err:       fmt.Errorf("task %d (%s): %s", task.UID, task.Type, msg),
	}
}

// sourcePathFilter builds the deletion filter for one source path. The value
// is quoted and escaped so paths with quotes or backslashes cannot break out
// of the expression.
func sourcePathFilter(sourcePath string) string {
	escaped := strings.ReplaceAll(sourcePath, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `source_path = "` + escaped + `"`
}
