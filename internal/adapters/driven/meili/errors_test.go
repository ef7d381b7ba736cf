package meili

import (
	"context"
	"net/http"
	"testing"

	"github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"

	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
)

func TestClassify(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, classify(nil))
	})

	t.Run("context cancellation passes through unwrapped", func(t *testing.T) {
		err := classify(context.Canceled)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, driven.IsRetryable(err))
	})

	t.Run("communication errors are retryable", func(t *testing.T) {
		err := classify(&meilisearch.Error{ErrCode: meilisearch.MeilisearchCommunicationError})
		assert.True(t, driven.IsRetryable(err))
	})

	t.Run("timeouts are retryable", func(t *testing.T) {
		err := classify(&meilisearch.Error{ErrCode: meilisearch.MeilisearchTimeoutError})
		assert.True(t, driven.IsRetryable(err))
	})

	t.Run("429 and 5xx are retryable", func(t *testing.T) {
		err := classify(&meilisearch.Error{StatusCode: http.StatusTooManyRequests})
		assert.True(t, driven.IsRetryable(err))

		err = classify(&meilisearch.Error{StatusCode: http.StatusBadGateway})
		assert.True(t, driven.IsRetryable(err))
	})

	t.Run("4xx api errors are permanent", func(t *testing.T) {
		err := classify(&meilisearch.Error{StatusCode: http.StatusBadRequest})
		assert.Error(t, err)
		assert.False(t, driven.IsRetryable(err))
	})

	t.Run("transport-level errors are retryable", func(t *testing.T) {
		err := classify(assert.AnError)
		assert.True(t, driven.IsRetryable(err))
	})
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&meilisearch.Error{StatusCode: http.StatusNotFound}))
	assert.False(t, isNotFound(&meilisearch.Error{StatusCode: http.StatusBadRequest}))
	assert.False(t, isNotFound(assert.AnError))
	assert.False(t, isNotFound(nil))
}

func TestSourcePathFilter(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"plain path", "guides/intro.md", `source_path = "guides/intro.md"`},
		{"embedded quote", `guides/say "hi".md`, `source_path = "guides/say \"hi\".md"`},
		{"backslash", `guides\odd.md`, `source_path = "guides\\odd.md"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sourcePathFilter(tt.path))
		})
	}
}
