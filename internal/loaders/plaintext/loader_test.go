package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
)

func TestLoad(t *testing.T) {
	t.Run("passes text through", func(t *testing.T) {
		payload, err := New().Load(context.Background(), "notes/todo.txt", []byte("buy milk\n"))

		require.NoError(t, err)
		assert.Equal(t, domain.KindPlainText, payload.Kind)
		assert.Equal(t, "buy milk\n", payload.Content)
		assert.Nil(t, payload.Data)
	})

	t.Run("rejects invalid utf-8", func(t *testing.T) {
		_, err := New().Load(context.Background(), "notes/raw.bin", []byte{0x80, 0x81})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
