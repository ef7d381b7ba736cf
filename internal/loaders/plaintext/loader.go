// Package plaintext loads raw decoded text as document content.
package plaintext

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader handles plain text files.
type Loader struct{}

// New creates a new plain text loader.
func New() *Loader {
	return &Loader{}
}

// Kind returns the loader kind.
func (l *Loader) Kind() domain.Kind {
	return domain.KindPlainText
}

// Load decodes content as UTF-8 text. Bytes that do not decode are a skip
// condition, reported as an error for the caller to log and swallow.
func (l *Loader) Load(_ context.Context, relPath string, content []byte) (*domain.FilePayload, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrInvalidInput, relPath)
	}

	return &domain.FilePayload{
		Kind:    domain.KindPlainText,
		Content: string(content),
	}, nil
}
