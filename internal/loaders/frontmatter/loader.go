// Package frontmatter loads markdown files with an optional YAML
// frontmatter block. The block is parsed into structured metadata while
// the full file text, frontmatter included, remains the content.
package frontmatter

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

var delimiter = []byte("---")

// Loader handles markdown files with YAML frontmatter.
type Loader struct{}

// New creates a new frontmatter loader.
func New() *Loader {
	return &Loader{}
}

// Kind returns the loader kind.
func (l *Loader) Kind() domain.Kind {
	return domain.KindFrontmatter
}

// Load extracts the leading YAML block, if any, into the payload data.
// A malformed YAML block is tolerated: the file still loads as plain
// markdown without metadata.
func (l *Loader) Load(_ context.Context, relPath string, content []byte) (*domain.FilePayload, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrInvalidInput, relPath)
	}

	payload := &domain.FilePayload{
		Kind:    domain.KindFrontmatter,
		Content: string(content),
	}

	block, ok := frontmatterBlock(content)
	if !ok {
		return payload, nil
	}

	var meta map[string]any
	if err := yaml.Unmarshal(block, &meta); err != nil {
		return payload, nil
	}
	if len(meta) > 0 {
		payload.Data = meta
	}

	return payload, nil
}

// frontmatterBlock returns the raw YAML between the opening and closing
// "---" delimiters, or false when the file does not start with a block.
func frontmatterBlock(content []byte) ([]byte, bool) {
	trimmed := bytes.TrimPrefix(content, []byte("\ufeff"))
	if !bytes.HasPrefix(trimmed, delimiter) {
		return nil, false
	}

	rest := trimmed[len(delimiter):]
	if len(rest) > 0 && rest[0] == '\r' {
		rest = rest[1:]
	}
	if len(rest) == 0 || rest[0] != '\n' {
		return nil, false
	}
	rest = rest[1:]

	for offset := 0; offset < len(rest); {
		lineEnd := bytes.IndexByte(rest[offset:], '\n')
		line := rest[offset:]
		next := len(rest)
		if lineEnd >= 0 {
			line = rest[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		}
		if bytes.Equal(bytes.TrimRight(line, "\r"), delimiter) {
			return rest[:offset], true
		}
		offset = next
	}

	return nil, false
}
