// Package chunker provides fixed-size text windowing with overlap.
// Chunks are a derived view consumed when computing per-chunk embedding
// input; the stored document content is not affected.
package chunker

import (
	"fmt"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker splits text into windows of at most size characters, each window
// starting size−overlap characters after the previous one.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Overlap must be strictly less than size; anything
// else is a configuration error, not a per-document condition.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", domain.ErrInvalidConfig, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the window size in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the overlap between consecutive windows in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into windows. Text no longer than the window size comes
// back as a single chunk with no copying overhead.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	if len(runes) <= c.size {
		return []string{text}
	}

	step := c.size - c.overlap
	estimated := (len(runes)-c.overlap+step-1)/step + 1
	chunks := make([]string, 0, estimated)

	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}
