package domain

import (
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Kind classifies how a file's bytes are turned into a document payload.
type Kind int

const (
	// KindSkip excludes the file from indexing entirely.
	KindSkip Kind = iota

	// KindPlainText stores the decoded bytes as Content.
	KindPlainText

	// KindFrontmatter splits a leading structured metadata block from the
	// text body. Without a metadata block the whole body is Content.
	KindFrontmatter

	// KindStructured parses the whole file as YAML, JSON or CSV and stores
	// the result as Data.
	KindStructured
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPlainText:
		return "plaintext"
	case KindFrontmatter:
		return "frontmatter"
	case KindStructured:
		return "structured"
	default:
		return "skip"
	}
}

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "plaintext", "text":
		return KindPlainText, nil
	case "frontmatter":
		return KindFrontmatter, nil
	case "structured":
		return KindStructured, nil
	case "skip":
		return KindSkip, nil
	}
	return KindSkip, fmt.Errorf("%w: unknown loader kind %q", ErrInvalidConfig, s)
}

// FilePayload is the normalised output of the content classifier for one file.
// Exactly one of the shapes applies: Content only (plain text), Data only
// (structured) or Data plus Content (frontmatter document).
type FilePayload struct {
	// Kind the file was classified as.
	Kind Kind

	// Content is the extracted plain text body.
	Content string

	// Data is the structured mapping (or row array for tabular sources).
	Data any
}

// Empty reports whether the payload carries neither content nor data.
func (p *FilePayload) Empty() bool {
	return p.Content == "" && p.Data == nil
}

// FileRef identifies one file under the watched root together with the stat
// values used for change detection.
type FileRef struct {
	// AbsPath is the absolute path on disk.
	AbsPath string

	// RelPath is the slash-separated path relative to the watched root.
	RelPath string

	// Size in bytes.
	Size int64

	// MtimeNs is the modification time in nanoseconds since the epoch.
	MtimeNs int64
}

// Document is the unit stored in the search engine. One file produces one
// document, or several when its text is chunked for embedding generation.
type Document struct {
	ID       string `json:"id"`
	FileID   string `json:"file_id"`
	FileHash string `json:"file_hash"`

	// SourcePath doubles as Path; both are kept so the store-side filter
	// attribute (source_path) and the display attribute (path) can evolve
	// independently.
	SourcePath string `json:"source_path"`
	Path       string `json:"path"`
	Filename   string `json:"filename"`
	Ext        string `json:"ext"`
	Bytes      int64  `json:"bytes"`
	MtimeNs    int64  `json:"mtime_ns"`

	// Chunk is the ordinal of this document within its file.
	Chunk int `json:"chunk"`

	// Text is the chunk window consumed by the embedder document template.
	Text string `json:"text,omitempty"`

	// Content is the full extracted text. Stored once per file, on the
	// chunk-0 document.
	Content string `json:"content,omitempty"`

	// Data is the structured payload for YAML/JSON/CSV and frontmatter
	// sources. Stored on the chunk-0 document.
	Data any `json:"data,omitempty"`
}

// FileID derives the stable per-file identifier from the path relative to the
// watched root. Stable across runs so re-indexing updates rather than
// duplicates.
func FileID(relPath string) string {
	sum := sha1.Sum([]byte(relPath)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// DocumentID derives the stable identifier for one chunk of a file.
func DocumentID(relPath string, chunk int) string {
	return fmt.Sprintf("%s-%d", FileID(relPath), chunk)
}

// HashFile computes the content fingerprint used to detect real changes when
// stat values differ but bytes do not.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New() //nolint:gosec
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes is HashFile over an in-memory buffer.
func HashBytes(b []byte) string {
	sum := sha1.Sum(b) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
