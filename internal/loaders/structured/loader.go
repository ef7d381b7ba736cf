// Package structured loads machine-readable formats (JSON, YAML, CSV)
// into structured payload data alongside the raw file text.
package structured

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
	"github.com/meiliwatch/meiliwatch/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader handles JSON, YAML and CSV files.
type Loader struct{}

// New creates a new structured loader.
func New() *Loader {
	return &Loader{}
}

// Kind returns the loader kind.
func (l *Loader) Kind() domain.Kind {
	return domain.KindStructured
}

// Load parses the file by extension. A file that fails to parse is
// demoted to plain text rather than dropped, so a broken JSON file is
// still searchable by its raw content.
func (l *Loader) Load(_ context.Context, relPath string, content []byte) (*domain.FilePayload, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrInvalidInput, relPath)
	}

	payload := &domain.FilePayload{
		Kind:    domain.KindStructured,
		Content: string(content),
	}

	data, err := parse(relPath, content)
	if err != nil {
		payload.Kind = domain.KindPlainText
		return payload, nil
	}
	payload.Data = data

	return payload, nil
}

func parse(relPath string, content []byte) (any, error) {
	switch strings.ToLower(filepath.Ext(relPath)) {
	case ".json":
		var data any
		if err := json.Unmarshal(content, &data); err != nil {
			return nil, err
		}
		return data, nil
	case ".yaml", ".yml":
		var data any
		if err := yaml.Unmarshal(content, &data); err != nil {
			return nil, err
		}
		return data, nil
	case ".csv":
		return parseCSV(content)
	default:
		return nil, fmt.Errorf("no structured parser for %s", relPath)
	}
}

// parseCSV reads the header row and maps each remaining row onto it.
func parseCSV(content []byte) (any, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv")
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
