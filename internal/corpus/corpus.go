// Package corpus reads document collections from files: plain text with one
// document per non-empty line, or JSON Lines of {"id": ..., "text": ...}.
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
	"github.com/Aman-CERP/bm25vec/internal/search"
)

// Format is a corpus file layout.
type Format string

const (
	// FormatText is one document per non-empty line.
	FormatText Format = "text"
	// FormatJSONL is one {"id","text"} object per line.
	FormatJSONL Format = "jsonl"
)

// maxLineSize bounds a single document line.
const maxLineSize = 16 * 1024 * 1024

// DetectFormat picks the format from the file extension: .jsonl and
// .ndjson are JSON Lines, anything else is text.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	default:
		return FormatText
	}
}

// LoadFile reads the corpus at path in the format its extension implies.
func LoadFile(path string) ([]search.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vecerrors.IOError(fmt.Sprintf("corpus file %s not found", path), err)
		}
		return nil, vecerrors.New(vecerrors.ErrCodeFilePermission, fmt.Sprintf("failed to open corpus %s", path), err)
	}
	defer func() { _ = f.Close() }()

	docs, err := Read(f, DetectFormat(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// Read parses a corpus from r. Documents without an id get their 1-based
// line number.
func Read(r io.Reader, format Format) ([]search.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	docs := make([]search.Document, 0)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		doc := search.Document{ID: strconv.Itoa(line), Text: raw}
		if format == FormatJSONL {
			var rec struct {
				ID   json.RawMessage `json:"id"`
				Text *string         `json:"text"`
			}
			if err := json.Unmarshal([]byte(raw), &rec); err != nil {
				return nil, vecerrors.ValidationError(fmt.Sprintf("line %d: invalid JSON", line), err)
			}
			if rec.Text == nil {
				return nil, vecerrors.ValidationError(fmt.Sprintf("line %d: missing \"text\" field", line), nil)
			}
			doc.Text = *rec.Text
			if id := decodeID(rec.ID); id != "" {
				doc.ID = id
			}
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, vecerrors.IOError("failed to read corpus", err)
	}
	return docs, nil
}

// decodeID accepts string or numeric ids.
func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// Texts returns the text of every document, in order.
func Texts(docs []search.Document) []string {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	return texts
}
