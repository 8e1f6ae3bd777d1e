package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
	"github.com/Aman-CERP/bm25vec/internal/search"
)

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatJSONL, DetectFormat("docs.jsonl"))
	assert.Equal(t, FormatJSONL, DetectFormat("DOCS.NDJSON"))
	assert.Equal(t, FormatText, DetectFormat("docs.txt"))
	assert.Equal(t, FormatText, DetectFormat("docs"))
}

func TestRead_Text(t *testing.T) {
	// Given: text with blank lines
	in := "the cat sat\n\n   \nthe cat sat on the mat\n"

	// When: reading it
	docs, err := Read(strings.NewReader(in), FormatText)

	// Then: blank lines are skipped and ids are line numbers
	require.NoError(t, err)
	assert.Equal(t, []search.Document{
		{ID: "1", Text: "the cat sat"},
		{ID: "4", Text: "the cat sat on the mat"},
	}, docs)
}

func TestRead_JSONL(t *testing.T) {
	in := `{"id": "a", "text": "the cat sat"}
{"id": 7, "text": "dogs bark"}
{"text": ""}
`
	docs, err := Read(strings.NewReader(in), FormatJSONL)

	require.NoError(t, err)
	assert.Equal(t, []search.Document{
		{ID: "a", Text: "the cat sat"},
		{ID: "7", Text: "dogs bark"},
		{ID: "3", Text: ""},
	}, docs)
}

func TestRead_JSONLErrors(t *testing.T) {
	tests := map[string]string{
		"not json":     "{oops\n",
		"missing text": `{"id": "x"}` + "\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(in), FormatJSONL)

			assert.Equal(t, vecerrors.ErrCodeInvalidInput, vecerrors.GetCode(err))
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestRead_Empty(t *testing.T) {
	docs, err := Read(strings.NewReader(""), FormatText)

	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"x","text":"hello world"}`+"\n"), 0644))

	docs, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world"}, Texts(docs))

	_, err = LoadFile(filepath.Join(dir, "missing.txt"))
	assert.Equal(t, vecerrors.ErrCodeFileNotFound, vecerrors.GetCode(err))
}
