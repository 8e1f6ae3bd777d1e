package errors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForUser_BasicError(t *testing.T) {
	err := New(ErrCodeFileNotFound, "file 'corpus.txt' not found", nil)

	result := FormatForUser(err, false)

	assert.Contains(t, result, "file 'corpus.txt' not found")
	assert.Contains(t, result, "[ERR_201_FILE_NOT_FOUND]")
}

func TestFormatForUser_WithSuggestionAndDebugCause(t *testing.T) {
	err := New(ErrCodeModelNotFound, "no fitted model named 'default'", errors.New("sql: no rows")).
		WithSuggestion("Run 'bm25vec fit <corpus>' first")

	plain := FormatForUser(err, false)
	assert.Contains(t, plain, "Suggestion:")
	assert.NotContains(t, plain, "Cause:")

	debug := FormatForUser(err, true)
	assert.Contains(t, debug, "Cause: sql: no rows")
}

func TestFormatForUser_StandardAndNil(t *testing.T) {
	assert.Equal(t, "something went wrong", FormatForUser(errors.New("something went wrong"), false))
	assert.Empty(t, FormatForUser(nil, false))
}

func TestFormatForCLI_WrapsStandardErrors(t *testing.T) {
	result := FormatForCLI(errors.New("boom"))

	assert.Contains(t, result, "Error: boom")
	assert.Contains(t, result, "Code: ERR_501_INTERNAL")
}

func TestFormatJSON_ContainsAllFields(t *testing.T) {
	err := New(ErrCodeConfigInvalid, "k1 must be positive", errors.New("k1=0")).
		WithDetail("field", "bm25.k1").
		WithSuggestion("set bm25.k1 > 0")

	data, fmtErr := FormatJSON(err)
	require.NoError(t, fmtErr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ErrCodeConfigInvalid, decoded["code"])
	assert.Equal(t, "CONFIG", decoded["category"])
	assert.Equal(t, "FATAL", decoded["severity"])
	assert.Equal(t, "k1=0", decoded["cause"])
	assert.Equal(t, "set bm25.k1 > 0", decoded["suggestion"])
}

func TestFormatForLog_FlattensDetails(t *testing.T) {
	err := New(ErrCodeCorruptState, "state file is corrupt", nil).WithDetail("path", "/tmp/m.json")

	fields := FormatForLog(err)

	assert.Equal(t, ErrCodeCorruptState, fields["error_code"])
	assert.Equal(t, "/tmp/m.json", fields["detail_path"])
	assert.Nil(t, FormatForLog(nil))
	assert.Equal(t, map[string]any{"error": "x"}, FormatForLog(errors.New("x")))
}
