package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogsCmd_ShowsRecentRecords(t *testing.T) {
	// Given: a search that logged its start and completion
	corpusPath, _ := testEnv(t)
	_, err := runCLI(t, "search", "fox", "--corpus", corpusPath, "--fit")
	require.NoError(t, err)

	// When: viewing the logs filtered to the search start
	out, err := runCLI(t, "logs", "--filter", "search_started")

	// Then: the record is shown without the completion record
	require.NoError(t, err)
	assert.Contains(t, out, "search_started")
	assert.Contains(t, out, "query=fox")
	assert.NotContains(t, out, "search_complete")
}

func TestLogsCmd_LevelFilter(t *testing.T) {
	testEnv(t)
	logPath := filepath.Join(t.TempDir(), "custom.log")
	lines := `{"time":"2026-01-02T15:04:05Z","level":"INFO","msg":"fit_done"}
{"time":"2026-01-02T15:04:06Z","level":"ERROR","msg":"save_failed"}
`
	require.NoError(t, os.WriteFile(logPath, []byte(lines), 0o644))

	out, err := runCLI(t, "logs", "--file", logPath, "--level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "save_failed")
	assert.NotContains(t, out, "fit_done")
}

func TestLogsCmd_MissingFile(t *testing.T) {
	testEnv(t)
	_, err := runCLI(t, "logs", "--file", filepath.Join(t.TempDir(), "none.log"))
	assert.Error(t, err)
}

func TestLogsCmd_InvalidFilter(t *testing.T) {
	testEnv(t)
	logPath := filepath.Join(t.TempDir(), "custom.log")
	require.NoError(t, os.WriteFile(logPath, []byte("{}\n"), 0o644))

	_, err := runCLI(t, "logs", "--file", logPath, "--filter", "(")
	assert.Error(t, err)
}
