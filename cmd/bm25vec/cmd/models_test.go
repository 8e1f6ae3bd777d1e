package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelsCmd_ListAndDelete(t *testing.T) {
	// Given: two fitted models
	corpusPath, storeDir := testEnv(t)
	for _, name := range []string{"b-model", "a-model"} {
		_, err := runCLI(t, "fit", corpusPath, "--store-dir", storeDir, "--model", name)
		require.NoError(t, err)
	}

	// When: listing
	out, err := runCLI(t, "models", "list", "--store-dir", storeDir, "--format", "json")

	// Then: both are listed by name
	require.NoError(t, err)
	var models []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &models))
	require.Len(t, models, 2)
	assert.Equal(t, "a-model", models[0]["name"])
	assert.Equal(t, "b-model", models[1]["name"])
	assert.EqualValues(t, 7, models[0]["features"])

	// When: deleting one
	out, err = runCLI(t, "models", "delete", "a-model", "--store-dir", storeDir)
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted model "a-model"`)

	// Then: only the other remains
	out, err = runCLI(t, "models", "list", "--store-dir", storeDir)
	require.NoError(t, err)
	assert.NotContains(t, out, "a-model")
	assert.Contains(t, out, "b-model")
}

func TestModelsCmd_EmptyStore(t *testing.T) {
	_, storeDir := testEnv(t)

	out, err := runCLI(t, "models", "list", "--store-dir", storeDir, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	out, err = runCLI(t, "models", "list", "--store-dir", storeDir)
	require.NoError(t, err)
	assert.Contains(t, out, "No models stored")
}

func TestModelsDeleteCmd_RejectsBadName(t *testing.T) {
	_, storeDir := testEnv(t)
	_, err := runCLI(t, "models", "delete", "../etc", "--store-dir", storeDir)
	assert.Error(t, err)
}
