package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabCmd_ListsFeatures(t *testing.T) {
	// Given: a fitted model
	corpusPath, storeDir := testEnv(t)
	_, err := runCLI(t, "fit", corpusPath, "--store-dir", storeDir)
	require.NoError(t, err)

	// When: listing the vocabulary by idf
	out, err := runCLI(t, "vocab", "--store-dir", storeDir, "--sort", "idf", "--format", "json")

	// Then: all seven features are listed, rarest first
	require.NoError(t, err)
	var features []featureInfo
	require.NoError(t, json.Unmarshal([]byte(out), &features))
	require.Len(t, features, 7)
	for i := 1; i < len(features); i++ {
		assert.GreaterOrEqual(t, features[i-1].IDF, features[i].IDF)
	}
	assert.Equal(t, 1.0, features[0].DocFreq)
	assert.Equal(t, 2.0, features[len(features)-1].DocFreq)
}

func TestVocabCmd_LimitAndTermSort(t *testing.T) {
	corpusPath, storeDir := testEnv(t)
	_, err := runCLI(t, "fit", corpusPath, "--store-dir", storeDir)
	require.NoError(t, err)

	out, err := runCLI(t, "vocab", "--store-dir", storeDir, "--sort", "term", "-n", "2", "--format", "json")
	require.NoError(t, err)

	var features []featureInfo
	require.NoError(t, json.Unmarshal([]byte(out), &features))
	require.Len(t, features, 2)
	assert.Equal(t, "brown", features[0].Term)
	assert.Equal(t, "dog", features[1].Term)
}

func TestVocabCmd_TextOutput(t *testing.T) {
	corpusPath, storeDir := testEnv(t)
	_, err := runCLI(t, "fit", corpusPath, "--store-dir", storeDir)
	require.NoError(t, err)

	out, err := runCLI(t, "vocab", "--store-dir", storeDir)
	require.NoError(t, err)
	assert.Contains(t, out, `Model "default"`)
	assert.Contains(t, out, "INDEX  TERM")
	assert.Contains(t, out, "quick")
}

func TestVocabCmd_InvalidSort(t *testing.T) {
	corpusPath, storeDir := testEnv(t)
	_, err := runCLI(t, "fit", corpusPath, "--store-dir", storeDir)
	require.NoError(t, err)

	_, err = runCLI(t, "vocab", "--store-dir", storeDir, "--sort", "size")
	assert.Error(t, err)
}
