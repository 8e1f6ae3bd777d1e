package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
	"github.com/Aman-CERP/bm25vec/internal/search"
)

func TestFitCmd_SavesModel(t *testing.T) {
	// Given: a three-document corpus
	corpusPath, storeDir := testEnv(t)

	// When: fitting it with JSON output
	out, err := runCLI(t, "fit", corpusPath, "--store-dir", storeDir, "--format", "json")

	// Then: the summary describes the fitted model and the state file exists
	require.NoError(t, err)
	var summary fitSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "default", summary.Model)
	assert.Equal(t, 3, summary.Documents)
	assert.Equal(t, 7, summary.Features)
	assert.InDelta(t, 11.0/3.0, summary.AvgDocLength, 1e-9)
	assert.Equal(t, "json", summary.Backend)
	assert.FileExists(t, filepath.Join(storeDir, "default.json"))
}

func TestFitCmd_SQLiteBackend(t *testing.T) {
	// Given: a corpus and the sqlite backend
	corpusPath, storeDir := testEnv(t)

	// When: fitting a named model
	_, err := runCLI(t, "fit", corpusPath, "--store-dir", storeDir, "--backend", "sqlite", "--model", "animals")
	require.NoError(t, err)

	// Then: models list reports it from the database
	out, err := runCLI(t, "models", "list", "--store-dir", storeDir, "--backend", "sqlite", "--format", "json")
	require.NoError(t, err)
	var models []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &models))
	require.Len(t, models, 1)
	assert.Equal(t, "animals", models[0]["name"])
	assert.Equal(t, "sqlite", models[0]["backend"])
	assert.FileExists(t, filepath.Join(storeDir, "models.db"))
}

func TestFitCmd_Errors(t *testing.T) {
	corpusPath, storeDir := testEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing corpus", []string{"fit", filepath.Join(storeDir, "missing.txt"), "--store-dir", storeDir}},
		{"bad model name", []string{"fit", corpusPath, "--store-dir", storeDir, "--model", "no/slash"}},
		{"bad format", []string{"fit", corpusPath, "--store-dir", storeDir, "--format", "xml"}},
		{"bad backend", []string{"fit", corpusPath, "--store-dir", storeDir, "--backend", "redis"}},
		{"no args", []string{"fit"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestFitCmd_ProjectConfigApplies(t *testing.T) {
	// Given: a project config that drops single-document features
	corpusPath, storeDir := testEnv(t)
	require.NoError(t, os.WriteFile(".bm25vec.yaml", []byte("vectorizer:\n  min_df: 2\n"), 0o644))

	// When: fitting
	out, err := runCLI(t, "fit", corpusPath, "--store-dir", storeDir, "--format", "json")

	// Then: only "the", "quick" and "fox" survive
	require.NoError(t, err)
	var summary fitSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 3, summary.Features)
}

func TestTransformCmd_ScoresEveryDocument(t *testing.T) {
	// Given: a fitted model
	corpusPath, storeDir := testEnv(t)
	_, err := runCLI(t, "fit", corpusPath, "--store-dir", storeDir)
	require.NoError(t, err)

	// When: transforming the same corpus with weights
	out, err := runCLI(t, "transform", corpusPath, "--store-dir", storeDir, "--weights", "--format", "json")

	// Then: one JSON line per document with positive scores
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		var doc scoredDocument
		require.NoError(t, json.Unmarshal([]byte(line), &doc))
		assert.Equal(t, []string{"1", "2", "3"}[i], doc.ID)
		assert.Greater(t, doc.Score, 0.0)
		assert.NotEmpty(t, doc.Weights)
	}
}

func TestTransformCmd_QueryRestrictsFeatures(t *testing.T) {
	corpusPath, storeDir := testEnv(t)
	_, err := runCLI(t, "fit", corpusPath, "--store-dir", storeDir)
	require.NoError(t, err)

	out, err := runCLI(t, "transform", corpusPath, "--store-dir", storeDir, "--query", "dog", "--format", "json")
	require.NoError(t, err)

	var scores []float64
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var doc scoredDocument
		require.NoError(t, json.Unmarshal([]byte(line), &doc))
		scores = append(scores, doc.Score)
	}
	require.Len(t, scores, 3)
	assert.Greater(t, scores[1], scores[0], "only the second document contains dog")
	assert.Greater(t, scores[1], scores[2])
}

func TestTransformCmd_ModelNotFound(t *testing.T) {
	// Given: an empty store
	corpusPath, storeDir := testEnv(t)

	// When: transforming without fitting first
	_, err := runCLI(t, "transform", corpusPath, "--store-dir", storeDir, "--model", "nope")

	// Then: the error says how to create the model
	require.Error(t, err)
	assert.Equal(t, vecerrors.ErrCodeModelNotFound, vecerrors.GetCode(err))
	assert.Contains(t, vecerrors.FormatForUser(err, false), "bm25vec fit <corpus> --model nope")
}

func TestSearchCmd_RanksByScore(t *testing.T) {
	// Given: a corpus fitted in memory
	corpusPath, _ := testEnv(t)

	// When: searching for "quick fox"
	out, err := runCLI(t, "search", "quick fox", "--corpus", corpusPath, "--fit", "--format", "json")

	// Then: the two matching documents come back, repeated terms first
	require.NoError(t, err)
	var results []search.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "3", results[0].Document.ID)
	assert.Equal(t, "1", results[1].Document.ID)
	assert.Equal(t, 1, results[0].Rank)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.ElementsMatch(t, []string{"fox", "quick"}, results[0].MatchedTerms)
}

func TestSearchCmd_StoredModelAndHighlight(t *testing.T) {
	corpusPath, storeDir := testEnv(t)
	_, err := runCLI(t, "fit", corpusPath, "--store-dir", storeDir)
	require.NoError(t, err)

	out, err := runCLI(t, "search", "lazy", "--corpus", corpusPath, "--store-dir", storeDir, "--highlight")
	require.NoError(t, err)
	assert.Contains(t, out, "the [lazy] dog")
}

func TestSearchCmd_RequiresCorpus(t *testing.T) {
	testEnv(t)
	_, err := runCLI(t, "search", "fox")
	assert.Error(t, err)
}

func TestSearchCmd_NoMatches(t *testing.T) {
	corpusPath, _ := testEnv(t)
	out, err := runCLI(t, "search", "zebra", "--corpus", corpusPath, "--fit")
	require.NoError(t, err)
	assert.Contains(t, out, `No documents match "zebra"`)
}

func TestMarkRanges(t *testing.T) {
	ranges := []search.Range{{Start: 4, End: 9}, {Start: 16, End: 19}}
	assert.Equal(t, "the [quick] brown [fox]", markRanges("the quick brown fox", ranges))
	assert.Equal(t, "abc", markRanges("abc", []search.Range{{Start: 1, End: 10}}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
