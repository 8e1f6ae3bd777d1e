package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/bm25vec/internal/bm25"
	"github.com/Aman-CERP/bm25vec/internal/search"
	"github.com/Aman-CERP/bm25vec/internal/store"
)

var articles = []search.Document{
	{ID: "go", Text: "Go is an open source programming language that makes it simple to build software"},
	{ID: "rust", Text: "Rust is a programming language focused on memory safety and performance"},
	{ID: "bm25", Text: "BM25 ranks documents by term frequency saturation and document length normalization"},
	{ID: "tfidf", Text: "TF-IDF weighs a term by its frequency in a document and its rarity across documents"},
	{ID: "zstd", Text: "Zstandard is a fast compression algorithm with a high compression ratio"},
}

func texts(docs []search.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Text
	}
	return out
}

func fitModel(t *testing.T) *bm25.Model {
	t.Helper()
	opts := bm25.DefaultOptions()
	opts.MaxN = 2
	opts.StopWords = []string{"is", "a", "an", "and", "the", "by", "its", "in", "to"}
	v, err := bm25.New(opts)
	require.NoError(t, err)
	return v.Fit(texts(articles))
}

// TestPipeline_StoreRoundTrip fits, saves, reloads and scores with every
// backend, and expects bit-identical scores.
func TestPipeline_StoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	backends := []struct {
		name     string
		backend  store.Backend
		compress bool
	}{
		{"json", store.BackendJSON, false},
		{"json+zstd", store.BackendJSON, true},
		{"sqlite", store.BackendSQLite, false},
	}

	for _, tt := range backends {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a fitted model saved to the backend
			ctx := context.Background()
			fitted := fitModel(t)
			want := fitted.Transform(texts(articles))

			st, err := store.Open(store.Options{Backend: tt.backend, Dir: t.TempDir(), Compress: tt.compress})
			require.NoError(t, err)
			defer func() { _ = st.Close() }()
			require.NoError(t, st.Save(ctx, "articles", fitted.Snapshot()))

			// When: reloading it
			snap, err := st.Load(ctx, "articles")
			require.NoError(t, err)
			loaded, err := bm25.FromSnapshot(snap, nil)
			require.NoError(t, err)

			// Then: every statistic and score is unchanged
			assert.Equal(t, fitted.Vocabulary().Terms(), loaded.Vocabulary().Terms())
			assert.Equal(t, fitted.IDFWeights(), loaded.IDFWeights())
			assert.Equal(t, fitted.AvgDocLength(), loaded.AvgDocLength())
			assert.Equal(t, fitted.MaxScore(), loaded.MaxScore())
			assert.Equal(t, want, loaded.Transform(texts(articles)))
			assert.Equal(t,
				fitted.Score("programming language", texts(articles)),
				loaded.Score("programming language", texts(articles)))
		})
	}
}

// TestPipeline_SearchAfterReload ranks with a reloaded model exactly as
// with the in-memory one.
func TestPipeline_SearchAfterReload(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	fitted := fitModel(t)

	st, err := store.NewJSONStore(filepath.Join(t.TempDir(), "models"), true)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	require.NoError(t, st.Save(ctx, store.DefaultModelName, fitted.Snapshot()))
	snap, err := st.Load(ctx, store.DefaultModelName)
	require.NoError(t, err)
	loaded, err := bm25.FromSnapshot(snap, nil)
	require.NoError(t, err)

	inMemory, err := search.NewEngine(fitted, articles)
	require.NoError(t, err)
	reloaded, err := search.NewEngine(loaded, articles)
	require.NoError(t, err)

	for _, q := range []string{"programming language", "document frequency", "compression ratio", "memory safety"} {
		a, err := inMemory.Search(ctx, q, search.SearchOptions{Limit: 5})
		require.NoError(t, err)
		b, err := reloaded.Search(ctx, q, search.SearchOptions{Limit: 5})
		require.NoError(t, err)
		require.NotEmpty(t, a, q)
		assert.Equal(t, a, b, q)
	}

	results, err := reloaded.Search(ctx, "compression ratio", search.SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "zstd", results[0].Document.ID)
	assert.Contains(t, results[0].MatchedTerms, "compression ratio")
}
