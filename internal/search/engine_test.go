package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/bm25vec/internal/bm25"
	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
)

func testDocs() []Document {
	return []Document{
		{ID: "a", Text: "the cat sat"},
		{ID: "b", Text: "the cat sat on the mat"},
		{ID: "c", Text: "dogs bark"},
		{ID: "d", Text: "the cat sat"},
	}
}

func newTestEngine(t *testing.T, docs []Document, opts ...EngineOption) *Engine {
	t.Helper()
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	v, err := bm25.New(bm25.DefaultOptions())
	require.NoError(t, err)
	e, err := NewEngine(v.Fit(texts), docs, opts...)
	require.NoError(t, err)
	return e
}

func ids(results []*SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Document.ID
	}
	return out
}

func TestEngine_Search_RanksMatchesOnly(t *testing.T) {
	// Given: an engine over the cat collection
	e := newTestEngine(t, testDocs())

	// When: searching for a single term
	results, err := e.Search(context.Background(), "cat", SearchOptions{})
	require.NoError(t, err)

	// Then: non-matching documents are excluded and ties keep collection order
	assert.Equal(t, []string{"a", "d", "b"}, ids(results))
	assert.Equal(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[1].Score, results[2].Score)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
		assert.Equal(t, []string{"cat"}, r.MatchedTerms)
	}
	assert.Equal(t, 3, results[1].Index)
}

func TestEngine_Search_MatchedTermsInVocabularyOrder(t *testing.T) {
	e := newTestEngine(t, testDocs())

	results, err := e.Search(context.Background(), "mat cat zebra", SearchOptions{})

	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "b", results[0].Document.ID)
	assert.Equal(t, []string{"cat", "mat"}, results[0].MatchedTerms)
}

func TestEngine_Search_Limit(t *testing.T) {
	e := newTestEngine(t, testDocs())

	results, err := e.Search(context.Background(), "cat", SearchOptions{Limit: 2})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, ids(results))
}

func TestEngine_Search_MinScore(t *testing.T) {
	e := newTestEngine(t, testDocs())

	results, err := e.Search(context.Background(), "cat", SearchOptions{MinScore: 1e9})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_Search_EmptyAndUnknownQueries(t *testing.T) {
	e := newTestEngine(t, testDocs())

	_, err := e.Search(context.Background(), "   ", SearchOptions{})
	assert.Equal(t, vecerrors.ErrCodeQueryEmpty, vecerrors.GetCode(err))

	results, err := e.Search(context.Background(), "zebra", SearchOptions{})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestEngine_Search_CanceledContext(t *testing.T) {
	e := newTestEngine(t, testDocs())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Search(ctx, "cat", SearchOptions{})

	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEngine_Search_Highlights(t *testing.T) {
	e := newTestEngine(t, testDocs())

	results, err := e.Search(context.Background(), "sat cat", SearchOptions{Highlight: true, Limit: 1})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []Range{{Start: 4, End: 7}, {Start: 8, End: 11}}, results[0].Highlights)
}

func TestEngine_QueryCache(t *testing.T) {
	e := newTestEngine(t, testDocs(), WithConfig(EngineConfig{CacheSize: 2}))
	ctx := context.Background()

	_, err := e.Search(ctx, "cat", SearchOptions{})
	require.NoError(t, err)
	_, err = e.Search(ctx, "cat", SearchOptions{})
	require.NoError(t, err)

	stats := e.Stats()
	assert.Equal(t, uint64(1), stats.CacheHits)
	assert.Equal(t, uint64(1), stats.CacheMisses)
	assert.Equal(t, 4, stats.Documents)
	assert.Equal(t, 7, stats.Features)
	assert.Equal(t, bm25.IDFSmooth, stats.IDF)
}

func TestEngine_Reset(t *testing.T) {
	// Given: an engine that has cached a query
	e := newTestEngine(t, testDocs())
	ctx := context.Background()
	_, err := e.Search(ctx, "bark", SearchOptions{})
	require.NoError(t, err)

	// When: the collection is replaced
	docs := []Document{{ID: "x", Text: "dogs bark loudly"}, {ID: "y", Text: "quiet cats"}}
	v, err := bm25.New(bm25.DefaultOptions())
	require.NoError(t, err)
	e.Reset(v.Fit([]string{docs[0].Text, docs[1].Text}), docs)

	// Then: results come from the new collection
	results, err := e.Search(ctx, "bark", SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids(results))
	assert.Equal(t, uint64(2), e.Stats().CacheMisses)
}

func TestNewEngine_NilModel(t *testing.T) {
	_, err := NewEngine(nil, nil)
	assert.True(t, errors.Is(err, ErrNilDependency))
}

func TestCalculateHighlights(t *testing.T) {
	assert.Equal(t, []Range{}, calculateHighlights("", []string{"x"}))
	assert.Equal(t, []Range{}, calculateHighlights("abc", nil))
	assert.Equal(t,
		[]Range{{Start: 0, End: 3}, {Start: 8, End: 11}},
		calculateHighlights("Cat and cat", []string{"cat"}))
}
