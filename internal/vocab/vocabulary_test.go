package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
	"github.com/Aman-CERP/bm25vec/internal/text"
)

var catCorpus = []string{"the cat sat", "the cat sat on the mat", "dogs bark"}

func TestBuild_SortedDenseVocabulary(t *testing.T) {
	// Given: the cat corpus without stop words
	an := text.NewAnalyzer(nil, 1, 1, nil)

	// When: building the vocabulary
	v := Build(catCorpus, an, BuildOptions{})

	// Then: features are sorted ascending with dense indices
	assert.Equal(t, []string{"bark", "cat", "dogs", "mat", "on", "sat", "the"}, v.Terms())
	for i, term := range v.Terms() {
		idx, ok := v.Index(term)
		require.True(t, ok)
		assert.Equal(t, i, idx)
	}
	assert.Equal(t, 7, v.Len())
	assert.Equal(t, 7, v.Width())
	assert.False(t, v.Fixed())
}

func TestBuild_StopWordsExcluded(t *testing.T) {
	an := text.NewAnalyzer(nil, 1, 1, []string{"the", "on"})

	v := Build(catCorpus, an, BuildOptions{})

	_, hasThe := v.Index("the")
	_, hasOn := v.Index("on")
	assert.False(t, hasThe)
	assert.False(t, hasOn)
	assert.Equal(t, []string{"bark", "cat", "dogs", "mat", "sat"}, v.Terms())
}

func TestBuild_SizeEqualsDistinctSurvivingNgrams(t *testing.T) {
	an := text.NewAnalyzer(nil, 1, 2, []string{"the"})

	v := Build(catCorpus, an, BuildOptions{})

	distinct := map[string]struct{}{}
	for _, doc := range catCorpus {
		for _, f := range an.Analyze(doc) {
			distinct[f] = struct{}{}
		}
	}
	assert.Equal(t, len(distinct), v.Len())
}

func TestBuild_ChunkingDoesNotChangeResult(t *testing.T) {
	an := text.NewAnalyzer(nil, 1, 2, nil)
	corpus := make([]string, 0, 100)
	for i := 0; i < 25; i++ {
		corpus = append(corpus, catCorpus...)
		corpus = append(corpus, "a quick brown fox")
	}

	serial := Build(corpus, an, BuildOptions{Workers: 1, ChunkSize: len(corpus)})
	parallel := Build(corpus, an, BuildOptions{Workers: 8, ChunkSize: 3})

	assert.Equal(t, serial.Terms(), parallel.Terms())
}

func TestBuild_EmptyCorpus(t *testing.T) {
	v := Build(nil, text.NewAnalyzer(nil, 1, 1, nil), BuildOptions{})

	assert.Equal(t, 0, v.Len())
	assert.Empty(t, v.Terms())
}

func TestFromMap_AcceptsNonDenseUnsorted(t *testing.T) {
	v, err := FromMap(map[string]int{"zebra": 0, "apple": 4})
	require.NoError(t, err)

	assert.True(t, v.Fixed())
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, 5, v.Width())
	assert.Equal(t, []string{"zebra", "apple"}, v.Terms())

	_, ok := v.Term(2)
	assert.False(t, ok)
}

func TestFromMap_RejectsInvalidIndices(t *testing.T) {
	_, err := FromMap(map[string]int{"a": -1})
	assert.True(t, vecerrors.IsConfigError(err))

	_, err = FromMap(map[string]int{"a": 1, "b": 1})
	assert.True(t, vecerrors.IsConfigError(err))
	assert.Contains(t, err.Error(), `"a" and "b"`)
}

func TestSelect_ReindexesPreservingOrder(t *testing.T) {
	v := Build(catCorpus, text.NewAnalyzer(nil, 1, 1, nil), BuildOptions{})

	sub := v.Select([]int{1, 3, 5})

	assert.Equal(t, []string{"cat", "mat", "sat"}, sub.Terms())
	idx, ok := sub.Index("sat")
	require.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestFromTerms_RejectsDuplicates(t *testing.T) {
	v, err := FromTerms([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 0, "b": 1}, v.Map())

	_, err = FromTerms([]string{"a", "a"})
	assert.Error(t, err)
}
