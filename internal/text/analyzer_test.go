package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzer_RemovesStopWordsAfterExpansion(t *testing.T) {
	// Given: stop words that appear verbatim in the document
	a := NewAnalyzer(nil, 1, 2, []string{"the", "on"})

	// When: analyzing
	features := a.Analyze("the cat sat on the mat")

	// Then: unigram stop words are removed but bigrams containing them survive
	assert.Equal(t, []string{
		"cat", "sat", "mat",
		"the cat", "cat sat", "sat on", "on the", "the mat",
	}, features)
}

func TestAnalyzer_Defaults(t *testing.T) {
	a := NewAnalyzer(nil, 0, 0, nil)

	assert.Equal(t, 1, a.MinN)
	assert.Equal(t, 1, a.MaxN)
	assert.Equal(t, TokenizerWord, TokenizerName(a.Tokenizer))
	assert.Equal(t, []string{"dogs", "bark"}, a.Analyze("Dogs bark"))
}

func TestAnalyzer_EmptyDocument(t *testing.T) {
	a := NewAnalyzer(nil, 1, 3, nil)
	assert.Empty(t, a.Analyze(""))
}

func TestStopWords(t *testing.T) {
	s := NewStopWords([]string{"the", "on"})

	assert.True(t, s.Contains("the"))
	assert.False(t, s.Contains("The"))
	assert.Equal(t, []string{"on", "the"}, s.Words())
	assert.Equal(t, []string{"cat"}, s.Filter([]string{"the", "cat", "on"}))
}

func TestStopWordPreset(t *testing.T) {
	english, err := StopWordPreset("english")
	require.NoError(t, err)
	assert.Contains(t, english, "the")

	none, err := StopWordPreset("")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = StopWordPreset("klingon")
	assert.Error(t, err)
}
