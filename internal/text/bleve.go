package text

import (
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// UnicodeTokenizer segments text on Unicode word boundaries (UAX #29) using
// bleve's analysis chain, then lowercases every token. Unlike WordTokenizer
// it handles scripts without spaces between words.
type UnicodeTokenizer struct {
	MinLength int

	tokenizer analysis.Tokenizer
	lower     analysis.TokenFilter
}

// NewUnicodeTokenizer returns a UnicodeTokenizer with the default minimum length.
func NewUnicodeTokenizer() *UnicodeTokenizer {
	return &UnicodeTokenizer{
		MinLength: DefaultMinTokenLength,
		tokenizer: unicode.NewUnicodeTokenizer(),
		lower:     lowercase.NewLowerCaseFilter(),
	}
}

// Name implements Named.
func (t *UnicodeTokenizer) Name() string { return TokenizerUnicode }

// Tokenize implements Tokenizer.
func (t *UnicodeTokenizer) Tokenize(text string) []string {
	stream := t.lower.Filter(t.tokenizer.Tokenize([]byte(text)))

	tokens := make([]string, 0, len(stream))
	for _, tok := range stream {
		term := string(tok.Term)
		if utf8.RuneCountInString(term) >= t.MinLength {
			tokens = append(tokens, term)
		}
	}
	return tokens
}
