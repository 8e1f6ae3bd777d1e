package text

import (
	"fmt"
	"sort"
	"strings"
)

// StopWords is a set of features removed after n-gram expansion.
// Membership is exact: n-grams that merely contain a stop word are kept.
type StopWords map[string]struct{}

// NewStopWords builds a set from words.
func NewStopWords(words []string) StopWords {
	s := make(StopWords, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// StopWordPreset returns the named built-in stop-word list.
// An empty name returns nil (no stop words).
func StopWordPreset(name string) ([]string, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return nil, nil
	case "english":
		return append([]string(nil), EnglishStopWords...), nil
	case "code":
		return append([]string(nil), CodeStopWords...), nil
	default:
		return nil, fmt.Errorf("unknown stop word preset %q (valid options: english, code, none)", name)
	}
}

// Contains reports whether word is a stop word.
func (s StopWords) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// Filter returns tokens with stop words removed. The input is not modified.
func (s StopWords) Filter(tokens []string) []string {
	if len(s) == 0 {
		return tokens
	}
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, stop := s[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

// Words returns the set's members in ascending order.
func (s StopWords) Words() []string {
	words := make([]string, 0, len(s))
	for w := range s {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// EnglishStopWords is a compact list of common English function words.
var EnglishStopWords = []string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an",
	"and", "any", "are", "as", "at", "be", "because", "been", "before",
	"being", "below", "between", "both", "but", "by", "can", "could", "did",
	"do", "does", "doing", "down", "during", "each", "few", "for", "from",
	"further", "had", "has", "have", "having", "he", "her", "here", "hers",
	"herself", "him", "himself", "his", "how", "i", "if", "in", "into", "is",
	"it", "its", "itself", "just", "me", "more", "most", "my", "myself", "no",
	"nor", "not", "now", "of", "off", "on", "once", "only", "or", "other",
	"our", "ours", "ourselves", "out", "over", "own", "same", "she", "should",
	"so", "some", "such", "than", "that", "the", "their", "theirs", "them",
	"themselves", "then", "there", "these", "they", "this", "those", "through",
	"to", "too", "under", "until", "up", "very", "was", "we", "were", "what",
	"when", "where", "which", "while", "who", "whom", "why", "will", "with",
	"would", "you", "your", "yours", "yourself", "yourselves",
}

// CodeStopWords contains programming keywords to filter out.
var CodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}
