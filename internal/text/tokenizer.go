package text

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenizer splits a document into an ordered sequence of tokens.
// Implementations must be pure: the same input always yields the same
// output, and calls may happen concurrently.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Named is implemented by tokenizers that can be recreated by name.
// Models record the name so a persisted model can rebuild its analyzer.
type Named interface {
	Name() string
}

// TokenizerFunc adapts a plain function to the Tokenizer interface.
type TokenizerFunc func(text string) []string

// Tokenize implements Tokenizer.
func (f TokenizerFunc) Tokenize(text string) []string { return f(text) }

// Built-in tokenizer names.
const (
	TokenizerWord    = "word"
	TokenizerCode    = "code"
	TokenizerUnicode = "unicode"

	// TokenizerCustom is recorded for tokenizers that do not implement Named.
	TokenizerCustom = "custom"
)

// DefaultMinTokenLength drops single-character tokens.
const DefaultMinTokenLength = 2

// NewTokenizer returns the built-in tokenizer registered under name.
// An empty name selects the word tokenizer.
func NewTokenizer(name string) (Tokenizer, error) {
	switch strings.ToLower(name) {
	case TokenizerWord, "":
		return NewWordTokenizer(), nil
	case TokenizerCode:
		return NewCodeTokenizer(), nil
	case TokenizerUnicode:
		return NewUnicodeTokenizer(), nil
	default:
		return nil, fmt.Errorf("unknown tokenizer %q (valid options: word, code, unicode)", name)
	}
}

// TokenizerName returns the registered name of t, or TokenizerCustom.
func TokenizerName(t Tokenizer) string {
	if n, ok := t.(Named); ok {
		return n.Name()
	}
	return TokenizerCustom
}

// wordRegex matches runs of letters, digits and underscores in any script.
var wordRegex = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// WordTokenizer lowercases text and splits it on anything that is not a
// letter, digit or underscore.
type WordTokenizer struct {
	MinLength int
}

// NewWordTokenizer returns a WordTokenizer with the default minimum length.
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{MinLength: DefaultMinTokenLength}
}

// Name implements Named.
func (t *WordTokenizer) Name() string { return TokenizerWord }

// Tokenize implements Tokenizer.
func (t *WordTokenizer) Tokenize(text string) []string {
	words := wordRegex.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) >= t.MinLength {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// codeRegex matches alphanumeric sequences (including underscores for initial split).
var codeRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// CodeTokenizer splits text with code-aware rules.
// It handles camelCase, PascalCase and snake_case, and filters short tokens.
// All tokens are lowercased.
type CodeTokenizer struct {
	MinLength int
}

// NewCodeTokenizer returns a CodeTokenizer with the default minimum length.
func NewCodeTokenizer() *CodeTokenizer {
	return &CodeTokenizer{MinLength: DefaultMinTokenLength}
}

// Name implements Named.
func (t *CodeTokenizer) Name() string { return TokenizerCode }

// Tokenize implements Tokenizer.
func (t *CodeTokenizer) Tokenize(text string) []string {
	var tokens []string
	for _, word := range codeRegex.FindAllString(text, -1) {
		for _, sub := range SplitCodeToken(word) {
			lower := strings.ToLower(sub)
			if len(lower) >= t.MinLength {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

// SplitCodeToken splits camelCase and snake_case identifiers.
func SplitCodeToken(token string) []string {
	if !strings.Contains(token, "_") {
		return SplitCamelCase(token)
	}

	var result []string
	for _, part := range strings.Split(token, "_") {
		if part != "" {
			result = append(result, SplitCamelCase(part)...)
		}
	}
	return result
}

// SplitCamelCase splits camelCase and PascalCase identifiers.
// Examples:
//   - "getUserById" -> ["get", "User", "By", "Id"]
//   - "HTTPHandler" -> ["HTTP", "Handler"]
//   - "parseHTTPRequest" -> ["parse", "HTTP", "Request"]
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			// Acronyms end where a lowercase letter follows.
			if (prevIsLower || nextIsLower) && current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

