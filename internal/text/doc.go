// Package text turns raw documents into the feature strings that the
// vectorizer counts: tokenization, n-gram expansion and stop-word removal.
//
// The tokenizer is pluggable through the single-method Tokenizer interface.
// Three implementations ship with the package:
//   - "word": lowercased runs of letters, digits and underscores (default)
//   - "code": like "word" but also splits camelCase and snake_case identifiers
//   - "unicode": bleve's Unicode word-boundary tokenizer plus lowercasing
package text
