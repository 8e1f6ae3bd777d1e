// Package search ranks a document collection against free-text queries
// using a fitted BM25 model.
package search

import (
	"context"
)

// Searcher ranks documents against a query.
type Searcher interface {
	// Search returns the best-matching documents, highest score first.
	Search(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error)

	// Stats returns engine statistics.
	Stats() *EngineStats
}

// Document is one searchable item.
type Document struct {
	// ID identifies the document to callers; defaults to its line number.
	ID string `json:"id"`

	// Text is the content that was analysed.
	Text string `json:"text"`
}

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results to return (default: 10).
	Limit int

	// MinScore drops results scoring below it.
	MinScore float64

	// Highlight computes text ranges for matched unigram terms.
	Highlight bool
}

// SearchResult is a single ranked document.
type SearchResult struct {
	// Rank is the 1-indexed position in the result list.
	Rank int `json:"rank"`

	// Index is the document's position in the collection.
	Index int `json:"index"`

	// Document is the matched document.
	Document Document `json:"document"`

	// Score is the BM25 score restricted to the query's features.
	Score float64 `json:"score"`

	// MatchedTerms contains the query features that occur in the document,
	// in vocabulary order.
	MatchedTerms []string `json:"matched_terms"`

	// Highlights contains text ranges where matched terms occur.
	Highlights []Range `json:"highlights,omitempty"`
}

// Range represents a text range for highlighting.
type Range struct {
	// Start is the starting byte offset (0-indexed).
	Start int `json:"start"`

	// End is the ending byte offset (exclusive).
	End int `json:"end"`
}

// EngineStats provides statistics about the search engine.
type EngineStats struct {
	Documents   int    `json:"documents"`
	Features    int    `json:"features"`
	IDF         string `json:"idf"`
	CacheHits   uint64 `json:"cache_hits"`
	CacheMisses uint64 `json:"cache_misses"`
}

// EngineConfig configures the search engine.
type EngineConfig struct {
	// DefaultLimit is the default number of results (default: 10).
	DefaultLimit int

	// MaxLimit is the maximum allowed results (default: 1000).
	MaxLimit int

	// CacheSize is the number of analysed queries kept (default: 1000).
	CacheSize int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit: 10,
		MaxLimit:     1000,
		CacheSize:    DefaultQueryCacheSize,
	}
}
