package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/bm25vec/internal/bm25"
	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
	"github.com/Aman-CERP/bm25vec/internal/matrix"
)

// DefaultQueryCacheSize is the default number of analysed queries to cache.
const DefaultQueryCacheSize = 1000

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Engine ranks a fixed document collection against queries. The count
// matrix of the collection is built once; each query only has to be
// analysed, and analysed queries are kept in an LRU cache.
type Engine struct {
	mu     sync.RWMutex
	model  *bm25.Model
	docs   []Document
	counts *matrix.CountMatrix
	cache  *lru.Cache[string, []int]
	config EngineConfig

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Ensure Engine implements Searcher interface.
var _ Searcher = (*Engine)(nil)

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithConfig overrides the default engine configuration.
func WithConfig(cfg EngineConfig) EngineOption {
	return func(e *Engine) {
		e.config = cfg
	}
}

// NewEngine creates an engine over docs scored by model.
func NewEngine(model *bm25.Model, docs []Document, opts ...EngineOption) (*Engine, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: model is required", ErrNilDependency)
	}
	e := &Engine{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	if e.config.CacheSize <= 0 {
		e.config.CacheSize = DefaultQueryCacheSize
	}
	if e.config.DefaultLimit <= 0 {
		e.config.DefaultLimit = DefaultConfig().DefaultLimit
	}
	if e.config.MaxLimit <= 0 {
		e.config.MaxLimit = DefaultConfig().MaxLimit
	}
	cache, err := lru.New[string, []int](e.config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	e.cache = cache
	e.Reset(model, docs)
	return e, nil
}

// Reset swaps in a new model and collection and drops cached queries.
// Searches in flight finish against the previous state.
func (e *Engine) Reset(model *bm25.Model, docs []Document) {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	counts := model.Count(texts)

	e.mu.Lock()
	e.model = model
	e.docs = append([]Document(nil), docs...)
	e.counts = counts
	e.cache.Purge()
	e.mu.Unlock()

	slog.Debug("search_engine_reset",
		slog.Int("documents", len(docs)),
		slog.Int("features", model.Vocabulary().Len()))
}

// Search ranks the collection against query. Only documents containing at
// least one query feature are returned; ties keep collection order.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, vecerrors.New(vecerrors.ErrCodeQueryEmpty, "query cannot be empty", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	opts = e.applyDefaults(opts)

	e.mu.RLock()
	model, docs, counts := e.model, e.docs, e.counts
	e.mu.RUnlock()

	features := e.queryFeatures(model, query)
	if len(features) == 0 {
		slog.Debug("search_no_known_terms", slog.String("query", query))
		return []*SearchResult{}, nil
	}
	wanted := make(map[int]struct{}, len(features))
	for _, f := range features {
		wanted[f] = struct{}{}
	}

	scores := model.ScoreCounts(counts, features)
	voc := model.Vocabulary()

	results := make([]*SearchResult, 0)
	for d := range docs {
		cols, _ := counts.Row(d)
		var matched []string
		for _, c := range cols {
			if _, ok := wanted[c]; ok {
				term, _ := voc.Term(c)
				matched = append(matched, term)
			}
		}
		if len(matched) == 0 || scores[d] < opts.MinScore {
			continue
		}
		r := &SearchResult{
			Index:        d,
			Document:     docs[d],
			Score:        scores[d],
			MatchedTerms: matched,
		}
		if opts.Highlight {
			r.Highlights = calculateHighlights(docs[d].Text, matched)
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	for i, r := range results {
		r.Rank = i + 1
	}

	slog.Debug("search_complete",
		slog.String("query", query),
		slog.Int("features", len(features)),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

// Stats returns engine statistics.
func (e *Engine) Stats() *EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return &EngineStats{
		Documents:   len(e.docs),
		Features:    e.model.Vocabulary().Len(),
		IDF:         e.model.IDFName(),
		CacheHits:   e.hits.Load(),
		CacheMisses: e.misses.Load(),
	}
}

// queryFeatures returns the cached feature columns of query, analysing it
// on a miss. Cache entries are only valid for the model they were built
// with, so the key includes the model pointer.
func (e *Engine) queryFeatures(model *bm25.Model, query string) []int {
	key := fmt.Sprintf("%p\x00%s", model, query)
	if cols, ok := e.cache.Get(key); ok {
		e.hits.Add(1)
		return cols
	}
	e.misses.Add(1)
	cols := model.QueryFeatures(query)
	e.cache.Add(key, cols)
	return cols
}

// applyDefaults fills in default values for search options.
func (e *Engine) applyDefaults(opts SearchOptions) SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = e.config.DefaultLimit
	}
	if opts.Limit > e.config.MaxLimit {
		opts.Limit = e.config.MaxLimit
	}
	return opts
}

// calculateHighlights finds text ranges for matched terms.
func calculateHighlights(content string, matchedTerms []string) []Range {
	if len(matchedTerms) == 0 || len(content) == 0 {
		return []Range{}
	}

	const maxMatchesPerTerm = 10
	highlights := make([]Range, 0, len(matchedTerms)*3)

	lowerContent := strings.ToLower(content)
	if len(lowerContent) != len(content) {
		// Byte offsets would not map back onto the original text.
		return highlights
	}

	for _, term := range matchedTerms {
		if len(term) == 0 {
			continue
		}
		lowerTerm := strings.ToLower(term)
		start := 0
		for n := 0; n < maxMatchesPerTerm; n++ {
			idx := strings.Index(lowerContent[start:], lowerTerm)
			if idx == -1 {
				break
			}
			absStart := start + idx
			highlights = append(highlights, Range{Start: absStart, End: absStart + len(lowerTerm)})
			start = absStart + len(lowerTerm)
		}
	}

	if len(highlights) > 1 {
		sort.Slice(highlights, func(i, j int) bool {
			return highlights[i].Start < highlights[j].Start
		})
	}
	return highlights
}
