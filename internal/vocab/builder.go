package vocab

import (
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/bm25vec/internal/text"
)

// DefaultChunkSize is the number of documents each worker analyses
// before merging its features into the global set.
const DefaultChunkSize = 512

// BuildOptions controls parallelism of vocabulary construction.
type BuildOptions struct {
	// Workers is the number of concurrent chunks (default: GOMAXPROCS).
	Workers int
	// ChunkSize is the number of documents per chunk (default: 512).
	ChunkSize int
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	return o
}

// Build runs the first of the two vocabulary passes: every document is
// analysed, the surviving features are unioned, sorted ascending, and
// assigned their sorted position as index.
//
// Chunks are analysed concurrently into private sets which are merged one
// at a time, so no map is read while it is still being written. Peak
// memory is bounded by Workers chunk-local sets plus the global set.
// An empty corpus yields an empty vocabulary.
func Build(corpus []string, an text.Analyzer, opts BuildOptions) *Vocabulary {
	opts = opts.withDefaults()
	if len(corpus) == 0 {
		return Empty()
	}

	chunks := (len(corpus) + opts.ChunkSize - 1) / opts.ChunkSize
	partial := make(chan map[string]struct{}, opts.Workers)

	var g errgroup.Group
	g.SetLimit(opts.Workers)

	go func() {
		for c := 0; c < chunks; c++ {
			lo := c * opts.ChunkSize
			hi := min(lo+opts.ChunkSize, len(corpus))
			g.Go(func() error {
				set := make(map[string]struct{})
				for _, doc := range corpus[lo:hi] {
					for _, f := range an.Analyze(doc) {
						set[f] = struct{}{}
					}
				}
				partial <- set
				return nil
			})
		}
		_ = g.Wait()
		close(partial)
	}()

	global := make(map[string]struct{})
	for set := range partial {
		for f := range set {
			global[f] = struct{}{}
		}
	}

	v := sortedVocabulary(global)
	slog.Debug("vocabulary_built",
		slog.Int("documents", len(corpus)),
		slog.Int("features", v.Len()),
		slog.Int("chunks", chunks))
	return v
}
