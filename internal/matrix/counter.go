package matrix

import (
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/bm25vec/internal/text"
	"github.com/Aman-CERP/bm25vec/internal/vocab"
)

// DefaultChunkSize is the number of documents counted per task.
const DefaultChunkSize = 256

// CountOptions controls parallelism of counting.
type CountOptions struct {
	// Workers is the number of concurrent chunks (default: GOMAXPROCS).
	Workers int
	// ChunkSize is the number of documents per chunk (default: 256).
	ChunkSize int
}

func (o CountOptions) withDefaults() CountOptions {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	return o
}

// Count analyses every document and counts its features against a frozen
// vocabulary. Features absent from the vocabulary are ignored. Rows are in
// corpus order regardless of how chunks are scheduled.
func Count(corpus []string, v *vocab.Vocabulary, an text.Analyzer, opts CountOptions) *CountMatrix {
	opts = opts.withDefaults()
	rows := make([]sparseRow, len(corpus))

	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for lo := 0; lo < len(corpus); lo += opts.ChunkSize {
		hi := min(lo+opts.ChunkSize, len(corpus))
		g.Go(func() error {
			for d := lo; d < hi; d++ {
				rows[d] = countDocument(corpus[d], v, an)
			}
			return nil
		})
	}
	_ = g.Wait()

	return fromRows(rows, v.Width())
}

func countDocument(doc string, v *vocab.Vocabulary, an text.Analyzer) sparseRow {
	counts := make(map[int]int)
	for _, f := range an.Analyze(doc) {
		if c, ok := v.Index(f); ok {
			counts[c]++
		}
	}

	row := sparseRow{
		cols:   make([]int, 0, len(counts)),
		counts: make([]int, 0, len(counts)),
	}
	for c := range counts {
		row.cols = append(row.cols, c)
	}
	sort.Ints(row.cols)
	for _, c := range row.cols {
		row.counts = append(row.counts, counts[c])
	}
	return row
}
