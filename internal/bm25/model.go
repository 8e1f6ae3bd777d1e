package bm25

import (
	"math"
	"sort"

	"github.com/Aman-CERP/bm25vec/internal/matrix"
	"github.com/Aman-CERP/bm25vec/internal/text"
	"github.com/Aman-CERP/bm25vec/internal/vocab"
)

// Model is the frozen state produced by Fit. All fields are written once in
// newModel and only read afterwards; accessors return copies.
type Model struct {
	k1        float64
	b         float64
	epsilon   float64
	normalize bool
	binary    bool
	idf       IDF

	analyzer  text.Analyzer
	countOpts matrix.CountOptions
	vocab     *vocab.Vocabulary
	fixed     bool

	weights      []float64 // idf per column
	docFreq      []float64 // count or fraction per column, as pruned
	docLengths   []int
	avgDocLength float64
	maxScore     float64
	nDocs        int
}

func newModel(opts Options, an text.Analyzer, voc *vocab.Vocabulary, counts *matrix.CountMatrix, df []float64) *Model {
	m := &Model{
		k1:        opts.K1,
		b:         opts.B,
		epsilon:   opts.Epsilon,
		normalize: opts.Normalize,
		binary:    opts.Binary,
		idf:       opts.IDF,
		analyzer:  an,
		countOpts: matrix.CountOptions{Workers: opts.Workers, ChunkSize: opts.ChunkSize},
		vocab:     voc,
		fixed:     voc.Fixed(),
		docFreq:   df,
		nDocs:     counts.Rows(),
	}

	docCounts := counts.DocumentCounts()
	m.weights = make([]float64, len(docCounts))
	for f, n := range docCounts {
		m.weights[f] = m.idf.Weight(n, m.nDocs)
	}

	m.docLengths = counts.RowSums()
	total := 0
	for _, l := range m.docLengths {
		total += l
	}
	mean := 0.0
	if m.nDocs > 0 {
		mean = float64(total) / float64(m.nDocs)
	}
	m.avgDocLength = math.Max(mean, m.epsilon)

	// Raw floored scores of the fit corpus; max_score is frozen here.
	m.maxScore = m.epsilon
	for d := 0; d < counts.Rows(); d++ {
		s := math.Max(m.rowScore(counts, d, nil), m.epsilon)
		if s > m.maxScore {
			m.maxScore = s
		}
	}
	return m
}

// Count builds the count matrix of corpus against the frozen vocabulary,
// applying binary coercion when the model was fitted with it. Features
// outside the vocabulary are ignored.
func (m *Model) Count(corpus []string) *matrix.CountMatrix {
	counts := matrix.Count(corpus, m.vocab, m.analyzer, m.countOpts)
	if m.binary {
		counts = counts.Binarize()
	}
	return counts
}

// Transform returns one BM25 score per document of corpus, in input order.
// Scores are floored at epsilon and, if the model normalizes, divided by the
// maximum fit-corpus score. Calling Transform repeatedly on the same corpus
// returns identical results.
func (m *Model) Transform(corpus []string) []float64 {
	return m.ScoreCounts(m.Count(corpus), nil)
}

// Score ranks corpus against query: only features that occur in the
// analysed query contribute. A query with no known features scores every
// document at the floor.
func (m *Model) Score(query string, corpus []string) []float64 {
	return m.ScoreCounts(m.Count(corpus), m.QueryFeatures(query))
}

// QueryFeatures returns the distinct vocabulary columns of the analysed
// query, ascending. The result is never nil.
func (m *Model) QueryFeatures(query string) []int {
	seen := make(map[int]struct{})
	cols := make([]int, 0)
	for _, feat := range m.analyzer.Analyze(query) {
		c, ok := m.vocab.Index(feat)
		if !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		cols = append(cols, c)
	}
	sort.Ints(cols)
	return cols
}

// ScoreCounts scores the rows of a matrix produced by Count. A nil features
// slice scores every column; a non-nil slice restricts the sum to those
// columns.
func (m *Model) ScoreCounts(counts *matrix.CountMatrix, features []int) []float64 {
	var include []bool
	if features != nil {
		include = make([]bool, len(m.weights))
		for _, c := range features {
			if c >= 0 && c < len(include) {
				include[c] = true
			}
		}
	}

	scores := make([]float64, counts.Rows())
	for d := range scores {
		scores[d] = m.finish(m.rowScore(counts, d, include))
	}
	return scores
}

// Weights returns the per-feature BM25 contributions of every document of
// corpus as a sparse matrix. Each row sums to the document's unfloored
// score, normalized when the model normalizes.
func (m *Model) Weights(corpus []string) *WeightMatrix {
	counts := m.Count(corpus)
	w := &WeightMatrix{
		rows:   counts.Rows(),
		cols:   counts.Cols(),
		indptr: make([]int, 1, counts.Rows()+1),
	}
	for d := 0; d < counts.Rows(); d++ {
		norm := m.lengthNorm(counts.RowSum(d))
		cols, tfs := counts.Row(d)
		for i, c := range cols {
			v := m.contribution(c, tfs[i], norm)
			if m.normalize {
				v /= m.maxScore
			}
			w.indices = append(w.indices, c)
			w.data = append(w.data, v)
		}
		w.indptr = append(w.indptr, len(w.indices))
	}
	return w
}

func (m *Model) rowScore(counts *matrix.CountMatrix, d int, include []bool) float64 {
	norm := m.lengthNorm(counts.RowSum(d))
	cols, tfs := counts.Row(d)
	sum := 0.0
	for i, c := range cols {
		if include != nil && !include[c] {
			continue
		}
		sum += m.contribution(c, tfs[i], norm)
	}
	return sum
}

func (m *Model) lengthNorm(docLength int) float64 {
	return float64(docLength) / m.avgDocLength
}

// contribution is idf * tf*(k1+1) / (tf + k1*(1 - b + b*lenNorm)).
// tf = 0 contributes exactly 0 whatever the sign of idf.
func (m *Model) contribution(col, tf int, lenNorm float64) float64 {
	if tf == 0 || col >= len(m.weights) {
		return 0
	}
	t := float64(tf)
	return m.weights[col] * t * (m.k1 + 1) / (t + m.k1*(1-m.b+m.b*lenNorm))
}

func (m *Model) finish(score float64) float64 {
	score = math.Max(score, m.epsilon)
	if m.normalize {
		score /= m.maxScore
	}
	return score
}

// Vocabulary returns the frozen vocabulary.
func (m *Model) Vocabulary() *vocab.Vocabulary { return m.vocab }

// Analyzer returns the feature pipeline shared by fit and transform.
func (m *Model) Analyzer() text.Analyzer { return m.analyzer }

// IDFWeights returns a copy of the per-column idf vector.
func (m *Model) IDFWeights() []float64 { return append([]float64(nil), m.weights...) }

// IDFName returns the idf strategy name.
func (m *Model) IDFName() string { return m.idf.Name() }

// DocumentFrequency returns a copy of the fit-time document frequency per
// column (counts, or fractions when the bounds were fractions).
func (m *Model) DocumentFrequency() []float64 { return append([]float64(nil), m.docFreq...) }

// DocLengths returns a copy of the fit corpus document lengths.
func (m *Model) DocLengths() []int { return append([]int(nil), m.docLengths...) }

// AvgDocLength returns the frozen average fit document length (floored).
func (m *Model) AvgDocLength() float64 { return m.avgDocLength }

// MaxScore returns the largest floored fit-corpus score.
func (m *Model) MaxScore() float64 { return m.maxScore }

// NumDocs returns the size of the fit corpus.
func (m *Model) NumDocs() int { return m.nDocs }

// K1 returns the term saturation factor.
func (m *Model) K1() float64 { return m.k1 }

// B returns the length normalization factor.
func (m *Model) B() float64 { return m.b }

// Epsilon returns the score floor.
func (m *Model) Epsilon() float64 { return m.epsilon }

// Normalized reports whether scores are divided by MaxScore.
func (m *Model) Normalized() bool { return m.normalize }

// WeightMatrix is a compressed-sparse-row matrix of BM25 contributions.
type WeightMatrix struct {
	rows, cols int
	indptr     []int
	indices    []int
	data       []float64
}

// Rows returns the number of documents.
func (w *WeightMatrix) Rows() int { return w.rows }

// Cols returns the number of feature columns.
func (w *WeightMatrix) Cols() int { return w.cols }

// Row returns the non-zero columns of row r and their weights. The slices
// alias internal storage and must not be modified.
func (w *WeightMatrix) Row(r int) (cols []int, weights []float64) {
	lo, hi := w.indptr[r], w.indptr[r+1]
	return w.indices[lo:hi], w.data[lo:hi]
}

// Dense expands the matrix into rows of length Cols.
func (w *WeightMatrix) Dense() [][]float64 {
	out := make([][]float64, w.rows)
	for r := range out {
		out[r] = make([]float64, w.cols)
		cols, vals := w.Row(r)
		for i, c := range cols {
			out[r][c] = vals[i]
		}
	}
	return out
}
