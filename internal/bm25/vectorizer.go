package bm25

import (
	"log/slog"
	"time"

	"github.com/Aman-CERP/bm25vec/internal/matrix"
	"github.com/Aman-CERP/bm25vec/internal/text"
	"github.com/Aman-CERP/bm25vec/internal/vocab"
)

// Vectorizer holds validated, immutable options and produces fitted Models.
// A Vectorizer has no fit state of its own; every Fit returns a new Model.
type Vectorizer struct {
	opts     Options
	analyzer text.Analyzer
	fixed    *vocab.Vocabulary
}

// New validates opts and returns a Vectorizer. Invalid hyperparameters and
// malformed fixed vocabularies are reported as configuration errors.
func New(opts Options) (*Vectorizer, error) {
	if opts.Epsilon == 0 {
		opts.Epsilon = DefaultEpsilon
	}
	if opts.IDF == nil {
		opts.IDF = SmoothIDF{}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	v := &Vectorizer{
		opts:     opts,
		analyzer: text.NewAnalyzer(opts.Tokenizer, opts.MinN, opts.MaxN, opts.StopWords),
	}
	v.opts.StopWords = v.analyzer.StopWords.Words()

	if opts.Vocabulary != nil {
		fixed, err := vocab.FromMap(opts.Vocabulary)
		if err != nil {
			return nil, err
		}
		v.fixed = fixed
		v.opts.Vocabulary = nil
	}
	return v, nil
}

// Options returns a copy of the vectorizer's options.
func (v *Vectorizer) Options() Options {
	opts := v.opts
	opts.StopWords = append([]string(nil), v.opts.StopWords...)
	if v.fixed != nil {
		opts.Vocabulary = v.fixed.Map()
	}
	return opts
}

// Fit learns the vocabulary, idf weights and average document length of
// corpus and freezes them into a Model. An empty corpus yields a model with
// an empty vocabulary whose scores are all epsilon.
func (v *Vectorizer) Fit(corpus []string) *Model {
	start := time.Now()

	var (
		voc    *vocab.Vocabulary
		counts *matrix.CountMatrix
		df     []float64
	)
	countOpts := matrix.CountOptions{Workers: v.opts.Workers, ChunkSize: v.opts.ChunkSize}

	if v.fixed != nil {
		// The supplied vocabulary is taken verbatim: no pruning.
		voc = v.fixed
		counts = matrix.Count(corpus, voc, v.analyzer, countOpts)
		if v.opts.Binary {
			counts = counts.Binarize()
		}
		df = matrix.DocFreq(counts, v.opts.prune().Fractional())
	} else {
		built := vocab.Build(corpus, v.analyzer, vocab.BuildOptions{
			Workers:   v.opts.Workers,
			ChunkSize: v.opts.ChunkSize,
		})
		pruned := matrix.Prune(matrix.Count(corpus, built, v.analyzer, countOpts), v.opts.prune())
		voc = built.Select(pruned.Kept)
		counts = pruned.Matrix
		df = pruned.DocFreq
	}

	m := newModel(v.opts, v.analyzer, voc, counts, df)

	slog.Info("fit_complete",
		slog.Int("documents", m.nDocs),
		slog.Int("features", voc.Len()),
		slog.Float64("avg_doc_length", m.avgDocLength),
		slog.String("idf", m.idf.Name()),
		slog.Duration("duration", time.Since(start)))

	return m
}

// FitTransform fits corpus and scores the same corpus against the result.
// It is exactly Fit(corpus).Transform(corpus).
func (v *Vectorizer) FitTransform(corpus []string) (*Model, []float64) {
	m := v.Fit(corpus)
	return m, m.Transform(corpus)
}
