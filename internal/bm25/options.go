package bm25

import (
	"math"
	"strings"

	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
	"github.com/Aman-CERP/bm25vec/internal/matrix"
	"github.com/Aman-CERP/bm25vec/internal/text"
)

// Default hyperparameters.
const (
	DefaultK1      = 1.2
	DefaultB       = 0.75
	DefaultEpsilon = 1e-10
)

// Options configures a Vectorizer. They are copied at construction and
// cannot change afterwards.
type Options struct {
	// K1 is the term saturation factor (> 0).
	K1 float64
	// B is the length normalization factor, in [0,1].
	B float64

	// Tokenizer splits documents; nil selects the word tokenizer.
	Tokenizer text.Tokenizer
	// MinN and MaxN are the n-gram range (1 <= MinN <= MaxN).
	MinN int
	MaxN int
	// StopWords are removed after n-gram expansion.
	StopWords []string

	// MinDF and MaxDF bound document frequency at fit time.
	MinDF matrix.Bound
	MaxDF matrix.Bound
	// MaxFeatures caps the vocabulary by total frequency (0 = no cap).
	MaxFeatures int
	// Binary counts each feature at most once per document.
	Binary bool

	// Vocabulary, if non-nil, is used as-is and no vocabulary is built.
	Vocabulary map[string]int

	// IDF is the weighting strategy; nil selects SmoothIDF.
	IDF IDF
	// Normalize divides scores by the maximum fit-corpus score.
	Normalize bool
	// Epsilon floors document scores and the average document length.
	Epsilon float64

	// Workers and ChunkSize tune parallel analysis (0 = defaults).
	Workers   int
	ChunkSize int
}

// DefaultOptions returns unigram options with k1=1.2, b=0.75 and smooth idf.
func DefaultOptions() Options {
	return Options{
		K1:      DefaultK1,
		B:       DefaultB,
		MinN:    1,
		MaxN:    1,
		IDF:     SmoothIDF{},
		Epsilon: DefaultEpsilon,
	}
}

// Validate reports the first configuration error in o.
func (o Options) Validate() error {
	if !(o.K1 > 0) || math.IsInf(o.K1, 0) {
		return vecerrors.ConfigErrorf("k1 (term saturation) must be > 0, got %g", o.K1)
	}
	if !(o.B >= 0 && o.B <= 1) {
		return vecerrors.ConfigErrorf("b (length normalization) must be in [0,1], got %g", o.B)
	}
	if o.MinN < 1 || o.MaxN < 1 {
		return vecerrors.ConfigErrorf("ngram range values must be positive, got (%d, %d)", o.MinN, o.MaxN)
	}
	if o.MinN > o.MaxN {
		return vecerrors.ConfigErrorf("ngram range min (%d) must not exceed max (%d)", o.MinN, o.MaxN)
	}
	if !(o.Epsilon > 0) {
		return vecerrors.ConfigErrorf("epsilon must be > 0, got %g", o.Epsilon)
	}
	if err := o.prune().Validate(); err != nil {
		return err
	}
	for _, w := range o.StopWords {
		if strings.TrimSpace(w) == "" {
			return vecerrors.ConfigErrorf("stop words must not be blank")
		}
	}
	return nil
}

func (o Options) prune() matrix.PruneOptions {
	return matrix.PruneOptions{
		MinDF:       o.MinDF,
		MaxDF:       o.MaxDF,
		MaxFeatures: o.MaxFeatures,
		Binary:      o.Binary,
	}
}
