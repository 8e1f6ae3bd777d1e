package bm25

import (
	"fmt"
	"math"

	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
	"github.com/Aman-CERP/bm25vec/internal/matrix"
	"github.com/Aman-CERP/bm25vec/internal/text"
	"github.com/Aman-CERP/bm25vec/internal/vocab"
)

// SnapshotVersion is the current snapshot layout version.
const SnapshotVersion = 1

// Snapshot is the complete persisted form of a Model. Every float is the
// exact frozen value; restoring a snapshot reproduces bit-identical scores.
type Snapshot struct {
	Version int `json:"version"`

	K1        float64 `json:"k1"`
	B         float64 `json:"b"`
	Epsilon   float64 `json:"epsilon"`
	Normalize bool    `json:"normalize"`
	IDF       string  `json:"idf"`

	Tokenizer string   `json:"tokenizer"`
	MinN      int      `json:"min_n"`
	MaxN      int      `json:"max_n"`
	StopWords []string `json:"stop_words,omitempty"`
	Binary    bool     `json:"binary"`

	Vocabulary      map[string]int `json:"vocabulary"`
	FixedVocabulary bool           `json:"fixed_vocabulary"`
	Width           int            `json:"width"`

	IDFWeights   []float64 `json:"idf_weights"`
	DocFreq      []float64 `json:"doc_freq"`
	DocLengths   []int     `json:"doc_lengths"`
	AvgDocLength float64   `json:"avg_doc_length"`
	MaxScore     float64   `json:"max_score"`
	NumDocs      int       `json:"num_docs"`
}

// Snapshot captures the model's frozen state.
func (m *Model) Snapshot() *Snapshot {
	return &Snapshot{
		Version:         SnapshotVersion,
		K1:              m.k1,
		B:               m.b,
		Epsilon:         m.epsilon,
		Normalize:       m.normalize,
		IDF:             m.idf.Name(),
		Tokenizer:       text.TokenizerName(m.analyzer.Tokenizer),
		MinN:            m.analyzer.MinN,
		MaxN:            m.analyzer.MaxN,
		StopWords:       m.analyzer.StopWords.Words(),
		Binary:          m.binary,
		Vocabulary:      m.vocab.Map(),
		FixedVocabulary: m.fixed,
		Width:           m.vocab.Width(),
		IDFWeights:      m.IDFWeights(),
		DocFreq:         m.DocumentFrequency(),
		DocLengths:      m.DocLengths(),
		AvgDocLength:    m.avgDocLength,
		MaxScore:        m.maxScore,
		NumDocs:         m.nDocs,
	}
}

// FromSnapshot rebuilds a Model from snap. tok overrides the recorded
// tokenizer and is required when the model was fitted with a custom one.
func FromSnapshot(snap *Snapshot, tok text.Tokenizer) (*Model, error) {
	if snap == nil {
		return nil, vecerrors.New(vecerrors.ErrCodeCorruptState, "snapshot is empty", nil)
	}
	if snap.Version != SnapshotVersion {
		return nil, vecerrors.New(vecerrors.ErrCodeCorruptState,
			fmt.Sprintf("unsupported snapshot version %d (expected %d)", snap.Version, SnapshotVersion), nil)
	}

	if tok == nil {
		if snap.Tokenizer == text.TokenizerCustom {
			return nil, vecerrors.New(vecerrors.ErrCodeTokenizer,
				"model was fitted with a custom tokenizer", nil).
				WithSuggestion("Pass the same tokenizer when loading the model")
		}
		var err error
		if tok, err = text.NewTokenizer(snap.Tokenizer); err != nil {
			return nil, vecerrors.New(vecerrors.ErrCodeCorruptState, err.Error(), err)
		}
	}

	idf, err := IDFByName(snap.IDF)
	if err != nil {
		return nil, vecerrors.New(vecerrors.ErrCodeCorruptState, err.Error(), err)
	}

	opts := Options{
		K1:        snap.K1,
		B:         snap.B,
		Epsilon:   snap.Epsilon,
		Normalize: snap.Normalize,
		IDF:       idf,
		Tokenizer: tok,
		MinN:      snap.MinN,
		MaxN:      snap.MaxN,
		StopWords: snap.StopWords,
		Binary:    snap.Binary,
	}
	if err := opts.Validate(); err != nil {
		return nil, vecerrors.Wrap(vecerrors.ErrCodeCorruptState, err)
	}

	voc, err := snapshotVocabulary(snap)
	if err != nil {
		return nil, err
	}
	if err := checkSnapshotShape(snap, voc); err != nil {
		return nil, err
	}

	return &Model{
		k1:           snap.K1,
		b:            snap.B,
		epsilon:      snap.Epsilon,
		normalize:    snap.Normalize,
		binary:       snap.Binary,
		idf:          idf,
		analyzer:     text.NewAnalyzer(tok, snap.MinN, snap.MaxN, snap.StopWords),
		countOpts:    matrix.CountOptions{},
		vocab:        voc,
		fixed:        snap.FixedVocabulary,
		weights:      append([]float64(nil), snap.IDFWeights...),
		docFreq:      append([]float64(nil), snap.DocFreq...),
		docLengths:   append([]int(nil), snap.DocLengths...),
		avgDocLength: snap.AvgDocLength,
		maxScore:     snap.MaxScore,
		nDocs:        snap.NumDocs,
	}, nil
}

func snapshotVocabulary(snap *Snapshot) (*vocab.Vocabulary, error) {
	if snap.FixedVocabulary {
		voc, err := vocab.FromMap(snap.Vocabulary)
		if err != nil {
			return nil, vecerrors.Wrap(vecerrors.ErrCodeCorruptState, err)
		}
		return voc, nil
	}

	terms := make([]string, len(snap.Vocabulary))
	for term, i := range snap.Vocabulary {
		if i < 0 || i >= len(terms) || terms[i] != "" {
			return nil, vecerrors.New(vecerrors.ErrCodeCorruptState,
				fmt.Sprintf("vocabulary index %d for %q is not dense", i, term), nil)
		}
		terms[i] = term
	}
	voc, err := vocab.FromTerms(terms)
	if err != nil {
		return nil, vecerrors.Wrap(vecerrors.ErrCodeCorruptState, err)
	}
	return voc, nil
}

func checkSnapshotShape(snap *Snapshot, voc *vocab.Vocabulary) error {
	corrupt := func(format string, args ...any) error {
		return vecerrors.New(vecerrors.ErrCodeCorruptState, fmt.Sprintf(format, args...), nil)
	}
	switch {
	case voc.Width() != snap.Width:
		return corrupt("vocabulary width %d does not match recorded width %d", voc.Width(), snap.Width)
	case len(snap.IDFWeights) != snap.Width:
		return corrupt("idf has %d entries, expected %d", len(snap.IDFWeights), snap.Width)
	case len(snap.DocFreq) != snap.Width:
		return corrupt("doc_freq has %d entries, expected %d", len(snap.DocFreq), snap.Width)
	case len(snap.DocLengths) != snap.NumDocs:
		return corrupt("doc_lengths has %d entries, expected %d", len(snap.DocLengths), snap.NumDocs)
	case !(snap.AvgDocLength > 0) || math.IsInf(snap.AvgDocLength, 0):
		return corrupt("avg_doc_length must be positive, got %g", snap.AvgDocLength)
	case !(snap.MaxScore > 0) || math.IsInf(snap.MaxScore, 0):
		return corrupt("max_score must be positive, got %g", snap.MaxScore)
	}
	for i, w := range snap.IDFWeights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return corrupt("idf[%d] is not finite", i)
		}
	}
	return nil
}
