package bm25

import (
	"fmt"
	"math"
	"strings"
)

// IDF computes the inverse document frequency weight of a feature from its
// document count and the number of fit documents. A model uses exactly one
// IDF for its whole lifetime.
type IDF interface {
	Name() string
	Weight(df, nDocs int) float64
}

// IDF strategy names.
const (
	IDFClassic = "classic"
	IDFSmooth  = "smooth"
)

// ClassicIDF is the Robertson/Sparck Jones weight
// ln((N - df + 0.5) / (df + 0.5)). It is negative for features present in
// more than half of the documents.
type ClassicIDF struct{}

// Name implements IDF.
func (ClassicIDF) Name() string { return IDFClassic }

// Weight implements IDF.
func (ClassicIDF) Weight(df, nDocs int) float64 {
	return math.Log((float64(nDocs-df) + 0.5) / (float64(df) + 0.5))
}

// SmoothIDF is ln(1 + (N - df) / (df + 1)). It is never negative.
type SmoothIDF struct{}

// Name implements IDF.
func (SmoothIDF) Name() string { return IDFSmooth }

// Weight implements IDF.
func (SmoothIDF) Weight(df, nDocs int) float64 {
	return math.Log1p(float64(nDocs-df) / float64(df+1))
}

// IDFByName returns the named strategy. An empty name selects SmoothIDF.
func IDFByName(name string) (IDF, error) {
	switch strings.ToLower(name) {
	case IDFSmooth, "":
		return SmoothIDF{}, nil
	case IDFClassic:
		return ClassicIDF{}, nil
	default:
		return nil, fmt.Errorf("unknown idf %q (valid options: smooth, classic)", name)
	}
}
