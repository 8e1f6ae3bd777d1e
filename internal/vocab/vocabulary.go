// Package vocab builds and holds the immutable feature-to-column mapping
// used by the count matrix and the BM25 model.
package vocab

import (
	"fmt"
	"sort"

	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
)

// Vocabulary maps feature strings to column indices. It is never mutated
// after construction and is safe for concurrent reads.
//
// A built vocabulary is dense (indices 0..N-1) and sorted: index order
// equals ascending lexicographic order of the features. A fixed vocabulary
// supplied by the caller keeps its indices as given and may have gaps.
type Vocabulary struct {
	index map[string]int
	terms []string // terms[i] is the feature at column i, "" for gaps
	fixed bool
}

// Len returns the number of features.
func (v *Vocabulary) Len() int {
	return len(v.index)
}

// Width returns the number of matrix columns the vocabulary addresses:
// the largest index plus one.
func (v *Vocabulary) Width() int {
	return len(v.terms)
}

// Fixed reports whether the vocabulary was supplied by the caller.
func (v *Vocabulary) Fixed() bool {
	return v.fixed
}

// Index returns the column of term.
func (v *Vocabulary) Index(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Term returns the feature at column i.
func (v *Vocabulary) Term(i int) (string, bool) {
	if i < 0 || i >= len(v.terms) {
		return "", false
	}
	t := v.terms[i]
	if j, ok := v.index[t]; !ok || j != i {
		return "", false
	}
	return t, true
}

// Terms returns the features ordered by column. Gaps in a fixed vocabulary
// are skipped.
func (v *Vocabulary) Terms() []string {
	out := make([]string, 0, len(v.index))
	for i, t := range v.terms {
		if j, ok := v.index[t]; ok && j == i {
			out = append(out, t)
		}
	}
	return out
}

// Map returns a copy of the feature-to-column mapping.
func (v *Vocabulary) Map() map[string]int {
	m := make(map[string]int, len(v.index))
	for k, i := range v.index {
		m[k] = i
	}
	return m
}

// Select returns a new dense vocabulary holding only the given columns,
// re-indexed 0..len(cols)-1 in the order given. cols must be ascending
// for the result to stay sorted.
func (v *Vocabulary) Select(cols []int) *Vocabulary {
	terms := make([]string, 0, len(cols))
	for _, c := range cols {
		if t, ok := v.Term(c); ok {
			terms = append(terms, t)
		}
	}
	return newDense(terms, v.fixed)
}

// FromTerms builds a dense vocabulary where terms[i] is column i.
// Used when restoring a persisted model; duplicates are rejected.
func FromTerms(terms []string) (*Vocabulary, error) {
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if _, dup := seen[t]; dup {
			return nil, vecerrors.ConfigErrorf("duplicate vocabulary term %q", t)
		}
		seen[t] = struct{}{}
	}
	return newDense(append([]string(nil), terms...), false), nil
}

// FromMap builds a fixed vocabulary from a caller-supplied mapping.
// Indices are accepted as given; they must be non-negative and unique.
func FromMap(m map[string]int) (*Vocabulary, error) {
	width := 0
	owner := make(map[int]string, len(m))
	for t, i := range m {
		if i < 0 {
			return nil, vecerrors.ConfigErrorf("vocabulary index for %q is negative (%d)", t, i)
		}
		if prev, dup := owner[i]; dup {
			a, b := prev, t
			if b < a {
				a, b = b, a
			}
			return nil, vecerrors.ConfigErrorf("vocabulary terms %q and %q share index %d", a, b, i)
		}
		owner[i] = t
		if i+1 > width {
			width = i + 1
		}
	}

	terms := make([]string, width)
	index := make(map[string]int, len(m))
	for i, t := range owner {
		terms[i] = t
		index[t] = i
	}
	return &Vocabulary{index: index, terms: terms, fixed: true}, nil
}

// Empty returns a vocabulary with no features.
func Empty() *Vocabulary {
	return &Vocabulary{index: map[string]int{}, terms: []string{}}
}

// sortedVocabulary builds a dense vocabulary from a set of unique features.
func sortedVocabulary(set map[string]struct{}) *Vocabulary {
	terms := make([]string, 0, len(set))
	for t := range set {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return newDense(terms, false)
}

func newDense(terms []string, fixed bool) *Vocabulary {
	index := make(map[string]int, len(terms))
	for i, t := range terms {
		index[t] = i
	}
	return &Vocabulary{index: index, terms: terms, fixed: fixed}
}

// String implements fmt.Stringer for debugging.
func (v *Vocabulary) String() string {
	return fmt.Sprintf("Vocabulary{len=%d, width=%d, fixed=%t}", v.Len(), v.Width(), v.fixed)
}
