package matrix

import (
	"fmt"
	"log/slog"
	"sort"

	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
)

// BoundKind says how a document-frequency bound is interpreted.
type BoundKind int

const (
	// BoundUnset means no bound.
	BoundUnset BoundKind = iota
	// BoundCount compares against the raw number of documents.
	BoundCount
	// BoundFraction compares against the fraction of documents.
	BoundFraction
)

// String returns the kind name used in config and error messages.
func (k BoundKind) String() string {
	switch k {
	case BoundCount:
		return "count"
	case BoundFraction:
		return "fraction"
	default:
		return "unset"
	}
}

// Bound is a min_df or max_df threshold: either an absolute document count
// or a fraction of the corpus. The zero value is unset.
type Bound struct {
	kind     BoundKind
	count    int
	fraction float64
}

// CountBound returns a bound on the absolute number of documents.
func CountBound(n int) Bound { return Bound{kind: BoundCount, count: n} }

// FractionBound returns a bound on the fraction of documents, in [0,1].
func FractionBound(f float64) Bound { return Bound{kind: BoundFraction, fraction: f} }

// Kind returns the bound's interpretation.
func (b Bound) Kind() BoundKind { return b.kind }

// IsSet reports whether the bound constrains anything.
func (b Bound) IsSet() bool { return b.kind != BoundUnset }

// Value returns the bound as a float64 (count or fraction).
func (b Bound) Value() float64 {
	if b.kind == BoundCount {
		return float64(b.count)
	}
	return b.fraction
}

// String implements fmt.Stringer.
func (b Bound) String() string {
	switch b.kind {
	case BoundCount:
		return fmt.Sprintf("%d", b.count)
	case BoundFraction:
		return fmt.Sprintf("%g", b.fraction)
	default:
		return "unset"
	}
}

// Validate checks the bound's range.
func (b Bound) Validate(name string) error {
	switch b.kind {
	case BoundCount:
		if b.count < 0 {
			return vecerrors.ConfigErrorf("%s must be a non-negative document count, got %d", name, b.count)
		}
	case BoundFraction:
		if b.fraction < 0 || b.fraction > 1 || b.fraction != b.fraction {
			return vecerrors.ConfigErrorf("%s must be a fraction in [0,1], got %g", name, b.fraction)
		}
	}
	return nil
}

// PruneOptions selects which features survive fitting.
type PruneOptions struct {
	MinDF       Bound
	MaxDF       Bound
	MaxFeatures int // 0 means no cap
	Binary      bool
}

// Validate checks ranges and that min_df and max_df are the same kind.
func (o PruneOptions) Validate() error {
	if err := o.MinDF.Validate("min_df"); err != nil {
		return err
	}
	if err := o.MaxDF.Validate("max_df"); err != nil {
		return err
	}
	if o.MinDF.IsSet() && o.MaxDF.IsSet() && o.MinDF.kind != o.MaxDF.kind {
		return vecerrors.ConfigErrorf("min_df (%s) and max_df (%s) must both be counts or both be fractions",
			o.MinDF.kind, o.MaxDF.kind)
	}
	if o.MaxFeatures < 0 {
		return vecerrors.ConfigErrorf("max_features must be non-negative, got %d", o.MaxFeatures)
	}
	return nil
}

// Fractional reports whether document frequencies are expressed as
// fractions (because the configured bounds are).
func (o PruneOptions) Fractional() bool {
	return o.MinDF.kind == BoundFraction || o.MaxDF.kind == BoundFraction
}

// PruneResult is the outcome of Prune.
type PruneResult struct {
	// Matrix is the pruned count matrix.
	Matrix *CountMatrix
	// DocFreq holds one entry per surviving column: a document count, or
	// the fraction of documents when the bounds are fractions.
	DocFreq []float64
	// Kept lists the surviving original column indices, ascending.
	Kept []int
}

// Prune applies binary coercion and feature selection to a fit-time count
// matrix:
//
//  1. If MaxFeatures is set, keep the MaxFeatures columns with the largest
//     total count; ties go to the lower original column.
//  2. Recompute document frequency on the reduced matrix.
//  3. Keep columns whose document frequency satisfies MinDF and MaxDF.
//  4. Select the kept columns, preserving relative order.
//
// Options are assumed valid. Empty matrices are handled without error.
func Prune(m *CountMatrix, opts PruneOptions) PruneResult {
	if opts.Binary {
		m = m.Binarize()
	}

	kept := make([]int, m.cols)
	for i := range kept {
		kept[i] = i
	}

	if opts.MaxFeatures > 0 && opts.MaxFeatures < m.cols {
		kept = topColumns(m.ColumnSums(), opts.MaxFeatures)
		m = m.SelectColumns(kept)
	}

	df := DocFreq(m, opts.Fractional())

	mask := make([]int, 0, m.cols)
	for c, v := range df {
		if satisfiesMin(v, opts.MinDF) && satisfiesMax(v, opts.MaxDF) {
			mask = append(mask, c)
		}
	}

	finalKept := make([]int, len(mask))
	finalDF := make([]float64, len(mask))
	for i, c := range mask {
		finalKept[i] = kept[c]
		finalDF[i] = df[c]
	}

	if len(mask) != m.cols {
		m = m.SelectColumns(mask)
	}

	slog.Debug("features_pruned",
		slog.Int("documents", m.rows),
		slog.Int("kept", len(finalKept)),
		slog.String("min_df", opts.MinDF.String()),
		slog.String("max_df", opts.MaxDF.String()),
		slog.Int("max_features", opts.MaxFeatures))

	return PruneResult{Matrix: m, DocFreq: finalDF, Kept: finalKept}
}

// DocFreq returns per-column document frequencies: counts, or fractions of
// the row count when fractional is true. An empty corpus yields zeros.
func DocFreq(m *CountMatrix, fractional bool) []float64 {
	counts := m.DocumentCounts()
	df := make([]float64, len(counts))
	for i, c := range counts {
		df[i] = float64(c)
		if fractional {
			if m.rows > 0 {
				df[i] /= float64(m.rows)
			} else {
				df[i] = 0
			}
		}
	}
	return df
}

// topColumns returns the n columns with the largest totals, ascending by
// column index. Ties keep the lower column.
func topColumns(totals []int, n int) []int {
	order := make([]int, len(totals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return totals[order[a]] > totals[order[b]]
	})
	top := order[:n]
	sort.Ints(top)
	return top
}

func satisfiesMin(df float64, b Bound) bool {
	if !b.IsSet() {
		return true
	}
	return df >= b.Value()
}

func satisfiesMax(df float64, b Bound) bool {
	if !b.IsSet() {
		return true
	}
	return df <= b.Value()
}
