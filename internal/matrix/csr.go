// Package matrix holds the document-by-feature count matrix and the
// document-frequency pruning applied to it at fit time.
package matrix

import "sort"

// CountMatrix is a compressed-sparse-row matrix of feature occurrence
// counts. Row r holds document r in corpus order; within a row, column
// indices are strictly ascending and every stored value is positive.
//
// A CountMatrix is immutable once built; all transformations return a copy.
type CountMatrix struct {
	rows    int
	cols    int
	indptr  []int // len rows+1; row r spans [indptr[r], indptr[r+1])
	indices []int
	data    []int
}

// Rows returns the number of documents.
func (m *CountMatrix) Rows() int { return m.rows }

// Cols returns the number of feature columns.
func (m *CountMatrix) Cols() int { return m.cols }

// NNZ returns the number of stored (non-zero) entries.
func (m *CountMatrix) NNZ() int { return len(m.data) }

// Row returns the column indices and counts of row r. The returned slices
// alias the matrix and must not be modified.
func (m *CountMatrix) Row(r int) (cols []int, counts []int) {
	lo, hi := m.indptr[r], m.indptr[r+1]
	return m.indices[lo:hi], m.data[lo:hi]
}

// At returns the count at (r, c).
func (m *CountMatrix) At(r, c int) int {
	cols, counts := m.Row(r)
	i := sort.SearchInts(cols, c)
	if i < len(cols) && cols[i] == c {
		return counts[i]
	}
	return 0
}

// RowSum returns the total count of row r.
func (m *CountMatrix) RowSum(r int) int {
	_, counts := m.Row(r)
	sum := 0
	for _, v := range counts {
		sum += v
	}
	return sum
}

// RowSums returns the total count of every row.
func (m *CountMatrix) RowSums() []int {
	sums := make([]int, m.rows)
	for r := range sums {
		sums[r] = m.RowSum(r)
	}
	return sums
}

// ColumnSums returns the total count of every column across all rows.
func (m *CountMatrix) ColumnSums() []int {
	sums := make([]int, m.cols)
	for i, c := range m.indices {
		sums[c] += m.data[i]
	}
	return sums
}

// DocumentCounts returns, per column, the number of rows with a non-zero
// entry.
func (m *CountMatrix) DocumentCounts() []int {
	df := make([]int, m.cols)
	for _, c := range m.indices {
		df[c]++
	}
	return df
}

// Binarize returns a copy with every stored count replaced by 1.
func (m *CountMatrix) Binarize() *CountMatrix {
	data := make([]int, len(m.data))
	for i := range data {
		data[i] = 1
	}
	return &CountMatrix{
		rows:    m.rows,
		cols:    m.cols,
		indptr:  m.indptr,
		indices: m.indices,
		data:    data,
	}
}

// SelectColumns returns a matrix with only the given columns, renumbered
// 0..len(keep)-1 in the order given. keep must be ascending.
func (m *CountMatrix) SelectColumns(keep []int) *CountMatrix {
	remap := make([]int, m.cols)
	for i := range remap {
		remap[i] = -1
	}
	for newCol, oldCol := range keep {
		remap[oldCol] = newCol
	}

	out := &CountMatrix{
		rows:    m.rows,
		cols:    len(keep),
		indptr:  make([]int, m.rows+1),
		indices: make([]int, 0, len(m.indices)),
		data:    make([]int, 0, len(m.data)),
	}
	for r := 0; r < m.rows; r++ {
		cols, counts := m.Row(r)
		for i, c := range cols {
			if nc := remap[c]; nc >= 0 {
				out.indices = append(out.indices, nc)
				out.data = append(out.data, counts[i])
			}
		}
		out.indptr[r+1] = len(out.indices)
	}
	return out
}

// Dense expands the matrix into a rows×cols slice. Intended for tests and
// small corpora.
func (m *CountMatrix) Dense() [][]int {
	out := make([][]int, m.rows)
	for r := range out {
		out[r] = make([]int, m.cols)
		cols, counts := m.Row(r)
		for i, c := range cols {
			out[r][c] = counts[i]
		}
	}
	return out
}

// sparseRow is one document's counts, sorted by column.
type sparseRow struct {
	cols   []int
	counts []int
}

// fromRows assembles a CountMatrix from per-document rows.
func fromRows(rows []sparseRow, cols int) *CountMatrix {
	nnz := 0
	for _, r := range rows {
		nnz += len(r.cols)
	}
	m := &CountMatrix{
		rows:    len(rows),
		cols:    cols,
		indptr:  make([]int, len(rows)+1),
		indices: make([]int, 0, nnz),
		data:    make([]int, 0, nnz),
	}
	for i, r := range rows {
		m.indices = append(m.indices, r.cols...)
		m.data = append(m.data, r.counts...)
		m.indptr[i+1] = len(m.indices)
	}
	return m
}

// FromDense builds a CountMatrix from a dense rows×cols slice.
// Negative entries are treated as zero.
func FromDense(dense [][]int, cols int) *CountMatrix {
	rows := make([]sparseRow, len(dense))
	for r, row := range dense {
		for c, v := range row {
			if v > 0 && c < cols {
				rows[r].cols = append(rows[r].cols, c)
				rows[r].counts = append(rows[r].counts, v)
			}
		}
	}
	return fromRows(rows, cols)
}
