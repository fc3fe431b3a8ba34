package linalg

import (
	"fmt"
	"sort"
)

// CSR is an immutable compressed-sparse-row matrix of non-negative integer
// counts. Row i holds columns indices[indptr[i]:indptr[i+1]] in ascending
// order.
type CSR struct {
	rows    int
	cols    int
	indptr  []int
	indices []int
	data    []int
}

// Builder accumulates counts before freezing them into a CSR.
type Builder struct {
	rows    int
	cols    int
	entries []map[int]int
}

// NewBuilder returns a Builder for a rows x cols matrix.
func NewBuilder(rows, cols int) *Builder {
	return &Builder{
		rows:    rows,
		cols:    cols,
		entries: make([]map[int]int, rows),
	}
}

// Add increments entry (i, j) by v.
func (b *Builder) Add(i, j, v int) {
	if i < 0 || i >= b.rows || j < 0 || j >= b.cols {
		panic(fmt.Sprintf("linalg: index (%d, %d) out of range for %dx%d matrix", i, j, b.rows, b.cols))
	}
	if b.entries[i] == nil {
		b.entries[i] = make(map[int]int)
	}
	b.entries[i][j] += v
}

// Build freezes the accumulated counts. Entries summing to zero are dropped.
func (b *Builder) Build() *CSR {
	m := &CSR{
		rows:   b.rows,
		cols:   b.cols,
		indptr: make([]int, b.rows+1),
	}
	for i, row := range b.entries {
		cols := make([]int, 0, len(row))
		for j, v := range row {
			if v != 0 {
				cols = append(cols, j)
			}
		}
		sort.Ints(cols)
		for _, j := range cols {
			m.indices = append(m.indices, j)
			m.data = append(m.data, row[j])
		}
		m.indptr[i+1] = len(m.indices)
	}
	return m
}

// Dims returns the number of rows and columns.
func (m *CSR) Dims() (rows, cols int) {
	return m.rows, m.cols
}

// NNZ returns the number of stored non-zero entries.
func (m *CSR) NNZ() int {
	return len(m.data)
}

// At returns entry (i, j).
func (m *CSR) At(i, j int) int {
	m.checkRow(i)
	lo, hi := m.indptr[i], m.indptr[i+1]
	k := lo + sort.SearchInts(m.indices[lo:hi], j)
	if k < hi && m.indices[k] == j {
		return m.data[k]
	}
	return 0
}

// RowNNZ returns the number of non-zero entries in row i.
func (m *CSR) RowNNZ(i int) int {
	m.checkRow(i)
	return m.indptr[i+1] - m.indptr[i]
}

// MulVec returns M·v. v must have one entry per column.
func (m *CSR) MulVec(v []float64) []float64 {
	if len(v) != m.cols {
		panic(fmt.Sprintf("linalg: MulVec length %d, want %d", len(v), m.cols))
	}
	out := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		var acc float64
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			acc += float64(m.data[k]) * v[m.indices[k]]
		}
		out[i] = acc
	}
	return out
}

// MulVecT returns Mᵀ·v. v must have one entry per row.
func (m *CSR) MulVecT(v []float64) []float64 {
	if len(v) != m.rows {
		panic(fmt.Sprintf("linalg: MulVecT length %d, want %d", len(v), m.rows))
	}
	out := make([]float64, m.cols)
	for i := 0; i < m.rows; i++ {
		if v[i] == 0 {
			continue
		}
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			out[m.indices[k]] += float64(m.data[k]) * v[i]
		}
	}
	return out
}

func (m *CSR) checkRow(i int) {
	if i < 0 || i >= m.rows {
		panic(fmt.Sprintf("linalg: row %d out of range [0, %d)", i, m.rows))
	}
}

// DiagMulVec computes diag(left)·M·diag(right)·v, i.e.
// left ⊙ (M · (right ⊙ v)).
func DiagMulVec(left []float64, m *CSR, right, v []float64) []float64 {
	out := m.MulVec(Hadamard(right, v))
	HadamardInPlace(out, left)
	return out
}

// DiagMulVecT computes diag(left)·Mᵀ·diag(right)·v.
func DiagMulVecT(left []float64, m *CSR, right, v []float64) []float64 {
	out := m.MulVecT(Hadamard(right, v))
	HadamardInPlace(out, left)
	return out
}
