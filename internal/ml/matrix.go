// Package ml holds the numeric containers shared by the dataset and the
// classifiers.
package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a row-major sample matrix: one row per sample, one column per
// feature. Unlike mat.Dense it may have zero rows, which is how an empty
// train or test partition is represented.
type Matrix struct {
	Data []float64
	Rows int
	Cols int
}

// NewMatrix returns a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) Matrix {
	return Matrix{
		Data: make([]float64, rows*cols),
		Rows: rows,
		Cols: cols,
	}
}

// FromRows stacks equally sized rows. cols is used when rows is empty.
func FromRows(rows [][]float64, cols int) (Matrix, error) {
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	m := Matrix{Data: make([]float64, 0, len(rows)*cols), Cols: cols}
	for i, r := range rows {
		if len(r) != cols {
			return Matrix{}, fmt.Errorf("row %d has %d columns, want %d", i, len(r), cols)
		}
		m.Data = append(m.Data, r...)
		m.Rows++
	}
	return m, nil
}

// Empty reports whether the matrix has no rows.
func (m Matrix) Empty() bool { return m.Rows == 0 }

// Row returns row i as a slice sharing the matrix storage.
func (m Matrix) Row(i int) []float64 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// At returns element (i, j).
func (m Matrix) At(i, j int) float64 {
	return m.Data[i*m.Cols+j]
}

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	return Matrix{Data: append([]float64(nil), m.Data...), Rows: m.Rows, Cols: m.Cols}
}

// Select returns a new matrix made of the listed rows, in order.
func (m Matrix) Select(rows []int) Matrix {
	out := Matrix{Data: make([]float64, 0, len(rows)*m.Cols), Rows: len(rows), Cols: m.Cols}
	for _, i := range rows {
		out.Data = append(out.Data, m.Row(i)...)
	}
	return out
}

// Concat returns the rows of m followed by the rows of o. An empty operand
// adopts the width of the other.
func Concat(m, o Matrix) (Matrix, error) {
	switch {
	case m.Empty() && o.Empty():
		return Matrix{Cols: max(m.Cols, o.Cols)}, nil
	case m.Empty():
		return o.Clone(), nil
	case o.Empty():
		return m.Clone(), nil
	case m.Cols != o.Cols:
		return Matrix{}, fmt.Errorf("cannot concat %d and %d columns", m.Cols, o.Cols)
	}
	data := make([]float64, 0, len(m.Data)+len(o.Data))
	data = append(data, m.Data...)
	data = append(data, o.Data...)
	return Matrix{Data: data, Rows: m.Rows + o.Rows, Cols: m.Cols}, nil
}

// AppendRows appends the rows of o in place. A zero-width empty matrix takes
// the width of o.
func (m *Matrix) AppendRows(o Matrix) error {
	if o.Empty() {
		return nil
	}
	if m.Empty() && m.Cols == 0 {
		m.Cols = o.Cols
	}
	if m.Cols != o.Cols {
		return fmt.Errorf("cannot append %d columns to %d", o.Cols, m.Cols)
	}
	m.Data = append(m.Data, o.Data...)
	m.Rows += o.Rows
	return nil
}

// Dense returns a gonum view over the same storage, or nil when empty.
func (m Matrix) Dense() *mat.Dense {
	if m.Empty() || m.Cols == 0 {
		return nil
	}
	return mat.NewDense(m.Rows, m.Cols, m.Data)
}

// FromDense copies a gonum matrix.
func FromDense(d mat.Matrix) Matrix {
	r, c := d.Dims()
	m := NewMatrix(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Data[i*c+j] = d.At(i, j)
		}
	}
	return m
}

// ConcatLabels returns a new slice holding a followed by b.
func ConcatLabels(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// OneHot encodes labels as rows of width classCount with a single 1.
func OneHot(labels []int, classCount int) Matrix {
	m := NewMatrix(len(labels), classCount)
	for i, l := range labels {
		m.Data[i*classCount+l] = 1
	}
	return m
}

// CheckLabels verifies every label is a valid index below classCount.
func CheckLabels(labels []int, classCount int) error {
	for i, l := range labels {
		if l < 0 || l >= classCount {
			return fmt.Errorf("label %d at row %d out of range [0,%d)", l, i, classCount)
		}
	}
	return nil
}
