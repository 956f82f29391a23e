package fits

import (
	"fmt"
	"iter"
)

// Matrix2D is a row-major table with a fixed number of columns.
type Matrix2D[T any] struct {
	rows int
	cols int
	data []T
}

// NewMatrix2D returns a rows x cols matrix of zero values.
func NewMatrix2D[T any](rows, cols int) *Matrix2D[T] {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	return &Matrix2D[T]{rows: rows, cols: cols, data: make([]T, rows*cols)}
}

func (m *Matrix2D[T]) Rows() int { return m.rows }
func (m *Matrix2D[T]) Cols() int { return m.cols }

func (m *Matrix2D[T]) check(i, j int) error {
	if i < 0 || i >= m.rows {
		return fmt.Errorf("%w: row %d of %d", ErrOutOfRange, i, m.rows)
	}
	if j < 0 || j >= m.cols {
		return fmt.Errorf("%w: column %d of %d", ErrOutOfRange, j, m.cols)
	}
	return nil
}

// At returns the element in row i, column j.
func (m *Matrix2D[T]) At(i, j int) (T, error) {
	if err := m.check(i, j); err != nil {
		var zero T
		return zero, err
	}
	return m.data[i*m.cols+j], nil
}

// Set stores v in row i, column j.
func (m *Matrix2D[T]) Set(i, j int, v T) error {
	if err := m.check(i, j); err != nil {
		return err
	}
	m.data[i*m.cols+j] = v
	return nil
}

// Row returns a copy of row i.
func (m *Matrix2D[T]) Row(i int) ([]T, error) {
	if i < 0 || i >= m.rows {
		return nil, fmt.Errorf("%w: row %d of %d", ErrOutOfRange, i, m.rows)
	}
	out := make([]T, m.cols)
	copy(out, m.data[i*m.cols:(i+1)*m.cols])
	return out, nil
}

// Column returns a copy of column j.
func (m *Matrix2D[T]) Column(j int) ([]T, error) {
	if j < 0 || j >= m.cols {
		return nil, fmt.Errorf("%w: column %d of %d", ErrOutOfRange, j, m.cols)
	}
	out := make([]T, m.rows)
	for i := range out {
		out[i] = m.data[i*m.cols+j]
	}
	return out, nil
}

// AppendRow adds row to the end of the matrix. Its length must equal Cols.
func (m *Matrix2D[T]) AppendRow(row []T) error {
	if len(row) != m.cols {
		return fmt.Errorf("%w: row of %d values, matrix has %d columns", ErrShapeMismatch, len(row), m.cols)
	}
	m.data = append(m.data, row...)
	m.rows++
	return nil
}

// All yields each row index with a view of that row. The view must not be
// retained past the iteration step.
func (m *Matrix2D[T]) All() iter.Seq2[int, []T] {
	return func(yield func(int, []T) bool) {
		for i := 0; i < m.rows; i++ {
			if !yield(i, m.data[i*m.cols:(i+1)*m.cols:(i+1)*m.cols]) {
				return
			}
		}
	}
}
