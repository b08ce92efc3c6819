package fd

import (
	"fmt"
	"math"
)

// Jacobian holds the partial derivatives of each response (row) with respect
// to each design variable (column), plus per-column failure status. Entries
// of failed columns are NaN.
type Jacobian struct {
	Rows []string
	Cols []string

	data    [][]float64
	colErrs []error
}

func newJacobian(rows, cols []string) *Jacobian {
	j := &Jacobian{
		Rows:    append([]string(nil), rows...),
		Cols:    append([]string(nil), cols...),
		data:    make([][]float64, len(rows)),
		colErrs: make([]error, len(cols)),
	}
	for i := range j.data {
		j.data[i] = make([]float64, len(cols))
		for k := range j.data[i] {
			j.data[i][k] = math.NaN()
		}
	}
	return j
}

func (j *Jacobian) At(row, col int) float64 { return j.data[row][col] }

// Row returns a copy of one response's gradient.
func (j *Jacobian) Row(row int) []float64 {
	return append([]float64(nil), j.data[row]...)
}

// Col returns a copy of one design variable's column.
func (j *Jacobian) Col(col int) []float64 {
	out := make([]float64, len(j.Rows))
	for i := range j.Rows {
		out[i] = j.data[i][col]
	}
	return out
}

// Valid reports whether the column's perturbed evaluations succeeded.
func (j *Jacobian) Valid(col int) bool { return j.colErrs[col] == nil }

// ColErr returns the failure that invalidated a column, or nil.
func (j *Jacobian) ColErr(col int) error { return j.colErrs[col] }

func (j *Jacobian) setCol(col int, vals []float64) {
	for i, v := range vals {
		j.data[i][col] = v
	}
}

// RowByName returns the gradient of the named response.
func (j *Jacobian) RowByName(name string) ([]float64, error) {
	for i, r := range j.Rows {
		if r == name {
			return j.Row(i), nil
		}
	}
	return nil, fmt.Errorf("fd: unknown response %q", name)
}
