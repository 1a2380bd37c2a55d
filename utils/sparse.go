package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// DOK accumulates a sparse operator one entry at a time. It becomes read only
// after conversion to CSR.
type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

func (m *DOK) SetReadOnly(name ...string) {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
}

// Add accumulates val into entry (i,j)
func (m DOK) Add(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:    m.M.ToCSR(),
		name: m.name,
	}
}

type CSR struct {
	M    *sparse.CSR
	name string
}

func (m CSR) Dims() (r, c int)    { return m.M.Dims() }
func (m CSR) At(i, j int) float64 { return m.M.At(i, j) }
func (m CSR) NNZ() int            { return m.M.NNZ() }

// Apply returns the product of the operator with x
func (m CSR) Apply(x []float64) (y []float64, err error) {
	var (
		nr, nc = m.Dims()
	)
	if len(x) != nc {
		err = fmt.Errorf("dimension mismatch applying %q: operator has %d columns, vector has %d",
			m.name, nc, len(x))
		return
	}
	y = make([]float64, nr)
	m.M.MulVecTo(y, false, x)
	return
}

// RowSums is used to verify partition of unity of interpolation operators
func (m CSR) RowSums() (sums []float64) {
	var (
		nr, _ = m.Dims()
	)
	sums = make([]float64, nr)
	m.M.DoNonZero(func(i, j int, v float64) {
		sums[i] += v
	})
	return
}
