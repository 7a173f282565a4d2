// Package env implements observation-generating environments. An environment
// owns a fixed generative model and emits i.i.d. observation batches; it never
// exposes its true parameters through the data path.
package env

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"doxa/internal/model"
)

// Environment produces observation batches from a fixed generative process.
type Environment interface {
	Name() string
	FeatureDim() int
	Generate(n int) (Batch, error)
}

// GroundTruth optionally exposes the generative parameters for reporting.
// Agents never receive this; only the lab's diagnostics consult it.
type GroundTruth interface {
	TrueCoefficients() []float64
	NoiseVariance() float64
}

// Batch is an immutable set of (feature vector, response) pairs. Accessors
// hand out copies, so a batch can be shared read-only across agents.
type Batch struct {
	n, d int
	x    []float64 // row-major, n*d
	y    []float64
}

// NewBatch builds a batch from feature rows and responses.
func NewBatch(features [][]float64, responses []float64) (Batch, error) {
	n := len(features)
	if n == 0 {
		return Batch{}, fmt.Errorf("%w: batch requires at least one observation", model.ErrConfiguration)
	}
	if len(responses) != n {
		return Batch{}, fmt.Errorf("%w: %d responses for %d feature rows", model.ErrConfiguration, len(responses), n)
	}
	d := len(features[0])
	if d == 0 {
		return Batch{}, fmt.Errorf("%w: feature vectors must be non-empty", model.ErrConfiguration)
	}
	x := make([]float64, 0, n*d)
	for i, row := range features {
		if len(row) != d {
			return Batch{}, fmt.Errorf("%w: feature row %d has dimension %d, want %d", model.ErrConfiguration, i, len(row), d)
		}
		x = append(x, row...)
	}
	y := make([]float64, n)
	copy(y, responses)
	return Batch{n: n, d: d, x: x, y: y}, nil
}

// N returns the number of observations.
func (b Batch) N() int { return b.n }

// Dim returns the feature dimension.
func (b Batch) Dim() int { return b.d }

// Design returns a fresh copy of the design matrix (rows = feature vectors).
func (b Batch) Design() *mat.Dense {
	data := make([]float64, len(b.x))
	copy(data, b.x)
	return mat.NewDense(b.n, b.d, data)
}

// Responses returns a fresh copy of the response vector.
func (b Batch) Responses() *mat.VecDense {
	data := make([]float64, len(b.y))
	copy(data, b.y)
	return mat.NewVecDense(b.n, data)
}

// Row returns a copy of the i-th feature vector.
func (b Batch) Row(i int) []float64 {
	row := make([]float64, b.d)
	copy(row, b.x[i*b.d:(i+1)*b.d])
	return row
}

// Merge concatenates batches of equal feature dimension into one.
func Merge(batches ...Batch) (Batch, error) {
	if len(batches) == 0 {
		return Batch{}, fmt.Errorf("%w: merge requires at least one batch", model.ErrConfiguration)
	}
	out := Batch{d: batches[0].d}
	for _, b := range batches {
		if b.d != out.d {
			return Batch{}, fmt.Errorf("%w: cannot merge batches of dimension %d and %d", model.ErrConfiguration, out.d, b.d)
		}
		out.n += b.n
		out.x = append(out.x, b.x...)
		out.y = append(out.y, b.y...)
	}
	return out, nil
}
