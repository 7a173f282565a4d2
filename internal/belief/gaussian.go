// Package belief implements the Gaussian belief distribution shared by the
// exact and point-estimating agents.
//
// A belief is stored in natural form: precision matrix L and shift vector
// b = L*mu. The flat (uniform) prior is literally L = 0 and b = 0 -- zero
// information -- so no inverse of an unbounded covariance is ever formed.
// Conditioning on a batch is additive in natural form:
//
//	L' = L + (1/sigma^2) * X^T X
//	b' = b + (1/sigma^2) * X^T y
//
// Mean and covariance are recovered through a Cholesky factorization of L,
// which fails while L is singular (flat prior with too little data).
package belief

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"doxa/internal/model"
)

// Gaussian is a multivariate Gaussian belief over a coefficient vector.
type Gaussian struct {
	dim   int
	prec  *mat.SymDense
	shift *mat.VecDense
}

// New builds a proper Gaussian belief from a mean and a positive definite
// covariance given as rows. The covariance is inverted once, via Cholesky.
func New(mean []float64, covariance [][]float64) (*Gaussian, error) {
	d := len(mean)
	if d == 0 {
		return nil, fmt.Errorf("%w: prior mean is required", model.ErrConfiguration)
	}
	if len(covariance) != d {
		return nil, fmt.Errorf("%w: prior covariance must be %dx%d, got %d rows", model.ErrConfiguration, d, d, len(covariance))
	}
	sym := mat.NewSymDense(d, nil)
	for i, row := range covariance {
		if len(row) != d {
			return nil, fmt.Errorf("%w: prior covariance row %d has %d entries, want %d", model.ErrConfiguration, i, len(row), d)
		}
		for j := i; j < d; j++ {
			if covariance[i][j] != covariance[j][i] {
				return nil, fmt.Errorf("%w: prior covariance is not symmetric at (%d,%d)", model.ErrConfiguration, i, j)
			}
			sym.SetSym(i, j, row[j])
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		return nil, fmt.Errorf("%w: prior covariance is not positive definite", model.ErrConfiguration)
	}

	prec := mat.NewSymDense(d, nil)
	if err := chol.InverseTo(prec); err != nil {
		return nil, fmt.Errorf("%w: prior covariance inversion failed: %v", model.ErrConfiguration, err)
	}

	shift := mat.NewVecDense(d, nil)
	shift.MulVec(prec, mat.NewVecDense(d, mean))

	return &Gaussian{dim: d, prec: prec, shift: shift}, nil
}

// NewFlat builds the zero-information belief of dimension d. Its mean and
// covariance are undefined until enough data has been conditioned in.
func NewFlat(d int) (*Gaussian, error) {
	if d <= 0 {
		return nil, fmt.Errorf("%w: belief dimension must be >= 1, got %d", model.ErrConfiguration, d)
	}
	return &Gaussian{
		dim:   d,
		prec:  mat.NewSymDense(d, nil),
		shift: mat.NewVecDense(d, nil),
	}, nil
}

// Dim returns the coefficient dimension.
func (g *Gaussian) Dim() int { return g.dim }

// Condition folds a batch with design matrix x, responses y and noise
// variance sigma2 into the belief. Conjugacy makes this order-independent
// and incremental: conditioning on two halves equals conditioning on the
// concatenation.
func (g *Gaussian) Condition(x mat.Matrix, y mat.Vector, sigma2 float64) error {
	n, d := x.Dims()
	if d != g.dim {
		return fmt.Errorf("%w: batch feature dimension %d does not match belief dimension %d", model.ErrConfiguration, d, g.dim)
	}
	if y.Len() != n {
		return fmt.Errorf("%w: %d responses for %d feature rows", model.ErrConfiguration, y.Len(), n)
	}
	if sigma2 <= 0 {
		return fmt.Errorf("%w: noise variance must be > 0, got %g", model.ErrConfiguration, sigma2)
	}

	var inc mat.SymDense
	inc.SymOuterK(1/sigma2, x.T())
	g.prec.AddSym(g.prec, &inc)

	var xty mat.VecDense
	xty.MulVec(x.T(), y)
	g.shift.AddScaledVec(g.shift, 1/sigma2, &xty)
	return nil
}

// Mean solves L*mu = b for the belief mean. While the precision is singular
// the mean is undefined and the call fails with the singular-design error.
func (g *Gaussian) Mean() ([]float64, error) {
	var chol mat.Cholesky
	if !chol.Factorize(g.prec) {
		return nil, fmt.Errorf("%w: belief precision is not positive definite", model.ErrSingularDesign)
	}
	mean := mat.NewVecDense(g.dim, nil)
	if err := chol.SolveVecTo(mean, g.shift); err != nil {
		return nil, fmt.Errorf("%w: precision solve failed: %v", model.ErrSingularDesign, err)
	}
	out := make([]float64, g.dim)
	copy(out, mean.RawVector().Data)
	return out, nil
}

// Covariance inverts the precision through its Cholesky factorization and
// returns the result as rows. Same singularity contract as Mean.
func (g *Gaussian) Covariance() ([][]float64, error) {
	var chol mat.Cholesky
	if !chol.Factorize(g.prec) {
		return nil, fmt.Errorf("%w: belief precision is not positive definite", model.ErrSingularDesign)
	}
	cov := mat.NewSymDense(g.dim, nil)
	if err := chol.InverseTo(cov); err != nil {
		return nil, fmt.Errorf("%w: precision inversion failed: %v", model.ErrSingularDesign, err)
	}
	out := make([][]float64, g.dim)
	for i := range out {
		row := make([]float64, g.dim)
		for j := range row {
			row[j] = cov.At(i, j)
		}
		out[i] = row
	}
	return out, nil
}

// Informative reports whether the belief carries enough information for its
// mean and covariance to be defined.
func (g *Gaussian) Informative() bool {
	var chol mat.Cholesky
	return chol.Factorize(g.prec)
}

// QuadForm evaluates (v - mu0)^T L0 (v - mu0) against this belief's natural
// parameters, where mu0 is the belief mean implied by the shift. Used for
// log-posterior diagnostics. The belief itself is not modified.
func (g *Gaussian) QuadForm(v []float64) (float64, error) {
	if len(v) != g.dim {
		return 0, fmt.Errorf("%w: vector dimension %d does not match belief dimension %d", model.ErrConfiguration, len(v), g.dim)
	}
	mean, err := g.Mean()
	if err != nil {
		return 0, err
	}
	diff := mat.NewVecDense(g.dim, nil)
	diff.SubVec(mat.NewVecDense(g.dim, v), mat.NewVecDense(g.dim, mean))
	var tmp mat.VecDense
	tmp.MulVec(g.prec, diff)
	return mat.Dot(diff, &tmp), nil
}

// Clone returns an independent deep copy.
func (g *Gaussian) Clone() *Gaussian {
	prec := mat.NewSymDense(g.dim, nil)
	prec.CopySym(g.prec)
	return &Gaussian{
		dim:   g.dim,
		prec:  prec,
		shift: mat.VecDenseCopyOf(g.shift),
	}
}
