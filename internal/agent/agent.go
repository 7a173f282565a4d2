// Package agent implements the inference agents: exact conjugate Bayesian
// updating for linear and nonlinear regression, and maximum-likelihood /
// maximum-a-posteriori point estimation.
package agent

import (
	"gonum.org/v1/gonum/mat"

	"doxa/internal/belief"
	"doxa/internal/env"
)

// Agent is anything the factory can construct.
type Agent interface {
	Name() string
}

// BayesianAgent maintains a belief over the generative coefficients and
// refines it in place with each observed batch.
type BayesianAgent interface {
	Agent
	Update(batch env.Batch) error
	// Posterior returns an independent snapshot of the current belief.
	Posterior() *belief.Gaussian
	// Exact reports whether the update rule is exact conjugacy (true) or a
	// local approximation (false).
	Exact() bool
	// Observations returns the total number of observations folded in.
	Observations() int
}

// PointAgent recomputes a point estimate from scratch on each call; it keeps
// no state between fits.
type PointAgent interface {
	Agent
	Fit(batch env.Batch) (PointEstimate, error)
}

// PointEstimate is a coefficient vector plus the objective value at the
// optimum (log-likelihood for MLE, unnormalized log-posterior for MAP),
// carried for diagnostics only.
type PointEstimate struct {
	Coefficients []float64
	Objective    float64
}

// residualSumSquares returns ||y - X*coeffs||^2 for a batch.
func residualSumSquares(batch env.Batch, coeffs []float64) float64 {
	pred := mat.NewVecDense(batch.N(), nil)
	pred.MulVec(batch.Design(), mat.NewVecDense(len(coeffs), coeffs))
	resid := mat.NewVecDense(batch.N(), nil)
	resid.SubVec(batch.Responses(), pred)
	return mat.Dot(resid, resid)
}
