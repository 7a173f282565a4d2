package agent

import (
	"math"

	"doxa/internal/belief"
	"doxa/internal/env"
)

// LinearMLE computes the ordinary least squares estimate. No prior is used;
// the fit is flat/uninformative by construction and fails on singular
// designs, since no regularization exists to fall back on.
type LinearMLE struct{}

// NewLinearMLE builds the agent. It takes no configuration.
func NewLinearMLE() *LinearMLE { return &LinearMLE{} }

func (*LinearMLE) Name() string { return "linear_mle_agent" }

// Fit solves X'X beta = X'y through the flat-prior belief, which routes the
// solve through a Cholesky factorization rather than a naive inverse. The
// objective is the Gaussian log-likelihood at the optimum with the noise
// variance profiled out (sigma^2 = RSS/n).
func (a *LinearMLE) Fit(batch env.Batch) (PointEstimate, error) {
	flat, err := belief.NewFlat(batch.Dim())
	if err != nil {
		return PointEstimate{}, err
	}
	// The noise scale cancels out of the flat-prior mean, so 1 is as good
	// as the true variance here.
	if err := flat.Condition(batch.Design(), batch.Responses(), 1); err != nil {
		return PointEstimate{}, err
	}
	coeffs, err := flat.Mean()
	if err != nil {
		return PointEstimate{}, err
	}

	n := float64(batch.N())
	rss := residualSumSquares(batch, coeffs)
	objective := math.Inf(1) // perfect interpolation
	if rss > 0 {
		sigma2 := rss / n
		objective = -0.5 * n * (math.Log(2*math.Pi*sigma2) + 1)
	}
	return PointEstimate{Coefficients: coeffs, Objective: objective}, nil
}
