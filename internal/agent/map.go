package agent

import (
	"fmt"

	"doxa/internal/belief"
	"doxa/internal/env"
	"doxa/internal/model"
)

// MAPConfig configures a LinearMAP agent. All fields are required; a proper
// (positive definite) prior is what distinguishes MAP from MLE.
type MAPConfig struct {
	PriorMean       []float64
	PriorCovariance [][]float64
	NoiseVariance   float64
}

// LinearMAP computes the maximum-a-posteriori estimate: regularized least
// squares equal to the mean of the corresponding exact conjugate posterior.
// With a positive definite prior the solve can never go singular, whatever
// the batch looks like.
type LinearMAP struct {
	prior  *belief.Gaussian
	sigma2 float64
}

// NewLinearMAP validates the configuration once and keeps the prior pristine
// across fits.
func NewLinearMAP(cfg MAPConfig) (*LinearMAP, error) {
	if cfg.NoiseVariance <= 0 {
		return nil, fmt.Errorf("%w: linear_map_agent requires noise variance > 0, got %g", model.ErrConfiguration, cfg.NoiseVariance)
	}
	prior, err := belief.New(cfg.PriorMean, cfg.PriorCovariance)
	if err != nil {
		return nil, err
	}
	return &LinearMAP{prior: prior, sigma2: cfg.NoiseVariance}, nil
}

func (*LinearMAP) Name() string { return "linear_map_agent" }

// Fit recomputes the MAP estimate from scratch: condition a copy of the
// prior on the batch and read off the posterior mean. The objective is the
// unnormalized log-posterior at the optimum.
func (a *LinearMAP) Fit(batch env.Batch) (PointEstimate, error) {
	post := a.prior.Clone()
	if err := post.Condition(batch.Design(), batch.Responses(), a.sigma2); err != nil {
		return PointEstimate{}, err
	}
	coeffs, err := post.Mean()
	if err != nil {
		return PointEstimate{}, err
	}

	rss := residualSumSquares(batch, coeffs)
	quad, err := a.prior.QuadForm(coeffs)
	if err != nil {
		return PointEstimate{}, err
	}
	objective := -rss/(2*a.sigma2) - 0.5*quad
	return PointEstimate{Coefficients: coeffs, Objective: objective}, nil
}
