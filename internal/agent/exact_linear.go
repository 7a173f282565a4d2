package agent

import (
	"fmt"

	"doxa/internal/belief"
	"doxa/internal/env"
	"doxa/internal/model"
)

// LinearConfig configures an ExactLinear agent. With UniformPrior set the
// prior carries zero information (precision zero) and FeatureDimension is
// required; otherwise PriorMean and PriorCovariance fix the dimension.
type LinearConfig struct {
	FeatureDimension int
	NoiseVariance    float64
	PriorMean        []float64
	PriorCovariance  [][]float64
	UniformPrior     bool
}

// ExactLinear maintains the exact Gaussian posterior over linear-model
// coefficients by conjugate updating with known noise variance.
type ExactLinear struct {
	name   string
	sigma2 float64
	post   *belief.Gaussian
	seen   int
}

// NewExactLinear validates the configuration once and builds the prior.
func NewExactLinear(cfg LinearConfig) (*ExactLinear, error) {
	if cfg.NoiseVariance <= 0 {
		return nil, fmt.Errorf("%w: exact_linear requires noise variance > 0, got %g", model.ErrConfiguration, cfg.NoiseVariance)
	}

	var prior *belief.Gaussian
	var err error
	name := "exact_linear"
	if cfg.UniformPrior {
		name = "exact_linear_flat_prior"
		if cfg.FeatureDimension < 1 {
			return nil, fmt.Errorf("%w: exact_linear_flat_prior requires feature dimension >= 1", model.ErrConfiguration)
		}
		prior, err = belief.NewFlat(cfg.FeatureDimension)
	} else {
		if cfg.FeatureDimension != 0 && cfg.FeatureDimension != len(cfg.PriorMean) {
			return nil, fmt.Errorf("%w: feature dimension %d does not match prior mean dimension %d", model.ErrConfiguration, cfg.FeatureDimension, len(cfg.PriorMean))
		}
		prior, err = belief.New(cfg.PriorMean, cfg.PriorCovariance)
	}
	if err != nil {
		return nil, err
	}

	return &ExactLinear{name: name, sigma2: cfg.NoiseVariance, post: prior}, nil
}

func (a *ExactLinear) Name() string { return a.name }
func (a *ExactLinear) Exact() bool  { return true }

// Update folds a batch into the posterior in place. Conjugacy makes the
// result independent of how the data is split across calls.
func (a *ExactLinear) Update(batch env.Batch) error {
	if err := a.post.Condition(batch.Design(), batch.Responses(), a.sigma2); err != nil {
		return err
	}
	a.seen += batch.N()
	return nil
}

// Posterior returns an independent snapshot of the current belief. Under a
// flat prior its mean and covariance stay undefined until the accumulated
// design has full rank.
func (a *ExactLinear) Posterior() *belief.Gaussian { return a.post.Clone() }

func (a *ExactLinear) Observations() int { return a.seen }
