package env

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"doxa/internal/model"
)

// LinearConfig configures a StaticLinear environment.
type LinearConfig struct {
	TrueCoefficients []float64
	NoiseVariance    float64
	Seed             int64
}

// StaticLinear generates observations y = x'beta + eps with standard-normal
// features and Gaussian noise. Parameters are fixed for the environment's
// lifetime.
type StaticLinear struct {
	beta    []float64
	sigma2  float64
	feature distuv.Normal
	noise   distuv.Normal
}

// NewStaticLinear validates the configuration and fixes the generative model.
func NewStaticLinear(cfg LinearConfig) (*StaticLinear, error) {
	if len(cfg.TrueCoefficients) == 0 {
		return nil, fmt.Errorf("%w: static_linear requires true coefficients", model.ErrConfiguration)
	}
	if cfg.NoiseVariance <= 0 {
		return nil, fmt.Errorf("%w: static_linear requires noise variance > 0, got %g", model.ErrConfiguration, cfg.NoiseVariance)
	}
	beta := make([]float64, len(cfg.TrueCoefficients))
	copy(beta, cfg.TrueCoefficients)
	src := rand.NewSource(uint64(cfg.Seed))
	return &StaticLinear{
		beta:    beta,
		sigma2:  cfg.NoiseVariance,
		feature: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		noise:   distuv.Normal{Mu: 0, Sigma: math.Sqrt(cfg.NoiseVariance), Src: src},
	}, nil
}

func (e *StaticLinear) Name() string    { return "static_linear" }
func (e *StaticLinear) FeatureDim() int { return len(e.beta) }

// Generate draws n i.i.d. observations.
func (e *StaticLinear) Generate(n int) (Batch, error) {
	if n < 1 {
		return Batch{}, fmt.Errorf("%w: batch size must be >= 1, got %d", model.ErrConfiguration, n)
	}
	d := len(e.beta)
	features := make([][]float64, n)
	responses := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, d)
		for j := range row {
			row[j] = e.feature.Rand()
		}
		features[i] = row
		responses[i] = floats.Dot(row, e.beta) + e.noise.Rand()
	}
	return NewBatch(features, responses)
}

// TrueCoefficients returns a copy of the generative coefficients.
func (e *StaticLinear) TrueCoefficients() []float64 {
	out := make([]float64, len(e.beta))
	copy(out, e.beta)
	return out
}

func (e *StaticLinear) NoiseVariance() float64 { return e.sigma2 }
