package env

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"doxa/internal/model"
)

// NonlinearForm names a supported nonlinear response family.
type NonlinearForm string

const (
	// FormPolynomial is y = sum_j beta_j * x^j for scalar x. Linear in the
	// coefficients after basis expansion, so exact inference applies.
	FormPolynomial NonlinearForm = "polynomial"

	// FormSigmoid is y = tanh(x'beta). Not linear in the coefficients under
	// any feature transform; agents handle it by local linearization.
	FormSigmoid NonlinearForm = "sigmoid"
)

// ParseNonlinearForm maps a configured name onto a supported form.
func ParseNonlinearForm(name string) (NonlinearForm, error) {
	switch NonlinearForm(name) {
	case FormPolynomial:
		return FormPolynomial, nil
	case FormSigmoid:
		return FormSigmoid, nil
	default:
		return "", fmt.Errorf("%w: %q", model.ErrUnsupportedModel, name)
	}
}

// NonlinearConfig configures a StaticNonlinear environment.
type NonlinearConfig struct {
	Form             NonlinearForm
	TrueCoefficients []float64
	NoiseVariance    float64
	Seed             int64
}

// StaticNonlinear generates observations y = g(x; beta) + eps for a fixed
// nonlinear map g. Polynomial environments emit scalar features drawn
// uniformly from [-1, 1]; sigmoid environments emit standard-normal feature
// vectors of the coefficient dimension.
type StaticNonlinear struct {
	form   NonlinearForm
	beta   []float64
	sigma2 float64
	dim    int

	uniform distuv.Uniform
	normal  distuv.Normal
	noise   distuv.Normal
}

// NewStaticNonlinear validates the configuration and fixes the generative model.
func NewStaticNonlinear(cfg NonlinearConfig) (*StaticNonlinear, error) {
	form, err := ParseNonlinearForm(string(cfg.Form))
	if err != nil {
		return nil, err
	}
	if len(cfg.TrueCoefficients) == 0 {
		return nil, fmt.Errorf("%w: static_nonlinear requires true coefficients", model.ErrConfiguration)
	}
	if cfg.NoiseVariance <= 0 {
		return nil, fmt.Errorf("%w: static_nonlinear requires noise variance > 0, got %g", model.ErrConfiguration, cfg.NoiseVariance)
	}

	beta := make([]float64, len(cfg.TrueCoefficients))
	copy(beta, cfg.TrueCoefficients)
	dim := 1
	if form == FormSigmoid {
		dim = len(beta)
	}

	src := rand.NewSource(uint64(cfg.Seed))
	return &StaticNonlinear{
		form:    form,
		beta:    beta,
		sigma2:  cfg.NoiseVariance,
		dim:     dim,
		uniform: distuv.Uniform{Min: -1, Max: 1, Src: src},
		normal:  distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		noise:   distuv.Normal{Mu: 0, Sigma: math.Sqrt(cfg.NoiseVariance), Src: src},
	}, nil
}

func (e *StaticNonlinear) Name() string { return "static_nonlinear" }

func (e *StaticNonlinear) FeatureDim() int { return e.dim }

func (e *StaticNonlinear) Form() NonlinearForm { return e.form }

func (e *StaticNonlinear) NoiseVariance() float64 { return e.sigma2 }

// TrueCoefficients returns a copy of the generative coefficients.
func (e *StaticNonlinear) TrueCoefficients() []float64 {
	out := make([]float64, len(e.beta))
	copy(out, e.beta)
	return out
}

// Generate draws n i.i.d. observations.
func (e *StaticNonlinear) Generate(n int) (Batch, error) {
	if n < 1 {
		return Batch{}, fmt.Errorf("%w: batch size must be >= 1, got %d", model.ErrConfiguration, n)
	}
	features := make([][]float64, n)
	responses := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, e.dim)
		switch e.form {
		case FormPolynomial:
			row[0] = e.uniform.Rand()
			responses[i] = polyval(e.beta, row[0]) + e.noise.Rand()
		case FormSigmoid:
			for j := range row {
				row[j] = e.normal.Rand()
			}
			responses[i] = math.Tanh(floats.Dot(row, e.beta)) + e.noise.Rand()
		}
		features[i] = row
	}
	return NewBatch(features, responses)
}

// polyval evaluates sum_j c_j * x^j by Horner's rule.
func polyval(c []float64, x float64) float64 {
	v := 0.0
	for j := len(c) - 1; j >= 0; j-- {
		v = v*x + c[j]
	}
	return v
}
