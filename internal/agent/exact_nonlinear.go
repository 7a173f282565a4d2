package agent

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"doxa/internal/belief"
	"doxa/internal/env"
	"doxa/internal/model"
)

// Linearized updates stop early once the relinearization point moves less
// than this, and are hard-capped to guarantee termination.
const (
	defaultMaxLinearizations = 8
	linearizationTolerance   = 1e-9
)

// NonlinearConfig configures an ExactNonlinear agent. PolynomialDegree is
// required for the polynomial form; FeatureDimension is required for the
// sigmoid form under a uniform prior.
type NonlinearConfig struct {
	Form              env.NonlinearForm
	PolynomialDegree  int
	FeatureDimension  int
	NoiseVariance     float64
	PriorMean         []float64
	PriorCovariance   [][]float64
	UniformPrior      bool
	MaxLinearizations int
}

// ExactNonlinear performs posterior inference for a nonlinear response model.
//
// The polynomial form is linear in its coefficients after basis expansion
// ([1, x, x^2, ...]), so the update delegates to the exact conjugate rule and
// matches ExactLinear on expanded features. The sigmoid form (y = tanh(x'b))
// admits no such transform; its update is an iterated local linearization
// around the posterior mean and is reported as approximate via Exact().
type ExactNonlinear struct {
	form   env.NonlinearForm
	degree int
	sigma2 float64
	maxLin int
	post   *belief.Gaussian
	seen   int
}

// NewExactNonlinear validates the configuration once and builds the prior.
func NewExactNonlinear(cfg NonlinearConfig) (*ExactNonlinear, error) {
	form, err := env.ParseNonlinearForm(string(cfg.Form))
	if err != nil {
		return nil, err
	}
	if cfg.NoiseVariance <= 0 {
		return nil, fmt.Errorf("%w: exact_nonlinear requires noise variance > 0, got %g", model.ErrConfiguration, cfg.NoiseVariance)
	}

	dim := 0
	switch form {
	case env.FormPolynomial:
		if cfg.PolynomialDegree < 1 {
			return nil, fmt.Errorf("%w: polynomial form requires degree >= 1, got %d", model.ErrConfiguration, cfg.PolynomialDegree)
		}
		dim = cfg.PolynomialDegree + 1
	case env.FormSigmoid:
		if cfg.UniformPrior {
			dim = cfg.FeatureDimension
		} else {
			dim = len(cfg.PriorMean)
		}
		if dim < 1 {
			return nil, fmt.Errorf("%w: sigmoid form requires a prior mean or feature dimension", model.ErrConfiguration)
		}
	}

	var prior *belief.Gaussian
	if cfg.UniformPrior {
		prior, err = belief.NewFlat(dim)
	} else {
		if len(cfg.PriorMean) != dim {
			return nil, fmt.Errorf("%w: prior mean dimension %d does not match coefficient dimension %d", model.ErrConfiguration, len(cfg.PriorMean), dim)
		}
		prior, err = belief.New(cfg.PriorMean, cfg.PriorCovariance)
	}
	if err != nil {
		return nil, err
	}

	maxLin := cfg.MaxLinearizations
	if maxLin <= 0 {
		maxLin = defaultMaxLinearizations
	}

	return &ExactNonlinear{
		form:   form,
		degree: cfg.PolynomialDegree,
		sigma2: cfg.NoiseVariance,
		maxLin: maxLin,
		post:   prior,
	}, nil
}

func (a *ExactNonlinear) Name() string { return "exact_nonlinear" }

// Exact reports true only for forms with a linearizing feature transform.
func (a *ExactNonlinear) Exact() bool { return a.form == env.FormPolynomial }

func (a *ExactNonlinear) Observations() int { return a.seen }

// Posterior returns an independent snapshot of the current belief.
func (a *ExactNonlinear) Posterior() *belief.Gaussian { return a.post.Clone() }

// Update folds a batch into the posterior in place.
func (a *ExactNonlinear) Update(batch env.Batch) error {
	var err error
	switch a.form {
	case env.FormPolynomial:
		err = a.updatePolynomial(batch)
	case env.FormSigmoid:
		err = a.updateSigmoid(batch)
	default:
		return fmt.Errorf("%w: %q", model.ErrUnsupportedModel, a.form)
	}
	if err != nil {
		return err
	}
	a.seen += batch.N()
	return nil
}

// ExpandPolynomial maps a scalar-feature batch into the polynomial basis
// [1, x, ..., x^degree], the transformed space in which the model is linear.
func ExpandPolynomial(batch env.Batch, degree int) (env.Batch, error) {
	if batch.Dim() != 1 {
		return env.Batch{}, fmt.Errorf("%w: polynomial form requires scalar features, got dimension %d", model.ErrConfiguration, batch.Dim())
	}
	features := make([][]float64, batch.N())
	for i := range features {
		x := batch.Row(i)[0]
		row := make([]float64, degree+1)
		row[0] = 1
		for j := 1; j <= degree; j++ {
			row[j] = row[j-1] * x
		}
		features[i] = row
	}
	responses := batch.Responses()
	return env.NewBatch(features, responses.RawVector().Data)
}

func (a *ExactNonlinear) updatePolynomial(batch env.Batch) error {
	expanded, err := ExpandPolynomial(batch, a.degree)
	if err != nil {
		return err
	}
	return a.post.Condition(expanded.Design(), expanded.Responses(), a.sigma2)
}

// updateSigmoid performs an iterated extended-Kalman-style update: linearize
// tanh(x'b) around the current mean, condition the pre-batch belief on the
// linearized pseudo-observations, and relinearize around the new mean until
// the point stops moving or the iteration cap is hit. Each iteration restarts
// from the pre-batch belief, so the batch is only counted once.
func (a *ExactNonlinear) updateSigmoid(batch env.Batch) error {
	if batch.Dim() != a.post.Dim() {
		return fmt.Errorf("%w: batch feature dimension %d does not match belief dimension %d", model.ErrConfiguration, batch.Dim(), a.post.Dim())
	}

	base := a.post.Clone()
	point := make([]float64, a.post.Dim())
	if base.Informative() {
		m, err := base.Mean()
		if err != nil {
			return err
		}
		point = m
	}

	var result *belief.Gaussian
	for iter := 0; iter < a.maxLin; iter++ {
		jac, pseudo := linearizeSigmoid(batch, point)
		cand := base.Clone()
		if err := cand.Condition(jac, pseudo, a.sigma2); err != nil {
			return err
		}
		result = cand
		if !cand.Informative() {
			break
		}
		next, err := cand.Mean()
		if err != nil {
			return err
		}
		moved := floats.Distance(point, next, 2)
		point = next
		if moved < linearizationTolerance {
			break
		}
	}

	a.post = result
	return nil
}

// linearizeSigmoid returns the Jacobian of tanh(X*b) at the given point and
// the matching pseudo-responses ytilde = y - tanh(X*point) + J*point.
func linearizeSigmoid(batch env.Batch, point []float64) (*mat.Dense, *mat.VecDense) {
	n, d := batch.N(), batch.Dim()
	jac := mat.NewDense(n, d, nil)
	pseudo := mat.NewVecDense(n, nil)
	y := batch.Responses()
	for i := 0; i < n; i++ {
		row := batch.Row(i)
		t := math.Tanh(floats.Dot(row, point))
		slope := 1 - t*t
		jrow := make([]float64, d)
		for j := range jrow {
			jrow[j] = slope * row[j]
		}
		jac.SetRow(i, jrow)
		pseudo.SetVec(i, y.AtVec(i)-t+floats.Dot(jrow, point))
	}
	return jac, pseudo
}
