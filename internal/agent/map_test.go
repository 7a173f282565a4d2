package agent

import (
	"errors"
	"math"
	"testing"

	"doxa/internal/env"
	"doxa/internal/model"
)

func TestNewLinearMAPValidatesConfig(t *testing.T) {
	if _, err := NewLinearMAP(MAPConfig{PriorMean: []float64{0}, PriorCovariance: isotropicCov(1, 1)}); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing noise variance, got %v", err)
	}
	if _, err := NewLinearMAP(MAPConfig{NoiseVariance: 1, PriorMean: []float64{0, 0}, PriorCovariance: [][]float64{{1, 0}, {0, -1}}}); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error for indefinite prior, got %v", err)
	}
}

func TestLinearMAPEqualsExactPosteriorMean(t *testing.T) {
	e, err := env.NewStaticLinear(env.LinearConfig{
		TrueCoefficients: []float64{2, -1},
		NoiseVariance:    0.01,
		Seed:             13,
	})
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	batch, err := e.Generate(100)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	prior := MAPConfig{
		PriorMean:       []float64{0, 0},
		PriorCovariance: isotropicCov(2, 100),
		NoiseVariance:   0.01,
	}
	mapAgent, err := NewLinearMAP(prior)
	if err != nil {
		t.Fatalf("new map agent: %v", err)
	}
	est, err := mapAgent.Fit(batch)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	exact, err := NewExactLinear(LinearConfig{
		NoiseVariance:   0.01,
		PriorMean:       prior.PriorMean,
		PriorCovariance: prior.PriorCovariance,
	})
	if err != nil {
		t.Fatalf("new exact agent: %v", err)
	}
	if err := exact.Update(batch); err != nil {
		t.Fatalf("update: %v", err)
	}
	mean, err := exact.Posterior().Mean()
	if err != nil {
		t.Fatalf("mean: %v", err)
	}

	for i := range mean {
		if math.Abs(est.Coefficients[i]-mean[i]) > 1e-9 {
			t.Fatalf("coefficient %d: map %g vs posterior mean %g", i, est.Coefficients[i], mean[i])
		}
	}
	if math.IsInf(est.Objective, 0) || math.IsNaN(est.Objective) {
		t.Fatalf("objective = %f, want finite", est.Objective)
	}
}

func TestLinearMAPHandlesUnderdeterminedBatch(t *testing.T) {
	// One observation, two unknowns. MLE fails here; the proper prior keeps
	// the MAP solve nonsingular.
	batch, err := env.NewBatch([][]float64{{1, 2}}, []float64{1})
	if err != nil {
		t.Fatalf("new batch: %v", err)
	}

	if _, err := NewLinearMLE().Fit(batch); !errors.Is(err, model.ErrSingularDesign) {
		t.Fatalf("expected singular design error from mle, got %v", err)
	}

	mapAgent, err := NewLinearMAP(MAPConfig{
		PriorMean:       []float64{0, 0},
		PriorCovariance: isotropicCov(2, 1),
		NoiseVariance:   0.1,
	})
	if err != nil {
		t.Fatalf("new map agent: %v", err)
	}
	est, err := mapAgent.Fit(batch)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if len(est.Coefficients) != 2 {
		t.Fatalf("coefficient count = %d, want 2", len(est.Coefficients))
	}
}

func TestLinearMAPKeepsPriorPristine(t *testing.T) {
	mapAgent, err := NewLinearMAP(MAPConfig{
		PriorMean:       []float64{0},
		PriorCovariance: isotropicCov(1, 1),
		NoiseVariance:   1,
	})
	if err != nil {
		t.Fatalf("new map agent: %v", err)
	}

	batch, err := env.NewBatch([][]float64{{1}, {1}}, []float64{10, 10})
	if err != nil {
		t.Fatalf("new batch: %v", err)
	}

	first, err := mapAgent.Fit(batch)
	if err != nil {
		t.Fatalf("first fit: %v", err)
	}
	second, err := mapAgent.Fit(batch)
	if err != nil {
		t.Fatalf("second fit: %v", err)
	}
	if first.Coefficients[0] != second.Coefficients[0] {
		t.Fatalf("repeated fits diverged: %g vs %g", first.Coefficients[0], second.Coefficients[0])
	}
}
