package agent

import (
	"errors"
	"math"
	"testing"

	"doxa/internal/env"
	"doxa/internal/model"
)

func isotropicCov(dim int, scale float64) [][]float64 {
	cov := make([][]float64, dim)
	for i := range cov {
		cov[i] = make([]float64, dim)
		cov[i][i] = scale
	}
	return cov
}

func TestNewExactLinearValidatesConfig(t *testing.T) {
	if _, err := NewExactLinear(LinearConfig{PriorMean: []float64{0}, PriorCovariance: isotropicCov(1, 1)}); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing noise variance, got %v", err)
	}
	if _, err := NewExactLinear(LinearConfig{NoiseVariance: 1, UniformPrior: true}); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error for flat prior without dimension, got %v", err)
	}
	if _, err := NewExactLinear(LinearConfig{NoiseVariance: 1, FeatureDimension: 3, PriorMean: []float64{0, 0}, PriorCovariance: isotropicCov(2, 1)}); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error for dimension mismatch, got %v", err)
	}
}

func TestExactLinearNames(t *testing.T) {
	a, err := NewExactLinear(LinearConfig{NoiseVariance: 1, PriorMean: []float64{0}, PriorCovariance: isotropicCov(1, 1)})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	if a.Name() != "exact_linear" || !a.Exact() {
		t.Fatalf("name=%q exact=%v, want exact_linear/true", a.Name(), a.Exact())
	}

	f, err := NewExactLinear(LinearConfig{NoiseVariance: 1, UniformPrior: true, FeatureDimension: 1})
	if err != nil {
		t.Fatalf("new flat agent: %v", err)
	}
	if f.Name() != "exact_linear_flat_prior" {
		t.Fatalf("flat-prior name = %q", f.Name())
	}
}

func TestExactLinearUpdateIsOrderIndependent(t *testing.T) {
	e, err := env.NewStaticLinear(env.LinearConfig{
		TrueCoefficients: []float64{2, -1},
		NoiseVariance:    0.01,
		Seed:             42,
	})
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	b1, err := e.Generate(30)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b2, err := e.Generate(30)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	all, err := env.Merge(b1, b2)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	cfg := LinearConfig{
		NoiseVariance:   0.01,
		PriorMean:       []float64{0, 0},
		PriorCovariance: isotropicCov(2, 100),
	}
	split, err := NewExactLinear(cfg)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	combined, err := NewExactLinear(cfg)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	if err := split.Update(b1); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := split.Update(b2); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := combined.Update(all); err != nil {
		t.Fatalf("update: %v", err)
	}
	if split.Observations() != 60 || combined.Observations() != 60 {
		t.Fatalf("observations = %d/%d, want 60/60", split.Observations(), combined.Observations())
	}

	splitMean, err := split.Posterior().Mean()
	if err != nil {
		t.Fatalf("split mean: %v", err)
	}
	combinedMean, err := combined.Posterior().Mean()
	if err != nil {
		t.Fatalf("combined mean: %v", err)
	}
	for i := range splitMean {
		if math.Abs(splitMean[i]-combinedMean[i]) > 1e-9 {
			t.Fatalf("mean[%d]: split %g vs combined %g", i, splitMean[i], combinedMean[i])
		}
	}
}

func TestExactLinearConcentratesOnTruth(t *testing.T) {
	e, err := env.NewStaticLinear(env.LinearConfig{
		TrueCoefficients: []float64{2, -1},
		NoiseVariance:    0.01,
		Seed:             1,
	})
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	batch, err := e.Generate(1000)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	a, err := NewExactLinear(LinearConfig{
		NoiseVariance:   0.01,
		PriorMean:       []float64{0, 0},
		PriorCovariance: isotropicCov(2, 100),
	})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	if err := a.Update(batch); err != nil {
		t.Fatalf("update: %v", err)
	}

	mean, err := a.Posterior().Mean()
	if err != nil {
		t.Fatalf("mean: %v", err)
	}
	want := []float64{2, -1}
	for i := range want {
		if math.Abs(mean[i]-want[i]) > 0.05 {
			t.Fatalf("mean[%d] = %f, want %f within 0.05", i, mean[i], want[i])
		}
	}

	cov, err := a.Posterior().Covariance()
	if err != nil {
		t.Fatalf("covariance: %v", err)
	}
	for i := range cov {
		if cov[i][i] >= 100 {
			t.Fatalf("posterior variance %f did not contract below the prior", cov[i][i])
		}
	}
}

func TestExactLinearFlatPriorMatchesMLE(t *testing.T) {
	e, err := env.NewStaticLinear(env.LinearConfig{
		TrueCoefficients: []float64{1, 0.5},
		NoiseVariance:    0.25,
		Seed:             9,
	})
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	batch, err := e.Generate(200)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	a, err := NewExactLinear(LinearConfig{NoiseVariance: 0.25, UniformPrior: true, FeatureDimension: 2})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	if err := a.Update(batch); err != nil {
		t.Fatalf("update: %v", err)
	}
	flatMean, err := a.Posterior().Mean()
	if err != nil {
		t.Fatalf("mean: %v", err)
	}

	mle, err := NewLinearMLE().Fit(batch)
	if err != nil {
		t.Fatalf("mle fit: %v", err)
	}

	for i := range flatMean {
		if math.Abs(flatMean[i]-mle.Coefficients[i]) > 1e-9 {
			t.Fatalf("coefficient %d: flat-prior %g vs mle %g", i, flatMean[i], mle.Coefficients[i])
		}
	}
}

func TestExactLinearPosteriorSnapshotIsIndependent(t *testing.T) {
	a, err := NewExactLinear(LinearConfig{NoiseVariance: 1, PriorMean: []float64{0}, PriorCovariance: isotropicCov(1, 1)})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	before := a.Posterior()

	batch, err := env.NewBatch([][]float64{{1}}, []float64{5})
	if err != nil {
		t.Fatalf("new batch: %v", err)
	}
	if err := a.Update(batch); err != nil {
		t.Fatalf("update: %v", err)
	}

	beforeMean, err := before.Mean()
	if err != nil {
		t.Fatalf("mean: %v", err)
	}
	if beforeMean[0] != 0 {
		t.Fatalf("updating the agent mutated an earlier snapshot: mean = %v", beforeMean)
	}
}
