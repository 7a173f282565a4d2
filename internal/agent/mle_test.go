package agent

import (
	"errors"
	"math"
	"testing"

	"doxa/internal/env"
	"doxa/internal/model"
)

func TestLinearMLERecoversNoiselessCoefficients(t *testing.T) {
	// Noiseless orthonormal design: OLS interpolates with zero residual.
	batch, err := env.NewBatch(
		[][]float64{{1, 0}, {0, 1}},
		[]float64{3, -2},
	)
	if err != nil {
		t.Fatalf("new batch: %v", err)
	}

	est, err := NewLinearMLE().Fit(batch)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	want := []float64{3, -2}
	for i := range want {
		if math.Abs(est.Coefficients[i]-want[i]) > 1e-9 {
			t.Fatalf("coefficient %d = %g, want %g", i, est.Coefficients[i], want[i])
		}
	}
	if !math.IsInf(est.Objective, 1) {
		t.Fatalf("perfect interpolation objective = %f, want +Inf", est.Objective)
	}
}

func TestLinearMLEFailsOnSingularDesign(t *testing.T) {
	// One observation, two unknowns: the normal equations are rank deficient.
	batch, err := env.NewBatch([][]float64{{1, 2}}, []float64{1})
	if err != nil {
		t.Fatalf("new batch: %v", err)
	}
	if _, err := NewLinearMLE().Fit(batch); !errors.Is(err, model.ErrSingularDesign) {
		t.Fatalf("expected singular design error, got %v", err)
	}
}

func TestLinearMLEObjectiveIsFinitePastInterpolation(t *testing.T) {
	e, err := env.NewStaticLinear(env.LinearConfig{
		TrueCoefficients: []float64{1, -1},
		NoiseVariance:    0.5,
		Seed:             4,
	})
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	batch, err := e.Generate(100)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	est, err := NewLinearMLE().Fit(batch)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if math.IsInf(est.Objective, 0) || math.IsNaN(est.Objective) {
		t.Fatalf("objective = %f, want finite", est.Objective)
	}
}
