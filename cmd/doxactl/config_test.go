package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRunRequestFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	payload := `{
		"run_id": "run-1",
		"environment": "static_nonlinear",
		"true_coefficients": [1, 0, 2],
		"noise_variance": 0.05,
		"nonlinear_form": "polynomial",
		"polynomial_degree": 2,
		"seed": 7,
		"batches": 5,
		"batch_size": 50,
		"workers": 2,
		"agents": ["exact_nonlinear"],
		"prior_mean": [0, 0, 0],
		"prior_scale": 10
	}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if req.RunID != "run-1" || req.Environment != "static_nonlinear" {
		t.Fatalf("identity fields: %+v", req)
	}
	if len(req.TrueCoefficients) != 3 || req.TrueCoefficients[2] != 2 {
		t.Fatalf("true coefficients = %v", req.TrueCoefficients)
	}
	if req.NoiseVariance != 0.05 || req.NonlinearForm != "polynomial" || req.PolynomialDegree != 2 {
		t.Fatalf("model fields: %+v", req)
	}
	if req.Seed != 7 || req.Batches != 5 || req.BatchSize != 50 || req.Workers != 2 {
		t.Fatalf("schedule fields: %+v", req)
	}
	if len(req.Agents) != 1 || req.Agents[0] != "exact_nonlinear" {
		t.Fatalf("agents = %v", req.Agents)
	}
	if len(req.PriorMean) != 3 || req.PriorScale != 10 {
		t.Fatalf("prior fields: %+v", req)
	}
}

func TestLoadRunRequestIgnoresMistypedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	payload := `{"environment": 42, "batches": "many", "true_coefficients": [1, "x"]}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if req.Environment != "" || req.Batches != 0 || req.TrueCoefficients != nil {
		t.Fatalf("mistyped fields were not ignored: %+v", req)
	}
}

func TestLoadOrDefaultRunRequest(t *testing.T) {
	req, err := loadOrDefaultRunRequest("")
	if err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if req.RunID != "" {
		t.Fatalf("empty path should give a zero request, got %+v", req)
	}

	if _, err := loadOrDefaultRunRequest(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseFloats(t *testing.T) {
	if got := parseFloats(""); got != nil {
		t.Fatalf("empty input = %v, want nil", got)
	}
	got := parseFloats("2.0, -1.0, 0.5")
	want := []float64{2, -1, 0.5}
	if len(got) != len(want) {
		t.Fatalf("parsed = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("parsed[%d] = %g, want %g", i, got[i], want[i])
		}
	}
	if got := parseFloats("1,,2, junk ,3"); len(got) != 3 {
		t.Fatalf("lenient parse = %v, want 3 values", got)
	}
}
