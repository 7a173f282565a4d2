package doxa

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"doxa/internal/factory"
	"doxa/internal/model"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{
		StoreKind:    "memory",
		ArtifactsDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRunRequiresTrueCoefficients(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Run(context.Background(), RunRequest{}); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunRejectsUnknownEnvironment(t *testing.T) {
	client := newTestClient(t)
	_, err := client.Run(context.Background(), RunRequest{
		Environment:      "no_such_env",
		TrueCoefficients: []float64{1},
	})
	if !errors.Is(err, factory.ErrEnvironmentNotFound) {
		t.Fatalf("expected environment not found, got %v", err)
	}
}

func TestRunWithDefaultsProducesArtifactsAndResults(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	summary, err := client.Run(ctx, RunRequest{
		TrueCoefficients: []float64{2, -1},
		Seed:             3,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("run id was not assigned")
	}
	if summary.Observations != 1000 {
		t.Fatalf("observations = %d, want 1000", summary.Observations)
	}
	if len(summary.FinalErrors) != 4 {
		t.Fatalf("final errors = %v, want 4 agents", summary.FinalErrors)
	}
	for name, errValue := range summary.FinalErrors {
		if errValue > 0.1 {
			t.Fatalf("agent %s final error %f too large", name, errValue)
		}
	}

	for _, file := range []string{"config.json", "posteriors.json", "estimates.json", "convergence.csv", "report.txt"} {
		if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, file)); err != nil {
			t.Fatalf("missing artifact %s: %v", file, err)
		}
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID {
		t.Fatalf("run index = %+v, want one entry for %s", runs, summary.RunID)
	}

	posteriors, err := client.Posteriors(ctx, ResultRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("posteriors: %v", err)
	}
	if len(posteriors) != 2 {
		t.Fatalf("posterior count = %d, want 2", len(posteriors))
	}
	for _, p := range posteriors {
		for i, want := range []float64{2, -1} {
			if math.Abs(p.Mean[i]-want) > 0.05 {
				t.Fatalf("agent %s mean[%d] = %f, want %f within 0.05", p.Agent, i, p.Mean[i], want)
			}
		}
	}

	estimates, err := client.Estimates(ctx, ResultRequest{Latest: true})
	if err != nil {
		t.Fatalf("estimates: %v", err)
	}
	if len(estimates) != 2 {
		t.Fatalf("estimate count = %d, want 2", len(estimates))
	}

	history, err := client.Convergence(ctx, ResultRequest{Latest: true})
	if err != nil {
		t.Fatalf("convergence: %v", err)
	}
	if len(history) != 10 {
		t.Fatalf("convergence length = %d, want 10", len(history))
	}

	outDir := t.TempDir()
	exported, err := client.Export(ctx, ResultRequest{Latest: true}, outDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exported, "report.txt")); err != nil {
		t.Fatalf("exported report missing: %v", err)
	}
}

func TestRunNonlinearDefaults(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	summary, err := client.Run(ctx, RunRequest{
		Environment:      "static_nonlinear",
		TrueCoefficients: []float64{1, 0, 2},
		Seed:             5,
		Batches:          5,
		BatchSize:        200,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	posteriors, err := client.Posteriors(ctx, ResultRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("posteriors: %v", err)
	}
	if len(posteriors) != 1 || posteriors[0].Agent != "exact_nonlinear" {
		t.Fatalf("posteriors = %+v, want one exact_nonlinear record", posteriors)
	}
	if !posteriors[0].Exact {
		t.Fatal("polynomial posterior must be exact")
	}
	if len(posteriors[0].Mean) != 3 {
		t.Fatalf("posterior dimension = %d, want 3", len(posteriors[0].Mean))
	}
}

func TestResultRequestValidation(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if _, err := client.Posteriors(ctx, ResultRequest{}); err == nil {
		t.Fatal("expected error without run id or latest")
	}
	if _, err := client.Posteriors(ctx, ResultRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected error for run id combined with latest")
	}
	if _, err := client.Posteriors(ctx, ResultRequest{Latest: true}); err == nil {
		t.Fatal("expected error with no runs recorded")
	}
	if _, err := client.Export(ctx, ResultRequest{}, t.TempDir()); err == nil {
		t.Fatal("expected error for export without run id")
	}
}
