package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"doxa/internal/storage"
	doxaapi "doxa/pkg/doxa"
)

const artifactsDir = "runs"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "posterior":
		return runPosterior(ctx, args[1:])
	case "estimate":
		return runEstimate(ctx, args[1:])
	case "convergence":
		return runConvergence(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: doxactl <init|run|runs|posterior|estimate|convergence|export> [flags]", msg)
}

func newClient(storeKind, dbPath string) (*doxaapi.Client, error) {
	return doxaapi.New(doxaapi.Options{
		StoreKind:    storeKind,
		DBPath:       dbPath,
		ArtifactsDir: artifactsDir,
	})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "doxa.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized %s store\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "doxa.db", "sqlite database path")
	configPath := fs.String("config", "", "optional JSON config file; flags override its values")
	runID := fs.String("run-id", "", "run identifier (generated when empty)")
	environment := fs.String("environment", "static_linear", "environment: static_linear|static_nonlinear")
	coefficients := fs.String("coefficients", "", "comma-separated true coefficients, e.g. 2.0,-1.0")
	noiseVariance := fs.Float64("noise-variance", 0.01, "observation noise variance")
	nonlinearForm := fs.String("nonlinear-form", "", "nonlinear response family: polynomial|sigmoid")
	degree := fs.Int("degree", 0, "polynomial degree (defaults to len(coefficients)-1)")
	seed := fs.Int64("seed", 0, "random seed")
	batches := fs.Int("batches", 10, "number of observation batches")
	batchSize := fs.Int("batch-size", 100, "observations per batch")
	workers := fs.Int("workers", 4, "concurrent agent evaluations")
	agents := fs.String("agents", "", "comma-separated agent names (defaults per environment)")
	priorScale := fs.Float64("prior-scale", 100, "isotropic prior covariance scale")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = doxaapi.RunRequest{
			RunID:            *runID,
			Environment:      *environment,
			TrueCoefficients: parseFloats(*coefficients),
			NoiseVariance:    *noiseVariance,
			NonlinearForm:    *nonlinearForm,
			PolynomialDegree: *degree,
			Seed:             *seed,
			Batches:          *batches,
			BatchSize:        *batchSize,
			Workers:          *workers,
			Agents:           parseList(*agents),
			PriorScale:       *priorScale,
		}
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run %s finished: %d observations\n", summary.RunID, summary.Observations)
	fmt.Printf("artifacts: %s\n", summary.ArtifactsDir)
	for agent, finalErr := range summary.FinalErrors {
		fmt.Printf("  %-28s final error %.6f\n", agent, finalErr)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "doxa.db", "sqlite database path")
	limit := fs.Int("limit", 20, "maximum runs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer client.Close()

	items, err := client.Runs(ctx, doxaapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	for _, item := range items {
		fmt.Printf("%s  %s  %s  %dx%d  seed=%d\n",
			item.RunID, item.CreatedAtUTC, item.Environment, item.Batches, item.BatchSize, item.Seed)
	}
	return nil
}

func runPosterior(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("posterior", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "doxa.db", "sqlite database path")
	runID := fs.String("run-id", "", "run identifier")
	latest := fs.Bool("latest", false, "use the most recent run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer client.Close()

	posteriors, err := client.Posteriors(ctx, doxaapi.ResultRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	return printJSON(posteriors)
}

func runEstimate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "doxa.db", "sqlite database path")
	runID := fs.String("run-id", "", "run identifier")
	latest := fs.Bool("latest", false, "use the most recent run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer client.Close()

	estimates, err := client.Estimates(ctx, doxaapi.ResultRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	return printJSON(estimates)
}

func runConvergence(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("convergence", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "doxa.db", "sqlite database path")
	runID := fs.String("run-id", "", "run identifier")
	latest := fs.Bool("latest", false, "use the most recent run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer client.Close()

	history, err := client.Convergence(ctx, doxaapi.ResultRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	return printJSON(history)
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "doxa.db", "sqlite database path")
	runID := fs.String("run-id", "", "run identifier")
	latest := fs.Bool("latest", false, "use the most recent run")
	outDir := fs.String("out", "exports", "export directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer client.Close()

	dir, err := client.Export(ctx, doxaapi.ResultRequest{RunID: *runID, Latest: *latest}, *outDir)
	if err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", dir)
	return nil
}

func printJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func parseList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
