// Package doxa is the public client for running inference experiments:
// constructing environments and agents by name, streaming observation
// batches, and reading back posteriors, estimates and convergence history.
package doxa

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"doxa/internal/factory"
	"doxa/internal/lab"
	"doxa/internal/model"
	"doxa/internal/stats"
	"doxa/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultDBPath       = "doxa.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
}

type Client struct {
	store       storage.Store
	lab         *lab.Lab
	initialized bool

	artifactsDir string
}

// RunRequest configures one experiment. Zero fields get defaults in Run;
// only TrueCoefficients is always required.
type RunRequest struct {
	RunID            string
	Environment      string
	TrueCoefficients []float64
	NoiseVariance    float64
	NonlinearForm    string
	PolynomialDegree int
	Seed             int64
	Batches          int
	BatchSize        int
	Workers          int
	Agents           []string
	PriorMean        []float64
	PriorScale       float64
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Observations int
	FinalErrors  map[string]float64
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Environment  string
	Agents       []string
	Batches      int
	BatchSize    int
	Seed         int64
	FinalErrors  map[string]float64
}

type ResultRequest struct {
	RunID  string
	Latest bool
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		lab:          lab.New(lab.Config{Store: store}),
		artifactsDir: artifactsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureStore(ctx)
}

// Run fills defaults, runs the experiment, writes artifacts and appends the
// run index.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if len(req.TrueCoefficients) == 0 {
		return RunSummary{}, fmt.Errorf("%w: true coefficients are required", model.ErrConfiguration)
	}
	if req.Environment == "" {
		req.Environment = "static_linear"
	}
	if req.NoiseVariance <= 0 {
		req.NoiseVariance = 0.01
	}
	if req.Environment == "static_nonlinear" && req.NonlinearForm == "" {
		req.NonlinearForm = "polynomial"
	}
	if req.NonlinearForm == "polynomial" && req.PolynomialDegree <= 0 {
		req.PolynomialDegree = len(req.TrueCoefficients) - 1
	}
	if req.Batches <= 0 {
		req.Batches = 10
	}
	if req.BatchSize <= 0 {
		req.BatchSize = 100
	}
	if req.Workers <= 0 {
		req.Workers = 4
	}
	if req.PriorScale <= 0 {
		req.PriorScale = 100
	}
	if len(req.Agents) == 0 {
		if req.Environment == "static_nonlinear" {
			req.Agents = []string{"exact_nonlinear"}
		} else {
			req.Agents = []string{"exact_linear", "exact_linear_flat_prior", "linear_mle_agent", "linear_map_agent"}
		}
	}
	if req.RunID == "" {
		req.RunID = fmt.Sprintf("%s-%s", req.Environment, uuid.NewString()[:8])
	}

	dim := coefficientDim(req)
	priorMean := req.PriorMean
	if len(priorMean) == 0 {
		priorMean = make([]float64, dim)
	}
	if len(priorMean) != dim {
		return RunSummary{}, fmt.Errorf("%w: prior mean dimension %d does not match coefficient dimension %d", model.ErrConfiguration, len(priorMean), dim)
	}
	priorCovariance := isotropic(dim, req.PriorScale)

	specs := make([]lab.AgentSpec, 0, len(req.Agents))
	for _, name := range req.Agents {
		specs = append(specs, lab.AgentSpec{
			Name: name,
			Config: factory.Config{
				NoiseVariance:    req.NoiseVariance,
				PriorMean:        priorMean,
				PriorCovariance:  priorCovariance,
				FeatureDimension: dim,
				NonlinearForm:    req.NonlinearForm,
				PolynomialDegree: req.PolynomialDegree,
				Seed:             req.Seed,
			},
		})
	}

	if err := c.ensureStore(ctx); err != nil {
		return RunSummary{}, err
	}

	result, err := c.lab.RunExperiment(ctx, lab.ExperimentConfig{
		RunID:       req.RunID,
		Environment: req.Environment,
		EnvironmentConfig: factory.Config{
			TrueCoefficients: req.TrueCoefficients,
			NoiseVariance:    req.NoiseVariance,
			NonlinearForm:    req.NonlinearForm,
			Seed:             req.Seed,
		},
		Agents:    specs,
		Batches:   req.Batches,
		BatchSize: req.BatchSize,
		Workers:   req.Workers,
	})
	if err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	finalErrors := stats.FinalErrors(result.Convergence)
	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:            result.RunID,
			Environment:      result.Environment,
			Agents:           req.Agents,
			FeatureDimension: result.FeatureDimension,
			NoiseVariance:    req.NoiseVariance,
			TrueCoefficients: result.TrueCoefficients,
			Batches:          req.Batches,
			BatchSize:        req.BatchSize,
			Seed:             req.Seed,
			Workers:          req.Workers,
			CreatedAtUTC:     now,
		},
		Convergence: result.Convergence,
		Posteriors:  result.Posteriors,
		Estimates:   result.Estimates,
	})
	if err != nil {
		return RunSummary{}, err
	}

	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:        result.RunID,
		Environment:  result.Environment,
		Agents:       req.Agents,
		Batches:      req.Batches,
		BatchSize:    req.BatchSize,
		Seed:         req.Seed,
		FinalErrors:  finalErrors,
		CreatedAtUTC: now,
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:        result.RunID,
		ArtifactsDir: filepath.Clean(runDir),
		Observations: result.Observations,
		FinalErrors:  finalErrors,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Environment:  e.Environment,
			Agents:       e.Agents,
			Batches:      e.Batches,
			BatchSize:    e.BatchSize,
			Seed:         e.Seed,
			FinalErrors:  e.FinalErrors,
		})
	}
	return out, nil
}

func (c *Client) Posteriors(ctx context.Context, req ResultRequest) ([]model.PosteriorRecord, error) {
	runID, err := c.resolveRunID(ctx, req)
	if err != nil {
		return nil, err
	}
	posteriors, ok, err := c.store.GetPosteriors(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("posteriors not found for run id: %s", runID)
	}
	return posteriors, nil
}

func (c *Client) Estimates(ctx context.Context, req ResultRequest) ([]model.EstimateRecord, error) {
	runID, err := c.resolveRunID(ctx, req)
	if err != nil {
		return nil, err
	}
	estimates, ok, err := c.store.GetEstimates(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("estimates not found for run id: %s", runID)
	}
	return estimates, nil
}

func (c *Client) Convergence(ctx context.Context, req ResultRequest) ([]model.BatchDiagnostics, error) {
	runID, err := c.resolveRunID(ctx, req)
	if err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetConvergence(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("convergence not found for run id: %s", runID)
	}
	return history, nil
}

// Export copies a run's artifacts into outDir and returns the destination.
func (c *Client) Export(_ context.Context, req ResultRequest, outDir string) (string, error) {
	runID := req.RunID
	if req.Latest {
		if runID != "" {
			return "", errors.New("use either run id or latest")
		}
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", errors.New("no runs available")
		}
		runID = entries[0].RunID
	}
	if runID == "" {
		return "", errors.New("export requires run id or latest")
	}
	dir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, outDir)
	if err != nil {
		return "", err
	}
	return filepath.Clean(dir), nil
}

func (c *Client) resolveRunID(ctx context.Context, req ResultRequest) (string, error) {
	if req.RunID != "" && req.Latest {
		return "", errors.New("use either run id or latest")
	}
	if err := c.ensureStore(ctx); err != nil {
		return "", err
	}
	if req.RunID != "" {
		return req.RunID, nil
	}
	if !req.Latest {
		return "", errors.New("run id or latest is required")
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) ensureStore(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func coefficientDim(req RunRequest) int {
	if req.Environment == "static_nonlinear" && req.NonlinearForm == "polynomial" {
		return req.PolynomialDegree + 1
	}
	return len(req.TrueCoefficients)
}

func isotropic(dim int, scale float64) [][]float64 {
	cov := make([][]float64, dim)
	for i := range cov {
		row := make([]float64, dim)
		row[i] = scale
		cov[i] = row
	}
	return cov
}
