// Package lab drives inference experiments: it wires an environment to a set
// of agents, streams observation batches, tracks convergence toward the
// generative coefficients, and persists results.
package lab

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	"doxa/internal/agent"
	"doxa/internal/env"
	"doxa/internal/factory"
	"doxa/internal/model"
	"doxa/internal/storage"
)

type Config struct {
	Store storage.Store
}

type Lab struct {
	store storage.Store
}

func New(cfg Config) *Lab {
	return &Lab{store: cfg.Store}
}

// AgentSpec names a registered agent and its construction configuration.
type AgentSpec struct {
	Name   string
	Config factory.Config
}

type ExperimentConfig struct {
	RunID             string
	Environment       string
	EnvironmentConfig factory.Config
	Agents            []AgentSpec
	Batches           int
	BatchSize         int
	Workers           int
}

type ExperimentResult struct {
	RunID            string
	Environment      string
	FeatureDimension int
	TrueCoefficients []float64
	Observations     int
	Convergence      []model.BatchDiagnostics
	Posteriors       []model.PosteriorRecord
	Estimates        []model.EstimateRecord
}

// RunExperiment builds the environment and agents, feeds Batches batches of
// BatchSize observations through every agent, and returns (and persists, when
// a store is configured) the posteriors, point estimates and per-batch
// convergence diagnostics. Results are deterministic for a fixed seed.
func (l *Lab) RunExperiment(ctx context.Context, cfg ExperimentConfig) (ExperimentResult, error) {
	if cfg.RunID == "" {
		return ExperimentResult{}, errors.New("run id is required")
	}
	if cfg.Batches < 1 {
		return ExperimentResult{}, fmt.Errorf("%w: batches must be >= 1, got %d", model.ErrConfiguration, cfg.Batches)
	}
	if cfg.BatchSize < 1 {
		return ExperimentResult{}, fmt.Errorf("%w: batch size must be >= 1, got %d", model.ErrConfiguration, cfg.BatchSize)
	}
	if len(cfg.Agents) == 0 {
		return ExperimentResult{}, fmt.Errorf("%w: at least one agent is required", model.ErrConfiguration)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	factory.RegisterDefaults()

	environment, err := factory.NewEnvironment(cfg.Environment, cfg.EnvironmentConfig)
	if err != nil {
		return ExperimentResult{}, err
	}

	agents := make([]agent.Agent, 0, len(cfg.Agents))
	seenNames := make(map[string]struct{}, len(cfg.Agents))
	for _, spec := range cfg.Agents {
		a, err := factory.NewAgent(spec.Name, spec.Config)
		if err != nil {
			return ExperimentResult{}, err
		}
		if _, dup := seenNames[a.Name()]; dup {
			return ExperimentResult{}, fmt.Errorf("%w: duplicate agent %s", model.ErrConfiguration, a.Name())
		}
		seenNames[a.Name()] = struct{}{}
		agents = append(agents, a)
	}

	var truth []float64
	var noiseVariance float64
	if gt, ok := environment.(env.GroundTruth); ok {
		truth = gt.TrueCoefficients()
		noiseVariance = gt.NoiseVariance()
	}

	var cumulative env.Batch
	history := make([]model.BatchDiagnostics, 0, cfg.Batches)
	seen := 0
	for b := 0; b < cfg.Batches; b++ {
		if err := ctx.Err(); err != nil {
			return ExperimentResult{}, err
		}

		batch, err := environment.Generate(cfg.BatchSize)
		if err != nil {
			return ExperimentResult{}, err
		}
		if b == 0 {
			cumulative = batch
		} else {
			cumulative, err = env.Merge(cumulative, batch)
			if err != nil {
				return ExperimentResult{}, err
			}
		}
		seen += batch.N()

		diag, err := evaluateBatch(agents, batch, cumulative, truth, workers)
		if err != nil {
			return ExperimentResult{}, err
		}
		diag.Batch = b + 1
		diag.Observations = seen
		history = append(history, diag)
	}

	result := ExperimentResult{
		RunID:            cfg.RunID,
		Environment:      environment.Name(),
		FeatureDimension: environment.FeatureDim(),
		TrueCoefficients: truth,
		Observations:     seen,
		Convergence:      history,
	}

	for _, a := range agents {
		switch typed := a.(type) {
		case agent.BayesianAgent:
			record, err := posteriorRecord(cfg.RunID, typed)
			if err != nil {
				return ExperimentResult{}, fmt.Errorf("agent %s: %w", a.Name(), err)
			}
			result.Posteriors = append(result.Posteriors, record)
		case agent.PointAgent:
			estimate, err := typed.Fit(cumulative)
			if err != nil {
				return ExperimentResult{}, fmt.Errorf("agent %s: %w", a.Name(), err)
			}
			result.Estimates = append(result.Estimates, model.EstimateRecord{
				VersionedRecord: storage.Stamp(),
				RunID:           cfg.RunID,
				Agent:           a.Name(),
				Coefficients:    estimate.Coefficients,
				Objective:       estimate.Objective,
				Observations:    cumulative.N(),
			})
		}
	}

	if l.store != nil {
		experiment := model.ExperimentRecord{
			VersionedRecord:  storage.Stamp(),
			RunID:            cfg.RunID,
			Environment:      environment.Name(),
			FeatureDimension: environment.FeatureDim(),
			NoiseVariance:    noiseVariance,
			TrueCoefficients: truth,
			Agents:           agentNames(agents),
			Batches:          cfg.Batches,
			BatchSize:        cfg.BatchSize,
			Seed:             cfg.EnvironmentConfig.Seed,
			CreatedAtUTC:     time.Now().UTC().Format(time.RFC3339Nano),
		}
		if err := l.store.SaveExperiment(ctx, experiment); err != nil {
			return ExperimentResult{}, err
		}
		if err := l.store.SavePosteriors(ctx, cfg.RunID, result.Posteriors); err != nil {
			return ExperimentResult{}, err
		}
		if err := l.store.SaveEstimates(ctx, cfg.RunID, result.Estimates); err != nil {
			return ExperimentResult{}, err
		}
		if err := l.store.SaveConvergence(ctx, cfg.RunID, result.Convergence); err != nil {
			return ExperimentResult{}, err
		}
	}

	return result, nil
}

// evaluateBatch runs every agent against the new batch (Bayesian agents
// update incrementally, point agents refit on the cumulative data) and
// collects coefficient errors against the ground truth. Agents share no
// mutable state, so they run concurrently under a bounded worker group; only
// the results need the lock.
func evaluateBatch(agents []agent.Agent, batch, cumulative env.Batch, truth []float64, workers int) (model.BatchDiagnostics, error) {
	diag := model.BatchDiagnostics{Errors: make(map[string]float64, len(agents))}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, workers)

	for _, a := range agents {
		wg.Add(1)
		sem <- struct{}{}
		go func(a agent.Agent) {
			defer wg.Done()
			defer func() { <-sem }()

			estimate, err := evaluateAgent(a, batch, cumulative)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("agent %s: %w", a.Name(), err)
				}
				return
			}
			if estimate != nil && truth != nil && len(estimate) == len(truth) {
				diag.Errors[a.Name()] = floats.Distance(estimate, truth, 2)
			}
		}(a)
	}
	wg.Wait()

	if firstErr != nil {
		return model.BatchDiagnostics{}, firstErr
	}
	return diag, nil
}

// evaluateAgent returns the agent's current coefficient estimate, or nil when
// none is defined yet. A point agent hitting a still-singular cumulative
// design is not a failure: the next batches supply the missing rank.
func evaluateAgent(a agent.Agent, batch, cumulative env.Batch) ([]float64, error) {
	switch typed := a.(type) {
	case agent.BayesianAgent:
		if err := typed.Update(batch); err != nil {
			return nil, err
		}
		post := typed.Posterior()
		if !post.Informative() {
			return nil, nil
		}
		return post.Mean()
	case agent.PointAgent:
		estimate, err := typed.Fit(cumulative)
		if err != nil {
			if errors.Is(err, model.ErrSingularDesign) {
				return nil, nil
			}
			return nil, err
		}
		return estimate.Coefficients, nil
	default:
		return nil, fmt.Errorf("%w: agent %s implements neither update nor fit", model.ErrConfiguration, a.Name())
	}
}

func posteriorRecord(runID string, a agent.BayesianAgent) (model.PosteriorRecord, error) {
	post := a.Posterior()
	mean, err := post.Mean()
	if err != nil {
		return model.PosteriorRecord{}, err
	}
	cov, err := post.Covariance()
	if err != nil {
		return model.PosteriorRecord{}, err
	}
	return model.PosteriorRecord{
		VersionedRecord: storage.Stamp(),
		RunID:           runID,
		Agent:           a.Name(),
		Mean:            mean,
		Covariance:      cov,
		Exact:           a.Exact(),
		Observations:    a.Observations(),
	}, nil
}

func agentNames(agents []agent.Agent) []string {
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, a.Name())
	}
	return names
}
