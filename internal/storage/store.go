package storage

import (
	"context"

	"doxa/internal/model"
)

// Store defines persistence operations for lab experiment results.
type Store interface {
	Init(ctx context.Context) error
	SaveExperiment(ctx context.Context, experiment model.ExperimentRecord) error
	GetExperiment(ctx context.Context, runID string) (model.ExperimentRecord, bool, error)
	SavePosteriors(ctx context.Context, runID string, posteriors []model.PosteriorRecord) error
	GetPosteriors(ctx context.Context, runID string) ([]model.PosteriorRecord, bool, error)
	SaveEstimates(ctx context.Context, runID string, estimates []model.EstimateRecord) error
	GetEstimates(ctx context.Context, runID string) ([]model.EstimateRecord, bool, error)
	SaveConvergence(ctx context.Context, runID string, history []model.BatchDiagnostics) error
	GetConvergence(ctx context.Context, runID string) ([]model.BatchDiagnostics, bool, error)
}
