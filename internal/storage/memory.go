package storage

import (
	"context"
	"sync"

	"doxa/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	experiments map[string]model.ExperimentRecord
	posteriors  map[string][]model.PosteriorRecord
	estimates   map[string][]model.EstimateRecord
	convergence map[string][]model.BatchDiagnostics
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.experiments = make(map[string]model.ExperimentRecord)
	s.posteriors = make(map[string][]model.PosteriorRecord)
	s.estimates = make(map[string][]model.EstimateRecord)
	s.convergence = make(map[string][]model.BatchDiagnostics)
	return nil
}

func (s *MemoryStore) SaveExperiment(_ context.Context, experiment model.ExperimentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.experiments[experiment.RunID] = experiment
	return nil
}

func (s *MemoryStore) GetExperiment(_ context.Context, runID string) (model.ExperimentRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	experiment, ok := s.experiments[runID]
	return experiment, ok, nil
}

func (s *MemoryStore) SavePosteriors(_ context.Context, runID string, posteriors []model.PosteriorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.posteriors[runID] = append([]model.PosteriorRecord(nil), posteriors...)
	return nil
}

func (s *MemoryStore) GetPosteriors(_ context.Context, runID string) ([]model.PosteriorRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posteriors, ok := s.posteriors[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.PosteriorRecord(nil), posteriors...), true, nil
}

func (s *MemoryStore) SaveEstimates(_ context.Context, runID string, estimates []model.EstimateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.estimates[runID] = append([]model.EstimateRecord(nil), estimates...)
	return nil
}

func (s *MemoryStore) GetEstimates(_ context.Context, runID string) ([]model.EstimateRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	estimates, ok := s.estimates[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.EstimateRecord(nil), estimates...), true, nil
}

func (s *MemoryStore) SaveConvergence(_ context.Context, runID string, history []model.BatchDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.convergence[runID] = append([]model.BatchDiagnostics(nil), history...)
	return nil
}

func (s *MemoryStore) GetConvergence(_ context.Context, runID string) ([]model.BatchDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.convergence[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.BatchDiagnostics(nil), history...), true, nil
}
