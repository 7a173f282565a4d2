package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"doxa/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeExperiment(e model.ExperimentRecord) ([]byte, error) {
	return json.Marshal(e)
}

func DecodeExperiment(data []byte) (model.ExperimentRecord, error) {
	var experiment model.ExperimentRecord
	if err := json.Unmarshal(data, &experiment); err != nil {
		return model.ExperimentRecord{}, err
	}
	if err := checkVersion(experiment.VersionedRecord); err != nil {
		return model.ExperimentRecord{}, err
	}
	return experiment, nil
}

func EncodePosteriors(posteriors []model.PosteriorRecord) ([]byte, error) {
	return json.Marshal(posteriors)
}

func DecodePosteriors(data []byte) ([]model.PosteriorRecord, error) {
	var posteriors []model.PosteriorRecord
	if err := json.Unmarshal(data, &posteriors); err != nil {
		return nil, err
	}
	for _, p := range posteriors {
		if err := checkVersion(p.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return posteriors, nil
}

func EncodeEstimates(estimates []model.EstimateRecord) ([]byte, error) {
	return json.Marshal(estimates)
}

func DecodeEstimates(data []byte) ([]model.EstimateRecord, error) {
	var estimates []model.EstimateRecord
	if err := json.Unmarshal(data, &estimates); err != nil {
		return nil, err
	}
	for _, e := range estimates {
		if err := checkVersion(e.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return estimates, nil
}

func EncodeConvergence(history []model.BatchDiagnostics) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeConvergence(data []byte) ([]model.BatchDiagnostics, error) {
	var history []model.BatchDiagnostics
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, v.SchemaVersion, v.CodecVersion)
	}
	return nil
}

// Stamp fills in the current schema and codec versions.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}
