package main

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	doxaapi "doxa/pkg/doxa"
)

func loadOrDefaultRunRequest(path string) (doxaapi.RunRequest, error) {
	if path == "" {
		return doxaapi.RunRequest{}, nil
	}
	return loadRunRequestFromConfig(path)
}

func loadRunRequestFromConfig(path string) (doxaapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return doxaapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return doxaapi.RunRequest{}, err
	}

	var req doxaapi.RunRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["environment"]); ok {
		req.Environment = v
	}
	if v, ok := asFloats(raw["true_coefficients"]); ok {
		req.TrueCoefficients = v
	}
	if v, ok := asFloat64(raw["noise_variance"]); ok {
		req.NoiseVariance = v
	}
	if v, ok := asString(raw["nonlinear_form"]); ok {
		req.NonlinearForm = v
	}
	if v, ok := asInt(raw["polynomial_degree"]); ok {
		req.PolynomialDegree = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["batches"]); ok {
		req.Batches = v
	}
	if v, ok := asInt(raw["batch_size"]); ok {
		req.BatchSize = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asStrings(raw["agents"]); ok {
		req.Agents = v
	}
	if v, ok := asFloats(raw["prior_mean"]); ok {
		req.PriorMean = v
	}
	if v, ok := asFloat64(raw["prior_scale"]); ok {
		req.PriorScale = v
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func asFloats(v any) ([]float64, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(list))
	for _, item := range list {
		f, ok := asFloat64(item)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

func asStrings(v any) ([]string, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := asString(item)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func parseFloats(value string) []float64 {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}
