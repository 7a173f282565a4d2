package stats

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"doxa/internal/model"
)

// AgentSummary condenses one agent's error trajectory over a run.
type AgentSummary struct {
	Agent      string  `json:"agent"`
	FinalError float64 `json:"final_error"`
	MeanError  float64 `json:"mean_error"`
	StdDev     float64 `json:"std_dev"`
	Samples    int     `json:"samples"`
}

// SummarizeConvergence reduces a convergence history to per-agent summary
// statistics, sorted by agent name.
func SummarizeConvergence(history []model.BatchDiagnostics) []AgentSummary {
	trajectories := map[string][]float64{}
	for _, d := range history {
		for name, value := range d.Errors {
			trajectories[name] = append(trajectories[name], value)
		}
	}

	names := make([]string, 0, len(trajectories))
	for name := range trajectories {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]AgentSummary, 0, len(names))
	for _, name := range names {
		errs := trajectories[name]
		summary := AgentSummary{
			Agent:      name,
			FinalError: errs[len(errs)-1],
			MeanError:  stat.Mean(errs, nil),
			Samples:    len(errs),
		}
		if len(errs) > 1 {
			summary.StdDev = stat.StdDev(errs, nil)
		}
		out = append(out, summary)
	}
	return out
}

// FinalErrors extracts the last recorded error per agent.
func FinalErrors(history []model.BatchDiagnostics) map[string]float64 {
	out := map[string]float64{}
	for _, summary := range SummarizeConvergence(history) {
		out[summary.Agent] = summary.FinalError
	}
	return out
}

func renderReport(artifacts RunArtifacts) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", artifacts.Config.RunID)
	fmt.Fprintf(&b, "environment %s (d=%d, sigma2=%g)\n",
		artifacts.Config.Environment, artifacts.Config.FeatureDimension, artifacts.Config.NoiseVariance)
	fmt.Fprintf(&b, "observations %d x %d\n\n", artifacts.Config.Batches, artifacts.Config.BatchSize)

	fmt.Fprintf(&b, "%-28s %12s %12s %12s\n", "agent", "final_err", "mean_err", "std_dev")
	for _, summary := range SummarizeConvergence(artifacts.Convergence) {
		fmt.Fprintf(&b, "%-28s %12.6f %12.6f %12.6f\n",
			summary.Agent, summary.FinalError, summary.MeanError, summary.StdDev)
	}

	if len(artifacts.Estimates) > 0 {
		b.WriteString("\npoint estimates\n")
		for _, e := range artifacts.Estimates {
			fmt.Fprintf(&b, "%-28s coeffs=%v objective=%.6f\n", e.Agent, e.Coefficients, e.Objective)
		}
	}
	return b.String()
}
