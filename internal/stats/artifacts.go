// Package stats writes run artifacts: per-run JSON/CSV files under a base
// directory plus a newest-first run index.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"doxa/internal/model"
)

const runIndexFile = "run_index.json"

// RunConfig is the artifact copy of an experiment's configuration.
type RunConfig struct {
	RunID            string    `json:"run_id"`
	Environment      string    `json:"environment"`
	Agents           []string  `json:"agents"`
	FeatureDimension int       `json:"feature_dimension"`
	NoiseVariance    float64   `json:"noise_variance"`
	TrueCoefficients []float64 `json:"true_coefficients,omitempty"`
	Batches          int       `json:"batches"`
	BatchSize        int       `json:"batch_size"`
	Seed             int64     `json:"seed"`
	Workers          int       `json:"workers"`
	CreatedAtUTC     string    `json:"created_at_utc"`
}

// RunArtifacts bundles everything written for one run.
type RunArtifacts struct {
	Config      RunConfig
	Convergence []model.BatchDiagnostics
	Posteriors  []model.PosteriorRecord
	Estimates   []model.EstimateRecord
}

// RunIndexEntry is one line of the run index.
type RunIndexEntry struct {
	RunID        string             `json:"run_id"`
	Environment  string             `json:"environment"`
	Agents       []string           `json:"agents"`
	Batches      int                `json:"batches"`
	BatchSize    int                `json:"batch_size"`
	Seed         int64              `json:"seed"`
	FinalErrors  map[string]float64 `json:"final_errors,omitempty"`
	CreatedAtUTC string             `json:"created_at_utc"`
}

// WriteRunArtifacts writes config.json, convergence.csv, posteriors.json,
// estimates.json and report.txt under baseDir/<run id> and returns the run
// directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "posteriors.json"), artifacts.Posteriors); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "estimates.json"), artifacts.Estimates); err != nil {
		return "", err
	}
	if err := writeConvergenceCSV(filepath.Join(runDir, "convergence.csv"), artifacts.Convergence); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, "report.txt"), []byte(renderReport(artifacts)), 0o644); err != nil {
		return "", err
	}

	return runDir, nil
}

// AppendRunIndex inserts or replaces the entry for its run id.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run's artifact files into outDir/<run id>.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{"config.json", "posteriors.json", "estimates.json", "convergence.csv", "report.txt"}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// writeConvergenceCSV lays the history out as one row per batch with one
// error column per agent, agents sorted by name.
func writeConvergenceCSV(path string, history []model.BatchDiagnostics) error {
	agents := map[string]struct{}{}
	for _, d := range history {
		for name := range d.Errors {
			agents[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(agents))
	for name := range agents {
		names = append(names, name)
	}
	sort.Strings(names)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"batch", "observations"}, names...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, d := range history {
		row := []string{strconv.Itoa(d.Batch), strconv.Itoa(d.Observations)}
		for _, name := range names {
			value, ok := d.Errors[name]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(value, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
