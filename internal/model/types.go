package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// ExperimentRecord describes one lab run: which environment generated the
// data, which agents consumed it, and how much of it there was.
type ExperimentRecord struct {
	VersionedRecord
	RunID            string    `json:"run_id"`
	Environment      string    `json:"environment"`
	FeatureDimension int       `json:"feature_dimension"`
	NoiseVariance    float64   `json:"noise_variance"`
	TrueCoefficients []float64 `json:"true_coefficients"`
	Agents           []string  `json:"agents"`
	Batches          int       `json:"batches"`
	BatchSize        int       `json:"batch_size"`
	Seed             int64     `json:"seed"`
	CreatedAtUTC     string    `json:"created_at_utc"`
}

// PosteriorRecord is a snapshot of a Bayesian agent's belief after a run.
// Exact is false when the agent's update rule is a local approximation.
type PosteriorRecord struct {
	VersionedRecord
	RunID        string      `json:"run_id"`
	Agent        string      `json:"agent"`
	Mean         []float64   `json:"mean"`
	Covariance   [][]float64 `json:"covariance"`
	Exact        bool        `json:"exact"`
	Observations int         `json:"observations"`
}

// EstimateRecord is a point agent's final fit over all observed data.
type EstimateRecord struct {
	VersionedRecord
	RunID        string    `json:"run_id"`
	Agent        string    `json:"agent"`
	Coefficients []float64 `json:"coefficients"`
	Objective    float64   `json:"objective"`
	Observations int       `json:"observations"`
}

// BatchDiagnostics records, for one batch index, each agent's L2 distance
// between its current estimate and the environment's true coefficients.
type BatchDiagnostics struct {
	Batch        int                `json:"batch"`
	Observations int                `json:"observations"`
	Errors       map[string]float64 `json:"errors"`
}
