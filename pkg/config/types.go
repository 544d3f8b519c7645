package config

import "time"

// Sweep is the complete description of a parameter sweep
type Sweep struct {
	RunID     string       `yaml:"run_id"`
	ConfigDir string       `yaml:"config_dir"`
	DataDir   string       `yaml:"data_dir"`
	IDDigits  int          `yaml:"id_digits"`
	LogLevel  string       `yaml:"log_level"`
	Params    []ParamEntry `yaml:"params"`
	Ranges    []RangeEntry `yaml:"ranges"`
	Dispatch  Dispatch     `yaml:"dispatch"`
	Poll      Poll         `yaml:"poll"`
	Collect   Collect      `yaml:"collect"`
	Optimize  Optimize     `yaml:"optimize"`
	Store     Store        `yaml:"store"`
	Tracking  Tracking     `yaml:"tracking"`
}

// ParamEntry declares one schema parameter. Its position in the list
// fixes the key ordering of generated config files.
type ParamEntry struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`            // int, float, string
	Default any    `yaml:"default"`         // cast through Kind
	Scale   string `yaml:"scale,omitempty"` // scalar or log
}

// RangeEntry lists the candidate values of a swept parameter
type RangeEntry struct {
	Name   string `yaml:"name"`
	Values []any  `yaml:"values"`
}

// Dispatch configures how jobs are launched
type Dispatch struct {
	Mode      string `yaml:"mode"`              // local or slurm
	Command   string `yaml:"command,omitempty"` // text/template override
	Script    string `yaml:"script"`            // batch script for slurm
	Binary    string `yaml:"binary"`            // simulator executable for local
	JobPrefix string `yaml:"job_prefix"`
	NPerJob   int    `yaml:"n_per_job"`
}

// Poll configures the completion-marker wait
type Poll struct {
	Interval string `yaml:"interval"` // e.g., "1s"
	Limit    int    `yaml:"limit"`    // maximum number of intervals
	Backoff  string `yaml:"backoff"`  // constant, linear, exponential
}

// Collect names the per-run files and smoothing windows
type Collect struct {
	ConfigFile     string `yaml:"config_file"`
	LossFile       string `yaml:"loss_file"`
	PercentFile    string `yaml:"percent_file"`
	MarkerFile     string `yaml:"marker_file"`
	FirstN         int    `yaml:"first_n"`
	LastN          int    `yaml:"last_n"`
	EnableAccuracy bool   `yaml:"enable_accuracy"`
	Strict         bool   `yaml:"strict"`
}

// Optimize configures the optimizer-driven sweep
type Optimize struct {
	Optimizer string  `yaml:"optimizer"` // random or hillclimb
	Objective string  `yaml:"objective"` // accuracy or loss
	Budget    int     `yaml:"budget"`
	Workers   int     `yaml:"workers"`
	Seed      int64   `yaml:"seed"`
	StepSize  float64 `yaml:"step_size"`
	Output    string  `yaml:"output"`

	Convergence string `yaml:"convergence,omitempty"` // no_improvement, plateau or empty
	Patience    int    `yaml:"patience,omitempty"`

	// CallbackURL receives the result summary when a session ends
	CallbackURL    string `yaml:"callback_url,omitempty"`
	CallbackSecret string `yaml:"-"`
}

// Store selects the result persistence backend
type Store struct {
	Backend    string `yaml:"backend"` // memory or sqlite
	SQLitePath string `yaml:"sqlite_path"`
}

// Tracking configures export to an MLflow tracking server
type Tracking struct {
	TrackingURI     string `yaml:"tracking_uri"`
	ExperimentID    string `yaml:"experiment_id"`
	DatabricksHost  string `yaml:"databricks_host,omitempty"`
	DatabricksToken string `yaml:"-"`
}

// GetInterval parses the poll interval
func (p *Poll) GetInterval() (time.Duration, error) {
	return time.ParseDuration(p.Interval)
}
