package config

import (
	"fmt"
	"os"

	"github.com/GoSim-25-26J-441/psweep/internal/params"
)

// LoadSweep loads and parses a sweep file. An empty path yields the built-in default.
func LoadSweep(path string) (*Sweep, error) {
	if path == "" {
		sweep := Default()
		if err := validateSweep(sweep); err != nil {
			return nil, fmt.Errorf("invalid default sweep: %w", err)
		}
		return sweep, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sweep file %s: %w", path, err)
	}
	sweep, err := ParseSweepYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sweep file %s: %w", path, err)
	}
	return sweep, nil
}

// Schema builds the typed parameter schema declared by the sweep
func (s *Sweep) Schema() (*params.Schema, error) {
	specs := make([]params.ParamSpec, 0, len(s.Params))
	for _, p := range s.Params {
		kind, err := params.ParseKind(p.Kind)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", p.Name, err)
		}
		def, err := params.FromAny(kind, p.Default)
		if err != nil {
			return nil, fmt.Errorf("param %s: default: %w", p.Name, err)
		}
		specs = append(specs, params.ParamSpec{
			Name:    p.Name,
			Kind:    kind,
			Default: def,
			Scale:   params.Scale(p.Scale),
		})
	}
	return params.NewSchema(specs...)
}

// ParamRanges casts the declared ranges through schema, keeping their order.
func (s *Sweep) ParamRanges(schema *params.Schema) ([]params.Range, error) {
	out := make([]params.Range, 0, len(s.Ranges))
	for _, r := range s.Ranges {
		spec, ok := schema.Lookup(r.Name)
		if !ok {
			return nil, fmt.Errorf("range %s: %w", r.Name, params.ErrUnknownParam)
		}
		values := make([]params.Value, 0, len(r.Values))
		for i, raw := range r.Values {
			v, err := params.FromAny(spec.Kind, raw)
			if err != nil {
				return nil, fmt.Errorf("range %s value %d: %w", r.Name, i, err)
			}
			values = append(values, v)
		}
		out = append(out, params.Range{Name: r.Name, Values: values})
	}
	if err := params.ValidateRanges(schema, out); err != nil {
		return nil, err
	}
	return out, nil
}

// validateSweep performs validation on the sweep configuration
func validateSweep(s *Sweep) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[s.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", s.LogLevel)
	}
	if s.RunID == "" {
		return fmt.Errorf("run_id cannot be empty")
	}
	if err := params.ValidateRunID(s.RunID); err != nil {
		return fmt.Errorf("run_id: %w", err)
	}
	if s.IDDigits <= 0 || s.IDDigits > 30 {
		return fmt.Errorf("id_digits must be between 1 and 30, got %d", s.IDDigits)
	}

	schema, err := s.Schema()
	if err != nil {
		return fmt.Errorf("params validation failed: %w", err)
	}
	for _, key := range params.MetaKeys {
		spec, ok := schema.Lookup(key)
		if !ok {
			return fmt.Errorf("params must declare meta key %s", key)
		}
		if spec.Kind != params.KindString {
			return fmt.Errorf("meta key %s must be a string parameter", key)
		}
	}
	if _, err := s.ParamRanges(schema); err != nil {
		return fmt.Errorf("ranges validation failed: %w", err)
	}

	if err := validateDispatch(&s.Dispatch); err != nil {
		return fmt.Errorf("dispatch validation failed: %w", err)
	}
	if err := validatePoll(&s.Poll); err != nil {
		return fmt.Errorf("poll validation failed: %w", err)
	}
	if err := validateCollect(&s.Collect); err != nil {
		return fmt.Errorf("collect validation failed: %w", err)
	}
	if err := validateOptimize(&s.Optimize); err != nil {
		return fmt.Errorf("optimize validation failed: %w", err)
	}
	if err := validateStore(&s.Store); err != nil {
		return fmt.Errorf("store validation failed: %w", err)
	}

	return nil
}

func validateDispatch(d *Dispatch) error {
	if d.Mode != "local" && d.Mode != "slurm" {
		return fmt.Errorf("mode must be 'local' or 'slurm', got %s", d.Mode)
	}
	if d.Mode == "slurm" && d.Script == "" && d.Command == "" {
		return fmt.Errorf("slurm mode requires script or command")
	}
	if d.Mode == "local" && d.Binary == "" && d.Command == "" {
		return fmt.Errorf("local mode requires binary or command")
	}
	if d.NPerJob < 1 {
		return fmt.Errorf("n_per_job must be positive, got %d", d.NPerJob)
	}
	return nil
}

func validatePoll(p *Poll) error {
	interval, err := p.GetInterval()
	if err != nil {
		return fmt.Errorf("invalid interval %s: %w", p.Interval, err)
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", p.Interval)
	}
	if p.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", p.Limit)
	}
	validBackoffs := map[string]bool{
		"":            true,
		"constant":    true,
		"linear":      true,
		"exponential": true,
	}
	if !validBackoffs[p.Backoff] {
		return fmt.Errorf("invalid backoff type: %s (must be constant, linear, or exponential)", p.Backoff)
	}
	return nil
}

func validateCollect(c *Collect) error {
	if c.ConfigFile == "" || c.LossFile == "" || c.MarkerFile == "" {
		return fmt.Errorf("config_file, loss_file and marker_file are required")
	}
	if c.EnableAccuracy && c.PercentFile == "" {
		return fmt.Errorf("percent_file is required when enable_accuracy is set")
	}
	if c.FirstN <= 0 {
		return fmt.Errorf("first_n must be positive, got %d", c.FirstN)
	}
	if c.LastN <= 0 {
		return fmt.Errorf("last_n must be positive, got %d", c.LastN)
	}
	return nil
}

func validateOptimize(o *Optimize) error {
	if o.Optimizer != "random" && o.Optimizer != "hillclimb" {
		return fmt.Errorf("optimizer must be 'random' or 'hillclimb', got %s", o.Optimizer)
	}
	if o.Objective != "accuracy" && o.Objective != "loss" {
		return fmt.Errorf("objective must be 'accuracy' or 'loss', got %s", o.Objective)
	}
	if o.Budget <= 0 {
		return fmt.Errorf("budget must be positive, got %d", o.Budget)
	}
	if o.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", o.Workers)
	}
	if o.StepSize <= 0 || o.StepSize > 1 {
		return fmt.Errorf("step_size must be in (0, 1], got %f", o.StepSize)
	}
	switch o.Convergence {
	case "", "none", "no_improvement", "plateau":
	default:
		return fmt.Errorf("invalid convergence strategy: %s", o.Convergence)
	}
	if o.Patience < 0 {
		return fmt.Errorf("patience cannot be negative, got %d", o.Patience)
	}
	return nil
}

func validateStore(s *Store) error {
	switch s.Backend {
	case "", "memory":
		return nil
	case "sqlite":
		if s.SQLitePath == "" {
			return fmt.Errorf("sqlite backend requires sqlite_path")
		}
		return nil
	default:
		return fmt.Errorf("unsupported store backend: %s", s.Backend)
	}
}
