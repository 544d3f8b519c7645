package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSweep(t *testing.T) {
	// Test loading the checked-in example sweep
	sweep, err := LoadSweep("../../config/sweep.yaml")
	if err != nil {
		t.Fatalf("Failed to load sweep: %v", err)
	}

	if sweep.RunID != "HH" {
		t.Errorf("Expected run_id 'HH', got '%s'", sweep.RunID)
	}
	if sweep.Dispatch.Mode != "local" {
		t.Errorf("Expected dispatch mode 'local', got '%s'", sweep.Dispatch.Mode)
	}
	if len(sweep.Ranges) != 2 {
		t.Fatalf("Expected 2 ranges, got %d", len(sweep.Ranges))
	}
	if sweep.Ranges[1].Name != "GNA" || len(sweep.Ranges[1].Values) != 3 {
		t.Errorf("Unexpected second range: %+v", sweep.Ranges[1])
	}

	// Params were not given in the file so the defaults survive
	if len(sweep.Params) != len(Default().Params) {
		t.Errorf("Expected %d default params, got %d", len(Default().Params), len(sweep.Params))
	}

	interval, err := sweep.Poll.GetInterval()
	if err != nil {
		t.Errorf("Failed to parse interval: %v", err)
	}
	if interval.Seconds() != 1 {
		t.Errorf("Expected 1s interval, got %v", interval)
	}
	if sweep.Store.Backend != "sqlite" {
		t.Errorf("Expected sqlite store, got '%s'", sweep.Store.Backend)
	}
}

func TestLoadSweepDefault(t *testing.T) {
	sweep, err := LoadSweep("")
	if err != nil {
		t.Fatalf("Default sweep should be valid: %v", err)
	}
	schema, err := sweep.Schema()
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	if schema.Names()[0] != "RUN_ID" {
		t.Errorf("Expected RUN_ID first, got %s", schema.Names()[0])
	}
	ranges, err := sweep.ParamRanges(schema)
	if err != nil {
		t.Fatalf("ParamRanges failed: %v", err)
	}
	if len(ranges) != 4 {
		t.Errorf("Expected 4 default ranges, got %d", len(ranges))
	}
}

func TestLoadSweepFileNotFound(t *testing.T) {
	_, err := LoadSweep("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadSweepInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	invalidFile := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(invalidFile, []byte("invalid: yaml: content:"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	_, err := LoadSweep(invalidFile)
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestSweepValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(s *Sweep)
		expectError bool
	}{
		{
			name:        "Valid default",
			mutate:      func(s *Sweep) {},
			expectError: false,
		},
		{
			name:        "Invalid log level",
			mutate:      func(s *Sweep) { s.LogLevel = "invalid" },
			expectError: true,
		},
		{
			name:        "Empty run id",
			mutate:      func(s *Sweep) { s.RunID = "" },
			expectError: true,
		},
		{
			name:        "Run id with whitespace",
			mutate:      func(s *Sweep) { s.RunID = "H H" },
			expectError: true,
		},
		{
			name:        "Run id with glob metacharacter",
			mutate:      func(s *Sweep) { s.RunID = "HH*" },
			expectError: true,
		},
		{
			name:        "Missing meta key",
			mutate:      func(s *Sweep) { s.Params = s.Params[1:] },
			expectError: true,
		},
		{
			name:        "Unknown kind",
			mutate:      func(s *Sweep) { s.Params[3].Kind = "complex" },
			expectError: true,
		},
		{
			name: "Range over unknown param",
			mutate: func(s *Sweep) {
				s.Ranges = append(s.Ranges, RangeEntry{Name: "NOPE", Values: []any{1}})
			},
			expectError: true,
		},
		{
			name: "Range value of wrong kind",
			mutate: func(s *Sweep) {
				s.Ranges = []RangeEntry{{Name: "N_LAYER_1", Values: []any{1.5}}}
			},
			expectError: true,
		},
		{
			name:        "Bad dispatch mode",
			mutate:      func(s *Sweep) { s.Dispatch.Mode = "pbs" },
			expectError: true,
		},
		{
			name:        "Zero jobs per batch",
			mutate:      func(s *Sweep) { s.Dispatch.NPerJob = 0 },
			expectError: true,
		},
		{
			name:        "Bad poll interval",
			mutate:      func(s *Sweep) { s.Poll.Interval = "soon" },
			expectError: true,
		},
		{
			name:        "Zero window",
			mutate:      func(s *Sweep) { s.Collect.LastN = 0 },
			expectError: true,
		},
		{
			name:        "Unknown optimizer",
			mutate:      func(s *Sweep) { s.Optimize.Optimizer = "cma" },
			expectError: true,
		},
		{
			name:        "Unknown convergence",
			mutate:      func(s *Sweep) { s.Optimize.Convergence = "early" },
			expectError: true,
		},
		{
			name:        "Negative patience",
			mutate:      func(s *Sweep) { s.Optimize.Patience = -1 },
			expectError: true,
		},
		{
			name: "Plateau convergence",
			mutate: func(s *Sweep) {
				s.Optimize.Convergence = "plateau"
				s.Optimize.Patience = 3
			},
		},
		{
			name:        "Unknown store",
			mutate:      func(s *Sweep) { s.Store.Backend = "redis" },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(s)
			err := validateSweep(s)
			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	t.Setenv("PSWEEP_RUN_ID", "GK")
	t.Setenv("PSWEEP_DISPATCH_MODE", "local")
	t.Setenv("PSWEEP_OPTIMIZE_WORKERS", "4")
	t.Setenv("DATABRICKS_TOKEN", "secret")

	s := Default()
	if err := ApplyOverrides(NewViper(), s); err != nil {
		t.Fatalf("ApplyOverrides failed: %v", err)
	}
	if s.RunID != "GK" {
		t.Errorf("Expected run id GK, got %s", s.RunID)
	}
	if s.Dispatch.Mode != "local" {
		t.Errorf("Expected local mode, got %s", s.Dispatch.Mode)
	}
	if s.Optimize.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", s.Optimize.Workers)
	}
	if s.Tracking.DatabricksToken != "secret" {
		t.Error("Expected databricks token from environment")
	}

	t.Setenv("PSWEEP_LOG_LEVEL", "loud")
	if err := ApplyOverrides(NewViper(), Default()); err == nil {
		t.Error("Expected validation error for bad log level override")
	}
}
