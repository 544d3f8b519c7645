package config

// Default returns the built-in sweep: the Hodgkin-Huxley backprop network
// parameters with a four-way grid over the leak factors and conductances.
func Default() *Sweep {
	return &Sweep{
		RunID:     "HH",
		ConfigDir: "psweep/config",
		DataDir:   "../../psweep_data",
		IDDigits:  12,
		LogLevel:  "info",
		Params: []ParamEntry{
			{Name: "RUN_ID", Kind: "string", Default: "000"},
			{Name: "CONFIG_ID", Kind: "string", Default: "000000000000"},
			{Name: "DIRNAME", Kind: "string", Default: "NOT_PROCESSED"},

			{Name: "N_LAYER_0", Kind: "int", Default: 28 * 28},
			{Name: "N_LAYER_1", Kind: "int", Default: 100},
			{Name: "N_LAYER_2", Kind: "int", Default: 10},

			{Name: "DELTA_T", Kind: "float", Default: 0.03},
			{Name: "SIM_STEPS", Kind: "int", Default: 1000},

			{Name: "BATCH_SIZE", Kind: "int", Default: 5},
			{Name: "MAX_EPOCHS", Kind: "int", Default: 10},

			{Name: "COUPLING_HIDDEN", Kind: "float", Default: 500.0},
			{Name: "COUPLING_OUT", Kind: "float", Default: 500.0},
			{Name: "LEARNING_RATE", Kind: "int", Default: 10, Scale: "log"},
			{Name: "OUTPUT_SCALAR", Kind: "float", Default: 1.5},
			{Name: "LF_HIDDEN", Kind: "float", Default: 1.0, Scale: "log"},
			{Name: "LF_OUT", Kind: "float", Default: 10.0, Scale: "log"},
			{Name: "USE_BIAS", Kind: "float", Default: 0.0},
			{Name: "BETA_PHASE_2", Kind: "float", Default: 0.0},
			{Name: "NUM_SNIFFS", Kind: "int", Default: 1},

			{Name: "GNA", Kind: "float", Default: 120.0},
			{Name: "GK", Kind: "float", Default: 36.0},
			{Name: "GL", Kind: "float", Default: 0.3},
			{Name: "ENA", Kind: "float", Default: 115.0},
			{Name: "EK", Kind: "float", Default: -12.0},
			{Name: "EL", Kind: "float", Default: 10.613},
		},
		Ranges: []RangeEntry{
			{Name: "LF_OUT", Values: []any{0.1, 2.0}},
			{Name: "LF_HIDDEN", Values: []any{1.0, 20.0}},
			{Name: "GNA", Values: []any{100.0, 140.0}},
			{Name: "GK", Values: []any{30.0, 42.0}},
		},
		Dispatch: Dispatch{
			Mode:      "slurm",
			Script:    "myJobIndividual.sh",
			Binary:    "./hh_psweep",
			JobPrefix: "HH",
			NPerJob:   1,
		},
		Poll: Poll{
			Interval: "1s",
			Limit:    10000,
			Backoff:  "constant",
		},
		Collect: Collect{
			ConfigFile:     "config.txt",
			LossFile:       "loss.txt",
			PercentFile:    "percent0.txt",
			MarkerFile:     "DONE.txt",
			FirstN:         5,
			LastN:          5,
			EnableAccuracy: true,
		},
		Optimize: Optimize{
			Optimizer: "random",
			Objective: "accuracy",
			Budget:    10,
			Workers:   1,
			StepSize:  0.1,
			Output:    "NG_out.yaml",
		},
		Store: Store{
			Backend:    "memory",
			SQLitePath: "psweep.db",
		},
		Tracking: Tracking{
			TrackingURI: "http://localhost:5000",
		},
	}
}
