package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. PSWEEP_RUN_ID.
const EnvPrefix = "PSWEEP"

// NewViper returns a viper instance reading PSWEEP_* environment variables.
// Nested keys map dots to underscores, so "dispatch.mode" reads PSWEEP_DISPATCH_MODE.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Databricks credentials keep their conventional names
	_ = v.BindEnv("tracking.databricks_host", "DATABRICKS_HOST", EnvPrefix+"_DATABRICKS_HOST")
	_ = v.BindEnv("tracking.databricks_token", "DATABRICKS_TOKEN", EnvPrefix+"_DATABRICKS_TOKEN")
	_ = v.BindEnv("tracking.tracking_uri", EnvPrefix+"_TRACKING_URI", "MLFLOW_TRACKING_URI")
	_ = v.BindEnv("tracking.experiment_id", EnvPrefix+"_EXPERIMENT_ID", "MLFLOW_EXPERIMENT_ID")
	return v
}

// ApplyOverrides copies every value set in v (env or bound flags) onto s and
// re-validates the result.
func ApplyOverrides(v *viper.Viper, s *Sweep) error {
	str := func(key string, dst *string) {
		if v.IsSet(key) && v.GetString(key) != "" {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) && v.GetInt(key) != 0 {
			*dst = v.GetInt(key)
		}
	}

	str("run_id", &s.RunID)
	str("config_dir", &s.ConfigDir)
	str("data_dir", &s.DataDir)
	str("log_level", &s.LogLevel)
	num("id_digits", &s.IDDigits)

	str("dispatch.mode", &s.Dispatch.Mode)
	str("dispatch.command", &s.Dispatch.Command)
	str("dispatch.script", &s.Dispatch.Script)
	str("dispatch.binary", &s.Dispatch.Binary)
	num("dispatch.n_per_job", &s.Dispatch.NPerJob)

	str("poll.interval", &s.Poll.Interval)
	num("poll.limit", &s.Poll.Limit)

	str("optimize.optimizer", &s.Optimize.Optimizer)
	str("optimize.objective", &s.Optimize.Objective)
	num("optimize.budget", &s.Optimize.Budget)
	num("optimize.workers", &s.Optimize.Workers)
	str("optimize.output", &s.Optimize.Output)
	str("optimize.convergence", &s.Optimize.Convergence)
	num("optimize.patience", &s.Optimize.Patience)
	str("optimize.callback_url", &s.Optimize.CallbackURL)
	str("optimize.callback_secret", &s.Optimize.CallbackSecret)

	str("store.backend", &s.Store.Backend)
	str("store.sqlite_path", &s.Store.SQLitePath)

	str("tracking.tracking_uri", &s.Tracking.TrackingURI)
	str("tracking.experiment_id", &s.Tracking.ExperimentID)
	str("tracking.databricks_host", &s.Tracking.DatabricksHost)
	str("tracking.databricks_token", &s.Tracking.DatabricksToken)

	if err := validateSweep(s); err != nil {
		return fmt.Errorf("invalid sweep after overrides: %w", err)
	}
	return nil
}
