// Package tracking exports sweep results to an MLflow tracking server,
// either a plain MLflow server or Databricks-hosted MLflow.
package tracking

import (
	"context"
	"fmt"
	"strings"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/GoSim-25-26J-441/psweep/pkg/config"
)

// Databricks domain suffixes for URL detection
var databricksDomains = []string{
	".cloud.databricks.com",
	".azuredatabricks.net",
	".gcp.databricks.com",
}

// ExperimentsAPI is the subset of the MLflow experiments service used for export
type ExperimentsAPI interface {
	CreateRun(ctx context.Context, request ml.CreateRun) (*ml.CreateRunResponse, error)
	LogParam(ctx context.Context, request ml.LogParam) error
	LogMetric(ctx context.Context, request ml.LogMetric) error
	UpdateRun(ctx context.Context, request ml.UpdateRun) (*ml.UpdateRunResponse, error)
}

// IsDatabricks checks if the tracking URI points to Databricks
func IsDatabricks(uri string) bool {
	if uri == "databricks" || strings.HasPrefix(uri, "databricks://") {
		return true
	}
	if strings.HasPrefix(uri, "https://") {
		host := strings.TrimPrefix(uri, "https://")
		if idx := strings.Index(host, "/"); idx != -1 {
			host = host[:idx]
		}
		for _, domain := range databricksDomains {
			if strings.HasSuffix(host, domain) {
				return true
			}
		}
	}
	return false
}

// databricksProfile extracts the profile name from a databricks://{profile} URI
func databricksProfile(uri string) string {
	if !strings.HasPrefix(uri, "databricks://") {
		return ""
	}
	profile := strings.TrimPrefix(uri, "databricks://")
	if idx := strings.Index(profile, "/"); idx != -1 {
		profile = profile[:idx]
	}
	return profile
}

// ClientConfig maps the tracking section onto a Databricks SDK config
func ClientConfig(cfg config.Tracking) (*databricks.Config, error) {
	if cfg.TrackingURI == "" {
		return nil, fmt.Errorf("tracking URI is required")
	}

	if !IsDatabricks(cfg.TrackingURI) {
		// plain MLflow servers ignore the token but the SDK requires one
		return &databricks.Config{
			Host:  cfg.TrackingURI,
			Token: "dummy-token-for-regular-mlflow",
		}, nil
	}

	dbc := &databricks.Config{}
	switch {
	case cfg.TrackingURI == "databricks":
		dbc.Host = cfg.DatabricksHost
	case databricksProfile(cfg.TrackingURI) != "":
		dbc.Profile = databricksProfile(cfg.TrackingURI)
	default:
		dbc.Host = cfg.TrackingURI
	}
	if cfg.DatabricksToken != "" {
		dbc.Token = cfg.DatabricksToken
	}
	if dbc.Host == "" && dbc.Profile == "" {
		return nil, fmt.Errorf("databricks host or profile is required: set DATABRICKS_HOST, use a workspace URL or databricks://{profile}")
	}
	return dbc, nil
}

// NewExporterFromConfig connects to the tracking server described by cfg
func NewExporterFromConfig(cfg config.Tracking) (*Exporter, error) {
	if cfg.ExperimentID == "" {
		return nil, fmt.Errorf("experiment ID must be provided")
	}
	dbc, err := ClientConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid tracking config: %w", err)
	}
	client, err := databricks.NewWorkspaceClient(dbc)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}
	return NewExporter(client.Experiments, cfg.ExperimentID), nil
}
