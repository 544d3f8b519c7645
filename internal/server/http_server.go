// Package server exposes sweep progress and results over HTTP and reports
// process health over the standard gRPC health protocol.
package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/GoSim-25-26J-441/psweep/internal/collect"
	"github.com/GoSim-25-26J-441/psweep/internal/dispatch"
	"github.com/GoSim-25-26J-441/psweep/internal/params"
	"github.com/GoSim-25-26J-441/psweep/internal/results"
	"github.com/GoSim-25-26J-441/psweep/internal/storage"
	"github.com/GoSim-25-26J-441/psweep/pkg/config"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

type HTTPServer struct {
	mux    *http.ServeMux
	sweep  *config.Sweep
	schema *params.Schema
	store  storage.Store
}

// NewHTTPServer serves the sweeps laid out by s. Collected tables are
// cached in store.
func NewHTTPServer(s *config.Sweep, store storage.Store) (*HTTPServer, error) {
	schema, err := s.Schema()
	if err != nil {
		return nil, err
	}
	srv := &HTTPServer{
		mux:    http.NewServeMux(),
		sweep:  s,
		schema: schema,
		store:  store,
	}

	srv.mux.HandleFunc("GET /healthz", srv.handleHealthz)
	srv.mux.HandleFunc("GET /v1/sweeps", srv.handleListSweeps)
	srv.mux.HandleFunc("GET /v1/sweeps/{run_id}/progress", srv.handleProgress)
	srv.mux.HandleFunc("GET /v1/sweeps/{run_id}/results", srv.handleResults)
	srv.mux.HandleFunc("GET /v1/sweeps/{run_id}/ranges", srv.handleRanges)
	srv.mux.HandleFunc("GET /v1/sweeps/{run_id}/evaluations", srv.handleEvaluations)

	return srv, nil
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListSweeps lists the run ids with a stored result table
func (s *HTTPServer) handleListSweeps(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleProgress compares generated configs with runs that wrote their marker
func (s *HTTPServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")

	configs, err := dispatch.CountConfigs(s.sweep.ConfigDir, runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dirs, err := collect.RunDirs(s.sweep.DataDir, runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	done := 0
	for _, dir := range dirs {
		if _, err := os.Stat(filepath.Join(dir, s.sweep.Collect.MarkerFile)); err == nil {
			done++
		}
	}

	pending := configs - done
	if pending < 0 {
		pending = 0
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  runID,
		"configs": configs,
		"started": len(dirs),
		"done":    done,
		"pending": pending,
	})
}

// table returns the stored table of runID, collecting and storing it on a
// miss or when refresh is requested.
func (s *HTTPServer) table(r *http.Request, runID string) (*results.Table, error) {
	ctx := r.Context()
	if r.URL.Query().Get("refresh") != "true" {
		t, err := storage.LookupTable(ctx, s.store, runID)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, storage.ErrRunNotFound) {
			return nil, err
		}
	}

	opts := collect.OptionsFromConfig(s.sweep)
	opts.RunID = runID
	t, err := collect.Collect(ctx, s.schema, opts)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveTable(ctx, t); err != nil {
		logger.Warn("failed to cache result table", "run_id", runID, "error", err)
	}
	return t, nil
}

func (s *HTTPServer) handleResults(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	q := r.URL.Query()

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit: "+v)
			return
		}
		limit = n
	}

	table, err := s.table(r, runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if col := q.Get("sort"); col != "" {
		desc := q.Get("desc") == "true"
		sorted, err := table.SortBy(col, desc)
		if err != nil {
			if errors.Is(err, results.ErrUnknownColumn) {
				s.writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		table = sorted
	}
	if limit > 0 {
		table = table.Top(limit)
	}
	s.writeJSON(w, http.StatusOK, table)
}

func (s *HTTPServer) handleRanges(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	table, err := s.table(r, runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	report := table.Ranges(results.DefaultTolerance)
	variable := make(map[string][]string, len(report.Variable))
	for _, rg := range report.Variable {
		vals := make([]string, len(rg.Values))
		for i, v := range rg.Values {
			vals[i] = v.Format()
		}
		variable[rg.Name] = vals
	}
	constant := make(map[string]string, len(report.Constant))
	for k, v := range report.Constant {
		constant[k] = v.Format()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":   runID,
		"rows":     table.Len(),
		"variable": variable,
		"constant": constant,
	})
}

func (s *HTTPServer) handleEvaluations(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	evals, err := s.store.ListEvaluations(r.Context(), runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]map[string]any, 0, len(evals))
	for _, ev := range evals {
		// NaN has no JSON encoding
		var score any
		if !math.IsNaN(ev.Score) {
			score = ev.Score
		}
		out = append(out, map[string]any{
			"config_id":  ev.ConfigID,
			"params":     ev.Params,
			"score":      score,
			"status":     ev.Status,
			"created_at": ev.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "evaluations": out})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
