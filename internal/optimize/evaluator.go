package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/GoSim-25-26J-441/psweep/internal/dispatch"
	"github.com/GoSim-25-26J-441/psweep/internal/params"
	"github.com/GoSim-25-26J-441/psweep/internal/sweep"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

// State is the lifecycle stage of a single evaluation
type State string

const (
	StateIdle          State = "idle"
	StateConfigWritten State = "config_written"
	StateJobSubmitted  State = "job_submitted"
	StatePolling       State = "polling"
	StateScoreRead     State = "score_read"
	StateTimedOut      State = "timed_out"
	StateFailed        State = "failed"
)

// placeholder written into CONFIG_ID and DIRNAME while hashing
const hashPlaceholder = "NULL"

// Submitter launches the simulator on one written config
type Submitter interface {
	SubmitConfig(ctx context.Context, runID, configID string) error
}

// Waiter blocks until a completion marker exists
type Waiter interface {
	Wait(ctx context.Context, path string) error
}

// Evaluation is the outcome of evaluating one parameter set
type Evaluation struct {
	ConfigID string
	Dir      string
	Params   params.Set
	Score    float64
	State    State
	Started  time.Time
	Finished time.Time
	Err      error
}

// Evaluator writes a hash-identified config, submits it, waits for the
// completion marker and reads the score.
type Evaluator struct {
	Schema     *params.Schema
	RunID      string
	ConfigDir  string
	DataDir    string
	IDDigits   int
	MarkerFile string
	Submitter  Submitter
	Waiter     Waiter
	Objective  Objective
}

// ConfigID derives the identifier of set under this evaluator's run:
// meta keys are fixed to the run id and the NULL placeholder before hashing.
func (e *Evaluator) ConfigID(set params.Set) (params.Set, string, error) {
	full, err := e.Schema.Complete(set)
	if err != nil {
		return nil, "", err
	}
	full[params.KeyRunID] = params.String(e.RunID)
	full[params.KeyConfigID] = params.String(hashPlaceholder)
	full[params.KeyDirName] = params.String(hashPlaceholder)

	id := params.HashID(full, e.Schema.Names(), e.IDDigits)
	sweep.Fill(full, e.RunID, id)
	return full, id, nil
}

// Evaluate runs set through the simulator. Only a cancelled context or a
// local failure (config write, submit) is returned as an error; a poll
// timeout yields the objective's timeout score.
func (e *Evaluator) Evaluate(ctx context.Context, set params.Set) (Evaluation, error) {
	ev := Evaluation{State: StateIdle, Started: time.Now(), Score: math.NaN()}
	finish := func(state State, err error) (Evaluation, error) {
		ev.State = state
		ev.Err = err
		ev.Finished = time.Now()
		return ev, err
	}

	full, id, err := e.ConfigID(set)
	if err != nil {
		return finish(StateFailed, fmt.Errorf("failed to complete parameters: %w", err))
	}
	ev.Params = full
	ev.ConfigID = id
	ev.Dir = filepath.Join(e.DataDir, sweep.DirName(e.RunID, id))
	log := logger.ForConfig(e.RunID, id)

	if err := os.MkdirAll(e.ConfigDir, 0o755); err != nil {
		return finish(StateFailed, fmt.Errorf("failed to create config dir: %w", err))
	}
	path := filepath.Join(e.ConfigDir, sweep.ConfigFileName(e.RunID, id))
	if err := params.WriteConfigFile(path, full, e.Schema.Names()); err != nil {
		return finish(StateFailed, err)
	}
	ev.State = StateConfigWritten
	log.Debug("config written", "path", path)

	if err := e.Submitter.SubmitConfig(ctx, e.RunID, id); err != nil {
		return finish(StateFailed, fmt.Errorf("failed to submit config %s: %w", id, err))
	}
	ev.State = StateJobSubmitted

	ev.State = StatePolling
	marker := filepath.Join(ev.Dir, e.MarkerFile)
	if err := e.Waiter.Wait(ctx, marker); err != nil {
		if errors.Is(err, dispatch.ErrPollTimeout) {
			log.Warn("ABORTING: process took too long", "marker", marker, "score", e.Objective.TimeoutScore())
			ev.Score = e.Objective.TimeoutScore()
			return finish(StateTimedOut, nil)
		}
		return finish(StateFailed, err)
	}

	ev.Score = e.Objective.Score(ev.Dir)
	log.Info("evaluation finished", "dir", ev.Dir, e.Objective.Name(), ev.Score)
	return finish(StateScoreRead, nil)
}
