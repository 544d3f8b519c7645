package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/psweep/internal/metrics"
	"github.com/GoSim-25-26J-441/psweep/internal/storage"
	"github.com/GoSim-25-26J-441/psweep/pkg/config"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
	"github.com/GoSim-25-26J-441/psweep/pkg/utils"
)

// Metric names recorded by the orchestrator
const (
	MetricScore       = "optimize_score"
	MetricEvalSeconds = "optimize_eval_seconds"
)

// job is one simulator run. Every candidate hashing to the same config id
// shares it, so a config directory only ever sees one submission.
type job struct {
	done chan struct{}
	ev   Evaluation
	err  error
}

// Orchestrator runs an optimizer against the simulator with a fixed pool of
// concurrent evaluations. Asks and tells are serialized.
type Orchestrator struct {
	optimizer   Optimizer
	evaluator   *Evaluator
	convergence ConvergenceStrategy
	store       storage.Store
	collector   *metrics.Collector
	sessionID   string

	mu          sync.Mutex
	history     []Step
	evaluations []Evaluation
	configIDs   map[int]string
	jobs        map[string]*job
	reused      int
	converged   bool
	reason      string
}

// NewOrchestrator creates an orchestrator. A nil convergence strategy runs
// until the budget is spent.
func NewOrchestrator(opt Optimizer, ev *Evaluator, convergence ConvergenceStrategy) *Orchestrator {
	return &Orchestrator{
		optimizer:   opt,
		evaluator:   ev,
		convergence: convergence,
		collector:   metrics.NewCollector(),
		sessionID:   utils.GenerateSessionID(),
		configIDs:   make(map[int]string),
		jobs:        make(map[string]*job),
	}
}

// WithStore persists every finished evaluation into store
func (o *Orchestrator) WithStore(store storage.Store) *Orchestrator {
	o.store = store
	return o
}

// Collector returns the metrics recorded during Run
func (o *Orchestrator) Collector() *metrics.Collector { return o.collector }

// SessionID identifies this orchestrator's run in logs and result files
func (o *Orchestrator) SessionID() string { return o.sessionID }

func (o *Orchestrator) stopped() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.converged
}

// Run evaluates up to budget candidates with at most workers in flight.
// It stops early when the convergence strategy fires; evaluations already
// in flight still finish and are told. On cancellation the partial result
// is returned together with the context error.
func (o *Orchestrator) Run(ctx context.Context, budget, workers int) (*Result, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("budget must be positive, got %d", budget)
	}
	if workers <= 0 {
		workers = 1
	}

	log := logger.With("session_id", o.sessionID, "optimizer", o.optimizer.Name())
	log.Info("optimization started",
		"run_id", o.evaluator.RunID,
		"budget", budget,
		"workers", workers,
		"objective", o.evaluator.Objective.Name(),
	)

	start := time.Now()
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup

loop:
	for i := 0; i < budget; i++ {
		if o.stopped() {
			break
		}
		select {
		case <-ctx.Done():
			break loop
		case semaphore <- struct{}{}:
		}
		// convergence may have fired while waiting for a slot
		if o.stopped() {
			<-semaphore
			break
		}

		o.mu.Lock()
		cand, err := o.optimizer.Ask()
		o.mu.Unlock()
		if err != nil {
			<-semaphore
			wg.Wait()
			return nil, fmt.Errorf("failed to ask optimizer: %w", err)
		}

		_, id, err := o.evaluator.ConfigID(cand.Params)
		if err != nil {
			<-semaphore
			wg.Wait()
			return nil, fmt.Errorf("failed to derive config id: %w", err)
		}
		o.mu.Lock()
		j, dup := o.jobs[id]
		if !dup {
			j = &job{done: make(chan struct{})}
			o.jobs[id] = j
		}
		o.mu.Unlock()

		wg.Add(1)
		go func(c Candidate) {
			defer wg.Done()
			defer func() { <-semaphore }()
			if dup {
				o.reuse(ctx, c, id, j)
				return
			}
			o.evaluate(ctx, c, j)
		}(cand)
	}
	wg.Wait()

	result := o.buildResult(time.Since(start))
	log.Info("optimization finished",
		"evaluations", result.Evaluations,
		"reused", result.Reused,
		"best_score", result.BestScore,
		"best_config_id", result.BestConfigID,
		"converged", result.Converged,
	)
	if hc, ok := o.optimizer.(*HillClimb); ok {
		log.Debug("hill climb restarts", "restarts", hc.Restarts())
	}
	if agg := result.Scores; agg != nil {
		log.Info("score summary", "finite", agg.Count, "nan", agg.NaN, "min", agg.Min, "p50", agg.P50, "mean", agg.Mean, "std", agg.Std)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// evaluate runs the simulator for c and publishes the outcome on j
func (o *Orchestrator) evaluate(ctx context.Context, c Candidate, j *job) {
	ev, err := o.evaluator.Evaluate(ctx, c.Params)
	j.ev, j.err = ev, err
	close(j.done)
	if cancelled(err) {
		logger.Warn("evaluation cancelled", "candidate", c.ID, "error", err)
		return
	}
	if err != nil {
		logger.Error("evaluation failed", "candidate", c.ID, "config_id", ev.ConfigID, "error", err)
		ev.Score = math.NaN()
	}

	o.mu.Lock()
	o.evaluations = append(o.evaluations, ev)
	o.tellLocked(c, ev.ConfigID, ev.Score)
	o.mu.Unlock()

	labels := map[string]string{"optimizer": o.optimizer.Name(), "state": string(ev.State)}
	o.collector.Record(MetricScore, ev.Score, ev.Finished, labels)
	o.collector.Record(MetricEvalSeconds, ev.Finished.Sub(ev.Started).Seconds(), ev.Finished, labels)

	if o.store != nil {
		rec := storage.Evaluation{
			RunID:     o.evaluator.RunID,
			ConfigID:  ev.ConfigID,
			Params:    formatSet(c.Params),
			Score:     ev.Score,
			Status:    string(ev.State),
			CreatedAt: ev.Finished,
		}
		if err := o.store.SaveEvaluation(ctx, rec); err != nil {
			logger.Warn("failed to persist evaluation", "config_id", ev.ConfigID, "error", err)
		}
	}
}

// reuse tells c the score of the job already owning its config id, waiting
// for it when still in flight. Nothing is submitted.
func (o *Orchestrator) reuse(ctx context.Context, c Candidate, id string, j *job) {
	select {
	case <-j.done:
	case <-ctx.Done():
		logger.Warn("evaluation cancelled", "candidate", c.ID, "config_id", id, "error", ctx.Err())
		return
	}
	if cancelled(j.err) {
		return
	}
	score := j.ev.Score
	if j.err != nil {
		score = math.NaN()
	}
	logger.Info("config already evaluated, reusing score", "candidate", c.ID, "config_id", id, "score", score)

	o.mu.Lock()
	o.reused++
	o.tellLocked(c, id, score)
	o.mu.Unlock()
}

// tellLocked reports score to the optimizer and checks convergence. o.mu must be held.
func (o *Orchestrator) tellLocked(c Candidate, configID string, score float64) {
	o.optimizer.Tell(c, score)
	o.configIDs[c.ID] = configID
	o.history = append(o.history, Step{Index: len(o.history), ConfigID: configID, Score: score})
	if o.convergence != nil && !o.converged {
		if ok, reason := o.convergence.CheckConvergence(o.history); ok {
			o.converged = true
			o.reason = reason
			logger.Info("optimization converged", "strategy", o.convergence.Name(), "reason", reason)
		}
	}
}

func (o *Orchestrator) buildResult(elapsed time.Duration) *Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	r := &Result{
		SessionID: o.sessionID,
		RunID:     o.evaluator.RunID,
		Optimizer: o.optimizer.Name(),
		Objective: o.evaluator.Objective.Name(),
		BestScore: math.NaN(),
		Converged: o.converged,
		Reason:    o.reason,
		Duration:  elapsed.Round(time.Millisecond).String(),
		Scores:    o.collector.Aggregate(MetricScore),
		Reused:    o.reused,
	}
	if !o.converged {
		r.Reason = "budget exhausted"
	}
	for _, ev := range o.evaluations {
		r.Evaluations++
		switch ev.State {
		case StateTimedOut:
			r.TimedOut++
		case StateFailed:
			r.Failed++
		}
		r.History = append(r.History, ResultStep{ConfigID: ev.ConfigID, Score: ev.Score, State: string(ev.State)})
	}
	if best, score, ok := o.optimizer.Best(); ok {
		r.BestScore = score
		r.BestParams = formatSet(best.Params)
		r.BestConfigID = o.configIDs[best.ID]
	}
	return r
}

// FromConfig assembles an orchestrator from the optimize, collect and
// poll sections of a sweep.
func FromConfig(s *config.Sweep, submitter Submitter, waiter Waiter) (*Orchestrator, error) {
	schema, err := s.Schema()
	if err != nil {
		return nil, err
	}
	ranges, err := s.ParamRanges(schema)
	if err != nil {
		return nil, err
	}
	space, err := NewSpace(schema, ranges)
	if err != nil {
		return nil, fmt.Errorf("failed to build search space: %w", err)
	}
	opt, err := New(s.Optimize.Optimizer, space, s.Optimize.Seed, s.Optimize.StepSize)
	if err != nil {
		return nil, err
	}
	if hc, ok := opt.(*HillClimb); ok && s.Optimize.Patience > 0 {
		hc.Patience = s.Optimize.Patience
	}
	objective, err := NewObjective(s.Optimize.Objective, s.Collect)
	if err != nil {
		return nil, err
	}
	convergence, err := NewConvergenceStrategy(s.Optimize.Convergence, s.Optimize.Patience)
	if err != nil {
		return nil, err
	}

	ev := &Evaluator{
		Schema:     schema,
		RunID:      s.RunID,
		ConfigDir:  s.ConfigDir,
		DataDir:    s.DataDir,
		IDDigits:   s.IDDigits,
		MarkerFile: s.Collect.MarkerFile,
		Submitter:  submitter,
		Waiter:     waiter,
		Objective:  objective,
	}
	return NewOrchestrator(opt, ev, convergence), nil
}
