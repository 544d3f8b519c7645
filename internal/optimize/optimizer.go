// Package optimize drives optimizer-guided sweeps: an ask/tell optimizer
// proposes parameter sets, evaluators run the simulator on them, and the
// orchestrator feeds scores back until the budget is spent.
package optimize

import (
	"fmt"
	"math"
	"sync"

	"github.com/GoSim-25-26J-441/psweep/internal/params"
	"github.com/GoSim-25-26J-441/psweep/pkg/utils"
)

// Candidate is one proposed point of the search space
type Candidate struct {
	ID     int
	Params params.Set
}

// Optimizer proposes candidates and learns from their scores.
// Lower scores are better; NaN ranks worst.
type Optimizer interface {
	// Ask returns the next candidate to evaluate
	Ask() (Candidate, error)
	// Tell reports the score of a candidate returned by Ask
	Tell(c Candidate, score float64)
	// Best returns the best candidate told so far
	Best() (Candidate, float64, bool)
	// Name returns the name of the optimizer
	Name() string
}

// Better reports whether score a beats score b.
func Better(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	return math.IsNaN(b) || a < b
}

// New creates an optimizer by name: "random" or "hillclimb".
func New(name string, space *Space, seed int64, stepSize float64) (Optimizer, error) {
	switch name {
	case "random", "":
		return NewRandomSearch(space, seed), nil
	case "hillclimb":
		return NewHillClimb(space, seed, stepSize), nil
	default:
		return nil, fmt.Errorf("unknown optimizer: %s", name)
	}
}

// tracker keeps the incumbent of an optimizer
type tracker struct {
	mu        sync.RWMutex
	next      int
	best      Candidate
	bestScore float64
	told      bool
}

func (t *tracker) issue(set params.Set) Candidate {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := Candidate{ID: t.next, Params: set}
	t.next++
	return c
}

// record returns true when c became the new incumbent
func (t *tracker) record(c Candidate, score float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.told || Better(score, t.bestScore) {
		t.best = Candidate{ID: c.ID, Params: c.Params.Clone()}
		t.bestScore = score
		t.told = true
		return true
	}
	return false
}

func (t *tracker) Best() (Candidate, float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.told {
		return Candidate{}, math.NaN(), false
	}
	return Candidate{ID: t.best.ID, Params: t.best.Params.Clone()}, t.bestScore, true
}

// RandomSearch samples the space independently on every ask
type RandomSearch struct {
	tracker
	space *Space
	rng   *utils.RandSource
}

// NewRandomSearch creates a seeded random search. Zero seeds from the clock.
func NewRandomSearch(space *Space, seed int64) *RandomSearch {
	return &RandomSearch{space: space, rng: utils.NewRandSource(seed)}
}

func (r *RandomSearch) Name() string { return "random" }

func (r *RandomSearch) Ask() (Candidate, error) {
	return r.issue(r.space.Sample(r.rng)), nil
}

func (r *RandomSearch) Tell(c Candidate, score float64) {
	r.record(c, score)
}

// HillClimb moves to the best neighbor found so far. Neighbors are drawn
// around the current point with the given step size in unit space; after
// Patience tells without improvement it restarts from a random point.
type HillClimb struct {
	tracker
	space    *Space
	rng      *utils.RandSource
	stepSize float64
	Patience int

	mu           sync.Mutex
	current      params.Set
	currentScore float64
	stale        int
	restarts     int
}

// NewHillClimb creates a seeded hill climber
func NewHillClimb(space *Space, seed int64, stepSize float64) *HillClimb {
	if stepSize <= 0 {
		stepSize = 0.1
	}
	return &HillClimb{
		space:        space,
		rng:          utils.NewRandSource(seed),
		stepSize:     stepSize,
		Patience:     5,
		currentScore: math.NaN(),
	}
}

func (h *HillClimb) Name() string { return "hillclimb" }

func (h *HillClimb) Ask() (Candidate, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Until a score is known there is nothing to climb from
	if h.current == nil {
		return h.issue(h.space.Sample(h.rng)), nil
	}
	return h.issue(h.space.Neighbor(h.current, h.stepSize, h.rng)), nil
}

func (h *HillClimb) Tell(c Candidate, score float64) {
	h.record(c, score)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil || Better(score, h.currentScore) {
		h.current = c.Params.Clone()
		h.currentScore = score
		h.stale = 0
		return
	}

	h.stale++
	if h.Patience > 0 && h.stale >= h.Patience {
		h.current = h.space.Sample(h.rng)
		h.currentScore = math.NaN()
		h.stale = 0
		h.restarts++
	}
}

// Restarts returns how many random restarts happened
func (h *HillClimb) Restarts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.restarts
}
