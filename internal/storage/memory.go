package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/GoSim-25-26J-441/psweep/internal/results"
)

// MemoryStore keeps encoded tables in process memory
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	tables      map[string][]byte
	evaluations map[string][]Evaluation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.tables = make(map[string][]byte)
	s.evaluations = make(map[string][]Evaluation)
	return nil
}

// SaveTable stores an encoded copy so later mutation of table is not visible.
func (s *MemoryStore) SaveTable(_ context.Context, table *results.Table) error {
	payload, err := json.Marshal(table)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.tables[table.RunID] = payload
	return nil
}

func (s *MemoryStore) GetTable(_ context.Context, runID string) (*results.Table, bool, error) {
	s.mu.RLock()
	payload, ok := s.tables[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	t := &results.Table{}
	if err := json.Unmarshal(payload, t); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]string, 0, len(s.tables))
	for id := range s.tables {
		runs = append(runs, id)
	}
	sort.Strings(runs)
	return runs, nil
}

func (s *MemoryStore) SaveEvaluation(_ context.Context, ev Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.evaluations[ev.RunID] = append(s.evaluations[ev.RunID], ev)
	return nil
}

func (s *MemoryStore) ListEvaluations(_ context.Context, runID string) ([]Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Evaluation(nil), s.evaluations[runID]...), nil
}
