package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/psweep/internal/results"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveTable(ctx context.Context, table *results.Table) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(table)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO result_tables (run_id, row_count, skipped, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			row_count = excluded.row_count,
			skipped = excluded.skipped,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, table.RunID, table.Len(), table.Skipped, payload, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) GetTable(ctx context.Context, runID string) (*results.Table, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM result_tables WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	t := &results.Table{}
	if err := json.Unmarshal(payload, t); err != nil {
		return nil, false, fmt.Errorf("decode table %s: %w", runID, err)
	}
	return t, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT run_id FROM result_tables ORDER BY run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// SaveEvaluation appends an evaluation. NaN scores are stored as NULL.
func (s *SQLiteStore) SaveEvaluation(ctx context.Context, ev Evaluation) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(ev.Params)
	if err != nil {
		return err
	}
	var score sql.NullFloat64
	if !math.IsNaN(ev.Score) && !math.IsInf(ev.Score, 0) {
		score = sql.NullFloat64{Float64: ev.Score, Valid: true}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO evaluations (run_id, config_id, params, score, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.RunID, ev.ConfigID, payload, score, ev.Status, ev.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, runID string) ([]Evaluation, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT config_id, params, score, status, created_at
		FROM evaluations WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		var (
			ev      = Evaluation{RunID: runID}
			payload []byte
			score   sql.NullFloat64
			created string
		)
		if err := rows.Scan(&ev.ConfigID, &payload, &score, &ev.Status, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &ev.Params); err != nil {
			return nil, fmt.Errorf("decode evaluation %s: %w", ev.ConfigID, err)
		}
		ev.Score = math.NaN()
		if score.Valid {
			ev.Score = score.Float64
		}
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS result_tables (
			run_id TEXT PRIMARY KEY,
			row_count INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			payload BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS evaluations (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			config_id TEXT NOT NULL,
			params BLOB NOT NULL,
			score REAL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS evaluations_run ON evaluations (run_id);
	`)
	return err
}
