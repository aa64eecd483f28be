// Package ledger persists execution history as an append-only log of runs
// and per-unit outcomes. Nothing in a closed run is ever updated or
// deleted; corrections are new runs.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hornetlabs/hornet/internal/unit"
)

// Store provides SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// New opens (and if needed creates) the ledger database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection: the foreign_keys pragma is per-connection, and all
	// writes funnel through the single-writer queue anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun opens a new execution batch for a repository.
func (s *Store) CreateRun(repo string) (*unit.Run, error) {
	run := &unit.Run{
		ID:        uuid.NewString(),
		Repo:      repo,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(`INSERT INTO runs (id, repo, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Repo, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	return run, nil
}

// AppendUnitRun records one unit outcome within a run. Records are
// insert-only; attempting to append the same (run, unit) twice is an error.
func (s *Store) AppendUnitRun(r unit.UnitRun) error {
	_, err := s.db.Exec(`
		INSERT INTO unit_runs (run_id, unit_name, script_path, status, stdout, stderr, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID,
		r.UnitName,
		r.ScriptPath,
		string(r.Status),
		r.Stdout,
		r.Stderr,
		r.Duration.Milliseconds(),
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending unit run: %w", err)
	}
	return nil
}

// CloseRun stamps the run's finish time. A run closed before every
// scheduled script completed is a valid partial run; its unit_runs simply
// stop growing.
func (s *Store) CloseRun(runID string) error {
	_, err := s.db.Exec(`UPDATE runs SET finished_at = ? WHERE id = ?`, time.Now().UTC(), runID)
	return err
}

// LatestRun returns the most recently started run for a repository, or nil
// when the repository has never been executed.
func (s *Store) LatestRun(repo string) (*unit.Run, error) {
	row := s.db.QueryRow(`
		SELECT id, repo, started_at, finished_at FROM runs
		WHERE repo = ? ORDER BY started_at DESC LIMIT 1
	`, repo)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// GetRun returns a run by ID.
func (s *Store) GetRun(id string) (*unit.Run, error) {
	row := s.db.QueryRow(`SELECT id, repo, started_at, finished_at FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns up to limit runs for a repository, newest first.
func (s *Store) ListRuns(repo string, limit int) ([]*unit.Run, error) {
	rows, err := s.db.Query(`
		SELECT id, repo, started_at, finished_at FROM runs
		WHERE repo = ? ORDER BY started_at DESC LIMIT ?
	`, repo, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*unit.Run
	for rows.Next() {
		var run unit.Run
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.Repo, &run.StartedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// UnitRuns returns all outcomes recorded for one run, ordered by unit name.
func (s *Store) UnitRuns(runID string) ([]unit.UnitRun, error) {
	rows, err := s.db.Query(`
		SELECT run_id, unit_name, script_path, status, stdout, stderr, duration_ms, created_at
		FROM unit_runs WHERE run_id = ? ORDER BY unit_name
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUnitRuns(rows)
}

// LatestPerUnit returns each unit's most recent outcome across a
// repository's whole history, ordered by unit name.
func (s *Store) LatestPerUnit(repo string) ([]unit.UnitRun, error) {
	rows, err := s.db.Query(`
		SELECT ur.run_id, ur.unit_name, ur.script_path, ur.status, ur.stdout, ur.stderr, ur.duration_ms, ur.created_at
		FROM unit_runs ur
		JOIN runs r ON r.id = ur.run_id
		WHERE r.repo = ?
		  AND ur.id = (
			SELECT ur2.id FROM unit_runs ur2
			JOIN runs r2 ON r2.id = ur2.run_id
			WHERE r2.repo = r.repo AND ur2.unit_name = ur.unit_name
			ORDER BY ur2.created_at DESC LIMIT 1
		  )
		ORDER BY ur.unit_name
	`, repo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUnitRuns(rows)
}

// History returns a unit's outcomes across the last limit runs, newest
// first. This backs "has unit X regressed" trend queries without
// re-execution.
func (s *Store) History(repo, unitName string, limit int) ([]unit.UnitRun, error) {
	rows, err := s.db.Query(`
		SELECT ur.run_id, ur.unit_name, ur.script_path, ur.status, ur.stdout, ur.stderr, ur.duration_ms, ur.created_at
		FROM unit_runs ur
		JOIN runs r ON r.id = ur.run_id
		WHERE r.repo = ? AND ur.unit_name = ?
		ORDER BY ur.created_at DESC LIMIT ?
	`, repo, unitName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUnitRuns(rows)
}

func scanRun(row *sql.Row) (*unit.Run, error) {
	var run unit.Run
	var finished sql.NullTime
	if err := row.Scan(&run.ID, &run.Repo, &run.StartedAt, &finished); err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

func scanUnitRuns(rows *sql.Rows) ([]unit.UnitRun, error) {
	var out []unit.UnitRun
	for rows.Next() {
		var r unit.UnitRun
		var status string
		var durationMs int64
		err := rows.Scan(&r.RunID, &r.UnitName, &r.ScriptPath, &status, &r.Stdout, &r.Stderr, &durationMs, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		r.Status = unit.RunStatus(status)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}
