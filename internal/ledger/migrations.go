package ledger

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    repo TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_repo ON runs(repo);

CREATE TABLE IF NOT EXISTS unit_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id),
    unit_name TEXT NOT NULL,
    script_path TEXT,
    status TEXT NOT NULL,
    stdout TEXT,
    stderr TEXT,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    UNIQUE(run_id, unit_name)
);

CREATE INDEX IF NOT EXISTS idx_unit_runs_run_id ON unit_runs(run_id);
CREATE INDEX IF NOT EXISTS idx_unit_runs_unit_name ON unit_runs(unit_name);
`
