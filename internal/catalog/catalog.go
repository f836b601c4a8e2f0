// Package catalog persists run history to a SQLite database inside the
// destination directory, so downstream tooling can answer "what was
// converted, when, and how did it go" without reopening containers.
// The registry itself stays per-run in-memory state; the catalog is the
// only thing that survives between runs.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BlueQuartzSoftware/TDMSData-CDME/reorg"
)

// FileName is the catalog database inside a destination directory.
const FileName = "catalog.db"

// Catalog wraps the destination's history database.
type Catalog struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id           TEXT PRIMARY KEY,
	label            TEXT NOT NULL DEFAULT '',
	source           TEXT NOT NULL,
	phase            TEXT NOT NULL,
	started_ns       INTEGER NOT NULL,
	elapsed_ns       INTEGER NOT NULL,
	slices_located   INTEGER NOT NULL,
	slices_processed INTEGER NOT NULL,
	parts            INTEGER NOT NULL,
	error            TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_ns);

CREATE TABLE IF NOT EXISTS parts (
	run_id        TEXT NOT NULL REFERENCES runs(run_id),
	part          TEXT NOT NULL,
	slices        INTEGER NOT NULL,
	first_ordinal INTEGER NOT NULL,
	last_ordinal  INTEGER NOT NULL,
	missing       INTEGER NOT NULL,
	PRIMARY KEY (run_id, part)
);

CREATE TABLE IF NOT EXISTS slice_errors (
	run_id  TEXT NOT NULL REFERENCES runs(run_id),
	ordinal INTEGER NOT NULL,
	path    TEXT NOT NULL,
	error   TEXT NOT NULL,
	PRIMARY KEY (run_id, ordinal)
);
`

// Open opens (or creates) the catalog under dir and ensures the schema.
func Open(dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("preparing catalog directory: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the database handle.
func (c *Catalog) Close() error { return c.db.Close() }

// Record stores one finished run, successful or failed, in a single
// transaction. Each run ID is recorded once.
func (c *Catalog) Record(ctx context.Context, sum *reorg.Summary) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, label, source, phase, started_ns, elapsed_ns,
		                  slices_located, slices_processed, parts, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.Label, sum.Source, string(sum.Phase),
		sum.Started.UnixNano(), int64(sum.Elapsed),
		sum.SlicesLocated, sum.SlicesProcessed, len(sum.Parts), sum.Error,
	); err != nil {
		return fmt.Errorf("catalog: recording run %s: %w", sum.RunID, err)
	}

	for _, p := range sum.Parts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO parts (run_id, part, slices, first_ordinal, last_ordinal, missing)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sum.RunID, p.ID, p.Slices, p.First, p.Last, p.Missing,
		); err != nil {
			return fmt.Errorf("catalog: recording part %q: %w", p.ID, err)
		}
	}

	for _, sk := range sum.Skipped {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO slice_errors (run_id, ordinal, path, error)
			VALUES (?, ?, ?, ?)`,
			sum.RunID, sk.Ordinal, sk.Path, sk.Reason,
		); err != nil {
			return fmt.Errorf("catalog: recording slice error %d: %w", sk.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return nil
}

// Run is one recorded run.
type Run struct {
	ID              string
	Label           string
	Source          string
	Phase           string
	Started         time.Time
	Elapsed         time.Duration
	SlicesLocated   int
	SlicesProcessed int
	Parts           int
	Error           string
}

// Runs lists history, newest first. A limit of zero or less lists
// everything.
func (c *Catalog) Runs(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT run_id, label, source, phase, started_ns, elapsed_ns,
	             slices_located, slices_processed, parts, error
	      FROM runs ORDER BY started_ns DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, elapsed int64
		if err := rows.Scan(&r.ID, &r.Label, &r.Source, &r.Phase, &started, &elapsed,
			&r.SlicesLocated, &r.SlicesProcessed, &r.Parts, &r.Error); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		r.Started = time.Unix(0, started).UTC()
		r.Elapsed = time.Duration(elapsed)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Part is one per-part row of a recorded run.
type Part struct {
	Part    string
	Slices  int
	First   int
	Last    int
	Missing int
}

// PartsOf lists a run's parts by identifier.
func (c *Catalog) PartsOf(ctx context.Context, runID string) ([]Part, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT part, slices, first_ordinal, last_ordinal, missing
		FROM parts WHERE run_id = ? ORDER BY part`, runID)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer rows.Close()

	var out []Part
	for rows.Next() {
		var p Part
		if err := rows.Scan(&p.Part, &p.Slices, &p.First, &p.Last, &p.Missing); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SliceError is one skipped-slice row of a recorded run.
type SliceError struct {
	Ordinal int
	Path    string
	Error   string
}

// SliceErrorsOf lists a run's skipped slices by ordinal.
func (c *Catalog) SliceErrorsOf(ctx context.Context, runID string) ([]SliceError, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT ordinal, path, error
		FROM slice_errors WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer rows.Close()

	var out []SliceError
	for rows.Next() {
		var se SliceError
		if err := rows.Scan(&se.Ordinal, &se.Path, &se.Error); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		out = append(out, se)
	}
	return out, rows.Err()
}
