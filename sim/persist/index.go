package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// IndexFile is the default index name inside an output folder.
const IndexFile = "runs.sqlite"

// Entry is one row of the run index.
type Entry struct {
	RunID       string
	Dir         string
	Label       string // energy model and metal, e.g. "table-cn Pt"
	Temperature float64
	Iterations  int64
	Atoms       int
	Repetition  int
	Seed        int64
	Accepted    int64
	StartEnergy float64
	FinalEnergy float64
	BestEnergy  float64
	Elapsed     time.Duration
	RecordedAt  time.Time
}

// Filter narrows Best and List. Zero fields match everything.
type Filter struct {
	Label string
	Atoms int
}

// Index is a SQLite table of finished runs across output folders.
//
// Thread-safety: safe for concurrent use; the underlying pool holds a single connection.
type Index struct {
	db *sql.DB
}

// OpenIndex opens or creates the index at path.
func OpenIndex(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty index path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			dir TEXT NOT NULL,
			label TEXT NOT NULL,
			temperature REAL NOT NULL,
			iterations INTEGER NOT NULL,
			atoms INTEGER NOT NULL,
			repetition INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			accepted INTEGER NOT NULL,
			start_energy REAL NOT NULL,
			final_energy REAL NOT NULL,
			best_energy REAL NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_label_atoms_best ON runs(label, atoms, best_energy);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (x *Index) Close() error { return x.db.Close() }

// Record inserts e, replacing an existing row with the same run id.
func (x *Index) Record(ctx context.Context, e Entry) error {
	if e.RunID == "" {
		return fmt.Errorf("index: entry without run id")
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	_, err := x.db.ExecContext(ctx, `INSERT INTO runs
		(run_id, dir, label, temperature, iterations, atoms, repetition, seed, accepted,
		 start_energy, final_energy, best_energy, elapsed_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			dir=excluded.dir, label=excluded.label, temperature=excluded.temperature,
			iterations=excluded.iterations, atoms=excluded.atoms, repetition=excluded.repetition,
			seed=excluded.seed, accepted=excluded.accepted, start_energy=excluded.start_energy,
			final_energy=excluded.final_energy, best_energy=excluded.best_energy,
			elapsed_ms=excluded.elapsed_ms, recorded_at=excluded.recorded_at`,
		e.RunID, e.Dir, e.Label, e.Temperature, e.Iterations, e.Atoms, e.Repetition, e.Seed, e.Accepted,
		e.StartEnergy, e.FinalEnergy, e.BestEnergy, e.Elapsed.Milliseconds(),
		e.RecordedAt.UTC().Format(time.RFC3339Nano))
	return err
}

const selectColumns = `SELECT run_id, dir, label, temperature, iterations, atoms, repetition, seed,
	accepted, start_energy, final_energy, best_energy, elapsed_ms, recorded_at FROM runs`

func (f Filter) where() (string, []any) {
	clause := " WHERE 1=1"
	var args []any
	if f.Label != "" {
		clause += " AND label = ?"
		args = append(args, f.Label)
	}
	if f.Atoms > 0 {
		clause += " AND atoms = ?"
		args = append(args, f.Atoms)
	}
	return clause, args
}

// ErrNoRuns is returned by Best when no row matches.
var ErrNoRuns = errors.New("index: no matching runs")

// Best returns the matching run with the lowest best energy.
func (x *Index) Best(ctx context.Context, f Filter) (Entry, error) {
	clause, args := f.where()
	rows, err := x.query(ctx, selectColumns+clause+" ORDER BY best_energy ASC, recorded_at ASC LIMIT 1", args...)
	if err != nil {
		return Entry{}, err
	}
	if len(rows) == 0 {
		return Entry{}, ErrNoRuns
	}
	return rows[0], nil
}

// List returns up to limit matching runs ordered by best energy (limit <= 0 returns all).
func (x *Index) List(ctx context.Context, f Filter, limit int) ([]Entry, error) {
	clause, args := f.where()
	q := selectColumns + clause + " ORDER BY best_energy ASC, recorded_at ASC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return x.query(ctx, q, args...)
}

func (x *Index) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := x.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var elapsedMS int64
		var recorded string
		if err := rows.Scan(&e.RunID, &e.Dir, &e.Label, &e.Temperature, &e.Iterations, &e.Atoms,
			&e.Repetition, &e.Seed, &e.Accepted, &e.StartEnergy, &e.FinalEnergy, &e.BestEnergy,
			&elapsedMS, &recorded); err != nil {
			return nil, err
		}
		e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, recorded); err == nil {
			e.RecordedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
