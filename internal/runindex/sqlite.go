// Package runindex keeps a sqlite summary of visualization sessions.
package runindex

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"warehouse-viz/internal/snapshot"
)

// Index is a sqlite-backed run index. Writes are synchronous; one session
// issues at most one write per fetch cycle.
type Index struct {
	db *sql.DB
}

// Run is one row of the runs table.
type Run struct {
	ID           uuid.UUID
	Source       string
	Config       snapshot.SimulationConfig
	StartedAt    time.Time
	FinishedAt   *time.Time
	FinalStep    int
	DroppedBoxes int
	Cycles       int
	Failures     int
}

// Open opens or creates the index at path.
func Open(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
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
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
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
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			agents INTEGER NOT NULL,
			boxes INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			max_shelves INTEGER NOT NULL,
			max_steps INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			final_step INTEGER,
			dropped_boxes INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS cycles (
			run_id TEXT NOT NULL REFERENCES runs(id),
			cycle INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			current_step INTEGER,
			dropped_boxes INTEGER,
			agents INTEGER NOT NULL,
			obstacles INTEGER NOT NULL,
			error TEXT,
			PRIMARY KEY (run_id, cycle)
		);`,
		`CREATE INDEX IF NOT EXISTS cycles_failed ON cycles(run_id) WHERE error IS NOT NULL;`,
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

// StartRun inserts a run row.
func (x *Index) StartRun(run uuid.UUID, cfg snapshot.SimulationConfig, source string) error {
	_, err := x.db.Exec(
		`INSERT INTO runs(id,source,agents,boxes,width,height,max_shelves,max_steps,started_at) VALUES(?,?,?,?,?,?,?,?,?)`,
		run.String(), source, cfg.Agents, cfg.Boxes, cfg.Width, cfg.Height, cfg.MaxShelves, cfg.MaxSteps, now(),
	)
	if err != nil {
		return fmt.Errorf("start run %s: %w", run, err)
	}
	return nil
}

// RecordCycle stores the outcome of one fetch cycle. status is nil when the
// cycle did not fetch it; cycleErr is nil when the cycle was applied.
func (x *Index) RecordCycle(run uuid.UUID, cycle int, status *snapshot.ModelStatus, agents, obstacles int, cycleErr error) error {
	var step, dropped, msg any
	if status != nil {
		step, dropped = status.CurrentStep, status.DroppedBoxes
	}
	if cycleErr != nil {
		msg = cycleErr.Error()
	}
	_, err := x.db.Exec(
		`INSERT OR REPLACE INTO cycles(run_id,cycle,recorded_at,current_step,dropped_boxes,agents,obstacles,error) VALUES(?,?,?,?,?,?,?,?)`,
		run.String(), cycle, now(), step, dropped, agents, obstacles, msg,
	)
	if err != nil {
		return fmt.Errorf("record cycle %d of %s: %w", cycle, run, err)
	}
	return nil
}

// FinishRun marks a run complete.
func (x *Index) FinishRun(run uuid.UUID, status snapshot.ModelStatus) error {
	res, err := x.db.Exec(
		`UPDATE runs SET finished_at=?, final_step=?, dropped_boxes=? WHERE id=?`,
		now(), status.CurrentStep, status.DroppedBoxes, run.String(),
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: no such run", run)
	}
	return nil
}

// Runs lists the recorded runs, newest first.
func (x *Index) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := x.db.Query(`
		SELECT r.id, r.source, r.agents, r.boxes, r.width, r.height, r.max_shelves, r.max_steps,
			r.started_at, r.finished_at, COALESCE(r.final_step,0), COALESCE(r.dropped_boxes,0),
			(SELECT COUNT(*) FROM cycles c WHERE c.run_id=r.id),
			(SELECT COUNT(*) FROM cycles c WHERE c.run_id=r.id AND c.error IS NOT NULL)
		FROM runs r ORDER BY r.started_at DESC, r.id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r        Run
			id       string
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&id, &r.Source, &r.Config.Agents, &r.Config.Boxes, &r.Config.Width, &r.Config.Height,
			&r.Config.MaxShelves, &r.Config.MaxSteps, &started, &finished, &r.FinalStep, &r.DroppedBoxes,
			&r.Cycles, &r.Failures); err != nil {
			return nil, err
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, err
		}
		if finished.Valid {
			t, err := time.Parse(time.RFC3339Nano, finished.String)
			if err != nil {
				return nil, err
			}
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }
