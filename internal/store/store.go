// Package store persists completed runs in a
// modernc.org/sqlite database, schema-migrated with goose: a single-writer
// WAL configuration, with an embed.FS of migrations applied via goose.Up.
//
// This is additive persistence only — nothing here feeds back into a run's
// grouping decisions (internal/cache is the only read-path optimization).
// Every run is independent; there is no incremental re-scan.
package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dupefind/dupefind/internal/results"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open opens (or creates) the SQLite database at path, applies WAL pragmas,
// and enforces a single writer connection.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	return db, nil
}

// RunMigrations applies all pending goose migrations from the embedded FS.
func RunMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Run is one persisted row: a completed engine run plus the group rows it
// produced.
type Run struct {
	ID          int64
	UUID        string
	StartedAt   time.Time
	FinishedAt  time.Time
	Mode        string
	Algorithm   string
	Paths       []string
	Duration    time.Duration
	Cancelled   bool
	results.Report
}

// SaveRun persists a finished run's report as one runs row plus one
// run_groups row per summarized group, in a single transaction. Each run
// is assigned a fresh UUID independent of its auto-increment id, so an
// external caller can reference a run without depending on row-id
// stability across a database rebuild. The HTTP API reports the UUID but
// looks runs up by row id.
func SaveRun(db *sql.DB, startedAt, finishedAt time.Time, paths []string, cancelled bool, report results.Report) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		INSERT INTO runs (uuid, started_at, finished_at, mode, algorithm, paths, duration_ms,
			groups, duplicate_files, reclaimable_bytes, reference_groups, cancelled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), startedAt.Unix(), finishedAt.Unix(), report.Mode.String(), report.Algorithm.String(),
		strings.Join(paths, "\n"), finishedAt.Sub(startedAt).Milliseconds(),
		report.Stats.Groups, report.Stats.DuplicateFiles, report.Stats.ReclaimableBytes,
		report.Stats.ReferenceGroups, boolToInt(cancelled))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for _, g := range report.Groups {
		membersJSON, err := json.Marshal(g.Members)
		if err != nil {
			return 0, fmt.Errorf("marshal members: %w", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO run_groups (run_id, key, reference_path, total_members, size, reclaimable_bytes, members_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, g.Key, g.Reference, g.TotalMembers, g.Size, g.ReclaimableBytes, string(membersJSON)); err != nil {
			return 0, fmt.Errorf("insert group: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

// GetRun loads one run's metadata (not its group rows; use GetGroups).
func GetRun(db *sql.DB, id int64) (*Run, error) {
	row := db.QueryRow(`
		SELECT id, uuid, started_at, finished_at, mode, algorithm, paths, duration_ms,
			groups, duplicate_files, reclaimable_bytes, reference_groups, cancelled
		FROM runs WHERE id = ?`, id)

	var (
		startedAt, finishedAt, durationMs int64
		pathsStr                          string
		cancelled                         int
		r                                 Run
	)
	if err := row.Scan(&r.ID, &r.UUID, &startedAt, &finishedAt, &r.Mode, &r.Algorithm, &pathsStr, &durationMs,
		&r.Report.Stats.Groups, &r.Report.Stats.DuplicateFiles, &r.Report.Stats.ReclaimableBytes,
		&r.Report.Stats.ReferenceGroups, &cancelled); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan run %d: %w", id, err)
	}

	r.StartedAt = time.Unix(startedAt, 0).UTC()
	r.FinishedAt = time.Unix(finishedAt, 0).UTC()
	r.Duration = time.Duration(durationMs) * time.Millisecond
	r.Cancelled = cancelled != 0
	if pathsStr != "" {
		r.Paths = strings.Split(pathsStr, "\n")
	}
	return &r, nil
}

// ListRuns returns the most recent limit runs, newest first.
func ListRuns(db *sql.DB, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, uuid, started_at, finished_at, mode, algorithm, paths, duration_ms,
			groups, duplicate_files, reclaimable_bytes, reference_groups, cancelled
		FROM runs ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var (
			startedAt, finishedAt, durationMs int64
			pathsStr                          string
			cancelled                         int
			r                                 Run
		)
		if err := rows.Scan(&r.ID, &r.UUID, &startedAt, &finishedAt, &r.Mode, &r.Algorithm, &pathsStr, &durationMs,
			&r.Report.Stats.Groups, &r.Report.Stats.DuplicateFiles, &r.Report.Stats.ReclaimableBytes,
			&r.Report.Stats.ReferenceGroups, &cancelled); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.StartedAt = time.Unix(startedAt, 0).UTC()
		r.FinishedAt = time.Unix(finishedAt, 0).UTC()
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.Cancelled = cancelled != 0
		if pathsStr != "" {
			r.Paths = strings.Split(pathsStr, "\n")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetGroups loads the group rows persisted for one run. Returns (nil, nil)
// if the run itself doesn't exist (callers distinguish "no groups" from
// "no such run" by checking GetRun first).
func GetGroups(db *sql.DB, runID int64) ([]results.GroupSummary, error) {
	rows, err := db.Query(`
		SELECT key, reference_path, total_members, size, reclaimable_bytes, members_json
		FROM run_groups WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("get groups for run %d: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []results.GroupSummary
	for rows.Next() {
		var g results.GroupSummary
		var membersJSON string
		if err := rows.Scan(&g.Key, &g.Reference, &g.TotalMembers, &g.Size, &g.ReclaimableBytes, &membersJSON); err != nil {
			return nil, fmt.Errorf("scan group row: %w", err)
		}
		if err := json.Unmarshal([]byte(membersJSON), &g.Members); err != nil {
			return nil, fmt.Errorf("unmarshal members: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
