// Package sqlite keeps the run history and the checkpoint journal. Every
// result is written the moment it is produced. Results of runs that never
// reached the result file seed the next run's cache.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"playlistomatic/internal/domain"
)

func InitDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		started_at  DATETIME NOT NULL,
		finished_at DATETIME,
		status      TEXT NOT NULL DEFAULT 'running',
		provider    TEXT DEFAULT '',
		model       TEXT DEFAULT '',
		total       INTEGER DEFAULT 0,
		cached      INTEGER DEFAULT 0,
		classified  INTEGER DEFAULT 0,
		failed      INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);

	CREATE TABLE IF NOT EXISTS classification_history (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id          TEXT NOT NULL,
		item_id         TEXT NOT NULL,
		normalized_id   TEXT NOT NULL,
		title           TEXT DEFAULT '',
		link            TEXT DEFAULT '',
		category        TEXT NOT NULL,
		channel_name    TEXT DEFAULT '',
		number_of_views TEXT DEFAULT '',
		rationale       TEXT DEFAULT '',
		llm_provider    TEXT DEFAULT '',
		llm_model       TEXT DEFAULT '',
		classified_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_ch_normalized ON classification_history(normalized_id);
	CREATE INDEX IF NOT EXISTS idx_ch_run ON classification_history(run_id);

	CREATE TABLE IF NOT EXISTS classification_failures (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id    TEXT NOT NULL,
		item_id   TEXT NOT NULL,
		title     TEXT DEFAULT '',
		error     TEXT DEFAULT '',
		failed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_cf_date ON classification_failures(failed_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Run statuses. A run is open while it is running or interrupted; its
// journaled results are replayed until a later run completes.
const (
	StatusRunning     = "running"
	StatusInterrupted = "interrupted"
	StatusCompleted   = "completed"
	StatusResumed     = "resumed"
)

// Run is one row of the runs table.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
	Provider   string
	Model      string
	Total      int
	Cached     int
	Classified int
	Failed     int
}

// Journal records one run. It satisfies classify.Recorder.
type Journal struct {
	db       *sql.DB
	runID    string
	provider string
	model    string
	now      func() time.Time
}

func StartRun(db *sql.DB, provider, model string) (*Journal, error) {
	j := &Journal{
		db:       db,
		runID:    uuid.NewString(),
		provider: provider,
		model:    model,
		now:      func() time.Time { return time.Now().UTC() },
	}
	_, err := db.Exec(
		`INSERT INTO runs (id, started_at, provider, model) VALUES (?, ?, ?, ?)`,
		j.runID, j.now(), provider, model,
	)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	return j, nil
}

func (j *Journal) RunID() string { return j.runID }

func (j *Journal) RecordResult(r domain.ClassificationResult) error {
	_, err := j.db.Exec(
		`INSERT INTO classification_history
		 (run_id, item_id, normalized_id, title, link, category, channel_name, number_of_views, rationale, llm_provider, llm_model, classified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, r.ID, domain.NormalizeID(r.ID), r.Title, r.Link, r.Category,
		r.ChannelName, string(r.NumberOfViews), r.Rationale, j.provider, j.model, j.now(),
	)
	return err
}

func (j *Journal) RecordFailure(f domain.Failure) error {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	_, err := j.db.Exec(
		`INSERT INTO classification_failures (run_id, item_id, title, error, failed_at) VALUES (?, ?, ?, ?, ?)`,
		j.runID, f.ID, f.Title, msg, j.now(),
	)
	return err
}

// Finish marks the run completed once its results are in the result file.
// Open runs before it are marked resumed, since their results were carried
// into that file through the cache.
func (j *Journal) Finish(total, cached, classified, failed int) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE runs SET finished_at = ?, status = ?, total = ?, cached = ?, classified = ?, failed = ? WHERE id = ?`,
		j.now(), StatusCompleted, total, cached, classified, failed, j.runID,
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`UPDATE runs SET status = ? WHERE id != ? AND status IN (?, ?)`,
		StatusResumed, j.runID, StatusRunning, StatusInterrupted,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Interrupt stamps a run that stopped before writing the result file. Its
// journaled results stay available to JournalResults.
func (j *Journal) Interrupt(total, cached, classified, failed int) error {
	_, err := j.db.Exec(
		`UPDATE runs SET finished_at = ?, status = ?, total = ?, cached = ?, classified = ?, failed = ? WHERE id = ?`,
		j.now(), StatusInterrupted, total, cached, classified, failed, j.runID,
	)
	return err
}

// JournalResults returns the most recent journaled result per normalized id
// from open runs, oldest first. Completed runs are left out: their results
// live in the result file, and deleting that file forces a cold start.
func JournalResults(db *sql.DB) ([]domain.ClassificationResult, error) {
	rows, err := db.Query(
		`SELECT item_id, title, link, category, channel_name, number_of_views, rationale
		 FROM classification_history
		 WHERE id IN (
			SELECT MAX(h.id) FROM classification_history h
			JOIN runs r ON r.id = h.run_id
			WHERE r.status IN (?, ?)
			GROUP BY h.normalized_id
		 )
		 ORDER BY id`,
		StatusRunning, StatusInterrupted,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.ClassificationResult
	for rows.Next() {
		var r domain.ClassificationResult
		var views string
		if err := rows.Scan(&r.ID, &r.Title, &r.Link, &r.Category, &r.ChannelName, &views, &r.Rationale); err != nil {
			return nil, err
		}
		r.NumberOfViews = domain.ViewCount(views)
		results = append(results, r)
	}
	return results, rows.Err()
}

// FailureRecord is a journaled per-item failure.
type FailureRecord struct {
	RunID    string
	ItemID   string
	Title    string
	Error    string
	FailedAt time.Time
}

func GetRecentFailures(db *sql.DB, limit int) ([]FailureRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(
		`SELECT run_id, item_id, title, error, failed_at
		 FROM classification_failures ORDER BY failed_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FailureRecord
	for rows.Next() {
		var f FailureRecord
		if err := rows.Scan(&f.RunID, &f.ItemID, &f.Title, &f.Error, &f.FailedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetRunStats lists the latest runs, newest first.
func GetRunStats(db *sql.DB, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(
		`SELECT id, started_at, finished_at, status, provider, model, total, cached, classified, failed
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Provider, &r.Model,
			&r.Total, &r.Cached, &r.Classified, &r.Failed)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
