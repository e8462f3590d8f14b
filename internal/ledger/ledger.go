// Package ledger records harvest runs and their per-paper outcomes in a
// SQLite database. The destination store stays the source of truth for
// what exists; the ledger answers what happened in each run.
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ligustah/paperharvest/internal/downloader"
	"github.com/ligustah/paperharvest/internal/harvest"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when a run ID is not in the ledger.
var ErrRunNotFound = errors.New("ledger: run not found")

// Run summarizes one recorded harvest run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	StartDate  string
	EndDate    string
	Windows    int
	Papers     int
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64
}

// Entry is the outcome of one paper in a run.
type Entry struct {
	RunID   string
	PaperID string
	Title   string
	Month   string
	Key     string
	Status  downloader.Status
	Bytes   int64
	Error   string
}

// Ledger is a SQLite-backed run history.
type Ledger struct {
	conn *sql.DB
	path string
}

// Open opens (creating if needed) the ledger at path and applies pending
// migrations.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", path)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	// SQLite only supports one writer
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.PingContext(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}

	l := &Ledger{conn: conn, path: path}
	if err := l.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(l.conn, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}

// RecordRun stores a finished run and every per-paper result in one
// transaction.
func (l *Ledger) RecordRun(ctx context.Context, result *harvest.Result) error {
	// The run may have been interrupted; record it anyway.
	ctx = context.WithoutCancel(ctx)

	tx, err := l.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	report := result.Report
	if report == nil {
		report = &downloader.Report{}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, start_date, end_date,
			windows, papers, downloaded, skipped, failed, bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.StartedAt.UTC().Format(timeLayout),
		result.FinishedAt.UTC().Format(timeLayout),
		result.Options.Start.Format("2006-01-02"),
		result.Options.End.Format("2006-01-02"),
		len(result.Windows),
		result.Months.Total(),
		report.Downloaded,
		report.Skipped,
		report.Failed,
		report.Bytes,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", result.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO downloads (run_id, paper_id, title, month, key, status, bytes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare download insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range report.Results {
		var msg string
		if r.Err != nil {
			msg = r.Err.Error()
		}
		if _, err := stmt.ExecContext(ctx,
			result.RunID, r.Item.ID, r.Item.Title, r.Item.Month(), r.Key, string(r.Status), r.Bytes, msg,
		); err != nil {
			return fmt.Errorf("insert download %s: %w", r.Item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", result.RunID, err)
	}
	return nil
}

// Runs returns the most recent runs, newest first. A limit <= 0 returns
// all runs.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := l.conn.QueryContext(ctx, `
		SELECT id, started_at, finished_at, start_date, end_date,
			windows, papers, downloaded, skipped, failed, bytes
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a single run.
func (l *Ledger) GetRun(ctx context.Context, id string) (Run, error) {
	row := l.conn.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, start_date, end_date,
			windows, papers, downloaded, skipped, failed, bytes
		FROM runs
		WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Entries returns the per-paper outcomes of a run in recording order,
// optionally filtered by status. An empty status returns every entry.
func (l *Ledger) Entries(ctx context.Context, runID string, status downloader.Status) ([]Entry, error) {
	query := `
		SELECT run_id, paper_id, title, month, key, status, bytes, error
		FROM downloads
		WHERE run_id = ?`
	args := []any{runID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY id"

	rows, err := l.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var s string
		if err := rows.Scan(&e.RunID, &e.PaperID, &e.Title, &e.Month, &e.Key, &s, &e.Bytes, &e.Error); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Status = downloader.Status(s)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var run Run
	var started, finished string
	err := s.Scan(&run.ID, &started, &finished, &run.StartDate, &run.EndDate,
		&run.Windows, &run.Papers, &run.Downloaded, &run.Skipped, &run.Failed, &run.Bytes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}
