package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/linkcheck/internal/model"
)

// FileName is the name of the history database inside the database directory.
const FileName = "linkcheck.db"

// ErrRunNotFound is returned when a run id is not in the history.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores the summary and report of every run so that later runs
// can be compared with earlier ones.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// With CreateIfNotExists false a missing database is an error.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		mode = "rwc"
	} else if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := h.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		root TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		documents INTEGER NOT NULL DEFAULT 0,
		links_found INTEGER NOT NULL DEFAULT 0,
		links_checked INTEGER NOT NULL DEFAULT 0,
		excluded INTEGER NOT NULL DEFAULT 0,
		blacklisted INTEGER NOT NULL DEFAULT 0,
		broken INTEGER NOT NULL DEFAULT 0,
		failed_documents INTEGER NOT NULL DEFAULT 0,
		cache_hits INTEGER NOT NULL DEFAULT 0,
		cache_misses INTEGER NOT NULL DEFAULT 0,
		blacklist_fingerprint TEXT NOT NULL DEFAULT '',
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root);
	`
	if _, err := h.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return h.migrate(ctx)
}

// addedColumns are columns that databases created by earlier versions lack.
var addedColumns = []struct {
	name string
	def  string
}{
	{"cache_hits", "INTEGER NOT NULL DEFAULT 0"},
	{"cache_misses", "INTEGER NOT NULL DEFAULT 0"},
}

// migrate adds the columns of addedColumns that the runs table is missing.
func (h *HistoryDB) migrate(ctx context.Context) error {
	for _, col := range addedColumns {
		var n int
		err := h.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM pragma_table_info('runs') WHERE name = ?", col.name).Scan(&n)
		if err != nil {
			return fmt.Errorf("failed to inspect runs table: %w", err)
		}
		if n > 0 {
			continue
		}
		if _, err := h.db.ExecContext(ctx, "ALTER TABLE runs ADD COLUMN "+col.name+" "+col.def); err != nil {
			return fmt.Errorf("failed to add column %s: %w", col.name, err)
		}
	}
	return nil
}

// RunRecord is one row of the run history without its report.
type RunRecord struct {
	// ID is the database row id; it grows with every saved run.
	ID int64

	Summary model.RunSummary

	// BlacklistFingerprint identifies the blacklist the run used. Runs with
	// different fingerprints may disagree on links for that reason alone.
	BlacklistFingerprint string
}

// SaveRun stores result together with the fingerprint of the blacklist
// used to produce it, and returns the row id.
func (h *HistoryDB) SaveRun(ctx context.Context, result *model.RunResult, fingerprint string) (int64, error) {
	report := result.Report
	if report == nil {
		report = model.Report{}
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	s := result.Summary
	query := `
	INSERT INTO runs (run_id, root, started_at, finished_at, documents, links_found,
		links_checked, excluded, blacklisted, broken, failed_documents,
		cache_hits, cache_misses, blacklist_fingerprint, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := h.db.ExecContext(ctx, query,
		s.RunID,
		s.Root,
		formatTimestamp(s.StartedAt),
		formatTimestamp(s.FinishedAt),
		s.Documents,
		s.LinksFound,
		s.LinksChecked,
		s.Excluded,
		s.Blacklisted,
		s.Broken,
		s.FailedDocuments,
		s.CacheHits,
		s.CacheMisses,
		fingerprint,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	return res.LastInsertId()
}

const recordColumns = `id, run_id, root, started_at, finished_at, documents, links_found,
	links_checked, excluded, blacklisted, broken, failed_documents, cache_hits, cache_misses,
	blacklist_fingerprint`

// ListRuns returns the most recent runs first. An empty root lists the runs
// of every root; a limit of zero or less lists all of them.
func (h *HistoryDB) ListRuns(ctx context.Context, root string, limit int) ([]RunRecord, error) {
	query := "SELECT " + recordColumns + " FROM runs WHERE 1=1"
	args := make([]any, 0, 2)
	if root != "" {
		query += " AND root = ?"
		args = append(args, root)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(recordTargets(&rec)...); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetRun returns the stored result of the run with the given id.
// It returns ErrRunNotFound when there is no such run.
func (h *HistoryDB) GetRun(ctx context.Context, runID string) (*model.RunResult, error) {
	query := "SELECT " + recordColumns + ", report_json FROM runs WHERE run_id = ?"

	var rec RunRecord
	var reportJSON string
	err := h.db.QueryRowContext(ctx, query, runID).Scan(recordTargets(&rec, &reportJSON)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return decodeRun(rec, reportJSON)
}

// LatestRuns returns the full results of the n most recent runs for root,
// newest first.
func (h *HistoryDB) LatestRuns(ctx context.Context, root string, n int) ([]*model.RunResult, error) {
	query := "SELECT " + recordColumns + ", report_json FROM runs WHERE root = ? ORDER BY id DESC LIMIT ?"

	rows, err := h.db.QueryContext(ctx, query, root, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest runs: %w", err)
	}
	defer rows.Close()

	var results []*model.RunResult
	for rows.Next() {
		var rec RunRecord
		var reportJSON string
		if err := rows.Scan(recordTargets(&rec, &reportJSON)...); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		result, err := decodeRun(rec, reportJSON)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// recordTargets returns the scan destinations for recordColumns followed
// by extra.
func recordTargets(rec *RunRecord, extra ...any) []any {
	s := &rec.Summary
	return append([]any{
		&rec.ID,
		&s.RunID,
		&s.Root,
		timestampScanner{&s.StartedAt},
		timestampScanner{&s.FinishedAt},
		&s.Documents,
		&s.LinksFound,
		&s.LinksChecked,
		&s.Excluded,
		&s.Blacklisted,
		&s.Broken,
		&s.FailedDocuments,
		&s.CacheHits,
		&s.CacheMisses,
		&rec.BlacklistFingerprint,
	}, extra...)
}

func decodeRun(rec RunRecord, reportJSON string) (*model.RunResult, error) {
	report := model.Report{}
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report of run %s: %w", rec.Summary.RunID, err)
	}
	return &model.RunResult{Report: report, Summary: rec.Summary}, nil
}

// timestampScanner scans a stored timestamp string into a time.Time.
type timestampScanner struct {
	t *time.Time
}

// Scan implements sql.Scanner.
func (ts timestampScanner) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*ts.t = parseTimestamp(v)
	case []byte:
		*ts.t = parseTimestamp(string(v))
	case time.Time:
		*ts.t = v
	case nil:
		*ts.t = time.Time{}
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats the history may hold.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseTimestamp parses s with the known formats and returns the zero time
// when none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
