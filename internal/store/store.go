// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists the conversion audit trail in SQLite: runs, file
// events, event log rows, the settings row and conversion metrics.
//
// Every operation opens its own connection, does its work and closes it
// again. Nothing is pooled between calls, and a run update and its file
// event update are separate commits.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/graphpdf/internal/secrets"
	"github.com/pdiddy/graphpdf/pkg/types"
)

// ErrSettingsNotInitialized means the settings row has not been seeded.
var ErrSettingsNotInitialized = errors.New("settings not initialized (run `graphpdf init` first)")

// ErrRunNotFound means no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Store is a handle on the database file. It holds no open connection.
type Store struct {
	path    string
	secrets secrets.Provider
}

// Option configures a Store.
type Option func(*Store)

// WithSecrets sets the provider used to resolve the client secret when
// settings are read. The default returns the stored value unchanged.
func WithSecrets(p secrets.Provider) Option {
	return func(s *Store) {
		if p != nil {
			s.secrets = p
		}
	}
}

// Open returns a Store for the database at path, creating the parent
// directory. The schema is not touched; call Migrate or Init.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	s := &Store{path: path, secrets: secrets.Passthrough{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// withDB opens a connection, runs fn and closes the connection on every
// exit path.
func (s *Store) withDB(ctx context.Context, fn func(db *sql.DB) error) error {
	db, err := sql.Open("sqlite3", s.path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	return fn(db)
}

// Migrate creates any missing tables. It is safe to call repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	return s.withDB(ctx, func(db *sql.DB) error {
		return createSchema(ctx, db)
	})
}

// Init creates the schema and seeds the default settings row if none
// exists. It reports whether a row was seeded.
func (s *Store) Init(ctx context.Context) (bool, error) {
	var seeded bool
	err := s.withDB(ctx, func(db *sql.DB) error {
		if err := createSchema(ctx, db); err != nil {
			return err
		}
		res, err := db.ExecContext(ctx, insertSettingsSQL+` ON CONFLICT(id) DO NOTHING`,
			settingsArgs(types.DefaultSettings())...)
		if err != nil {
			return fmt.Errorf("seeding settings: %w", err)
		}
		n, _ := res.RowsAffected()
		seeded = n > 0
		return nil
	})
	return seeded, err
}

func createSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			success INTEGER NOT NULL DEFAULT 0,
			file_count_total INTEGER NOT NULL DEFAULT 0,
			file_count_succeeded INTEGER NOT NULL DEFAULT 0,
			file_count_failed INTEGER NOT NULL DEFAULT 0,
			total_input_bytes INTEGER NOT NULL DEFAULT 0,
			total_pdf_bytes INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS file_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			file_path TEXT NOT NULL,
			file_name TEXT NOT NULL,
			extension TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			success INTEGER NOT NULL DEFAULT 0,
			drive_id TEXT,
			temp_item_id TEXT,
			pdf_item_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_file_events_run_id ON file_events(run_id)`,
		`CREATE TABLE IF NOT EXISTS event_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			file_event_id INTEGER REFERENCES file_events(id),
			timestamp TEXT NOT NULL,
			level TEXT NOT NULL,
			stage TEXT NOT NULL,
			payload_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_logs_run_id ON event_logs(run_id)`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			site_url TEXT NOT NULL,
			library_name TEXT NOT NULL,
			temp_folder TEXT NOT NULL,
			pdf_folder TEXT NOT NULL,
			conflict_behavior TEXT NOT NULL,
			cleanup_temp INTEGER NOT NULL,
			store_pdf_in_sharepoint INTEGER NOT NULL,
			save_local_pdf INTEGER NOT NULL,
			local_pdf_dir TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			client_secret TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conversion_metrics (
			source_extension TEXT NOT NULL,
			target_extension TEXT NOT NULL,
			conversion_count INTEGER NOT NULL DEFAULT 0,
			success_count INTEGER NOT NULL DEFAULT 0,
			failure_count INTEGER NOT NULL DEFAULT 0,
			last_attempt_at TEXT,
			last_success_at TEXT,
			last_failure_at TEXT,
			PRIMARY KEY (source_extension, target_extension)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// hasTable reports whether the schema defines table name.
func hasTable(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspecting schema: %w", err)
	}
	return n > 0, nil
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
