package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/notexe/proofpal/internal/purchase"
)

// Fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store provides SQLite-backed storage for purchases, attachments, the
// reminder ledger and the activity feed.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens (or creates) the SQLite database at dbPath and ensures the
// schema exists.
func Open(dbPath string) (*Store, error) {
	dsn := "file:" + dbPath + "?" + url.Values{
		"_pragma": []string{"foreign_keys(1)", "busy_timeout(5000)"},
	}.Encode()

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; keeps the pragmas above on the only connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func migrate(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id            TEXT    PRIMARY KEY,
			label         TEXT    NOT NULL,
			store         TEXT    NOT NULL DEFAULT '',
			category      TEXT    NOT NULL DEFAULT '',
			amount        TEXT    NOT NULL DEFAULT '0',
			purchase_date TEXT    NOT NULL,
			return_days   INTEGER NOT NULL DEFAULT 0 CHECK (return_days >= 0),
			warranty_days INTEGER NOT NULL DEFAULT 0 CHECK (warranty_days >= 0),
			notes         TEXT    NOT NULL DEFAULT '',
			created_at    TEXT    NOT NULL,
			updated_at    TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS attachments (
			id        TEXT    PRIMARY KEY,
			record_id TEXT    NOT NULL REFERENCES records(id) ON DELETE CASCADE,
			position  INTEGER NOT NULL,
			filename  TEXT    NOT NULL,
			kind      TEXT    NOT NULL CHECK (kind IN ('image','pdf')),
			mime      TEXT    NOT NULL,
			path      TEXT    NOT NULL,
			size      INTEGER NOT NULL DEFAULT 0,
			checksum  TEXT    NOT NULL DEFAULT '',
			added_at  TEXT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_attachments_record ON attachments(record_id, position);

		CREATE TABLE IF NOT EXISTS reminder_ledger (
			record_id TEXT    NOT NULL REFERENCES records(id) ON DELETE CASCADE,
			kind      TEXT    NOT NULL CHECK (kind IN ('return','warranty')),
			threshold INTEGER NOT NULL,
			deadline  TEXT    NOT NULL DEFAULT '',
			fired_at  TEXT    NOT NULL,
			notified  INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (record_id, kind, threshold)
		);

		CREATE TABLE IF NOT EXISTS activity (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT    NOT NULL DEFAULT '',
			action    TEXT    NOT NULL,
			detail    TEXT    NOT NULL DEFAULT '',
			at        TEXT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_activity_at ON activity(at DESC, id DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return purchase.Day(t).Format(time.DateOnly)
}

func parseDate(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

// classify maps driver errors onto the shared error classes.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, purchase.ErrNotFound)
	default:
		return purchase.IOError(op, err)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches s anywhere; use with ESCAPE '\'.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func prefixPattern(s string) string {
	return likeEscaper.Replace(s) + "%"
}
