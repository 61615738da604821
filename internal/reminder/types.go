package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/notexe/proofpal/internal/deadline"
	"github.com/notexe/proofpal/internal/purchase"
)

// LedgerEntry records that the reminder for one (record, kind, threshold)
// triple has fired against Deadline. Notified is false when the threshold
// was passed during a catch-up and recorded without an event of its own.
type LedgerEntry struct {
	RecordID  string        `json:"record_id" yaml:"record_id"`
	Kind      deadline.Kind `json:"kind" yaml:"kind"`
	Threshold int           `json:"threshold" yaml:"threshold"`
	Deadline  time.Time     `json:"deadline" yaml:"deadline"`
	FiredAt   time.Time     `json:"fired_at" yaml:"fired_at"`
	Notified  bool          `json:"notified" yaml:"notified"`
}

// Key identifies the triple a ledger entry stands for.
type Key struct {
	RecordID  string
	Kind      deadline.Kind
	Threshold int
}

// Key returns the identity of e.
func (e LedgerEntry) Key() Key {
	return Key{RecordID: e.RecordID, Kind: e.Kind, Threshold: e.Threshold}
}

// Ledger is the persistence the engine needs. Each call must be atomic on
// its own. UpsertLedgerEntry keeps an existing entry for the same key and
// deadline, and replaces one left over from an earlier deadline.
type Ledger interface {
	ListLedgerEntries(ctx context.Context) ([]LedgerEntry, error)
	UpsertLedgerEntry(ctx context.Context, e LedgerEntry) error
	DeleteLedgerEntries(ctx context.Context, recordID string, kind deadline.Kind) error
}

// Loader reads the records a scan runs over.
type Loader func(ctx context.Context) ([]purchase.Record, error)

// Event is one reminder to deliver.
type Event struct {
	RecordID  string         `json:"record_id"`
	Label     string         `json:"label"`
	Store     string         `json:"store,omitempty"`
	Kind      deadline.Kind  `json:"kind"`
	Threshold int            `json:"threshold"`
	State     deadline.State `json:"state"`
	Deadline  time.Time      `json:"deadline"`
	Remaining int            `json:"remaining"`
	Message   string         `json:"message"`
	FiredAt   time.Time      `json:"fired_at"`
}

// Title is a short headline for the event, suitable for a toast.
func (e Event) Title() string {
	if e.Remaining < 0 {
		return fmt.Sprintf("%s deadline passed", e.Kind.Label())
	}
	return fmt.Sprintf("%s deadline approaching", e.Kind.Label())
}

func message(label, store string, kind deadline.Kind, due time.Time, remaining int) string {
	what := fmt.Sprintf("%q", label)
	if store != "" {
		what += " from " + store
	}
	date := due.Format(time.DateOnly)

	var subject string
	switch kind {
	case deadline.KindReturn:
		subject = "Return window for " + what
	default:
		subject = "Warranty for " + what
	}

	switch {
	case remaining < 0:
		return fmt.Sprintf("%s ended %s ago (%s)", subject, deadline.Plural(-remaining, "day"), date)
	case remaining == 0:
		return fmt.Sprintf("%s ends today (%s)", subject, date)
	default:
		return fmt.Sprintf("%s ends in %s (%s)", subject, deadline.Plural(remaining, "day"), date)
	}
}

// Skip explains why a record was left out of a scan.
type Skip struct {
	RecordID string
	Err      error
}

// ScanResult is the outcome of one scan.
type ScanResult struct {
	Events   []Event
	Skipped  []Skip
	Recorded int
	Records  int // records looked at
}
