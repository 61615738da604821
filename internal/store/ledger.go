package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/notexe/proofpal/internal/deadline"
	"github.com/notexe/proofpal/internal/reminder"
)

type ledgerRow struct {
	RecordID  string `db:"record_id"`
	Kind      string `db:"kind"`
	Threshold int    `db:"threshold"`
	Deadline  string `db:"deadline"`
	FiredAt   string `db:"fired_at"`
	Notified  bool   `db:"notified"`
}

func (row ledgerRow) entry() reminder.LedgerEntry {
	return reminder.LedgerEntry{
		RecordID:  row.RecordID,
		Kind:      deadline.Kind(row.Kind),
		Threshold: row.Threshold,
		Deadline:  parseDate(row.Deadline),
		FiredAt:   parseTime(row.FiredAt),
		Notified:  row.Notified,
	}
}

// ListLedgerEntries returns every fired reminder threshold.
func (s *Store) ListLedgerEntries(ctx context.Context) ([]reminder.LedgerEntry, error) {
	return s.ledgerEntries(ctx, `
		SELECT record_id, kind, threshold, deadline, fired_at, notified
		FROM reminder_ledger ORDER BY record_id, kind, threshold DESC
	`)
}

// LedgerEntriesFor returns the fired thresholds of one record, oldest
// first.
func (s *Store) LedgerEntriesFor(ctx context.Context, recordID string) ([]reminder.LedgerEntry, error) {
	return s.ledgerEntries(ctx, `
		SELECT record_id, kind, threshold, deadline, fired_at, notified
		FROM reminder_ledger WHERE record_id = ? ORDER BY fired_at, kind, threshold DESC
	`, recordID)
}

func (s *Store) ledgerEntries(ctx context.Context, query string, args ...any) ([]reminder.LedgerEntry, error) {
	var rows []ledgerRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify("list ledger entries", err)
	}
	out := make([]reminder.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entry())
	}
	return out, nil
}

// UpsertLedgerEntry records a fired threshold. An existing entry for the
// same (record, kind, threshold) and deadline keeps its original firing
// time; one that fired against another deadline is replaced.
func (s *Store) UpsertLedgerEntry(ctx context.Context, e reminder.LedgerEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminder_ledger (record_id, kind, threshold, deadline, fired_at, notified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (record_id, kind, threshold) DO UPDATE
		SET deadline = excluded.deadline,
		    fired_at = excluded.fired_at,
		    notified = excluded.notified
		WHERE reminder_ledger.deadline <> excluded.deadline
	`, e.RecordID, string(e.Kind), e.Threshold, formatDate(e.Deadline), formatTime(e.FiredAt), e.Notified)
	return classify("upsert ledger entry", err)
}

// DeleteLedgerEntries forgets every fired threshold of one kind for a
// record.
func (s *Store) DeleteLedgerEntries(ctx context.Context, recordID string, kind deadline.Kind) error {
	return deleteLedgerEntries(ctx, s.db, recordID, kind)
}

func deleteLedgerEntries(ctx context.Context, db sqlx.ExecerContext, recordID string, kind deadline.Kind) error {
	_, err := db.ExecContext(ctx, `DELETE FROM reminder_ledger WHERE record_id = ? AND kind = ?`, recordID, string(kind))
	return classify("delete ledger entries", err)
}
