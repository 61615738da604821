package store

import (
	"context"
	"time"

	"github.com/notexe/proofpal/internal/purchase"
)

type activityRow struct {
	ID       int64  `db:"id"`
	RecordID string `db:"record_id"`
	Action   string `db:"action"`
	Detail   string `db:"detail"`
	At       string `db:"at"`
}

func (row activityRow) activity() purchase.Activity {
	return purchase.Activity{
		ID:       row.ID,
		RecordID: row.RecordID,
		Action:   row.Action,
		Detail:   row.Detail,
		At:       parseTime(row.At),
	}
}

// Cursor marks a position in the activity feed. The zero Cursor is the
// newest end.
type Cursor struct {
	At time.Time
	ID int64
}

// After returns the cursor positioned just past a.
func After(a purchase.Activity) Cursor {
	return Cursor{At: a.At, ID: a.ID}
}

// AppendActivity writes an entry to the history feed. A zero At is set to
// the current time.
func (s *Store) AppendActivity(ctx context.Context, a purchase.Activity) error {
	if a.At.IsZero() {
		a.At = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity (record_id, action, detail, at) VALUES (?, ?, ?, ?)
	`, a.RecordID, a.Action, a.Detail, formatTime(a.At))
	return classify("append activity", err)
}

// RecentActivity returns up to limit entries older than the cursor,
// newest first.
func (s *Store) RecentActivity(ctx context.Context, c Cursor, limit int) ([]purchase.Activity, error) {
	var rows []activityRow
	var err error
	if c.At.IsZero() {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT id, record_id, action, detail, at FROM activity
			ORDER BY at DESC, id DESC LIMIT ?
		`, limit)
	} else {
		at := formatTime(c.At)
		err = s.db.SelectContext(ctx, &rows, `
			SELECT id, record_id, action, detail, at FROM activity
			WHERE at < ? OR (at = ? AND id < ?)
			ORDER BY at DESC, id DESC LIMIT ?
		`, at, at, c.ID, limit)
	}
	if err != nil {
		return nil, classify("list activity", err)
	}
	return activities(rows), nil
}

// RecordActivity returns the history of one record, oldest first.
func (s *Store) RecordActivity(ctx context.Context, recordID string) ([]purchase.Activity, error) {
	var rows []activityRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, record_id, action, detail, at FROM activity
		WHERE record_id = ? ORDER BY at, id
	`, recordID); err != nil {
		return nil, classify("list record activity", err)
	}
	return activities(rows), nil
}

func activities(rows []activityRow) []purchase.Activity {
	out := make([]purchase.Activity, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.activity())
	}
	return out
}
