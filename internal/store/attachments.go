package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/notexe/proofpal/internal/purchase"
)

type attachmentRow struct {
	ID       string `db:"id"`
	RecordID string `db:"record_id"`
	Position int    `db:"position"`
	Filename string `db:"filename"`
	Kind     string `db:"kind"`
	MIME     string `db:"mime"`
	Path     string `db:"path"`
	Size     int64  `db:"size"`
	Checksum string `db:"checksum"`
	AddedAt  string `db:"added_at"`
}

const attachmentColumns = `id, record_id, position, filename, kind, mime, path, size, checksum, added_at`

func (row attachmentRow) attachment() purchase.Attachment {
	return purchase.Attachment{
		ID:       row.ID,
		RecordID: row.RecordID,
		Position: row.Position,
		Filename: row.Filename,
		Kind:     purchase.AttachmentKind(row.Kind),
		MIME:     row.MIME,
		Path:     row.Path,
		Size:     row.Size,
		Checksum: row.Checksum,
		AddedAt:  parseTime(row.AddedAt),
	}
}

func selectAttachments(ctx context.Context, q sqlx.QueryerContext, recordID string) ([]purchase.Attachment, error) {
	var rows []attachmentRow
	err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT `+attachmentColumns+` FROM attachments WHERE record_id = ? ORDER BY position
	`, recordID)
	if err != nil {
		return nil, classify("list attachments", err)
	}
	out := make([]purchase.Attachment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.attachment())
	}
	return out, nil
}

// GetAttachments returns the attachments of a record in their display
// order.
func (s *Store) GetAttachments(ctx context.Context, recordID string) ([]purchase.Attachment, error) {
	return selectAttachments(ctx, s.db, recordID)
}

// AddAttachment appends a to the end of its record's attachment list and
// returns it with the assigned position.
func (s *Store) AddAttachment(ctx context.Context, a purchase.Attachment) (purchase.Attachment, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return a, classify("begin add attachment", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM records WHERE id = ?`, a.RecordID); err != nil {
		return a, classify("check record", err)
	}
	if exists == 0 {
		return a, purchase.NotFound("record", a.RecordID)
	}

	if err := tx.GetContext(ctx, &a.Position, `SELECT COALESCE(MAX(position), 0) + 1 FROM attachments WHERE record_id = ?`, a.RecordID); err != nil {
		return a, classify("next attachment position", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attachments (`+attachmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.RecordID, a.Position, a.Filename, string(a.Kind), a.MIME, a.Path, a.Size, a.Checksum, formatTime(a.AddedAt))
	if err != nil {
		return a, classify("insert attachment", err)
	}

	if err := tx.Commit(); err != nil {
		return a, classify("commit add attachment", err)
	}
	return a, nil
}

// GetAttachment returns one attachment by id.
func (s *Store) GetAttachment(ctx context.Context, id string) (purchase.Attachment, error) {
	var row attachmentRow
	err := s.db.GetContext(ctx, &row, `SELECT `+attachmentColumns+` FROM attachments WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return purchase.Attachment{}, purchase.NotFound("attachment", id)
	}
	if err != nil {
		return purchase.Attachment{}, classify("get attachment", err)
	}
	return row.attachment(), nil
}

// DeleteAttachment removes one attachment row and returns it.
func (s *Store) DeleteAttachment(ctx context.Context, id string) (purchase.Attachment, error) {
	a, err := s.GetAttachment(ctx, id)
	if err != nil {
		return a, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id); err != nil {
		return a, classify("delete attachment", err)
	}
	return a, nil
}
