package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/notexe/proofpal/internal/deadline"
	"github.com/notexe/proofpal/internal/purchase"
)

type recordRow struct {
	ID           string `db:"id"`
	Label        string `db:"label"`
	Store        string `db:"store"`
	Category     string `db:"category"`
	Amount       string `db:"amount"`
	PurchaseDate string `db:"purchase_date"`
	ReturnDays   int    `db:"return_days"`
	WarrantyDays int    `db:"warranty_days"`
	Notes        string `db:"notes"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

const recordColumns = `id, label, store, category, amount, purchase_date, return_days, warranty_days, notes, created_at, updated_at`

func toRecordRow(r purchase.Record) recordRow {
	return recordRow{
		ID:           r.ID,
		Label:        r.Label,
		Store:        r.Store,
		Category:     r.Category,
		Amount:       r.Amount.String(),
		PurchaseDate: formatDate(r.PurchaseDate),
		ReturnDays:   r.ReturnDays,
		WarrantyDays: r.WarrantyDays,
		Notes:        r.Notes,
		CreatedAt:    formatTime(r.CreatedAt),
		UpdatedAt:    formatTime(r.UpdatedAt),
	}
}

func (row recordRow) record() purchase.Record {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		amount = decimal.Zero
	}
	return purchase.Record{
		ID:           row.ID,
		Label:        row.Label,
		Store:        row.Store,
		Category:     row.Category,
		Amount:       amount,
		PurchaseDate: parseDate(row.PurchaseDate),
		ReturnDays:   row.ReturnDays,
		WarrantyDays: row.WarrantyDays,
		Notes:        row.Notes,
		CreatedAt:    parseTime(row.CreatedAt),
		UpdatedAt:    parseTime(row.UpdatedAt),
	}
}

// CreateRecord inserts r. The caller assigns the id and timestamps.
func (s *Store) CreateRecord(ctx context.Context, r purchase.Record) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (:id, :label, :store, :category, :amount, :purchase_date, :return_days, :warranty_days, :notes, :created_at, :updated_at)
	`, toRecordRow(r))
	return classify("insert record", err)
}

// UpdateRecord overwrites the editable fields of r. Attachments are not
// touched. The fired reminders of every kind in reset are forgotten in the
// same transaction.
func (s *Store) UpdateRecord(ctx context.Context, r purchase.Record, reset ...deadline.Kind) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify("begin update", err)
	}
	defer tx.Rollback()

	result, err := tx.NamedExecContext(ctx, `
		UPDATE records
		SET label = :label,
		    store = :store,
		    category = :category,
		    amount = :amount,
		    purchase_date = :purchase_date,
		    return_days = :return_days,
		    warranty_days = :warranty_days,
		    notes = :notes,
		    updated_at = :updated_at
		WHERE id = :id
	`, toRecordRow(r))
	if err != nil {
		return classify("update record", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return purchase.NotFound("record", r.ID)
	}

	for _, kind := range reset {
		if err := deleteLedgerEntries(ctx, tx, r.ID, kind); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return classify("commit update", err)
	}
	return nil
}

// DeleteRecord removes a record with its attachment rows and ledger
// entries in one transaction, returning the attachments that were
// removed so their files can be cleaned up.
func (s *Store) DeleteRecord(ctx context.Context, id string) ([]purchase.Attachment, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, classify("begin delete", err)
	}
	defer tx.Rollback()

	attachments, err := selectAttachments(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	for _, q := range []string{
		`DELETE FROM reminder_ledger WHERE record_id = ?`,
		`DELETE FROM attachments WHERE record_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return nil, classify("delete record children", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return nil, classify("delete record", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return nil, purchase.NotFound("record", id)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("commit delete", err)
	}
	return attachments, nil
}

// GetRecord returns a single record with its attachments.
func (s *Store) GetRecord(ctx context.Context, id string) (purchase.Record, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return purchase.Record{}, purchase.NotFound("record", id)
	}
	if err != nil {
		return purchase.Record{}, classify("get record", err)
	}

	r := row.record()
	r.Attachments, err = selectAttachments(ctx, s.db, id)
	if err != nil {
		return purchase.Record{}, err
	}
	return r, nil
}

// ListRecords returns the records matching f, most recent purchase first,
// each with its attachments.
func (s *Store) ListRecords(ctx context.Context, f purchase.Filter) ([]purchase.Record, error) {
	var (
		clauses []string
		args    []any
	)
	if f.Text != "" {
		clauses = append(clauses, `(label LIKE ? ESCAPE '\' OR store LIKE ? ESCAPE '\' OR category LIKE ? ESCAPE '\' OR notes LIKE ? ESCAPE '\')`)
		p := likePattern(f.Text)
		args = append(args, p, p, p, p)
	}
	if f.Store != "" {
		clauses = append(clauses, "store = ?")
		args = append(args, f.Store)
	}
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	if !f.PurchasedFrom.IsZero() {
		clauses = append(clauses, "purchase_date >= ?")
		args = append(args, formatDate(f.PurchasedFrom))
	}
	if !f.PurchasedTo.IsZero() {
		clauses = append(clauses, "purchase_date <= ?")
		args = append(args, formatDate(f.PurchasedTo))
	}
	if !f.ReturnBefore.IsZero() {
		clauses = append(clauses, "return_days > 0 AND date(purchase_date, '+' || return_days || ' days') <= ?")
		args = append(args, formatDate(f.ReturnBefore))
	}
	if !f.WarrantyBefore.IsZero() {
		clauses = append(clauses, "warranty_days > 0 AND date(purchase_date, '+' || warranty_days || ' days') <= ?")
		args = append(args, formatDate(f.WarrantyBefore))
	}

	query := `SELECT ` + recordColumns + ` FROM records`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY purchase_date DESC, created_at DESC, id"

	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify("list records", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	byRecord, err := s.attachmentsByRecord(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]purchase.Record, 0, len(rows))
	for _, row := range rows {
		r := row.record()
		r.Attachments = byRecord[r.ID]
		records = append(records, r)
	}
	return records, nil
}

// Categories returns the distinct stores and categories in use, for
// filter suggestions.
func (s *Store) Categories(ctx context.Context) (stores, categories []string, err error) {
	if err := s.db.SelectContext(ctx, &stores, `SELECT DISTINCT store FROM records WHERE store <> '' ORDER BY store`); err != nil {
		return nil, nil, classify("list stores", err)
	}
	if err := s.db.SelectContext(ctx, &categories, `SELECT DISTINCT category FROM records WHERE category <> '' ORDER BY category`); err != nil {
		return nil, nil, classify("list categories", err)
	}
	return stores, categories, nil
}

func (s *Store) attachmentsByRecord(ctx context.Context) (map[string][]purchase.Attachment, error) {
	var rows []attachmentRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+attachmentColumns+` FROM attachments ORDER BY record_id, position`); err != nil {
		return nil, classify("list attachments", err)
	}
	out := make(map[string][]purchase.Attachment)
	for _, row := range rows {
		out[row.RecordID] = append(out[row.RecordID], row.attachment())
	}
	return out, nil
}

// CountRecords returns the number of tracked purchases.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM records`); err != nil {
		return 0, classify("count records", err)
	}
	return n, nil
}

// ResolveRecordID expands a unique id prefix to the full record id.
func (s *Store) ResolveRecordID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", &purchase.ValidationError{Field: "id", Reason: "must not be empty"}
	}

	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `
		SELECT id FROM records WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2
	`, prefix, prefixPattern(prefix)); err != nil {
		return "", classify("resolve record id", err)
	}

	switch {
	case len(ids) == 0:
		return "", purchase.NotFound("record", prefix)
	case len(ids) > 1 && ids[0] != prefix:
		return "", &purchase.ValidationError{Field: "id", Reason: fmt.Sprintf("%q matches more than one record", prefix)}
	}
	return ids[0], nil
}
