// Package tracker is the application service behind every surface: it
// validates input, persists records and attachments, keeps the reminder
// ledger in step with edits and records what happened in the activity
// feed.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/notexe/proofpal/internal/dashboard"
	"github.com/notexe/proofpal/internal/deadline"
	"github.com/notexe/proofpal/internal/dossier"
	"github.com/notexe/proofpal/internal/files"
	"github.com/notexe/proofpal/internal/purchase"
	"github.com/notexe/proofpal/internal/reminder"
	"github.com/notexe/proofpal/internal/store"
)

// Service coordinates storage, deadlines, reminders and exports.
type Service struct {
	store     *store.Store
	files     *files.Store
	engine    *reminder.Engine
	dashboard *dashboard.Aggregator
	dossier   *dossier.Builder
	exportDir string
	now       func() time.Time
	logger    zerolog.Logger
}

// Deps are the collaborators a Service needs.
type Deps struct {
	Store     *store.Store
	Files     *files.Store
	Engine    *reminder.Engine
	Dashboard *dashboard.Aggregator
	Dossier   *dossier.Builder
	ExportDir string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for timestamps and "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a service from its collaborators.
func New(d Deps, opts ...Option) *Service {
	s := &Service{
		store:     d.Store,
		files:     d.Files,
		engine:    d.Engine,
		dashboard: d.Dashboard,
		dossier:   d.Dossier,
		exportDir: d.ExportDir,
		now:       time.Now,
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "tracker").Logger()
	return s
}

// Policy returns the reminder policy in effect.
func (s *Service) Policy() deadline.Policy {
	return s.engine.Policy()
}

// Today returns the current calendar day.
func (s *Service) Today() time.Time {
	return purchase.Day(s.now())
}

// Input holds the fields of a new purchase.
type Input struct {
	Label        string
	Store        string
	Category     string
	Amount       decimal.Decimal
	PurchaseDate time.Time
	ReturnDays   int
	WarrantyDays int
	Notes        string
}

// Patch changes selected fields of a record. Nil fields are left alone.
type Patch struct {
	Label        *string
	Store        *string
	Category     *string
	Amount       *decimal.Decimal
	PurchaseDate *time.Time
	ReturnDays   *int
	WarrantyDays *int
	Notes        *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Label == nil && p.Store == nil && p.Category == nil && p.Amount == nil &&
		p.PurchaseDate == nil && p.ReturnDays == nil && p.WarrantyDays == nil && p.Notes == nil
}

func (p Patch) apply(r *purchase.Record) []string {
	var changed []string
	setString := func(name string, dst *string, v *string) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = append(changed, name)
		}
	}
	setInt := func(name string, dst *int, v *int) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = append(changed, name)
		}
	}

	setString("label", &r.Label, p.Label)
	setString("store", &r.Store, p.Store)
	setString("category", &r.Category, p.Category)
	if p.Amount != nil && !r.Amount.Equal(*p.Amount) {
		r.Amount = *p.Amount
		changed = append(changed, "amount")
	}
	if p.PurchaseDate != nil && !purchase.Day(*p.PurchaseDate).Equal(r.PurchaseDate) {
		r.PurchaseDate = *p.PurchaseDate
		changed = append(changed, "purchase_date")
	}
	setInt("return_days", &r.ReturnDays, p.ReturnDays)
	setInt("warranty_days", &r.WarrantyDays, p.WarrantyDays)
	setString("notes", &r.Notes, p.Notes)
	return changed
}

// Add validates and stores a new purchase.
func (s *Service) Add(ctx context.Context, in Input) (purchase.Record, error) {
	now := s.now().UTC()
	rec := purchase.Record{
		ID:           uuid.NewString(),
		Label:        in.Label,
		Store:        in.Store,
		Category:     in.Category,
		Amount:       in.Amount,
		PurchaseDate: in.PurchaseDate,
		ReturnDays:   in.ReturnDays,
		WarrantyDays: in.WarrantyDays,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return purchase.Record{}, err
	}

	if err := s.store.CreateRecord(ctx, rec); err != nil {
		return purchase.Record{}, fmt.Errorf("failed to add purchase: %w", err)
	}

	s.logger.Info().Str("record_id", rec.ID).Str("label", rec.Label).Msg("Purchase added")
	s.activity(ctx, rec.ID, purchase.ActionRecordCreated, rec.Label)
	return rec, nil
}

// Update applies p to the record with id. Changing the purchase date or a
// period resets the reminders of the affected deadline kinds.
func (s *Service) Update(ctx context.Context, id string, p Patch) (purchase.Record, error) {
	old, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return purchase.Record{}, err
	}

	rec := old
	changed := p.apply(&rec)
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return purchase.Record{}, err
	}
	if len(changed) == 0 {
		return old, nil
	}

	rec.UpdatedAt = s.now().UTC()
	kinds := deadline.ChangedKinds(old, rec)
	err = s.engine.Reschedule(func() error {
		return s.store.UpdateRecord(ctx, rec, kinds...)
	})
	if err != nil {
		return purchase.Record{}, fmt.Errorf("failed to update purchase: %w", err)
	}

	s.logger.Info().Str("record_id", id).Strs("fields", changed).Msg("Purchase updated")
	s.activity(ctx, id, purchase.ActionRecordUpdated, strings.Join(changed, ", "))
	return rec, nil
}

// Delete removes a record with its attachments, stored files and
// reminder history.
func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.store.DeleteRecord(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete purchase: %w", err)
	}

	if err := s.files.RemoveRecord(id); err != nil {
		s.logger.Warn().Err(err).Str("record_id", id).Msg("Failed to remove stored files")
	}

	s.logger.Info().Str("record_id", id).Int("attachments", len(removed)).Msg("Purchase deleted")
	s.activity(ctx, id, purchase.ActionRecordDeleted, rec.Label)
	return nil
}

// Resolve expands a full id or a unique id prefix, as printed by the
// list views, to a record id.
func (s *Service) Resolve(ctx context.Context, idOrPrefix string) (string, error) {
	return s.store.ResolveRecordID(ctx, idOrPrefix)
}

// Get returns one record with its attachments.
func (s *Service) Get(ctx context.Context, id string) (purchase.Record, error) {
	return s.store.GetRecord(ctx, id)
}

// List returns the records matching f, most recent purchase first.
func (s *Service) List(ctx context.Context, f purchase.Filter) ([]purchase.Record, error) {
	return s.store.ListRecords(ctx, f)
}

// Suggestions returns the stores and categories already in use.
func (s *Service) Suggestions(ctx context.Context) (stores, categories []string, err error) {
	return s.store.Categories(ctx)
}

// Attach copies the file at path into storage and appends it to the
// record's attachments.
func (s *Service) Attach(ctx context.Context, recordID, path string) (purchase.Attachment, error) {
	if _, err := s.store.GetRecord(ctx, recordID); err != nil {
		return purchase.Attachment{}, err
	}

	a, err := s.files.Import(recordID, path)
	if err != nil {
		return purchase.Attachment{}, err
	}

	a, err = s.store.AddAttachment(ctx, a)
	if err != nil {
		existing, _ := s.store.GetAttachments(ctx, recordID)
		if rmErr := s.files.Remove(a, existing); rmErr != nil {
			s.logger.Warn().Err(rmErr).Str("path", a.Path).Msg("Failed to clean up imported file")
		}
		return purchase.Attachment{}, fmt.Errorf("failed to attach file: %w", err)
	}

	s.logger.Info().Str("record_id", recordID).Str("file", a.Filename).Msg("Attachment added")
	s.activity(ctx, recordID, purchase.ActionAttachmentAdded, a.Filename)
	return a, nil
}

// Detach removes one attachment and its stored file.
func (s *Service) Detach(ctx context.Context, attachmentID string) (purchase.Attachment, error) {
	a, err := s.store.DeleteAttachment(ctx, attachmentID)
	if err != nil {
		return a, err
	}

	remaining, err := s.store.GetAttachments(ctx, a.RecordID)
	if err != nil {
		s.logger.Warn().Err(err).Str("record_id", a.RecordID).Msg("Keeping stored file, could not list remaining attachments")
	} else if err := s.files.Remove(a, remaining); err != nil {
		s.logger.Warn().Err(err).Str("path", a.Path).Msg("Failed to remove stored file")
	}

	s.logger.Info().Str("record_id", a.RecordID).Str("file", a.Filename).Msg("Attachment removed")
	s.activity(ctx, a.RecordID, purchase.ActionAttachmentRemoved, a.Filename)
	return a, nil
}

// RecordStatus is a record with both of its classified deadlines.
type RecordStatus struct {
	Record   purchase.Record   `json:"record"`
	Statuses deadline.Statuses `json:"-"`
}

// Status classifies the deadlines of one record as of today.
func (s *Service) Status(ctx context.Context, id string) (RecordStatus, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return RecordStatus{}, err
	}
	return RecordStatus{Record: rec, Statuses: deadline.Evaluate(rec, s.Today(), s.Policy())}, nil
}

// Statuses classifies every record matching f as of today.
func (s *Service) Statuses(ctx context.Context, f purchase.Filter) ([]RecordStatus, error) {
	records, err := s.store.ListRecords(ctx, f)
	if err != nil {
		return nil, err
	}
	today := s.Today()
	out := make([]RecordStatus, 0, len(records))
	for _, rec := range records {
		out = append(out, RecordStatus{Record: rec, Statuses: deadline.Evaluate(rec, today, s.Policy())})
	}
	return out, nil
}

// History returns the activity of one record, oldest first.
func (s *Service) History(ctx context.Context, id string) ([]purchase.Activity, error) {
	return s.store.RecordActivity(ctx, id)
}

// Reminders returns the fired reminder thresholds of one record.
func (s *Service) Reminders(ctx context.Context, id string) ([]reminder.LedgerEntry, error) {
	return s.store.LedgerEntriesFor(ctx, id)
}

// Dashboard summarizes every record as of now.
func (s *Service) Dashboard(ctx context.Context) (dashboard.Summary, error) {
	records, err := s.store.ListRecords(ctx, purchase.Filter{})
	if err != nil {
		return dashboard.Summary{}, err
	}
	return s.dashboard.Summarize(ctx, records, s.now()), nil
}

func (s *Service) activity(ctx context.Context, recordID, action, detail string) {
	err := s.store.AppendActivity(ctx, purchase.Activity{
		RecordID: recordID,
		Action:   action,
		Detail:   detail,
		At:       s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("Failed to record activity")
	}
}
