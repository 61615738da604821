package tracker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/proofpal/internal/dashboard"
	"github.com/notexe/proofpal/internal/deadline"
	"github.com/notexe/proofpal/internal/dossier"
	"github.com/notexe/proofpal/internal/files"
	"github.com/notexe/proofpal/internal/purchase"
	"github.com/notexe/proofpal/internal/reminder"
	"github.com/notexe/proofpal/internal/store"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

type fixture struct {
	svc   *Service
	store *store.Store
	files *files.Store
	clock *time.Time
	dir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "proofpal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	fs, err := files.New(filepath.Join(dir, "files"))
	require.NoError(t, err)

	clock := time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	policy := deadline.DefaultPolicy()

	svc := New(Deps{
		Store:     st,
		Files:     fs,
		Engine:    reminder.NewEngine(st, policy, reminder.WithClock(now)),
		Dashboard: dashboard.NewAggregator(st, policy),
		Dossier:   dossier.NewBuilder(fs),
		ExportDir: filepath.Join(dir, "exports"),
	}, WithClock(now))

	return &fixture{svc: svc, store: st, files: fs, clock: &clock, dir: dir}
}

func (f *fixture) setToday(t time.Time) {
	*f.clock = t.Add(9 * time.Hour)
}

func laptopInput() Input {
	return Input{
		Label:        "  Laptop ",
		Store:        "Fnac",
		Category:     "Electronics",
		Amount:       decimal.RequireFromString("999.90"),
		PurchaseDate: purchase.Date(2024, time.January, 1),
		ReturnDays:   30,
		WarrantyDays: 730,
	}
}

func thresholds(events []reminder.Event) []int {
	out := make([]int, 0, len(events))
	for _, e := range events {
		out = append(out, e.Threshold)
	}
	return out
}

func actions(t *testing.T, f *fixture, id string) []string {
	t.Helper()
	history, err := f.svc.History(context.Background(), id)
	require.NoError(t, err)
	out := make([]string, 0, len(history))
	for _, a := range history {
		out = append(out, a.Action)
	}
	return out
}

func TestService_AddAndGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rec, err := f.svc.Add(ctx, laptopInput())
	require.NoError(t, err)
	assert.Len(t, rec.ID, 36)
	assert.Equal(t, "Laptop", rec.Label, "label is trimmed")

	got, err := f.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, []string{purchase.ActionRecordCreated}, actions(t, f, rec.ID))

	t.Run("validation_before_persistence", func(t *testing.T) {
		bad := laptopInput()
		bad.ReturnDays = -1
		_, err := f.svc.Add(ctx, bad)
		assert.ErrorIs(t, err, purchase.ErrValidation)

		bad = laptopInput()
		bad.PurchaseDate = time.Time{}
		_, err = f.svc.Add(ctx, bad)
		var verr *purchase.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "purchase_date", verr.Field)

		all, err := f.svc.List(ctx, purchase.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("unknown_id", func(t *testing.T) {
		_, err := f.svc.Get(ctx, "missing")
		assert.ErrorIs(t, err, purchase.ErrNotFound)
	})
}

func TestService_ScanScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rec, err := f.svc.Add(ctx, laptopInput())
	require.NoError(t, err)

	f.setToday(purchase.Date(2024, time.January, 27))

	st, err := f.svc.Status(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, deadline.DueSoon, st.Statuses.Return.State)
	assert.Equal(t, 4, st.Statuses.Return.Days)
	assert.Equal(t, deadline.Upcoming, st.Statuses.Warranty.State)

	result, err := f.svc.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{14, 7}, thresholds(result.Events))

	again, err := f.svc.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Events, "a repeated scan fires nothing")

	assert.Equal(t, []string{
		purchase.ActionRecordCreated,
		purchase.ActionReminderFired,
		purchase.ActionReminderFired,
	}, actions(t, f, rec.ID))
}

func TestService_UpdateInvalidatesReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rec, err := f.svc.Add(ctx, laptopInput())
	require.NoError(t, err)
	f.setToday(purchase.Date(2024, time.January, 27))
	_, err = f.svc.Scan(ctx)
	require.NoError(t, err)

	t.Run("notes_only_keeps_ledger", func(t *testing.T) {
		notes := "box in the attic"
		updated, err := f.svc.Update(ctx, rec.ID, Patch{Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, notes, updated.Notes)

		entries, err := f.svc.Reminders(ctx, rec.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("period_change_refires", func(t *testing.T) {
		days := 28
		_, err := f.svc.Update(ctx, rec.ID, Patch{ReturnDays: &days})
		require.NoError(t, err)

		entries, err := f.svc.Reminders(ctx, rec.ID)
		require.NoError(t, err)
		assert.Empty(t, entries)

		result, err := f.svc.Scan(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{14, 7, 3}, thresholds(result.Events), "2 days left")
	})

	t.Run("invalid_patch", func(t *testing.T) {
		days := -3
		_, err := f.svc.Update(ctx, rec.ID, Patch{WarrantyDays: &days})
		assert.ErrorIs(t, err, purchase.ErrValidation)

		got, err := f.svc.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, 730, got.WarrantyDays)
	})

	t.Run("no_change", func(t *testing.T) {
		before := actions(t, f, rec.ID)
		_, err := f.svc.Update(ctx, rec.ID, Patch{})
		require.NoError(t, err)
		assert.Equal(t, before, actions(t, f, rec.ID))
	})
}

func TestService_ScanWithStaleRecordsAfterEdit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rec, err := f.svc.Add(ctx, laptopInput())
	require.NoError(t, err)
	f.setToday(purchase.Date(2024, time.January, 27))

	// A scan that read the records before the edit finishes after it.
	stale, err := f.store.ListRecords(ctx, purchase.Filter{})
	require.NoError(t, err)
	days := 90
	_, err = f.svc.Update(ctx, rec.ID, Patch{ReturnDays: &days})
	require.NoError(t, err)
	_, err = f.svc.engine.Scan(ctx, stale, f.svc.Today())
	require.NoError(t, err)

	f.setToday(purchase.Date(2024, time.March, 17))
	result, err := f.svc.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, 14, result.Events[0].Threshold)
	assert.True(t, result.Events[0].Deadline.Equal(purchase.Date(2024, time.March, 31)))
}

func TestService_Attachments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rec, err := f.svc.Add(ctx, laptopInput())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(src, pdfBytes, 0o644))

	a, err := f.svc.Attach(ctx, rec.ID, src)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Position)
	assert.FileExists(t, a.Path)

	_, err = f.svc.Attach(ctx, "missing", src)
	assert.ErrorIs(t, err, purchase.ErrNotFound)

	removed, err := f.svc.Detach(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, removed.ID)
	assert.NoFileExists(t, a.Path)

	_, err = f.svc.Detach(ctx, a.ID)
	assert.ErrorIs(t, err, purchase.ErrNotFound)

	assert.Equal(t, []string{
		purchase.ActionRecordCreated,
		purchase.ActionAttachmentAdded,
		purchase.ActionAttachmentRemoved,
	}, actions(t, f, rec.ID))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rec, err := f.svc.Add(ctx, laptopInput())
	require.NoError(t, err)
	src := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(src, pdfBytes, 0o644))
	a, err := f.svc.Attach(ctx, rec.ID, src)
	require.NoError(t, err)

	f.setToday(purchase.Date(2024, time.January, 27))
	_, err = f.svc.Scan(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, rec.ID))

	_, err = f.svc.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, purchase.ErrNotFound)
	assert.NoFileExists(t, a.Path)
	entries, err := f.svc.Reminders(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, f.svc.Delete(ctx, rec.ID), purchase.ErrNotFound)
}

func TestService_ExportDossierFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rec, err := f.svc.Add(ctx, laptopInput())
	require.NoError(t, err)
	src := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(src, pdfBytes, 0o644))
	a, err := f.svc.Attach(ctx, rec.ID, src)
	require.NoError(t, err)

	// The stored copy vanishes behind the database's back.
	require.NoError(t, os.Remove(a.Path))

	path, res, err := f.svc.ExportDossierFile(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.dir, "exports", "laptop-"+rec.ID[:8]+".pdf"), path)
	assert.FileExists(t, path)
	require.Len(t, res.Placeholders, 1)
	assert.Equal(t, "invoice.pdf", res.Placeholders[0].Filename)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, res.PDF, data)

	history := actions(t, f, rec.ID)
	assert.Equal(t, purchase.ActionDossierExported, history[len(history)-1])

	_, _, err = f.svc.ExportDossierFile(ctx, "missing")
	assert.ErrorIs(t, err, purchase.ErrNotFound)
}

func TestService_Dashboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Add(ctx, laptopInput())
	require.NoError(t, err)
	socks := laptopInput()
	socks.Label = "Socks"
	socks.ReturnDays, socks.WarrantyDays = 0, 0
	_, err = f.svc.Add(ctx, socks)
	require.NoError(t, err)

	f.setToday(purchase.Date(2024, time.January, 27))
	summary, err := f.svc.Dashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Records)
	assert.Equal(t, 1, summary.DueSoon)
	assert.Equal(t, 1, summary.Upcoming)
	assert.Equal(t, 1, summary.NoDeadline)
	require.Len(t, summary.Urgent, 1)

	var feed []string
	for a, err := range summary.RecentActivity {
		require.NoError(t, err)
		feed = append(feed, a.Action)
	}
	assert.Equal(t, []string{purchase.ActionRecordCreated, purchase.ActionRecordCreated}, feed)
}

func TestDossierFilename(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Laptop", "laptop-12345678.pdf"},
		{"  Dyson V15 / Détect!! ", "dyson-v15-détect-12345678.pdf"},
		{"???", "purchase-12345678.pdf"},
	}
	for _, tt := range tests {
		got := DossierFilename(purchase.Record{ID: "1234567890abcdef", Label: tt.label})
		assert.Equal(t, tt.want, got, tt.label)
	}
}
