package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/proofpal/internal/config"
	"github.com/notexe/proofpal/internal/dashboard"
	"github.com/notexe/proofpal/internal/deadline"
	"github.com/notexe/proofpal/internal/dossier"
	"github.com/notexe/proofpal/internal/files"
	"github.com/notexe/proofpal/internal/reminder"
	"github.com/notexe/proofpal/internal/store"
	"github.com/notexe/proofpal/internal/tracker"
)

func newTestServer(t *testing.T, now time.Time) *Server {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "proofpal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	fs, err := files.New(filepath.Join(dir, "files"))
	require.NoError(t, err)

	clock := func() time.Time { return now }
	policy := deadline.DefaultPolicy()
	svc := tracker.New(tracker.Deps{
		Store:     st,
		Files:     fs,
		Engine:    reminder.NewEngine(st, policy, reminder.WithClock(clock)),
		Dashboard: dashboard.NewAggregator(st, policy),
		Dossier:   dossier.NewBuilder(fs),
		ExportDir: filepath.Join(dir, "exports"),
	}, tracker.WithClock(clock))

	return NewServer(svc, config.DefaultsConfig{ReturnDays: 14, WarrantyMonths: 24})
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func addLaptop(t *testing.T, s *Server, args map[string]any) recordView {
	t.Helper()
	base := map[string]any{
		"label":         "Laptop",
		"purchase_date": "2024-01-01",
		"store":         "Fnac",
		"amount":        "999.90",
	}
	for k, v := range args {
		base[k] = v
	}
	res, err := s.handleAddPurchase(context.Background(), call("add_purchase", base))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var view recordView
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &view))
	return view
}

func TestAddPurchase(t *testing.T) {
	s := newTestServer(t, time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC))

	t.Run("applies_configured_defaults", func(t *testing.T) {
		view := addLaptop(t, s, nil)
		assert.Equal(t, "Laptop", view.Label)
		assert.Equal(t, 14, view.ReturnDays)
		assert.Equal(t, 731, view.WarrantyDays, "24 months from 2024-01-01 span a leap day")
		require.Len(t, view.Statuses, 2)
		assert.Equal(t, deadline.Upcoming, view.Statuses[0].State)
		assert.Equal(t, "2024-01-15", view.Statuses[0].Deadline)
	})

	t.Run("explicit_periods", func(t *testing.T) {
		view := addLaptop(t, s, map[string]any{"return_days": 0, "warranty_days": 365})
		assert.Equal(t, 0, view.ReturnDays)
		assert.Equal(t, 365, view.WarrantyDays)
		assert.Equal(t, deadline.NoDeadline, view.Statuses[0].State)
		assert.Empty(t, view.Statuses[0].Deadline)
	})

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing_label", map[string]any{"purchase_date": "2024-01-01"}, "label is required"},
		{"missing_date", map[string]any{"label": "Phone"}, "purchase_date is required"},
		{"bad_date", map[string]any{"label": "Phone", "purchase_date": "01/02/2024"}, "purchase_date"},
		{"bad_amount", map[string]any{"label": "Phone", "purchase_date": "2024-01-01", "amount": "cheap"}, "amount"},
		{"negative_period", map[string]any{"label": "Phone", "purchase_date": "2024-01-01", "return_days": -3}, "return_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleAddPurchase(context.Background(), call("add_purchase", tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, text(t, res), tt.want)
		})
	}
}

func TestGetUpdateDeletePurchase(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC))
	view := addLaptop(t, s, nil)
	prefix := view.ID[:8]

	res, err := s.handleGetPurchase(ctx, call("get_purchase", map[string]any{"id": prefix}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	assert.Contains(t, text(t, res), `"label": "Laptop"`)
	assert.Contains(t, text(t, res), `"record_created"`)

	res, err = s.handleUpdatePurchase(ctx, call("update_purchase", map[string]any{"id": prefix}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "nothing to update", text(t, res))

	res, err = s.handleUpdatePurchase(ctx, call("update_purchase", map[string]any{"id": prefix, "return_days": 30, "notes": "gift"}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	var updated recordView
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &updated))
	assert.Equal(t, 30, updated.ReturnDays)
	assert.Equal(t, "gift", updated.Notes)
	assert.Equal(t, deadline.Upcoming, updated.Statuses[0].State)

	res, err = s.handleDeletePurchase(ctx, call("delete_purchase", map[string]any{"id": view.ID}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	res, err = s.handleGetPurchase(ctx, call("get_purchase", map[string]any{"id": view.ID}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "not found")
}

func TestListAndStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC))

	res, err := s.handleListPurchases(ctx, call("list_purchases", nil))
	require.NoError(t, err)
	assert.Equal(t, "No purchases found.", text(t, res))

	addLaptop(t, s, nil)
	addLaptop(t, s, map[string]any{"label": "Kettle", "store": "Darty"})

	res, err = s.handleListPurchases(ctx, call("list_purchases", map[string]any{"store": "Darty"}))
	require.NoError(t, err)
	var views []recordView
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Kettle", views[0].Label)

	res, err = s.handleListPurchases(ctx, call("list_purchases", map[string]any{"return_before": "soon"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handlePurchaseStatus(ctx, call("purchase_status", nil))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "Return: due in 13 days (2024-01-15)")
	assert.Contains(t, text(t, res), `"Kettle"`)

	res, err = s.handlePurchaseStatus(ctx, call("purchase_status", map[string]any{"id": "zzzz"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestScanReminders(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC))

	res, err := s.handleScanReminders(ctx, call("scan_reminders", nil))
	require.NoError(t, err)
	assert.Equal(t, "No new reminders.", text(t, res))

	addLaptop(t, s, nil)

	res, err = s.handleScanReminders(ctx, call("scan_reminders", nil))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	var out struct {
		Events []reminder.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	require.Len(t, out.Events, 2)
	assert.Equal(t, 14, out.Events[0].Threshold)
	assert.Equal(t, 7, out.Events[1].Threshold)
	assert.Equal(t, deadline.DueSoon, out.Events[1].State)

	res, err = s.handleScanReminders(ctx, call("scan_reminders", nil))
	require.NoError(t, err)
	assert.Equal(t, "No new reminders.", text(t, res), "thresholds fire once")
}

func TestDashboardAndExport(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC))
	view := addLaptop(t, s, nil)

	res, err := s.handleDashboard(ctx, call("dashboard", nil))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	var summary struct {
		DueSoon        int    `json:"due_soon"`
		Upcoming       int    `json:"upcoming"`
		Records        int    `json:"records"`
		MonthlySpend   string `json:"monthly_spend"`
		RecentActivity []struct {
			Action string `json:"action"`
		} `json:"recent_activity"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &summary))
	assert.Equal(t, 1, summary.DueSoon)
	assert.Equal(t, 1, summary.Upcoming)
	assert.Equal(t, 1, summary.Records)
	assert.Equal(t, "999.90", summary.MonthlySpend)
	require.NotEmpty(t, summary.RecentActivity)
	assert.Equal(t, "record_created", summary.RecentActivity[0].Action)

	res, err = s.handleExportDossier(ctx, call("export_dossier", map[string]any{"id": view.ID}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	assert.Contains(t, text(t, res), "laptop-"+view.ID[:8]+".pdf")
	assert.Contains(t, text(t, res), "(1 section)")

	res, err = s.handleExportDossier(ctx, call("export_dossier", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "id is required", text(t, res))
}
