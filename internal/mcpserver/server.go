package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"

	"github.com/notexe/proofpal/internal/config"
	"github.com/notexe/proofpal/internal/deadline"
	"github.com/notexe/proofpal/internal/purchase"
	"github.com/notexe/proofpal/internal/tracker"
)

const (
	serverName    = "proofpal"
	serverVersion = "1.0.0"
)

// Server is the MCP server for purchase tracking.
type Server struct {
	mcpServer *server.MCPServer
	svc       *tracker.Service
	defaults  config.DefaultsConfig
}

// NewServer creates a new ProofPal MCP server backed by the given service.
// defaults fill in the periods of purchases added without them.
func NewServer(svc *tracker.Service, defaults config.DefaultsConfig) *Server {
	s := &Server{
		svc:      svc,
		defaults: defaults,
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	// add_purchase
	s.mcpServer.AddTool(
		mcp.NewTool("add_purchase",
			mcp.WithDescription("Record a purchase so its return window and warranty are tracked"),
			mcp.WithString("label", mcp.Required(), mcp.Description("What was bought")),
			mcp.WithString("purchase_date", mcp.Required(), mcp.Description("Purchase date, YYYY-MM-DD")),
			mcp.WithString("store", mcp.Description("Where it was bought")),
			mcp.WithString("category", mcp.Description("Free-form category")),
			mcp.WithString("amount", mcp.Description("Price paid, e.g. 129.99")),
			mcp.WithNumber("return_days", mcp.Description("Return window in days (0 = none, default from config)")),
			mcp.WithNumber("warranty_days", mcp.Description("Warranty in days (overrides warranty_months)")),
			mcp.WithNumber("warranty_months", mcp.Description("Warranty in months (default from config)")),
			mcp.WithString("notes", mcp.Description("Optional notes")),
		),
		s.handleAddPurchase,
	)

	// list_purchases
	s.mcpServer.AddTool(
		mcp.NewTool("list_purchases",
			mcp.WithDescription("List purchases with their deadline status, optionally filtered"),
			mcp.WithString("text", mcp.Description("Match label, store, category or notes")),
			mcp.WithString("store", mcp.Description("Exact store")),
			mcp.WithString("category", mcp.Description("Exact category")),
			mcp.WithString("return_before", mcp.Description("Only return windows ending on or before YYYY-MM-DD")),
			mcp.WithString("warranty_before", mcp.Description("Only warranties ending on or before YYYY-MM-DD")),
		),
		s.handleListPurchases,
	)

	// get_purchase
	s.mcpServer.AddTool(
		mcp.NewTool("get_purchase",
			mcp.WithDescription("Get one purchase with attachments, statuses, reminders and history"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Purchase id or unique id prefix")),
		),
		s.handleGetPurchase,
	)

	// update_purchase
	s.mcpServer.AddTool(
		mcp.NewTool("update_purchase",
			mcp.WithDescription("Update a purchase. Changing the date or a period resets its reminders"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Purchase id or unique id prefix")),
			mcp.WithString("label", mcp.Description("New label")),
			mcp.WithString("purchase_date", mcp.Description("New purchase date, YYYY-MM-DD")),
			mcp.WithString("store", mcp.Description("New store")),
			mcp.WithString("category", mcp.Description("New category")),
			mcp.WithString("amount", mcp.Description("New amount")),
			mcp.WithNumber("return_days", mcp.Description("New return window in days")),
			mcp.WithNumber("warranty_days", mcp.Description("New warranty in days")),
			mcp.WithString("notes", mcp.Description("New notes")),
		),
		s.handleUpdatePurchase,
	)

	// delete_purchase
	s.mcpServer.AddTool(
		mcp.NewTool("delete_purchase",
			mcp.WithDescription("Delete a purchase with its attachments and reminder history"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Purchase id or unique id prefix")),
		),
		s.handleDeletePurchase,
	)

	// purchase_status
	s.mcpServer.AddTool(
		mcp.NewTool("purchase_status",
			mcp.WithDescription("Return and warranty status of one purchase, or of all purchases when no id is given"),
			mcp.WithString("id", mcp.Description("Purchase id or unique id prefix")),
		),
		s.handlePurchaseStatus,
	)

	// scan_reminders
	s.mcpServer.AddTool(
		mcp.NewTool("scan_reminders",
			mcp.WithDescription("Check every deadline and return the reminders that fire now. Each reminder fires once"),
		),
		s.handleScanReminders,
	)

	// dashboard
	s.mcpServer.AddTool(
		mcp.NewTool("dashboard",
			mcp.WithDescription("Counts of overdue, due soon and upcoming deadlines, urgent purchases and recent activity"),
		),
		s.handleDashboard,
	)

	// export_dossier
	s.mcpServer.AddTool(
		mcp.NewTool("export_dossier",
			mcp.WithDescription("Write a PDF dossier with the purchase details and proof files to the export directory"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Purchase id or unique id prefix")),
		),
		s.handleExportDossier,
	)
}

type statusView struct {
	Kind     deadline.Kind  `json:"kind"`
	State    deadline.State `json:"state"`
	Deadline string         `json:"deadline,omitempty"`
	Days     int            `json:"days"`
	Summary  string         `json:"summary"`
}

func statusViews(st deadline.Statuses) []statusView {
	out := make([]statusView, 0, 2)
	for _, s := range st.All() {
		v := statusView{Kind: s.Kind, State: s.State, Days: s.Days, Summary: s.String()}
		if s.Tracked() {
			v.Deadline = s.Deadline.Format(time.DateOnly)
		}
		out = append(out, v)
	}
	return out
}

type recordView struct {
	purchase.Record
	Statuses []statusView `json:"statuses"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	output, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func optionalDate(req mcp.CallToolRequest, key string) (time.Time, error) {
	v := req.GetString(key, "")
	if v == "" {
		return time.Time{}, nil
	}
	t, err := purchase.ParseDate(v)
	if err != nil {
		return time.Time{}, &purchase.ValidationError{Field: key, Reason: "expected YYYY-MM-DD, got " + v}
	}
	return t, nil
}

func optionalAmount(v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, &purchase.ValidationError{Field: "amount", Reason: "not a number: " + v}
	}
	return d, nil
}

func hasArg(req mcp.CallToolRequest, key string) bool {
	_, ok := req.GetArguments()[key]
	return ok
}

func (s *Server) resolve(ctx context.Context, req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	raw := req.GetString("id", "")
	if raw == "" {
		return "", mcp.NewToolResultError("id is required")
	}
	id, err := s.svc.Resolve(ctx, raw)
	if err != nil {
		return "", mcp.NewToolResultError(err.Error())
	}
	return id, nil
}

func (s *Server) handleAddPurchase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label := req.GetString("label", "")
	if label == "" {
		return mcp.NewToolResultError("label is required"), nil
	}
	date, err := optionalDate(req, "purchase_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if date.IsZero() {
		return mcp.NewToolResultError("purchase_date is required"), nil
	}
	amount, err := optionalAmount(req.GetString("amount", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := tracker.Input{
		Label:        label,
		Store:        req.GetString("store", ""),
		Category:     req.GetString("category", ""),
		Amount:       amount,
		PurchaseDate: date,
		ReturnDays:   req.GetInt("return_days", s.defaults.ReturnDays),
		Notes:        req.GetString("notes", ""),
	}
	if hasArg(req, "warranty_days") {
		in.WarrantyDays = req.GetInt("warranty_days", 0)
	} else {
		in.WarrantyDays = purchase.MonthsToDays(date, req.GetInt("warranty_months", s.defaults.WarrantyMonths))
	}

	rec, err := s.svc.Add(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add purchase: %v", err)), nil
	}
	st, err := s.svc.Status(ctx, rec.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read status: %v", err)), nil
	}
	return jsonResult(recordView{Record: st.Record, Statuses: statusViews(st.Statuses)})
}

func (s *Server) handleListPurchases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := purchase.Filter{
		Text:     req.GetString("text", ""),
		Store:    req.GetString("store", ""),
		Category: req.GetString("category", ""),
	}
	var err error
	if f.ReturnBefore, err = optionalDate(req, "return_before"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if f.WarrantyBefore, err = optionalDate(req, "warranty_before"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	list, err := s.svc.Statuses(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list purchases: %v", err)), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No purchases found."), nil
	}

	views := make([]recordView, 0, len(list))
	for _, rs := range list {
		views = append(views, recordView{Record: rs.Record, Statuses: statusViews(rs.Statuses)})
	}
	return jsonResult(views)
}

func (s *Server) handleGetPurchase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := s.resolve(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	snap, err := s.svc.Snapshot(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get purchase: %v", err)), nil
	}

	return jsonResult(struct {
		recordView
		Reminders any `json:"reminders"`
		History   any `json:"history"`
	}{
		recordView: recordView{Record: snap.Record, Statuses: statusViews(snap.Statuses)},
		Reminders:  snap.Reminders,
		History:    snap.History,
	})
}

func (s *Server) handleUpdatePurchase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := s.resolve(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	var p tracker.Patch
	for key, dst := range map[string]**string{
		"label":    &p.Label,
		"store":    &p.Store,
		"category": &p.Category,
		"notes":    &p.Notes,
	} {
		if hasArg(req, key) {
			v := req.GetString(key, "")
			*dst = &v
		}
	}
	date, err := optionalDate(req, "purchase_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !date.IsZero() {
		p.PurchaseDate = &date
	}
	if v := req.GetString("amount", ""); v != "" {
		d, err := optionalAmount(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p.Amount = &d
	}
	if hasArg(req, "return_days") {
		v := req.GetInt("return_days", 0)
		p.ReturnDays = &v
	}
	if hasArg(req, "warranty_days") {
		v := req.GetInt("warranty_days", 0)
		p.WarrantyDays = &v
	}
	if p.Empty() {
		return mcp.NewToolResultError("nothing to update"), nil
	}

	rec, err := s.svc.Update(ctx, id, p)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update purchase: %v", err)), nil
	}
	return jsonResult(recordView{Record: rec, Statuses: statusViews(deadline.Evaluate(rec, s.svc.Today(), s.svc.Policy()))})
}

func (s *Server) handleDeletePurchase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := s.resolve(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	if err := s.svc.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete purchase: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Purchase %s deleted.", id)), nil
}

func (s *Server) handlePurchaseStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetString("id", "") == "" {
		list, err := s.svc.Statuses(ctx, purchase.Filter{})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read statuses: %v", err)), nil
		}
		type line struct {
			ID       string       `json:"id"`
			Label    string       `json:"label"`
			Statuses []statusView `json:"statuses"`
		}
		out := make([]line, 0, len(list))
		for _, rs := range list {
			out = append(out, line{ID: rs.Record.ID, Label: rs.Record.Label, Statuses: statusViews(rs.Statuses)})
		}
		return jsonResult(out)
	}

	id, errResult := s.resolve(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	st, err := s.svc.Status(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read status: %v", err)), nil
	}
	return jsonResult(statusViews(st.Statuses))
}

func (s *Server) handleScanReminders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.svc.Scan(ctx)
	if result == nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to scan reminders: %v", err)), nil
	}

	if err == nil && len(result.Events) == 0 && len(result.Skipped) == 0 {
		return mcp.NewToolResultText("No new reminders."), nil
	}

	skipped := make([]map[string]string, 0, len(result.Skipped))
	for _, sk := range result.Skipped {
		skipped = append(skipped, map[string]string{"record_id": sk.RecordID, "error": sk.Err.Error()})
	}
	out := map[string]any{
		"events":  result.Events,
		"skipped": skipped,
	}
	// Interrupted: the events so far are recorded and must reach the client.
	if err != nil {
		out["error"] = err.Error()
	}
	return jsonResult(out)
}

func (s *Server) handleDashboard(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.svc.Dashboard(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build dashboard: %v", err)), nil
	}

	type urgent struct {
		ID     string `json:"id"`
		Label  string `json:"label"`
		Status string `json:"status"`
	}
	out := struct {
		Overdue        int                 `json:"overdue"`
		DueSoon        int                 `json:"due_soon"`
		Upcoming       int                 `json:"upcoming"`
		NoDeadline     int                 `json:"no_deadline"`
		Records        int                 `json:"records"`
		MonthlySpend   string              `json:"monthly_spend"`
		Urgent         []urgent            `json:"urgent"`
		RecentActivity []purchase.Activity `json:"recent_activity"`
	}{
		Overdue:      summary.Overdue,
		DueSoon:      summary.DueSoon,
		Upcoming:     summary.Upcoming,
		NoDeadline:   summary.NoDeadline,
		Records:      summary.Records,
		MonthlySpend: summary.MonthlySpend.StringFixed(2),
	}
	for _, e := range summary.Urgent {
		out.Urgent = append(out.Urgent, urgent{ID: e.Record.ID, Label: e.Record.Label, Status: e.MostUrgent().String()})
	}
	for a, err := range summary.RecentActivity {
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read activity: %v", err)), nil
		}
		out.RecentActivity = append(out.RecentActivity, a)
	}
	return jsonResult(out)
}

func (s *Server) handleExportDossier(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := s.resolve(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	path, res, err := s.svc.ExportDossierFile(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to export dossier: %v", err)), nil
	}

	text := fmt.Sprintf("Dossier written to %s (%s)", path, deadline.Plural(res.Sections, "section"))
	for _, p := range res.Placeholders {
		text += fmt.Sprintf("\n- %s replaced by a placeholder: %s", p.Filename, p.Reason)
	}
	return mcp.NewToolResultText(text), nil
}
