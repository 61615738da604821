package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/notexe/proofpal/internal/dashboard"
	"github.com/notexe/proofpal/internal/deadline"
	"github.com/notexe/proofpal/internal/purchase"
	"github.com/notexe/proofpal/internal/reminder"
	"github.com/notexe/proofpal/internal/tracker"
)

var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")). // Coral red
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")) // Warm yellow

	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")). // Green
			Bold(true)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")). // Soft blue border
			Padding(0, 1)
)

// Colours of the deadline bands.
var stateStyles = map[deadline.State]lipgloss.Style{
	deadline.Overdue:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
	deadline.DueSoon:    lipgloss.NewStyle().Foreground(lipgloss.Color("215")).Bold(true),
	deadline.Upcoming:   lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
	deadline.NoDeadline: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

// Formatter renders domain values for the terminal. With colored false the
// output is plain text.
type Formatter struct {
	colored bool
	now     func() time.Time
}

func NewFormatter(colored bool) *Formatter {
	return &Formatter{colored: colored, now: time.Now}
}

func (f *Formatter) style(s lipgloss.Style, text string) string {
	if f.colored {
		return s.Render(text)
	}
	return text
}

func (f *Formatter) FormatError(err error) string {
	return f.style(ErrorStyle, "Error: ") + err.Error()
}

func (f *Formatter) FormatInfo(info string) string {
	return f.style(InfoStyle, info)
}

func (f *Formatter) FormatSuccess(msg string) string {
	return f.style(SuccessStyle, "✓") + " " + msg
}

// FormatStatus renders one deadline status in its band colour.
func (f *Formatter) FormatStatus(s deadline.Status) string {
	return f.style(stateStyles[s.State], s.String())
}

// FormatState renders the short band name, e.g. "due soon 4d".
func (f *Formatter) FormatState(s deadline.Status) string {
	var text string
	switch s.State {
	case deadline.NoDeadline:
		text = "-"
	case deadline.Overdue:
		text = fmt.Sprintf("overdue %dd", s.Days)
	default:
		text = fmt.Sprintf("%s %dd", strings.ReplaceAll(s.State.String(), "_", " "), s.Days)
	}
	return f.style(stateStyles[s.State], text)
}

// FormatAmount renders money with thousands separators and two decimals.
func FormatAmount(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.InexactFloat64())
}

func (f *Formatter) newTable(headers ...string) *table.Table {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...)
	if f.colored {
		t = t.BorderStyle(DimStyle).StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	} else {
		t = t.StyleFunc(func(int, int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})
	}
	return t
}

// FormatRecordList renders records as a table with both deadline bands.
func (f *Formatter) FormatRecordList(list []tracker.RecordStatus) string {
	if len(list) == 0 {
		return f.style(DimStyle, "No purchases found.")
	}

	t := f.newTable("ID", "Label", "Store", "Purchased", "Amount", "Return", "Warranty")
	for _, rs := range list {
		r := rs.Record
		t.Row(
			r.ShortID(),
			r.Label,
			r.Store,
			r.PurchaseDate.Format(time.DateOnly),
			FormatAmount(r.Amount),
			f.FormatState(rs.Statuses.Return),
			f.FormatState(rs.Statuses.Warranty),
		)
	}
	return t.String()
}

// FormatEvent renders a fired reminder as a single line.
func (f *Formatter) FormatEvent(ev reminder.Event) string {
	return f.style(stateStyles[ev.State], ev.Title()+":") + " " + ev.Message
}

// FormatScan summarizes a scan result.
func (f *Formatter) FormatScan(res *reminder.ScanResult) string {
	var sb strings.Builder
	if len(res.Events) == 0 {
		sb.WriteString(f.style(DimStyle, "No new reminders."))
	}
	for i, ev := range res.Events {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(f.FormatEvent(ev))
	}
	for _, sk := range res.Skipped {
		sb.WriteString("\n")
		sb.WriteString(f.style(ErrorStyle, "skipped "+shortID(sk.RecordID)+": ") + sk.Err.Error())
	}
	return sb.String()
}

// FormatDashboard renders the summary counters, the urgent records and the
// recent activity feed.
func (f *Formatter) FormatDashboard(s dashboard.Summary) (string, error) {
	var sb strings.Builder

	counter := func(label string, n int, st lipgloss.Style) string {
		return f.style(st, fmt.Sprintf("%d", n)) + " " + label
	}
	counters := strings.Join([]string{
		counter("overdue", s.Overdue, stateStyles[deadline.Overdue]),
		counter("due soon", s.DueSoon, stateStyles[deadline.DueSoon]),
		counter("upcoming", s.Upcoming, stateStyles[deadline.Upcoming]),
		counter("untracked", s.NoDeadline, stateStyles[deadline.NoDeadline]),
	}, "  ")
	spend := fmt.Sprintf("%s purchases, %s spent this month", humanize.Comma(int64(s.Records)), FormatAmount(s.MonthlySpend))
	sb.WriteString(f.box("Deadlines", counters+"\n"+spend))
	sb.WriteString("\n")

	if len(s.Urgent) > 0 {
		t := f.newTable("ID", "Label", "Needs attention")
		for _, e := range s.Urgent {
			t.Row(e.Record.ShortID(), e.Record.Label, f.FormatStatus(e.MostUrgent()))
		}
		sb.WriteString(f.style(HeaderStyle, "Urgent"))
		sb.WriteString("\n")
		sb.WriteString(t.String())
		sb.WriteString("\n")
	}

	sb.WriteString(f.style(HeaderStyle, "Recent activity"))
	sb.WriteString("\n")
	n := 0
	for a, err := range s.RecentActivity {
		if err != nil {
			return "", err
		}
		sb.WriteString(f.FormatActivity(a))
		sb.WriteString("\n")
		n++
	}
	if n == 0 {
		sb.WriteString(f.style(DimStyle, "  nothing yet"))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// FormatActivity renders one history entry with a relative timestamp.
func (f *Formatter) FormatActivity(a purchase.Activity) string {
	when := humanize.RelTime(a.At, f.now(), "ago", "from now")
	line := "  " + f.style(DimStyle, fmt.Sprintf("%-14s", when)) + " " + strings.ReplaceAll(a.Action, "_", " ")
	if a.Detail != "" {
		line += ": " + a.Detail
	}
	return line
}

func (f *Formatter) box(title, content string) string {
	if f.colored {
		return HeaderStyle.Render(title) + "\n" + BoxStyle.Render(content)
	}
	return title + "\n" + content
}

func shortID(id string) string {
	return purchase.Record{ID: id}.ShortID()
}
