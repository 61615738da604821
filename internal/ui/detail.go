package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"

	"github.com/notexe/proofpal/internal/dossier"
)

// RecordMarkdown describes a record snapshot as markdown.
func RecordMarkdown(snap dossier.Snapshot) string {
	r := snap.Record
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", r.Label)
	fmt.Fprintf(&sb, "| | |\n|---|---|\n")
	fmt.Fprintf(&sb, "| ID | `%s` |\n", r.ID)
	if r.Store != "" {
		fmt.Fprintf(&sb, "| Store | %s |\n", r.Store)
	}
	if r.Category != "" {
		fmt.Fprintf(&sb, "| Category | %s |\n", r.Category)
	}
	fmt.Fprintf(&sb, "| Amount | %s |\n", FormatAmount(r.Amount))
	fmt.Fprintf(&sb, "| Purchased | %s |\n", r.PurchaseDate.Format(time.DateOnly))

	sb.WriteString("\n## Deadlines\n\n")
	for _, st := range snap.Statuses.All() {
		fmt.Fprintf(&sb, "- %s\n", st.String())
	}

	if r.Notes != "" {
		fmt.Fprintf(&sb, "\n## Notes\n\n%s\n", r.Notes)
	}

	sb.WriteString("\n## Attachments\n\n")
	if len(r.Attachments) == 0 {
		sb.WriteString("_none_\n")
	}
	for _, a := range r.Attachments {
		fmt.Fprintf(&sb, "%d. %s (%s, %s)\n", a.Position, a.Filename, a.Kind, humanize.Bytes(uint64(max(a.Size, 0))))
	}

	if len(snap.Reminders) > 0 {
		sb.WriteString("\n## Reminders\n\n")
		for _, e := range snap.Reminders {
			note := ""
			if !e.Notified {
				note = " (caught up, not sent)"
			}
			fmt.Fprintf(&sb, "- %s, %s: %s%s\n", e.Kind.Label(), thresholdLabel(e.Threshold), e.FiredAt.Format(time.DateOnly), note)
		}
	}

	if len(snap.History) > 0 {
		sb.WriteString("\n## History\n\n")
		for _, a := range snap.History {
			line := fmt.Sprintf("- %s %s", a.At.Format("2006-01-02 15:04"), strings.ReplaceAll(a.Action, "_", " "))
			if a.Detail != "" {
				line += ": " + a.Detail
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}

func thresholdLabel(days int) string {
	if days == 0 {
		return "on the day"
	}
	return humanize.Comma(int64(days)) + " days before"
}

// FormatRecordDetail renders a record snapshot for the terminal. Without
// colour the raw markdown is returned.
func (f *Formatter) FormatRecordDetail(snap dossier.Snapshot) string {
	md := RecordMarkdown(snap)
	if !f.colored {
		return md
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}

	rendered, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(rendered)
}
