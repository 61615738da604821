package dossier

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-pdf/fpdf"
	"gopkg.in/yaml.v3"

	"github.com/notexe/proofpal/internal/deadline"
	"github.com/notexe/proofpal/internal/purchase"
	"github.com/notexe/proofpal/internal/reminder"
)

const (
	fontFamily = "Helvetica"
	lineHeight = 5.5
	labelWidth = 42.0
	// Previews are never enlarged past 96 dpi.
	mmPerPixel = 25.4 / 96
)

type renderer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func render(snap Snapshot, sections []loaded, compress bool) (*Result, error) {
	created := snap.AsOf.UTC()
	if created.IsZero() {
		created = snap.Record.UpdatedAt.UTC()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AliasNbPages("")

	r := &renderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetTitle(r.tr("Proof of purchase: "+snap.Record.Label), false)
	pdf.SetSubject(r.tr("Return and warranty dossier"), false)
	pdf.SetCreator("proofpal", false)
	pdf.SetAuthor("proofpal", false)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 6, fmt.Sprintf("%s - page %d of {nb}", r.tr(snap.Record.Label), pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	meta, err := metadataYAML(snap, created)
	if err != nil {
		return nil, fmt.Errorf("%w: encode metadata: %v", purchase.ErrRender, err)
	}
	pdf.SetAttachments([]fpdf.Attachment{{
		Content:     meta,
		Filename:    "record.yaml",
		Description: "Machine-readable record metadata",
	}})

	r.cover(snap, created)

	res := &Result{Sections: 1}
	for i, s := range sections {
		res.Sections++
		n := i + 1
		if s.err != nil {
			reason := failureReason(s.err)
			r.placeholder(n, s.att, reason)
			res.Placeholders = append(res.Placeholders, Placeholder{
				AttachmentID: s.att.ID,
				Filename:     s.att.Filename,
				Reason:       reason,
			})
			continue
		}
		switch s.att.Kind {
		case purchase.KindPDF:
			r.embedded(n, s)
		default:
			r.preview(n, s)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", purchase.ErrRender, err)
	}
	res.PDF = buf.Bytes()
	return res, nil
}

func (r *renderer) cover(snap Snapshot, asOf time.Time) {
	pdf, rec := r.pdf, snap.Record
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 20)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Proof of purchase", "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 15)
	pdf.MultiCell(0, 8, r.tr(rec.Label), "", "L", false)
	pdf.SetFont(fontFamily, "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 6, fmt.Sprintf("Prepared %s - record %s", asOf.Format(time.DateOnly), rec.ID), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	r.section("Purchase")
	r.field("Purchase date", rec.PurchaseDate.Format(time.DateOnly))
	if rec.Store != "" {
		r.field("Store", rec.Store)
	}
	if rec.Category != "" {
		r.field("Category", rec.Category)
	}
	if !rec.Amount.IsZero() {
		r.field("Amount", rec.Amount.StringFixed(2))
	}
	r.field("Return window", period(rec.ReturnDays))
	r.field("Warranty", period(rec.WarrantyDays))

	r.section("Deadlines")
	for _, st := range snap.Statuses.All() {
		r.status(st)
	}

	if strings.TrimSpace(rec.Notes) != "" {
		r.section("Notes")
		r.body(rec.Notes)
	}

	r.section("Reminders")
	if len(snap.Reminders) == 0 {
		r.muted("No reminders have fired for this purchase.")
	}
	for _, e := range snap.Reminders {
		r.field(e.FiredAt.UTC().Format(time.DateOnly), reminderLine(e))
	}

	r.section("History")
	if len(snap.History) == 0 {
		r.muted("No recorded activity.")
	}
	for _, a := range snap.History {
		line := strings.ReplaceAll(a.Action, "_", " ")
		if a.Detail != "" {
			line += ": " + a.Detail
		}
		r.field(a.At.UTC().Format("2006-01-02 15:04"), line)
	}

	r.section("Attachments")
	if len(rec.Attachments) == 0 {
		r.muted("No proof files attached.")
	}
	for i, a := range rec.Attachments {
		r.field(fmt.Sprintf("%d.", i+1), fmt.Sprintf("%s (%s, %s)", a.Filename, a.Kind, humanize.Bytes(uint64(max(a.Size, 0)))))
	}
}

func (r *renderer) preview(n int, s loaded) {
	pdf := r.pdf
	pdf.AddPage()
	r.attachmentHeading(n, s.att)

	name := "attachment-" + s.att.ID
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(s.data))

	left, _, right, bottom := pdf.GetMargins()
	pageW, pageH := pdf.GetPageSize()
	y := pdf.GetY() + 4
	maxW := pageW - left - right
	maxH := pageH - y - bottom - 18

	w, h := float64(s.dims.Width), float64(s.dims.Height)
	if w <= 0 || h <= 0 {
		return
	}
	scale := min(maxW/w, maxH/h, mmPerPixel)
	dw, dh := w*scale, h*scale
	pdf.ImageOptions(name, left+(maxW-dw)/2, y, dw, dh, false, opts, 0, "")
}

func (r *renderer) embedded(n int, s loaded) {
	pdf := r.pdf
	pdf.AddPage()
	r.attachmentHeading(n, s.att)

	r.body("This document is embedded in the dossier as a file attachment. " +
		"Open the attachment icon below, or the attachments panel of your PDF viewer, to view it.")
	pdf.Ln(4)

	left, _, _, _ := pdf.GetMargins()
	y := pdf.GetY()
	att := &fpdf.Attachment{
		Content:     s.data,
		Filename:    s.att.Filename,
		Description: fmt.Sprintf("Attachment %d of %s", n, s.att.RecordID),
	}
	pdf.SetDrawColor(90, 90, 90)
	pdf.Rect(left, y, 10, 12, "D")
	pdf.AddAttachmentAnnotation(att, left, y, 10, 12)
	pdf.SetXY(left+14, y+3)
	pdf.SetFont(fontFamily, "B", 10)
	pdf.CellFormat(0, 6, r.tr(s.att.Filename), "", 1, "L", false, 0, "")
}

func (r *renderer) placeholder(n int, a purchase.Attachment, reason string) {
	pdf := r.pdf
	pdf.AddPage()
	r.attachmentHeading(n, a)

	pdf.SetFillColor(246, 240, 240)
	pdf.SetDrawColor(200, 120, 120)
	pdf.SetTextColor(140, 30, 30)
	pdf.SetFont(fontFamily, "B", 11)
	pdf.MultiCell(0, 8, "This attachment could not be included.", "LTR", "L", true)
	pdf.SetFont(fontFamily, "", 10)
	pdf.MultiCell(0, 6, r.tr("Reason: "+reason), "LBR", "L", true)
	pdf.SetTextColor(0, 0, 0)
}

func (r *renderer) attachmentHeading(n int, a purchase.Attachment) {
	pdf := r.pdf
	pdf.SetFont(fontFamily, "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 8, r.tr(fmt.Sprintf("Attachment %d: %s", n, a.Filename)), "", "L", false)
	pdf.SetFont(fontFamily, "", 9)
	pdf.SetTextColor(110, 110, 110)
	detail := fmt.Sprintf("%s, %s", a.MIME, humanize.Bytes(uint64(max(a.Size, 0))))
	if !a.AddedAt.IsZero() {
		detail += ", added " + a.AddedAt.UTC().Format(time.DateOnly)
	}
	if a.Checksum != "" {
		detail += ", sha256 " + a.Checksum
	}
	pdf.MultiCell(0, 5, r.tr(detail), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
}

func (r *renderer) section(title string) {
	pdf := r.pdf
	pdf.Ln(3)
	pdf.SetFont(fontFamily, "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 7, title, "B", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func (r *renderer) field(label, value string) {
	pdf := r.pdf
	pdf.SetFont(fontFamily, "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(labelWidth, lineHeight, r.tr(label), "", 0, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, lineHeight, r.tr(value), "", "L", false)
}

func (r *renderer) status(st deadline.Status) {
	pdf := r.pdf
	switch st.State {
	case deadline.Overdue:
		pdf.SetTextColor(190, 30, 30)
	case deadline.DueSoon:
		pdf.SetTextColor(200, 120, 0)
	case deadline.Upcoming:
		pdf.SetTextColor(20, 120, 50)
	default:
		pdf.SetTextColor(120, 120, 120)
	}
	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(0, 6.5, r.tr(st.String()), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func (r *renderer) body(text string) {
	r.pdf.SetFont(fontFamily, "", 10)
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.MultiCell(0, lineHeight, r.tr(text), "", "L", false)
}

func (r *renderer) muted(text string) {
	r.pdf.SetFont(fontFamily, "I", 10)
	r.pdf.SetTextColor(120, 120, 120)
	r.pdf.MultiCell(0, lineHeight, r.tr(text), "", "L", false)
	r.pdf.SetTextColor(0, 0, 0)
}

func period(days int) string {
	if days == 0 {
		return "not tracked"
	}
	return deadline.Plural(days, "day")
}

func reminderLine(e reminder.LedgerEntry) string {
	var when string
	if e.Threshold == 0 {
		when = "deadline reached"
	} else {
		when = deadline.Plural(e.Threshold, "day") + " before deadline"
	}
	line := fmt.Sprintf("%s, %s", e.Kind.Label(), when)
	if !e.Notified {
		line += " (recorded without notice)"
	}
	return line
}

func failureReason(err error) string {
	if errors.Is(err, purchase.ErrNotFound) {
		return "the stored file is missing"
	}
	return err.Error()
}

type statusMeta struct {
	Kind     deadline.Kind  `yaml:"kind"`
	State    deadline.State `yaml:"state"`
	Deadline string         `yaml:"deadline,omitempty"`
	Days     int            `yaml:"days"`
	Summary  string         `yaml:"summary"`
}

type metadata struct {
	AsOf      string                 `yaml:"as_of"`
	Record    purchase.Record        `yaml:"record"`
	Statuses  []statusMeta           `yaml:"statuses"`
	Reminders []reminder.LedgerEntry `yaml:"reminders,omitempty"`
}

func metadataYAML(snap Snapshot, asOf time.Time) ([]byte, error) {
	m := metadata{
		AsOf:      asOf.Format(time.DateOnly),
		Record:    snap.Record,
		Reminders: snap.Reminders,
	}
	for _, st := range snap.Statuses.All() {
		sm := statusMeta{Kind: st.Kind, State: st.State, Days: st.Days, Summary: st.String()}
		if st.Tracked() {
			sm.Deadline = st.Deadline.Format(time.DateOnly)
		}
		m.Statuses = append(m.Statuses, sm)
	}
	return yaml.Marshal(m)
}
