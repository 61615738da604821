package purchase

import (
	"strings"
	"time"
)

const day = 24 * time.Hour

// Day truncates t to its calendar date at midnight UTC. The wall clock
// date of t is kept, whatever its location.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar date.
func Date(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD, got " + s}
	}
	return t, nil
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)) / day)
}

// AddDays returns the calendar date n days after t.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// MonthsToDays converts a period of whole months starting at purchase into
// the equivalent number of calendar days, so month-based input can be stored
// in the day-based model.
func MonthsToDays(purchase time.Time, months int) int {
	if months <= 0 {
		return 0
	}
	start := Day(purchase)
	return DaysBetween(start, start.AddDate(0, months, 0))
}

// Validate rejects records the deadline logic cannot work with.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Label) == "" {
		return &ValidationError{Field: "label", Reason: "must not be empty"}
	}
	if r.PurchaseDate.IsZero() {
		return &ValidationError{Field: "purchase_date", Reason: "must be set"}
	}
	if r.ReturnDays < 0 {
		return &ValidationError{Field: "return_days", Reason: "must not be negative"}
	}
	if r.WarrantyDays < 0 {
		return &ValidationError{Field: "warranty_days", Reason: "must not be negative"}
	}
	if r.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	return nil
}

// Normalize trims text fields and truncates the purchase date to a
// calendar day.
func (r *Record) Normalize() {
	r.Label = strings.TrimSpace(r.Label)
	r.Store = strings.TrimSpace(r.Store)
	r.Category = strings.TrimSpace(r.Category)
	r.PurchaseDate = Day(r.PurchaseDate)
}

// ShortID returns the first eight characters of the record id.
func (r Record) ShortID() string {
	if len(r.ID) > 8 {
		return r.ID[:8]
	}
	return r.ID
}

// AttachmentKindFor maps a MIME type to the attachment kind, defaulting to
// image for anything that is not a PDF.
func AttachmentKindFor(mime string) AttachmentKind {
	if strings.EqualFold(mime, "application/pdf") {
		return KindPDF
	}
	return KindImage
}
