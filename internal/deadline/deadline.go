// Package deadline computes return and warranty deadlines for purchases and
// classifies how urgent they are on a given day.
//
// Everything in this package is pure: the same inputs always produce the
// same output, so callers can re-evaluate after an edit or from any
// goroutine.
package deadline

import (
	"fmt"
	"time"

	"github.com/notexe/proofpal/internal/purchase"
)

// Kind names the obligation a deadline belongs to.
type Kind string

const (
	KindReturn   Kind = "return"
	KindWarranty Kind = "warranty"
)

// Kinds lists every tracked obligation in display order.
var Kinds = []Kind{KindReturn, KindWarranty}

// Label returns the human-readable name of the kind.
func (k Kind) Label() string {
	switch k {
	case KindReturn:
		return "Return"
	case KindWarranty:
		return "Warranty"
	default:
		return string(k)
	}
}

// ParseKind accepts "return" or "warranty".
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindReturn, KindWarranty:
		return Kind(s), nil
	}
	return "", &purchase.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown deadline kind %q", s)}
}

// Deadlines holds the computed expiry dates of a purchase. A zero time
// means the obligation is not tracked.
type Deadlines struct {
	Return   time.Time
	Warranty time.Time
}

// For returns the deadline of kind k and whether it is tracked.
func (d Deadlines) For(k Kind) (time.Time, bool) {
	var t time.Time
	switch k {
	case KindReturn:
		t = d.Return
	case KindWarranty:
		t = d.Warranty
	}
	return t, !t.IsZero()
}

// Compute adds each period, in whole calendar days, to the purchase date.
// A period of zero or less leaves that deadline absent.
func Compute(purchaseDate time.Time, returnDays, warrantyDays int) Deadlines {
	var d Deadlines
	if purchaseDate.IsZero() {
		return d
	}
	if returnDays > 0 {
		d.Return = purchase.AddDays(purchaseDate, returnDays)
	}
	if warrantyDays > 0 {
		d.Warranty = purchase.AddDays(purchaseDate, warrantyDays)
	}
	return d
}

// ForRecord computes the deadlines of r.
func ForRecord(r purchase.Record) Deadlines {
	return Compute(r.PurchaseDate, r.ReturnDays, r.WarrantyDays)
}

// ChangedKinds reports which deadline kinds an edit from old to updated
// affects: a new purchase date touches both, a new period only its own.
func ChangedKinds(old, updated purchase.Record) []Kind {
	if !purchase.Day(old.PurchaseDate).Equal(purchase.Day(updated.PurchaseDate)) {
		return append([]Kind(nil), Kinds...)
	}
	var kinds []Kind
	if old.ReturnDays != updated.ReturnDays {
		kinds = append(kinds, KindReturn)
	}
	if old.WarrantyDays != updated.WarrantyDays {
		kinds = append(kinds, KindWarranty)
	}
	return kinds
}
