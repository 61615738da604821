package deadline

import (
	"fmt"
	"slices"
	"time"

	"github.com/notexe/proofpal/internal/purchase"
)

// State is the lifecycle band of one deadline.
type State int

const (
	NoDeadline State = iota
	Upcoming
	DueSoon
	Overdue
)

func (s State) String() string {
	switch s {
	case Upcoming:
		return "upcoming"
	case DueSoon:
		return "due_soon"
	case Overdue:
		return "overdue"
	default:
		return "no_deadline"
	}
}

// MarshalText encodes the state by name in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{NoDeadline, Upcoming, DueSoon, Overdue} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown deadline state %q", b)
}

// Default reminder policy values.
var DefaultThresholds = []int{14, 7, 3, 1, 0}

const DefaultDueSoonDays = 7

// Policy defines reminder thresholds (days before a deadline) and the
// DueSoon band. Build it with NewPolicy so thresholds are descending,
// unique and end with 0.
type Policy struct {
	Thresholds  []int
	DueSoonDays int
}

// DefaultPolicy returns thresholds 14/7/3/1/0 with a 7 day DueSoon band.
func DefaultPolicy() Policy {
	p, _ := NewPolicy(DefaultThresholds, DefaultDueSoonDays)
	return p
}

// NewPolicy validates and normalizes a threshold set.
func NewPolicy(thresholds []int, dueSoonDays int) (Policy, error) {
	if dueSoonDays < 0 {
		return Policy{}, &purchase.ValidationError{Field: "due_soon_days", Reason: "must not be negative"}
	}
	ts := make([]int, 0, len(thresholds)+1)
	for _, t := range thresholds {
		if t < 0 {
			return Policy{}, &purchase.ValidationError{Field: "thresholds", Reason: fmt.Sprintf("negative threshold %d", t)}
		}
		ts = append(ts, t)
	}
	if !slices.Contains(ts, 0) {
		ts = append(ts, 0)
	}
	slices.Sort(ts)
	ts = slices.Compact(ts)
	slices.Reverse(ts)

	if dueSoonDays > ts[0] {
		return Policy{}, &purchase.ValidationError{
			Field:  "due_soon_days",
			Reason: fmt.Sprintf("%d exceeds the largest threshold %d", dueSoonDays, ts[0]),
		}
	}
	return Policy{Thresholds: ts, DueSoonDays: dueSoonDays}, nil
}

// Status is the classification of one deadline on one day.
//
// Days is the number of days remaining for Upcoming and DueSoon and the
// number of days past the deadline for Overdue.
type Status struct {
	Kind     Kind
	State    State
	Deadline time.Time
	Days     int
}

// Remaining returns the signed days left before the deadline: negative
// once overdue.
func (s Status) Remaining() int {
	if s.State == Overdue {
		return -s.Days
	}
	return s.Days
}

// Tracked reports whether the status refers to an actual deadline.
func (s Status) Tracked() bool {
	return s.State != NoDeadline
}

// String renders the status for people, e.g. "Warranty: overdue by 5 days".
func (s Status) String() string {
	label := s.Kind.Label()
	switch s.State {
	case Overdue:
		return fmt.Sprintf("%s: overdue by %s", label, Plural(s.Days, "day"))
	case DueSoon, Upcoming:
		if s.Days == 0 {
			return fmt.Sprintf("%s: ends today (%s)", label, s.Deadline.Format(time.DateOnly))
		}
		prefix := "due in"
		if s.State == DueSoon {
			prefix = "due soon, in"
		}
		return fmt.Sprintf("%s: %s %s (%s)", label, prefix, Plural(s.Days, "day"), s.Deadline.Format(time.DateOnly))
	default:
		return label + ": not tracked"
	}
}

// Classify places the deadline of kind k into exactly one band relative
// to today. A zero deadline is NoDeadline. Boundaries are inclusive toward
// the more urgent band.
func (p Policy) Classify(k Kind, deadline, today time.Time) Status {
	if deadline.IsZero() {
		return Status{Kind: k, State: NoDeadline}
	}
	deadline = purchase.Day(deadline)
	remaining := purchase.DaysBetween(today, deadline)
	switch {
	case remaining < 0:
		return Status{Kind: k, State: Overdue, Deadline: deadline, Days: -remaining}
	case remaining <= p.DueSoonDays:
		return Status{Kind: k, State: DueSoon, Deadline: deadline, Days: remaining}
	default:
		return Status{Kind: k, State: Upcoming, Deadline: deadline, Days: remaining}
	}
}

// Statuses carries the independent return and warranty classifications of
// one record.
type Statuses struct {
	Return   Status
	Warranty Status
}

// For returns the status of kind k.
func (s Statuses) For(k Kind) Status {
	if k == KindWarranty {
		return s.Warranty
	}
	return s.Return
}

// All returns both statuses in display order.
func (s Statuses) All() []Status {
	return []Status{s.Return, s.Warranty}
}

// MostUrgent picks the status to surface when only one fits.
func (s Statuses) MostUrgent() Status {
	if MoreUrgent(s.Warranty, s.Return) {
		return s.Warranty
	}
	return s.Return
}

// MoreUrgent orders statuses by band, then by remaining days.
func MoreUrgent(a, b Status) bool {
	if a.State != b.State {
		return a.State > b.State
	}
	return a.Remaining() < b.Remaining()
}

// Evaluate computes and classifies both deadlines of r on today.
func Evaluate(r purchase.Record, today time.Time, p Policy) Statuses {
	d := ForRecord(r)
	return Statuses{
		Return:   p.Classify(KindReturn, d.Return, today),
		Warranty: p.Classify(KindWarranty, d.Warranty, today),
	}
}

// Plural formats n with unit, adding an "s" unless n is 1.
func Plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
