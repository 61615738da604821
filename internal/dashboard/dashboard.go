package dashboard

import (
	"context"
	"iter"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/notexe/proofpal/internal/deadline"
	"github.com/notexe/proofpal/internal/purchase"
	"github.com/notexe/proofpal/internal/store"
)

// Defaults for the activity window and the urgent list.
const (
	DefaultActivityLimit = 20
	DefaultActivityAge   = 30 * 24 * time.Hour
	DefaultUrgentLimit   = 5
	defaultPageSize      = 10
)

// ActivitySource pages through the activity feed, newest first.
type ActivitySource interface {
	RecentActivity(ctx context.Context, c store.Cursor, limit int) ([]purchase.Activity, error)
}

// Summary is a derived snapshot of every tracked deadline. Nothing in it is
// persisted.
type Summary struct {
	// Each tracked kind of each record counts once, so a record can add to
	// two counters.
	Overdue  int
	DueSoon  int
	Upcoming int
	// Records with neither a return nor a warranty window.
	NoDeadline int
	Records    int

	MonthlySpend decimal.Decimal
	Urgent       []Entry

	// RecentActivity yields the newest entries first. It reads the source
	// only while ranged over and starts from the newest entry on every
	// range.
	RecentActivity iter.Seq2[purchase.Activity, error]
}

// Entry pairs a record with its evaluated statuses.
type Entry struct {
	Record   purchase.Record
	Statuses deadline.Statuses
}

// MostUrgent returns the status the dashboard shows for the entry.
func (e Entry) MostUrgent() deadline.Status {
	return e.Statuses.MostUrgent()
}

// Aggregator builds dashboard summaries.
type Aggregator struct {
	source      ActivitySource
	policy      deadline.Policy
	limit       int
	maxAge      time.Duration
	pageSize    int
	urgentLimit int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithActivityWindow bounds the feed to the newest limit entries no older
// than maxAge. Zero values keep the defaults.
func WithActivityWindow(limit int, maxAge time.Duration) Option {
	return func(a *Aggregator) {
		if limit > 0 {
			a.limit = limit
		}
		if maxAge > 0 {
			a.maxAge = maxAge
		}
	}
}

// WithUrgentLimit caps the number of urgent records in a summary.
func WithUrgentLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.urgentLimit = n
		}
	}
}

// WithPageSize sets how many activity entries are fetched per query.
func WithPageSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

// NewAggregator creates an aggregator reading activity from source.
func NewAggregator(source ActivitySource, policy deadline.Policy, opts ...Option) *Aggregator {
	a := &Aggregator{
		source:      source,
		policy:      policy,
		limit:       DefaultActivityLimit,
		maxAge:      DefaultActivityAge,
		pageSize:    defaultPageSize,
		urgentLimit: DefaultUrgentLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summarize classifies records as of now. The activity feed is bound to ctx
// and is not read until the caller ranges over it.
func (a *Aggregator) Summarize(ctx context.Context, records []purchase.Record, now time.Time) Summary {
	today := purchase.Day(now)
	s := Summary{
		Records:      len(records),
		MonthlySpend: decimal.Zero,
	}

	var urgent []Entry
	for _, rec := range records {
		statuses := deadline.Evaluate(rec, today, a.policy)
		tracked := false
		for _, st := range statuses.All() {
			switch st.State {
			case deadline.Overdue:
				s.Overdue++
			case deadline.DueSoon:
				s.DueSoon++
			case deadline.Upcoming:
				s.Upcoming++
			default:
				continue
			}
			tracked = true
		}
		if !tracked {
			s.NoDeadline++
		}

		if sameMonth(rec.PurchaseDate, today) {
			s.MonthlySpend = s.MonthlySpend.Add(rec.Amount)
		}

		if m := statuses.MostUrgent(); m.State == deadline.Overdue || m.State == deadline.DueSoon {
			urgent = append(urgent, Entry{Record: rec, Statuses: statuses})
		}
	}

	slices.SortStableFunc(urgent, func(x, y Entry) int {
		switch {
		case deadline.MoreUrgent(x.MostUrgent(), y.MostUrgent()):
			return -1
		case deadline.MoreUrgent(y.MostUrgent(), x.MostUrgent()):
			return 1
		}
		return 0
	})
	if len(urgent) > a.urgentLimit {
		urgent = urgent[:a.urgentLimit]
	}
	s.Urgent = urgent

	s.RecentActivity = a.feed(ctx, now.Add(-a.maxAge))
	return s
}

func (a *Aggregator) feed(ctx context.Context, since time.Time) iter.Seq2[purchase.Activity, error] {
	return func(yield func(purchase.Activity, error) bool) {
		var (
			cursor  store.Cursor
			emitted int
		)
		for emitted < a.limit {
			size := min(a.pageSize, a.limit-emitted)
			page, err := a.source.RecentActivity(ctx, cursor, size)
			if err != nil {
				yield(purchase.Activity{}, err)
				return
			}
			for _, act := range page {
				if act.At.Before(since) {
					return
				}
				if !yield(act, nil) {
					return
				}
				emitted++
			}
			if len(page) < size {
				return
			}
			cursor = store.After(page[len(page)-1])
		}
	}
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
