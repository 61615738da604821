package deadline

import (
	"testing"
	"time"

	"github.com/notexe/proofpal/internal/purchase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	bought := purchase.Date(2024, time.January, 1)

	t.Run("adds_whole_days", func(t *testing.T) {
		for _, period := range []int{1, 14, 29, 30, 365, 366, 730} {
			d := Compute(bought, period, period)
			assert.Equal(t, period, purchase.DaysBetween(bought, d.Return), "return period %d", period)
			assert.Equal(t, period, purchase.DaysBetween(bought, d.Warranty), "warranty period %d", period)
		}
	})

	t.Run("zero_period_is_absent", func(t *testing.T) {
		d := Compute(bought, 0, 730)
		_, ok := d.For(KindReturn)
		assert.False(t, ok)
		w, ok := d.For(KindWarranty)
		assert.True(t, ok)
		assert.Equal(t, purchase.Date(2025, time.December, 31), w)
	})

	t.Run("exact_return_date", func(t *testing.T) {
		d := Compute(bought, 30, 0)
		assert.Equal(t, purchase.Date(2024, time.January, 31), d.Return)
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Compute(bought, 30, 365), Compute(bought, 30, 365))
	})
}

func TestChangedKinds(t *testing.T) {
	base := purchase.Record{PurchaseDate: purchase.Date(2024, time.January, 1), ReturnDays: 30, WarrantyDays: 730}

	moved := base
	moved.PurchaseDate = purchase.Date(2024, time.January, 2)
	assert.Equal(t, []Kind{KindReturn, KindWarranty}, ChangedKinds(base, moved))

	longerWarranty := base
	longerWarranty.WarrantyDays = 1095
	assert.Equal(t, []Kind{KindWarranty}, ChangedKinds(base, longerWarranty))

	relabeled := base
	relabeled.Label = "renamed"
	assert.Empty(t, ChangedKinds(base, relabeled))
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy([]int{3, 14, 7, 7, 1}, 7)
	require.NoError(t, err)
	assert.Equal(t, []int{14, 7, 3, 1, 0}, p.Thresholds)

	_, err = NewPolicy([]int{7, -1}, 3)
	assert.ErrorIs(t, err, purchase.ErrValidation)

	_, err = NewPolicy([]int{3, 1}, 7)
	assert.ErrorIs(t, err, purchase.ErrValidation)

	assert.Equal(t, []int{14, 7, 3, 1, 0}, DefaultPolicy().Thresholds)
}

func TestPolicy_Classify(t *testing.T) {
	p := DefaultPolicy()
	due := purchase.Date(2024, time.January, 31)

	tests := []struct {
		name  string
		today time.Time
		state State
		days  int
	}{
		{"far_ahead", purchase.Date(2024, time.January, 1), Upcoming, 30},
		{"one_day_outside_band", purchase.Date(2024, time.January, 23), Upcoming, 8},
		{"band_boundary_inclusive", purchase.Date(2024, time.January, 24), DueSoon, 7},
		{"scenario_four_days", purchase.Date(2024, time.January, 27), DueSoon, 4},
		{"deadline_day", due, DueSoon, 0},
		{"one_day_late", purchase.Date(2024, time.February, 1), Overdue, 1},
		{"five_days_late", purchase.Date(2024, time.February, 5), Overdue, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := p.Classify(KindReturn, due, tt.today)
			assert.Equal(t, tt.state, s.State)
			assert.Equal(t, tt.days, s.Days)
			assert.Equal(t, KindReturn, s.Kind)
		})
	}

	t.Run("absent_deadline", func(t *testing.T) {
		s := p.Classify(KindWarranty, time.Time{}, due)
		assert.Equal(t, NoDeadline, s.State)
		assert.False(t, s.Tracked())
	})

	t.Run("partition_has_no_gaps", func(t *testing.T) {
		prev := Upcoming
		for offset := -60; offset <= 60; offset++ {
			today := purchase.AddDays(due, offset)
			s := p.Classify(KindReturn, due, today)
			assert.Equal(t, -offset, s.Remaining())
			assert.GreaterOrEqual(t, int(s.State), int(prev), "states must only escalate as time passes")
			prev = s.State
		}
	})
}

func TestStatus_String(t *testing.T) {
	p := DefaultPolicy()
	due := purchase.Date(2024, time.January, 31)

	assert.Equal(t, "Warranty: overdue by 5 days", p.Classify(KindWarranty, due, purchase.Date(2024, time.February, 5)).String())
	assert.Equal(t, "Return: overdue by 1 day", p.Classify(KindReturn, due, purchase.Date(2024, time.February, 1)).String())
	assert.Equal(t, "Return: due soon, in 4 days (2024-01-31)", p.Classify(KindReturn, due, purchase.Date(2024, time.January, 27)).String())
	assert.Equal(t, "Return: due in 30 days (2024-01-31)", p.Classify(KindReturn, due, purchase.Date(2024, time.January, 1)).String())
	assert.Equal(t, "Return: ends today (2024-01-31)", p.Classify(KindReturn, due, due).String())
	assert.Equal(t, "Warranty: not tracked", p.Classify(KindWarranty, time.Time{}, due).String())
}

func TestEvaluate_MostUrgent(t *testing.T) {
	r := purchase.Record{
		Label:        "Headphones",
		PurchaseDate: purchase.Date(2024, time.January, 1),
		ReturnDays:   14,
		WarrantyDays: 365,
	}
	s := Evaluate(r, purchase.Date(2024, time.January, 20), DefaultPolicy())

	assert.Equal(t, Overdue, s.Return.State)
	assert.Equal(t, 5, s.Return.Days)
	assert.Equal(t, Upcoming, s.Warranty.State)
	assert.Equal(t, s.Return, s.MostUrgent())

	none := Statuses{Return: Status{Kind: KindReturn}, Warranty: Status{Kind: KindWarranty}}
	assert.Equal(t, NoDeadline, none.MostUrgent().State)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("warranty")
	require.NoError(t, err)
	assert.Equal(t, KindWarranty, k)

	_, err = ParseKind("refund")
	assert.ErrorIs(t, err, purchase.ErrValidation)
}
