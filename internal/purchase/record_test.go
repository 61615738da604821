package purchase

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Validate(t *testing.T) {
	valid := Record{
		Label:        "Laptop",
		PurchaseDate: Date(2024, time.January, 1),
		ReturnDays:   30,
		WarrantyDays: 730,
		Amount:       decimal.RequireFromString("999.90"),
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(r *Record)
		field  string
	}{
		{"missing_label", func(r *Record) { r.Label = "  " }, "label"},
		{"missing_purchase_date", func(r *Record) { r.PurchaseDate = time.Time{} }, "purchase_date"},
		{"negative_return", func(r *Record) { r.ReturnDays = -1 }, "return_days"},
		{"negative_warranty", func(r *Record) { r.WarrantyDays = -30 }, "warranty_days"},
		{"negative_amount", func(r *Record) { r.Amount = decimal.NewFromInt(-5) }, "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)

			err := r.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestDateHelpers(t *testing.T) {
	paris := time.FixedZone("CET", 3600)

	t.Run("day_keeps_wall_date", func(t *testing.T) {
		late := time.Date(2024, time.March, 10, 23, 30, 0, 0, paris)
		assert.Equal(t, Date(2024, time.March, 10), Day(late))
	})

	t.Run("days_between_across_leap_day", func(t *testing.T) {
		assert.Equal(t, 2, DaysBetween(Date(2024, time.February, 28), Date(2024, time.March, 1)))
		assert.Equal(t, -2, DaysBetween(Date(2024, time.March, 1), Date(2024, time.February, 28)))
	})

	t.Run("add_days", func(t *testing.T) {
		assert.Equal(t, Date(2024, time.January, 31), AddDays(Date(2024, time.January, 1), 30))
	})

	t.Run("months_to_days", func(t *testing.T) {
		assert.Equal(t, 731, MonthsToDays(Date(2024, time.January, 1), 24))
		assert.Equal(t, 29, MonthsToDays(Date(2024, time.February, 1), 1))
		assert.Equal(t, 0, MonthsToDays(Date(2024, time.February, 1), 0))
	})

	t.Run("parse_date", func(t *testing.T) {
		d, err := ParseDate(" 2024-01-25 ")
		require.NoError(t, err)
		assert.Equal(t, Date(2024, time.January, 25), d)

		_, err = ParseDate("25/01/2024")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestErrorClasses(t *testing.T) {
	err := NotFound("record", "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "record abc")

	cause := errors.New("disk full")
	err = IOError("write ledger", cause)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, cause)
}
