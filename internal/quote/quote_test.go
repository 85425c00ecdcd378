package quote

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var asOf = time.Date(2024, time.February, 10, 14, 30, 0, 0, time.UTC)

func TestCompute_TenThousand(t *testing.T) {
	q := Compute(decimal.NewFromInt(10000), asOf)

	assert.True(t, q.Interest.Equal(decimal.NewFromInt(5000)), q.Interest.String())
	assert.True(t, q.Total.Equal(decimal.NewFromInt(15000)), q.Total.String())
	assert.True(t, q.MonthlyPayment.Equal(q.Total))
	assert.True(t, q.RateFlatPercent.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 1, q.TermMonths)
	assert.Equal(t, "2024-02-10", q.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2024-02-29", q.DueDate.Format("2006-01-02"))
}

func TestCompute_TotalIsOneAndAHalfTimesPrincipal(t *testing.T) {
	for _, raw := range []string{"0", "1", "100", "333.33", "10000", "99999.99", "1000000"} {
		t.Run(raw, func(t *testing.T) {
			p := decimal.RequireFromString(raw)
			q := Compute(p, asOf)

			assert.True(t, q.Total.Equal(p.Mul(decimal.NewFromFloat(1.5))), q.Total.String())
			assert.True(t, q.Interest.Equal(p.Mul(decimal.NewFromFloat(0.5))), q.Interest.String())
		})
	}
}

func TestCompute_IsPure(t *testing.T) {
	a := Compute(decimal.NewFromInt(2500), asOf)
	b := Compute(decimal.NewFromInt(2500), asOf)
	assert.Equal(t, a, b)
}

func TestCompute_NegativeIsComputed(t *testing.T) {
	q := Compute(decimal.NewFromInt(-100), asOf)
	assert.True(t, q.Total.Equal(decimal.NewFromInt(-150)))
}

func TestEndOfMonth(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC), "2023-02-28"},
		{time.Date(2024, time.December, 31, 23, 59, 0, 0, time.UTC), "2024-12-31"},
		{time.Date(2024, time.April, 15, 12, 0, 0, 0, time.UTC), "2024-04-30"},
		{time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), "2024-01-31"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EndOfMonth(tt.in).Format("2006-01-02"))
	}
}

func TestParse(t *testing.T) {
	assert.True(t, Parse("15000").Equal(decimal.NewFromInt(15000)))
	assert.True(t, Parse(" 12.5 ").Equal(decimal.NewFromFloat(12.5)))
	assert.True(t, Parse("").IsZero())
	assert.True(t, Parse("abc").IsZero())
}

func TestEngine_UsesClock(t *testing.T) {
	e := &Engine{Clock: func() time.Time { return asOf }}
	q := e.QuoteRaw("10000")

	assert.Equal(t, "2024-02-29", q.DueDate.Format("2006-01-02"))
	assert.True(t, q.Total.Equal(decimal.NewFromInt(15000)))
}
