// Package quote computes the flat-rate, single-month loan quote.
package quote

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cashflow-loans/internal/models"
)

const TermMonths = 1

var (
	// RateFlatPercent is the flat interest charged for the whole term.
	RateFlatPercent = decimal.NewFromInt(50)

	hundred = decimal.NewFromInt(100)
)

// Compute derives the quote for principal as of asOf. It is pure: the same
// inputs always give the same quote. Negative principals are computed as-is.
func Compute(principal decimal.Decimal, asOf time.Time) models.LoanQuote {
	interest := principal.Mul(RateFlatPercent).Div(hundred)
	total := principal.Add(interest)

	return models.LoanQuote{
		Principal:       principal,
		RateFlatPercent: RateFlatPercent,
		Interest:        interest,
		Total:           total,
		MonthlyPayment:  total.Div(decimal.NewFromInt(TermMonths)),
		TermMonths:      TermMonths,
		StartDate:       startOfDay(asOf),
		DueDate:         EndOfMonth(asOf),
	}
}

// EndOfMonth returns the last calendar day of t's month in t's location.
func EndOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, t.Location())
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Parse reads a user-entered amount. Empty or non-numeric input is zero.
func Parse(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Clock abstracts time.Now for callers that quote "today".
type Clock func() time.Time

// Engine quotes against a clock.
type Engine struct {
	Clock Clock
}

func NewEngine() *Engine {
	return &Engine{Clock: time.Now}
}

// Quote computes the quote for principal as of the engine's current time.
func (e *Engine) Quote(principal decimal.Decimal) models.LoanQuote {
	now := time.Now
	if e != nil && e.Clock != nil {
		now = e.Clock
	}
	return Compute(principal, now())
}

// QuoteRaw parses raw with Parse before quoting.
func (e *Engine) QuoteRaw(raw string) models.LoanQuote {
	return e.Quote(Parse(raw))
}
