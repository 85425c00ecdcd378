// Package money renders amounts for customer-facing text.
package money

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Format renders amount with thousands separators after currency, e.g. R15,000
// or R1,250.50. Whole amounts carry no decimals.
func Format(currency string, amount float64) string {
	if amount == math.Trunc(amount) && math.Abs(amount) < 1e15 {
		return currency + printer.Sprintf("%d", int64(amount))
	}
	return currency + printer.Sprintf("%.2f", amount)
}

// FormatDecimal is Format for decimal amounts.
func FormatDecimal(currency string, amount decimal.Decimal) string {
	return Format(currency, amount.InexactFloat64())
}
