package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LoanType is the product discriminant carried through the whole pipeline.
type LoanType string

const (
	LoanTypeUnsecured LoanType = "unsecured"
	LoanTypeSecured   LoanType = "secured"
)

// ParseLoanType accepts "unsecured" or "secured" (case-insensitive). Anything
// else yields LoanTypeUnsecured and false.
func ParseLoanType(raw string) (LoanType, bool) {
	switch LoanType(strings.ToLower(strings.TrimSpace(raw))) {
	case LoanTypeSecured:
		return LoanTypeSecured, true
	case LoanTypeUnsecured:
		return LoanTypeUnsecured, true
	default:
		return LoanTypeUnsecured, false
	}
}

// LoanQuote is derived from an amount and a date; it is never persisted.
type LoanQuote struct {
	Principal       decimal.Decimal `json:"principal"`
	RateFlatPercent decimal.Decimal `json:"rateFlatPercent"`
	Interest        decimal.Decimal `json:"interest"`
	Total           decimal.Decimal `json:"total"`
	MonthlyPayment  decimal.Decimal `json:"monthlyPayment"`
	TermMonths      int             `json:"termMonths"`
	StartDate       time.Time       `json:"startDate"`
	DueDate         time.Time       `json:"dueDate"`
}

// Selection is the state shared between the calculator and the application form.
type Selection struct {
	Amount   string   `json:"amount"`
	LoanType LoanType `json:"loanType"`
}
