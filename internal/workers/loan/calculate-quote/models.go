package calculatequote

import "encoding/json"

// Input accepts the amount as a JSON number or a numeric string.
type Input struct {
	Amount   json.Number `json:"amount"`
	LoanType string      `json:"loanType"`
}

type Output struct {
	LoanType        string  `json:"loanType"`
	Principal       float64 `json:"principal"`
	RateFlatPercent float64 `json:"interestRate"`
	Interest        float64 `json:"interest"`
	Total           float64 `json:"totalRepayment"`
	MonthlyPayment  float64 `json:"monthlyPayment"`
	TermMonths      int     `json:"termMonths"`
	StartDate       string  `json:"startDate"`
	DueDate         string  `json:"dueDate"`
}
