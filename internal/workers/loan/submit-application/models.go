package submitapplication

import (
	"encoding/json"

	"cashflow-loans/internal/models"
)

// Input mirrors the application form as process variables. The amount may
// arrive as a JSON number or a numeric string.
type Input struct {
	LoanType    string             `json:"loanType"`
	Amount      json.Number        `json:"amount"`
	Name        string             `json:"name"`
	Surname     string             `json:"surname"`
	IDNumber    string             `json:"idNumber"`
	Phone       string             `json:"phone"`
	Email       string             `json:"email"`
	Terms       bool               `json:"terms"`
	Attachments models.Attachments `json:"attachments"`
}

type Output struct {
	LeadID   string `json:"leadId"`
	Channel  string `json:"channel"`
	Fallback string `json:"fallback,omitempty"`
	Notified bool   `json:"notified"`
	Message  string `json:"message"`
}
