package portal

import (
	"fmt"
	"strings"

	"cashflow-loans/internal/common/money"
	"cashflow-loans/internal/models"
)

// Contact is shown to applicants when a submission fails.
type Contact struct {
	Phone string
	Email string
}

func DefaultContact() Contact {
	return Contact{Phone: "+27614011426", Email: "info@cashflowloans.co.za"}
}

const approvalLine = "We will contact you within 24 hours for approval."

// SuccessMessage renders the confirmation for a stored lead.
func SuccessMessage(out *models.SubmissionOutcome, amount float64, currency string) string {
	lines := []string{
		"Application submitted successfully!",
		fmt.Sprintf("Lead ID: %s", out.LeadID),
		fmt.Sprintf("Loan Amount: %s", money.Format(currency, amount)),
	}
	switch out.Channel {
	case models.ChannelLocalStorage:
		lines = append(lines, "Application saved locally - will sync to CRM when server is fixed")
		if out.Notified {
			lines = append(lines, "Submitted via email notification")
		}
	default:
		lines = append(lines, "Successfully saved to CRM system")
	}
	lines = append(lines, approvalLine)
	return strings.Join(lines, "\n")
}

// FailureMessage renders the fallback contact details after a failed submission.
func FailureMessage(reason string, c Contact) string {
	return strings.Join([]string{
		"System temporarily unavailable",
		fmt.Sprintf("Error: %s", reason),
		fmt.Sprintf("Please call us directly at %s", c.Phone),
		fmt.Sprintf("Or email: %s", c.Email),
	}, "\n")
}
