// Package notify tells operations staff when a lead could only be saved locally.
package notify

import (
	"context"
	"fmt"
	"strings"

	"cashflow-loans/internal/common/aws"
	"cashflow-loans/internal/common/logger"
	"cashflow-loans/internal/common/money"
	"cashflow-loans/internal/models"
)

// Notifier is called after a lead lands in the fallback store.
type Notifier interface {
	LeadSavedLocally(ctx context.Context, rec *models.FallbackRecord) error
}

// Config controls which channels are used.
type Config struct {
	EmailEnabled bool
	FromEmail    string
	ToEmail      string
	SMSEnabled   bool
	PhoneNumber  string
	SenderID     string
	Currency     string
}

// OpsNotifier sends an email through SES and an SMS through SNS.
type OpsNotifier struct {
	cfg    Config
	email  *aws.SESClient
	sms    *aws.SNSClient
	logger logger.Logger
}

// NewOpsNotifier returns a notifier; a nil client disables that channel.
func NewOpsNotifier(cfg Config, email *aws.SESClient, sms *aws.SNSClient, log logger.Logger) *OpsNotifier {
	if cfg.Currency == "" {
		cfg.Currency = "R"
	}
	return &OpsNotifier{
		cfg:    cfg,
		email:  email,
		sms:    sms,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

func (n *OpsNotifier) LeadSavedLocally(ctx context.Context, rec *models.FallbackRecord) error {
	var errs []string

	if n.cfg.EmailEnabled && n.email != nil {
		id, err := n.email.SendText(ctx, n.cfg.FromEmail, n.cfg.ToEmail, n.subject(rec), n.body(rec))
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			n.logger.Info("Ops email sent", map[string]interface{}{"leadId": rec.ID, "messageId": id})
		}
	}

	if n.cfg.SMSEnabled && n.sms != nil {
		msg := fmt.Sprintf("CRM down: lead %s (%s, %s) saved locally.",
			rec.ID, rec.LoanType, money.Format(n.cfg.Currency, rec.LoanAmount))
		if _, err := n.sms.SendSMS(ctx, n.cfg.PhoneNumber, n.cfg.SenderID, msg); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify lead %s: %s", rec.ID, strings.Join(errs, "; "))
	}
	return nil
}

func (n *OpsNotifier) subject(rec *models.FallbackRecord) string {
	return fmt.Sprintf("New %s application saved locally (%s)", rec.LoanType, rec.ID)
}

func (n *OpsNotifier) body(rec *models.FallbackRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The CRM could not be reached. The lead below is stored with status %q and must be uploaded manually.\n\n", rec.Status)
	fmt.Fprintf(&b, "Lead ID:        %s\n", rec.ID)
	fmt.Fprintf(&b, "Name:           %s\n", rec.Name)
	fmt.Fprintf(&b, "Email:          %s\n", rec.Email)
	fmt.Fprintf(&b, "Phone:          %s\n", rec.Phone)
	fmt.Fprintf(&b, "Loan type:      %s\n", rec.LoanType)
	fmt.Fprintf(&b, "Amount:         %s\n", money.Format(n.cfg.Currency, rec.LoanAmount))
	fmt.Fprintf(&b, "Total due:      %s\n", money.Format(n.cfg.Currency, rec.MonthlyPayment))
	fmt.Fprintf(&b, "Due date:       %s\n", rec.DueDate)
	fmt.Fprintf(&b, "Saved at:       %s\n", rec.SavedAt)
	return b.String()
}

// Nop never notifies.
type Nop struct{}

func (Nop) LeadSavedLocally(context.Context, *models.FallbackRecord) error { return nil }
