// Package application turns form input and a quote into the CRM payload.
package application

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cashflow-loans/internal/common/errors"
	"cashflow-loans/internal/common/validation"
	"cashflow-loans/internal/models"
	"cashflow-loans/pkg/registry"
)

// applicant is the validated view of the form's free-text fields.
type applicant struct {
	Name     string `json:"name" validate:"required"`
	Surname  string `json:"surname" validate:"required_if=NeedsSurname true"`
	IDNumber string `json:"idNumber" validate:"required"`
	Phone    string `json:"phone" validate:"required,loanphone"`
	Email    string `json:"email" validate:"required,email"`

	NeedsSurname bool `json:"-"`
}

// Builder validates form input and assembles ApplicationRecords.
type Builder struct {
	validate  *validator.Validate
	sanitizer *validation.Sanitizer
	schema    validation.JSONSchema
	now       func() time.Time
	newID     func() string
}

func NewBuilder() *Builder {
	return &Builder{
		validate:  validation.NewValidator(),
		sanitizer: validation.NewSanitizer(),
		schema:    validation.ApplicationRecordSchema(),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// WithClock overrides the build-time clock.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates form against product and returns a fresh record with a new
// id and timestamps. Nothing is returned unless every field passes.
func (b *Builder) Build(form models.FormState, product registry.Product, q models.LoanQuote) (*models.ApplicationRecord, error) {
	if form.LoanType != product.Type {
		return nil, errors.NewUnknownLoanTypeError(string(form.LoanType))
	}

	in := applicant{
		Name:         b.sanitizer.Text(form.Name),
		IDNumber:     b.sanitizer.Text(form.IDNumber),
		Phone:        strings.TrimSpace(form.Phone),
		Email:        strings.TrimSpace(form.Email),
		NeedsSurname: product.HasField("surname"),
	}
	if in.NeedsSurname {
		in.Surname = b.sanitizer.Text(form.Surname)
	}

	fields := validation.FieldErrors(b.validate.Struct(in))
	amount, msg := checkAmount(form.Amount, product)
	if msg != "" {
		fields["amount"] = msg
	}
	if len(fields) > 0 {
		return nil, errors.NewValidationError(fields)
	}

	name := in.Name
	if in.NeedsSurname {
		name = strings.TrimSpace(in.Name + " " + in.Surname)
	}

	now := b.now()
	stamp := now.UTC().Format(models.TimestampLayout)
	rec := &models.ApplicationRecord{
		ID:               b.newID(),
		Name:             name,
		Email:            in.Email,
		Phone:            in.Phone,
		IDNumber:         in.IDNumber,
		LoanAmount:       amount.InexactFloat64(),
		LoanType:         product.DisplayName,
		InterestRate:     q.RateFlatPercent.InexactFloat64(),
		MonthlyPayment:   q.MonthlyPayment.InexactFloat64(),
		StartDate:        q.StartDate.Format(models.DateLayout),
		DueDate:          q.DueDate.Format(models.DateLayout),
		Status:           models.StatusNewLead,
		ApplicationDate:  stamp,
		LastStatusUpdate: stamp,
		AmountPaid:       0,
		PaymentHistory:   []json.RawMessage{},
		Notes:            []json.RawMessage{},
		Documents:        []json.RawMessage{},
	}

	res, err := validation.ValidateDocument(rec, b.schema)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if !res.Valid {
		return nil, errors.NewValidationError(res.FieldMessages())
	}
	return rec, nil
}

// checkAmount parses raw and checks it against the product bounds.
func checkAmount(raw string, product registry.Product) (decimal.Decimal, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, "is required"
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, "must be a number"
	}
	if !amount.IsPositive() {
		return amount, "must be greater than 0"
	}
	min := decimal.NewFromFloat(product.MinAmount)
	max := decimal.NewFromFloat(product.MaxAmount)
	if amount.LessThan(min) || amount.GreaterThan(max) {
		return amount, fmt.Sprintf("must be between %s and %s", min.String(), max.String())
	}
	return amount, ""
}
