package portal

import (
	"context"
	"fmt"
	"sync"

	"cashflow-loans/internal/application"
	"cashflow-loans/internal/common/errors"
	"cashflow-loans/internal/common/logger"
	"cashflow-loans/internal/models"
	"cashflow-loans/internal/quote"
	"cashflow-loans/internal/submission"
	"cashflow-loans/pkg/registry"
)

// FormStatus is the lifecycle of one application form.
type FormStatus string

const (
	StatusEditing    FormStatus = "editing"
	StatusSubmitting FormStatus = "submitting"
	StatusSucceeded  FormStatus = "succeeded"
	StatusFailed     FormStatus = "failed"
)

// FormDeps are shared by every form a process creates.
type FormDeps struct {
	Builder   *application.Builder
	Submitter submission.Submitter
	Quotes    *quote.Engine
	Contact   Contact
	Currency  string
	Logger    logger.Logger
}

// SubmitResult is what a successful Submit reports to the caller.
type SubmitResult struct {
	Outcome *models.SubmissionOutcome `json:"outcome"`
	Message string                    `json:"message"`
	Record  *models.ApplicationRecord `json:"-"`
}

// Form is the application form for one product. It allows a single submission
// in flight at a time.
type Form struct {
	mu          sync.Mutex
	product     registry.Product
	deps        FormDeps
	values      models.FormState
	attachments models.Attachments
	status      FormStatus
	inFlight    bool
	message     string
}

// NewForm starts a form for product. amount pre-fills the amount field; when
// empty the product default is used.
func NewForm(product registry.Product, amount string, deps FormDeps) *Form {
	if deps.Quotes == nil {
		deps.Quotes = quote.NewEngine()
	}
	if deps.Contact == (Contact{}) {
		deps.Contact = DefaultContact()
	}
	if deps.Currency == "" {
		deps.Currency = "R"
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if amount == "" {
		amount = product.DefaultAmount
	}
	return &Form{
		product:     product,
		deps:        deps,
		values:      models.FormState{LoanType: product.Type, Amount: amount},
		attachments: models.Attachments{},
		status:      StatusEditing,
	}
}

func (f *Form) LoanType() models.LoanType { return f.product.Type }

func (f *Form) Product() registry.Product { return f.product }

func (f *Form) Status() FormStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *Form) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// Values returns a copy of the current field values.
func (f *Form) Values() models.FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Attachments returns a copy of the attached file references.
func (f *Form) Attachments() models.Attachments {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(models.Attachments, len(f.attachments))
	for k, v := range f.attachments {
		out[k] = append([]models.FileRef(nil), v...)
	}
	return out
}

// SetField updates one text field of the product's field set.
func (f *Form) SetField(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(); err != nil {
		return err
	}
	if !f.product.HasField(name) {
		return errors.NewValidationError(map[string]string{name: "is not a field of " + f.product.DisplayName})
	}

	switch name {
	case "amount":
		f.values.Amount = value
	case "name":
		f.values.Name = value
	case "surname":
		f.values.Surname = value
	case "idNumber":
		f.values.IDNumber = value
	case "phone":
		f.values.Phone = value
	case "email":
		f.values.Email = value
	default:
		return errors.NewValidationError(map[string]string{name: "is not editable"})
	}
	f.touchLocked()
	return nil
}

func (f *Form) SetTerms(accepted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(); err != nil {
		return err
	}
	f.values.Terms = accepted
	f.touchLocked()
	return nil
}

// Attach sets the files for slot. Single-file slots keep only the last file.
func (f *Form) Attach(slot string, files ...models.FileRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(); err != nil {
		return err
	}
	s, ok := f.product.Slot(slot)
	if !ok {
		return errors.NewValidationError(map[string]string{slot: "is not an attachment of " + f.product.DisplayName})
	}
	for _, file := range files {
		if !s.Accepts(file) {
			return errors.NewValidationError(map[string]string{slot: fmt.Sprintf("%s is not an accepted file type", file.Filename)})
		}
	}
	if !s.Multiple && len(files) > 1 {
		files = files[len(files)-1:]
	}
	if len(files) == 0 {
		delete(f.attachments, slot)
	} else {
		f.attachments[slot] = append([]models.FileRef(nil), files...)
	}
	f.touchLocked()
	return nil
}

// Fill copies values and attachments into the form. Text fields the product
// does not collect are ignored; an empty amount keeps the current one.
func (f *Form) Fill(values models.FormState, attachments models.Attachments) error {
	text := map[string]string{
		"amount":   values.Amount,
		"name":     values.Name,
		"surname":  values.Surname,
		"idNumber": values.IDNumber,
		"phone":    values.Phone,
		"email":    values.Email,
	}
	for _, name := range f.product.Fields {
		v, ok := text[name]
		if !ok || (name == "amount" && v == "") {
			continue
		}
		if err := f.SetField(name, v); err != nil {
			return err
		}
	}
	for slot, files := range attachments {
		if err := f.Attach(slot, files...); err != nil {
			return err
		}
	}
	return f.SetTerms(values.Terms)
}

// Submit validates, quotes, builds and submits the application.
//
// Guards run in order: a submission already in flight, terms not accepted,
// then missing required attachments. None of them reach the network.
func (f *Form) Submit(ctx context.Context) (*SubmitResult, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return nil, errors.NewSubmissionInFlightError()
	}
	if !f.values.Terms {
		err := errors.NewTermsNotAcceptedError()
		f.message = err.Message
		f.mu.Unlock()
		return nil, err
	}
	if missing := f.missingAttachmentsLocked(); len(missing) > 0 {
		err := errors.NewValidationError(missing)
		f.message = err.Message
		f.mu.Unlock()
		return nil, err
	}

	values := f.values
	f.inFlight = true
	f.status = StatusSubmitting
	f.message = ""
	f.mu.Unlock()

	result, err := f.submit(ctx, values)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false

	if err != nil {
		stdErr := errors.Normalize(err)
		switch stdErr.Code {
		case errors.ErrCodeValidationFailed, errors.ErrCodeUnknownLoanType:
			f.status = StatusEditing
			f.message = stdErr.Message
		default:
			f.status = StatusFailed
			f.message = FailureMessage(stdErr.Message, f.deps.Contact)
		}
		return nil, stdErr
	}

	f.status = StatusSucceeded
	f.message = result.Message
	f.values = models.FormState{LoanType: f.product.Type}
	f.attachments = models.Attachments{}
	return result, nil
}

func (f *Form) submit(ctx context.Context, values models.FormState) (*SubmitResult, error) {
	q := f.deps.Quotes.Quote(quote.Parse(values.Amount))

	rec, err := f.deps.Builder.Build(values, f.product, q)
	if err != nil {
		return nil, err
	}

	out, err := f.deps.Submitter.Submit(ctx, rec)
	if err != nil {
		f.deps.Logger.Warn("Application submission failed", map[string]interface{}{
			"leadId":   rec.ID,
			"loanType": string(f.product.Type),
			"error":    err,
		})
		return nil, err
	}

	amount := rec.LoanAmount
	if remote, ok := out.Remote["loanAmount"].(float64); ok && remote > 0 {
		amount = remote
	}
	return &SubmitResult{
		Outcome: out,
		Message: SuccessMessage(out, amount, f.deps.Currency),
		Record:  rec,
	}, nil
}

func (f *Form) missingAttachmentsLocked() map[string]string {
	missing := map[string]string{}
	for _, slot := range f.product.Attachments {
		if slot.Required && len(f.attachments[slot.Name]) == 0 {
			missing[slot.Name] = "is required"
		}
	}
	return missing
}

func (f *Form) editableLocked() error {
	if f.inFlight {
		return errors.NewSubmissionInFlightError()
	}
	return nil
}

// touchLocked moves a finished form back to editing.
func (f *Form) touchLocked() {
	f.status = StatusEditing
}
