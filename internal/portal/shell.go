package portal

import (
	"net/url"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"cashflow-loans/internal/common/errors"
	"cashflow-loans/internal/models"
	"cashflow-loans/pkg/registry"
)

// View names the two screens of the portal.
type View string

const (
	ViewCalculator  View = "calculator"
	ViewApplication View = "application"
)

// Shell owns the current view and the selection shared between views.
type Shell struct {
	mu        sync.Mutex
	view      View
	selection models.Selection
}

// NewShell reads the "type" and "amount" query parameters once. Unknown
// types fall back to unsecured; non-numeric amounts are dropped.
func NewShell(query url.Values) *Shell {
	sel := models.Selection{LoanType: models.LoanTypeUnsecured}
	if t, ok := models.ParseLoanType(query.Get("type")); ok {
		sel.LoanType = t
	}
	if amount := strings.TrimSpace(query.Get("amount")); amount != "" {
		if _, err := decimal.NewFromString(amount); err == nil {
			sel.Amount = amount
		}
	}
	return &Shell{view: ViewApplication, selection: sel}
}

func (s *Shell) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Shell) Selection() models.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Navigate switches views. The selection is kept.
func (s *Shell) Navigate(v View) error {
	if v != ViewCalculator && v != ViewApplication {
		return errors.NewValidationError(map[string]string{"view": "must be calculator or application"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
	return nil
}

func (s *Shell) SelectLoanType(t models.LoanType) error {
	if _, ok := models.ParseLoanType(string(t)); !ok {
		return errors.NewUnknownLoanTypeError(string(t))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.LoanType = t
	return nil
}

// ApplyHandOff stores the calculator selection and routes to the application view.
func (s *Shell) ApplyHandOff(sel models.Selection) error {
	if _, ok := models.ParseLoanType(string(sel.LoanType)); !ok {
		return errors.NewUnknownLoanTypeError(string(sel.LoanType))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
	s.view = ViewApplication
	return nil
}

// Select replaces the shared selection without changing the view.
func (s *Shell) Select(sel models.Selection) error {
	if _, ok := models.ParseLoanType(string(sel.LoanType)); !ok {
		return errors.NewUnknownLoanTypeError(string(sel.LoanType))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
	return nil
}

// Track keeps the selection in step with every recompute of c, so opening the
// application view without a hand-off still carries the calculator's values.
// It replaces any OnCalculate callback already set on c.
func (s *Shell) Track(c *Calculator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.OnCalculate = func(v CalculatorView) {
		_ = s.Select(selectionOf(v.Quote, v.LoanType))
	}
}

// NewForm builds the form for the selected loan type, pre-filled with the
// selected amount.
func (s *Shell) NewForm(reg *registry.ProductRegistry, deps FormDeps) (*Form, error) {
	sel := s.Selection()
	product, ok := reg.Get(sel.LoanType)
	if !ok {
		return nil, errors.NewUnknownLoanTypeError(string(sel.LoanType))
	}
	return NewForm(product, sel.Amount, deps), nil
}
