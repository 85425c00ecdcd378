package portal

import (
	"sync"

	"cashflow-loans/internal/common/errors"
	"cashflow-loans/internal/common/metrics"
	"cashflow-loans/internal/models"
	"cashflow-loans/internal/quote"
	"cashflow-loans/pkg/registry"
)

// CalculatorView is the calculator's state after a recompute.
type CalculatorView struct {
	Amount       string           `json:"amount"`
	LoanType     models.LoanType  `json:"loanType"`
	Quote        models.LoanQuote `json:"quote"`
	TermsSummary []string         `json:"termsSummary"`
}

// Calculator recomputes the quote synchronously on every change.
type Calculator struct {
	mu       sync.Mutex
	engine   *quote.Engine
	registry *registry.ProductRegistry
	amount   string
	loanType models.LoanType
	current  models.LoanQuote

	// OnCalculate, if set, is called after every recompute.
	OnCalculate func(CalculatorView)
}

// NewCalculator starts at the registry's calculator defaults.
func NewCalculator(engine *quote.Engine, reg *registry.ProductRegistry) *Calculator {
	if engine == nil {
		engine = quote.NewEngine()
	}
	c := &Calculator{
		engine:   engine,
		registry: reg,
		amount:   reg.Calculator.DefaultAmount,
		loanType: reg.Calculator.DefaultLoanType,
	}
	if c.amount == "" {
		c.amount = "10000"
	}
	if c.loanType == "" {
		c.loanType = models.LoanTypeUnsecured
	}
	c.current = c.engine.QuoteRaw(c.amount)
	return c
}

func (c *Calculator) SetAmount(raw string) CalculatorView {
	c.mu.Lock()
	c.amount = raw
	view := c.recomputeLocked()
	cb := c.OnCalculate
	c.mu.Unlock()

	if cb != nil {
		cb(view)
	}
	return view
}

func (c *Calculator) SetLoanType(t models.LoanType) (CalculatorView, error) {
	if _, ok := c.registry.Get(t); !ok {
		return CalculatorView{}, errors.NewUnknownLoanTypeError(string(t))
	}

	c.mu.Lock()
	c.loanType = t
	view := c.recomputeLocked()
	cb := c.OnCalculate
	c.mu.Unlock()

	if cb != nil {
		cb(view)
	}
	return view, nil
}

func (c *Calculator) Quote() models.LoanQuote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// View returns the current state without recomputing.
func (c *Calculator) View() CalculatorView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// HandOff returns the selection the application form starts from. The amount
// is the current quote's principal, so unparseable input hands off "0".
func (c *Calculator) HandOff() models.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return selectionOf(c.current, c.loanType)
}

func selectionOf(q models.LoanQuote, t models.LoanType) models.Selection {
	return models.Selection{Amount: q.Principal.String(), LoanType: t}
}

func (c *Calculator) recomputeLocked() CalculatorView {
	c.current = c.engine.QuoteRaw(c.amount)
	metrics.QuotesComputed.WithLabelValues(string(c.loanType)).Inc()
	return c.viewLocked()
}

func (c *Calculator) viewLocked() CalculatorView {
	view := CalculatorView{Amount: c.amount, LoanType: c.loanType, Quote: c.current}
	if p, ok := c.registry.Get(c.loanType); ok {
		view.TermsSummary = p.TermsSummary
	}
	return view
}
