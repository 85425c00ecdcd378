package server

import (
	"context"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"cashflow-loans/internal/common/errors"
	"cashflow-loans/internal/models"
	"cashflow-loans/internal/portal"
)

const readyTimeout = 2 * time.Second

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"service":     s.info.Name,
		"version":     s.info.Version,
		"environment": s.info.Environment,
		"time":        time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) ready(c *fiber.Ctx) error {
	if s.deps.Store == nil {
		return c.JSON(fiber.Map{"status": "ready"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
	defer cancel()

	if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.Warn("Readiness check failed", map[string]interface{}{
			"backend": s.deps.Store.Backend(),
			"error":   err.Error(),
		})
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "unavailable",
			"backend": s.deps.Store.Backend(),
			"error":   "fallback store unreachable",
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "backend": s.deps.Store.Backend()})
}

func (s *Server) products(c *fiber.Ctx) error {
	return c.JSON(s.deps.Registry)
}

type formView struct {
	LoanType     models.LoanType `json:"loanType"`
	DisplayName  string          `json:"displayName"`
	Amount       string          `json:"amount"`
	Fields       []string        `json:"fields"`
	Attachments  interface{}     `json:"attachments"`
	TermsSummary []string        `json:"termsSummary"`
}

// shell seeds the App Shell from the query string and returns the form it opens.
func (s *Server) shell(c *fiber.Ctx) error {
	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return errors.NewInputParsingError(err)
	}

	sh := portal.NewShell(query)
	form, err := sh.NewForm(s.deps.Registry, s.deps.Forms)
	if err != nil {
		return err
	}
	p := form.Product()

	return c.JSON(fiber.Map{
		"view":      sh.View(),
		"selection": sh.Selection(),
		"form": formView{
			LoanType:     p.Type,
			DisplayName:  p.DisplayName,
			Amount:       form.Values().Amount,
			Fields:       p.Fields,
			Attachments:  p.Attachments,
			TermsSummary: p.TermsSummary,
		},
	})
}

// quote runs one calculator recompute for the requested amount and type.
func (s *Server) quote(c *fiber.Ctx) error {
	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return errors.NewInputParsingError(err)
	}

	calc := portal.NewCalculator(s.deps.Quotes, s.deps.Registry)
	sh := portal.NewShell(query)
	sh.Track(calc)

	if raw := c.Query("type"); raw != "" {
		t, ok := models.ParseLoanType(raw)
		if !ok {
			return errors.NewUnknownLoanTypeError(raw)
		}
		if _, err := calc.SetLoanType(t); err != nil {
			return err
		}
	}
	if amount := c.Query("amount"); amount != "" {
		calc.SetAmount(amount)
	}

	return c.JSON(fiber.Map{
		"calculator": calc.View(),
		"handOff":    calc.HandOff(),
		"selection":  sh.Selection(),
	})
}

func (s *Server) submitApplication(c *fiber.Ctx) error {
	req, err := parseApplicationRequest(c)
	if err != nil {
		return err
	}

	t, ok := models.ParseLoanType(req.LoanType)
	if !ok {
		return errors.NewUnknownLoanTypeError(req.LoanType)
	}
	product, ok := s.deps.Registry.Get(t)
	if !ok {
		return errors.NewUnknownLoanTypeError(req.LoanType)
	}

	form := portal.NewForm(product, req.Amount, s.deps.Forms)
	if err := form.Fill(req.formState(), req.Attachments); err != nil {
		return err
	}

	res, err := form.Submit(c.UserContext())
	if err != nil {
		stdErr := errors.Normalize(err)
		message := form.Message()
		if message == "" {
			message = stdErr.Message
		}
		return c.Status(errors.HTTPStatus(stdErr.Code)).JSON(errorBody{
			Error:   true,
			Code:    string(stdErr.Code),
			Message: message,
			Fields:  stdErr.FieldErrors(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"leadId":  res.Outcome.LeadID,
		"channel": res.Outcome.Channel,
		"outcome": res.Outcome,
		"message": res.Message,
	})
}
