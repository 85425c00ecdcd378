package server

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"cashflow-loans/internal/common/errors"
	"cashflow-loans/internal/models"
)

// applicationRequest is the submission body. Multipart requests carry the
// same fields as form values and the attachments as files named by slot.
type applicationRequest struct {
	LoanType    string             `json:"loanType"`
	Amount      string             `json:"amount"`
	Name        string             `json:"name"`
	Surname     string             `json:"surname"`
	IDNumber    string             `json:"idNumber"`
	Phone       string             `json:"phone"`
	Email       string             `json:"email"`
	Terms       bool               `json:"terms"`
	Attachments models.Attachments `json:"attachments"`
}

func parseApplicationRequest(c *fiber.Ctx) (*applicationRequest, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return parseMultipart(c)
	}

	var req applicationRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, errors.NewInputParsingError(err)
	}
	return &req, nil
}

func parseMultipart(c *fiber.Ctx) (*applicationRequest, error) {
	mf, err := c.MultipartForm()
	if err != nil {
		return nil, errors.NewInputParsingError(err)
	}

	value := func(key string) string {
		if v := mf.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	req := &applicationRequest{
		LoanType:    value("loanType"),
		Amount:      value("amount"),
		Name:        value("name"),
		Surname:     value("surname"),
		IDNumber:    value("idNumber"),
		Phone:       value("phone"),
		Email:       value("email"),
		Terms:       parseBool(value("terms")),
		Attachments: models.Attachments{},
	}
	for slot, headers := range mf.File {
		for _, h := range headers {
			req.Attachments[slot] = append(req.Attachments[slot], models.FileRef{
				Filename:    h.Filename,
				ContentType: h.Header.Get(fiber.HeaderContentType),
				Size:        h.Size,
			})
		}
	}
	return req, nil
}

// parseBool accepts checkbox values ("on") as well as strconv booleans.
func parseBool(raw string) bool {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "on" || raw == "yes" {
		return true
	}
	b, _ := strconv.ParseBool(raw)
	return b
}

func (r *applicationRequest) formState() models.FormState {
	return models.FormState{
		Amount:   r.Amount,
		Name:     r.Name,
		Surname:  r.Surname,
		IDNumber: r.IDNumber,
		Phone:    r.Phone,
		Email:    r.Email,
		Terms:    r.Terms,
	}
}
