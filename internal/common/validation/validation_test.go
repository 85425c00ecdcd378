package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() map[string]interface{} {
	return map[string]interface{}{
		"id":               "7b1c2f4e-0c8a-4d2b-9a51-2f0e7c6d9a10",
		"name":             "Thandi Mokoena",
		"email":            "thandi@example.com",
		"phone":            "+27 82 555 0101",
		"idNumber":         "9001015800087",
		"loanAmount":       10000,
		"loanType":         "Unsecured Loan",
		"interestRate":     50,
		"monthlyPayment":   15000,
		"startDate":        "2024-02-10",
		"dueDate":          "2024-02-29",
		"status":           "new-lead",
		"applicationDate":  "2024-02-10T12:00:00.000Z",
		"lastStatusUpdate": "2024-02-10T12:00:00.000Z",
		"amountPaid":       0,
		"paymentHistory":   []interface{}{},
		"notes":            []interface{}{},
		"documents":        []interface{}{},
	}
}

func TestValidateDocument_Valid(t *testing.T) {
	res, err := ValidateDocument(validDocument(), ApplicationRecordSchema())
	require.NoError(t, err)
	assert.True(t, res.Valid, res.GetErrorMessages())
}

func TestValidateDocument_Violations(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(map[string]interface{})
		field string
	}{
		{"null notes", func(d map[string]interface{}) { d["notes"] = nil }, "notes"},
		{"bad loan type", func(d map[string]interface{}) { d["loanType"] = "Payday Loan" }, "loanType"},
		{"bad rate", func(d map[string]interface{}) { d["interestRate"] = 20 }, "interestRate"},
		{"bad date", func(d map[string]interface{}) { d["dueDate"] = "29/02/2024" }, "dueDate"},
		{"bad timestamp", func(d map[string]interface{}) { d["applicationDate"] = "2024-02-10T12:00:00Z" }, "applicationDate"},
		{"missing id", func(d map[string]interface{}) { delete(d, "id") }, "id"},
		{"not a v4 uuid", func(d map[string]interface{}) { d["id"] = "not-a-uuid" }, "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			tt.edit(doc)

			res, err := ValidateDocument(doc, ApplicationRecordSchema())
			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.True(t, res.HasErrors(tt.field), res.GetErrorMessages())
		})
	}
}

func TestValidatePhone(t *testing.T) {
	for _, ok := range []string{"0821234567", "+27 82 123 4567", "082-123-4567"} {
		assert.True(t, ValidatePhone(ok), ok)
	}
	for _, bad := range []string{"12345", "(082) 123 4567", "+27 82 123 4567 890", "phone"} {
		assert.False(t, ValidatePhone(bad), bad)
	}
}

type applicant struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,loanphone"`
}

func TestNewValidator_FieldErrorsUseJSONNames(t *testing.T) {
	err := NewValidator().Struct(applicant{Email: "nope", Phone: "12"})
	fields := FieldErrors(err)

	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Contains(t, fields["phone"], "7-15")

	assert.NoError(t, NewValidator().Struct(applicant{Email: "a@b.co", Phone: "0821234567"}))
}

func TestSanitizer_Text(t *testing.T) {
	s := NewSanitizer()

	assert.Equal(t, "Thandi", s.Text("  <b>Thandi</b> "))
	assert.Equal(t, "O'Brien & Sons", s.Text("O'Brien & Sons"))
	assert.Equal(t, "", s.Text("<script>alert(1)</script>"))
}
