package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema is the subset of JSON Schema the portal describes contracts with.
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties"`
}

type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Format      string    `json:"format,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Pattern     *string   `json:"pattern,omitempty"`
	MinLength   *int      `json:"minLength,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func ptr[T any](v T) *T { return &v }

const (
	datePattern      = `^\d{4}-\d{2}-\d{2}$`
	timestampPattern = `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`
	uuidV4Pattern    = `^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`
)

// ApplicationRecordSchema is the contract the CRM clients endpoint expects.
func ApplicationRecordSchema() JSONSchema {
	nonEmpty := Property{Type: "string", MinLength: ptr(1)}
	anyArray := Property{Type: "array", Items: &Property{Type: "object"}}

	return JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"id":               {Type: "string", Pattern: ptr(uuidV4Pattern)},
			"name":             nonEmpty,
			"email":            {Type: "string", Format: "email"},
			"phone":            {Type: "string", Pattern: ptr(PhonePattern)},
			"idNumber":         nonEmpty,
			"loanAmount":       {Type: "number", Minimum: ptr(0.01)},
			"loanType":         {Type: "string", Enum: []string{"Unsecured Loan", "Secured Loan"}},
			"interestRate":     {Type: "number", Minimum: ptr(50.0), Maximum: ptr(50.0)},
			"monthlyPayment":   {Type: "number", Minimum: ptr(0.0)},
			"startDate":        {Type: "string", Pattern: ptr(datePattern)},
			"dueDate":          {Type: "string", Pattern: ptr(datePattern)},
			"status":           {Type: "string", Enum: []string{"new-lead", "pending-upload"}},
			"applicationDate":  {Type: "string", Pattern: ptr(timestampPattern)},
			"lastStatusUpdate": {Type: "string", Pattern: ptr(timestampPattern)},
			"amountPaid":       {Type: "number", Minimum: ptr(0.0)},
			"paymentHistory":   anyArray,
			"notes":            anyArray,
			"documents":        anyArray,
		},
		Required: []string{
			"id", "name", "email", "phone", "idNumber", "loanAmount", "loanType",
			"interestRate", "monthlyPayment", "startDate", "dueDate", "status",
			"applicationDate", "lastStatusUpdate", "amountPaid",
			"paymentHistory", "notes", "documents",
		},
		AdditionalProperties: true,
	}
}

// ValidateDocument checks any JSON-marshalable value against schema.
func ValidateDocument(doc interface{}, schema JSONSchema) (*ValidationResult, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		field := e.Field()
		if field == "(root)" {
			if missing, ok := e.Details()["property"].(string); ok {
				field = missing
			}
		}
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return out, nil
}

// FieldMessages flattens the result to one message per field.
func (vr *ValidationResult) FieldMessages() map[string]string {
	out := make(map[string]string, len(vr.Errors))
	for _, e := range vr.Errors {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

// GetErrorMessages returns a sorted list of "field: message" strings.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	sort.Strings(messages)
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
