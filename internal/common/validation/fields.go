package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// PhonePattern is the phone format the CRM accepts.
const PhonePattern = `^[0-9\-\+\s]{7,15}$`

var phoneRegexp = regexp.MustCompile(PhonePattern)

// ValidatePhone reports whether phone matches PhonePattern.
func ValidatePhone(phone string) bool {
	return phoneRegexp.MatchString(phone)
}

// NewValidator returns a validator with the "loanphone" rule registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("loanphone", func(fl validator.FieldLevel) bool {
		return ValidatePhone(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldErrors converts validator errors into one message per JSON field.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		if err != nil {
			out["_"] = err.Error()
		}
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = messageFor(fe)
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "loanphone":
		return "must be 7-15 digits, spaces, '+' or '-'"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}

// Sanitizer strips all markup from free text.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Text trims in and removes any HTML. Quote and ampersand entities produced
// by the policy are turned back into plain characters; angle brackets stay escaped.
func (s *Sanitizer) Text(in string) string {
	cleaned := s.policy.Sanitize(strings.TrimSpace(in))
	return strings.TrimSpace(htmlUnescaper.Replace(cleaned))
}

var htmlUnescaper = strings.NewReplacer(
	"&amp;", "&",
	"&#39;", "'",
	"&#34;", `"`,
	"&quot;", `"`,
)
