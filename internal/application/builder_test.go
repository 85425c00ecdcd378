package application

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow-loans/internal/common/errors"
	"cashflow-loans/internal/models"
	"cashflow-loans/internal/quote"
	"cashflow-loans/pkg/registry"
)

var buildTime = time.Date(2024, time.February, 10, 9, 5, 7, 0, time.UTC)

func products(t *testing.T) (registry.Product, registry.Product) {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	u, _ := reg.Get(models.LoanTypeUnsecured)
	s, _ := reg.Get(models.LoanTypeSecured)
	return u, s
}

func unsecuredForm() models.FormState {
	return models.FormState{
		LoanType: models.LoanTypeUnsecured,
		Amount:   "10000",
		Name:     " Thandi ",
		Surname:  "Mokoena",
		IDNumber: "9001015800087",
		Phone:    "+27 82 555 0101",
		Email:    "thandi@example.com",
		Terms:    true,
	}
}

func TestBuild_Unsecured(t *testing.T) {
	unsecured, _ := products(t)
	b := NewBuilder().WithClock(func() time.Time { return buildTime })
	q := quote.Compute(quote.Parse("10000"), buildTime)

	rec, err := b.Build(unsecuredForm(), unsecured, q)
	require.NoError(t, err)

	want := &models.ApplicationRecord{
		Name:             "Thandi Mokoena",
		Email:            "thandi@example.com",
		Phone:            "+27 82 555 0101",
		IDNumber:         "9001015800087",
		LoanAmount:       10000,
		LoanType:         "Unsecured Loan",
		InterestRate:     50,
		MonthlyPayment:   15000,
		StartDate:        "2024-02-10",
		DueDate:          "2024-02-29",
		Status:           "new-lead",
		ApplicationDate:  "2024-02-10T09:05:07.000Z",
		LastStatusUpdate: "2024-02-10T09:05:07.000Z",
		PaymentHistory:   []json.RawMessage{},
		Notes:            []json.RawMessage{},
		Documents:        []json.RawMessage{},
	}
	if diff := cmp.Diff(want, rec, cmpopts.IgnoreFields(models.ApplicationRecord{}, "ID")); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	parsed, err := uuid.Parse(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestBuild_SecuredUsesNameOnly(t *testing.T) {
	_, secured := products(t)
	form := unsecuredForm()
	form.LoanType = models.LoanTypeSecured
	form.Amount = "25000"

	rec, err := NewBuilder().Build(form, secured, quote.Compute(quote.Parse("25000"), buildTime))
	require.NoError(t, err)

	assert.Equal(t, "Thandi", rec.Name)
	assert.Equal(t, "Secured Loan", rec.LoanType)
	assert.Equal(t, float64(37500), rec.MonthlyPayment)
}

func TestBuild_FreshIDEveryCall(t *testing.T) {
	unsecured, _ := products(t)
	b := NewBuilder()
	q := quote.Compute(quote.Parse("10000"), buildTime)

	a, err := b.Build(unsecuredForm(), unsecured, q)
	require.NoError(t, err)
	c, err := b.Build(unsecuredForm(), unsecured, q)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, c.ID)
	_, err = time.Parse(models.TimestampLayout, a.ApplicationDate)
	assert.NoError(t, err)
	_, err = time.Parse(models.DateLayout, a.DueDate)
	assert.NoError(t, err)
}

func TestBuild_ArraysSerializeEmpty(t *testing.T) {
	unsecured, _ := products(t)
	rec, err := NewBuilder().Build(unsecuredForm(), unsecured, quote.Compute(quote.Parse("10000"), buildTime))
	require.NoError(t, err)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"paymentHistory":[]`)
	assert.Contains(t, string(raw), `"notes":[]`)
	assert.Contains(t, string(raw), `"documents":[]`)
}

func TestBuild_ValidationGate(t *testing.T) {
	unsecured, _ := products(t)

	tests := []struct {
		name  string
		edit  func(*models.FormState)
		field string
	}{
		{"empty amount", func(f *models.FormState) { f.Amount = "" }, "amount"},
		{"non numeric amount", func(f *models.FormState) { f.Amount = "ten" }, "amount"},
		{"infinite amount", func(f *models.FormState) { f.Amount = "Inf" }, "amount"},
		{"zero amount", func(f *models.FormState) { f.Amount = "0" }, "amount"},
		{"negative amount", func(f *models.FormState) { f.Amount = "-50" }, "amount"},
		{"above product max", func(f *models.FormState) { f.Amount = "10001" }, "amount"},
		{"below product min", func(f *models.FormState) { f.Amount = "99" }, "amount"},
		{"missing name", func(f *models.FormState) { f.Name = "  " }, "name"},
		{"markup-only surname", func(f *models.FormState) { f.Surname = "<i></i>" }, "surname"},
		{"missing id number", func(f *models.FormState) { f.IDNumber = "" }, "idNumber"},
		{"bad phone", func(f *models.FormState) { f.Phone = "12" }, "phone"},
		{"bad email", func(f *models.FormState) { f.Email = "thandi.example.com" }, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := unsecuredForm()
			tt.edit(&form)

			rec, err := NewBuilder().Build(form, unsecured, quote.Compute(quote.Parse(form.Amount), buildTime))

			assert.Nil(t, rec)
			require.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed), "%v", err)
			var stdErr *errors.StandardError
			require.True(t, errors.As(err, &stdErr))
			assert.Contains(t, stdErr.FieldErrors(), tt.field)
		})
	}
}

func TestBuild_MismatchedProduct(t *testing.T) {
	_, secured := products(t)
	_, err := NewBuilder().Build(unsecuredForm(), secured, quote.Compute(quote.Parse("10000"), buildTime))
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnknownLoanType))
}

func TestBuild_StripsMarkup(t *testing.T) {
	unsecured, _ := products(t)
	form := unsecuredForm()
	form.Name = "<b>Thandi</b>"

	rec, err := NewBuilder().Build(form, unsecured, quote.Compute(quote.Parse("10000"), buildTime))
	require.NoError(t, err)
	assert.Equal(t, "Thandi Mokoena", rec.Name)
}
