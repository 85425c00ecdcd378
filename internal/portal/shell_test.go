package portal

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "cashflow-loans/internal/common/errors"
	"cashflow-loans/internal/models"
	"cashflow-loans/internal/quote"
)

func TestNewShell_ReadsQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  models.Selection
	}{
		{"secured with amount", "type=secured&amount=25000", models.Selection{Amount: "25000", LoanType: models.LoanTypeSecured}},
		{"unknown type", "type=payday&amount=500", models.Selection{Amount: "500", LoanType: models.LoanTypeUnsecured}},
		{"non numeric amount", "type=unsecured&amount=lots", models.Selection{LoanType: models.LoanTypeUnsecured}},
		{"empty", "", models.Selection{LoanType: models.LoanTypeUnsecured}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			s := NewShell(q)
			assert.Equal(t, ViewApplication, s.View())
			assert.Equal(t, tt.want, s.Selection())
		})
	}
}

func TestShell_NewFormPrefills(t *testing.T) {
	q, _ := url.ParseQuery("type=secured&amount=25000")
	s := NewShell(q)

	f, err := s.NewForm(testRegistry(t), testDeps(t, &fakeSubmitter{}))
	require.NoError(t, err)
	assert.Equal(t, models.LoanTypeSecured, f.LoanType())
	assert.Equal(t, "25000", f.Values().Amount)
	assert.False(t, f.Product().HasField("surname"))
}

func TestShell_NewFormUsesProductDefault(t *testing.T) {
	s := NewShell(url.Values{})

	f, err := s.NewForm(testRegistry(t), testDeps(t, &fakeSubmitter{}))
	require.NoError(t, err)
	assert.Equal(t, "500", f.Values().Amount)
}

func TestShell_NavigateKeepsSelection(t *testing.T) {
	q, _ := url.ParseQuery("type=secured&amount=25000")
	s := NewShell(q)

	require.NoError(t, s.Navigate(ViewCalculator))
	assert.Equal(t, ViewCalculator, s.View())
	assert.Equal(t, models.LoanTypeSecured, s.Selection().LoanType)

	assert.True(t, commonerrors.HasCode(s.Navigate("dashboard"), commonerrors.ErrCodeValidationFailed))
	assert.Equal(t, ViewCalculator, s.View())
}

func TestShell_ApplyHandOff(t *testing.T) {
	s := NewShell(url.Values{})
	require.NoError(t, s.Navigate(ViewCalculator))

	require.NoError(t, s.ApplyHandOff(models.Selection{Amount: "30000", LoanType: models.LoanTypeSecured}))
	assert.Equal(t, ViewApplication, s.View())
	assert.Equal(t, "30000", s.Selection().Amount)

	err := s.ApplyHandOff(models.Selection{LoanType: "payday"})
	assert.True(t, commonerrors.HasCode(err, commonerrors.ErrCodeUnknownLoanType))

	require.NoError(t, s.SelectLoanType(models.LoanTypeUnsecured))
	assert.Equal(t, models.LoanTypeUnsecured, s.Selection().LoanType)
}

func TestShell_TracksCalculator(t *testing.T) {
	s := NewShell(url.Values{})
	require.NoError(t, s.Navigate(ViewCalculator))

	c := NewCalculator(&quote.Engine{Clock: clock}, testRegistry(t))
	s.Track(c)

	c.SetAmount("40000")
	_, err := c.SetLoanType(models.LoanTypeSecured)
	require.NoError(t, err)

	assert.Equal(t, ViewCalculator, s.View())
	assert.Equal(t, models.Selection{Amount: "40000", LoanType: models.LoanTypeSecured}, s.Selection())

	require.NoError(t, s.Navigate(ViewApplication))
	form, err := s.NewForm(testRegistry(t), testDeps(t, &fakeSubmitter{}))
	require.NoError(t, err)
	assert.Equal(t, "40000", form.Values().Amount)
	assert.Equal(t, models.LoanTypeSecured, form.LoanType())

	c.SetAmount("not a number")
	assert.Equal(t, "0", s.Selection().Amount)
}

func TestShell_SelectRejectsUnknownType(t *testing.T) {
	s := NewShell(url.Values{})
	err := s.Select(models.Selection{Amount: "100", LoanType: "payday"})
	assert.True(t, commonerrors.HasCode(err, commonerrors.ErrCodeUnknownLoanType))
	assert.Equal(t, models.LoanTypeUnsecured, s.Selection().LoanType)
}
