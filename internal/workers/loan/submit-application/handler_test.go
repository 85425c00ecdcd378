package submitapplication

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow-loans/internal/application"
	"cashflow-loans/internal/common/crm"
	"cashflow-loans/internal/common/errors"
	"cashflow-loans/internal/common/logger"
	"cashflow-loans/internal/fallback"
	"cashflow-loans/internal/models"
	"cashflow-loans/internal/portal"
	"cashflow-loans/internal/submission"
	"cashflow-loans/pkg/registry"
)

func createTestInput() *Input {
	return &Input{
		LoanType: "secured",
		Amount:   "25000",
		Name:     "Sipho",
		IDNumber: "8505055800081",
		Phone:    "0825550101",
		Email:    "sipho@example.com",
		Terms:    true,
		Attachments: models.Attachments{
			"collateralImages": {{Filename: "car.jpg", ContentType: "image/jpeg", Size: 2048}},
		},
	}
}

func createTestHandler(t *testing.T, crmURL string, store fallback.Store) *Handler {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	svc := submission.NewService(crm.NewClient(crmURL, "", time.Second), store, log)
	return NewHandler(DefaultConfig(), reg, portal.FormDeps{
		Builder:   application.NewBuilder(),
		Submitter: svc,
	}, log)
}

func TestHandler_Execute_CRM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"crm-99","loanAmount":25000}`))
	}))
	defer srv.Close()

	out, err := createTestHandler(t, srv.URL, fallback.NewMemoryStore()).Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	assert.Equal(t, "crm-99", out.LeadID)
	assert.Equal(t, "crm", out.Channel)
	assert.Contains(t, out.Message, "Loan Amount: R25,000")
}

func TestHandler_Execute_FallsBackLocally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	store := fallback.NewMemoryStore()
	out, err := createTestHandler(t, url, store).Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	assert.Equal(t, "local-storage", out.Channel)
	assert.Equal(t, "local-storage", out.Fallback)
	assert.Equal(t, 1, store.Len())
}

func TestHandler_Execute_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("duplicate lead"))
	}))
	defer srv.Close()

	tests := []struct {
		name string
		edit func(*Input)
		code errors.ErrorCode
		bpmn string
	}{
		{"terms not accepted", func(in *Input) { in.Terms = false }, errors.ErrCodeTermsNotAccepted, "TERMS_NOT_ACCEPTED"},
		{"unknown loan type", func(in *Input) { in.LoanType = "payday" }, errors.ErrCodeUnknownLoanType, "UNKNOWN_LOAN_TYPE"},
		{"missing collateral", func(in *Input) { in.Attachments = nil }, errors.ErrCodeValidationFailed, "APPLICATION_VALIDATION_FAILED"},
		{"bad email", func(in *Input) { in.Email = "nope" }, errors.ErrCodeValidationFailed, "APPLICATION_VALIDATION_FAILED"},
		{"crm rejected", func(in *Input) {}, errors.ErrCodeCRMRemoteRejected, "CRM_REJECTED"},
	}

	h := createTestHandler(t, srv.URL, fallback.NewMemoryStore())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := createTestInput()
			tt.edit(input)

			_, err := h.Execute(context.Background(), input)
			require.True(t, errors.HasCode(err, tt.code), "%v", err)

			bpmnErr := errors.ConvertToBPMNError(errors.Normalize(err))
			assert.Equal(t, tt.bpmn, bpmnErr.Code)
			assert.Equal(t, 0, bpmnErr.Retries)
		})
	}
}
