package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cashflow-loans/internal/common/aws"
	"cashflow-loans/internal/common/logger"
	"cashflow-loans/internal/models"
)

type mockSES struct{ mock.Mock }

func (m *mockSES) SendEmail(ctx context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, in)
	if out, ok := args.Get(0).(*ses.SendEmailOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSNS struct{ mock.Mock }

func (m *mockSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	if out, ok := args.Get(0).(*sns.PublishOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func fallbackRecord() *models.FallbackRecord {
	return models.NewFallbackRecord(models.ApplicationRecord{
		ID:             "lead-1",
		Name:           "Thandi Mokoena",
		Email:          "thandi@example.com",
		LoanType:       "Unsecured Loan",
		LoanAmount:     10000,
		MonthlyPayment: 15000,
		DueDate:        "2024-02-29",
	}, "2024-02-10T09:05:07.000Z")
}

func TestLeadSavedLocally_SendsEmailAndSMS(t *testing.T) {
	sesAPI := &mockSES{}
	snsAPI := &mockSNS{}

	sesAPI.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		body := awssdk.ToString(in.Message.Body.Text.Data)
		return awssdk.ToString(in.Source) == "portal@cashflowloans.co.za" &&
			in.Destination.ToAddresses[0] == "ops@cashflowloans.co.za" &&
			strings.Contains(body, "lead-1") &&
			strings.Contains(body, "R15,000") &&
			strings.Contains(body, "pending-upload")
	})).Return(&ses.SendEmailOutput{MessageId: awssdk.String("m-1")}, nil)

	snsAPI.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return awssdk.ToString(in.PhoneNumber) == "+27820000000" &&
			strings.Contains(awssdk.ToString(in.Message), "R10,000")
	})).Return(&sns.PublishOutput{MessageId: awssdk.String("s-1")}, nil)

	n := NewOpsNotifier(Config{
		EmailEnabled: true,
		FromEmail:    "portal@cashflowloans.co.za",
		ToEmail:      "ops@cashflowloans.co.za",
		SMSEnabled:   true,
		PhoneNumber:  "+27820000000",
	}, aws.NewSESClientWith(sesAPI), aws.NewSNSClientWith(snsAPI), logger.NewTestLogger(t))

	require.NoError(t, n.LeadSavedLocally(context.Background(), fallbackRecord()))
	sesAPI.AssertExpectations(t)
	snsAPI.AssertExpectations(t)
}

func TestLeadSavedLocally_ReportsFailures(t *testing.T) {
	sesAPI := &mockSES{}
	sesAPI.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	n := NewOpsNotifier(Config{EmailEnabled: true, FromEmail: "a@b.co", ToEmail: "c@d.co"},
		aws.NewSESClientWith(sesAPI), nil, logger.NewTestLogger(t))

	err := n.LeadSavedLocally(context.Background(), fallbackRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestLeadSavedLocally_DisabledChannelsDoNothing(t *testing.T) {
	sesAPI := &mockSES{}
	n := NewOpsNotifier(Config{}, aws.NewSESClientWith(sesAPI), nil, logger.NewTestLogger(t))

	require.NoError(t, n.LeadSavedLocally(context.Background(), fallbackRecord()))
	sesAPI.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	assert.NoError(t, Nop{}.LeadSavedLocally(context.Background(), fallbackRecord()))
}
