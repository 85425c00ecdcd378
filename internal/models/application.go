package models

import "encoding/json"

const (
	StatusNewLead       = "new-lead"
	StatusPendingUpload = "pending-upload"

	FallbackSchemaVersion = 1

	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// ApplicationRecord is the flat camelCase payload the CRM accepts.
type ApplicationRecord struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	Phone            string            `json:"phone"`
	IDNumber         string            `json:"idNumber"`
	LoanAmount       float64           `json:"loanAmount"`
	LoanType         string            `json:"loanType"`
	InterestRate     float64           `json:"interestRate"`
	MonthlyPayment   float64           `json:"monthlyPayment"`
	StartDate        string            `json:"startDate"`
	DueDate          string            `json:"dueDate"`
	Status           string            `json:"status"`
	ApplicationDate  string            `json:"applicationDate"`
	LastStatusUpdate string            `json:"lastStatusUpdate"`
	AmountPaid       float64           `json:"amountPaid"`
	PaymentHistory   []json.RawMessage `json:"paymentHistory"`
	Notes            []json.RawMessage `json:"notes"`
	Documents        []json.RawMessage `json:"documents"`
}

// FallbackRecord is what the local store keeps when the CRM is unreachable.
type FallbackRecord struct {
	ApplicationRecord
	Status        string `json:"status"`
	SavedAt       string `json:"savedAt"`
	SchemaVersion int    `json:"schemaVersion"`
}

// NewFallbackRecord copies rec and marks it pending upload.
func NewFallbackRecord(rec ApplicationRecord, savedAt string) *FallbackRecord {
	return &FallbackRecord{
		ApplicationRecord: rec,
		Status:            StatusPendingUpload,
		SavedAt:           savedAt,
		SchemaVersion:     FallbackSchemaVersion,
	}
}

// FormState holds the raw applicant input for one product.
type FormState struct {
	LoanType LoanType `json:"loanType"`
	Amount   string   `json:"amount"`
	Name     string   `json:"name"`
	Surname  string   `json:"surname,omitempty"`
	IDNumber string   `json:"idNumber"`
	Phone    string   `json:"phone"`
	Email    string   `json:"email"`
	Terms    bool     `json:"terms"`
}

// FileRef references an uploaded file. Contents are never read.
type FileRef struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Attachments maps an attachment slot (payslip, collateralImages, ...) to files.
type Attachments map[string][]FileRef
