package models

// Channel says where a lead ended up.
type Channel string

const (
	ChannelCRM          Channel = "crm"
	ChannelLocalStorage Channel = "local-storage"
)

// SubmissionOutcome is the successful result of a submission attempt.
type SubmissionOutcome struct {
	Channel  Channel                `json:"channel"`
	LeadID   string                 `json:"leadId"`
	Fallback string                 `json:"fallback,omitempty"`
	Notified bool                   `json:"notified,omitempty"`
	Remote   map[string]interface{} `json:"remote,omitempty"`
}
