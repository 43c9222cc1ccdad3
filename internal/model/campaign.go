// internal/model/campaign.go
package model

import "time"

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignDraft      CampaignStatus = "draft"
	CampaignProcessing CampaignStatus = "processing"
	CampaignInProgress CampaignStatus = "in_progress"
	CampaignCompleted  CampaignStatus = "completed"
	CampaignFailed     CampaignStatus = "failed"
	CampaignCancelled  CampaignStatus = "cancelled"
)

// IsActive reports whether the campaign is currently being dispatched.
// Execute must reject campaigns in an active state.
func (s CampaignStatus) IsActive() bool {
	switch s {
	case CampaignProcessing, CampaignInProgress:
		return true
	case CampaignDraft, CampaignCompleted, CampaignFailed, CampaignCancelled:
		return false
	}
	return false
}

type Campaign struct {
	ID              int            `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Description     string         `db:"description" json:"description,omitempty"`
	MessageTemplate string         `db:"message_template" json:"message_template"`
	SenderID        string         `db:"sender_id" json:"sender_id"`
	Status          CampaignStatus `db:"status" json:"status"`

	// Counters are derived by the stats aggregator, never hand-maintained.
	TotalContacts  int `db:"total_contacts" json:"total_contacts"`
	TotalSent      int `db:"total_sent" json:"total_sent"`
	TotalDelivered int `db:"total_delivered" json:"total_delivered"`
	TotalFailed    int `db:"total_failed" json:"total_failed"`
	TotalPending   int `db:"total_pending" json:"total_pending"`

	ErrorLog    string     `db:"error_log" json:"error_log,omitempty"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
