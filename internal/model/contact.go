// internal/model/contact.go
package model

import "time"

// Contact is a recipient belonging to exactly one campaign. Validity is
// decided at creation time by the ingestion layer and never re-evaluated here.
type Contact struct {
	ID              int               `db:"id" json:"id"`
	CampaignID      int               `db:"campaign_id" json:"campaign_id"`
	Name            string            `db:"name" json:"name"`
	PhoneNumber     string            `db:"phone_number" json:"phone_number"`
	CustomFields    map[string]string `db:"custom_fields" json:"custom_fields,omitempty"`
	IsValid         bool              `db:"is_valid" json:"is_valid"`
	ValidationError string            `db:"validation_error" json:"validation_error,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
}
