// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrMessageNotFound signals a delivery receipt or queued job referencing a
// missing message row.
type ErrMessageNotFound struct {
	MessageID int
}

func (e *ErrMessageNotFound) Error() string {
	return fmt.Sprintf("message with ID %d not found", e.MessageID)
}

func NewMessageNotFound(id int) error {
	return &ErrMessageNotFound{MessageID: id}
}

// ErrCampaignAlreadyRunning is returned when Execute is called on a campaign
// that is already processing or in progress.
type ErrCampaignAlreadyRunning struct {
	CampaignID int
}

func (e *ErrCampaignAlreadyRunning) Error() string {
	return fmt.Sprintf("campaign %d is already running", e.CampaignID)
}

func NewCampaignAlreadyRunning(id int) error {
	return &ErrCampaignAlreadyRunning{CampaignID: id}
}

// ErrNoEligibleContacts is returned when Execute finds nothing to send.
type ErrNoEligibleContacts struct {
	CampaignID int
}

func (e *ErrNoEligibleContacts) Error() string {
	return fmt.Sprintf("campaign %d has no eligible contacts", e.CampaignID)
}

func NewNoEligibleContacts(id int) error {
	return &ErrNoEligibleContacts{CampaignID: id}
}
