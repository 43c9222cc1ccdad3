// internal/service/campaign_service.go
package service

import (
	"fmt"
	"log"
	"strings"

	"github.com/timothysaatum/bulk-sms/internal/model"
	"github.com/timothysaatum/bulk-sms/internal/repository"
)

// CampaignService backs the HTTP API: campaign CRUD reads and contact intake.
// Contacts arrive already validated upstream; validity is stored as given and
// never re-evaluated.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	MessageRepo  repository.MessageRepositoryInterface
}

// ContactInput is one recipient in a create-campaign request.
type ContactInput struct {
	Name            string            `json:"name"`
	PhoneNumber     string            `json:"phone_number"`
	CustomFields    map[string]string `json:"custom_fields,omitempty"`
	IsValid         *bool             `json:"is_valid,omitempty"`
	ValidationError string            `json:"validation_error,omitempty"`
}

type CampaignDetails struct {
	*model.Campaign
	Stats map[string]int `json:"stats"`
}

func (s *CampaignService) CreateCampaign(name, description, template, senderID string, contacts []ContactInput) (*model.Campaign, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("campaign name cannot be empty")
	}
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("message template cannot be empty")
	}
	if senderID == "" || len(senderID) > 11 {
		return nil, fmt.Errorf("sender id must be 1-11 characters")
	}

	c := &model.Campaign{
		Name:            name,
		Description:     description,
		MessageTemplate: template,
		SenderID:        senderID,
		Status:          model.CampaignDraft,
	}
	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}

	for _, in := range contacts {
		valid := true
		if in.IsValid != nil {
			valid = *in.IsValid
		}
		contact := &model.Contact{
			CampaignID:      c.ID,
			Name:            in.Name,
			PhoneNumber:     in.PhoneNumber,
			CustomFields:    in.CustomFields,
			IsValid:         valid,
			ValidationError: in.ValidationError,
		}
		if err := s.ContactRepo.Create(contact); err != nil {
			log.Println("⚠️ Failed to create contact for campaign", c.ID, ":", err)
			continue
		}
	}

	total, err := s.ContactRepo.CountByCampaign(c.ID)
	if err != nil {
		return nil, err
	}
	if err := s.CampaignRepo.SetTotalContacts(c.ID, total); err != nil {
		return nil, err
	}
	c.TotalContacts = total

	return c, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

// GetCampaignDetails returns the campaign with a live per-status breakdown of
// its messages.
func (s *CampaignService) GetCampaignDetails(campaignID int) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	counts, err := s.MessageRepo.CountByStatus(campaignID)
	if err != nil {
		return nil, err
	}

	stats := map[string]int{"total": 0}
	for status, count := range counts {
		stats[string(status)] = count
		stats["total"] += count
	}

	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}

func (s *CampaignService) ListMessages(campaignID int, status string, page, pageSize int) ([]*model.Message, map[string]int, error) {
	if _, err := s.CampaignRepo.GetByID(campaignID); err != nil {
		return nil, nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}
	offset := (page - 1) * pageSize

	messages, total, err := s.MessageRepo.ListByCampaign(campaignID, status, offset, pageSize)
	if err != nil {
		return nil, nil, err
	}

	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": (total + pageSize - 1) / pageSize,
	}
	return messages, pagination, nil
}
