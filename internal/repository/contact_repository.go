// internal/repository/contact_repository.go
package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/timothysaatum/bulk-sms/internal/model"
)

// ContactRepositoryInterface defines the contact reads the engine needs plus
// the create used by the ingestion layer. Contacts are immutable once created.
type ContactRepositoryInterface interface {
	Create(c *model.Contact) error
	GetByID(id int) (*model.Contact, error)
	// ListEligible returns valid contacts of the campaign that do not yet own
	// a message. This is what makes re-running a campaign idempotent.
	ListEligible(campaignID int) ([]model.Contact, error)
	CountByCampaign(campaignID int) (int, error)
}

type ContactRepository struct {
	DB *sql.DB
}

const contactColumns = `id, campaign_id, name, phone_number, custom_fields, is_valid,
        COALESCE(validation_error, ''), created_at`

func scanContact(row interface{ Scan(...any) error }) (*model.Contact, error) {
	var c model.Contact
	var customFields []byte
	err := row.Scan(&c.ID, &c.CampaignID, &c.Name, &c.PhoneNumber, &customFields,
		&c.IsValid, &c.ValidationError, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(customFields) > 0 {
		if err := json.Unmarshal(customFields, &c.CustomFields); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (r *ContactRepository) Create(c *model.Contact) error {
	// jsonb wants text, not bytea; keep NULL for contacts without fields.
	var customFields interface{}
	if c.CustomFields != nil {
		encoded, err := json.Marshal(c.CustomFields)
		if err != nil {
			return err
		}
		customFields = string(encoded)
	}
	query := `
        INSERT INTO contacts (campaign_id, name, phone_number, custom_fields, is_valid, validation_error, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        RETURNING id, created_at
    `
	return r.DB.QueryRow(query, c.CampaignID, c.Name, c.PhoneNumber, customFields,
		c.IsValid, c.ValidationError).Scan(&c.ID, &c.CreatedAt)
}

func (r *ContactRepository) GetByID(id int) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	c, err := scanContact(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return c, nil
}

func (r *ContactRepository) ListEligible(campaignID int) ([]model.Contact, error) {
	query := `
        SELECT c.id, c.campaign_id, c.name, c.phone_number, c.custom_fields, c.is_valid,
               COALESCE(c.validation_error, ''), c.created_at
        FROM contacts c
        LEFT JOIN messages m ON m.contact_id = c.id
        WHERE c.campaign_id = $1 AND c.is_valid = TRUE AND m.id IS NULL
        ORDER BY c.id
    `
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (r *ContactRepository) CountByCampaign(campaignID int) (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM contacts WHERE campaign_id = $1`, campaignID).Scan(&count)
	return count, err
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
