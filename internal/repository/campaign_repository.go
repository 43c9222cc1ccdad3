// internal/repository/campaign_repository.go
package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/timothysaatum/bulk-sms/internal/errors"
	"github.com/timothysaatum/bulk-sms/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error)

	// ClaimForDispatch flips the campaign to PROCESSING only if it is not
	// already active. Returns false when another orchestrator holds the claim.
	ClaimForDispatch(campaignID int) (bool, error)
	UpdateStatus(campaignID int, status model.CampaignStatus) error
	MarkInProgress(campaignID int) error
	MarkFailed(campaignID int, errorLog string) error
	SetTotalContacts(campaignID, total int) error

	UpdateCounters(campaignID, sent, delivered, failed, pending int) error
	// CompleteIfInProgress finalizes the campaign; a no-op unless the campaign
	// is still IN_PROGRESS. Returns whether the transition happened.
	CompleteIfInProgress(campaignID int) (bool, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, description, message_template, sender_id, status,
        total_contacts, total_sent, total_delivered, total_failed, total_pending,
        COALESCE(error_log::text, ''), started_at, completed_at, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.MessageTemplate, &c.SenderID, &c.Status,
		&c.TotalContacts, &c.TotalSent, &c.TotalDelivered, &c.TotalFailed, &c.TotalPending,
		&c.ErrorLog, &c.StartedAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
        INSERT INTO campaigns (name, description, message_template, sender_id, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	return r.DB.QueryRow(query, c.Name, c.Description, c.MessageTemplate, c.SenderID, c.Status, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	countQuery := `SELECT COUNT(*) FROM campaigns`
	argsCount := []interface{}{}
	if status != "" {
		countQuery += ` WHERE status=$1`
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// ClaimForDispatch is a conditional update so two orchestrators racing on the
// same campaign cannot both win; check-then-set would not be atomic.
func (r *CampaignRepository) ClaimForDispatch(campaignID int) (bool, error) {
	query := `
        UPDATE campaigns SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status NOT IN ($3, $4)
    `
	res, err := r.DB.Exec(query, model.CampaignProcessing, campaignID,
		model.CampaignProcessing, model.CampaignInProgress)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, status, campaignID)
	return err
}

func (r *CampaignRepository) MarkInProgress(campaignID int) error {
	query := `UPDATE campaigns SET status=$1, started_at=NOW(), updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, model.CampaignInProgress, campaignID)
	return err
}

func (r *CampaignRepository) MarkFailed(campaignID int, errorLog string) error {
	query := `UPDATE campaigns SET status=$1, error_log=$2, updated_at=NOW() WHERE id=$3`
	_, err := r.DB.Exec(query, model.CampaignFailed, errorLog, campaignID)
	return err
}

func (r *CampaignRepository) SetTotalContacts(campaignID, total int) error {
	query := `UPDATE campaigns SET total_contacts=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, total, campaignID)
	return err
}

func (r *CampaignRepository) UpdateCounters(campaignID, sent, delivered, failed, pending int) error {
	query := `
        UPDATE campaigns
        SET total_sent=$1, total_delivered=$2, total_failed=$3, total_pending=$4, updated_at=NOW()
        WHERE id=$5
    `
	_, err := r.DB.Exec(query, sent, delivered, failed, pending, campaignID)
	return err
}

func (r *CampaignRepository) CompleteIfInProgress(campaignID int) (bool, error) {
	query := `
        UPDATE campaigns SET status=$1, completed_at=NOW(), updated_at=NOW()
        WHERE id=$2 AND status=$3
    `
	res, err := r.DB.Exec(query, model.CampaignCompleted, campaignID, model.CampaignInProgress)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
