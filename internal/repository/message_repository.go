// internal/repository/message_repository.go
package repository

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/timothysaatum/bulk-sms/internal/model"
)

// MessageRepositoryInterface is the message store surface of the engine.
// Messages are permanent audit records; nothing here deletes them.
type MessageRepositoryInterface interface {
	Create(msg *model.Message) error
	GetByID(id int) (*model.Message, error)
	ListByCampaign(campaignID int, status string, offset, limit int) ([]*model.Message, int, error)

	// PendingIDs returns up to limit PENDING message ids of the campaign in
	// stable order; MarkQueued takes them off the pending set so the next
	// dispatch batch starts after them.
	PendingIDs(campaignID, limit int) ([]int, error)
	MarkQueued(ids []int) error

	MarkSending(id int) error
	MarkSent(id int, rawResponse string) error
	// MarkFailed increments retry_count and returns the new count.
	MarkFailed(id int, errorMessage, rawResponse string) (int, error)
	MarkInvalid(id int, validationError string) error
	// MarkDelivered applies the external delivery receipt; only SENT messages
	// transition.
	MarkDelivered(id int) error

	// ResetFailedForRetry flips FAILED messages below the retry cap back to
	// PENDING, clearing error text but preserving retry_count, and returns
	// their ids.
	ResetFailedForRetry(campaignID, maxAttempts int) ([]int, error)
	CountByStatus(campaignID int) (map[model.MessageStatus]int, error)
}

type MessageRepository struct {
	DB *sql.DB
}

const messageColumns = `id, campaign_id, contact_id, message_text, sender_id, status,
        COALESCE(api_response, ''), COALESCE(error_message, ''), retry_count,
        queued_at, sent_at, delivered_at, failed_at, created_at, updated_at`

func scanMessage(row interface{ Scan(...any) error }) (*model.Message, error) {
	var m model.Message
	err := row.Scan(
		&m.ID, &m.CampaignID, &m.ContactID, &m.MessageText, &m.SenderID, &m.Status,
		&m.APIResponse, &m.ErrorMessage, &m.RetryCount,
		&m.QueuedAt, &m.SentAt, &m.DeliveredAt, &m.FailedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a fresh PENDING message. The unique constraint on
// contact_id enforces one message per contact; a conflicting insert is
// dropped so concurrent materialization stays idempotent.
func (r *MessageRepository) Create(msg *model.Message) error {
	if msg.Status == "" {
		msg.Status = model.MessagePending
	}
	query := `
        INSERT INTO messages (campaign_id, contact_id, message_text, sender_id, status, retry_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, 0, NOW(), NOW())
        ON CONFLICT (contact_id) DO NOTHING
        RETURNING id, created_at, updated_at
    `
	err := r.DB.QueryRow(query, msg.CampaignID, msg.ContactID, msg.MessageText,
		msg.SenderID, msg.Status).Scan(&msg.ID, &msg.CreatedAt, &msg.UpdatedAt)
	if err == sql.ErrNoRows {
		// Another orchestrator run got there first.
		return nil
	}
	return err
}

func (r *MessageRepository) GetByID(id int) (*model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id=$1`
	m, err := scanMessage(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *MessageRepository) ListByCampaign(campaignID int, status string, offset, limit int) ([]*model.Message, int, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE campaign_id=$1`
	countQuery := `SELECT COUNT(*) FROM messages WHERE campaign_id=$1`
	args := []interface{}{campaignID}
	countArgs := []interface{}{campaignID}

	if status != "" {
		query += ` AND status=$2`
		countQuery += ` AND status=$2`
		args = append(args, status)
		countArgs = append(countArgs, status)
	}
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := []*model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, m)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *MessageRepository) PendingIDs(campaignID, limit int) ([]int, error) {
	query := `
        SELECT id FROM messages
        WHERE campaign_id=$1 AND status=$2
        ORDER BY id
        LIMIT $3
    `
	rows, err := r.DB.Query(query, campaignID, model.MessagePending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MessageRepository) MarkQueued(ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE messages SET status=$1, queued_at=NOW(), updated_at=NOW() WHERE id = ANY($2) AND status=$3`
	_, err := r.DB.Exec(query, model.MessageQueued, pq.Array(ids), model.MessagePending)
	return err
}

func (r *MessageRepository) MarkSending(id int) error {
	query := `UPDATE messages SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, model.MessageSending, id)
	return err
}

func (r *MessageRepository) MarkSent(id int, rawResponse string) error {
	query := `
        UPDATE messages
        SET status=$1, api_response=$2, error_message=NULL, sent_at=NOW(), updated_at=NOW()
        WHERE id=$3
    `
	_, err := r.DB.Exec(query, model.MessageSent, rawResponse, id)
	return err
}

func (r *MessageRepository) MarkFailed(id int, errorMessage, rawResponse string) (int, error) {
	query := `
        UPDATE messages
        SET status=$1, error_message=$2, api_response=$3,
            retry_count=retry_count+1, failed_at=NOW(), updated_at=NOW()
        WHERE id=$4
        RETURNING retry_count
    `
	var retryCount int
	err := r.DB.QueryRow(query, model.MessageFailed, errorMessage, rawResponse, id).Scan(&retryCount)
	return retryCount, err
}

func (r *MessageRepository) MarkInvalid(id int, validationError string) error {
	query := `
        UPDATE messages
        SET status=$1, error_message=$2, failed_at=NOW(), updated_at=NOW()
        WHERE id=$3
    `
	_, err := r.DB.Exec(query, model.MessageInvalidNumber, validationError, id)
	return err
}

func (r *MessageRepository) MarkDelivered(id int) error {
	query := `
        UPDATE messages
        SET status=$1, delivered_at=NOW(), updated_at=NOW()
        WHERE id=$2 AND status=$3
    `
	_, err := r.DB.Exec(query, model.MessageDelivered, id, model.MessageSent)
	return err
}

func (r *MessageRepository) ResetFailedForRetry(campaignID, maxAttempts int) ([]int, error) {
	query := `
        UPDATE messages
        SET status=$1, error_message=NULL, updated_at=NOW()
        WHERE campaign_id=$2 AND status=$3 AND retry_count < $4
        RETURNING id
    `
	rows, err := r.DB.Query(query, model.MessagePending, campaignID, model.MessageFailed, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MessageRepository) CountByStatus(campaignID int) (map[model.MessageStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM messages WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[model.MessageStatus]int{}
	for rows.Next() {
		var status model.MessageStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
