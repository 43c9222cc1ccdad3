// internal/model/message.go
package model

import "time"

// MessageStatus is the delivery state of one outbound message.
type MessageStatus string

const (
	MessagePending       MessageStatus = "pending"
	MessageQueued        MessageStatus = "queued"
	MessageSending       MessageStatus = "sending"
	MessageSent          MessageStatus = "sent"
	MessageDelivered     MessageStatus = "delivered"
	MessageFailed        MessageStatus = "failed"
	MessageInvalidNumber MessageStatus = "invalid_number"
)

// IsTerminal reports whether the send worker must not touch the message
// again. FAILED is only terminal once the retry budget is exhausted, so it
// is handled separately at the transition site.
func (s MessageStatus) IsTerminal() bool {
	switch s {
	case MessageSent, MessageDelivered, MessageInvalidNumber:
		return true
	case MessagePending, MessageQueued, MessageSending, MessageFailed:
		return false
	}
	return false
}

// Message is the single per-contact unit of delivery work and its permanent
// audit record. One message per contact, enforced by a unique constraint.
type Message struct {
	ID          int           `db:"id" json:"id"`
	CampaignID  int           `db:"campaign_id" json:"campaign_id"`
	ContactID   int           `db:"contact_id" json:"contact_id"`
	MessageText string        `db:"message_text" json:"message_text"`
	SenderID    string        `db:"sender_id" json:"sender_id"`
	Status      MessageStatus `db:"status" json:"status"`

	APIResponse  string `db:"api_response" json:"api_response,omitempty"`
	ErrorMessage string `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int    `db:"retry_count" json:"retry_count"`

	QueuedAt    *time.Time `db:"queued_at" json:"queued_at,omitempty"`
	SentAt      *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	FailedAt    *time.Time `db:"failed_at" json:"failed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
