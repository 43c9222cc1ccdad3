// internal/service/send_worker.go
package service

import (
	"context"
	"log"
	"time"

	"github.com/timothysaatum/bulk-sms/internal/gateway"
	"github.com/timothysaatum/bulk-sms/internal/model"
	"github.com/timothysaatum/bulk-sms/internal/queue"
	"github.com/timothysaatum/bulk-sms/internal/repository"
)

// Decision is the send worker's explicit verdict on what the queue layer
// should do next with the job. Delivery policy lives here; the requeue
// mechanics live with the queue consumer.
type Decision struct {
	Requeue bool
	Delay   time.Duration
}

// SendWorker processes exactly one message per job: eligibility check,
// gateway call, retry/backoff policy, state recording. Failures local to one
// message never abort anything beyond that message.
type SendWorker struct {
	MessageRepo repository.MessageRepositoryInterface
	ContactRepo repository.ContactRepositoryInterface
	Gateway     gateway.Sender
	Queue       queue.Queue
	MaxAttempts int
	BaseDelay   time.Duration
}

// Process runs the per-message state machine:
// PENDING → SENDING → {SENT, FAILED, INVALID_NUMBER}, with FAILED looping
// back through PENDING on retry until the cap.
func (w *SendWorker) Process(ctx context.Context, messageID int) (Decision, error) {
	msg, err := w.MessageRepo.GetByID(messageID)
	if err != nil {
		return Decision{}, err
	}
	if msg == nil {
		// The referenced row should never disappear; drop the job.
		log.Println("⚠️ Message not found, dropping job:", messageID)
		return Decision{}, nil
	}

	// The queue is at-least-once; a redelivered job for a message that
	// already reached a terminal state must not send again.
	switch msg.Status {
	case model.MessageSent, model.MessageDelivered, model.MessageInvalidNumber:
		log.Printf("Message %d already %s, skipping\n", messageID, msg.Status)
		return Decision{}, nil
	case model.MessageFailed:
		if msg.RetryCount >= w.MaxAttempts {
			log.Printf("Message %d failed at retry cap, skipping\n", messageID)
			return Decision{}, nil
		}
	case model.MessagePending, model.MessageQueued, model.MessageSending:
	}

	contact, err := w.ContactRepo.GetByID(msg.ContactID)
	if err != nil {
		return Decision{}, err
	}
	if contact == nil {
		log.Println("⚠️ Contact not found for message, dropping job:", messageID)
		return Decision{}, nil
	}

	// Invalid recipients are terminal before any gateway call.
	if !contact.IsValid {
		if err := w.MessageRepo.MarkInvalid(msg.ID, contact.ValidationError); err != nil {
			return Decision{}, err
		}
		w.triggerStats(msg.CampaignID)
		return Decision{}, nil
	}

	// Persist SENDING before the call so a crash after this point is
	// observable as "was attempted".
	if err := w.MessageRepo.MarkSending(msg.ID); err != nil {
		return Decision{}, err
	}

	log.Printf("📨 Sending message %d to %s\n", msg.ID, contact.PhoneNumber)
	result := w.Gateway.Send(ctx, contact.PhoneNumber, msg.SenderID, msg.MessageText, msg.ID)

	switch result.Outcome {
	case gateway.OutcomeSuccess:
		if err := w.MessageRepo.MarkSent(msg.ID, result.RawResponse); err != nil {
			return Decision{}, err
		}
		log.Printf("✅ Message %d sent to %s\n", msg.ID, contact.PhoneNumber)
		w.triggerStats(msg.CampaignID)
		return Decision{}, nil

	case gateway.OutcomePermanent:
		if _, err := w.MessageRepo.MarkFailed(msg.ID, result.ErrorText, result.RawResponse); err != nil {
			return Decision{}, err
		}
		log.Printf("⚠️ Message %d permanently failed: %s\n", msg.ID, result.ErrorText)
		w.triggerStats(msg.CampaignID)
		return Decision{}, nil

	case gateway.OutcomeTransient:
	}

	attempt := msg.RetryCount
	retryCount, err := w.MessageRepo.MarkFailed(msg.ID, result.ErrorText, result.RawResponse)
	if err != nil {
		return Decision{}, err
	}
	log.Printf("⚠️ Message %d failed (attempt %d/%d): %s\n", msg.ID, retryCount, w.MaxAttempts, result.ErrorText)
	w.triggerStats(msg.CampaignID)

	if retryCount >= w.MaxAttempts {
		return Decision{}, nil
	}
	return Decision{Requeue: true, Delay: w.backoff(attempt)}, nil
}

// backoff doubles per attempt: baseDelay * 2^attempt, so 5s, 10s, 20s for
// attempts 0, 1, 2 with a 5s base.
func (w *SendWorker) backoff(attempt int) time.Duration {
	return w.BaseDelay * time.Duration(1<<attempt)
}

// triggerStats fires the aggregator pass after every terminal write. Eventual
// consistency is fine; a lost event only delays the counters until the next
// terminal transition.
func (w *SendWorker) triggerStats(campaignID int) {
	if err := w.Queue.Publish(queue.TopicStats, queue.Job{CampaignID: campaignID}); err != nil {
		log.Println("⚠️ Failed to trigger stats for campaign", campaignID, ":", err)
	}
}
