// internal/service/dispatch_service.go
package service

import (
	"fmt"
	"log"
	"time"

	appErrors "github.com/timothysaatum/bulk-sms/internal/errors"
	"github.com/timothysaatum/bulk-sms/internal/model"
	"github.com/timothysaatum/bulk-sms/internal/queue"
	"github.com/timothysaatum/bulk-sms/internal/repository"
)

// DispatchService turns a campaign into a bounded stream of send jobs, paced
// against the provider rate limit. It owns the campaign lifecycle during
// execution; individual send failures never escalate here.
type DispatchService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	MessageRepo  repository.MessageRepositoryInterface
	Queue        queue.Queue
	MaxAttempts  int
}

type ExecutionSummary struct {
	CampaignID       int     `json:"campaign_id"`
	MessagesQueued   int     `json:"messages_queued"`
	EstimatedMinutes float64 `json:"estimated_duration_minutes"`
}

// Execute claims the campaign, materializes one message per eligible contact
// and kicks off the paced dispatch chain. Re-invoking on a partially executed
// campaign is idempotent: contacts that already own a message are skipped.
func (s *DispatchService) Execute(campaignID, batchSize, rateLimitPerMinute int) (*ExecutionSummary, error) {
	if batchSize < 1 {
		batchSize = 1
	}
	if rateLimitPerMinute < 1 {
		rateLimitPerMinute = 1
	}

	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status.IsActive() {
		return nil, appErrors.NewCampaignAlreadyRunning(campaignID)
	}

	// Conditional claim; a concurrent Execute on the same campaign loses here
	// even though both passed the status read above.
	claimed, err := s.CampaignRepo.ClaimForDispatch(campaignID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, appErrors.NewCampaignAlreadyRunning(campaignID)
	}

	created, err := s.materializeMessages(campaign)
	if err != nil {
		// Orchestration failure is the only path to a FAILED campaign.
		s.failCampaign(campaignID, err)
		return nil, err
	}

	counts, err := s.MessageRepo.CountByStatus(campaignID)
	if err != nil {
		s.failCampaign(campaignID, err)
		return nil, err
	}
	pending := counts[model.MessagePending]

	if pending == 0 {
		// Nothing to send; give the claim back so the campaign status is
		// unchanged for the caller.
		if revertErr := s.CampaignRepo.UpdateStatus(campaignID, campaign.Status); revertErr != nil {
			log.Println("⚠️ Failed to revert campaign status:", revertErr)
		}
		return nil, appErrors.NewNoEligibleContacts(campaignID)
	}

	// Any failure past the claim must not strand the campaign in an active
	// status: re-Execute would be rejected as AlreadyRunning forever.
	if err := s.CampaignRepo.MarkInProgress(campaignID); err != nil {
		s.failCampaign(campaignID, err)
		return nil, err
	}

	log.Printf("🚀 Campaign %d: %d created, %d pending, dispatching in batches of %d\n",
		campaignID, created, pending, batchSize)

	if err := s.Queue.Publish(queue.TopicDispatch, queue.Job{
		CampaignID:         campaignID,
		BatchSize:          batchSize,
		RateLimitPerMinute: rateLimitPerMinute,
	}); err != nil {
		s.failCampaign(campaignID, err)
		return nil, err
	}

	return &ExecutionSummary{
		CampaignID:       campaignID,
		MessagesQueued:   pending,
		EstimatedMinutes: float64(pending) / float64(rateLimitPerMinute),
	}, nil
}

// failCampaign records an orchestration failure as a FAILED campaign with an
// error log entry.
func (s *DispatchService) failCampaign(campaignID int, cause error) {
	errLog := fmt.Sprintf(`{"error":%q,"timestamp":%q}`, cause.Error(), time.Now().UTC().Format(time.RFC3339))
	if markErr := s.CampaignRepo.MarkFailed(campaignID, errLog); markErr != nil {
		log.Println("⚠️ Failed to mark campaign failed:", markErr)
	}
}

// materializeMessages creates one PENDING message per valid contact that does
// not already own one, with the template rendered once.
func (s *DispatchService) materializeMessages(campaign *model.Campaign) (int, error) {
	contacts, err := s.ContactRepo.ListEligible(campaign.ID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, contact := range contacts {
		msg := &model.Message{
			CampaignID:  campaign.ID,
			ContactID:   contact.ID,
			MessageText: RenderForContact(campaign.MessageTemplate, contact),
			SenderID:    campaign.SenderID,
			Status:      model.MessagePending,
		}
		if err := s.MessageRepo.Create(msg); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// DispatchBatch enqueues one batch of send jobs, then schedules itself with
// the pacing delay if more pending work remains. The delay lives in the
// queue, not in a blocking sleep, so no execution slot is held idle between
// batches.
func (s *DispatchService) DispatchBatch(job queue.Job) error {
	// Fetch one beyond the batch so a batch that drains the campaign exactly
	// schedules no follow-up.
	ids, err := s.MessageRepo.PendingIDs(job.CampaignID, job.BatchSize+1)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	more := len(ids) > job.BatchSize
	if more {
		ids = ids[:job.BatchSize]
	}

	if err := s.MessageRepo.MarkQueued(ids); err != nil {
		return err
	}

	for _, id := range ids {
		if err := s.Queue.Publish(queue.TopicSend, queue.Job{CampaignID: job.CampaignID, MessageID: id}); err != nil {
			log.Println("⚠️ Failed to enqueue message ID", id, ":", err)
		}
	}

	log.Printf("📤 Campaign %d: enqueued batch of %d messages\n", job.CampaignID, len(ids))

	if more {
		return s.Queue.PublishWithDelay(queue.TopicDispatch, job, PacingDelay(job.BatchSize, job.RateLimitPerMinute))
	}
	return nil
}

// PacingDelay bounds the enqueue rate to the provider's per-minute budget:
// (batchSize / rateLimitPerMinute) * 60 seconds between batches.
func PacingDelay(batchSize, rateLimitPerMinute int) time.Duration {
	if rateLimitPerMinute < 1 {
		rateLimitPerMinute = 1
	}
	return time.Duration(float64(batchSize) / float64(rateLimitPerMinute) * 60 * float64(time.Second))
}

// RetryFailed re-enqueues every FAILED message still under the retry cap,
// resetting it to PENDING but keeping its retry count. No-op when none
// qualify.
func (s *DispatchService) RetryFailed(campaignID int) (int, error) {
	if _, err := s.CampaignRepo.GetByID(campaignID); err != nil {
		return 0, err
	}

	ids, err := s.MessageRepo.ResetFailedForRetry(campaignID, s.MaxAttempts)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := s.Queue.Publish(queue.TopicSend, queue.Job{CampaignID: campaignID, MessageID: id}); err != nil {
			log.Println("⚠️ Failed to enqueue retry for message ID", id, ":", err)
		}
	}

	if len(ids) > 0 {
		log.Printf("🔁 Campaign %d: re-enqueued %d failed messages\n", campaignID, len(ids))
	}
	return len(ids), nil
}
