// internal/service/stats_service.go
package service

import (
	"log"

	appErrors "github.com/timothysaatum/bulk-sms/internal/errors"
	"github.com/timothysaatum/bulk-sms/internal/model"
	"github.com/timothysaatum/bulk-sms/internal/repository"
)

// StatsService reconciles per-message outcomes into campaign-level counters.
// It only reads messages; it never mutates them.
type StatsService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	MessageRepo  repository.MessageRepositoryInterface
}

// Recompute overwrites the campaign counters from a fresh aggregate of
// message statuses and finalizes the campaign once nothing is in flight.
// The pending bucket includes queued and sending messages so that
// sent + failed + pending always equals the campaign's message count.
func (s *StatsService) Recompute(campaignID int) error {
	counts, err := s.MessageRepo.CountByStatus(campaignID)
	if err != nil {
		return err
	}

	sent := counts[model.MessageSent] + counts[model.MessageDelivered]
	delivered := counts[model.MessageDelivered]
	failed := counts[model.MessageFailed] + counts[model.MessageInvalidNumber]
	pending := counts[model.MessagePending] + counts[model.MessageQueued] + counts[model.MessageSending]

	if err := s.CampaignRepo.UpdateCounters(campaignID, sent, delivered, failed, pending); err != nil {
		return err
	}

	if pending == 0 {
		completed, err := s.CampaignRepo.CompleteIfInProgress(campaignID)
		if err != nil {
			return err
		}
		if completed {
			log.Printf("🏁 Campaign %d completed: %d sent, %d failed\n", campaignID, sent, failed)
		}
	}
	return nil
}

// RecordDelivery applies a provider delivery receipt. Receipts are only
// meaningful for SENT messages; anything else is ignored, since receipts can
// arrive late, duplicated or out of order.
func (s *StatsService) RecordDelivery(messageID int) error {
	msg, err := s.MessageRepo.GetByID(messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return appErrors.NewMessageNotFound(messageID)
	}
	if msg.Status != model.MessageSent {
		return nil
	}
	if err := s.MessageRepo.MarkDelivered(messageID); err != nil {
		return err
	}
	return s.Recompute(msg.CampaignID)
}
