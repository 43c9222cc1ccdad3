// internal/service/subscriber.go
package service

import (
	"context"

	"github.com/timothysaatum/bulk-sms/internal/queue"
)

// RegisterWorkerHandlers wires the three worker topics onto the engine. The
// send handler is where the worker's Decision is acted on: the queue layer
// performs the delayed re-enqueue, the worker only decides.
func RegisterWorkerHandlers(q queue.Queue, dispatch *DispatchService, worker *SendWorker, stats *StatsService) error {
	if err := q.Subscribe(queue.TopicDispatch, dispatch.DispatchBatch); err != nil {
		return err
	}

	if err := q.Subscribe(queue.TopicSend, func(job queue.Job) error {
		decision, err := worker.Process(context.Background(), job.MessageID)
		if err != nil {
			return err
		}
		if decision.Requeue {
			return q.PublishWithDelay(queue.TopicSend, job, decision.Delay)
		}
		return nil
	}); err != nil {
		return err
	}

	return q.Subscribe(queue.TopicStats, func(job queue.Job) error {
		return stats.Recompute(job.CampaignID)
	})
}
