// internal/queue/queue.go
package queue

import (
	"fmt"
	"sync"
	"time"
)

// Topics consumed by the worker process.
const (
	TopicDispatch = "campaign.dispatch"
	TopicSend     = "message.send"
	TopicStats    = "campaign.stats"
)

// Job carries a task identifier (the topic) and minimal arguments: a send
// job names a message, a dispatch job names a campaign and its batch
// parameters, a stats job names a campaign.
type Job struct {
	CampaignID         int `json:"campaign_id,omitempty"`
	MessageID          int `json:"message_id,omitempty"`
	BatchSize          int `json:"batch_size,omitempty"`
	RateLimitPerMinute int `json:"rate_limit_per_minute,omitempty"`
}

// Queue is the durable, at-least-once work queue the orchestrator publishes
// to and workers consume from. Delay is used for backoff re-enqueue and for
// pacing the next dispatch batch.
type Queue interface {
	Publish(topic string, job Job) error
	PublishWithDelay(topic string, job Job, delay time.Duration) error
	Subscribe(topic string, handler func(job Job) error) error
}

// InMemoryQueue runs handlers in goroutines within the same process. Used in
// tests and single-process deployments; production uses the AMQP queue.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(job Job) error
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(job Job) error),
	}
}

func (q *InMemoryQueue) Publish(topic string, job Job) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		h := handler
		go func() {
			_ = h(job)
		}()
	}
	return nil
}

func (q *InMemoryQueue) PublishWithDelay(topic string, job Job, delay time.Duration) error {
	if delay <= 0 {
		return q.Publish(topic, job)
	}
	time.AfterFunc(delay, func() {
		_ = q.Publish(topic, job)
	})
	return nil
}

func (q *InMemoryQueue) Subscribe(topic string, handler func(job Job) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}
