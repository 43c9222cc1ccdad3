// internal/queue/amqp.go
package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/streadway/amqp"
)

// AMQPQueue is the RabbitMQ-backed queue. Delivery is at-least-once: a
// consumer crash between ack points redelivers the job, so handlers must be
// idempotent or guard on persisted state.
//
// Delayed publish uses the standard TTL + dead-letter pattern: delayed jobs
// go to "<topic>.delay", which has no consumers and dead-letters expired
// messages back onto the work queue.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPQueue(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &AMQPQueue{conn: conn, ch: ch}, nil
}

func (q *AMQPQueue) Close() {
	q.ch.Close()
	q.conn.Close()
}

func (q *AMQPQueue) declareTopic(topic string) error {
	if _, err := q.ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
		return err
	}
	_, err := q.ch.QueueDeclare(topic+".delay", true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": topic,
	})
	return err
}

func (q *AMQPQueue) Publish(topic string, job Job) error {
	if err := q.declareTopic(topic); err != nil {
		return err
	}
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (q *AMQPQueue) PublishWithDelay(topic string, job Job, delay time.Duration) error {
	if delay <= 0 {
		return q.Publish(topic, job)
	}
	if err := q.declareTopic(topic); err != nil {
		return err
	}
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.ch.Publish("", topic+".delay", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Expiration:   fmt.Sprintf("%d", delay.Milliseconds()),
		Body:         body,
	})
}

// Subscribe consumes a topic with manual acks. A handler error on first
// delivery nacks the job back onto the queue once; a redelivered job that
// fails again is dropped, since the engine's own retry policy (not broker
// redelivery) owns re-attempts.
func (q *AMQPQueue) Subscribe(topic string, handler func(job Job) error) error {
	if err := q.declareTopic(topic); err != nil {
		return err
	}
	deliveries, err := q.ch.Consume(topic, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for d := range deliveries {
			var job Job
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Println("⚠️ Invalid job on", topic, ":", err)
				d.Ack(false)
				continue
			}

			if err := handler(job); err != nil {
				log.Printf("⚠️ Job failed on %s: %+v, error: %v\n", topic, job, err)
				if !d.Redelivered {
					d.Nack(false, true)
					continue
				}
			}
			d.Ack(false)
		}
	}()
	return nil
}
