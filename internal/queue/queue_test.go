package queue

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryPublishSubscribe(t *testing.T) {
	q := NewInMemoryQueue()

	var wg sync.WaitGroup
	wg.Add(1)
	var got Job
	err := q.Subscribe(TopicSend, func(job Job) error {
		got = job
		wg.Done()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := q.Publish(TopicSend, Job{CampaignID: 1, MessageID: 42}); err != nil {
		t.Fatal(err)
	}
	wg.Wait()

	if got.MessageID != 42 || got.CampaignID != 1 {
		t.Errorf("unexpected job: %+v", got)
	}
}

func TestInMemoryPublishWithoutSubscriber(t *testing.T) {
	q := NewInMemoryQueue()
	if err := q.Publish(TopicStats, Job{CampaignID: 1}); err == nil {
		t.Error("expected error for topic without subscribers")
	}
}

func TestInMemoryDelayedPublish(t *testing.T) {
	q := NewInMemoryQueue()

	delivered := make(chan time.Time, 1)
	if err := q.Subscribe(TopicDispatch, func(job Job) error {
		delivered <- time.Now()
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := q.PublishWithDelay(TopicDispatch, Job{CampaignID: 1}, 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	select {
	case at := <-delivered:
		if elapsed := at.Sub(start); elapsed < 50*time.Millisecond {
			t.Errorf("job delivered too early, after %v", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delayed job never delivered")
	}
}

func TestInMemoryZeroDelayDeliversImmediately(t *testing.T) {
	q := NewInMemoryQueue()

	var wg sync.WaitGroup
	wg.Add(1)
	if err := q.Subscribe(TopicSend, func(job Job) error {
		wg.Done()
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := q.PublishWithDelay(TopicSend, Job{MessageID: 1}, 0); err != nil {
		t.Fatal(err)
	}
	wg.Wait()
}
