package service_test

import (
	"sync"
	"time"

	appErrors "github.com/timothysaatum/bulk-sms/internal/errors"
	"github.com/timothysaatum/bulk-sms/internal/model"
	"github.com/timothysaatum/bulk-sms/internal/queue"
)

// In-memory fakes shared by the service tests. They implement the repository
// interfaces over maps so the tests can assert on real state transitions.

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int]*model.Campaign
	nextID    int
}

func newFakeCampaignRepo(campaigns ...*model.Campaign) *fakeCampaignRepo {
	r := &fakeCampaignRepo{campaigns: map[int]*model.Campaign{}, nextID: 1}
	for _, c := range campaigns {
		if c.ID == 0 {
			c.ID = r.nextID
		}
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
		r.campaigns[c.ID] = c
	}
	return r
}

func (r *fakeCampaignRepo) Create(c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.nextID
	r.nextID++
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	r.campaigns[c.ID] = c
	return nil
}

func (r *fakeCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCampaignRepo) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []*model.Campaign{}
	for _, c := range r.campaigns {
		if status == "" || string(c.Status) == status {
			copied := *c
			all = append(all, &copied)
		}
	}
	total := len(all)
	if offset >= len(all) {
		return []*model.Campaign{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakeCampaignRepo) ClaimForDispatch(campaignID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok {
		return false, nil
	}
	if c.Status.IsActive() {
		return false, nil
	}
	c.Status = model.CampaignProcessing
	return true, nil
}

func (r *fakeCampaignRepo) UpdateStatus(campaignID int, status model.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[campaignID]; ok {
		c.Status = status
	}
	return nil
}

func (r *fakeCampaignRepo) MarkInProgress(campaignID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[campaignID]; ok {
		c.Status = model.CampaignInProgress
		now := time.Now()
		c.StartedAt = &now
	}
	return nil
}

func (r *fakeCampaignRepo) MarkFailed(campaignID int, errorLog string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[campaignID]; ok {
		c.Status = model.CampaignFailed
		c.ErrorLog = errorLog
	}
	return nil
}

func (r *fakeCampaignRepo) SetTotalContacts(campaignID, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[campaignID]; ok {
		c.TotalContacts = total
	}
	return nil
}

func (r *fakeCampaignRepo) UpdateCounters(campaignID, sent, delivered, failed, pending int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[campaignID]; ok {
		c.TotalSent = sent
		c.TotalDelivered = delivered
		c.TotalFailed = failed
		c.TotalPending = pending
	}
	return nil
}

func (r *fakeCampaignRepo) CompleteIfInProgress(campaignID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok || c.Status != model.CampaignInProgress {
		return false, nil
	}
	c.Status = model.CampaignCompleted
	now := time.Now()
	c.CompletedAt = &now
	return true, nil
}

type fakeContactRepo struct {
	mu       sync.Mutex
	contacts map[int]*model.Contact
	messages *fakeMessageRepo
	nextID   int
}

func newFakeContactRepo(messages *fakeMessageRepo, contacts ...*model.Contact) *fakeContactRepo {
	r := &fakeContactRepo{contacts: map[int]*model.Contact{}, messages: messages, nextID: 1}
	for _, c := range contacts {
		if c.ID == 0 {
			c.ID = r.nextID
		}
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
		r.contacts[c.ID] = c
	}
	return r
}

func (r *fakeContactRepo) Create(c *model.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.nextID
	r.nextID++
	c.CreatedAt = time.Now()
	r.contacts[c.ID] = c
	return nil
}

func (r *fakeContactRepo) GetByID(id int) (*model.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (r *fakeContactRepo) ListEligible(campaignID int) ([]model.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eligible := []model.Contact{}
	for id := 1; id < r.nextID; id++ {
		c, ok := r.contacts[id]
		if !ok || c.CampaignID != campaignID || !c.IsValid {
			continue
		}
		if r.messages != nil && r.messages.hasMessageForContact(c.ID) {
			continue
		}
		eligible = append(eligible, *c)
	}
	return eligible, nil
}

func (r *fakeContactRepo) CountByCampaign(campaignID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, c := range r.contacts {
		if c.CampaignID == campaignID {
			count++
		}
	}
	return count, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[int]*model.Message
	nextID   int
}

func newFakeMessageRepo(messages ...*model.Message) *fakeMessageRepo {
	r := &fakeMessageRepo{messages: map[int]*model.Message{}, nextID: 1}
	for _, m := range messages {
		if m.ID == 0 {
			m.ID = r.nextID
		}
		if m.ID >= r.nextID {
			r.nextID = m.ID + 1
		}
		r.messages[m.ID] = m
	}
	return r
}

func (r *fakeMessageRepo) hasMessageForContact(contactID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contactHasMessage(contactID)
}

func (r *fakeMessageRepo) contactHasMessage(contactID int) bool {
	for _, m := range r.messages {
		if m.ContactID == contactID {
			return true
		}
	}
	return false
}

func (r *fakeMessageRepo) Create(msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.contactHasMessage(msg.ContactID) {
		return nil // one message per contact
	}
	msg.ID = r.nextID
	r.nextID++
	if msg.Status == "" {
		msg.Status = model.MessagePending
	}
	msg.CreatedAt = time.Now()
	msg.UpdatedAt = msg.CreatedAt
	r.messages[msg.ID] = msg
	return nil
}

func (r *fakeMessageRepo) GetByID(id int) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMessageRepo) ListByCampaign(campaignID int, status string, offset, limit int) ([]*model.Message, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []*model.Message{}
	for id := 1; id < r.nextID; id++ {
		m, ok := r.messages[id]
		if !ok || m.CampaignID != campaignID {
			continue
		}
		if status != "" && string(m.Status) != status {
			continue
		}
		copied := *m
		all = append(all, &copied)
	}
	total := len(all)
	if offset >= len(all) {
		return []*model.Message{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakeMessageRepo) PendingIDs(campaignID, limit int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := []int{}
	for id := 1; id < r.nextID; id++ {
		m, ok := r.messages[id]
		if !ok || m.CampaignID != campaignID || m.Status != model.MessagePending {
			continue
		}
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (r *fakeMessageRepo) MarkQueued(ids []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if m, ok := r.messages[id]; ok && m.Status == model.MessagePending {
			m.Status = model.MessageQueued
			now := time.Now()
			m.QueuedAt = &now
		}
	}
	return nil
}

func (r *fakeMessageRepo) MarkSending(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.messages[id]; ok {
		m.Status = model.MessageSending
	}
	return nil
}

func (r *fakeMessageRepo) MarkSent(id int, rawResponse string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.messages[id]; ok {
		m.Status = model.MessageSent
		m.APIResponse = rawResponse
		m.ErrorMessage = ""
		now := time.Now()
		m.SentAt = &now
	}
	return nil
}

func (r *fakeMessageRepo) MarkFailed(id int, errorMessage, rawResponse string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return 0, nil
	}
	m.Status = model.MessageFailed
	m.ErrorMessage = errorMessage
	m.APIResponse = rawResponse
	m.RetryCount++
	now := time.Now()
	m.FailedAt = &now
	return m.RetryCount, nil
}

func (r *fakeMessageRepo) MarkInvalid(id int, validationError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.messages[id]; ok {
		m.Status = model.MessageInvalidNumber
		m.ErrorMessage = validationError
		now := time.Now()
		m.FailedAt = &now
	}
	return nil
}

func (r *fakeMessageRepo) MarkDelivered(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.messages[id]; ok && m.Status == model.MessageSent {
		m.Status = model.MessageDelivered
		now := time.Now()
		m.DeliveredAt = &now
	}
	return nil
}

func (r *fakeMessageRepo) ResetFailedForRetry(campaignID, maxAttempts int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := []int{}
	for id := 1; id < r.nextID; id++ {
		m, ok := r.messages[id]
		if !ok || m.CampaignID != campaignID || m.Status != model.MessageFailed {
			continue
		}
		if m.RetryCount >= maxAttempts {
			continue
		}
		m.Status = model.MessagePending
		m.ErrorMessage = ""
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeMessageRepo) CountByStatus(campaignID int) (map[model.MessageStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[model.MessageStatus]int{}
	for _, m := range r.messages {
		if m.CampaignID == campaignID {
			counts[m.Status]++
		}
	}
	return counts, nil
}

// captureQueue records publishes without running any handlers, so tests can
// assert on topics, payloads and pacing delays.
type capturedJob struct {
	Topic string
	Job   queue.Job
	Delay time.Duration
}

type captureQueue struct {
	mu   sync.Mutex
	jobs []capturedJob
}

func (q *captureQueue) Publish(topic string, job queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, capturedJob{Topic: topic, Job: job})
	return nil
}

func (q *captureQueue) PublishWithDelay(topic string, job queue.Job, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, capturedJob{Topic: topic, Job: job, Delay: delay})
	return nil
}

func (q *captureQueue) Subscribe(topic string, handler func(job queue.Job) error) error {
	return nil
}

func (q *captureQueue) byTopic(topic string) []capturedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := []capturedJob{}
	for _, j := range q.jobs {
		if j.Topic == topic {
			jobs = append(jobs, j)
		}
	}
	return jobs
}

func (q *captureQueue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = nil
}
