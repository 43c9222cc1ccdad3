// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/timothysaatum/bulk-sms/internal/errors"
	"github.com/timothysaatum/bulk-sms/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	DispatchService *service.DispatchService

	// Defaults applied when the execute request does not override them.
	BatchSize          int
	RateLimitPerMinute int
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name            string                 `json:"name"`
		Description     string                 `json:"description"`
		MessageTemplate string                 `json:"message_template"`
		SenderID        string                 `json:"sender_id"`
		Contacts        []service.ContactInput `json:"contacts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(body.Name, body.Description, body.MessageTemplate, body.SenderID, body.Contacts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(page, pageSize, status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaigns":  campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	details, err := c.CampaignService.GetCampaignDetails(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	json.NewEncoder(w).Encode(details)
}

func (c *CampaignController) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	messages, pagination, err := c.CampaignService.ListMessages(id, status, page, pageSize)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"messages":   messages,
		"pagination": pagination,
	})
}

func (c *CampaignController) ExecuteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	batchSize := c.BatchSize
	rateLimit := c.RateLimitPerMinute
	if r.Body != nil {
		var body struct {
			BatchSize          int `json:"batch_size"`
			RateLimitPerMinute int `json:"rate_limit_per_minute"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			if body.BatchSize > 0 {
				batchSize = body.BatchSize
			}
			if body.RateLimitPerMinute > 0 {
				rateLimit = body.RateLimitPerMinute
			}
		}
	}

	summary, err := c.DispatchService.Execute(id, batchSize, rateLimit)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(summary)
}

func (c *CampaignController) RetryFailed(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	retried, err := c.DispatchService.RetryFailed(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id":   id,
		"total_retried": retried,
	})
}

func campaignID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

func writeEngineError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrCampaignNotFound
	var alreadyRunning *appErrors.ErrCampaignAlreadyRunning
	var noEligible *appErrors.ErrNoEligibleContacts

	switch {
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &alreadyRunning), errors.As(err, &noEligible):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
