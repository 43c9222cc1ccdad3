// internal/gateway/arkesel.go
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Outcome classifies a single send attempt. Three shapes must stay
// distinguishable downstream: success, request-level failure
// (timeout/connection) and provider-reported failure (non-2xx or error
// payload).
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTransient
	OutcomePermanent
)

// SendResult is what the send worker records on the message. RawResponse is
// stored verbatim, synthesized for network errors.
type SendResult struct {
	Outcome     Outcome
	HTTPStatus  int
	RawResponse string
	ErrorText   string
}

// Sender sends exactly one message. Implementations are stateless leaves.
type Sender interface {
	Send(ctx context.Context, phone, senderID, text string, messageID int) SendResult
}

// ArkeselClient talks to the Arkesel SMS HTTP API. A shared token bucket
// paces the actual outbound calls so concurrent workers cannot exceed the
// provider's per-minute budget even when enqueuing runs ahead.
type ArkeselClient struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
	Limiter *rate.Limiter
}

func NewArkeselClient(apiKey, baseURL string, ratePerMinute int, timeout time.Duration) *ArkeselClient {
	return &ArkeselClient{
		APIKey:  apiKey,
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
		Limiter: rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), 1),
	}
}

// idempotencyNamespace is fixed so the key for a message id is stable across
// retries and redelivered jobs.
var idempotencyNamespace = uuid.MustParse("7f1c6a4e-0b3d-4d6a-9c1f-2e8a5b9d3c70")

// IdempotencyKey derives a stable client-generated key from the message id.
// The queue is at-least-once; this is the only duplicate-send guard the
// provider can honor.
func IdempotencyKey(messageID int) string {
	return uuid.NewSHA1(idempotencyNamespace, []byte(fmt.Sprintf("message-%d", messageID))).String()
}

func (c *ArkeselClient) Send(ctx context.Context, phone, senderID, text string, messageID int) SendResult {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return classify(0, "", err)
		}
	}

	q := url.Values{}
	q.Set("action", "send-sms")
	q.Set("api_key", c.APIKey)
	q.Set("to", phone)
	q.Set("from", senderID)
	q.Set("sms", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return classify(0, "", err)
	}
	req.Header.Set("Idempotency-Key", IdempotencyKey(messageID))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		// Timeout or connection error; no provider response to store.
		return classify(0, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(resp.StatusCode, "", err)
	}

	return classify(resp.StatusCode, string(body), nil)
}

// classify is the single point where attempt outcomes map onto the retry
// policy. Every failure is currently transient, matching the uniform-retry
// behavior of the provider integrations this replaces; tightening the policy
// (e.g. 4xx permanent) only needs a change here, not in the state machine.
func classify(status int, body string, err error) SendResult {
	if err != nil {
		return SendResult{
			Outcome:     OutcomeTransient,
			HTTPStatus:  status,
			RawResponse: fmt.Sprintf(`{"success":false,"error":%q}`, err.Error()),
			ErrorText:   err.Error(),
		}
	}
	if status < 200 || status > 299 {
		return SendResult{
			Outcome:     OutcomeTransient,
			HTTPStatus:  status,
			RawResponse: body,
			ErrorText:   fmt.Sprintf("gateway returned HTTP %d", status),
		}
	}
	// A 2xx with a body the provider API could not have produced (not JSON)
	// is a failure, not a send.
	if !json.Valid([]byte(body)) {
		return SendResult{
			Outcome:     OutcomeTransient,
			HTTPStatus:  status,
			RawResponse: body,
			ErrorText:   "unparseable gateway response",
		}
	}
	return SendResult{
		Outcome:     OutcomeSuccess,
		HTTPStatus:  status,
		RawResponse: body,
	}
}
