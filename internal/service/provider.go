package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"checkout-service/internal/models"

	"github.com/google/uuid"
)

// HTTPProvider talks to the payment processor's REST API: form-encoded
// requests, Bearer secret key, JSON responses.
type HTTPProvider struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewHTTPProvider creates a provider client for the configured processor
func NewHTTPProvider(baseURL, secretKey string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent creates a payment intent for the given amount. Network
// failures and 5xx responses surface as ErrProviderUnavailable so callers
// know a retry is safe; 4xx responses are not retryable.
func (p *HTTPProvider) CreateIntent(ctx context.Context, req *IntentRequest) (*models.PaymentAuthorization, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", req.Currency)
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	var body intentResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&body); decodeErr != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("failed to decode provider response: %w", decodeErr)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: provider returned %d", ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		msg := "request rejected"
		if body.Error != nil {
			msg = body.Error.Message
		}
		return nil, fmt.Errorf("provider rejected intent: %s", msg)
	}

	if body.ID == "" || body.ClientSecret == "" {
		return nil, fmt.Errorf("provider response missing intent id or client secret")
	}

	return &models.PaymentAuthorization{
		IntentID:     body.ID,
		ClientSecret: body.ClientSecret,
		Amount:       req.Amount,
	}, nil
}

// CancelIntent cancels an open intent
func (p *HTTPProvider) CancelIntent(ctx context.Context, intentID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1/payment_intents/%s/cancel", p.baseURL, url.PathEscape(intentID)), nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: provider returned %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("provider refused to cancel intent %s: status %d", intentID, resp.StatusCode)
	}
	return nil
}

// SimulatedProvider issues fake intents in-process. Backs development
// environments without processor credentials and the service tests.
type SimulatedProvider struct {
	mu        sync.Mutex
	created   int
	cancelled map[string]bool
}

// NewSimulatedProvider creates an in-process fake provider
func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{cancelled: make(map[string]bool)}
}

func (p *SimulatedProvider) CreateIntent(_ context.Context, req *IntentRequest) (*models.PaymentAuthorization, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.created++
	intentID := fmt.Sprintf("pi_sim_%s", uuid.New().String()[:8])
	return &models.PaymentAuthorization{
		IntentID:     intentID,
		ClientSecret: fmt.Sprintf("%s_secret_%s", intentID, uuid.New().String()[:8]),
		Amount:       req.Amount,
	}, nil
}

func (p *SimulatedProvider) CancelIntent(_ context.Context, intentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelled[intentID] = true
	return nil
}

// Cancelled reports whether an intent was cancelled
func (p *SimulatedProvider) Cancelled(intentID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled[intentID]
}

// CreatedCount returns how many intents were issued
func (p *SimulatedProvider) CreatedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}
