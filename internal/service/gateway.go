package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// Gateway fronts the payment processor. Amounts it authorizes always come
// from the Price Authority; there is no code path from a client-sent
// number to the provider.
type Gateway struct {
	provider      PaymentProvider
	enabled       bool
	currency      string
	timeout       time.Duration
	webhookSecret string
	logger        *zap.Logger
}

// NewGateway creates a new payment gateway
func NewGateway(provider PaymentProvider, enabled bool, currency string, timeout time.Duration, webhookSecret string) *Gateway {
	return &Gateway{
		provider:      provider,
		enabled:       enabled,
		currency:      currency,
		timeout:       timeout,
		webhookSecret: webhookSecret,
		logger:        util.GetLogger(),
	}
}

// Enabled reports whether the payment step is configured at all.
func (g *Gateway) Enabled() bool {
	return g.enabled
}

// Authorize creates a payment intent for a validated total. The intent is
// a reservation: nothing is persisted on our side until the processor
// confirms the payment. The call carries a deadline so a hung provider
// surfaces a timeout and permits a fresh attempt.
func (g *Gateway) Authorize(ctx context.Context, total models.ValidatedTotal, idempotencyKey string, metadata map[string]string) (*models.PaymentAuthorization, error) {
	ctx, span := util.StartSpan(ctx, "Gateway.Authorize")
	defer span.End()

	if !g.enabled {
		util.AuthorizationsTotal.WithLabelValues("disabled").Inc()
		return nil, ErrPaymentDisabled
	}
	if total.Total <= 0 {
		util.AuthorizationsTotal.WithLabelValues("invalid_amount").Inc()
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, total.Total)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	auth, err := g.provider.CreateIntent(ctx, &IntentRequest{
		Amount:         total.Total,
		Currency:       g.currency,
		IdempotencyKey: idempotencyKey,
		Metadata:       metadata,
	})
	util.GatewayLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		util.AuthorizationsTotal.WithLabelValues("provider_error").Inc()
		return nil, err
	}

	util.AuthorizationsTotal.WithLabelValues("ok").Inc()
	g.logger.Info("Payment intent created",
		zap.String("intent_id", auth.IntentID),
		zap.Int64("amount", auth.Amount))
	return auth, nil
}

// Invalidate cancels an intent that is no longer chargeable, typically
// because the shopper went back to shipping and the total may change.
func (g *Gateway) Invalidate(ctx context.Context, intentID string) error {
	if intentID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.provider.CancelIntent(ctx, intentID); err != nil {
		return fmt.Errorf("failed to cancel intent %s: %w", intentID, err)
	}

	util.AuthorizationsInvalidatedTotal.Inc()
	g.logger.Info("Payment intent invalidated", zap.String("intent_id", intentID))
	return nil
}

// VerifyWebhook checks the processor's HMAC-SHA256 signature over the raw
// webhook body. Accepts the bare hex digest or a "sha256=" prefixed one.
func (g *Gateway) VerifyWebhook(payload []byte, signature string) bool {
	if g.webhookSecret == "" || signature == "" {
		return false
	}

	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
