package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeDisabledGateway(t *testing.T) {
	provider := &mockProvider{}
	g := NewGateway(provider, false, "usd", time.Second, "whsec")

	_, err := g.Authorize(context.Background(), models.ValidatedTotal{Total: 100}, "", nil)
	assert.ErrorIs(t, err, ErrPaymentDisabled)
	assert.Equal(t, 0, provider.created)
}

func TestAuthorizeRejectsNonPositiveTotal(t *testing.T) {
	provider := &mockProvider{}
	g := NewGateway(provider, true, "usd", time.Second, "whsec")

	_, err := g.Authorize(context.Background(), models.ValidatedTotal{Total: 0}, "", nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = g.Authorize(context.Background(), models.ValidatedTotal{Total: -5}, "", nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Equal(t, 0, provider.created)
}

func TestAuthorizePassesAmountAndKeyThrough(t *testing.T) {
	provider := &mockProvider{}
	g := NewGateway(provider, true, "usd", time.Second, "whsec")

	auth, err := g.Authorize(context.Background(), models.ValidatedTotal{Total: 4860}, "idem-1", map[string]string{"session_id": "s1"})
	require.NoError(t, err)
	assert.Equal(t, int64(4860), auth.Amount)
	assert.Equal(t, int64(4860), provider.lastAmount)
	assert.Equal(t, "idem-1", provider.lastKey)
}

func TestAuthorizeProviderError(t *testing.T) {
	provider := &mockProvider{err: errors.New("connection refused")}
	g := NewGateway(provider, true, "usd", time.Second, "whsec")

	_, err := g.Authorize(context.Background(), models.ValidatedTotal{Total: 100}, "", nil)
	assert.Error(t, err)
}

func TestInvalidateEmptyIntentIsNoop(t *testing.T) {
	provider := &mockProvider{}
	g := NewGateway(provider, true, "usd", time.Second, "whsec")

	require.NoError(t, g.Invalidate(context.Background(), ""))
	assert.Empty(t, provider.cancelled)
}

func TestInvalidateCancelsAtProvider(t *testing.T) {
	provider := &mockProvider{}
	g := NewGateway(provider, true, "usd", time.Second, "whsec")

	require.NoError(t, g.Invalidate(context.Background(), "pi_old"))
	assert.Equal(t, []string{"pi_old"}, provider.cancelled)
}

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhook(t *testing.T) {
	g := NewGateway(&mockProvider{}, true, "usd", time.Second, "whsec_test")
	payload := []byte(`{"type":"payment_intent.succeeded"}`)
	sig := signPayload("whsec_test", payload)

	assert.True(t, g.VerifyWebhook(payload, sig))
	assert.True(t, g.VerifyWebhook(payload, "sha256="+sig))
	assert.True(t, g.VerifyWebhook(payload, " "+sig+" "))

	assert.False(t, g.VerifyWebhook(payload, ""))
	assert.False(t, g.VerifyWebhook(payload, signPayload("wrong-secret", payload)))
	assert.False(t, g.VerifyWebhook([]byte("tampered"), sig))
}

func TestVerifyWebhookNoSecretConfigured(t *testing.T) {
	g := NewGateway(&mockProvider{}, true, "usd", time.Second, "")
	payload := []byte(`{}`)

	assert.False(t, g.VerifyWebhook(payload, signPayload("", payload)))
}
