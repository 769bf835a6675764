package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProviderCreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.Equal(t, "idem-1", r.Header.Get("Idempotency-Key"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "4860", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "sess-1", r.PostForm.Get("metadata[session_id]"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_123","client_secret":"pi_123_secret","amount":4860}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "sk_test_123", time.Second)
	auth, err := p.CreateIntent(context.Background(), &IntentRequest{
		Amount:         4860,
		Currency:       "usd",
		IdempotencyKey: "idem-1",
		Metadata:       map[string]string{"session_id": "sess-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "pi_123", auth.IntentID)
	assert.Equal(t, "pi_123_secret", auth.ClientSecret)
	assert.Equal(t, int64(4860), auth.Amount)
}

func TestHTTPProviderServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "sk_test_123", time.Second)
	_, err := p.CreateIntent(context.Background(), &IntentRequest{Amount: 100, Currency: "usd"})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestHTTPProviderClientErrorCarriesProviderMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"amount below minimum"}}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "sk_test_123", time.Second)
	_, err := p.CreateIntent(context.Background(), &IntentRequest{Amount: 1, Currency: "usd"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "amount below minimum")
}

func TestHTTPProviderNetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	p := NewHTTPProvider(srv.URL, "sk_test_123", time.Second)
	_, err := p.CreateIntent(context.Background(), &IntentRequest{Amount: 100, Currency: "usd"})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestHTTPProviderCancelIntent(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"id":"pi_123","status":"canceled"}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "sk_test_123", time.Second)
	require.NoError(t, p.CancelIntent(context.Background(), "pi_123"))
	assert.Equal(t, "/v1/payment_intents/pi_123/cancel", gotPath)
}

func TestHTTPProviderCancelIntentRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "sk_test_123", time.Second)
	err := p.CancelIntent(context.Background(), "pi_123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProviderUnavailable)
}

func TestSimulatedProviderIssuesAndCancels(t *testing.T) {
	p := NewSimulatedProvider()

	auth, err := p.CreateIntent(context.Background(), &IntentRequest{Amount: 500, Currency: "usd"})
	require.NoError(t, err)
	assert.NotEmpty(t, auth.IntentID)
	assert.NotEmpty(t, auth.ClientSecret)
	assert.Equal(t, int64(500), auth.Amount)
	assert.Equal(t, 1, p.CreatedCount())

	require.NoError(t, p.CancelIntent(context.Background(), auth.IntentID))
	assert.True(t, p.Cancelled(auth.IntentID))
	assert.False(t, p.Cancelled("pi_never_issued"))
}
