package service

import (
	"context"
	"time"

	"checkout-service/internal/models"
)

// Catalog is the read-only view of the product table this subsystem needs.
type Catalog interface {
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
}

// OrderStore persists seller orders and tracks processed events.
type OrderStore interface {
	CreateSellerOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderBySellerAndKey(ctx context.Context, sellerID int64, key string) (*models.Order, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// SessionStore holds checkout sessions and idempotency claims.
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.CheckoutSession, ttl time.Duration) error
	GetSession(ctx context.Context, id string) (*models.CheckoutSession, error)
	ClaimIdempotencyKey(ctx context.Context, key, sessionID string, ttl time.Duration) (string, error)
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// Publisher emits checkout domain events.
type Publisher interface {
	PublishCheckoutAuthorized(ctx context.Context, event *models.CheckoutAuthorizedEvent) error
	PublishCheckoutAbandoned(ctx context.Context, event *models.CheckoutAbandonedEvent) error
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderGroupFailed(ctx context.Context, event *models.OrderGroupFailedEvent) error
}

// IntentRequest is a payment authorization request sent to the provider.
// Amount always originates from a ValidatedTotal.
type IntentRequest struct {
	Amount         int64
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

// PaymentProvider is the external processor's API surface used here.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, req *IntentRequest) (*models.PaymentAuthorization, error)
	CancelIntent(ctx context.Context, intentID string) error
}
