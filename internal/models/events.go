package models

import "time"

// Event types
const (
	EventTypeCheckoutAuthorized = "CHECKOUT_AUTHORIZED"
	EventTypeCheckoutAbandoned  = "CHECKOUT_ABANDONED"
	EventTypePaymentConfirmed   = "PAYMENT_CONFIRMED"
	EventTypePaymentFailed      = "PAYMENT_FAILED"
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderGroupFailed   = "ORDER_GROUP_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckoutAuthorizedEvent published when a payment intent is created for a session
type CheckoutAuthorizedEvent struct {
	BaseEvent
	SessionID string         `json:"session_id"`
	IntentID  string         `json:"intent_id"`
	Total     ValidatedTotal `json:"total"`
	Sellers   []int64        `json:"sellers"`
}

// CheckoutAbandonedEvent published when a session is abandoned before confirmation
type CheckoutAbandonedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	IntentID  string `json:"intent_id,omitempty"`
}

// PaymentConfirmedEvent published by the webhook handler after the
// processor reports a completed payment. This event, not any client
// callback, is what gates order persistence.
type PaymentConfirmedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	IntentID  string `json:"intent_id"`
	Amount    int64  `json:"amount"`
}

// PaymentFailedEvent published by the webhook handler on a failed payment
type PaymentFailedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	IntentID  string `json:"intent_id"`
	Reason    string `json:"reason"`
}

// OrderPlacedEvent published once per persisted seller order
type OrderPlacedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	OrderID   int64  `json:"order_id"`
	SellerID  int64  `json:"seller_id"`
	Total     int64  `json:"total"`
}

// OrderGroupFailedEvent published when a seller group could not be
// persisted after its payment was already captured. This is the
// reconciliation alert stream: consumers retry once, then escalate.
type OrderGroupFailedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	IntentID  string `json:"intent_id"`
	SellerID  int64  `json:"seller_id"`
	Subtotal  int64  `json:"subtotal"`
	Reason    string `json:"reason"`
	Attempt   int    `json:"attempt"`
}
