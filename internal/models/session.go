package models

import "time"

// CheckoutState is the client-visible checkout step. Transitions are
// checked explicitly so an out-of-order request (confirming while still
// collecting shipping, say) is rejected instead of silently accepted.
type CheckoutState string

const (
	StateShipping  CheckoutState = "SHIPPING"
	StatePayment   CheckoutState = "PAYMENT"
	StateConfirmed CheckoutState = "CONFIRMED"
	StateAbandoned CheckoutState = "ABANDONED"
)

func (s CheckoutState) IsTerminal() bool {
	return s == StateConfirmed || s == StateAbandoned
}

// CanTransition reports whether moving from s to next is legal.
// PAYMENT -> PAYMENT covers shipping re-entry: resubmitting shipping while
// an authorization is open cancels it and issues a fresh one.
func (s CheckoutState) CanTransition(next CheckoutState) bool {
	switch s {
	case StateShipping:
		return next == StatePayment || next == StateAbandoned
	case StatePayment:
		return next == StatePayment || next == StateConfirmed || next == StateAbandoned
	default:
		return false
	}
}

func (s CheckoutState) String() string {
	return string(s)
}

// CheckoutSession is the durable record of one checkout attempt, held in
// Redis with a TTL. Everything the payment-confirmation path needs to
// persist orders lives here, so a shopper navigating away after paying
// loses nothing.
type CheckoutSession struct {
	ID             string          `json:"id"`
	State          CheckoutState   `json:"state"`
	BuyerID        int64           `json:"buyer_id,omitempty"`
	Items          []CartItemRef   `json:"items,omitempty"`
	Shipping       Address         `json:"shipping"`
	Billing        Address         `json:"billing"`
	Groups         []SellerGroup   `json:"groups,omitempty"`
	Total          ValidatedTotal  `json:"total"`
	IntentID       string          `json:"intent_id,omitempty"`
	ClientSecret   string          `json:"client_secret,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
