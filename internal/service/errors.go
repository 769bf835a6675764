package service

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart is returned when a quote or authorize request carries no items.
	ErrEmptyCart = errors.New("cart is empty, nothing to price")

	// ErrSubtotalMismatch means the per-seller subtotals did not sum to the
	// whole-cart subtotal. This is a consistency violation, not user error:
	// the checkout aborts before any authorization or persistence.
	ErrSubtotalMismatch = errors.New("per-seller subtotals do not sum to cart subtotal")

	// ErrProviderUnavailable marks a transient payment provider failure.
	// Safe to retry.
	ErrProviderUnavailable = errors.New("payment provider unavailable")

	// ErrInvalidAmount means the computed total was zero or negative.
	ErrInvalidAmount = errors.New("computed total is not a chargeable amount")

	// ErrPaymentDisabled is returned when no publishable key is configured.
	ErrPaymentDisabled = errors.New("payment is not configured, checkout is disabled")

	// ErrSessionNotFound is returned for unknown or expired checkout sessions.
	ErrSessionNotFound = errors.New("checkout session not found")

	// ErrSessionClosed is returned when the session is already confirmed or abandoned.
	ErrSessionClosed = errors.New("checkout session is closed")

	// ErrIdempotencyConflict means the idempotency key belongs to another session.
	ErrIdempotencyConflict = errors.New("idempotency key already used by another checkout")

	// ErrSubmitInProgress means another submit for the same session holds the lock.
	ErrSubmitInProgress = errors.New("another submission for this checkout is in progress")
)

// InvalidItemError identifies the cart line that failed price validation.
// A bad line rejects the whole cart; it is never silently dropped.
type InvalidItemError struct {
	ProductID int64
	Reason    string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid cart item %d: %s", e.ProductID, e.Reason)
}

// ValidationError reports the first shipping/billing field that failed
// format checks. Recovered locally by the user; no network call was made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
