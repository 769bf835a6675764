package models

import "time"

// Product is a catalog row. This subsystem never writes products; catalog
// management owns them and may change prices concurrently with a checkout.
type Product struct {
	ID        int64     `db:"id" json:"id"`
	SKU       string    `db:"sku" json:"sku"`
	Name      string    `db:"name" json:"name"`
	SellerID  int64     `db:"seller_id" json:"seller_id"`
	Price     int64     `db:"price" json:"price"`
	Active    bool      `db:"active" json:"active"`
	Stock     int       `db:"stock" json:"stock"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CartItemRef is the untrusted cart line the client submits: a product
// reference and a quantity, nothing more. Prices are always re-derived
// from the catalog; any price the client believes it saw is ignored.
type CartItemRef struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// UntrustedAmount is a monetary figure received from the client. It exists
// as its own type so it cannot be passed where a server-computed amount is
// expected; the only legitimate use is comparing it against the validated
// total to detect tampering.
type UntrustedAmount int64

// ValidatedTotal is a charge amount computed server-side from current
// catalog prices. All amounts are in minor currency units. Only values of
// this type are ever sent to the payment provider or written to orders.
type ValidatedTotal struct {
	Subtotal    int64 `json:"subtotal"`
	Tax         int64 `json:"tax"`
	ShippingFee int64 `json:"shipping_fee"`
	Total       int64 `json:"total"`
}

// PricedItem is a cart line after the Price Authority resolved it against
// the catalog: unit price and seller are snapshotted at quote time.
type PricedItem struct {
	ProductID int64 `json:"product_id"`
	SellerID  int64 `json:"seller_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

// SellerGroup is the subset of a priced cart belonging to one seller. Each
// group becomes exactly one order.
type SellerGroup struct {
	SellerID int64        `json:"seller_id"`
	Items    []PricedItem `json:"items"`
	Subtotal int64        `json:"subtotal"`
}

// Address carries shipping or billing contact details for one checkout
// attempt. Phone is lenient; everything else is required. Postal codes are
// checked against a country pattern table in the service layer.
type Address struct {
	FullName   string `json:"full_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"omitempty,min=7"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required,len=2"`
}

// Order is a persisted purchase from a single seller. Totals are immutable
// once the row exists, regardless of later catalog price changes.
type Order struct {
	ID              int64     `db:"id" json:"id"`
	SellerID        int64     `db:"seller_id" json:"seller_id"`
	BuyerID         int64     `db:"buyer_id" json:"buyer_id,omitempty"`
	GuestName       string    `db:"guest_name" json:"guest_name,omitempty"`
	GuestEmail      string    `db:"guest_email" json:"guest_email,omitempty"`
	GuestPhone      string    `db:"guest_phone" json:"guest_phone,omitempty"`
	ShippingAddress []byte    `db:"shipping_address" json:"-"`
	BillingAddress  []byte    `db:"billing_address" json:"-"`
	Status          string    `db:"status" json:"status"`
	PaymentStatus   string    `db:"payment_status" json:"payment_status"`
	Subtotal        int64     `db:"subtotal" json:"subtotal"`
	Tax             int64     `db:"tax" json:"tax"`
	ShippingFee     int64     `db:"shipping_fee" json:"shipping_fee"`
	Total           int64     `db:"total" json:"total"`
	PaymentIntentID string    `db:"payment_intent_id" json:"payment_intent_id,omitempty"`
	IdempotencyKey  string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem is one line of a seller order. PriceAtTime is the unit price
// snapshotted at authorization; it is never recomputed.
type OrderItem struct {
	ID          int64 `db:"id" json:"id"`
	OrderID     int64 `db:"order_id" json:"order_id"`
	ProductID   int64 `db:"product_id" json:"product_id"`
	Quantity    int   `db:"quantity" json:"quantity"`
	PriceAtTime int64 `db:"price_at_time" json:"price_at_time"`
}

// PaymentAuthorization is the provider's reservation for a validated total:
// an opaque intent plus the client secret the shopper completes payment
// against. It commits nothing on our side.
type PaymentAuthorization struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
}

// Order statuses
const (
	OrderStatusPending    = "PENDING"
	OrderStatusPaid       = "PAID"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
)

// Payment statuses
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

// ProcessedEvent for webhook/event idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
