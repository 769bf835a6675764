package store

import (
	"context"
	"fmt"

	"checkout-service/internal/models"
)

// CreateSellerOrder writes one seller order and all of its items in a
// single transaction. A failure anywhere rolls the whole group back; a
// headerless or itemless order never exists. Atomicity stops at the group
// boundary on purpose: each seller order is an independent fulfillment
// obligation, and the caller owns the decision of what to do when one
// group commits and the next fails.
func (s *Store) CreateSellerOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if len(items) == 0 {
		return fmt.Errorf("seller order for seller %d has no items", order.SellerID)
	}

	var itemSum int64
	for _, item := range items {
		itemSum += item.PriceAtTime * int64(item.Quantity)
	}
	if itemSum != order.Subtotal {
		return fmt.Errorf("item sum %d does not match order subtotal %d for seller %d",
			itemSum, order.Subtotal, order.SellerID)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (seller_id, buyer_id, guest_name, guest_email, guest_phone,
			shipping_address, billing_address, status, payment_status,
			subtotal, tax, shipping_fee, total, payment_intent_id, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, order, query,
		order.SellerID, order.BuyerID, order.GuestName, order.GuestEmail, order.GuestPhone,
		order.ShippingAddress, order.BillingAddress, order.Status, order.PaymentStatus,
		order.Subtotal, order.Tax, order.ShippingFee, order.Total,
		order.PaymentIntentID, order.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to insert order header: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		err = tx.GetContext(ctx, &items[i].ID,
			`INSERT INTO order_items (order_id, product_id, quantity, price_at_time)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			items[i].OrderID, items[i].ProductID, items[i].Quantity, items[i].PriceAtTime)
		if err != nil {
			return fmt.Errorf("failed to insert order item for product %d: %w", items[i].ProductID, err)
		}
	}

	return tx.Commit()
}
