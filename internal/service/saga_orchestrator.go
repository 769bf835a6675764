package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxPlacementAttempts bounds reconciliation retries per seller group. One
// automatic retry, then a human gets paged.
const maxPlacementAttempts = 1

// SagaOrchestrator turns a confirmed payment into persisted seller orders.
// Each seller group commits in its own transaction; there is deliberately
// no cross-seller transaction, because each seller order is an independent
// fulfillment obligation. A group failing after the charge is the worst
// failure class here, so it is reported per group, retried once, and then
// escalated -- never folded into a generic error.
type SagaOrchestrator struct {
	orders    OrderStore
	sessions  SessionStore
	publisher Publisher
	logger    *zap.Logger
	ttl       time.Duration
}

// PlacementResult is the per-seller outcome of an order placement pass.
type PlacementResult struct {
	SellerID int64
	OrderID  int64
	Err      error
}

// NewSagaOrchestrator creates a new saga orchestrator
func NewSagaOrchestrator(orders OrderStore, sessions SessionStore, publisher Publisher, sessionTTL time.Duration) *SagaOrchestrator {
	return &SagaOrchestrator{
		orders:    orders,
		sessions:  sessions,
		publisher: publisher,
		logger:    util.GetLogger(),
		ttl:       sessionTTL,
	}
}

// HandlePaymentConfirmed persists one order per seller group after the
// processor reported a completed payment. This is the only path that
// creates order rows.
func (so *SagaOrchestrator) HandlePaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error {
	ctx, span := util.StartSpan(ctx, "SagaOrchestrator.HandlePaymentConfirmed")
	defer span.End()

	processed, err := so.orders.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		so.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	session, err := so.sessions.GetSession(ctx, event.SessionID)
	if err != nil {
		if errors.Is(err, redisclient.ErrSessionNotFound) {
			// Money was captured for a session we no longer know. Nothing
			// to persist from; this needs a human.
			so.logger.Error("Payment confirmed for unknown or expired session",
				zap.String("session_id", event.SessionID),
				zap.String("intent_id", event.IntentID),
				zap.Int64("amount", event.Amount))
			util.OrderGroupsFailedTotal.WithLabelValues("session_missing").Inc()
			util.ReconciliationAlertsTotal.Inc()
			return so.orders.MarkEventProcessed(ctx, event.EventID, event.EventType)
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	if session.IntentID != event.IntentID {
		// A cancelled authorization should not be confirmable; if the
		// provider reports one anyway, flag it instead of persisting
		// orders against a stale total.
		so.logger.Error("Confirmed intent does not match session authorization",
			zap.String("session_id", session.ID),
			zap.String("session_intent", session.IntentID),
			zap.String("event_intent", event.IntentID))
		util.OrderGroupsFailedTotal.WithLabelValues("intent_mismatch").Inc()
		util.ReconciliationAlertsTotal.Inc()
		return so.orders.MarkEventProcessed(ctx, event.EventID, event.EventType)
	}

	if session.State == models.StateConfirmed {
		so.logger.Info("Session already confirmed", zap.String("session_id", session.ID))
		return so.orders.MarkEventProcessed(ctx, event.EventID, event.EventType)
	}

	results := so.PlaceOrders(ctx, session)

	var placed, failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			continue
		}
		placed++
	}

	session.State = models.StateConfirmed
	session.Items = nil // cart is consumed
	session.ClientSecret = ""
	session.UpdatedAt = time.Now().UTC()
	if err := so.sessions.SaveSession(ctx, session, so.ttl); err != nil {
		so.logger.Error("Failed to save confirmed session", zap.Error(err))
	}

	util.CheckoutsConfirmedTotal.Inc()

	if err := so.orders.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		so.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	so.logger.Info("Checkout confirmed",
		zap.String("session_id", session.ID),
		zap.Int("groups_placed", placed),
		zap.Int("groups_failed", failed))
	return nil
}

// HandlePaymentFailed records a failed payment. The session stays in the
// payment step so the shopper can retry; no order rows exist to undo.
func (so *SagaOrchestrator) HandlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	ctx, span := util.StartSpan(ctx, "SagaOrchestrator.HandlePaymentFailed")
	defer span.End()

	processed, err := so.orders.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	so.logger.Warn("Payment failed",
		zap.String("session_id", event.SessionID),
		zap.String("intent_id", event.IntentID),
		zap.String("reason", event.Reason))

	return so.orders.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

// HandleOrderGroupFailed is the reconciliation path: retry a failed
// group's placement once, then escalate for manual handling.
func (so *SagaOrchestrator) HandleOrderGroupFailed(ctx context.Context, event *models.OrderGroupFailedEvent) error {
	ctx, span := util.StartSpan(ctx, "SagaOrchestrator.HandleOrderGroupFailed")
	defer span.End()

	if event.Attempt >= maxPlacementAttempts {
		so.alert(event, "retries exhausted")
		return nil
	}

	session, err := so.sessions.GetSession(ctx, event.SessionID)
	if err != nil {
		if errors.Is(err, redisclient.ErrSessionNotFound) {
			so.alert(event, "session expired before reconciliation")
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	for _, group := range session.Groups {
		if group.SellerID != event.SellerID {
			continue
		}
		res := so.placeGroup(ctx, session, group, taxShareFor(session, group), event.Attempt+1)
		if res.Err == nil {
			so.logger.Info("Seller group reconciled",
				zap.String("session_id", session.ID),
				zap.Int64("seller_id", group.SellerID),
				zap.Int64("order_id", res.OrderID))
		}
		return nil
	}

	so.alert(event, "seller group missing from session")
	return nil
}

// PlaceOrders walks the session's seller groups in order and attempts one
// transactional insert per group. Partial success is an expected outcome;
// the caller gets the full per-group picture.
func (so *SagaOrchestrator) PlaceOrders(ctx context.Context, session *models.CheckoutSession) []PlacementResult {
	taxShares := ApportionTax(session.Groups, session.Total.Tax)

	results := make([]PlacementResult, 0, len(session.Groups))
	for i, group := range session.Groups {
		results = append(results, so.placeGroup(ctx, session, group, taxShares[i], 0))
	}
	return results
}

func (so *SagaOrchestrator) placeGroup(ctx context.Context, session *models.CheckoutSession, group models.SellerGroup, taxShare int64, attempt int) PlacementResult {
	// A prior attempt (or a duplicate webhook) may already have landed
	// this group; the unique (seller, idempotency key) pair tells us.
	if session.IdempotencyKey != "" {
		existing, err := so.orders.GetOrderBySellerAndKey(ctx, group.SellerID, session.IdempotencyKey)
		if err == nil && existing != nil {
			return PlacementResult{SellerID: group.SellerID, OrderID: existing.ID}
		}
	}

	order, items, err := buildSellerOrder(session, group, taxShare)
	if err == nil {
		start := time.Now()
		err = so.orders.CreateSellerOrder(ctx, order, items)
		util.OrderPersistLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		so.logger.Error("Seller group failed to persist after capture",
			zap.String("session_id", session.ID),
			zap.Int64("seller_id", group.SellerID),
			zap.Int64("subtotal", group.Subtotal),
			zap.Int("attempt", attempt),
			zap.Error(err))
		util.OrderGroupsFailedTotal.WithLabelValues("db_error").Inc()

		failedEvent := &models.OrderGroupFailedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderGroupFailed,
				Timestamp: time.Now().UTC(),
			},
			SessionID: session.ID,
			IntentID:  session.IntentID,
			SellerID:  group.SellerID,
			Subtotal:  group.Subtotal,
			Reason:    err.Error(),
			Attempt:   attempt,
		}
		if pubErr := so.publisher.PublishOrderGroupFailed(ctx, failedEvent); pubErr != nil {
			// Can't even get the alert out; the log line is the last resort.
			so.logger.Error("Failed to publish OrderGroupFailed event", zap.Error(pubErr))
			util.ReconciliationAlertsTotal.Inc()
		}

		return PlacementResult{SellerID: group.SellerID, Err: err}
	}

	util.OrdersPlacedTotal.Inc()

	placedEvent := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now().UTC(),
		},
		SessionID: session.ID,
		OrderID:   order.ID,
		SellerID:  group.SellerID,
		Total:     order.Total,
	}
	if err := so.publisher.PublishOrderPlaced(ctx, placedEvent); err != nil {
		so.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	return PlacementResult{SellerID: group.SellerID, OrderID: order.ID}
}

func (so *SagaOrchestrator) alert(event *models.OrderGroupFailedEvent, why string) {
	so.logger.Error("MANUAL RECONCILIATION REQUIRED: charged seller group not persisted",
		zap.String("session_id", event.SessionID),
		zap.String("intent_id", event.IntentID),
		zap.Int64("seller_id", event.SellerID),
		zap.Int64("subtotal", event.Subtotal),
		zap.String("last_error", event.Reason),
		zap.String("why", why))
	util.ReconciliationAlertsTotal.Inc()
}

func buildSellerOrder(session *models.CheckoutSession, group models.SellerGroup, taxShare int64) (*models.Order, []models.OrderItem, error) {
	shippingJSON, err := json.Marshal(session.Shipping)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal shipping address: %w", err)
	}
	billingJSON, err := json.Marshal(session.Billing)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal billing address: %w", err)
	}

	order := &models.Order{
		SellerID:        group.SellerID,
		BuyerID:         session.BuyerID,
		ShippingAddress: shippingJSON,
		BillingAddress:  billingJSON,
		Status:          models.OrderStatusPaid,
		PaymentStatus:   models.PaymentStatusCompleted,
		Subtotal:        group.Subtotal,
		Tax:             taxShare,
		ShippingFee:     0,
		Total:           group.Subtotal + taxShare,
		PaymentIntentID: session.IntentID,
		IdempotencyKey:  session.IdempotencyKey,
	}
	if session.BuyerID == 0 {
		order.GuestName = session.Shipping.FullName
		order.GuestEmail = session.Shipping.Email
		order.GuestPhone = session.Shipping.Phone
	}

	items := make([]models.OrderItem, 0, len(group.Items))
	for _, item := range group.Items {
		items = append(items, models.OrderItem{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			PriceAtTime: item.UnitPrice,
		})
	}
	return order, items, nil
}

func taxShareFor(session *models.CheckoutSession, group models.SellerGroup) int64 {
	shares := ApportionTax(session.Groups, session.Total.Tax)
	for i, g := range session.Groups {
		if g.SellerID == group.SellerID {
			return shares[i]
		}
	}
	return 0
}
