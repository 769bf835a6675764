package worker

import (
	"context"
	"encoding/json"
	"log"

	"checkout-service/internal/broker"
	"checkout-service/internal/models"
	"checkout-service/internal/service"

	"github.com/segmentio/kafka-go"
)

// CheckoutWorker drives order placement from verified payment events. It
// is the consumer side of the webhook: the HTTP handler only verifies and
// republishes; everything durable happens here.
type CheckoutWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewCheckoutWorker creates a new checkout worker
func NewCheckoutWorker(consumer *broker.Consumer, saga *service.SagaOrchestrator) *CheckoutWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentConfirmed(saga.HandlePaymentConfirmed)
	eventHandler.OnPaymentFailed(saga.HandlePaymentFailed)

	return &CheckoutWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *CheckoutWorker) Start(ctx context.Context) error {
	log.Println("Starting checkout worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CheckoutWorker) Stop() error {
	log.Println("Stopping checkout worker...")
	return w.consumer.Close()
}

// ReconciliationWorker consumes the ORDER_GROUP_FAILED stream: seller
// groups that were charged but not persisted. It runs in its own consumer
// group so retries and alerts do not compete with the placement path.
type ReconciliationWorker struct {
	consumer *broker.Consumer
	saga     *service.SagaOrchestrator
}

// NewReconciliationWorker creates a new reconciliation worker
func NewReconciliationWorker(consumer *broker.Consumer, saga *service.SagaOrchestrator) *ReconciliationWorker {
	return &ReconciliationWorker{
		consumer: consumer,
		saga:     saga,
	}
}

// Start starts the reconciliation worker
func (rw *ReconciliationWorker) Start(ctx context.Context) error {
	log.Println("Starting reconciliation worker...")

	return rw.consumer.StartConsuming(ctx, func(ctx context.Context, msg kafka.Message) error {
		var baseEvent models.BaseEvent
		if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
			log.Printf("Failed to unmarshal event: %v", err)
			return err
		}

		if baseEvent.EventType != models.EventTypeOrderGroupFailed {
			return nil
		}

		var event models.OrderGroupFailedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("Failed to unmarshal OrderGroupFailed event: %v", err)
			return err
		}

		return rw.saga.HandleOrderGroupFailed(ctx, &event)
	})
}

// Stop stops the reconciliation worker
func (rw *ReconciliationWorker) Stop() error {
	log.Println("Stopping reconciliation worker...")
	return rw.consumer.Close()
}
