package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_quotes_total",
		Help: "Total number of price quotes computed",
	})

	AuthorizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_authorizations_total",
		Help: "Total number of payment authorization attempts",
	}, []string{"outcome"})

	AuthorizationsInvalidatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_authorizations_invalidated_total",
		Help: "Total number of payment authorizations cancelled after shipping re-entry",
	})

	TamperAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_tamper_attempts_total",
		Help: "Total number of requests whose client-sent total disagreed with the server total",
	})

	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of seller orders persisted",
	})

	OrderGroupsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_groups_failed_total",
		Help: "Total number of seller groups that failed to persist after a confirmed payment",
	}, []string{"reason"})

	ReconciliationAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_reconciliation_alerts_total",
		Help: "Total number of charged-but-unpersisted groups escalated for manual reconciliation",
	})

	PaymentWebhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_total",
		Help: "Total number of payment processor webhook deliveries",
	}, []string{"result"})

	CheckoutsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_confirmed_total",
		Help: "Total number of checkout sessions confirmed",
	})

	CheckoutsAbandonedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_abandoned_total",
		Help: "Total number of checkout sessions abandoned",
	})

	GatewayLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_gateway_latency_seconds",
		Help:    "Latency of payment provider calls",
		Buckets: prometheus.DefBuckets,
	})

	OrderPersistLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_persist_latency_seconds",
		Help:    "Latency of per-seller order transactions",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
