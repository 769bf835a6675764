package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// OrderReader is the read-only order access the API needs.
type OrderReader interface {
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrdersByBuyerID(ctx context.Context, buyerID int64) ([]models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
}

// WebhookPublisher emits the payment events the webhook handler verifies.
type WebhookPublisher interface {
	PublishPaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
}

// Handler contains HTTP handlers
type Handler struct {
	checkout *service.CheckoutService
	gateway  *service.Gateway
	orders   OrderReader
	events   WebhookPublisher
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(checkout *service.CheckoutService, gateway *service.Gateway, orders OrderReader, events WebhookPublisher) *Handler {
	return &Handler{
		checkout: checkout,
		gateway:  gateway,
		orders:   orders,
		events:   events,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhooks/payment", h.paymentWebhook)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/checkout/quote", h.quote)
		v1.POST("/checkout/sessions", h.startSession)
		v1.GET("/checkout/sessions/:id", h.getSession)
		v1.PUT("/checkout/sessions/:id/shipping", h.submitShipping)
		v1.POST("/checkout/sessions/:id/abandon", h.abandonSession)
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/orders", h.listOrders)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type quoteRequest struct {
	Items []models.CartItemRef `json:"items" binding:"required"`
}

// quote prices a cart with no side effects. Display-only for the client.
func (h *Handler) quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	total, err := h.checkout.Quote(c.Request.Context(), req.Items)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, total)
}

type startSessionRequest struct {
	BuyerID int64 `json:"buyer_id"`
}

func (h *Handler) startSession(c *gin.Context) {
	var req startSessionRequest
	// body is optional: guest checkouts carry no buyer ID
	_ = c.ShouldBindJSON(&req)

	session, err := h.checkout.StartSession(c.Request.Context(), req.BuyerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *Handler) getSession(c *gin.Context) {
	session, err := h.checkout.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type submitShippingRequest struct {
	Items       []models.CartItemRef   `json:"items" binding:"required"`
	Shipping    models.Address         `json:"shipping_info" binding:"required"`
	Billing     *models.Address        `json:"billing_info"`
	ClientTotal models.UntrustedAmount `json:"client_total"`
}

// submitShipping is the authorize endpoint. The client_total field is
// accepted only so tampering can be observed; the response always carries
// the server-computed total, which is what the shopper will be charged.
func (h *Handler) submitShipping(c *gin.Context) {
	var req submitShippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.checkout.SubmitShipping(c.Request.Context(), &service.SubmitShippingRequest{
		SessionID:      c.Param("id"),
		Items:          req.Items,
		Shipping:       req.Shipping,
		Billing:        req.Billing,
		ClientTotal:    req.ClientTotal,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) abandonSession(c *gin.Context) {
	if err := h.checkout.Abandon(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "abandoned"})
}

func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	order, err := h.orders.GetOrderByID(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	items, err := h.orders.GetOrderItemsByOrderID(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

func (h *Handler) listOrders(c *gin.Context) {
	buyerID, err := strconv.ParseInt(c.Query("buyer_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "buyer_id is required"})
		return
	}

	orders, err := h.orders.GetOrdersByBuyerID(c.Request.Context(), buyerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// webhookPayload is the processor's event envelope.
type webhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID               string            `json:"id"`
			Amount           int64             `json:"amount"`
			Metadata         map[string]string `json:"metadata"`
			LastPaymentError *struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

// paymentWebhook receives the processor's server-to-server confirmation.
// This, not any client callback, is what gates order persistence: the
// handler verifies the signature, republishes the event internally, and
// the checkout worker takes it from there.
func (h *Handler) paymentWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		util.PaymentWebhooksTotal.WithLabelValues("read_error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if !h.gateway.VerifyWebhook(body, c.GetHeader("Webhook-Signature")) {
		util.PaymentWebhooksTotal.WithLabelValues("bad_signature").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		util.PaymentWebhooksTotal.WithLabelValues("bad_payload").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	sessionID := payload.Data.Object.Metadata["session_id"]
	if sessionID == "" {
		util.PaymentWebhooksTotal.WithLabelValues("missing_session").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session_id metadata"})
		return
	}

	eventID := payload.ID
	if eventID == "" {
		eventID = uuid.New().String()
	}

	switch payload.Type {
	case "payment_intent.succeeded":
		event := &models.PaymentConfirmedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   eventID,
				EventType: models.EventTypePaymentConfirmed,
				Timestamp: time.Now().UTC(),
			},
			SessionID: sessionID,
			IntentID:  payload.Data.Object.ID,
			Amount:    payload.Data.Object.Amount,
		}
		if err := h.events.PublishPaymentConfirmed(c.Request.Context(), event); err != nil {
			h.logger.Error("Failed to publish PaymentConfirmed event", zap.Error(err))
			util.PaymentWebhooksTotal.WithLabelValues("publish_error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue confirmation"})
			return
		}
		util.PaymentWebhooksTotal.WithLabelValues("confirmed").Inc()

	case "payment_intent.payment_failed":
		reason := "payment declined"
		if payload.Data.Object.LastPaymentError != nil {
			reason = payload.Data.Object.LastPaymentError.Message
		}
		event := &models.PaymentFailedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   eventID,
				EventType: models.EventTypePaymentFailed,
				Timestamp: time.Now().UTC(),
			},
			SessionID: sessionID,
			IntentID:  payload.Data.Object.ID,
			Reason:    reason,
		}
		if err := h.events.PublishPaymentFailed(c.Request.Context(), event); err != nil {
			h.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
			util.PaymentWebhooksTotal.WithLabelValues("publish_error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue failure"})
			return
		}
		util.PaymentWebhooksTotal.WithLabelValues("failed").Inc()

	default:
		util.PaymentWebhooksTotal.WithLabelValues("ignored").Inc()
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// respondError maps the service error taxonomy to HTTP. Validation and
// cart errors mean "fix your input"; 502 means "just retry"; the
// distinction is deliberate so clients know which affordance to show.
func (h *Handler) respondError(c *gin.Context, err error) {
	var invalidItem *service.InvalidItemError
	if errors.As(err, &invalidItem) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "cart contains an invalid item",
			"product_id": invalidItem.ProductID,
			"reason":     invalidItem.Reason,
		})
		return
	}

	var validation *service.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validation.Error(),
			"field": validation.Field,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
	case errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "order total is not chargeable"})
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "checkout session not found or expired"})
	case errors.Is(err, service.ErrSessionClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "checkout session is already closed"})
	case errors.Is(err, service.ErrIdempotencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "idempotency key already used"})
	case errors.Is(err, service.ErrSubmitInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "a submission is already in progress, wait for it to finish"})
	case errors.Is(err, service.ErrProviderUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider is temporarily unavailable, please retry", "retryable": true})
	case errors.Is(err, service.ErrPaymentDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payments are not configured on this deployment; checkout is unavailable"})
	default:
		h.logger.Error("Unhandled request error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
