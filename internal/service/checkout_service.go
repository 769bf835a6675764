package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const submitLockTTL = 30 * time.Second

// CheckoutService sequences the client-visible checkout flow: collect and
// validate shipping, price the cart server-side, split it per seller,
// authorize payment, and hold everything the confirmation path needs.
type CheckoutService struct {
	sessions       SessionStore
	pricer         *PriceAuthority
	gateway        *Gateway
	publisher      Publisher
	logger         *zap.Logger
	sessionTTL     time.Duration
	idempotencyTTL time.Duration
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	sessions SessionStore,
	pricer *PriceAuthority,
	gateway *Gateway,
	publisher Publisher,
	sessionTTL time.Duration,
	idempotencyTTL time.Duration,
) *CheckoutService {
	return &CheckoutService{
		sessions:       sessions,
		pricer:         pricer,
		gateway:        gateway,
		publisher:      publisher,
		logger:         util.GetLogger(),
		sessionTTL:     sessionTTL,
		idempotencyTTL: idempotencyTTL,
	}
}

// Quote prices a cart without side effects. Display-only: the client cart
// may show this, but authorization recomputes it regardless.
func (s *CheckoutService) Quote(ctx context.Context, items []models.CartItemRef) (models.ValidatedTotal, error) {
	total, _, err := s.pricer.Quote(ctx, items)
	return total, err
}

// StartSession opens a checkout session in the shipping step.
func (s *CheckoutService) StartSession(ctx context.Context, buyerID int64) (*models.CheckoutSession, error) {
	now := time.Now().UTC()
	session := &models.CheckoutSession{
		ID:        uuid.New().String(),
		State:     models.StateShipping,
		BuyerID:   buyerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessions.SaveSession(ctx, session, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// GetSession returns the current session state for UI resume.
func (s *CheckoutService) GetSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	return s.loadSession(ctx, id)
}

// SubmitShippingRequest carries one shipping-step submission. ClientTotal
// is whatever total the client UI believed; it is typed untrusted and only
// ever compared, never used.
type SubmitShippingRequest struct {
	SessionID      string
	Items          []models.CartItemRef
	Shipping       models.Address
	Billing        *models.Address
	ClientTotal    models.UntrustedAmount
	IdempotencyKey string
}

// SubmitShippingResponse is what the client needs to enter the payment
// step: the secret to complete payment against, and the total it will
// actually be charged.
type SubmitShippingResponse struct {
	ClientSecret   string                `json:"client_secret"`
	ValidatedTotal models.ValidatedTotal `json:"validated_total"`
}

// SubmitShipping runs the authorize step: validate -> price -> split ->
// authorize, in that order, none skippable. Re-submitting while an
// authorization is open (shipping re-entry) cancels the old intent first,
// since an address change can change tax and total.
func (s *CheckoutService) SubmitShipping(ctx context.Context, req *SubmitShippingRequest) (*SubmitShippingResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.SubmitShipping")
	defer span.End()

	session, err := s.loadSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.State.CanTransition(models.StatePayment) {
		return nil, fmt.Errorf("%w: state=%s", ErrSessionClosed, session.State)
	}

	if err := ValidateAddress(req.Shipping); err != nil {
		return nil, err
	}
	billing := resolveBilling(req.Shipping, req.Billing)
	if err := ValidateAddress(billing); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		owner, err := s.sessions.ClaimIdempotencyKey(ctx, req.IdempotencyKey, session.ID, s.idempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
		}
		if owner != session.ID {
			return nil, ErrIdempotencyConflict
		}
		if session.IdempotencyKey == req.IdempotencyKey &&
			session.State == models.StatePayment && session.ClientSecret != "" {
			s.logger.Info("Duplicate shipping submit replayed from session",
				zap.String("session_id", session.ID),
				zap.String("idempotency_key", req.IdempotencyKey))
			return &SubmitShippingResponse{
				ClientSecret:   session.ClientSecret,
				ValidatedTotal: session.Total,
			}, nil
		}
	}

	locked, err := s.sessions.AcquireLock(ctx, session.ID, submitLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire submit lock: %w", err)
	}
	if !locked {
		return nil, ErrSubmitInProgress
	}
	defer func() {
		if err := s.sessions.ReleaseLock(ctx, session.ID); err != nil {
			s.logger.Warn("Failed to release submit lock", zap.String("session_id", session.ID), zap.Error(err))
		}
	}()

	total, priced, err := s.pricer.Quote(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	if req.ClientTotal != 0 && int64(req.ClientTotal) != total.Total {
		util.TamperAttemptsTotal.Inc()
		s.logger.Warn("Client-sent total disagrees with validated total",
			zap.String("session_id", session.ID),
			zap.Int64("client_total", int64(req.ClientTotal)),
			zap.Int64("validated_total", total.Total))
	}

	groups, err := SplitBySeller(priced, total.Subtotal)
	if err != nil {
		// Consistency violation: abort before any money moves.
		return nil, err
	}

	if session.State == models.StatePayment && session.IntentID != "" {
		if err := s.gateway.Invalidate(ctx, session.IntentID); err != nil {
			// The stale intent expires at the provider; a fresh one is
			// still issued below, so this is not fatal.
			s.logger.Error("Failed to invalidate prior authorization",
				zap.String("session_id", session.ID),
				zap.String("intent_id", session.IntentID),
				zap.Error(err))
		}
	}

	auth, err := s.gateway.Authorize(ctx, total, req.IdempotencyKey, map[string]string{
		"session_id": session.ID,
	})
	if err != nil {
		return nil, err
	}

	session.State = models.StatePayment
	session.Items = req.Items
	session.Shipping = req.Shipping
	session.Billing = billing
	session.Groups = groups
	session.Total = total
	session.IntentID = auth.IntentID
	session.ClientSecret = auth.ClientSecret
	session.IdempotencyKey = req.IdempotencyKey
	session.UpdatedAt = time.Now().UTC()

	if err := s.sessions.SaveSession(ctx, session, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	sellers := make([]int64, len(groups))
	for i, group := range groups {
		sellers[i] = group.SellerID
	}
	event := &models.CheckoutAuthorizedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCheckoutAuthorized,
			Timestamp: time.Now().UTC(),
		},
		SessionID: session.ID,
		IntentID:  auth.IntentID,
		Total:     total,
		Sellers:   sellers,
	}
	if err := s.publisher.PublishCheckoutAuthorized(ctx, event); err != nil {
		s.logger.Error("Failed to publish CheckoutAuthorized event", zap.Error(err))
	}

	return &SubmitShippingResponse{
		ClientSecret:   auth.ClientSecret,
		ValidatedTotal: total,
	}, nil
}

// Abandon closes a session before confirmation. No order rows exist at
// this point; the only durable side effect is the cancelled authorization.
func (s *CheckoutService) Abandon(ctx context.Context, sessionID string) error {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.State == models.StateAbandoned {
		return nil
	}
	if !session.State.CanTransition(models.StateAbandoned) {
		return fmt.Errorf("%w: state=%s", ErrSessionClosed, session.State)
	}

	if session.IntentID != "" {
		if err := s.gateway.Invalidate(ctx, session.IntentID); err != nil {
			s.logger.Error("Failed to cancel authorization on abandon",
				zap.String("session_id", session.ID),
				zap.String("intent_id", session.IntentID),
				zap.Error(err))
		}
	}

	intentID := session.IntentID
	session.State = models.StateAbandoned
	session.IntentID = ""
	session.ClientSecret = ""
	session.UpdatedAt = time.Now().UTC()

	if err := s.sessions.SaveSession(ctx, session, s.sessionTTL); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	util.CheckoutsAbandonedTotal.Inc()

	event := &models.CheckoutAbandonedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCheckoutAbandoned,
			Timestamp: time.Now().UTC(),
		},
		SessionID: session.ID,
		IntentID:  intentID,
	}
	if err := s.publisher.PublishCheckoutAbandoned(ctx, event); err != nil {
		s.logger.Error("Failed to publish CheckoutAbandoned event", zap.Error(err))
	}

	return nil
}

func (s *CheckoutService) loadSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, redisclient.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}
