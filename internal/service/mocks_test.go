package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/redisclient"
)

// mockCatalog implements Catalog for testing
type mockCatalog struct {
	products map[int64]models.Product
	err      error
}

func (m *mockCatalog) GetProductsByIDs(_ context.Context, ids []int64) ([]models.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// mockSessionStore implements SessionStore for testing
type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.CheckoutSession
	claims   map[string]string
	lockHeld bool
	saveErr  error
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{
		sessions: make(map[string]*models.CheckoutSession),
		claims:   make(map[string]string),
	}
}

func (m *mockSessionStore) SaveSession(_ context.Context, session *models.CheckoutSession, _ time.Duration) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *mockSessionStore) GetSession(_ context.Context, id string) (*models.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, redisclient.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *mockSessionStore) ClaimIdempotencyKey(_ context.Context, key, sessionID string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.claims[key]; ok {
		return owner, nil
	}
	m.claims[key] = sessionID
	return sessionID, nil
}

func (m *mockSessionStore) AcquireLock(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return !m.lockHeld, nil
}

func (m *mockSessionStore) ReleaseLock(_ context.Context, _ string) error {
	return nil
}

// mockPublisher implements Publisher for testing
type mockPublisher struct {
	mu          sync.Mutex
	authorized  []*models.CheckoutAuthorizedEvent
	abandoned   []*models.CheckoutAbandonedEvent
	placed      []*models.OrderPlacedEvent
	groupFailed []*models.OrderGroupFailedEvent
	err         error
}

func (m *mockPublisher) PublishCheckoutAuthorized(_ context.Context, event *models.CheckoutAuthorizedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authorized = append(m.authorized, event)
	return m.err
}

func (m *mockPublisher) PublishCheckoutAbandoned(_ context.Context, event *models.CheckoutAbandonedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abandoned = append(m.abandoned, event)
	return m.err
}

func (m *mockPublisher) PublishOrderPlaced(_ context.Context, event *models.OrderPlacedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placed = append(m.placed, event)
	return m.err
}

func (m *mockPublisher) PublishOrderGroupFailed(_ context.Context, event *models.OrderGroupFailedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groupFailed = append(m.groupFailed, event)
	return m.err
}

type insertedOrder struct {
	order *models.Order
	items []models.OrderItem
}

// mockOrderStore implements OrderStore for testing
type mockOrderStore struct {
	mu          sync.Mutex
	inserted    []insertedOrder
	failSellers map[int64]error
	processed   map[string]bool
	nextID      int64
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		failSellers: make(map[int64]error),
		processed:   make(map[string]bool),
	}
}

func (m *mockOrderStore) CreateSellerOrder(_ context.Context, order *models.Order, items []models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failSellers[order.SellerID]; ok {
		return err
	}
	m.nextID++
	order.ID = m.nextID
	copied := *order
	m.inserted = append(m.inserted, insertedOrder{order: &copied, items: items})
	return nil
}

func (m *mockOrderStore) GetOrderBySellerAndKey(_ context.Context, sellerID int64, key string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ins := range m.inserted {
		if ins.order.SellerID == sellerID && ins.order.IdempotencyKey == key {
			copied := *ins.order
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockOrderStore) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[eventID], nil
}

func (m *mockOrderStore) MarkEventProcessed(_ context.Context, eventID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[eventID] = true
	return nil
}

func (m *mockOrderStore) ordersForSeller(sellerID int64) []insertedOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []insertedOrder
	for _, ins := range m.inserted {
		if ins.order.SellerID == sellerID {
			out = append(out, ins)
		}
	}
	return out
}

// mockProvider implements PaymentProvider for testing
type mockProvider struct {
	mu         sync.Mutex
	created    int
	cancelled  []string
	err        error
	lastAmount int64
	lastKey    string
}

func (m *mockProvider) CreateIntent(_ context.Context, req *IntentRequest) (*models.PaymentAuthorization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.created++
	m.lastAmount = req.Amount
	m.lastKey = req.IdempotencyKey
	intentID := fmt.Sprintf("pi_test_%d", m.created)
	return &models.PaymentAuthorization{
		IntentID:     intentID,
		ClientSecret: intentID + "_secret",
		Amount:       req.Amount,
	}, nil
}

func (m *mockProvider) CancelIntent(_ context.Context, intentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, intentID)
	return nil
}
