package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/claim_idempotency.lua
var claimIdempotencyScript string

// ErrSessionNotFound is returned when a checkout session does not exist or
// its TTL has expired. An expired session is treated as abandoned.
var ErrSessionNotFound = errors.New("checkout session not found")

type Client struct {
	rdb         *redis.Client
	claimScript *redis.Script
}

// NewClient creates a new Redis client with the idempotency script loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:         rdb,
		claimScript: redis.NewScript(claimIdempotencyScript),
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func sessionKey(id string) string {
	return fmt.Sprintf("checkout:session:%s", id)
}

// SaveSession stores a checkout session with a TTL
func (c *Client) SaveSession(ctx context.Context, session *models.CheckoutSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return c.rdb.Set(ctx, sessionKey(session.ID), payload, ttl).Err()
}

// GetSession retrieves a checkout session
func (c *Client) GetSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	payload, err := c.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session models.CheckoutSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// ClaimIdempotencyKey atomically claims an idempotency key for a session.
// Returns the session ID that owns the key: the caller's own ID on a fresh
// claim, someone else's when the key was already taken.
func (c *Client) ClaimIdempotencyKey(ctx context.Context, key, sessionID string, ttl time.Duration) (string, error) {
	redisKey := fmt.Sprintf("checkout:idempotency:%s", key)

	result, err := c.claimScript.Run(ctx, c.rdb, []string{redisKey}, sessionID, ttl.Milliseconds()).Result()
	if err != nil {
		return "", fmt.Errorf("idempotency claim script failed: %w", err)
	}

	owner, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected script result type %T", result)
	}
	return owner, nil
}

// AcquireLock acquires a per-session submit lock. Serializes concurrent
// shipping submissions (double-click, parallel tabs) for one session.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("checkout:lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a submit lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("checkout:lock:%s", lockKey)).Err()
}
