package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"compliance-service/internal/models"

	"github.com/redis/go-redis/v9"
)

// PaymentContext carries the contact and feature details of an in-flight
// payment as an explicit value object. Persistence goes through a
// ContextStore collaborator; the gate itself holds no ambient state.
type PaymentContext struct {
	TransactionID string               `json:"transaction_id"`
	AgentID       string               `json:"agent_id,omitempty"`
	FeatureName   string               `json:"feature_name"`
	Phone         string               `json:"phone,omitempty"`
	Email         string               `json:"email,omitempty"`
	Method        models.PaymentMethod `json:"method,omitempty"`
	SavedAt       time.Time            `json:"saved_at"`
}

// ContextStore persists payment contexts keyed by transaction id.
type ContextStore interface {
	Save(ctx context.Context, pc PaymentContext) error
	Load(ctx context.Context, transactionID string) (*PaymentContext, error)
	Delete(ctx context.Context, transactionID string) error
}

// RedisContextStore stores payment contexts in Redis with a TTL that
// comfortably outlives the longest confirmation poll.
type RedisContextStore struct {
	client *redis.Client
	ttl    time.Duration
}

const defaultContextTTL = 6 * time.Hour

func NewRedisContextStore(client *redis.Client, ttl time.Duration) *RedisContextStore {
	if ttl <= 0 {
		ttl = defaultContextTTL
	}
	return &RedisContextStore{client: client, ttl: ttl}
}

func contextKey(transactionID string) string {
	return fmt.Sprintf("%s--PaymentContext", transactionID)
}

func (s *RedisContextStore) Save(ctx context.Context, pc PaymentContext) error {
	data, err := json.Marshal(pc)
	if err != nil {
		return fmt.Errorf("failed to marshal payment context: %w", err)
	}

	if err := s.client.Set(ctx, contextKey(pc.TransactionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save payment context: %w", err)
	}
	return nil
}

func (s *RedisContextStore) Load(ctx context.Context, transactionID string) (*PaymentContext, error) {
	data, err := s.client.Get(ctx, contextKey(transactionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("payment context not found for %s", transactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment context: %w", err)
	}

	var pc PaymentContext
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment context: %w", err)
	}
	return &pc, nil
}

func (s *RedisContextStore) Delete(ctx context.Context, transactionID string) error {
	if err := s.client.Del(ctx, contextKey(transactionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete payment context: %w", err)
	}
	return nil
}
