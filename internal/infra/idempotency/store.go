package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "webhook-event:"

var (
	// ErrStore возвращается при недоступности хранилища маркеров
	ErrStore = errors.New("idempotency: store unavailable")
)

// Store хранит маркеры обработанных событий вебхуков
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore создает хранилище маркеров
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Acquire ставит маркер события. false означает, что событие уже принято ранее.
func (s *Store) Acquire(ctx context.Context, eventID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: Acquire - setnx %s: %v", ErrStore, eventID, err)
	}
	return ok, nil
}

// Release снимает маркер, чтобы провайдер мог доставить событие повторно
func (s *Store) Release(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, keyPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("%w: Release - del %s: %v", ErrStore, eventID, err)
	}
	return nil
}
