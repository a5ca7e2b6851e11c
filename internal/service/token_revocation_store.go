package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRevocationStore guarda los jti de tokens de host revocados.
type TokenRevocationStore interface {
	Revoke(jti string, ttl time.Duration) error
	IsRevoked(jti string) (bool, error)
}

type memoryTokenRevocationStore struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func NewMemoryTokenRevocationStore() TokenRevocationStore {
	return &memoryTokenRevocationStore{
		items: make(map[string]time.Time),
	}
}

func (s *memoryTokenRevocationStore) Revoke(jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(jti) == "" || ttl <= 0 {
		return nil
	}
	s.items[jti] = time.Now().UTC().Add(ttl)
	return nil
}

func (s *memoryTokenRevocationStore) IsRevoked(jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.items[jti]
	if !ok {
		return false, nil
	}
	if time.Now().UTC().After(exp) {
		delete(s.items, jti)
		return false, nil
	}
	return true, nil
}

type redisRevocationClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisTokenRevocationStore struct {
	client redisRevocationClient
	prefix string
}

func NewRedisTokenRevocationStore(client *redis.Client) TokenRevocationStore {
	if client == nil {
		return nil
	}
	return &redisTokenRevocationStore{
		client: client,
		prefix: "affection:revoked:",
	}
}

func (s *redisTokenRevocationStore) Revoke(jti string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" || ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+jti, "1", ttl).Err()
}

func (s *redisTokenRevocationStore) IsRevoked(jti string) (bool, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
