package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"affection-tracker/internal/domain"
)

// SessionStore persiste el snapshot de cada sesion entre turnos.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, bool, error)
	Save(ctx context.Context, snapshot domain.SessionSnapshot) error
}

type memorySessionStore struct {
	mu    sync.Mutex
	items map[string][]byte
}

func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		items: make(map[string][]byte),
	}
}

func (s *memorySessionStore) Load(_ context.Context, sessionID string) (domain.SessionSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.items[sessionID]
	if !ok {
		return domain.SessionSnapshot{}, false, nil
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.SessionSnapshot{}, false, err
	}
	return snap, true, nil
}

// Save guarda una copia serializada para que el llamador no comparta mapas con el store.
func (s *memorySessionStore) Save(_ context.Context, snapshot domain.SessionSnapshot) error {
	if strings.TrimSpace(snapshot.ID) == "" {
		return nil
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[snapshot.ID] = raw
	return nil
}

type redisKVClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type redisSessionStore struct {
	client redisKVClient
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore guarda snapshots como JSON bajo "affection:session:<id>".
// ttl 0 significa sin expiracion.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) SessionStore {
	if client == nil {
		return nil
	}
	return &redisSessionStore{
		client: client,
		prefix: "affection:session:",
		ttl:    ttl,
	}
}

func (s *redisSessionStore) Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.SessionSnapshot{}, false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	raw, err := s.client.Get(ctx, s.prefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SessionSnapshot{}, false, nil
	}
	if err != nil {
		return domain.SessionSnapshot{}, false, err
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.SessionSnapshot{}, false, err
	}
	return snap, true, nil
}

func (s *redisSessionStore) Save(ctx context.Context, snapshot domain.SessionSnapshot) error {
	if strings.TrimSpace(snapshot.ID) == "" {
		return nil
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+snapshot.ID, raw, s.ttl).Err()
}
