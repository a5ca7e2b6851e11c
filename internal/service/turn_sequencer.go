package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TurnSequencer asigna numeros de turno y descarta resultados de turnos superados.
type TurnSequencer interface {
	Next(ctx context.Context, sessionID string) (int64, error)
	// Commit registra seq para la relacion; devuelve false si ya se aplico uno mas nuevo.
	Commit(ctx context.Context, relationship string, seq int64) (bool, error)
}

type memoryTurnSequencer struct {
	mu        sync.Mutex
	next      map[string]int64
	committed map[string]int64
}

func NewMemoryTurnSequencer() TurnSequencer {
	return &memoryTurnSequencer{
		next:      make(map[string]int64),
		committed: make(map[string]int64),
	}
}

func (s *memoryTurnSequencer) Next(_ context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[sessionID]++
	return s.next[sessionID], nil
}

func (s *memoryTurnSequencer) Commit(_ context.Context, relationship string, seq int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.committed[relationship] {
		return false, nil
	}
	s.committed[relationship] = seq
	return true, nil
}

// redisCommitScript guarda seq solo si supera el valor almacenado.
const redisCommitScript = `
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local seq = tonumber(ARGV[1])
if seq > current then
  redis.call("SET", KEYS[1], ARGV[1])
  return 1
end
return 0
`

type redisSequencerClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisTurnSequencer struct {
	client redisSequencerClient
	prefix string
}

// NewRedisTurnSequencer comparte la secuencia entre replicas del servicio.
func NewRedisTurnSequencer(client *redis.Client) TurnSequencer {
	if client == nil {
		return nil
	}
	return &redisTurnSequencer{
		client: client,
		prefix: "affection:seq:",
	}
}

func (s *redisTurnSequencer) Next(ctx context.Context, sessionID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Incr(ctx, s.prefix+"next:"+strings.TrimSpace(sessionID)).Result()
}

// Commit falla abierto: ante error de redis deja pasar el turno y devuelve el error para loguearlo.
func (s *redisTurnSequencer) Commit(ctx context.Context, relationship string, seq int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	n, err := s.client.Eval(ctx, redisCommitScript, []string{s.prefix + "applied:" + relationship}, seq).Int()
	if err != nil {
		return true, err
	}
	return n == 1, nil
}
