package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisEvaler struct {
	lastScript string
	lastKeys   []string
	lastArgs   []interface{}
	result     int64
	err        error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.result)
	return cmd
}

func TestMemoryClassifyRateLimiter(t *testing.T) {
	l := NewMemoryClassifyRateLimiter(time.Minute, 2)
	ctx := context.Background()
	if !l.Allow(ctx, "s1") || !l.Allow(ctx, "s1") {
		t.Fatalf("expected first two calls allowed")
	}
	if l.Allow(ctx, "s1") {
		t.Fatalf("expected third call denied")
	}
	if !l.Allow(ctx, "s2") {
		t.Fatalf("expected independent key allowed")
	}
}

func TestRedisClassifyRateLimiterAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("nil receiver fail-open", func(t *testing.T) {
		var l *redisClassifyRateLimiter
		if !l.Allow(ctx, "s1") {
			t.Fatalf("expected fail-open for nil limiter")
		}
	})

	t.Run("empty key rejected", func(t *testing.T) {
		l := &redisClassifyRateLimiter{client: &mockRedisEvaler{result: 1}, window: time.Minute, max: 3, prefix: "affection:rl:"}
		if l.Allow(ctx, "   ") {
			t.Fatalf("expected empty key to be rejected")
		}
	})

	t.Run("allow when count within max", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 2}
		l := &redisClassifyRateLimiter{client: mock, window: 2 * time.Minute, max: 3, prefix: "affection:rl:"}
		if !l.Allow(ctx, " s1 ") {
			t.Fatalf("expected allow when count <= max")
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "affection:rl:s1" {
			t.Fatalf("unexpected key, got %+v", mock.lastKeys)
		}
		if len(mock.lastArgs) != 1 || mock.lastArgs[0] != 120 {
			t.Fatalf("expected TTL seconds=120, got %+v", mock.lastArgs)
		}
		if mock.lastScript != redisClassifyAllowScript {
			t.Fatalf("expected script to match")
		}
	})

	t.Run("deny when count exceeds max", func(t *testing.T) {
		l := &redisClassifyRateLimiter{client: &mockRedisEvaler{result: 4}, window: time.Minute, max: 3, prefix: "affection:rl:"}
		if l.Allow(ctx, "s1") {
			t.Fatalf("expected deny when count > max")
		}
	})

	t.Run("redis error fail-open", func(t *testing.T) {
		l := &redisClassifyRateLimiter{client: &mockRedisEvaler{err: errors.New("redis down")}, window: time.Minute, max: 3, prefix: "affection:rl:"}
		if !l.Allow(ctx, "s1") {
			t.Fatalf("expected fail-open on redis errors")
		}
	})
}
