package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRevocationClient struct {
	lastSetKey string
	lastSetTTL time.Duration
	lastExists []string

	setErr    error
	existsErr error
	existsN   int64
}

func (m *mockRevocationClient) Set(ctx context.Context, key string, _ interface{}, expiration time.Duration) *redis.StatusCmd {
	m.lastSetKey = key
	m.lastSetTTL = expiration
	cmd := redis.NewStatusCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRevocationClient) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastExists = keys
	cmd := redis.NewIntCmd(ctx)
	if m.existsErr != nil {
		cmd.SetErr(m.existsErr)
		return cmd
	}
	cmd.SetVal(m.existsN)
	return cmd
}

func TestMemoryTokenRevocationStore_Expires(t *testing.T) {
	store := NewMemoryTokenRevocationStore()

	ok, err := store.IsRevoked("missing")
	if err != nil || ok {
		t.Fatalf("expected missing jti false,nil; got %v,%v", ok, err)
	}
	if err := store.Revoke("jti-1", 50*time.Millisecond); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	ok, err = store.IsRevoked("jti-1")
	if err != nil || !ok {
		t.Fatalf("expected revoked, got %v,%v", ok, err)
	}

	time.Sleep(70 * time.Millisecond)
	ok, err = store.IsRevoked("jti-1")
	if err != nil || ok {
		t.Fatalf("expected revocation expired, got %v,%v", ok, err)
	}
}

func TestRedisTokenRevocationStore_Basics(t *testing.T) {
	mock := &mockRevocationClient{existsN: 1}
	store := &redisTokenRevocationStore{client: mock, prefix: "affection:revoked:"}

	if err := store.Revoke(" j1 ", time.Minute); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if mock.lastSetKey != "affection:revoked:j1" || mock.lastSetTTL != time.Minute {
		t.Fatalf("unexpected set: %q %v", mock.lastSetKey, mock.lastSetTTL)
	}
	ok, err := store.IsRevoked(" j1 ")
	if err != nil || !ok {
		t.Fatalf("expected revoked true,nil; got %v,%v", ok, err)
	}
	if len(mock.lastExists) != 1 || mock.lastExists[0] != "affection:revoked:j1" {
		t.Fatalf("unexpected exists key: %+v", mock.lastExists)
	}
}

func TestRedisTokenRevocationStore_ErrorPathsAndEmptyJTI(t *testing.T) {
	mock := &mockRevocationClient{
		setErr:    errors.New("set failed"),
		existsErr: errors.New("exists failed"),
	}
	store := &redisTokenRevocationStore{client: mock, prefix: "affection:revoked:"}

	if err := store.Revoke("", time.Minute); err != nil {
		t.Fatalf("empty jti revoke should be no-op, got %v", err)
	}
	if ok, err := store.IsRevoked(""); err != nil || ok {
		t.Fatalf("empty jti should be false,nil; got %v,%v", ok, err)
	}
	if err := store.Revoke("j2", time.Minute); err == nil {
		t.Fatalf("expected revoke error")
	}
	if _, err := store.IsRevoked("j2"); err == nil {
		t.Fatalf("expected exists error")
	}
}
