package services

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/case-engine/pkg/casestate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	svc, err := NewRedisService("redis://"+mr.Addr(), logger)
	if err != nil {
		t.Fatalf("Failed to create redis service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc, mr
}

func TestRedisService_Basic(t *testing.T) {
	svc, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := svc.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	key := "test:key:123"
	if err := svc.Set(ctx, key, "test value", time.Minute); err != nil {
		t.Fatalf("Failed to set key: %v", err)
	}

	got, err := svc.Get(ctx, key)
	if err != nil {
		t.Fatalf("Failed to get key: %v", err)
	}
	if got != "test value" {
		t.Errorf("Expected 'test value', got '%s'", got)
	}

	exists, err := svc.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Failed to check if key exists: %v", err)
	}
	if !exists {
		t.Error("Key should exist")
	}

	if err := svc.Del(ctx, key); err != nil {
		t.Fatalf("Failed to delete key: %v", err)
	}

	got, err = svc.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get on missing key should not error: %v", err)
	}
	if got != "" {
		t.Errorf("Expected empty string for missing key, got '%s'", got)
	}
}

func TestNewRedisService_HostPort(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	svc, err := NewRedisService(mr.Addr(), nil)
	require.NoError(t, err)
	defer svc.Close()
	require.NoError(t, svc.WaitForConnection(context.Background(), 3, 10*time.Millisecond))
}

func TestNewRedisService_ClientTimeouts(t *testing.T) {
	tests := []struct {
		name string
		url  string
		read time.Duration
	}{
		{"defaults", "localhost:6379", readTimeout},
		{"url keeps its own", "redis://localhost:6379?read_timeout=3s", 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewRedisService(tt.url, nil)
			require.NoError(t, err)
			defer svc.Close()

			opt := svc.GetClient().Options()
			assert.Equal(t, tt.read, opt.ReadTimeout)
			assert.Equal(t, dialTimeout, opt.DialTimeout)
			assert.Equal(t, writeTimeout, opt.WriteTimeout)
			assert.Equal(t, maxRetries, opt.MaxRetries)
		})
	}
}

func TestWaitForConnection_GivesUp(t *testing.T) {
	svc, mr := setupTestRedis(t)
	mr.Close()

	err := svc.WaitForConnection(context.Background(), 2, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestSnapshotStore(t *testing.T) {
	svc, mr := setupTestRedis(t)
	store := NewSnapshotStore(svc)
	ctx := context.Background()

	_, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	state := casestate.New()
	state.SetFlag("usedCoke", true)
	state.IncrementCounter("whiskersCheeseCount", 2)
	require.NoError(t, store.Save(ctx, "s1", state.Snapshot()))
	assert.True(t, mr.Exists("case-state:s1"))
	assert.Equal(t, snapshotTTL, mr.TTL("case-state:s1"))

	snap, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, snap.Flags["usedCoke"])
	assert.Equal(t, 2, snap.Counters["whiskersCheeseCount"])

	require.NoError(t, store.Delete(ctx, "s1"))
	_, ok, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}
