package dedup

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryStore_ReserveOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "msg_1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first Reserve = %v, %v; want true", ok, err)
	}
	ok, _ = store.Reserve(ctx, "msg_1", time.Minute)
	if ok {
		t.Error("second Reserve should report already reserved")
	}
	ok, _ = store.Reserve(ctx, "msg_2", time.Minute)
	if !ok {
		t.Error("a different key should reserve")
	}
}

func TestMemoryStore_ExpiredReservationCanBeRetaken(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.nowF = func() time.Time { return now }
	ctx := context.Background()

	_, _ = store.Reserve(ctx, "msg_1", time.Minute)
	now = now.Add(2 * time.Minute)
	ok, _ := store.Reserve(ctx, "msg_1", time.Minute)
	if !ok {
		t.Error("Reserve should succeed after ttl elapsed")
	}
}

func TestMemoryStore_Release(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, _ = store.Reserve(ctx, "msg_1", time.Minute)
	if err := store.Release(ctx, "msg_1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	ok, _ := store.Reserve(ctx, "msg_1", time.Minute)
	if !ok {
		t.Error("Reserve should succeed after Release")
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestMemoryStore_ConcurrentReserveHasOneWinner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.Reserve(ctx, "msg_race", time.Minute); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("wins = %d, want 1", wins)
	}
}

func TestRedisStore_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, os.Getenv("REDIS_PASSWORD"))
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer client.Close()
	store := NewRedisStore(client)
	key := "test_" + time.Now().Format(time.RFC3339Nano)
	defer store.Release(ctx, key)

	ok, err := store.Reserve(ctx, key, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first Reserve = %v, %v", ok, err)
	}
	ok, err = store.Reserve(ctx, key, time.Minute)
	if err != nil || ok {
		t.Errorf("second Reserve = %v, %v; want false", ok, err)
	}
}
