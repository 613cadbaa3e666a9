package runlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLocker(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, ttl), mr
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Connect(ctx, addr); err == nil {
		t.Error("Connect() to a stopped server should fail")
	}
}

func TestRedis_AcquireRelease(t *testing.T) {
	locker, mr := newRedisLocker(t, time.Minute)
	ctx := context.Background()
	key := keyPrefix + "bulk-sync"

	release, err := locker.Acquire(ctx, "bulk-sync")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !mr.Exists(key) {
		t.Fatalf("key %s not set", key)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}

	if _, err := locker.Acquire(ctx, "bulk-sync"); !errors.Is(err, ErrHeld) {
		t.Fatalf("second Acquire() error = %v, want ErrHeld", err)
	}

	// Other names are independent.
	releaseOther, err := locker.Acquire(ctx, "other")
	if err != nil {
		t.Fatalf("Acquire(other) error = %v", err)
	}
	releaseOther()

	release()
	release()
	if mr.Exists(key) {
		t.Error("key still set after release")
	}

	release, err = locker.Acquire(ctx, "bulk-sync")
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	release()
}

func TestRedis_ReleaseKeepsReplacedLock(t *testing.T) {
	locker, mr := newRedisLocker(t, time.Minute)
	key := keyPrefix + "bulk-sync"

	release, err := locker.Acquire(context.Background(), "bulk-sync")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// The lock expired and another replica took it.
	if err := mr.Set(key, "other-replica"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	release()

	got, err := mr.Get(key)
	if err != nil || got != "other-replica" {
		t.Errorf("key = %q, %v; want the other replica's token kept", got, err)
	}
}

func TestRedis_ExpiredLockCanBeRetaken(t *testing.T) {
	locker, mr := newRedisLocker(t, time.Minute)
	ctx := context.Background()

	crashed, err := locker.Acquire(ctx, "bulk-sync")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	release, err := locker.Acquire(ctx, "bulk-sync")
	if err != nil {
		t.Fatalf("Acquire() after expiry error = %v", err)
	}
	crashed()
	if !mr.Exists(keyPrefix + "bulk-sync") {
		t.Error("stale holder released the new holder's lock")
	}
	release()
}

func TestRedis_RefreshesWhileHeld(t *testing.T) {
	const ttl = 300 * time.Millisecond
	locker, mr := newRedisLocker(t, ttl)
	key := keyPrefix + "bulk-sync"

	release, err := locker.Acquire(context.Background(), "bulk-sync")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer release()

	mr.FastForward(250 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for mr.TTL(key) <= 250*time.Millisecond {
		if time.Now().After(deadline) {
			t.Fatalf("TTL = %v, want refreshed towards %v", mr.TTL(key), ttl)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !mr.Exists(key) {
		t.Error("lock lost while held")
	}
}

func TestNewRedis_DefaultTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	if got := NewRedis(client, 0).ttl; got != defaultTTL {
		t.Errorf("ttl = %v, want %v", got, defaultTTL)
	}
}
