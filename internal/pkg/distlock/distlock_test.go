package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLockMutualExclusion(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "job-1", time.Minute)
	b := NewRedisLock(client, "job-1", time.Minute)

	ok, err := a.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first Acquire() = %v, %v; want true, nil", ok, err)
	}

	ok, err = b.Acquire(ctx)
	if err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if ok {
		t.Error("second Acquire() succeeded while lock held")
	}

	if err := a.Release(ctx); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	ok, err = b.Acquire(ctx)
	if err != nil || !ok {
		t.Errorf("Acquire() after release = %v, %v; want true, nil", ok, err)
	}
}

func TestRedisLockReleaseOnlyOwn(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "job-2", time.Minute)
	b := NewRedisLock(client, "job-2", time.Minute)

	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatal("Acquire() failed")
	}

	// b never held the lock; releasing must not free a's lock.
	if err := b.Release(ctx); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if ok, _ := b.Acquire(ctx); ok {
		t.Error("Acquire() succeeded after foreign release")
	}
}

func TestRedisLockExtend(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "job-3", time.Second)
	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatal("Acquire() failed")
	}
	if err := a.Extend(ctx, time.Minute); err != nil {
		t.Fatalf("Extend() error = %v", err)
	}
}

func TestNewLockPicksBackend(t *testing.T) {
	client := newTestRedis(t)

	if _, ok := NewLock(client, nil, "k", time.Minute).(*RedisLock); !ok {
		t.Error("NewLock() with redis client did not return RedisLock")
	}
	if _, ok := NewLock(nil, nil, "k", time.Minute).(*PGAdvisoryLock); !ok {
		t.Error("NewLock() without redis client did not return PGAdvisoryLock")
	}
}
