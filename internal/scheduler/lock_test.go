package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedisStore struct {
	values map[string]string
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{values: make(map[string]string)}
}

func (f *fakeRedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, exists := f.values[key]; exists {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedisStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeRedisStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLockAcquireRelease(t *testing.T) {
	store := newFakeRedisStore()
	lock, err := NewRedisLock(store, "sw:lock:restock_check", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}

	other, _ := NewRedisLock(store, "sw:lock:restock_check", time.Minute)
	ok, err = other.Acquire(ctx)
	if err != nil || ok {
		t.Fatalf("second acquire must fail while held: ok=%v err=%v", ok, err)
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = other.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestRedisLockReleaseOnlyWhenOwned(t *testing.T) {
	store := newFakeRedisStore()
	ctx := context.Background()

	holder, _ := NewRedisLock(store, "sw:lock:restock_check", time.Minute)
	if ok, _ := holder.Acquire(ctx); !ok {
		t.Fatal("holder failed to acquire")
	}

	// A lock instance that never acquired must not free another's hold.
	bystander, _ := NewRedisLock(store, "sw:lock:restock_check", time.Minute)
	if err := bystander.Release(ctx); err != nil {
		t.Fatalf("bystander release: %v", err)
	}
	if _, exists := store.values["sw:lock:restock_check"]; !exists {
		t.Fatal("release by a non-owner removed the lock")
	}
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	store := newFakeRedisStore()
	ctx := context.Background()

	lock, _ := NewRedisLock(store, "sw:lock:restock_check", time.Minute)
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("acquire failed")
	}

	// Simulate TTL expiry plus takeover by another process.
	delete(store.values, "sw:lock:restock_check")
	store.values["sw:lock:restock_check"] = "someone-else"

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["sw:lock:restock_check"] != "someone-else" {
		t.Fatal("release removed a lock owned by another process")
	}
}

func TestNewRedisLockValidation(t *testing.T) {
	if _, err := NewRedisLock(nil, "key", time.Minute); err == nil {
		t.Fatal("expected error without client")
	}
	if _, err := NewRedisLock(newFakeRedisStore(), "", time.Minute); err == nil {
		t.Fatal("expected error without key")
	}
}
