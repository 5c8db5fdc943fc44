package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedisStore struct {
	values  map[string]string
	setErr  error
	getErr  error
	deleted []string
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{values: map[string]string{}}
}

func (f *fakeRedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, held := f.values[key]; held {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedisStore) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeRedisStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func TestRedisLockAcquireAndRelease(t *testing.T) {
	store := newFakeRedisStore()
	lock, err := NewRedisLock(store, "cron:test", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	ok, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Fatal("expected to acquire a free lock")
	}

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(store.values) != 0 {
		t.Fatalf("lock key should be deleted, got %v", store.values)
	}
}

func TestRedisLockSecondAcquireIsRefused(t *testing.T) {
	store := newFakeRedisStore()
	first, err := NewRedisLock(store, "cron:test", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, err := NewRedisLock(store, "cron:test", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	if ok, _ := first.Acquire(context.Background()); !ok {
		t.Fatal("first acquire should succeed")
	}
	ok, err := second.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if ok {
		t.Fatal("second acquire must be refused while held")
	}
}

func TestRedisLockReleaseOnlyDeletesOwnValue(t *testing.T) {
	store := newFakeRedisStore()
	lock, err := NewRedisLock(store, "cron:test", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("acquire should succeed")
	}

	// TTL fired and another replica took the lock
	store.values["cron:test"] = "someone-else"
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if store.values["cron:test"] != "someone-else" {
		t.Fatal("release must not delete another owner's lock")
	}
}

func TestRedisLockReleaseToleratesExpiredKey(t *testing.T) {
	store := newFakeRedisStore()
	lock, err := NewRedisLock(store, "cron:test", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("acquire should succeed")
	}

	delete(store.values, "cron:test")
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("expected expired key to be tolerated, got %v", err)
	}
}

func TestRedisLockConstruction(t *testing.T) {
	if _, err := NewRedisLock(nil, "key", time.Minute); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewRedisLock(newFakeRedisStore(), "", time.Minute); err == nil {
		t.Fatal("expected error for empty key")
	}
}
