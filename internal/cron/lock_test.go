package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goredis "github.com/redis/go-redis/v9"
)

// fakeRedis is an in-memory stand-in for the SETNX/GET/DEL triple the
// lock uses.
type fakeRedis struct {
	values map[string]string
	setErr error
	getErr error
	delErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, held := f.values[key]; held {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	if f.delErr != nil {
		return f.delErr
	}
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLockAcquireAndRelease(t *testing.T) {
	store := newFakeRedis()
	lock, err := NewRedisLock(store, "rl:cron:test", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second instance cannot take the held lock.
	other, err := NewRedisLock(store, "rl:cron:test", time.Minute)
	require.NoError(t, err)
	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx))
	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseOnlyByOwner(t *testing.T) {
	store := newFakeRedis()
	lock, err := NewRedisLock(store, "rl:cron:test", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// Simulate the TTL expiring and another instance grabbing the key.
	store.values["rl:cron:test"] = "someone-else"
	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "someone-else", store.values["rl:cron:test"], "another owner's lock must survive")
}

func TestRedisLockReleaseToleratesMissingKey(t *testing.T) {
	store := newFakeRedis()
	lock, err := NewRedisLock(store, "rl:cron:test", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	delete(store.values, "rl:cron:test")
	require.NoError(t, lock.Release(ctx))
}

func TestRedisLockValidation(t *testing.T) {
	_, err := NewRedisLock(nil, "key", time.Minute)
	require.Error(t, err)

	_, err = NewRedisLock(newFakeRedis(), "", time.Minute)
	require.Error(t, err)

	store := newFakeRedis()
	store.setErr = errors.New("redis down")
	lock, err := NewRedisLock(store, "key", time.Minute)
	require.NoError(t, err)
	_, err = lock.Acquire(context.Background())
	require.Error(t, err)
}
