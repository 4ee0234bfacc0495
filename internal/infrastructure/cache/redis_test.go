package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	value, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCacheGetSet(t *testing.T) {
	t.Parallel()

	fake := &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
	c := newRedisCache(fake, 24*time.Hour)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "translation:together:mistral-7b:title:abc"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, "translation:together:mistral-7b:title:abc", "Rates rise"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if fake.ttls["translation:together:mistral-7b:title:abc"] != 24*time.Hour {
		t.Fatalf("unexpected ttl %v", fake.ttls["translation:together:mistral-7b:title:abc"])
	}

	value, ok, err := c.Get(ctx, "translation:together:mistral-7b:title:abc")
	if err != nil || !ok || value != "Rates rise" {
		t.Fatalf("unexpected hit %q ok=%v err=%v", value, ok, err)
	}
}

func TestRedisCachePropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	c := newRedisCache(&fakeRedis{err: boom}, time.Hour)

	if _, _, err := c.Get(context.Background(), "k"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if err := c.Set(context.Background(), "k", "v"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
