package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Deduper claims keys for a bounded time so a notification is sent once per key.
type Deduper interface {
	// Claim reports true if key was not claimed within ttl, and claims it.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops a claim so the key can be claimed again.
	Release(ctx context.Context, key string) error
}

const redisKeyPrefix = "notify:"

// RedisDeduper claims keys with SET NX so every instance shares the claims.
type RedisDeduper struct {
	client redis.UniversalClient
}

// NewRedisDeduper creates a Redis-backed Deduper.
func NewRedisDeduper(client redis.UniversalClient) *RedisDeduper {
	return &RedisDeduper{client: client}
}

// Claim sets the key if absent with the given expiry.
func (d *RedisDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, redisKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim key in redis: %w", err)
	}
	return ok, nil
}

// Release deletes the key.
func (d *RedisDeduper) Release(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release key in redis: %w", err)
	}
	return nil
}

// MemoryDeduper claims keys in process memory. Claims are lost on restart.
type MemoryDeduper struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	expires map[string]time.Time
}

// NewMemoryDeduper creates an in-memory Deduper.
func NewMemoryDeduper(clock clockwork.Clock) *MemoryDeduper {
	return &MemoryDeduper{
		clock:   clock,
		expires: make(map[string]time.Time),
	}
}

// Claim records the key until now+ttl.
func (d *MemoryDeduper) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	if until, ok := d.expires[key]; ok && now.Before(until) {
		return false, nil
	}

	// Drop expired claims as we go.
	for k, until := range d.expires {
		if !now.Before(until) {
			delete(d.expires, k)
		}
	}

	d.expires[key] = now.Add(ttl)
	return true, nil
}

// Release forgets the key.
func (d *MemoryDeduper) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.expires, key)
	return nil
}
