// Package kv is the shared key-value store used for calendar caching and rate
// limiting. Two backends satisfy Store: an in-process MemoryStore for single-node
// deployments and tests, and RedisStore for deployments where several processes
// must share counters and cache entries.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNil is returned by Get when the key does not exist or has expired.
var ErrNil = errors.New("kv: key not found")

// NoExpiry is returned by TTL for a key that exists but has no expiry set.
const NoExpiry time.Duration = -1

// Store is the capability surface the planner core needs from a key-value store.
// Every operation is individually atomic; nothing ties two calls together.
type Store interface {
	// Get returns the raw value at key or ErrNil.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites key with value. A ttl <= 0 stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Incr atomically increments the integer at key, creating it at 0 first
	// when absent, and returns the post-increment value. Existing expiry is kept.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets the expiry of an existing key. Reports false when key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// TTL returns the remaining time to live, NoExpiry when none is set, or ErrNil.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Scan returns all keys matching a glob pattern. Only a trailing '*' is
	// relied upon by callers.
	Scan(ctx context.Context, pattern string) ([]string, error)

	// Del removes keys in one operation and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
