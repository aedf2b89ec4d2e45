// Package cache is a typed cache-aside helper over a kv.Store.
//
// Values are JSON encoded. Decoding is strict: unknown fields or a mismatched
// shape produce an errs.KindCacheDecode error instead of a silent miss, since a
// mismatch means the writer and the reader disagree on the schema.
package cache

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"

	"task-planner/internal/errs"
	"task-planner/internal/kv"
)

// DefaultTTL is how long calendar pages live unless configured otherwise.
const DefaultTTL = time.Hour

var codec = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	DisallowUnknownFields:  true,
}.Froze()

// Cache stores values of one concrete type T.
type Cache[T any] struct {
	store kv.Store
	ttl   time.Duration
}

// New returns a cache for T with the given default ttl.
func New[T any](store kv.Store, ttl time.Duration) *Cache[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[T]{store: store, ttl: ttl}
}

// TTL is the default expiry used by Set.
func (c *Cache[T]) TTL() time.Duration { return c.ttl }

// Set overwrites key with value using the default ttl.
func (c *Cache[T]) Set(ctx context.Context, key string, value T) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

func (c *Cache[T]) SetWithTTL(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := codec.Marshal(value)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, key, data, ttl)
}

// Get reports ok=false on a miss. A present value that fails to decode is an
// errs.KindCacheDecode error.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	data, err := c.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	if len(data) == 0 {
		return zero, false, nil
	}

	var v T
	if err := codec.Unmarshal(data, &v); err != nil {
		return zero, false, errs.CacheDecode(key, err)
	}
	return v, true, nil
}

// DeleteByPrefix removes every key of this cache's store under prefix.
func (c *Cache[T]) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	return DeleteByPrefix(ctx, c.store, prefix)
}

// DeleteByPrefix scans prefix* and deletes the matches in one call. It is the
// only invalidation primitive: callers drop whole query families at once.
func DeleteByPrefix(ctx context.Context, store kv.Store, prefix string) (int64, error) {
	keys, err := store.Scan(ctx, prefix+"*")
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return store.Del(ctx, keys...)
}
