package kv

import (
	"context"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type memEntry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// MemoryStore is an in-process Store. All methods are safe for concurrent use.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memEntry
	now  func() time.Time
}

// NewMemoryStore creates an empty store using the wall clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock lets tests drive expiry.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{data: make(map[string]memEntry), now: now}
}

// lookupLocked returns the live entry at key, evicting it if expired.
func (m *MemoryStore) lookupLocked(key string, now time.Time) (memEntry, bool) {
	e, ok := m.data[key]
	if !ok {
		return memEntry{}, false
	}
	if e.expired(now) {
		delete(m.data, key)
		return memEntry{}, false
	}
	return e, true
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookupLocked(key, m.now())
	if !ok {
		return nil, ErrNil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	e := memEntry{value: stored}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.data[key] = e
	return nil
}

func (m *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookupLocked(key, m.now())
	var n int64
	if ok {
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, errors.Errorf("kv: value at %q is not an integer", key)
		}
		n = parsed
	}
	n++
	e.value = []byte(strconv.FormatInt(n, 10))
	m.data[key] = e
	return n, nil
}

func (m *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.lookupLocked(key, now)
	if !ok {
		return false, nil
	}
	if ttl <= 0 {
		delete(m.data, key)
		return true, nil
	}
	e.expires = now.Add(ttl)
	m.data[key] = e
	return true, nil
}

func (m *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.lookupLocked(key, now)
	if !ok {
		return 0, ErrNil
	}
	if e.expires.IsZero() {
		return NoExpiry, nil
	}
	return e.expires.Sub(now), nil
}

func (m *MemoryStore) Scan(_ context.Context, pattern string) ([]string, error) {
	prefix, plain := prefixPattern(pattern)
	if !plain {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, errors.Wrapf(err, "kv: bad pattern %q", pattern)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var keys []string
	for k, e := range m.data {
		if e.expired(now) {
			continue
		}
		if plain {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
			continue
		}
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *MemoryStore) Del(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var n int64
	for _, k := range keys {
		if _, ok := m.lookupLocked(k, now); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

// Sweep drops expired entries and returns how many were removed. Reads evict
// lazily; Sweep bounds memory held by keys nobody reads again.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, e := range m.data {
		if e.expired(now) {
			delete(m.data, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// prefixPattern reports whether pattern is "<literal>*" and returns the literal.
func prefixPattern(pattern string) (string, bool) {
	if !strings.HasSuffix(pattern, "*") {
		return "", false
	}
	prefix := strings.TrimSuffix(pattern, "*")
	if strings.ContainsAny(prefix, `*?[\`) {
		return "", false
	}
	return prefix, true
}
