// Package ratelimit implements a fixed-window request counter on a shared kv.Store.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"task-planner/internal/errs"
	"task-planner/internal/kv"
)

const keyPrefix = "rate_limit:"

// Identity is the caller a counter belongs to: "user:<id>" or "ip:<addr>".
type Identity string

func UserIdentity(userID uint) Identity {
	return Identity(fmt.Sprintf("user:%d", userID))
}

// IPIdentity strips a port from addr when present.
func IPIdentity(addr string) Identity {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if strings.TrimSpace(addr) == "" {
		addr = "127.0.0.1"
	}
	return Identity("ip:" + addr)
}

// ResolveIdentity prefers the authenticated user and falls back to the client address.
func ResolveIdentity(userID uint, addr string) Identity {
	if userID != 0 {
		return UserIdentity(userID)
	}
	return IPIdentity(addr)
}

// Key is the counter key for route and id.
func Key(route string, id Identity) string {
	return keyPrefix + route + ":" + string(id)
}

// Limiter allows at most limit requests per window for each (route, identity).
type Limiter struct {
	store  kv.Store
	limit  int
	window time.Duration
	log    zerolog.Logger
}

func New(store kv.Store, limit int, window time.Duration, log zerolog.Logger) *Limiter {
	if window < time.Second {
		window = time.Second
	}
	return &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		log:    log.With().Str("component", "ratelimit").Logger(),
	}
}

func (l *Limiter) Limit() int { return l.limit }

func (l *Limiter) Window() time.Duration { return l.window }

func (l *Limiter) windowSeconds() int { return int(l.window / time.Second) }

// Allow counts one request and returns an errs.KindRateLimited error once the
// count for the current window passes the limit.
//
// The window starts when the counter is created: only the increment that
// returns 1 sets the expiry, so later traffic never pushes the boundary out.
// Increment and expire are separate round trips; if the process dies between
// them the counter is left without expiry, and the next request over the limit
// repairs it instead of blocking the caller forever.
func (l *Limiter) Allow(ctx context.Context, route string, id Identity) error {
	key := Key(route, id)

	n, err := l.store.Incr(ctx, key)
	if err != nil {
		return errors.Wrap(err, "rate limit incr")
	}

	if n == 1 {
		if _, err := l.store.Expire(ctx, key, l.window); err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("set window expiry failed")
		}
	}

	if n <= int64(l.limit) {
		return nil
	}

	l.repairLeakedWindow(ctx, key)
	l.log.Debug().Str("key", key).Int64("count", n).Int("limit", l.limit).Msg("rate limit exceeded")
	return errs.RateLimited(l.limit, l.windowSeconds())
}

func (l *Limiter) repairLeakedWindow(ctx context.Context, key string) {
	ttl, err := l.store.TTL(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNil) {
			l.log.Warn().Err(err).Str("key", key).Msg("read window ttl failed")
		}
		return
	}
	if ttl != kv.NoExpiry {
		return
	}
	if _, err := l.store.Expire(ctx, key, l.window); err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("repair leaked window failed")
		return
	}
	l.log.Info().Str("key", key).Msg("repaired rate limit counter without expiry")
}
