// internal/ratelimit/limiter.go
//
// Fixed-window rate limiter over the key-value store.
//
// Context
// -------
// Counters live at `ratelimit::{action}::{clientID}` with a TTL equal
// to the window, so the store expires them for us.  Each window is
// independent and resets entirely on expiry, permitting up to 2× limit
// across a window boundary.  That is acceptable: this is a best-effort
// guard on public write endpoints, not a security boundary.
//
// Fail-open invariant
// -------------------
// Any storage error during the check allows the request.  Strict
// enforcement is traded for availability; an unreachable store must
// never take the whole router down with it.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/verge/internal/kv"
	"github.com/yanizio/verge/internal/metrics"
)

const keyPrefix = "ratelimit::"

// Rule is one action's budget: Limit requests per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Limiter checks fixed-window counters in the shared store.
type Limiter struct {
	store kv.Store
}

// New returns a Limiter over store.
func New(store kv.Store) *Limiter {
	return &Limiter{store: store}
}

// Allow reports whether clientID may perform action under rule.  A
// zero or negative limit disables the check.
func (l *Limiter) Allow(ctx context.Context, action, clientID string, rule Rule) bool {
	if rule.Limit <= 0 {
		return true
	}

	key := keyPrefix + action + "::" + clientID

	count := 0
	raw, err := l.store.Get(ctx, key)
	switch err {
	case nil:
		if n, perr := strconv.Atoi(string(raw)); perr == nil {
			count = n
		}
	case kv.ErrNotFound:
		// First request of the window.
	default:
		zap.S().Warnw("rate limiter read failed, allowing", "action", action, "err", err)
		return true
	}

	if count >= rule.Limit {
		metrics.RateLimitedTotal.Inc()
		return false
	}

	next := strconv.Itoa(count + 1)
	if err := l.store.Put(ctx, key, []byte(next), rule.Window); err != nil {
		zap.S().Warnw("rate limiter write failed, allowing", "action", action, "err", err)
	}
	return true
}
