// internal/tenant/registry.go
//
// Tenant registry: reads, lazy plan expiry, and overwrites.
//
// Context
// -------
// The registry reconstructs its view from the store on every call;
// nothing in memory survives between requests except the keyed mutex
// used to serialize per-code mutations.  GetOrDefault applies lazy
// expiry: when a stored plan has lapsed, the record is downgraded to
// free and persisted as a side effect of the read, idempotently.
//
// Notes
// -----
// • The default record is never persisted until the first mutation.
// • A failed expiry write is logged and the downgraded view returned
//   anyway; the next read retries the persist.
package tenant

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/verge/internal/kv"
	"github.com/yanizio/verge/internal/plan"
)

const keyPrefix = "user::"

// Key returns the storage key for an access code.
func Key(code string) string { return keyPrefix + code }

// Registry is the tenant repository.  Safe for concurrent use.
type Registry struct {
	store  kv.Store
	limits plan.Limits
	now    func() time.Time
}

// NewRegistry returns a Registry over store with the given quota tables.
func NewRegistry(store kv.Store, limits plan.Limits) *Registry {
	return &Registry{store: store, limits: limits, now: time.Now}
}

// SetClock overrides the time source.  Tests only.
func (r *Registry) SetClock(now func() time.Time) { r.now = now }

// Limits exposes the active quota tables.
func (r *Registry) Limits() plan.Limits { return r.limits }

// GetOrDefault returns the record for code, or a fresh default when
// none is stored.  Lapsed plans are downgraded to free, the expiry
// cleared, and the downgrade persisted before returning.
func (r *Registry) GetOrDefault(ctx context.Context, code string) (*Record, error) {
	raw, err := r.store.Get(ctx, Key(code))
	if err == kv.ErrNotFound {
		return defaultRecord(), nil
	}
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// Corrupt record: log and serve defaults rather than lock the
		// tenant out.  The next mutation overwrites the bad value.
		zap.S().Errorw("tenant record corrupt", "code", code, "err", err)
		return defaultRecord(), nil
	}

	if rec.Expired(r.now()) {
		rec.Plan = plan.Free
		rec.Expiry = nil
		if err := r.Save(ctx, code, &rec); err != nil {
			zap.S().Warnw("tenant expiry persist failed", "code", code, "err", err)
		}
	}
	return &rec, nil
}

// Save unconditionally overwrites the record for code.
func (r *Registry) Save(ctx context.Context, code string, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, Key(code), raw, 0)
}

// SiteQuota returns the site cap for the record's plan.
func (r *Registry) SiteQuota(rec *Record) int {
	return r.limits.SiteQuotaFor(rec.Plan)
}

// CaptureVisibility returns the listing cap for the record's plan.
func (r *Registry) CaptureVisibility(rec *Record) int {
	return r.limits.CaptureVisibilityFor(rec.Plan)
}
