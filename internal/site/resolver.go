// internal/site/resolver.go
//
// Resolver cache: subdomain → *Record with short-lived caching.
//
// Context
// -------
// Subdomain traffic hits the store on every request otherwise.  The
// resolver keeps recently served records in a sync.Map behind a
// singleflight barrier, refreshes entries older than FreshTTL, and
// runs a background evictor for idle entries and LRU pressure.
//
// The cache must not assume read-after-write consistency: FreshTTL is
// short, and deploys call Invalidate so the local node converges
// immediately.  Other nodes converge within FreshTTL.
//
// Notes
// -----
// • Negative results are not cached; a miss is one store round trip.
// • Oxford commas, two spaces after periods.
package site

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/verge/internal/metrics"
)

// Static defaults.  Override via the Resolver fields before first use.
const (
	FreshTTL      = 30 * time.Second
	IdleTTL       = 10 * time.Minute
	MaxEntries    = 10000
	EvictInterval = time.Minute
)

// Resolver caches resolved sites.  Construct with NewResolver.
type Resolver struct {
	repo        *Repository
	sfg         singleflight.Group
	m           sync.Map // subdomain → *resolved
	evictTicker *time.Ticker
	freshTTL    time.Duration
	idleTTL     time.Duration
	maxEntries  int
}

type resolved struct {
	rec      *Record
	loadedAt int64 // UnixNano
	lastSeen int64 // UnixNano
}

// NewResolver constructs a Resolver and starts the background evictor.
func NewResolver(repo *Repository, freshTTL, idleTTL time.Duration, maxEntries int) *Resolver {
	r := &Resolver{
		repo:       repo,
		freshTTL:   freshTTL,
		idleTTL:    idleTTL,
		maxEntries: maxEntries,
	}
	r.evictTicker = time.NewTicker(EvictInterval)
	go r.evictLoop()
	return r
}

// Resolve returns the site for subdomain, consulting the cache first.
// Returns ErrNotFound when no site exists.
func (r *Resolver) Resolve(ctx context.Context, subdomain string) (*Record, error) {
	now := time.Now().UnixNano()

	if v, ok := r.m.Load(subdomain); ok {
		ent := v.(*resolved)
		if now-atomic.LoadInt64(&ent.loadedAt) < int64(r.freshTTL) {
			atomic.StoreInt64(&ent.lastSeen, now)
			metrics.SiteResolveTotal.Inc()
			return ent.rec, nil
		}
		// Stale: fall through and reload under singleflight.
	}

	v, err, _ := r.sfg.Do(subdomain, func() (interface{}, error) {
		rec, err := r.repo.Get(ctx, subdomain)
		if err != nil {
			return nil, err
		}
		ts := time.Now().UnixNano()
		_, existed := r.m.Load(subdomain)
		r.m.Store(subdomain, &resolved{rec: rec, loadedAt: ts, lastSeen: ts})
		if !existed {
			metrics.CachedSites.Inc()
		}
		return rec, nil
	})
	if err != nil {
		if err == ErrNotFound {
			metrics.SiteResolveMissTotal.Inc()
			// A stale positive entry must not outlive the record.
			r.drop(subdomain)
		}
		return nil, err
	}
	metrics.SiteResolveTotal.Inc()
	return v.(*Record), nil
}

// Invalidate drops the cached entry so the next Resolve reloads.  The
// deploy orchestrator and delete paths call this after writes.
func (r *Resolver) Invalidate(subdomain string) {
	r.drop(subdomain)
}

func (r *Resolver) drop(subdomain string) {
	if _, ok := r.m.LoadAndDelete(subdomain); ok {
		metrics.CachedSites.Dec()
	}
}

// Close stops the evictor ticker.
func (r *Resolver) Close() { r.evictTicker.Stop() }

// evictLoop removes idle entries every EvictInterval, then applies LRU
// pressure when the map exceeds maxEntries.
func (r *Resolver) evictLoop() {
	for range r.evictTicker.C {
		now := time.Now().UnixNano()
		var count int

		r.m.Range(func(key, value any) bool {
			count++
			ent := value.(*resolved)
			idle := time.Duration(now - atomic.LoadInt64(&ent.lastSeen))
			if idle > r.idleTTL {
				r.drop(key.(string))
				metrics.SiteEvictTotal.Inc()
				count--
			}
			return true
		})

		if r.maxEntries > 0 && count > r.maxEntries {
			type kv struct {
				key string
				at  int64
			}
			var all []kv
			r.m.Range(func(key, value any) bool {
				ent := value.(*resolved)
				all = append(all, kv{key: key.(string), at: atomic.LoadInt64(&ent.lastSeen)})
				return true
			})
			sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
			for i := 0; i < len(all)-r.maxEntries; i++ {
				r.drop(all[i].key)
				metrics.SiteEvictTotal.Inc()
			}
			zap.S().Infow("resolver LRU eviction", "evicted", len(all)-r.maxEntries)
		}
	}
}
