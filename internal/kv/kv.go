// internal/kv/kv.go
//
// Generic key-value store contract.
//
// Context
// -------
// All persistent state lives in one flat namespace partitioned by key
// prefix (`user::`, `site::`, `code_map::`, `template::`, `capture::`,
// `voucher_queue::`, `ratelimit::`).  Repositories own their prefix;
// this package only moves bytes.  The store is eventually consistent:
// a Get after a Put may return stale data, and there is no atomicity
// across keys.  Callers that mutate multiple keys must serialize per
// owner (see tenant.KeyedMutex) and accept partial-failure risk.
//
// Notes
// -----
// • List returns full keys in lexical order; values are fetched with Get.
// • TTL zero means no expiry.
// • Oxford commas, two spaces after periods.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or has
// expired.  Backends must return exactly this sentinel.
var ErrNotFound = errors.New("kv: key not found")

// Store is the minimal async-map contract every backend implements.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key.  A positive ttl expires the entry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key.  Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every key beginning with prefix, sorted lexically.
	List(ctx context.Context, prefix string) ([]string, error)
}
