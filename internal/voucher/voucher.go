// internal/voucher/voucher.go
//
// Voucher claim records and their store.
//
// A claim is a pending, manually reviewed payment assertion.  It lives
// under `voucher_queue::{id}` only while pending; resolution deletes
// the record, and the outcome survives solely in the tenant account.
package voucher

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/yanizio/verge/internal/kv"
	"github.com/yanizio/verge/internal/plan"
)

const keyPrefix = "voucher_queue::"

// ErrNotFound is returned when a claim ID is unknown or already
// resolved.
var ErrNotFound = errors.New("voucher claim not found")

// Claim is one pending payment-verification request.
type Claim struct {
	ID            string          `json:"id"`
	OwnerCode     string          `json:"ownerCode"`
	RequestedPlan plan.Tier       `json:"requestedPlan"`
	Proof         json.RawMessage `json:"proof,omitempty"`
	Submitted     time.Time       `json:"submitted"`
}

// Key returns the storage key for a claim ID.
func Key(id string) string { return keyPrefix + id }

// Store persists pending claims.
type Store struct {
	store kv.Store
}

// NewStore returns a Store over store.
func NewStore(store kv.Store) *Store {
	return &Store{store: store}
}

// Get fetches one pending claim, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Claim, error) {
	raw, err := s.store.Get(ctx, Key(id))
	if err == kv.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var c Claim
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Put stores a pending claim under its ID.
func (s *Store) Put(ctx context.Context, c *Claim) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, Key(c.ID), raw, 0)
}

// Delete removes a claim from the pending set.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, Key(id))
}

// Pending lists every unresolved claim, oldest submission first.
func (s *Store) Pending(ctx context.Context) ([]Claim, error) {
	keys, err := s.store.List(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]Claim, 0, len(keys))
	for _, k := range keys {
		raw, err := s.store.Get(ctx, k)
		if err == kv.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		var c Claim
		if err := json.Unmarshal(raw, &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	// Key order is random UUIDs; sort by submission time instead.
	sort.Slice(out, func(i, j int) bool { return out[i].Submitted.Before(out[j].Submitted) })
	return out, nil
}
