// internal/capture/store.go
//
// Append-only capture event store.
//
// Context
// -------
// Events are partitioned by owner code with lexicographically sortable
// keys:
//
//	capture::{code}::{unixMillis}::{uuid}
//
// Prefix-listing an owner therefore yields creation order; reversing
// gives newest-first.  Listing computes the total count even when only
// a plan-limited slice is fetched, so callers can report how many
// records a higher plan would reveal.  Deletion verifies the key's
// owner partition before touching the store, which blocks cross-tenant
// deletion by key guessing.
package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yanizio/verge/internal/errs"
	"github.com/yanizio/verge/internal/kv"
	"github.com/yanizio/verge/internal/metrics"
)

const keyPrefix = "capture::"

// Meta is best-effort client context recorded with each event.
type Meta struct {
	IP         string `json:"ip,omitempty"`
	CountryISO string `json:"country,omitempty"`
	City       string `json:"city,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
	Browser    string `json:"browser,omitempty"`
	Device     string `json:"device,omitempty"`
	IsBot      bool   `json:"isBot,omitempty"`
	Lang       string `json:"lang,omitempty"`
}

// Event is one captured record.  Payload is opaque structured data
// from the ingestion endpoint, stored verbatim.
type Event struct {
	Key       string          `json:"key"`
	OwnerCode string          `json:"ownerCode"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Meta      Meta            `json:"meta"`
}

// ownerPrefix returns the listing prefix for one owner partition.
func ownerPrefix(code string) string { return keyPrefix + code + "::" }

// Store persists events in the shared key-value store.
type Store struct {
	store kv.Store
	now   func() time.Time
}

// NewStore returns a Store over store.
func NewStore(store kv.Store) *Store {
	return &Store{store: store, now: time.Now}
}

// SetClock overrides the time source.  Tests only.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Ingest appends an event to the owner's partition and returns its key.
func (s *Store) Ingest(ctx context.Context, code string, payload json.RawMessage, meta Meta) (string, error) {
	now := s.now().UTC()
	key := fmt.Sprintf("%s%s::%013d::%s", keyPrefix, code, now.UnixMilli(), uuid.NewString())

	ev := Event{
		Key:       key,
		OwnerCode: code,
		Timestamp: now,
		Payload:   payload,
		Meta:      meta,
	}
	raw, err := json.Marshal(&ev)
	if err != nil {
		return "", err
	}
	if err := s.store.Put(ctx, key, raw, 0); err != nil {
		return "", err
	}
	metrics.CaptureIngestTotal.Inc()
	return key, nil
}

// List returns up to visibilityLimit events for code, newest first,
// plus the count of stored events hidden by the limit.  The total is
// derived from the key listing alone; hidden values are never fetched.
func (s *Store) List(ctx context.Context, code string, visibilityLimit int) ([]Event, int, error) {
	keys, err := s.store.List(ctx, ownerPrefix(code))
	if err != nil {
		return nil, 0, err
	}

	total := len(keys)
	if visibilityLimit < 0 {
		visibilityLimit = 0
	}
	visible := keys
	if total > visibilityLimit {
		visible = keys[total-visibilityLimit:] // newest tail of the partition
	}

	events := make([]Event, 0, len(visible))
	// Reverse so the newest event comes first.
	for i := len(visible) - 1; i >= 0; i-- {
		raw, err := s.store.Get(ctx, visible[i])
		if err == kv.ErrNotFound {
			continue // deleted between List and Get
		}
		if err != nil {
			return nil, 0, err
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}

	hidden := total - len(visible)
	return events, hidden, nil
}

// Delete removes one event after verifying the key sits inside the
// caller's partition.  A foreign key is Forbidden and nothing is
// deleted.
func (s *Store) Delete(ctx context.Context, code, key string) error {
	if !strings.HasPrefix(key, ownerPrefix(code)) {
		return errs.Forbidden("event does not belong to this code")
	}
	return s.store.Delete(ctx, key)
}
