// internal/capture/store_test.go
//
// Unit-tests for the capture store: ordering, plan visibility, and
// partition isolation.
//
// Run: go test ./internal/capture -v

package capture

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/yanizio/verge/internal/errs"
	"github.com/yanizio/verge/internal/kv"
)

// seed ingests n events for code, one second apart, returning the keys
// in creation order.
func seed(t *testing.T, s *Store, code string, n int) []string {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		payload, _ := json.Marshal(map[string]int{"seq": i})
		key, err := s.Ingest(context.Background(), code, payload, Meta{})
		if err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
		keys = append(keys, key)
		now = now.Add(time.Second)
	}
	return keys
}

func TestListNewestFirst(t *testing.T) {
	s := NewStore(kv.NewMemory())
	keys := seed(t, s, "abc", 3)

	events, hidden, err := s.List(context.Background(), "abc", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if hidden != 0 {
		t.Fatalf("hidden = %d, want 0", hidden)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	// Newest first: the last ingested key leads.
	if events[0].Key != keys[2] || events[2].Key != keys[0] {
		t.Fatalf("wrong order: %v", []string{events[0].Key, events[1].Key, events[2].Key})
	}
}

func TestListVisibilityLimit(t *testing.T) {
	s := NewStore(kv.NewMemory())
	keys := seed(t, s, "abc", 7)

	events, hidden, err := s.List(context.Background(), "abc", 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	if hidden != 2 {
		t.Fatalf("hidden = %d, want 2", hidden)
	}
	// The visible window is the newest tail.
	if events[0].Key != keys[6] || events[4].Key != keys[2] {
		t.Fatalf("visible window wrong: first %s, last %s", events[0].Key, events[4].Key)
	}
}

func TestPartitionsIsolated(t *testing.T) {
	s := NewStore(kv.NewMemory())
	seed(t, s, "abc", 2)
	seed(t, s, "xyz", 1)

	events, _, err := s.List(context.Background(), "abc", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, ev := range events {
		if ev.OwnerCode != "abc" {
			t.Fatalf("foreign event leaked: %+v", ev)
		}
	}
}

func TestDeleteCrossTenantForbidden(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory())
	keys := seed(t, s, "abc", 1)

	err := s.Delete(ctx, "xyz", keys[0])
	if !errs.IsKind(err, errs.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	// Nothing was deleted.
	events, _, _ := s.List(ctx, "abc", 10)
	if len(events) != 1 {
		t.Fatalf("event deleted despite forbidden: %d left", len(events))
	}

	if err := s.Delete(ctx, "abc", keys[0]); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	events, _, _ = s.List(ctx, "abc", 10)
	if len(events) != 0 {
		t.Fatalf("event survived owner delete")
	}
}
