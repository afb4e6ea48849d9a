// internal/kv/memory_test.go
//
// Unit-tests for the in-memory Store.
//
// Run: go test ./internal/kv -v

package kv

import (
	"context"
	"testing"
	"time"
)

func TestMemoryPutGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := m.Put(ctx, "a", []byte("one"), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := m.Get(ctx, "a")
	if err != nil || string(got) != "one" {
		t.Fatalf("get = %q, %v", got, err)
	}

	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, "a"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })

	if err := m.Put(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := m.Get(ctx, "k"); err != nil {
		t.Fatalf("get before expiry: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := m.Get(ctx, "k"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestMemoryListPrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, k := range []string{"site::b", "site::a", "user::x", "site::c"} {
		if err := m.Put(ctx, k, []byte("v"), 0); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}

	keys, err := m.List(ctx, "site::")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"site::a", "site::b", "site::c"}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d: %v", len(keys), len(want), keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}
