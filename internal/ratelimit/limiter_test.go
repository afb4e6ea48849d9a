// internal/ratelimit/limiter_test.go
//
// Unit-tests for the fixed-window limiter.
//
// Run: go test ./internal/ratelimit -v

package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yanizio/verge/internal/kv"
)

func TestAllowUnderLimit(t *testing.T) {
	ctx := context.Background()
	l := New(kv.NewMemory())
	rule := Rule{Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "capture", "1.2.3.4", rule) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow(ctx, "capture", "1.2.3.4", rule) {
		t.Fatal("fourth request should be rejected")
	}
}

func TestActionsAndClientsIsolated(t *testing.T) {
	ctx := context.Background()
	l := New(kv.NewMemory())
	rule := Rule{Limit: 1, Window: time.Minute}

	if !l.Allow(ctx, "capture", "1.2.3.4", rule) {
		t.Fatal("first capture should be allowed")
	}
	if l.Allow(ctx, "capture", "1.2.3.4", rule) {
		t.Fatal("second capture should be rejected")
	}
	// Different action, same client.
	if !l.Allow(ctx, "deploy", "1.2.3.4", rule) {
		t.Fatal("other action must have its own counter")
	}
	// Same action, different client.
	if !l.Allow(ctx, "capture", "5.6.7.8", rule) {
		t.Fatal("other client must have its own counter")
	}
}

func TestWindowReset(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	l := New(store)
	rule := Rule{Limit: 1, Window: time.Minute}

	if !l.Allow(ctx, "deploy", "c1", rule) {
		t.Fatal("first request should be allowed")
	}
	if l.Allow(ctx, "deploy", "c1", rule) {
		t.Fatal("second request should be rejected")
	}

	now = now.Add(2 * time.Minute) // counter expires with the window
	if !l.Allow(ctx, "deploy", "c1", rule) {
		t.Fatal("request after window expiry should be allowed")
	}
}

func TestZeroLimitDisables(t *testing.T) {
	l := New(kv.NewMemory())
	for i := 0; i < 100; i++ {
		if !l.Allow(context.Background(), "x", "c", Rule{Limit: 0, Window: time.Minute}) {
			t.Fatal("zero limit must disable the check")
		}
	}
}

// brokenStore fails every operation, standing in for an unreachable
// backend.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("store down")
}
func (brokenStore) Put(context.Context, string, []byte, time.Duration) error {
	return errors.New("store down")
}
func (brokenStore) Delete(context.Context, string) error { return errors.New("store down") }
func (brokenStore) List(context.Context, string) ([]string, error) {
	return nil, errors.New("store down")
}

func TestFailOpen(t *testing.T) {
	l := New(brokenStore{})
	rule := Rule{Limit: 1, Window: time.Minute}

	for i := 0; i < 5; i++ {
		if !l.Allow(context.Background(), "capture", "c", rule) {
			t.Fatal("storage failure must never reject requests")
		}
	}
}
