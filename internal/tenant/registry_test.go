// internal/tenant/registry_test.go
//
// Unit-tests for the tenant registry and the keyed mutex.
//
// Run: go test ./internal/tenant -v

package tenant

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/yanizio/verge/internal/kv"
	"github.com/yanizio/verge/internal/plan"
)

func TestGetOrDefaultNeverPersists(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	reg := NewRegistry(store, plan.DefaultLimits())

	rec, err := reg.GetOrDefault(ctx, "never-seen")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Plan != plan.Free || rec.Status != StatusActive {
		t.Fatalf("unexpected default: %+v", rec)
	}
	if store.Len() != 0 {
		t.Fatalf("default read must not write, store has %d entries", store.Len())
	}
}

func TestLazyExpiryDowngrades(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	reg := NewRegistry(store, plan.DefaultLimits())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reg.SetClock(func() time.Time { return now })

	expiry := now.Add(-time.Hour)
	if err := reg.Save(ctx, "abc", &Record{
		Plan:   plan.Premium,
		Status: StatusActive,
		Expiry: &expiry,
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec, err := reg.GetOrDefault(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Plan != plan.Free || rec.Expiry != nil {
		t.Fatalf("expected downgraded record, got %+v", rec)
	}

	// The downgrade is persisted: a raw read shows the free plan.
	raw, err := store.Get(ctx, Key("abc"))
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	var stored Record
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stored.Plan != plan.Free {
		t.Fatalf("downgrade not persisted: %+v", stored)
	}

	// A second read is a no-op; the result is identical.
	again, err := reg.GetOrDefault(ctx, "abc")
	if err != nil || again.Plan != plan.Free {
		t.Fatalf("second read changed the record: %+v, %v", again, err)
	}
}

func TestUnexpiredPlanKept(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(kv.NewMemory(), plan.DefaultLimits())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reg.SetClock(func() time.Time { return now })

	expiry := now.Add(24 * time.Hour)
	_ = reg.Save(ctx, "abc", &Record{Plan: plan.Gold, Status: StatusActive, Expiry: &expiry})

	rec, err := reg.GetOrDefault(ctx, "abc")
	if err != nil || rec.Plan != plan.Gold {
		t.Fatalf("unexpired plan must survive the read: %+v, %v", rec, err)
	}
}

func TestCorruptRecordServesDefault(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	reg := NewRegistry(store, plan.DefaultLimits())

	_ = store.Put(ctx, Key("abc"), []byte("{not json"), 0)

	rec, err := reg.GetOrDefault(ctx, "abc")
	if err != nil {
		t.Fatalf("corrupt record must not error: %v", err)
	}
	if rec.Plan != plan.Free {
		t.Fatalf("expected default record, got %+v", rec)
	}
}

func TestKeyedMutexSerializes(t *testing.T) {
	locks := NewKeyedMutex()

	var mu sync.Mutex
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("abc")
			defer unlock()
			mu.Lock()
			counter++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
	if locks.Len() != 0 {
		t.Fatalf("lock table must be empty after release, has %d", locks.Len())
	}
}
