// internal/voucher/workflow_test.go
//
// Unit-tests for the voucher state machine.
//
// Run: go test ./internal/voucher -v

package voucher

import (
	"context"
	"testing"
	"time"

	"github.com/yanizio/verge/internal/errs"
	"github.com/yanizio/verge/internal/kv"
	"github.com/yanizio/verge/internal/plan"
	"github.com/yanizio/verge/internal/tenant"
)

type fixture struct {
	store    *kv.Memory
	claims   *Store
	tenants  *tenant.Registry
	workflow *Workflow
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := kv.NewMemory()
	claims := NewStore(store)
	limits := plan.DefaultLimits()
	tenants := tenant.NewRegistry(store, limits)
	wf := NewWorkflow(claims, tenants, tenant.NewKeyedMutex(), limits)

	f := &fixture{
		store:    store,
		claims:   claims,
		tenants:  tenants,
		workflow: wf,
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	wf.SetClock(clock)
	tenants.SetClock(clock)
	return f
}

func TestSubmitImmediateTier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id, err := f.workflow.Submit(ctx, "abc", plan.Basic, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	rec, _ := f.tenants.GetOrDefault(ctx, "abc")
	if rec.Plan != plan.Basic || rec.PendingPlan != "" {
		t.Fatalf("immediate tier not applied: %+v", rec)
	}

	claim, err := f.claims.Get(ctx, id)
	if err != nil {
		t.Fatalf("claim missing: %v", err)
	}
	if claim.RequestedPlan != plan.Basic || claim.OwnerCode != "abc" {
		t.Fatalf("claim mismatch: %+v", claim)
	}
}

func TestSubmitStagedTierIsProvisional(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.workflow.Submit(ctx, "abc", plan.Gold, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}

	rec, _ := f.tenants.GetOrDefault(ctx, "abc")
	if rec.Plan != plan.Premium {
		t.Fatalf("staged submit must grant the provisional tier, got %s", rec.Plan)
	}
	if rec.PendingPlan != plan.Gold {
		t.Fatalf("pending plan not recorded: %+v", rec)
	}
}

func TestSubmitRejectsInvalidPlan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.workflow.Submit(ctx, "abc", "platinum", nil); !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.workflow.Submit(ctx, "abc", plan.Free, nil); !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("free tier must not be purchasable, got %v", err)
	}
}

func TestApprovePromotesAndExtends(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id, _ := f.workflow.Submit(ctx, "abc", plan.Gold, nil)
	if err := f.workflow.Approve(ctx, id); err != nil {
		t.Fatalf("approve: %v", err)
	}

	rec, _ := f.tenants.GetOrDefault(ctx, "abc")
	if rec.Plan != plan.Gold || rec.PendingPlan != "" {
		t.Fatalf("approval must promote the pending plan: %+v", rec)
	}
	if rec.Status != tenant.StatusActive {
		t.Fatalf("status = %s, want active", rec.Status)
	}
	want := f.now.AddDate(0, 0, 30)
	if rec.Expiry == nil || !rec.Expiry.Equal(want) {
		t.Fatalf("expiry = %v, want %v", rec.Expiry, want)
	}

	// The claim is gone after resolution.
	if _, err := f.claims.Get(ctx, id); err != ErrNotFound {
		t.Fatalf("claim must be deleted, got %v", err)
	}
}

func TestApproveStacksRemainingTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// First period.
	id, _ := f.workflow.Submit(ctx, "abc", plan.Basic, nil)
	_ = f.workflow.Approve(ctx, id)

	// Renew ten days in: the new period stacks on the 20 remaining days.
	f.now = f.now.AddDate(0, 0, 10)
	id, _ = f.workflow.Submit(ctx, "abc", plan.Basic, nil)
	_ = f.workflow.Approve(ctx, id)

	rec, _ := f.tenants.GetOrDefault(ctx, "abc")
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, 60)
	if rec.Expiry == nil || !rec.Expiry.Equal(want) {
		t.Fatalf("expiry = %v, want stacked %v", rec.Expiry, want)
	}
}

func TestDeclineLocksThenBans(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id, _ := f.workflow.Submit(ctx, "abc", plan.Basic, nil)
	if err := f.workflow.Decline(ctx, id, "fake receipt"); err != nil {
		t.Fatalf("decline: %v", err)
	}

	rec, _ := f.tenants.GetOrDefault(ctx, "abc")
	if rec.Plan != plan.Free || rec.Status != tenant.StatusLocked || rec.Strikes != 1 {
		t.Fatalf("first decline: %+v", rec)
	}

	// A locked account may still submit payment claims; deploys are what
	// suspension blocks.  The second decline escalates to banned.
	id, err := f.workflow.Submit(ctx, "abc", plan.Basic, nil)
	if err != nil {
		t.Fatalf("resubmit while locked: %v", err)
	}
	_ = f.workflow.Decline(ctx, id, "fake again")

	rec, _ = f.tenants.GetOrDefault(ctx, "abc")
	if rec.Status != tenant.StatusBanned || rec.Strikes != 2 {
		t.Fatalf("second decline must ban: %+v", rec)
	}

	// Banned accounts cannot submit at all.
	if _, err := f.workflow.Submit(ctx, "abc", plan.Basic, nil); !errs.IsKind(err, errs.KindForbidden) {
		t.Fatalf("banned submit must be forbidden, got %v", err)
	}
}

func TestResolveUnknownClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.workflow.Approve(ctx, "ghost"); !errs.IsKind(err, errs.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := f.workflow.Decline(ctx, "ghost", ""); !errs.IsKind(err, errs.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPendingOrderedBySubmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, _ := f.workflow.Submit(ctx, "a1", plan.Basic, nil)
	f.now = f.now.Add(time.Hour)
	second, _ := f.workflow.Submit(ctx, "a2", plan.Premium, nil)

	claims, err := f.claims.Pending(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(claims) != 2 || claims[0].ID != first || claims[1].ID != second {
		t.Fatalf("wrong order: %+v", claims)
	}
}
