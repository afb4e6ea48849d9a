// internal/voucher/workflow.go
//
// Voucher approval state machine.
//
// Context
// -------
// pending → approved | declined, both terminal.  Submission may grant
// provisional access immediately: the staged tier (gold) runs on the
// provisional tier (premium) with pendingPlan set until an admin
// approves.  Every transition mutates the tenant record, so the whole
// read-modify-write runs under the owner's keyed mutex; concurrent
// approve/decline of one claim or concurrent submissions for one
// tenant would otherwise race.
//
// Notes
// -----
// • Approval stacks the extension on remaining unexpired time.
// • Two declines ban the account; there is no un-ban operation.
package voucher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/verge/internal/errs"
	"github.com/yanizio/verge/internal/metrics"
	"github.com/yanizio/verge/internal/plan"
	"github.com/yanizio/verge/internal/tenant"
)

// banStrikes is the strike count at which a locked account escalates
// to banned.
const banStrikes = 2

// Workflow coordinates claims with the tenant registry.
type Workflow struct {
	claims  *Store
	tenants *tenant.Registry
	locks   *tenant.KeyedMutex
	limits  plan.Limits
	now     func() time.Time
}

// NewWorkflow wires the workflow.  locks must be the same KeyedMutex
// the deploy orchestrator uses, so all tenant mutations serialize on
// one table.
func NewWorkflow(claims *Store, tenants *tenant.Registry, locks *tenant.KeyedMutex, limits plan.Limits) *Workflow {
	return &Workflow{
		claims:  claims,
		tenants: tenants,
		locks:   locks,
		limits:  limits,
		now:     time.Now,
	}
}

// SetClock overrides the time source.  Tests only.
func (w *Workflow) SetClock(now func() time.Time) { w.now = now }

// Submit records a payment claim for code and applies provisional or
// immediate plan access.  Returns the claim ID.
func (w *Workflow) Submit(ctx context.Context, code string, requested plan.Tier, proof json.RawMessage) (string, error) {
	if !requested.Valid() || requested == plan.Free {
		return "", errs.Validation("unknown plan %q", requested)
	}

	defer w.locks.Lock(code)()

	rec, err := w.tenants.GetOrDefault(ctx, code)
	if err != nil {
		return "", errs.Internal(err)
	}
	if rec.Status == tenant.StatusBanned {
		return "", errs.Forbidden("account is banned")
	}

	if requested == w.limits.StagedTier {
		// Staged upgrade: provisional access now, full tier on approval.
		rec.Plan = w.limits.ProvisionalTier
		rec.PendingPlan = requested
	} else {
		rec.Plan = requested
		rec.PendingPlan = ""
	}
	if err := w.tenants.Save(ctx, code, rec); err != nil {
		return "", errs.Internal(err)
	}

	claim := &Claim{
		ID:            uuid.NewString(),
		OwnerCode:     code,
		RequestedPlan: requested,
		Proof:         proof,
		Submitted:     w.now().UTC(),
	}
	if err := w.claims.Put(ctx, claim); err != nil {
		return "", errs.Internal(err)
	}

	zap.S().Infow("voucher submitted",
		"claim", claim.ID, "plan", requested, "staged", requested == w.limits.StagedTier)
	return claim.ID, nil
}

// Approve resolves a claim in the owner's favor: the plan is promoted,
// the subscription period extended, and the claim deleted.
func (w *Workflow) Approve(ctx context.Context, claimID string) error {
	claim, err := w.claims.Get(ctx, claimID)
	if err == ErrNotFound {
		return errs.NotFound("claim %s not found", claimID)
	}
	if err != nil {
		return errs.Internal(err)
	}

	defer w.locks.Lock(claim.OwnerCode)()

	rec, err := w.tenants.GetOrDefault(ctx, claim.OwnerCode)
	if err != nil {
		return errs.Internal(err)
	}

	if rec.PendingPlan == claim.RequestedPlan && rec.PendingPlan != "" {
		rec.Plan = rec.PendingPlan
		rec.PendingPlan = ""
	} else {
		// Claim never went through provisional staging.
		rec.Plan = claim.RequestedPlan
	}

	// Stack the new period on any remaining time; start from now once
	// expired.
	now := w.now().UTC()
	base := now
	if rec.Expiry != nil && rec.Expiry.After(now) {
		base = *rec.Expiry
	}
	expiry := base.AddDate(0, 0, w.limits.VoucherPeriodDays)
	rec.Expiry = &expiry
	rec.Status = tenant.StatusActive

	if err := w.tenants.Save(ctx, claim.OwnerCode, rec); err != nil {
		return errs.Internal(err)
	}
	if err := w.claims.Delete(ctx, claimID); err != nil {
		return errs.Internal(err)
	}

	metrics.VoucherResolvedTotal.WithLabelValues("approved").Inc()
	zap.S().Infow("voucher approved", "claim", claimID, "plan", rec.Plan, "expiry", expiry)
	return nil
}

// Decline resolves a claim against the owner: plan reverts to free,
// the account locks, and repeat offenses ban it.
func (w *Workflow) Decline(ctx context.Context, claimID, reason string) error {
	claim, err := w.claims.Get(ctx, claimID)
	if err == ErrNotFound {
		return errs.NotFound("claim %s not found", claimID)
	}
	if err != nil {
		return errs.Internal(err)
	}

	defer w.locks.Lock(claim.OwnerCode)()

	rec, err := w.tenants.GetOrDefault(ctx, claim.OwnerCode)
	if err != nil {
		return errs.Internal(err)
	}

	rec.Plan = plan.Free
	rec.PendingPlan = ""
	rec.Status = tenant.StatusLocked
	rec.Strikes++
	if rec.Strikes >= banStrikes {
		rec.Status = tenant.StatusBanned
	}

	if err := w.tenants.Save(ctx, claim.OwnerCode, rec); err != nil {
		return errs.Internal(err)
	}
	if err := w.claims.Delete(ctx, claimID); err != nil {
		return errs.Internal(err)
	}

	metrics.VoucherResolvedTotal.WithLabelValues("declined").Inc()
	zap.S().Infow("voucher declined",
		"claim", claimID, "reason", reason, "strikes", rec.Strikes, "status", rec.Status)
	return nil
}
