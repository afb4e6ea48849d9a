// internal/plan/plan.go
//
// Subscription plan tiers and the quota tables derived from them.
//
// Context
// -------
// Exact numeric thresholds are configuration, not law; the source
// system changed them between iterations.  Limits carries the active
// tables, and DefaultLimits holds the current production values.  A
// tier missing from a table falls back to the free-tier value.
package plan

// Tier is a subscription level.  Order matters: quotas must be
// monotonically non-decreasing from Free to Gold.
type Tier string

const (
	Free    Tier = "free"
	Basic   Tier = "basic"
	Premium Tier = "premium"
	Gold    Tier = "gold"
)

// Valid reports whether t names a known tier.
func (t Tier) Valid() bool {
	switch t {
	case Free, Basic, Premium, Gold:
		return true
	}
	return false
}

// AllowsWebhook reports whether the tier may configure a capture
// webhook URL.
func (t Tier) AllowsWebhook() bool { return t == Premium || t == Gold }

// Limits bundles every plan-derived quota.  Built from config at boot.
type Limits struct {
	// SiteQuota caps the number of concurrently deployed sites.
	SiteQuota map[Tier]int

	// CaptureVisibility caps how many stored events a listing returns.
	CaptureVisibility map[Tier]int

	// TemplateReuseCap bounds deployments of one template per owner.
	TemplateReuseCap int

	// VoucherPeriodDays is the subscription extension per approval.
	VoucherPeriodDays int

	// StagedTier requires manual approval; submitters run on
	// ProvisionalTier until an admin approves the claim.
	StagedTier      Tier
	ProvisionalTier Tier
}

// DefaultLimits returns the current production quota tables.
func DefaultLimits() Limits {
	return Limits{
		SiteQuota: map[Tier]int{
			Free:    1,
			Basic:   3,
			Premium: 10,
			Gold:    1000, // effectively unlimited, bounded for iteration
		},
		CaptureVisibility: map[Tier]int{
			Free:    5,
			Basic:   15,
			Premium: 250,
			Gold:    100000,
		},
		TemplateReuseCap:  3,
		VoucherPeriodDays: 30,
		StagedTier:        Gold,
		ProvisionalTier:   Premium,
	}
}

// SiteQuotaFor returns the site cap for t, defaulting to the free tier.
func (l Limits) SiteQuotaFor(t Tier) int {
	if n, ok := l.SiteQuota[t]; ok {
		return n
	}
	return l.SiteQuota[Free]
}

// CaptureVisibilityFor returns the listing cap for t, defaulting to the
// free tier.
func (l Limits) CaptureVisibilityFor(t Tier) int {
	if n, ok := l.CaptureVisibility[t]; ok {
		return n
	}
	return l.CaptureVisibility[Free]
}
