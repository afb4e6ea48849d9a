// internal/tenant/record.go
//
// Tenant account record.
//
// Context
// -------
// A tenant is identified by an opaque access code: a bearer secret, not
// a username.  The record tracks the subscription plan, account status,
// strike count from declined vouchers, plan expiry, a pending plan for
// staged upgrades, and an optional capture webhook URL.
//
// Notes
// -----
// • Records are created implicitly on first read and never deleted;
//   banning is the soft-disable path.
// • JSON field names are part of the stored-data contract; existing
//   records must keep decoding after code changes.
package tenant

import (
	"time"

	"github.com/yanizio/verge/internal/plan"
)

// Status is the account state.
type Status string

const (
	StatusActive Status = "active"
	StatusLocked Status = "locked"
	StatusBanned Status = "banned"
)

// Record is one tenant account, stored under `user::{code}`.
type Record struct {
	Plan        plan.Tier  `json:"plan"`
	Status      Status     `json:"status"`
	Strikes     int        `json:"strikes"`
	Expiry      *time.Time `json:"expiry,omitempty"`
	PendingPlan plan.Tier  `json:"pendingPlan,omitempty"`
	WebhookURL  string     `json:"webhookUrl,omitempty"`
}

// defaultRecord is what a never-seen code looks like.  It is returned
// from reads but only persisted on the first real mutation.
func defaultRecord() *Record {
	return &Record{Plan: plan.Free, Status: StatusActive}
}

// Suspended reports whether the account may not deploy or submit
// vouchers for new work.
func (r *Record) Suspended() bool {
	return r.Status == StatusLocked || r.Status == StatusBanned
}

// Expired reports whether a set expiry has passed at now.
func (r *Record) Expired(now time.Time) bool {
	return r.Expiry != nil && now.After(*r.Expiry)
}
