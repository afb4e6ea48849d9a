// internal/web/handlers_admin.go
//
// Admin surface: operator login and full CRUD over templates, sites,
// tenants, and the voucher queue.
//
// Context
// -------
// A single operator identity, authenticated by the shared password and
// carried in the session cookie.  Everything here except login and
// logout sits behind requireAdmin.  Admin writes reuse the same
// registries and orchestrator as the public surface, so invariants
// (index consistency, keyed-mutex serialization, cache invalidation)
// hold on both paths.
package web

import (
	"crypto/subtle"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/verge/internal/errs"
	"github.com/yanizio/verge/internal/plan"
	"github.com/yanizio/verge/internal/requestinfo"
	"github.com/yanizio/verge/internal/session"
	"github.com/yanizio/verge/internal/template"
	"github.com/yanizio/verge/internal/tenant"
)

/*──────────────────────────── auth ────────────────────────────────────────*/

// handleAdminLogin checks the operator password and issues the session
// cookie.  Attempts are rate limited per client IP.
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if !s.Limiter.Allow(r.Context(), "admin-login", requestinfo.ClientIP(r), loginRule) {
		fail(w, errs.RateLimited("too many login attempts"))
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, err)
		return
	}

	want := s.cfg.Admin.Password
	if want == "" ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(want)) != 1 {
		zap.S().Warnw("admin login rejected", "ip", requestinfo.ClientIP(r))
		fail(w, errs.Unauthorized("invalid credentials"))
		return
	}

	session.Issue(w, r, s.cfg.Admin.SessionSecret)
	zap.S().Infow("admin login", "ip", requestinfo.ClientIP(r))
	ok(w, nil)
}

// handleAdminLogout clears the session cookie.
func (s *Server) handleAdminLogout(w http.ResponseWriter, _ *http.Request) {
	session.Clear(w)
	ok(w, nil)
}

/*──────────────────────────── templates ───────────────────────────────────*/

// handleTemplateSave creates or overwrites one template.
func (s *Server) handleTemplateSave(w http.ResponseWriter, r *http.Request) {
	var rec template.Record
	if err := decodeJSON(w, r, &rec); err != nil {
		fail(w, err)
		return
	}
	if rec.Name == "" || rec.Content == "" {
		fail(w, errs.Validation("name and content are required"))
		return
	}
	if err := s.Templates.Save(r.Context(), &rec); err != nil {
		fail(w, errs.Internal(err))
		return
	}
	zap.S().Infow("template saved", "name", rec.Name, "goldOnly", rec.IsGoldOnly)
	ok(w, map[string]any{"name": rec.Name})
}

// handleAdminTemplates lists template summaries.
func (s *Server) handleAdminTemplates(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.Templates.List(r.Context())
	if err != nil {
		fail(w, errs.Internal(err))
		return
	}
	ok(w, map[string]any{"templates": summaries})
}

// handleTemplateDelete removes one template.  Deployed sites keep
// their composed content.
func (s *Server) handleTemplateDelete(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		fail(w, errs.Validation("missing template name"))
		return
	}
	if err := s.Templates.Delete(r.Context(), name); err != nil {
		fail(w, errs.Internal(err))
		return
	}
	zap.S().Infow("template deleted", "name", name)
	ok(w, nil)
}

/*──────────────────────────── sites ───────────────────────────────────────*/

// handleAdminSites lists every deployed site.
func (s *Server) handleAdminSites(w http.ResponseWriter, r *http.Request) {
	records, err := s.Sites.All(r.Context())
	if err != nil {
		fail(w, errs.Internal(err))
		return
	}
	ok(w, map[string]any{"sites": records})
}

// handleAdminSiteDelete force-removes any site regardless of owner.
func (s *Server) handleAdminSiteDelete(w http.ResponseWriter, r *http.Request) {
	subdomain := r.URL.Query().Get("subdomain")
	if subdomain == "" {
		fail(w, errs.Validation("missing subdomain"))
		return
	}
	if err := s.Deployer.Delete(r.Context(), "", subdomain, true); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}

/*──────────────────────────── captures ────────────────────────────────────*/

// handleAdminCaptures lists every stored event for one code with no
// plan cap.
func (s *Server) handleAdminCaptures(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		fail(w, errs.Validation("missing access code"))
		return
	}
	events, _, err := s.Captures.List(r.Context(), code, math.MaxInt32)
	if err != nil {
		fail(w, errs.Internal(err))
		return
	}
	ok(w, map[string]any{"events": events})
}

/*──────────────────────────── tenants ─────────────────────────────────────*/

// handleAdminUserGet returns one tenant record plus its site index.
func (s *Server) handleAdminUserGet(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		fail(w, errs.Validation("missing access code"))
		return
	}
	rec, err := s.Tenants.GetOrDefault(r.Context(), code)
	if err != nil {
		fail(w, errs.Internal(err))
		return
	}
	sites, err := s.Sites.Index(r.Context(), code)
	if err != nil {
		fail(w, errs.Internal(err))
		return
	}
	ok(w, map[string]any{"user": rec, "sites": sites})
}

type adminUserRequest struct {
	Code       string  `json:"code"`
	Plan       string  `json:"plan,omitempty"`
	Status     string  `json:"status,omitempty"`
	Strikes    *int    `json:"strikes,omitempty"`
	Expiry     string  `json:"expiry,omitempty"` // RFC 3339, "clear" to unset
	WebhookURL *string `json:"webhookUrl,omitempty"`
}

// handleAdminUserSave patches a tenant record.  Only fields present in
// the request change; absent fields keep their stored values.
func (s *Server) handleAdminUserSave(w http.ResponseWriter, r *http.Request) {
	var req adminUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	if req.Code == "" {
		fail(w, errs.Validation("missing access code"))
		return
	}

	defer s.Locks.Lock(req.Code)()

	rec, err := s.Tenants.GetOrDefault(r.Context(), req.Code)
	if err != nil {
		fail(w, errs.Internal(err))
		return
	}

	if req.Plan != "" {
		t := plan.Tier(req.Plan)
		if !t.Valid() {
			fail(w, errs.Validation("unknown plan %q", req.Plan))
			return
		}
		rec.Plan = t
	}
	if req.Status != "" {
		switch st := tenant.Status(req.Status); st {
		case tenant.StatusActive, tenant.StatusLocked, tenant.StatusBanned:
			rec.Status = st
		default:
			fail(w, errs.Validation("unknown status %q", req.Status))
			return
		}
	}
	if req.Strikes != nil {
		rec.Strikes = *req.Strikes
	}
	switch req.Expiry {
	case "":
	case "clear":
		rec.Expiry = nil
	default:
		t, err := time.Parse(time.RFC3339, req.Expiry)
		if err != nil {
			fail(w, errs.Validation("expiry must be RFC 3339 or \"clear\""))
			return
		}
		rec.Expiry = &t
	}
	if req.WebhookURL != nil {
		rec.WebhookURL = *req.WebhookURL
	}

	if err := s.Tenants.Save(r.Context(), req.Code, rec); err != nil {
		fail(w, errs.Internal(err))
		return
	}
	zap.S().Infow("tenant record patched",
		"code", req.Code, "plan", rec.Plan, "status", rec.Status)
	ok(w, map[string]any{"user": rec})
}

/*──────────────────────────── vouchers ────────────────────────────────────*/

// handleAdminVouchers lists pending claims, oldest first.
func (s *Server) handleAdminVouchers(w http.ResponseWriter, r *http.Request) {
	claims, err := s.Vouchers.Pending(r.Context())
	if err != nil {
		fail(w, errs.Internal(err))
		return
	}
	ok(w, map[string]any{"vouchers": claims})
}

// handleVoucherApprove resolves a claim in the owner's favor.
func (s *Server) handleVoucherApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	if req.ID == "" {
		fail(w, errs.Validation("missing claim id"))
		return
	}
	if err := s.Workflow.Approve(r.Context(), req.ID); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}

// handleVoucherDecline resolves a claim against the owner.
func (s *Server) handleVoucherDecline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     string `json:"id"`
		Reason string `json:"reason,omitempty"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	if req.ID == "" {
		fail(w, errs.Validation("missing claim id"))
		return
	}
	if err := s.Workflow.Decline(r.Context(), req.ID, req.Reason); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}
