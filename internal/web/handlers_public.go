// internal/web/handlers_public.go
//
// Public API handlers.
//
// Context
// -------
// There are no user accounts; possession of an access code IS the
// identity.  Every handler that touches tenant state takes the code
// from the request, and rate limits key on the client IP so one code
// cannot be starved by another visitor.
//
// Notes
// -----
// • Request bodies are capped at 256 KiB; deployed HTML travels in the
//   deploy endpoint and templates through the admin surface, both well
//   under that.
// • Oxford commas, two spaces after periods.
package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/yanizio/verge/internal/capture"
	"github.com/yanizio/verge/internal/config"
	"github.com/yanizio/verge/internal/deploy"
	"github.com/yanizio/verge/internal/errs"
	"github.com/yanizio/verge/internal/plan"
	"github.com/yanizio/verge/internal/ratelimit"
	"github.com/yanizio/verge/internal/requestinfo"
	"github.com/yanizio/verge/internal/site"
)

const maxBodyBytes = 256 << 10

// decodeJSON reads a size-capped JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Validation("malformed JSON body")
	}
	return nil
}

// rule converts a config budget into a limiter rule.
func rule(c config.Rate) ratelimit.Rule {
	return ratelimit.Rule{Limit: c.Limit, Window: c.Window()}
}

/*──────────────────────────── captures ────────────────────────────────────*/

// handleCaptureIngest accepts one event from the injected bootstrap
// script.  The body is stored verbatim as the event payload; only the
// access code is pulled out of it.
func (s *Server) handleCaptureIngest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UniqueCode string `json:"uniqueCode"`
		Code       string `json:"code"`
		SiteKey    string `json:"siteKey"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		fail(w, errs.Validation("body too large or unreadable"))
		return
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		fail(w, errs.Validation("malformed JSON body"))
		return
	}

	code := body.UniqueCode
	if code == "" {
		code = body.Code
	}
	if code == "" {
		code = body.SiteKey
	}
	if code == "" {
		fail(w, errs.Validation("missing access code"))
		return
	}

	if !s.Limiter.Allow(r.Context(), "capture", requestinfo.ClientIP(r), rule(s.cfg.Limits.Capture)) {
		fail(w, errs.RateLimited("too many capture submissions"))
		return
	}

	meta := captureMeta(r)
	key, err := s.Captures.Ingest(r.Context(), code, raw, meta)
	if err != nil {
		fail(w, errs.Internal(err))
		return
	}

	s.notifyCapture(r, code, key, raw, meta)
	ok(w, map[string]any{"key": key})
}

// notifyCapture fires the tenant webhook when the plan permits one.
// Failures never affect the ingest response.
func (s *Server) notifyCapture(r *http.Request, code, key string, payload json.RawMessage, meta capture.Meta) {
	rec, err := s.Tenants.GetOrDefault(r.Context(), code)
	if err != nil || rec.WebhookURL == "" || !rec.Plan.AllowsWebhook() {
		return
	}
	body, err := json.Marshal(map[string]any{
		"key":       key,
		"ownerCode": code,
		"timestamp": time.Now().UTC(),
		"payload":   payload,
		"meta":      meta,
	})
	if err != nil {
		return
	}
	s.Notifier.Notify(rec.WebhookURL, body)
}

// captureMeta builds event metadata from the enriched request context.
func captureMeta(r *http.Request) capture.Meta {
	info := requestinfo.FromContext(r.Context())
	if info == nil {
		return capture.Meta{IP: requestinfo.ClientIP(r), UserAgent: r.UserAgent()}
	}
	m := capture.Meta{
		CountryISO: info.Geo.CountryISO,
		City:       info.Geo.City,
		UserAgent:  info.UA.Raw,
		Browser:    info.UA.Browser,
		Device:     info.UA.Device,
		IsBot:      info.UA.IsBot,
		Lang:       info.UA.PrimaryLang,
	}
	if info.Geo.IP != nil {
		m.IP = info.Geo.IP.String()
	}
	return m
}

// handleCapturesList returns the caller's events, newest first, capped
// by the plan's visibility limit.  `hidden` reports how many stored
// events a higher plan would reveal.
func (s *Server) handleCapturesList(w http.ResponseWriter, r *http.Request) {
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
	events, hidden, err := s.Captures.List(r.Context(), code, s.Tenants.CaptureVisibility(rec))
	if err != nil {
		fail(w, errs.Internal(err))
		return
	}
	ok(w, map[string]any{
		"events": events,
		"hidden": hidden,
		"plan":   rec.Plan,
	})
}

// handleCaptureDelete removes one owned event.
func (s *Server) handleCaptureDelete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code, key := q.Get("code"), q.Get("key")
	if code == "" || key == "" {
		fail(w, errs.Validation("code and key are required"))
		return
	}
	if err := s.Captures.Delete(r.Context(), code, key); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}

/*──────────────────────────── deployment ──────────────────────────────────*/

type deployRequest struct {
	Code           string `json:"code"`
	Subdomain      string `json:"subdomain"`
	Template       string `json:"template,omitempty"`
	HTML           string `json:"html,omitempty"`
	ProxyTarget    string `json:"proxyTarget,omitempty"`
	RedirectTarget string `json:"redirectTarget,omitempty"`
	Inject         bool   `json:"inject,omitempty"`
	RedirectURL    string `json:"redirectUrl,omitempty"`
}

// handleDeploy creates or updates a site.
func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req deployRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	if req.Code == "" || req.Subdomain == "" {
		fail(w, errs.Validation("code and subdomain are required"))
		return
	}

	if !s.Limiter.Allow(r.Context(), "deploy", requestinfo.ClientIP(r), rule(s.cfg.Limits.Deploy)) {
		fail(w, errs.RateLimited("too many deployments"))
		return
	}

	host, err := s.Deployer.Deploy(r.Context(), deploy.Request{
		Subdomain:      req.Subdomain,
		OwnerCode:      req.Code,
		TemplateName:   req.Template,
		ProxyTarget:    req.ProxyTarget,
		RedirectTarget: req.RedirectTarget,
		HTML:           req.HTML,
		Inject:         req.Inject,
		RedirectURL:    req.RedirectURL,
	})
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"url": host})
}

// handleSitesList returns the caller's site index.
func (s *Server) handleSitesList(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		fail(w, errs.Validation("missing access code"))
		return
	}
	entries, err := s.Sites.Index(r.Context(), code)
	if err != nil {
		fail(w, errs.Internal(err))
		return
	}
	if entries == nil {
		entries = []site.IndexEntry{}
	}
	ok(w, map[string]any{"sites": entries})
}

// handleSiteDelete removes an owned site.
func (s *Server) handleSiteDelete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code, subdomain := q.Get("code"), q.Get("subdomain")
	if code == "" || subdomain == "" {
		fail(w, errs.Validation("code and subdomain are required"))
		return
	}
	if err := s.Deployer.Delete(r.Context(), code, subdomain, false); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}

// handleCheckSubdomain reports whether a subdomain could be deployed:
// syntactically valid, not reserved, and not taken by another code.
func (s *Server) handleCheckSubdomain(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subdomain := q.Get("subdomain")
	if err := site.ValidateSubdomain(subdomain); err != nil {
		ok(w, map[string]any{"available": false, "reason": errs.From(err).Message})
		return
	}

	rec, err := s.Sites.Get(r.Context(), subdomain)
	if err == site.ErrNotFound {
		ok(w, map[string]any{"available": true})
		return
	}
	if err != nil {
		fail(w, errs.Internal(err))
		return
	}
	if code := q.Get("code"); code != "" && rec.OwnerCode == code {
		// The caller already owns it; a redeploy would update in place.
		ok(w, map[string]any{"available": true, "owned": true})
		return
	}
	ok(w, map[string]any{"available": false, "reason": "subdomain is taken"})
}

/*──────────────────────────── templates ───────────────────────────────────*/

// handleTemplatesList returns public template summaries, never content.
func (s *Server) handleTemplatesList(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.Templates.List(r.Context())
	if err != nil {
		fail(w, errs.Internal(err))
		return
	}
	ok(w, map[string]any{"templates": summaries})
}

/*──────────────────────────── vouchers ────────────────────────────────────*/

type payRequest struct {
	Code  string          `json:"code"`
	Plan  string          `json:"plan"`
	Proof json.RawMessage `json:"proof,omitempty"`
}

// handlePay submits a payment claim for manual review.
func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	if req.Code == "" {
		fail(w, errs.Validation("missing access code"))
		return
	}

	claimID, err := s.Workflow.Submit(r.Context(), req.Code, plan.Tier(req.Plan), req.Proof)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"claimId": claimID})
}

/*──────────────────────────── settings ────────────────────────────────────*/

// handleSettingsGet returns the caller's account view.
func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
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
	ok(w, map[string]any{
		"plan":        rec.Plan,
		"status":      rec.Status,
		"expiry":      rec.Expiry,
		"pendingPlan": rec.PendingPlan,
		"webhookUrl":  rec.WebhookURL,
		"siteQuota":   s.Tenants.SiteQuota(rec),
	})
}

type settingsRequest struct {
	Code       string `json:"code"`
	WebhookURL string `json:"webhookUrl"`
}

// handleSettingsSet updates the capture webhook URL.  Premium and gold
// only; an empty URL clears it on any plan.
func (s *Server) handleSettingsSet(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	if req.Code == "" {
		fail(w, errs.Validation("missing access code"))
		return
	}
	if req.WebhookURL != "" {
		u, err := url.Parse(req.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			fail(w, errs.Validation("webhook URL must be absolute http(s)"))
			return
		}
	}

	defer s.Locks.Lock(req.Code)()

	rec, err := s.Tenants.GetOrDefault(r.Context(), req.Code)
	if err != nil {
		fail(w, errs.Internal(err))
		return
	}
	if req.WebhookURL != "" && !rec.Plan.AllowsWebhook() {
		fail(w, errs.Forbidden("webhooks require the premium plan or above"))
		return
	}

	rec.WebhookURL = req.WebhookURL
	if err := s.Tenants.Save(r.Context(), req.Code, rec); err != nil {
		fail(w, errs.Internal(err))
		return
	}
	ok(w, nil)
}
