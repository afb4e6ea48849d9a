// internal/web/router.go
//
// Request router: host classification and route table.
//
// Context
// -------
// One handler serves two audiences.  Requests whose Host is the root
// domain (or anything that is not one of its subdomains, e.g. a bare
// IP health probe) go to the chi mux carrying the API and admin
// surface.  Requests on `{sub}.{root}` bypass the mux entirely and are
// served from the site resolver, so tenant traffic never collides with
// API paths.
//
// Middleware order, outermost first: HTTPS upgrade (optional), security
// headers, CORS, request enrichment, then dispatch.
package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/verge/internal/capture"
	"github.com/yanizio/verge/internal/config"
	"github.com/yanizio/verge/internal/deploy"
	"github.com/yanizio/verge/internal/errs"
	"github.com/yanizio/verge/internal/middleware"
	"github.com/yanizio/verge/internal/proxy"
	"github.com/yanizio/verge/internal/ratelimit"
	"github.com/yanizio/verge/internal/requestinfo"
	"github.com/yanizio/verge/internal/session"
	"github.com/yanizio/verge/internal/site"
	"github.com/yanizio/verge/internal/template"
	"github.com/yanizio/verge/internal/tenant"
	"github.com/yanizio/verge/internal/voucher"
	"github.com/yanizio/verge/internal/webhook"
)

// loginRule caps admin password guesses.  Not configurable; there is
// exactly one credential to protect.
var loginRule = ratelimit.Rule{Limit: 5, Window: time.Minute}

// Deps bundles the collaborators the router binds to HTTP.
type Deps struct {
	Tenants   *tenant.Registry
	Locks     *tenant.KeyedMutex
	Sites     *site.Repository
	Resolver  *site.Resolver
	Templates *template.Registry
	Captures  *capture.Store
	Vouchers  *voucher.Store
	Workflow  *voucher.Workflow
	Deployer  *deploy.Orchestrator
	Forwarder *proxy.Forwarder
	Limiter   *ratelimit.Limiter
	Notifier  *webhook.Notifier
}

// Server is the HTTP surface.  Construct with NewServer, mount with
// Handler.
type Server struct {
	cfg *config.Config
	Deps
}

// NewServer binds the collaborators to a Server.
func NewServer(cfg *config.Config, d Deps) *Server {
	return &Server{cfg: cfg, Deps: d}
}

// Handler returns the complete middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := s.routes()
	root := s.cfg.Domain.Root

	dispatch := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := stripPort(r.Host)
		sub, isSub := strings.CutSuffix(host, "."+root)
		if !isSub || sub == "www" || host == root {
			mux.ServeHTTP(w, r)
			return
		}
		s.serveSite(w, r, sub)
	})

	var h http.Handler = dispatch
	h = requestinfo.Enrich(h)
	h = middleware.CORS(root, s.cfg.CORSOrigins())(h)
	h = middleware.Security(h)
	if s.cfg.HTTP.ForceHTTPS {
		h = middleware.ForceHTTPS(h)
	}
	return h
}

// routes builds the root-domain route table.
func (s *Server) routes() chi.Router {
	mux := chi.NewRouter()

	mux.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		ok(w, map[string]any{"service": "verge"})
	})
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		ok(w, nil)
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Public API: authenticated by possession of an access code.
	mux.Post("/api/capture", s.handleCaptureIngest)
	mux.Get("/api/public/captures", s.handleCapturesList)
	mux.Delete("/api/public/captures", s.handleCaptureDelete)
	mux.Post("/api/public/deploy", s.handleDeploy)
	mux.Get("/api/public/sites", s.handleSitesList)
	mux.Delete("/api/public/sites", s.handleSiteDelete)
	mux.Get("/api/public/templates", s.handleTemplatesList)
	mux.Get("/api/public/check-subdomain", s.handleCheckSubdomain)
	mux.Post("/api/pay", s.handlePay)
	mux.Get("/api/user/settings", s.handleSettingsGet)
	mux.Post("/api/user/settings", s.handleSettingsSet)

	// Admin surface.
	mux.Post("/admin/login", s.handleAdminLogin)
	mux.Post("/admin/logout", s.handleAdminLogout)
	mux.Group(func(g chi.Router) {
		g.Use(s.requireAdmin)
		g.Post("/api/save", s.handleTemplateSave)
		g.Get("/api/captures", s.handleAdminCaptures)
		g.Get("/api/admin/templates", s.handleAdminTemplates)
		g.Delete("/api/admin/templates", s.handleTemplateDelete)
		g.Get("/api/admin/sites", s.handleAdminSites)
		g.Delete("/api/admin/sites", s.handleAdminSiteDelete)
		g.Get("/api/admin/users", s.handleAdminUserGet)
		g.Post("/api/admin/users", s.handleAdminUserSave)
		g.Get("/api/admin/vouchers", s.handleAdminVouchers)
		g.Post("/api/admin/vouchers/approve", s.handleVoucherApprove)
		g.Post("/api/admin/vouchers/decline", s.handleVoucherDecline)
	})

	return mux
}

// requireAdmin rejects requests without a valid admin session cookie.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.Valid(r, s.cfg.Admin.SessionSecret) {
			fail(w, errs.Unauthorized("admin session required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// stripPort removes the :port suffix from Host when present.
func stripPort(h string) string {
	if i := strings.IndexByte(h, ':'); i != -1 {
		return h[:i]
	}
	return h
}
