// internal/web/tenantsite.go
//
// Subdomain traffic: serve a resolved site.
//
// HTML sites are written verbatim; the bootstrap block was already
// spliced at deploy time, so serving is a straight copy.  Redirect
// sites answer with a permanent redirect to their stored target.
// Proxy sites forward to their upstream with the 502/504 split
// rendered as branded pages, and plans below gold get the upsell
// banner stitched into proxied HTML.  A record with an unknown type is
// corrupt data, logged and answered with the 500 page.
package web

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/verge/internal/errs"
	"github.com/yanizio/verge/internal/plan"
	"github.com/yanizio/verge/internal/site"
)

// serveSite answers a request on `{subdomain}.{root}`.
func (s *Server) serveSite(w http.ResponseWriter, r *http.Request, subdomain string) {
	rec, err := s.Resolver.Resolve(r.Context(), subdomain)
	if err == site.ErrNotFound {
		renderNotFound(w, subdomain)
		return
	}
	if err != nil {
		zap.S().Errorw("site resolve failed", "subdomain", subdomain, "err", err)
		renderServerError(w)
		return
	}

	switch rec.Type {
	case site.TypeHTML:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, rec.Content)

	case site.TypeRedirect:
		http.Redirect(w, r, rec.Content, http.StatusMovedPermanently)

	case site.TypeProxy:
		if err := s.Forwarder.Forward(w, r, rec.Content, s.proxyBanner(r, rec)); err != nil {
			if errs.IsKind(err, errs.KindTimeout) {
				renderGatewayTimeout(w)
				return
			}
			renderBadGateway(w)
		}

	default:
		zap.S().Errorw("site record has unknown type",
			"subdomain", subdomain, "type", rec.Type)
		renderServerError(w)
	}
}

// proxyBanner reports whether the owner's plan takes the upsell banner
// on proxied pages.  Only gold suppresses it; a tenant lookup failure
// keeps the banner on.
func (s *Server) proxyBanner(r *http.Request, rec *site.Record) bool {
	ten, err := s.Tenants.GetOrDefault(r.Context(), rec.OwnerCode)
	if err != nil {
		return true
	}
	return ten.Plan != plan.Gold
}
