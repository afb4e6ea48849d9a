// internal/deploy/orchestrator.go
//
// Deployment orchestrator.
//
// Context
// -------
// Deploy validates a request, enforces quota and uniqueness
// invariants, composes the final site content, and updates the site
// record plus the owner's index.  The two writes are not atomic; the
// sequence runs under the owner's keyed mutex, and a failure after the
// first write is surfaced as an internal error with the partial state
// left for reconciliation.
//
// Order of checks (first failure wins): subdomain validity, account
// status, site quota, subdomain ownership, template gating, content
// composition, writes.
package deploy

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/verge/internal/errs"
	"github.com/yanizio/verge/internal/metrics"
	"github.com/yanizio/verge/internal/plan"
	"github.com/yanizio/verge/internal/site"
	"github.com/yanizio/verge/internal/template"
	"github.com/yanizio/verge/internal/tenant"
)

// Request is one deployment attempt.  Exactly one content source is
// used: TemplateName, ProxyTarget, RedirectTarget, or HTML.
type Request struct {
	Subdomain string
	OwnerCode string

	TemplateName   string // deploy from a stored template
	ProxyTarget    string // deploy a reverse-proxy site
	RedirectTarget string // deploy a permanent-redirect site
	HTML           string // deploy caller-supplied markup

	// Inject splices the bootstrap block into caller-supplied HTML.
	// Template deployments always receive the block.
	Inject      bool
	RedirectURL string // overrides the template's redirect target
}

// Orchestrator wires the registries a deployment touches.
type Orchestrator struct {
	sites     *site.Repository
	templates *template.Registry
	tenants   *tenant.Registry
	resolver  *site.Resolver
	locks     *tenant.KeyedMutex
	limits    plan.Limits

	rootDomain string
	scriptURL  string
}

// New returns an Orchestrator.  resolver may be nil in tests; when set
// it is invalidated after every successful write.
func New(
	sites *site.Repository,
	templates *template.Registry,
	tenants *tenant.Registry,
	resolver *site.Resolver,
	locks *tenant.KeyedMutex,
	limits plan.Limits,
	rootDomain, scriptURL string,
) *Orchestrator {
	return &Orchestrator{
		sites:      sites,
		templates:  templates,
		tenants:    tenants,
		resolver:   resolver,
		locks:      locks,
		limits:     limits,
		rootDomain: rootDomain,
		scriptURL:  scriptURL,
	}
}

// Deploy runs the full orchestration and returns the site's hostname.
func (o *Orchestrator) Deploy(ctx context.Context, req Request) (string, error) {
	host, err := o.deploy(ctx, req)
	if err != nil {
		metrics.DeployErrorsTotal.Inc()
		return "", err
	}
	metrics.DeployTotal.Inc()
	return host, nil
}

func (o *Orchestrator) deploy(ctx context.Context, req Request) (string, error) {
	if err := site.ValidateSubdomain(req.Subdomain); err != nil {
		return "", err
	}

	defer o.locks.Lock(req.OwnerCode)()

	ten, err := o.tenants.GetOrDefault(ctx, req.OwnerCode)
	if err != nil {
		return "", errs.Internal(err)
	}
	if ten.Suspended() {
		return "", errs.Forbidden("account is %s", ten.Status)
	}

	index, err := o.sites.Index(ctx, req.OwnerCode)
	if err != nil {
		return "", errs.Internal(err)
	}

	existing, err := o.sites.Get(ctx, req.Subdomain)
	if err != nil && err != site.ErrNotFound {
		return "", errs.Internal(err)
	}
	if existing != nil && existing.OwnerCode != req.OwnerCode {
		return "", errs.Conflict("subdomain %q is taken", req.Subdomain)
	}
	isUpdate := existing != nil

	// Updates to an owned subdomain do not consume quota.
	if !isUpdate && len(index) >= o.limits.SiteQuotaFor(ten.Plan) {
		return "", errs.Conflict("site quota for plan %s reached", ten.Plan)
	}

	rec := &site.Record{
		Subdomain: req.Subdomain,
		OwnerCode: req.OwnerCode,
		Updated:   time.Now().UTC(),
	}

	switch {
	case req.TemplateName != "":
		tpl, err := o.templates.Get(ctx, req.TemplateName)
		if err == template.ErrNotFound {
			return "", errs.Validation("template %q not found", req.TemplateName)
		}
		if err != nil {
			return "", errs.Internal(err)
		}
		if tpl.IsGoldOnly && ten.Plan != plan.Gold {
			return "", errs.Forbidden("template %q requires the gold plan", tpl.Name)
		}
		if site.TemplateUse(index, tpl.Name, req.Subdomain) >= o.limits.TemplateReuseCap {
			return "", errs.Conflict("template %q already used %d times",
				tpl.Name, o.limits.TemplateReuseCap)
		}
		redirect := req.RedirectURL
		if redirect == "" {
			redirect = tpl.RedirectURL
		}
		rec.Type = site.TypeHTML
		rec.Content = splice(tpl.Content, bootstrapBlock(req.OwnerCode, redirect, o.scriptURL))
		rec.TemplateName = tpl.Name

	case req.ProxyTarget != "":
		u, err := url.Parse(req.ProxyTarget)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", errs.Validation("proxy target must be an absolute http(s) URL")
		}
		rec.Type = site.TypeProxy
		rec.Content = req.ProxyTarget

	case req.RedirectTarget != "":
		u, err := url.Parse(req.RedirectTarget)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", errs.Validation("redirect target must be an absolute http(s) URL")
		}
		rec.Type = site.TypeRedirect
		rec.Content = req.RedirectTarget

	case req.HTML != "":
		rec.Type = site.TypeHTML
		rec.Content = req.HTML
		if req.Inject {
			rec.Content = splice(req.HTML, bootstrapBlock(req.OwnerCode, req.RedirectURL, o.scriptURL))
		}

	default:
		return "", errs.Validation("no content source: template, html, proxy target, or redirect target required")
	}

	if err := o.sites.Put(ctx, rec); err != nil {
		return "", errs.Internal(err)
	}
	entry := site.IndexEntry{Subdomain: rec.Subdomain, TemplateName: rec.TemplateName}
	if err := o.sites.UpsertIndexEntry(ctx, req.OwnerCode, entry); err != nil {
		// Site written, index not: transient inconsistency left for a
		// reconciliation pass.
		zap.S().Errorw("site index write failed after site write",
			"subdomain", rec.Subdomain, "code", req.OwnerCode, "err", err)
		return "", errs.Internal(err)
	}

	if o.resolver != nil {
		o.resolver.Invalidate(rec.Subdomain)
	}

	zap.S().Infow("site deployed",
		"subdomain", rec.Subdomain, "type", rec.Type, "template", rec.TemplateName,
		"update", isUpdate)
	return rec.Subdomain + "." + o.rootDomain, nil
}

// Delete removes an owned site and its index entry.  Admin callers
// pass force=true to skip the ownership check.
func (o *Orchestrator) Delete(ctx context.Context, code, subdomain string, force bool) error {
	rec, err := o.sites.Get(ctx, subdomain)
	if err == site.ErrNotFound {
		return errs.NotFound("site %q not found", subdomain)
	}
	if err != nil {
		return errs.Internal(err)
	}
	if !force && rec.OwnerCode != code {
		return errs.Forbidden("site %q belongs to another code", subdomain)
	}

	owner := rec.OwnerCode
	defer o.locks.Lock(owner)()

	if err := o.sites.Delete(ctx, subdomain); err != nil {
		return errs.Internal(err)
	}
	if err := o.sites.RemoveIndexEntry(ctx, owner, subdomain); err != nil {
		zap.S().Errorw("site index cleanup failed after delete",
			"subdomain", subdomain, "code", owner, "err", err)
		return errs.Internal(err)
	}

	if o.resolver != nil {
		o.resolver.Invalidate(subdomain)
	}
	zap.S().Infow("site deleted", "subdomain", subdomain, "forced", force)
	return nil
}
