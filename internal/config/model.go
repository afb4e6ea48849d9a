// internal/config/model.go
//
// Typed configuration model for Verge.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `conf/.env`                    – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `VERGE_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *after* unmarshalling, so the rest of the
// app never stores Vault URIs—only plain strings.
//
// Validation happens immediately after secret resolution; the app
// fails fast if required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml`
//     tags unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Quota numbers are deliberately configuration, not code: the plan
//     tables ship as defaults and YAML overrides win.

package config

import (
	"time"

	"github.com/yanizio/verge/internal/plan"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Domain section
//

// Domain identifies the root domain and the external collaborators the
// router composes into deployed pages.
type Domain struct {
	// Root is the apex domain; tenant sites live on its subdomains.
	Root string `koanf:"root" validate:"required,fqdn"`

	// InjectionScriptURL is loaded by the bootstrap block spliced into
	// deployed HTML.  The script is an opaque collaborator.
	InjectionScriptURL string `koanf:"injection_script_url" validate:"required,url"`

	// FrontendOrigin is the one external origin allowed by CORS in
	// addition to the root domain and its subdomains.
	FrontendOrigin string `koanf:"frontend_origin" validate:"omitempty,url"`
}

//
// Storage section
//

// Storage selects and parameterizes the key-value backend.
type Storage struct {
	Driver        string `koanf:"driver" validate:"required,oneof=redis mysql memory"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	MySQLDSN      string `koanf:"mysql_dsn"`
}

//
// Admin section
//

// Admin holds the operator credentials.  Both values accept `vault:`
// references; plain literals are for development only.
type Admin struct {
	Password      string `koanf:"password"       validate:"required"`
	SessionSecret string `koanf:"session_secret" validate:"required"`
}

//
// Rate-limit section
//

// Rate is one fixed-window budget.
type Rate struct {
	Limit         int `koanf:"limit"`
	WindowSeconds int `koanf:"window_seconds"`
}

// Window returns the rule's window as a Duration.
func (r Rate) Window() time.Duration { return time.Duration(r.WindowSeconds) * time.Second }

// RateLimits carries the budgets for the public write endpoints.
type RateLimits struct {
	Capture Rate `koanf:"capture"`
	Deploy  Rate `koanf:"deploy"`
}

//
// Plans section
//

// Plans overrides the built-in quota tables.  Unset fields keep the
// defaults from plan.DefaultLimits.
type Plans struct {
	SiteQuota         map[string]int `koanf:"site_quota"`
	CaptureVisibility map[string]int `koanf:"capture_visibility"`
	TemplateReuseCap  int            `koanf:"template_reuse_cap"`
	VoucherPeriodDays int            `koanf:"voucher_period_days"`
	StagedTier        string         `koanf:"staged_tier"`
	ProvisionalTier   string         `koanf:"provisional_tier"`
}

//
// Proxy section
//

// Proxy tunes upstream forwarding for PROXY-type sites.
type Proxy struct {
	TimeoutSeconds int `koanf:"timeout_seconds" validate:"omitempty,min=1"`
}

// Timeout returns the upstream budget, defaulting to 15 s.
func (p Proxy) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

//
// Geo section
//

// Geo points at the optional GeoLite2-City database used to enrich
// capture metadata.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or VERGE_ROOT override) so later code
// can build absolute file paths.
type Paths struct {
	Root string // VERGE_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in
// an atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP    HTTP       `koanf:"http"`
	Domain  Domain     `koanf:"domain"`
	Storage Storage    `koanf:"storage"`
	Admin   Admin      `koanf:"admin"`
	Limits  RateLimits `koanf:"limits"`
	Plans   Plans      `koanf:"plans"`
	Proxy   Proxy      `koanf:"proxy"`
	Geo     Geo        `koanf:"geo"`
	Paths   Paths      `koanf:"-"` // not loaded from config files
}

// PlanLimits merges the Plans overrides onto the built-in defaults.
func (c *Config) PlanLimits() plan.Limits {
	l := plan.DefaultLimits()
	for name, n := range c.Plans.SiteQuota {
		l.SiteQuota[plan.Tier(name)] = n
	}
	for name, n := range c.Plans.CaptureVisibility {
		l.CaptureVisibility[plan.Tier(name)] = n
	}
	if c.Plans.TemplateReuseCap > 0 {
		l.TemplateReuseCap = c.Plans.TemplateReuseCap
	}
	if c.Plans.VoucherPeriodDays > 0 {
		l.VoucherPeriodDays = c.Plans.VoucherPeriodDays
	}
	if t := plan.Tier(c.Plans.StagedTier); t.Valid() {
		l.StagedTier = t
	}
	if t := plan.Tier(c.Plans.ProvisionalTier); t.Valid() {
		l.ProvisionalTier = t
	}
	return l
}

// CORSOrigins returns the extra exact-match origins for the CORS
// allow-list.
func (c *Config) CORSOrigins() []string {
	if c.Domain.FrontendOrigin == "" {
		return nil
	}
	return []string{c.Domain.FrontendOrigin}
}
