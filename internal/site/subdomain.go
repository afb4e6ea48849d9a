// internal/site/subdomain.go
//
// Subdomain validation.
//
// Beyond the character whitelist, names matching a storage namespace or
// a routing-reserved word are rejected outright.  The site table has
// its own `site::` prefix, so a collision could not corrupt foreign
// records anyway, but reserving the words keeps `admin.<root>` and
// friends permanently unroutable by tenants.
package site

import (
	"regexp"
	"strings"

	"github.com/yanizio/verge/internal/errs"
)

var subdomainPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// reserved holds names tenants may never claim: routing words plus
// every key-prefix word used in the store.
var reserved = map[string]struct{}{
	"www":           {},
	"admin":         {},
	"api":           {},
	"metrics":       {},
	"user":          {},
	"site":          {},
	"template":      {},
	"capture":       {},
	"code-map":      {},
	"code_map":      {},
	"voucher":       {},
	"voucher-queue": {},
	"voucher_queue": {},
	"ratelimit":     {},
}

const maxSubdomainLen = 63 // DNS label limit

// ValidateSubdomain returns nil when name is deployable.
func ValidateSubdomain(name string) error {
	if name == "" {
		return errs.Validation("subdomain is required")
	}
	if len(name) > maxSubdomainLen {
		return errs.Validation("subdomain exceeds %d characters", maxSubdomainLen)
	}
	if !subdomainPattern.MatchString(name) {
		return errs.Validation("subdomain may contain only letters, digits, and hyphens")
	}
	if _, ok := reserved[strings.ToLower(name)]; ok {
		return errs.Validation("subdomain %q is reserved", name)
	}
	return nil
}
