// internal/middleware/cors.go
//
// Origin allow-list CORS.
//
// The allow-list holds the root domain, its subdomains, and one
// external frontend origin.  Approved origins are echoed back in
// Access-Control-Allow-Origin with credentials enabled; everything
// else gets no CORS headers at all.  Preflights for approved origins
// are answered here and never reach the handlers.
package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// CORS returns middleware enforcing the origin allow-list.
// rootDomain matches itself and any subdomain; extraOrigins are exact
// full-origin matches (scheme included).
func CORS(rootDomain string, extraOrigins []string) func(http.Handler) http.Handler {
	extras := make(map[string]struct{}, len(extraOrigins))
	for _, o := range extraOrigins {
		extras[strings.TrimSuffix(o, "/")] = struct{}{}
	}

	allowed := func(origin string) bool {
		if origin == "" {
			return false
		}
		if _, ok := extras[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		host := u.Hostname()
		return host == rootDomain || strings.HasSuffix(host, "."+rootDomain)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowed(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type")
				h.Add("Vary", "Origin")

				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
