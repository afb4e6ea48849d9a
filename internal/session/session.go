// internal/session/session.go
//
// Admin session cookie helpers.
//
// Context
//   Administrative access is gated by one shared secret: a successful
//   /admin/login sets a cookie whose value must equal the configured
//   session secret on later requests.  The cookie is not per-user and
//   not signed; it expires on a fixed max-age.  This matches the
//   operational model (a single operator identity), and swapping in a
//   real session store later only touches this file.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"crypto/subtle"
	"net/http"
	"time"
)

const (
	// CookieName is the admin session cookie.
	CookieName = "verge_admin"

	// MaxAge bounds a session regardless of activity.
	MaxAge = 12 * time.Hour
)

// Issue sets the admin session cookie after a successful login.
func Issue(w http.ResponseWriter, r *http.Request, secret string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    secret,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil, // only send over HTTPS
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(MaxAge),
	})
}

// Clear removes the admin session cookie.
func Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// Valid reports whether the request carries an authenticated admin
// session.  Comparison is constant time.
func Valid(r *http.Request, secret string) bool {
	if secret == "" {
		return false // never authenticate against an unset secret
	}
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(secret)) == 1
}
