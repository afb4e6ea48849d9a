// internal/middleware/middleware_test.go
//
// Unit-tests for the HTTP wrappers.
//
// Run: go test ./internal/middleware -v

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestForceHTTPSRedirects(t *testing.T) {
	h := ForceHTTPS(okHandler)

	req := httptest.NewRequest(http.MethodGet, "http://demo.verge.test/page?q=1", nil)
	req.Host = "demo.verge.test"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusPermanentRedirect {
		t.Fatalf("status = %d, want 308", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://demo.verge.test/page?q=1" {
		t.Fatalf("Location = %q", loc)
	}
}

func TestForceHTTPSSkipsLocalhost(t *testing.T) {
	h := ForceHTTPS(okHandler)

	req := httptest.NewRequest(http.MethodGet, "http://localhost:8080/", nil)
	req.Host = "localhost:8080"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("localhost must not redirect, got %d", rec.Code)
	}
}

func TestCORSSubdomainAllowed(t *testing.T) {
	h := CORS("verge.test", nil)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "http://verge.test/api/templates", nil)
	req.Header.Set("Origin", "https://demo.verge.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://demo.verge.test" {
		t.Fatalf("subdomain origin not allowed: %q", got)
	}
	if rec.Header().Get("Vary") != "Origin" {
		t.Fatalf("Vary: Origin missing")
	}
}

func TestCORSSuffixSpoofRejected(t *testing.T) {
	h := CORS("verge.test", nil)(okHandler)

	// "evilverge.test" ends with "verge.test" but is not a subdomain.
	req := httptest.NewRequest(http.MethodGet, "http://verge.test/", nil)
	req.Header.Set("Origin", "https://evilverge.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("suffix-spoofed origin must be rejected")
	}
}

func TestSecurityDoesNotOverwrite(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.WriteHeader(http.StatusOK)
	})
	h := Security(inner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://verge.test/", nil))

	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("handler value overwritten: %q", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("default header missing")
	}
}
