// internal/proxy/forwarder.go
//
// Upstream forwarder for PROXY-type sites.
//
// Context
// -------
// The site's content field is a base URL; forwarding replaces only the
// path and query of the inbound request.  The original Host header is
// dropped so the upstream sees its own virtual host, and only a curated
// header subset crosses the boundary in either direction.  Upstream
// 4xx/5xx pass through transparently.  Network failure is reported as
// unreachable, and a deadline hit as a distinct timeout; the HTTP layer
// renders 502 or 504 pages accordingly.
//
// Callers on lower plans get an upsell banner stitched into the top of
// proxied HTML bodies; non-HTML responses stream through untouched.
package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/verge/internal/errs"
	"github.com/yanizio/verge/internal/metrics"
)

// requestHeaders is the allow-list copied toward the upstream.  Host
// and connection-management headers are deliberately absent.
var requestHeaders = []string{
	"Accept",
	"Accept-Language",
	"Content-Type",
	"User-Agent",
	"Referer",
	"Cookie",
}

// responseHeaders is the allow-list copied back to the client.
var responseHeaders = []string{
	"Content-Type",
	"Cache-Control",
	"Set-Cookie",
	"Location",
}

// upsellBanner is prepended inside the body of proxied HTML pages when
// the owning plan does not suppress it.
const upsellBanner = `<div style="background:#000;color:#fff;text-align:center;">🚀 Hosted on Verge</div>`

// Forwarder relays requests to proxy-site upstreams.
type Forwarder struct {
	client  *http.Client
	timeout time.Duration
}

// New returns a Forwarder with the given per-request upstream budget.
func New(timeout time.Duration) *Forwarder {
	return &Forwarder{
		client: &http.Client{
			// Redirects from the upstream pass through to the client
			// untouched rather than being chased here.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout: timeout,
	}
}

// Forward relays r to baseURL and writes the upstream response to w.
// When banner is set, HTML responses are buffered and get the upsell
// banner prepended inside their body.  Returned errors are
// errs.Timeout or errs.Upstream; a nil return means the upstream's own
// response (any status) was delivered.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, baseURL string, banner bool) error {
	target, err := buildTarget(baseURL, r.URL)
	if err != nil {
		return errs.Upstream("invalid proxy target")
	}

	ctx, cancel := context.WithTimeout(r.Context(), f.timeout)
	defer cancel()

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return errs.Upstream("invalid proxy request")
	}
	for _, h := range requestHeaders {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.ProxyErrorsTotal.Inc()
		if isTimeout(err) {
			zap.S().Warnw("upstream timeout", "target", target)
			return errs.Timeout("upstream timed out")
		}
		zap.S().Warnw("upstream unreachable", "target", target, "err", err)
		return errs.Upstream("upstream unreachable")
	}
	defer resp.Body.Close()

	for _, h := range responseHeaders {
		for _, v := range resp.Header.Values(h) {
			w.Header().Add(h, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if banner && strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		page, _ := io.ReadAll(resp.Body)
		_, _ = w.Write(prependBanner(page))
		return nil
	}
	_, _ = io.Copy(w, resp.Body)
	return nil
}

// prependBanner inserts the banner right after the opening body tag,
// or before the whole page when it has none.  Matching is
// case-insensitive; the page's casing is preserved.
func prependBanner(page []byte) []byte {
	lower := strings.ToLower(string(page))
	if i := strings.Index(lower, "<body"); i >= 0 {
		if j := strings.IndexByte(lower[i:], '>'); j >= 0 {
			at := i + j + 1
			out := make([]byte, 0, len(page)+len(upsellBanner))
			out = append(out, page[:at]...)
			out = append(out, upsellBanner...)
			return append(out, page[at:]...)
		}
	}
	return append([]byte(upsellBanner), page...)
}

// buildTarget joins the site's base URL with the inbound path and
// query.  A trailing slash on the base is tolerated.
func buildTarget(baseURL string, in *url.URL) (string, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return "", err
	}
	if base.Scheme == "" || base.Host == "" {
		return "", errors.New("proxy base must be absolute")
	}
	target := *base
	target.Path = strings.TrimSuffix(base.Path, "/") + in.Path
	target.RawQuery = in.RawQuery
	return target.String(), nil
}

// isTimeout distinguishes deadline hits from other transport failures.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
