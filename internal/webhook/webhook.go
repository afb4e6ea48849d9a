// internal/webhook/webhook.go
//
// Fire-and-forget capture notifications.
//
// Context
//   Premium and gold tenants may register a webhook URL; every ingested
//   capture event is POSTed there as JSON.  Delivery is strictly
//   best-effort: one attempt, a short budget, failures logged and
//   dropped.  No queue, no retry, by contract.
package webhook

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const deliverTimeout = 5 * time.Second

// Notifier posts capture events to tenant-configured URLs.
type Notifier struct {
	client *http.Client
}

// New returns a Notifier with the package delivery budget.
func New() *Notifier {
	return &Notifier{client: &http.Client{Timeout: deliverTimeout}}
}

// Notify delivers body to url asynchronously.  Safe to call from a
// request handler; the handler never waits on the upstream.
func (n *Notifier) Notify(url string, body []byte) {
	if url == "" {
		return
	}
	go n.deliver(url, body)
}

func (n *Notifier) deliver(url string, body []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.S().Errorw("webhook delivery panic", "url", url, "panic", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		zap.S().Warnw("webhook request build failed", "url", url, "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		zap.S().Warnw("webhook delivery failed", "url", url, "err", err)
		return
	}
	resp.Body.Close()
	zap.S().Debugw("webhook delivered", "url", url, "status", resp.StatusCode)
}
