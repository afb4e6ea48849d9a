// internal/web/respond.go
//
// JSON response helpers.
//
// Every API response shares one envelope: `{"success":true, ...}` on
// the happy path and `{"success":false,"error":"..."}` on failure,
// with the status code derived from the error's Kind.  Internal causes
// are logged here and never leak to clients.
package web

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/verge/internal/errs"
)

// writeJSON encodes v with the given status.  Encoding failures are
// logged; by then the status line is gone, so nothing else can be done.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Errorw("response encode failed", "err", err)
	}
}

// ok writes a success envelope, merging extra into it.
func ok(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// fail converts err into the failure envelope.
func fail(w http.ResponseWriter, err error) {
	e := errs.From(err)
	if e.Kind == errs.KindInternal {
		zap.S().Errorw("request failed", "err", e.Unwrap())
	}
	writeJSON(w, e.Status(), map[string]any{
		"success": false,
		"error":   e.Message,
	})
}
