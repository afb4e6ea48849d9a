// internal/web/pages.go
//
// Branded HTML error pages for tenant traffic.
//
// API clients get the JSON envelope from respond.go; visitors hitting
// a subdomain get a real page.  Three cases matter: the subdomain does
// not exist (404), the upstream behind a PROXY site failed (502/504),
// and the catch-all internal failure (500).
package web

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
  body { margin: 0; font-family: -apple-system, "Segoe UI", Roboto, sans-serif;
         background: #0f1117; color: #e6e8ee; display: flex; min-height: 100vh;
         align-items: center; justify-content: center; }
  main { text-align: center; padding: 2rem; }
  h1 { font-size: 4rem; margin: 0; color: #6c8cff; }
  p  { color: #9aa0ae; max-width: 28rem; }
</style>
</head>
<body>
<main>
  <h1>{{.Code}}</h1>
  <h2>{{.Title}}</h2>
  <p>{{.Message}}</p>
</main>
</body>
</html>
`))

type pageData struct {
	Code    int
	Title   string
	Message string
}

// renderPage writes one branded page.  Template failures fall back to
// plain text so the visitor always gets the status code.
func renderPage(w http.ResponseWriter, d pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(d.Code)
	if err := pageTmpl.Execute(w, d); err != nil {
		zap.S().Errorw("error page render failed", "err", err)
	}
}

func renderNotFound(w http.ResponseWriter, subdomain string) {
	renderPage(w, pageData{
		Code:    http.StatusNotFound,
		Title:   "Site Not Found",
		Message: "There is no site at “" + subdomain + "”.  It may have been removed, or it was never deployed.",
	})
}

func renderBadGateway(w http.ResponseWriter) {
	renderPage(w, pageData{
		Code:    http.StatusBadGateway,
		Title:   "Upstream Unavailable",
		Message: "The origin behind this site could not be reached.  Please try again shortly.",
	})
}

func renderGatewayTimeout(w http.ResponseWriter) {
	renderPage(w, pageData{
		Code:    http.StatusGatewayTimeout,
		Title:   "Upstream Timed Out",
		Message: "The origin behind this site took too long to respond.",
	})
}

func renderServerError(w http.ResponseWriter) {
	renderPage(w, pageData{
		Code:    http.StatusInternalServerError,
		Title:   "Something Went Wrong",
		Message: "An unexpected error occurred while serving this site.",
	})
}
