// internal/deploy/inject.go
//
// Bootstrap-block composition.
//
// The block publishes two globals the external capture script reads,
// `window.UNIQUE_CODE` (the owner's capture identifier) and
// `window.REDIRECT_URL` (an optional post-capture redirect), then loads
// that script.  The global names are a contract with the script; do not
// rename them here without shipping a script change.  The script itself
// is otherwise opaque; this core only splices the block into the page,
// immediately before the closing body tag when one exists, else
// appended at the end.
package deploy

import (
	"fmt"
	"strings"
)

const bodyClose = "</body>"

// bootstrapBlock renders the script block for one deployment.
func bootstrapBlock(siteKey, redirectURL, scriptURL string) string {
	var b strings.Builder
	b.WriteString("<script>")
	fmt.Fprintf(&b, "window.UNIQUE_CODE=%q;", siteKey)
	if redirectURL != "" {
		fmt.Fprintf(&b, "window.REDIRECT_URL=%q;", redirectURL)
	}
	b.WriteString("</script>")
	fmt.Fprintf(&b, `<script src=%q></script>`, scriptURL)
	return b.String()
}

// splice inserts block before the last closing body tag, or appends it
// when the page has none.  Matching is case-insensitive; the original
// casing of the page is preserved.
func splice(html, block string) string {
	lower := strings.ToLower(html)
	idx := strings.LastIndex(lower, bodyClose)
	if idx < 0 {
		return html + block
	}
	return html[:idx] + block + html[idx:]
}
