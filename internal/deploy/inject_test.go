// internal/deploy/inject_test.go
//
// Unit-tests for bootstrap-block composition and splicing.
//
// Run: go test ./internal/deploy -v

package deploy

import (
	"strings"
	"testing"
)

func TestBootstrapBlock(t *testing.T) {
	block := bootstrapBlock("abc123", "https://thanks.example", "https://cdn.example/inject.js")

	// The two globals are the contract the external capture script
	// reads; their exact names matter.
	for _, want := range []string{
		`window.UNIQUE_CODE="abc123";`,
		`window.REDIRECT_URL="https://thanks.example";`,
		`<script src="https://cdn.example/inject.js"></script>`,
	} {
		if !strings.Contains(block, want) {
			t.Errorf("block missing %q:\n%s", want, block)
		}
	}
}

func TestBootstrapBlockNoRedirect(t *testing.T) {
	block := bootstrapBlock("abc123", "", "https://cdn.example/inject.js")
	if strings.Contains(block, "REDIRECT_URL") {
		t.Fatalf("empty redirect must be omitted:\n%s", block)
	}
}

func TestSpliceBeforeBodyClose(t *testing.T) {
	page := "<html><body><h1>Hi</h1></body></html>"
	out := splice(page, "[BLOCK]")
	if out != "<html><body><h1>Hi</h1>[BLOCK]</body></html>" {
		t.Fatalf("unexpected splice: %s", out)
	}
}

func TestSpliceCaseInsensitive(t *testing.T) {
	page := "<HTML><BODY>Hi</BODY></HTML>"
	out := splice(page, "[BLOCK]")
	if out != "<HTML><BODY>Hi[BLOCK]</BODY></HTML>" {
		t.Fatalf("original casing must survive: %s", out)
	}
}

func TestSpliceLastBodyWins(t *testing.T) {
	page := "<body>a</body><body>b</body>"
	out := splice(page, "[BLOCK]")
	if !strings.HasSuffix(out, "b[BLOCK]</body>") {
		t.Fatalf("block must precede the final close tag: %s", out)
	}
}

func TestSpliceAppendsWithoutBody(t *testing.T) {
	out := splice("<h1>fragment</h1>", "[BLOCK]")
	if out != "<h1>fragment</h1>[BLOCK]" {
		t.Fatalf("unexpected append: %s", out)
	}
}
