// internal/template/registry_test.go
//
// Unit-tests for the template registry.
//
// Run: go test ./internal/template -v

package template

import (
	"context"
	"testing"

	"github.com/yanizio/verge/internal/kv"
)

func TestRoundTripPreservesMarkup(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(kv.NewMemory())

	// Angle brackets, quotes, emoji, and embedded script must survive
	// storage byte for byte.
	content := `<html><body><h1>“Sale” 🎉</h1><script>let x = "</div>";</script></body></html>`
	rec := &Record{Name: "promo", Content: content, RedirectURL: "https://done.example", IsGoldOnly: true}
	if err := reg.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := reg.Get(ctx, "promo")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != content {
		t.Fatalf("content mangled:\n%s", got.Content)
	}
	if !got.IsGoldOnly || got.RedirectURL != "https://done.example" {
		t.Fatalf("metadata lost: %+v", got)
	}
}

func TestGetUnknown(t *testing.T) {
	reg := NewRegistry(kv.NewMemory())
	if _, err := reg.Get(context.Background(), "ghost"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOmitsContent(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(kv.NewMemory())

	_ = reg.Save(ctx, &Record{Name: "a", Content: "<p>a</p>"})
	_ = reg.Save(ctx, &Record{Name: "b", Content: "<p>b</p>", IsGoldOnly: true, PreviewURL: "https://p.example/b.png"})

	summaries, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	// Key order is name order.
	if summaries[0].Name != "a" || summaries[1].Name != "b" {
		t.Fatalf("wrong order: %+v", summaries)
	}
	if !summaries[1].IsGoldOnly || summaries[1].PreviewURL == "" {
		t.Fatalf("metadata missing: %+v", summaries[1])
	}
}

func TestDeleteIsTerminal(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(kv.NewMemory())

	_ = reg.Save(ctx, &Record{Name: "promo", Content: "<p>x</p>"})
	if err := reg.Delete(ctx, "promo"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := reg.Get(ctx, "promo"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
