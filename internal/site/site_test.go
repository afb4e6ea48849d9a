// internal/site/site_test.go
//
// Unit-tests for subdomain validation, the repository pair, and the
// resolver cache.
//
// Run: go test ./internal/site -v

package site

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yanizio/verge/internal/errs"
	"github.com/yanizio/verge/internal/kv"
)

/*──────────────────────────── validation ──────────────────────────────────*/

func TestValidateSubdomain(t *testing.T) {
	valid := []string{"demo", "my-site", "a", "Site42", strings.Repeat("x", 63)}
	for _, name := range valid {
		if err := ValidateSubdomain(name); err != nil {
			t.Errorf("ValidateSubdomain(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{
		"",
		"has.dot",
		"has_underscore",
		"spa ce",
		"emoji🙂",
		strings.Repeat("x", 64),
		"admin",
		"API",       // reservation is case-insensitive
		"code_map",  // storage namespace word
		"ratelimit", // storage namespace word
	}
	for _, name := range invalid {
		err := ValidateSubdomain(name)
		if err == nil {
			t.Errorf("ValidateSubdomain(%q) = nil, want error", name)
			continue
		}
		if !errs.IsKind(err, errs.KindValidation) {
			t.Errorf("ValidateSubdomain(%q) kind = %v, want validation", name, err)
		}
	}
}

/*──────────────────────────── repository ──────────────────────────────────*/

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(kv.NewMemory())

	if _, err := repo.Get(ctx, "demo"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rec := &Record{Subdomain: "demo", Type: TypeHTML, Content: "<html></html>", OwnerCode: "abc"}
	if err := repo.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := repo.Get(ctx, "demo")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OwnerCode != "abc" || got.Type != TypeHTML {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if err := repo.Delete(ctx, "demo"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "demo"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestIndexUpsertPreservesCreated(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(kv.NewMemory())

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.UpsertIndexEntry(ctx, "abc", IndexEntry{
		Subdomain: "demo", Created: created, TemplateName: "one",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Redeploy from a different template: the entry is replaced but the
	// original creation stamp survives.
	if err := repo.UpsertIndexEntry(ctx, "abc", IndexEntry{
		Subdomain: "demo", TemplateName: "two",
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	entries, err := repo.Index(ctx, "abc")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if !entries[0].Created.Equal(created) {
		t.Fatalf("created stamp lost: %v", entries[0].Created)
	}
	if entries[0].TemplateName != "two" {
		t.Fatalf("template not updated: %q", entries[0].TemplateName)
	}
}

func TestRemoveIndexEntry(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(kv.NewMemory())

	_ = repo.UpsertIndexEntry(ctx, "abc", IndexEntry{Subdomain: "one"})
	_ = repo.UpsertIndexEntry(ctx, "abc", IndexEntry{Subdomain: "two"})

	if err := repo.RemoveIndexEntry(ctx, "abc", "one"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	entries, _ := repo.Index(ctx, "abc")
	if len(entries) != 1 || entries[0].Subdomain != "two" {
		t.Fatalf("unexpected index after remove: %+v", entries)
	}

	// Removing an absent entry is a no-op.
	if err := repo.RemoveIndexEntry(ctx, "abc", "gone"); err != nil {
		t.Fatalf("no-op remove: %v", err)
	}
}

func TestTemplateUse(t *testing.T) {
	entries := []IndexEntry{
		{Subdomain: "a", TemplateName: "promo"},
		{Subdomain: "b", TemplateName: "promo"},
		{Subdomain: "c", TemplateName: "other"},
	}
	if n := TemplateUse(entries, "promo", ""); n != 2 {
		t.Fatalf("TemplateUse = %d, want 2", n)
	}
	// A redeploy of "a" must not count itself.
	if n := TemplateUse(entries, "promo", "a"); n != 1 {
		t.Fatalf("TemplateUse excluding a = %d, want 1", n)
	}
}

/*──────────────────────────── resolver ────────────────────────────────────*/

func TestResolverCachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	repo := NewRepository(store)
	r := NewResolver(repo, time.Minute, time.Hour, 100)
	defer r.Close()

	_ = repo.Put(ctx, &Record{Subdomain: "demo", Type: TypeHTML, Content: "v1", OwnerCode: "abc"})

	got, err := r.Resolve(ctx, "demo")
	if err != nil || got.Content != "v1" {
		t.Fatalf("resolve: %+v, %v", got, err)
	}

	// A store write without invalidation is invisible inside FreshTTL.
	_ = repo.Put(ctx, &Record{Subdomain: "demo", Type: TypeHTML, Content: "v2", OwnerCode: "abc"})
	got, err = r.Resolve(ctx, "demo")
	if err != nil || got.Content != "v1" {
		t.Fatalf("expected cached v1, got %+v, %v", got, err)
	}

	// Invalidate forces the next resolve to reload.
	r.Invalidate("demo")
	got, err = r.Resolve(ctx, "demo")
	if err != nil || got.Content != "v2" {
		t.Fatalf("expected reloaded v2, got %+v, %v", got, err)
	}
}

func TestResolverMiss(t *testing.T) {
	r := NewResolver(NewRepository(kv.NewMemory()), time.Minute, time.Hour, 100)
	defer r.Close()

	if _, err := r.Resolve(context.Background(), "ghost"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolverDeletePropagates(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(kv.NewMemory())
	r := NewResolver(repo, time.Minute, time.Hour, 100)
	defer r.Close()

	_ = repo.Put(ctx, &Record{Subdomain: "demo", Type: TypeHTML, Content: "v1", OwnerCode: "abc"})
	if _, err := r.Resolve(ctx, "demo"); err != nil {
		t.Fatalf("warm resolve: %v", err)
	}

	_ = repo.Delete(ctx, "demo")
	r.Invalidate("demo")
	if _, err := r.Resolve(ctx, "demo"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
