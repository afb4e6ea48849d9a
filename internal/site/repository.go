// internal/site/repository.go
//
// Site and site-index repositories over the key-value store.
//
// Context
// -------
// Two disjoint prefixes: `site::{subdomain}` for the record itself and
// `code_map::{code}` for the owner's ordered index.  The pair is
// mutated together by deploy and delete; callers hold the owner's
// keyed mutex around those sequences.  A write failure between the two
// keys leaves a detectable inconsistency for a reconciliation pass,
// which is the accepted trade against a transactionless store.
package site

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/yanizio/verge/internal/kv"
)

const (
	sitePrefix  = "site::"
	indexPrefix = "code_map::"
)

// ErrNotFound is returned when a subdomain has no site record.
var ErrNotFound = errors.New("site not found")

// Key returns the storage key for a subdomain.
func Key(subdomain string) string { return sitePrefix + subdomain }

// IndexKey returns the storage key for an owner's site index.
func IndexKey(code string) string { return indexPrefix + code }

// Repository persists Site records and owner indexes.
type Repository struct {
	store kv.Store
}

// NewRepository returns a Repository over store.
func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store}
}

// Get fetches the record for subdomain, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, subdomain string) (*Record, error) {
	raw, err := r.store.Get(ctx, Key(subdomain))
	if err == kv.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put overwrites the record for its subdomain.
func (r *Repository) Put(ctx context.Context, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, Key(rec.Subdomain), raw, 0)
}

// Delete removes the record for subdomain.
func (r *Repository) Delete(ctx context.Context, subdomain string) error {
	return r.store.Delete(ctx, Key(subdomain))
}

// All returns every stored site.  Admin listings only; tenant-facing
// paths go through the per-owner index instead.
func (r *Repository) All(ctx context.Context) ([]Record, error) {
	keys, err := r.store.List(ctx, sitePrefix)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		raw, err := r.store.Get(ctx, k)
		if err == kv.ErrNotFound {
			continue // deleted between List and Get
		}
		if err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Index returns the owner's site list, empty when none is stored.
func (r *Repository) Index(ctx context.Context, code string) ([]IndexEntry, error) {
	raw, err := r.store.Get(ctx, IndexKey(code))
	if err == kv.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []IndexEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// PutIndex overwrites the owner's site list.
func (r *Repository) PutIndex(ctx context.Context, code string, entries []IndexEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, IndexKey(code), raw, 0)
}

// UpsertIndexEntry replaces or appends the entry for its subdomain and
// writes the list back.  Created is stamped for new entries.
func (r *Repository) UpsertIndexEntry(ctx context.Context, code string, entry IndexEntry) error {
	entries, err := r.Index(ctx, code)
	if err != nil {
		return err
	}
	if entry.Created.IsZero() {
		entry.Created = time.Now().UTC()
	}
	replaced := false
	for i := range entries {
		if entries[i].Subdomain == entry.Subdomain {
			entry.Created = entries[i].Created // keep original stamp
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	return r.PutIndex(ctx, code, entries)
}

// RemoveIndexEntry drops the subdomain from the owner's list.  Removing
// an absent entry is a no-op.
func (r *Repository) RemoveIndexEntry(ctx context.Context, code, subdomain string) error {
	entries, err := r.Index(ctx, code)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.Subdomain != subdomain {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return r.PutIndex(ctx, code, kept)
}

// TemplateUse counts index entries deployed from the named template,
// excluding one subdomain (pass "" to count all).  Used for the
// per-template reuse cap without scanning the site table.
func TemplateUse(entries []IndexEntry, templateName, excludeSubdomain string) int {
	n := 0
	for _, e := range entries {
		if e.TemplateName == templateName && e.Subdomain != excludeSubdomain {
			n++
		}
	}
	return n
}
