// internal/template/registry.go
//
// Reusable HTML template registry.
//
// Templates are admin-curated HTML bodies tenants deploy from.  Each
// carries gating metadata: a gold-only flag and an optional post-capture
// redirect target consumed by the bootstrap block.  Content is stored
// and served verbatim, markup and all; the registry never interprets it
// beyond the body-close splice performed at deploy time.
package template

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/yanizio/verge/internal/kv"
)

const keyPrefix = "template::"

// ErrNotFound is returned when a template name is unknown.
var ErrNotFound = errors.New("template not found")

// Record is one stored template.
type Record struct {
	Name        string `json:"name"`
	Content     string `json:"content"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	IsGoldOnly  bool   `json:"isGoldOnly"`
	PreviewURL  string `json:"previewUrl,omitempty"`
}

// Summary is the public listing shape: metadata without content.
type Summary struct {
	Name        string `json:"name"`
	IsGoldOnly  bool   `json:"isGoldOnly"`
	PreviewURL  string `json:"previewUrl,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// Key returns the storage key for a template name.
func Key(name string) string { return keyPrefix + name }

// Registry persists templates in the shared store.
type Registry struct {
	store kv.Store
}

// NewRegistry returns a Registry over store.
func NewRegistry(store kv.Store) *Registry {
	return &Registry{store: store}
}

// Get fetches one template, or ErrNotFound.
func (r *Registry) Get(ctx context.Context, name string) (*Record, error) {
	raw, err := r.store.Get(ctx, Key(name))
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

// Save overwrites the template under its name.
func (r *Registry) Save(ctx context.Context, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, Key(rec.Name), raw, 0)
}

// Delete removes a template.  Sites already deployed from it keep
// their composed content; only future deployments are affected.
func (r *Registry) Delete(ctx context.Context, name string) error {
	return r.store.Delete(ctx, Key(name))
}

// List returns metadata summaries for every template, in name order.
func (r *Registry) List(ctx context.Context) ([]Summary, error) {
	keys, err := r.store.List(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(keys))
	for _, k := range keys {
		raw, err := r.store.Get(ctx, k)
		if err == kv.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		out = append(out, Summary{
			Name:        rec.Name,
			IsGoldOnly:  rec.IsGoldOnly,
			PreviewURL:  rec.PreviewURL,
			RedirectURL: rec.RedirectURL,
		})
	}
	return out, nil
}
