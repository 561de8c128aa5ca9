// Package registry tracks the categories a host reports and the original name
// each one had when it was first observed.
//
// Bindings are only ever added. A Registry is created at session start and
// cleared only by an explicit Reset, so repeated relabeling by the host never
// corrupts a category's natural identity.
package registry

import (
	"sort"

	"github.com/hpungsan/sieve/internal/errors"
)

// Registry maps category identifiers to their original names and remembers
// the most recent live category list.
type Registry struct {
	originals map[string]string
	known     []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{originals: make(map[string]string)}
}

// Observe records category as its own original name unless a binding already
// exists, and returns the original name. It never overwrites a binding.
func (r *Registry) Observe(category string) string {
	if orig, ok := r.originals[category]; ok {
		return orig
	}
	r.originals[category] = category
	return category
}

// OriginalNameOf returns the recorded original name for category.
func (r *Registry) OriginalNameOf(category string) (string, bool) {
	orig, ok := r.originals[category]
	return orig, ok
}

// Restore re-installs a persisted binding. Restoring the same binding twice is
// a no-op; restoring a different original for a bound category fails with
// DUPLICATE_ORIGINAL_BINDING.
func (r *Registry) Restore(category, original string) error {
	if existing, ok := r.originals[category]; ok {
		if existing == original {
			return nil
		}
		return errors.NewDuplicateOriginalBinding(category, existing, original)
	}
	r.originals[category] = original
	return nil
}

// CurrentCategories observes every category in live and returns the
// deduplicated set sorted case-sensitively. The result becomes the registry's
// known category list.
func (r *Registry) CurrentCategories(live []string) []string {
	seen := make(map[string]bool, len(live))
	cats := make([]string, 0, len(live))
	for _, c := range live {
		r.Observe(c)
		if seen[c] {
			continue
		}
		seen[c] = true
		cats = append(cats, c)
	}
	sort.Strings(cats)

	r.known = cats
	return append([]string(nil), cats...)
}

// Known returns the categories from the most recent CurrentCategories call.
func (r *Registry) Known() []string {
	return append([]string(nil), r.known...)
}

// SetKnown replaces the known category list without re-sorting. Used when a
// session is rebuilt from storage.
func (r *Registry) SetKnown(cats []string) {
	for _, c := range cats {
		r.Observe(c)
	}
	r.known = append([]string(nil), cats...)
}

// KnownOriginals returns the original names of the known categories,
// deduplicated and sorted.
func (r *Registry) KnownOriginals() []string {
	seen := make(map[string]bool, len(r.known))
	out := make([]string, 0, len(r.known))
	for _, c := range r.known {
		orig := r.Observe(c)
		if !seen[orig] {
			seen[orig] = true
			out = append(out, orig)
		}
	}
	sort.Strings(out)
	return out
}

// Bindings returns a copy of every category to original-name binding.
func (r *Registry) Bindings() map[string]string {
	out := make(map[string]string, len(r.originals))
	for k, v := range r.originals {
		out[k] = v
	}
	return out
}

// Len returns the number of bindings.
func (r *Registry) Len() int {
	return len(r.originals)
}

// Reset drops all bindings and the known list.
func (r *Registry) Reset() {
	r.originals = make(map[string]string)
	r.known = nil
}
