package group

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Membership is one (category, enabled) entry of a Group. Name is the
// category's original name.
type Membership struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Group is a user-defined, ordered set of category memberships.
type Group struct {
	// ID is a ULID assigned at creation. It stays stable while the group's
	// index shifts as other groups are removed.
	ID string `json:"id"`

	// Name is user-visible and used for by-name lookup (first match wins).
	Name string `json:"name"`

	// WorkspaceName binds the group to a host workspace; empty means no binding.
	WorkspaceName string `json:"workspace_name"`

	Categories []Membership `json:"categories"`
}

// New returns an empty group with a fresh ID.
func New(name string) *Group {
	return &Group{ID: NewID(), Name: name}
}

// NewID generates a new ULID handle.
func NewID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Has reports whether the group has a membership for category.
func (g *Group) Has(category string) bool {
	for _, m := range g.Categories {
		if m.Name == category {
			return true
		}
	}
	return false
}

// Enabled reports the enabled flag for category. With duplicate memberships
// the last appended one wins.
func (g *Group) Enabled(category string) bool {
	enabled := false
	for _, m := range g.Categories {
		if m.Name == category {
			enabled = m.Enabled
		}
	}
	return enabled
}

// EnabledSet returns the names of enabled memberships, last appended wins.
func (g *Group) EnabledSet() map[string]bool {
	flags := make(map[string]bool, len(g.Categories))
	for _, m := range g.Categories {
		flags[m.Name] = m.Enabled
	}
	allowed := make(map[string]bool, len(flags))
	for name, on := range flags {
		if on {
			allowed[name] = true
		}
	}
	return allowed
}

// EnabledCount returns the number of distinct enabled category names.
func (g *Group) EnabledCount() int {
	return len(g.EnabledSet())
}

// Append adds a membership at the end.
func (g *Group) Append(name string, enabled bool) {
	g.Categories = append(g.Categories, Membership{Name: name, Enabled: enabled})
}

// SetEnabled updates every membership named category, appending one if none
// exists.
func (g *Group) SetEnabled(category string, enabled bool) {
	found := false
	for i := range g.Categories {
		if g.Categories[i].Name == category {
			g.Categories[i].Enabled = enabled
			found = true
		}
	}
	if !found {
		g.Append(category, enabled)
	}
}
