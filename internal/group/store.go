// Package group implements the ordered Group Store and its category
// memberships.
package group

import (
	"github.com/hpungsan/sieve/internal/errors"
)

// Store is an ordered collection of groups. It exclusively owns its groups;
// callers receive pointers for reading and targeted edits but must go through
// the store to add or remove.
type Store struct {
	groups []*Group
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Len returns the number of groups.
func (s *Store) Len() int {
	return len(s.groups)
}

// All returns the groups in store order. The slice is a copy; the groups are not.
func (s *Store) All() []*Group {
	return append([]*Group(nil), s.groups...)
}

// At returns the group at index.
func (s *Store) At(index int) (*Group, error) {
	if err := s.checkIndex(index); err != nil {
		return nil, err
	}
	return s.groups[index], nil
}

// Add appends a new empty group and returns its index and the group.
func (s *Store) Add(name string) (int, *Group) {
	g := New(name)
	s.groups = append(s.groups, g)
	return len(s.groups) - 1, g
}

// AddWith appends a group pre-populated with categories, in the given order.
// A category is enabled when enabled[category] is true.
func (s *Store) AddWith(name string, categories []string, enabled map[string]bool) (int, *Group) {
	index, g := s.Add(name)
	for _, c := range categories {
		g.Append(c, enabled[c])
	}
	return index, g
}

// Append adds an existing group verbatim. A missing ID is filled in.
func (s *Store) Append(g *Group) int {
	if g.ID == "" {
		g.ID = NewID()
	}
	s.groups = append(s.groups, g)
	return len(s.groups) - 1
}

// Remove deletes the group at index. Selection repair is the caller's job.
func (s *Store) Remove(index int) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.groups = append(s.groups[:index], s.groups[index+1:]...)
	return nil
}

// Rename changes the display name of the group at index.
func (s *Store) Rename(index int, name string) error {
	g, err := s.At(index)
	if err != nil {
		return err
	}
	g.Name = name
	return nil
}

// SetMembershipEnabled sets the enabled flag of category in the group at index.
func (s *Store) SetMembershipEnabled(index int, category string, enabled bool) error {
	g, err := s.At(index)
	if err != nil {
		return err
	}
	g.SetEnabled(category, enabled)
	return nil
}

// SetWorkspace binds the group at index to a workspace name; empty clears it.
func (s *Store) SetWorkspace(index int, workspace string) error {
	g, err := s.At(index)
	if err != nil {
		return err
	}
	g.WorkspaceName = workspace
	return nil
}

// FindByName returns the index of the first group named name.
func (s *Store) FindByName(name string) (int, bool) {
	for i, g := range s.groups {
		if g.Name == name {
			return i, true
		}
	}
	return -1, false
}

// FindByWorkspace returns the index of the first group bound to workspace.
// An empty workspace never matches.
func (s *Store) FindByWorkspace(workspace string) (int, bool) {
	if workspace == "" {
		return -1, false
	}
	for i, g := range s.groups {
		if g.WorkspaceName != "" && g.WorkspaceName == workspace {
			return i, true
		}
	}
	return -1, false
}

// Names returns the set of group names.
func (s *Store) Names() map[string]bool {
	names := make(map[string]bool, len(s.groups))
	for _, g := range s.groups {
		names[g.Name] = true
	}
	return names
}

// SyncCategories appends a disabled membership to every group for each known
// category it lacks. Existing memberships are never removed or changed, so a
// category missing for a session keeps its flag. Returns the number added.
func (s *Store) SyncCategories(known []string) int {
	added := 0
	for _, g := range s.groups {
		existing := make(map[string]bool, len(g.Categories))
		for _, m := range g.Categories {
			existing[m.Name] = true
		}
		for _, c := range known {
			if existing[c] {
				continue
			}
			existing[c] = true
			g.Append(c, false)
			added++
		}
	}
	return added
}

// Clear removes every group.
func (s *Store) Clear() {
	s.groups = nil
}

func (s *Store) checkIndex(index int) error {
	if index < 0 || index >= len(s.groups) {
		return errors.NewIndexOutOfRange(index, 0, len(s.groups))
	}
	return nil
}
