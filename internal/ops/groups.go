package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/sieve/internal/errors"
	"github.com/hpungsan/sieve/internal/group"
	"github.com/hpungsan/sieve/internal/logging"
	"github.com/hpungsan/sieve/internal/preset"
	"github.com/hpungsan/sieve/internal/selection"
)

// AddSource selects how a new group is populated.
type AddSource string

const (
	AddSourceEmpty   AddSource = "empty"
	AddSourceCurrent AddSource = "current"
	AddSourcePreset  AddSource = "preset"
)

// GroupSummary is one row of a group listing.
type GroupSummary struct {
	Index         int    `json:"index"`
	ID            string `json:"id"`
	Name          string `json:"name"`
	WorkspaceName string `json:"workspace_name,omitempty"`
	Categories    int    `json:"categories"`
	Enabled       int    `json:"enabled"`
	Active        bool   `json:"active"`
}

func summarize(s *Session, index int, g *group.Group) GroupSummary {
	state := s.Engine.State()
	return GroupSummary{
		Index:         index,
		ID:            g.ID,
		Name:          g.Name,
		WorkspaceName: g.WorkspaceName,
		Categories:    len(g.Categories),
		Enabled:       g.EnabledCount(),
		Active:        state.IsFiltering && state.ActiveGroupIndex == index,
	}
}

// AddGroupInput contains parameters for the AddGroup operation.
type AddGroupInput struct {
	Name   string    // optional; defaults to DefaultGroupName, or the preset name
	Source AddSource // default: empty
	Preset string    // required when Source is preset
}

// AddGroupOutput contains the result of the AddGroup operation.
type AddGroupOutput struct {
	GroupSummary
	Matched []string `json:"matched,omitempty"`
}

// AddGroup appends a new group. From current, every known original name is
// added disabled, sorted. From a preset, every known original name is added
// sorted with the preset's matches enabled; zero matches creates nothing.
func AddGroup(ctx context.Context, database *sql.DB, input AddGroupInput) (*AddGroupOutput, error) {
	source := input.Source
	if source == "" {
		source = AddSourceEmpty
	}
	name := strings.TrimSpace(input.Name)

	var out *AddGroupOutput
	err := withSession(ctx, database, true, func(s *Session) error {
		switch source {
		case AddSourceEmpty:
			if name == "" {
				name = DefaultGroupName
			}
			index, g := s.Groups.Add(name)
			out = &AddGroupOutput{GroupSummary: summarize(s, index, g)}

		case AddSourceCurrent:
			if name == "" {
				name = DefaultGroupName
			}
			index, g := s.Groups.AddWith(name, s.Registry.KnownOriginals(), nil)
			out = &AddGroupOutput{GroupSummary: summarize(s, index, g)}

		case AddSourcePreset:
			if _, ok := preset.Lookup(input.Preset); !ok {
				return errors.NewInvalidRequest(fmt.Sprintf("unknown preset %q", input.Preset))
			}
			available := s.Registry.KnownOriginals()
			matches := preset.Match(input.Preset, available)
			if len(matches) == 0 {
				return errors.NewInvalidRequest(fmt.Sprintf("no matching categories for preset %q", input.Preset))
			}
			if name == "" {
				name = input.Preset
			}
			enabled := make(map[string]bool, len(matches))
			for _, m := range matches {
				enabled[m] = true
			}
			index, g := s.Groups.AddWith(name, available, enabled)
			out = &AddGroupOutput{GroupSummary: summarize(s, index, g), Matched: matches}

		default:
			return errors.NewInvalidRequest(fmt.Sprintf("source must be one of: empty, current, preset (got %q)", source))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("group added",
		zap.String("name", out.Name),
		zap.Int("index", out.Index),
		zap.String("source", string(source)),
	)
	return out, nil
}

// RemoveGroupInput contains parameters for the RemoveGroup operation.
type RemoveGroupInput struct {
	Index int
}

// RemoveGroupOutput contains the result of the RemoveGroup operation.
type RemoveGroupOutput struct {
	Removed   string            `json:"removed"`
	Restored  bool              `json:"restored"`
	Selection *selection.Result `json:"selection,omitempty"`
	Status    StatusOutput      `json:"status"`
}

// RemoveGroup deletes a group and repairs the selection.
func RemoveGroup(ctx context.Context, database *sql.DB, input RemoveGroupInput) (*RemoveGroupOutput, error) {
	var out *RemoveGroupOutput
	err := withSession(ctx, database, true, func(s *Session) error {
		g, err := s.Groups.At(input.Index)
		if err != nil {
			return err
		}
		name := g.Name
		res, err := s.Engine.RemoveGroup(input.Index)
		if err != nil {
			return err
		}
		out = &RemoveGroupOutput{
			Removed:   name,
			Restored:  res != nil,
			Selection: res,
			Status:    s.status(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("group removed",
		zap.String("name", out.Removed),
		zap.Int("index", input.Index),
		zap.Bool("restored", out.Restored),
	)
	return out, nil
}

// RenameGroupInput contains parameters for the RenameGroup operation.
type RenameGroupInput struct {
	Index int
	Name  string
}

// RenameGroup renames a group. Names need not be unique.
func RenameGroup(ctx context.Context, database *sql.DB, input RenameGroupInput) (*GroupSummary, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name must not be empty")
	}

	var out GroupSummary
	err := withSession(ctx, database, true, func(s *Session) error {
		if err := s.Groups.Rename(input.Index, name); err != nil {
			return err
		}
		g, _ := s.Groups.At(input.Index)
		out = summarize(s, input.Index, g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetCategoryInput contains parameters for the SetCategory operation.
type SetCategoryInput struct {
	Index    int
	Category string
	Enabled  bool
}

// SetCategory sets a membership flag. Duplicate memberships are updated
// together; a missing membership is appended.
//
// Editing the active group does not relabel anything until it is applied
// again.
func SetCategory(ctx context.Context, database *sql.DB, input SetCategoryInput) (*GroupSummary, error) {
	if input.Category == "" {
		return nil, errors.NewInvalidRequest("category is required")
	}

	var out GroupSummary
	err := withSession(ctx, database, true, func(s *Session) error {
		if err := s.Groups.SetMembershipEnabled(input.Index, input.Category, input.Enabled); err != nil {
			return err
		}
		g, _ := s.Groups.At(input.Index)
		out = summarize(s, input.Index, g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// BindWorkspaceInput contains parameters for the BindWorkspace operation.
type BindWorkspaceInput struct {
	Index     int
	Workspace string // empty clears the binding
}

// BindWorkspace binds a group to a host workspace.
func BindWorkspace(ctx context.Context, database *sql.DB, input BindWorkspaceInput) (*GroupSummary, error) {
	var out GroupSummary
	err := withSession(ctx, database, true, func(s *Session) error {
		if err := s.Groups.SetWorkspace(input.Index, strings.TrimSpace(input.Workspace)); err != nil {
			return err
		}
		g, _ := s.Groups.At(input.Index)
		out = summarize(s, input.Index, g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListGroupsOutput contains the result of the ListGroups operation.
type ListGroupsOutput struct {
	Groups []GroupSummary `json:"groups"`
	Status StatusOutput   `json:"status"`
}

// ListGroups returns every group in store order.
func ListGroups(ctx context.Context, database *sql.DB) (*ListGroupsOutput, error) {
	var out *ListGroupsOutput
	err := withSession(ctx, database, false, func(s *Session) error {
		out = &ListGroupsOutput{
			Groups: make([]GroupSummary, 0, s.Groups.Len()),
			Status: s.status(),
		}
		for i, g := range s.Groups.All() {
			out.Groups = append(out.Groups, summarize(s, i, g))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ShowGroupInput contains parameters for the ShowGroup operation.
type ShowGroupInput struct {
	Index  int
	Filter string // case-insensitive substring over membership names
}

// MembershipView is one membership row of a group view.
type MembershipView struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Live    bool   `json:"live"`
}

// ShowGroupOutput contains the result of the ShowGroup operation.
type ShowGroupOutput struct {
	GroupSummary
	Filter      string           `json:"filter,omitempty"`
	Memberships []MembershipView `json:"memberships"`
}

// ShowGroup returns a group's memberships in order, optionally filtered.
// Live marks memberships whose category the host reported in the last scan.
func ShowGroup(ctx context.Context, database *sql.DB, input ShowGroupInput) (*ShowGroupOutput, error) {
	var out *ShowGroupOutput
	err := withSession(ctx, database, false, func(s *Session) error {
		g, err := s.Groups.At(input.Index)
		if err != nil {
			return err
		}
		live := make(map[string]bool)
		for _, orig := range s.Registry.KnownOriginals() {
			live[orig] = true
		}

		needle := strings.ToLower(strings.TrimSpace(input.Filter))
		out = &ShowGroupOutput{
			GroupSummary: summarize(s, input.Index, g),
			Filter:       needle,
			Memberships:  make([]MembershipView, 0, len(g.Categories)),
		}
		for _, m := range g.Categories {
			if needle != "" && !strings.Contains(strings.ToLower(m.Name), needle) {
				continue
			}
			out.Memberships = append(out.Memberships, MembershipView{
				Name:    m.Name,
				Enabled: m.Enabled,
				Live:    live[m.Name],
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
