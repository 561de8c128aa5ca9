// Package selection computes which categories are visible for the active
// group and steps the selection through [show-all, group 0, ..., group N-1].
//
// The engine emits pure data: one (category, label) decision per known
// category. The host relabels its own surfaces to match.
package selection

import (
	"github.com/hpungsan/sieve/internal/errors"
	"github.com/hpungsan/sieve/internal/group"
	"github.com/hpungsan/sieve/internal/registry"
)

// ShowAll is the active index sentinel for the unfiltered state.
const ShowAll = -1

// HiddenLabel is the single target label every hidden category collapses into.
// The leading space keeps it distinct from real category names.
const HiddenLabel = " Hidden"

// State is the persisted selection pair.
type State struct {
	IsFiltering      bool `json:"is_filtering"`
	ActiveGroupIndex int  `json:"active_group_index"`
}

// Unfiltered returns the show-all state.
func Unfiltered() State {
	return State{IsFiltering: false, ActiveGroupIndex: ShowAll}
}

// Current returns the active index, or ShowAll when not filtering.
func (s State) Current() int {
	if !s.IsFiltering {
		return ShowAll
	}
	return s.ActiveGroupIndex
}

// Decision is the target label for one category.
type Decision struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Visible  bool   `json:"visible"`
}

// Result describes the outcome of a selection-changing operation.
type Result struct {
	State     State      `json:"state"`
	Group     string     `json:"group,omitempty"`
	Decisions []Decision `json:"decisions"`
	// Changed counts categories whose label differs from the last one emitted.
	Changed int `json:"changed"`
}

// Engine owns the selection state and reads the registry and group store.
// It is not safe for concurrent use; hosts serialize requests.
type Engine struct {
	registry *registry.Registry
	groups   *group.Store
	state    State
	labels   map[string]string
}

// New returns an engine in the unfiltered state.
func New(reg *registry.Registry, groups *group.Store) *Engine {
	return &Engine{
		registry: reg,
		groups:   groups,
		state:    Unfiltered(),
		labels:   make(map[string]string),
	}
}

// Restore installs persisted state and the labels last emitted to the host.
// A non-filtering state is normalised to ShowAll. The filtering invariant is
// not checked here; Resume repairs a dangling index.
func (e *Engine) Restore(state State, labels map[string]string) {
	if !state.IsFiltering {
		state = Unfiltered()
	}
	e.state = state
	e.labels = make(map[string]string, len(labels))
	for k, v := range labels {
		e.labels[k] = v
	}
}

// State returns the current selection state.
func (e *Engine) State() State {
	return e.state
}

// Labels returns a copy of the last label emitted per category.
func (e *Engine) Labels() map[string]string {
	out := make(map[string]string, len(e.labels))
	for k, v := range e.labels {
		out[k] = v
	}
	return out
}

// LabelOf returns the label last emitted for category, defaulting to its
// original name.
func (e *Engine) LabelOf(category string) string {
	if l, ok := e.labels[category]; ok {
		return l
	}
	return e.registry.Observe(category)
}

// ActiveGroup returns the active group, or nil when unfiltered.
func (e *Engine) ActiveGroup() *group.Group {
	if !e.state.IsFiltering {
		return nil
	}
	g, err := e.groups.At(e.state.ActiveGroupIndex)
	if err != nil {
		return nil
	}
	return g
}

// ApplyGroup filters to the group at index. ShowAll behaves as RestoreAll.
// A category is visible iff its original name is an enabled membership.
func (e *Engine) ApplyGroup(index int) (*Result, error) {
	n := e.groups.Len()
	if index < ShowAll || index >= n {
		return nil, errors.NewIndexOutOfRange(index, ShowAll, n)
	}
	if index == ShowAll {
		return e.RestoreAll(), nil
	}

	g, err := e.groups.At(index)
	if err != nil {
		return nil, err
	}
	allowed := g.EnabledSet()

	res := e.emit(func(orig string) (string, bool) {
		if allowed[orig] {
			return orig, true
		}
		return HiddenLabel, false
	})
	e.state = State{IsFiltering: true, ActiveGroupIndex: index}
	res.State = e.state
	res.Group = g.Name
	return res, nil
}

// ApplyByName applies the first group named name.
func (e *Engine) ApplyByName(name string) (*Result, error) {
	index, ok := e.groups.FindByName(name)
	if !ok {
		return nil, errors.NewGroupNotFound(name)
	}
	return e.ApplyGroup(index)
}

// RestoreAll maps every known category back to its original name.
func (e *Engine) RestoreAll() *Result {
	res := e.emit(func(orig string) (string, bool) {
		return orig, true
	})
	e.state = Unfiltered()
	res.State = e.state
	return res
}

// Cycle steps the selection by delta over [ShowAll, 0, ..., N-1], wrapping
// past the last group to ShowAll and below ShowAll to the last group.
func (e *Engine) Cycle(delta int) (*Result, error) {
	n := e.groups.Len()
	if n == 0 {
		return nil, errors.NewNoGroups()
	}
	next := Step(e.state.Current(), delta, n)
	if next == ShowAll {
		return e.RestoreAll(), nil
	}
	return e.ApplyGroup(next)
}

// Step computes the cycle target from current for n groups.
func Step(current, delta, n int) int {
	next := current + delta
	if next > n-1 {
		next = ShowAll
	} else if next < ShowAll {
		next = n - 1
	}
	return next
}

// OnGroupRemoved repairs the selection after the group at removedIndex was
// deleted from the store. Removing the active group resets to unfiltered;
// removing an earlier group shifts the active index so it keeps naming the
// same group. Returns true if the active group was removed.
func (e *Engine) OnGroupRemoved(removedIndex int) bool {
	if !e.state.IsFiltering {
		return false
	}
	switch {
	case e.state.ActiveGroupIndex == removedIndex:
		e.state = Unfiltered()
		return true
	case removedIndex < e.state.ActiveGroupIndex:
		e.state.ActiveGroupIndex--
	}
	return false
}

// RemoveGroup removes a group from the store and repairs the selection. When
// the active group is removed the categories are restored and the result is
// returned; otherwise the result is nil.
func (e *Engine) RemoveGroup(index int) (*Result, error) {
	if err := e.groups.Remove(index); err != nil {
		return nil, err
	}
	if e.OnGroupRemoved(index) {
		return e.RestoreAll(), nil
	}
	return nil, nil
}

// OnWorkspaceActivated applies the first group bound to workspaceID. It
// returns the matched index, or ShowAll and a nil result when no group binds
// the workspace.
func (e *Engine) OnWorkspaceActivated(workspaceID string) (int, *Result, error) {
	index, ok := e.groups.FindByWorkspace(workspaceID)
	if !ok {
		return ShowAll, nil, nil
	}
	res, err := e.ApplyGroup(index)
	if err != nil {
		return ShowAll, nil, err
	}
	return index, res, nil
}

// Resume re-applies the persisted selection against the current categories.
// A dangling active index is repaired to unfiltered. When already unfiltered
// the result is nil and nothing changes.
func (e *Engine) Resume() (res *Result, repaired bool, err error) {
	if !e.state.IsFiltering {
		return nil, false, nil
	}
	idx := e.state.ActiveGroupIndex
	if idx < 0 || idx >= e.groups.Len() {
		return e.RestoreAll(), true, nil
	}
	res, err = e.ApplyGroup(idx)
	return res, false, err
}

// emit builds a decision for every known category using target, which maps an
// original name to (label, visible), and records the emitted labels.
func (e *Engine) emit(target func(orig string) (string, bool)) *Result {
	known := e.registry.Known()
	res := &Result{Decisions: make([]Decision, 0, len(known))}
	for _, cat := range known {
		orig := e.registry.Observe(cat)
		label, visible := target(orig)
		if e.LabelOf(cat) != label {
			res.Changed++
		}
		e.labels[cat] = label
		res.Decisions = append(res.Decisions, Decision{
			Category: cat,
			Label:    label,
			Visible:  visible,
		})
	}
	return res
}
