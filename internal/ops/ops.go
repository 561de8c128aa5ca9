// Package ops implements the host operations. Each operation loads the
// persisted session, runs one core operation, saves only on success, and
// returns an XxxOutput ready for JSON encoding.
package ops

import (
	"context"
	"database/sql"
	"sync"

	"go.uber.org/zap"

	"github.com/hpungsan/sieve/internal/db"
	"github.com/hpungsan/sieve/internal/group"
	"github.com/hpungsan/sieve/internal/logging"
	"github.com/hpungsan/sieve/internal/registry"
	"github.com/hpungsan/sieve/internal/selection"
)

// DefaultGroupName names groups added without a name.
const DefaultGroupName = "New Group"

// sessionMu serializes load-modify-save cycles within one process. The web
// dashboard serves requests concurrently; the core packages are not safe for
// concurrent use.
var sessionMu sync.Mutex

// Session is the in-memory state rebuilt from the store for one operation.
type Session struct {
	Registry *registry.Registry
	Groups   *group.Store
	Engine   *selection.Engine
}

// loadSession rebuilds the registry, group store and engine from the snapshot.
func loadSession(ctx context.Context, database *sql.DB) (*Session, error) {
	snap, err := db.LoadSnapshot(ctx, database)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	for category, original := range snap.Bindings {
		if err := reg.Restore(category, original); err != nil {
			return nil, err
		}
	}
	reg.SetKnown(snap.Live)

	store := group.NewStore()
	for _, g := range snap.Groups {
		store.Append(g)
	}

	engine := selection.New(reg, store)
	engine.Restore(selection.State{
		IsFiltering:      snap.IsFiltering,
		ActiveGroupIndex: snap.ActiveGroupIndex,
	}, snap.Labels)

	return &Session{Registry: reg, Groups: store, Engine: engine}, nil
}

// save writes the whole session back.
func (s *Session) save(ctx context.Context, database *sql.DB) error {
	state := s.Engine.State()
	return db.SaveSnapshot(ctx, database, &db.Snapshot{
		Groups:           s.Groups.All(),
		Bindings:         s.Registry.Bindings(),
		Labels:           s.Engine.Labels(),
		Live:             s.Registry.Known(),
		IsFiltering:      state.IsFiltering,
		ActiveGroupIndex: state.ActiveGroupIndex,
	})
}

// withSession runs fn against a freshly loaded session and persists it when
// fn succeeds and mutates is true.
func withSession(ctx context.Context, database *sql.DB, mutates bool, fn func(*Session) error) error {
	sessionMu.Lock()
	defer sessionMu.Unlock()

	s, err := loadSession(ctx, database)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	if !mutates {
		return nil
	}
	return s.save(ctx, database)
}

// logSelection records a selection change at info.
func logSelection(ctx context.Context, op string, res *selection.Result) {
	if res == nil {
		return
	}
	logging.FromContext(ctx).Info("selection changed",
		zap.String("op", op),
		zap.String("group", res.Group),
		zap.Int("index", res.State.Current()),
		zap.Int("changed", res.Changed),
	)
}

// StatusOutput summarises the selection. It is embedded in every
// selection-changing output.
type StatusOutput struct {
	IsFiltering      bool   `json:"is_filtering"`
	ActiveGroupIndex int    `json:"active_group_index"`
	ActiveGroup      string `json:"active_group,omitempty"`
	GroupCount       int    `json:"group_count"`
	CategoryCount    int    `json:"category_count"`
	VisibleCount     int    `json:"visible_count"`
}

func (s *Session) status() StatusOutput {
	state := s.Engine.State()
	out := StatusOutput{
		IsFiltering:      state.IsFiltering,
		ActiveGroupIndex: state.Current(),
		GroupCount:       s.Groups.Len(),
	}
	if g := s.Engine.ActiveGroup(); g != nil {
		out.ActiveGroup = g.Name
	}
	known := s.Registry.Known()
	out.CategoryCount = len(known)
	for _, c := range known {
		if s.Engine.LabelOf(c) != selection.HiddenLabel {
			out.VisibleCount++
		}
	}
	return out
}
