package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/sieve/internal/errors"
	"github.com/hpungsan/sieve/internal/group"
)

// Snapshot is the full persisted session: the group store, the registry's
// bindings and live list, the labels last emitted to the host, and the
// selection pair.
type Snapshot struct {
	Groups []*group.Group

	// Bindings maps every category ever observed to its original name.
	Bindings map[string]string

	// Labels holds the last label emitted per category.
	Labels map[string]string

	// Live is the most recent category list, in the order the registry keeps it.
	Live []string

	IsFiltering      bool
	ActiveGroupIndex int
}

// LoadSnapshot reads the whole session.
func LoadSnapshot(ctx context.Context, db *sql.DB) (*Snapshot, error) {
	snap := &Snapshot{
		Bindings:         make(map[string]string),
		Labels:           make(map[string]string),
		ActiveGroupIndex: -1,
	}

	groups, err := loadGroups(ctx, db)
	if err != nil {
		return nil, err
	}
	snap.Groups = groups

	if err := loadCategories(ctx, db, snap); err != nil {
		return nil, err
	}

	var filtering int
	err = db.QueryRowContext(ctx,
		"SELECT is_filtering, active_group_index FROM selection WHERE id = 1",
	).Scan(&filtering, &snap.ActiveGroupIndex)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.NewInternal(err)
	}
	snap.IsFiltering = filtering != 0

	return snap, nil
}

func loadGroups(ctx context.Context, db *sql.DB) ([]*group.Group, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, workspace_name FROM groups ORDER BY position")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var groups []*group.Group
	byID := make(map[string]*group.Group)
	for rows.Next() {
		g := &group.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.WorkspaceName); err != nil {
			return nil, errors.NewInternal(err)
		}
		groups = append(groups, g)
		byID[g.ID] = g
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	mrows, err := db.QueryContext(ctx,
		"SELECT group_id, name, enabled FROM memberships ORDER BY group_id, position")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer mrows.Close()

	for mrows.Next() {
		var groupID, name string
		var enabled int
		if err := mrows.Scan(&groupID, &name, &enabled); err != nil {
			return nil, errors.NewInternal(err)
		}
		if g, ok := byID[groupID]; ok {
			g.Append(name, enabled != 0)
		}
	}
	if err := mrows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return groups, nil
}

func loadCategories(ctx context.Context, db *sql.DB, snap *Snapshot) error {
	rows, err := db.QueryContext(ctx,
		"SELECT name, original, label, live FROM categories ORDER BY position, name")
	if err != nil {
		return errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, original string
		var label sql.NullString
		var live int
		if err := rows.Scan(&name, &original, &label, &live); err != nil {
			return errors.NewInternal(err)
		}
		snap.Bindings[name] = original
		if label.Valid {
			snap.Labels[name] = label.String
		}
		if live != 0 {
			snap.Live = append(snap.Live, name)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// SaveSnapshot replaces the stored session with snap in one transaction.
func SaveSnapshot(ctx context.Context, db *sql.DB, snap *Snapshot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range []string{
		"DELETE FROM memberships",
		"DELETE FROM groups",
		"DELETE FROM categories",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.NewInternal(err)
		}
	}

	for pos, g := range snap.Groups {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO groups (id, position, name, workspace_name) VALUES (?, ?, ?, ?)",
			g.ID, pos, g.Name, g.WorkspaceName,
		); err != nil {
			return errors.NewInternal(err)
		}
		for mpos, m := range g.Categories {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO memberships (group_id, position, name, enabled) VALUES (?, ?, ?, ?)",
				g.ID, mpos, m.Name, boolToInt(m.Enabled),
			); err != nil {
				return errors.NewInternal(err)
			}
		}
	}

	livePos := make(map[string]int, len(snap.Live))
	for i, c := range snap.Live {
		livePos[c] = i
	}
	for name, original := range snap.Bindings {
		var label sql.NullString
		if l, ok := snap.Labels[name]; ok {
			label = sql.NullString{String: l, Valid: true}
		}
		var position sql.NullInt64
		live := 0
		if p, ok := livePos[name]; ok {
			position = sql.NullInt64{Int64: int64(p), Valid: true}
			live = 1
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO categories (name, original, label, live, position) VALUES (?, ?, ?, ?, ?)",
			name, original, label, live, position,
		); err != nil {
			return errors.NewInternal(err)
		}
	}

	activeIndex := snap.ActiveGroupIndex
	if !snap.IsFiltering {
		activeIndex = -1
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO selection (id, is_filtering, active_group_index) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET is_filtering = excluded.is_filtering,
		   active_group_index = excluded.active_group_index`,
		boolToInt(snap.IsFiltering), activeIndex,
	); err != nil {
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
