package ops

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/sieve/internal/db"
	"github.com/hpungsan/sieve/internal/selection"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

// seed scans categories and adds the named groups from the current categories.
func seed(t *testing.T, database *sql.DB, categories []string, groups ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := Scan(ctx, database, ScanInput{Categories: categories})
	require.NoError(t, err)
	for _, name := range groups {
		_, err := AddGroup(ctx, database, AddGroupInput{Name: name, Source: AddSourceCurrent})
		require.NoError(t, err)
	}
}

func TestSession_FreshIsUnfiltered(t *testing.T) {
	database := newTestDB(t)

	s, err := loadSession(context.Background(), database)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Groups.Len())
	assert.Equal(t, selection.Unfiltered(), s.Engine.State())
	assert.Empty(t, s.Registry.Known())
}

func TestSession_RoundTrip(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	s, err := loadSession(ctx, database)
	require.NoError(t, err)
	s.Registry.CurrentCategories([]string{"Tool", "Item"})
	s.Groups.AddWith("A", []string{"Item", "Tool"}, map[string]bool{"Tool": true})
	_, err = s.Engine.ApplyGroup(0)
	require.NoError(t, err)
	require.NoError(t, s.save(ctx, database))

	again, err := loadSession(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, []string{"Item", "Tool"}, again.Registry.Known())
	assert.Equal(t, selection.State{IsFiltering: true, ActiveGroupIndex: 0}, again.Engine.State())
	assert.Equal(t, selection.HiddenLabel, again.Engine.LabelOf("Item"))
	assert.Equal(t, "Tool", again.Engine.LabelOf("Tool"))
	g, err := again.Groups.At(0)
	require.NoError(t, err)
	assert.Equal(t, "A", g.Name)
}

func TestScan_SyncsMemberships(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	seed(t, database, []string{"Item", "Tool"}, "A")

	out, err := Scan(ctx, database, ScanInput{Categories: []string{"View", "Item", "Tool", "Item"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Item", "Tool", "View"}, out.Categories)
	assert.Equal(t, 1, out.MembershipsAdded)
	assert.Equal(t, 3, out.Bindings)

	show, err := ShowGroup(ctx, database, ShowGroupInput{Index: 0})
	require.NoError(t, err)
	require.Len(t, show.Memberships, 3)
	assert.Equal(t, MembershipView{Name: "View", Enabled: false, Live: true}, show.Memberships[2])
}

func TestScan_MissingCategoryKeepsMembership(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	seed(t, database, []string{"Item", "HardOps"}, "A")
	_, err := SetCategory(ctx, database, SetCategoryInput{Index: 0, Category: "HardOps", Enabled: true})
	require.NoError(t, err)

	// HardOps is uninstalled for one session.
	out, err := Scan(ctx, database, ScanInput{Categories: []string{"Item"}})
	require.NoError(t, err)
	assert.Equal(t, 0, out.MembershipsAdded)

	show, err := ShowGroup(ctx, database, ShowGroupInput{Index: 0})
	require.NoError(t, err)
	require.Len(t, show.Memberships, 2)
	assert.Equal(t, MembershipView{Name: "HardOps", Enabled: true, Live: false}, show.Memberships[0])
}

func TestStatus_CountsVisible(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	seed(t, database, []string{"Item", "Tool", "View"}, "A")
	_, err := SetCategory(ctx, database, SetCategoryInput{Index: 0, Category: "Tool", Enabled: true})
	require.NoError(t, err)

	st, err := Status(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, StatusOutput{ActiveGroupIndex: -1, GroupCount: 1, CategoryCount: 3, VisibleCount: 3}, *st)

	_, err = Apply(ctx, database, ApplyInput{Index: 0})
	require.NoError(t, err)

	st, err = Status(ctx, database)
	require.NoError(t, err)
	assert.True(t, st.IsFiltering)
	assert.Equal(t, "A", st.ActiveGroup)
	assert.Equal(t, 1, st.VisibleCount)
}
