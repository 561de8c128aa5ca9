package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/sieve/internal/group"
)

func TestInit(t *testing.T) {
	// Use temp directory for test isolation
	tmpDir := t.TempDir()

	db, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	dbPath := filepath.Join(tmpDir, "sieve.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}

	exportsDir := filepath.Join(tmpDir, "exports")
	info, err := os.Stat(exportsDir)
	if os.IsNotExist(err) {
		t.Errorf("exports directory not created at %s", exportsDir)
	} else if !info.IsDir() {
		t.Errorf("exports path is not a directory")
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}

	for _, table := range []string{"groups", "memberships", "categories", "selection"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestInit_CreatesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	baseDir := filepath.Join(tmpDir, "nested", "path", ".sieve")

	db, err := Init(baseDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		t.Errorf("base directory not created at %s", baseDir)
	}
}

func TestUserVersion(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	version, err := GetUserVersion(db)
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version after Init = %d, want %d", version, CurrentSchemaVersion)
	}

	if err := SetUserVersion(db, 99); err != nil {
		t.Fatalf("SetUserVersion() error = %v", err)
	}
	version, err = GetUserVersion(db)
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != 99 {
		t.Errorf("user_version = %d, want 99", version)
	}
}

func TestInit_MigrationIdempotent(t *testing.T) {
	tmpDir := t.TempDir()

	db1, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("first Init() error = %v", err)
	}
	db1.Close()

	// Second Init on same DB should succeed (migrations skip if already applied)
	db2, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	defer db2.Close()

	version, err := GetUserVersion(db2)
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version after second Init = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestLoadSnapshot_Fresh(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	snap, err := LoadSnapshot(context.Background(), db)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(snap.Groups) != 0 {
		t.Errorf("groups = %d, want 0", len(snap.Groups))
	}
	if snap.IsFiltering {
		t.Error("fresh session should not be filtering")
	}
	if snap.ActiveGroupIndex != -1 {
		t.Errorf("active index = %d, want -1", snap.ActiveGroupIndex)
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	hs := group.New("Hard Surface")
	hs.WorkspaceName = "Modeling"
	hs.Append("HardOps", true)
	hs.Append("Item", false)
	hs.Append("HardOps", false)
	empty := group.New("Empty")

	in := &Snapshot{
		Groups:           []*group.Group{hs, empty},
		Bindings:         map[string]string{"HardOps": "HardOps", "Item": "Item", "Gone": "Gone"},
		Labels:           map[string]string{"HardOps": "HardOps", "Item": " Hidden"},
		Live:             []string{"Item", "HardOps"},
		IsFiltering:      true,
		ActiveGroupIndex: 0,
	}
	if err := SaveSnapshot(ctx, db, in); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	out, err := LoadSnapshot(ctx, db)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}

	if len(out.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(out.Groups))
	}
	got := out.Groups[0]
	if got.ID != hs.ID || got.Name != "Hard Surface" || got.WorkspaceName != "Modeling" {
		t.Errorf("group 0 = %+v", got)
	}
	if len(got.Categories) != 3 || got.Categories[2].Name != "HardOps" || got.Categories[2].Enabled {
		t.Errorf("memberships = %+v, want order and duplicates preserved", got.Categories)
	}
	if out.Groups[1].Name != "Empty" || len(out.Groups[1].Categories) != 0 {
		t.Errorf("group 1 = %+v", out.Groups[1])
	}

	if len(out.Bindings) != 3 || out.Bindings["Gone"] != "Gone" {
		t.Errorf("bindings = %v", out.Bindings)
	}
	if out.Labels["Item"] != " Hidden" {
		t.Errorf("labels = %v", out.Labels)
	}
	if _, ok := out.Labels["Gone"]; ok {
		t.Error("category without a label should load without one")
	}
	if len(out.Live) != 2 || out.Live[0] != "Item" || out.Live[1] != "HardOps" {
		t.Errorf("live = %v, want [Item HardOps]", out.Live)
	}
	if !out.IsFiltering || out.ActiveGroupIndex != 0 {
		t.Errorf("selection = (%v, %d), want (true, 0)", out.IsFiltering, out.ActiveGroupIndex)
	}
}

func TestSaveSnapshot_Replaces(t *testing.T) {
	ctx := context.Background()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	first := &Snapshot{
		Groups:           []*group.Group{group.New("A"), group.New("B")},
		Bindings:         map[string]string{},
		IsFiltering:      true,
		ActiveGroupIndex: 1,
	}
	if err := SaveSnapshot(ctx, db, first); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	// Not filtering forces the stored index back to -1.
	second := &Snapshot{
		Groups:           []*group.Group{group.New("C")},
		Bindings:         map[string]string{},
		ActiveGroupIndex: 0,
	}
	if err := SaveSnapshot(ctx, db, second); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	out, err := LoadSnapshot(ctx, db)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(out.Groups) != 1 || out.Groups[0].Name != "C" {
		t.Errorf("groups = %+v, want only C", out.Groups)
	}
	if out.IsFiltering || out.ActiveGroupIndex != -1 {
		t.Errorf("selection = (%v, %d), want (false, -1)", out.IsFiltering, out.ActiveGroupIndex)
	}
}
