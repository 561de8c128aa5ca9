package codec

import (
	"fmt"

	"github.com/hpungsan/sieve/internal/errors"
	"github.com/hpungsan/sieve/internal/group"
)

// ImportMode controls how imported groups combine with existing ones.
type ImportMode string

const (
	ImportModeMerge   ImportMode = "merge"   // skip names that already exist
	ImportModeReplace ImportMode = "replace" // clear the store first
)

// ParseImportMode validates a mode string; empty means merge.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(s) {
	case "", ImportModeMerge:
		return ImportModeMerge, nil
	case ImportModeReplace:
		return ImportModeReplace, nil
	default:
		return "", errors.NewInvalidRequest(fmt.Sprintf("mode must be one of: merge, replace (got %q)", s))
	}
}

// ImportResult reports what an import did.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Names    []string `json:"names"`
	Skips    []string `json:"skipped_names,omitempty"`
}

// Import applies doc to store.
//
// Replace clears the store and appends every group verbatim. Merge skips a
// group whose name matches a group that existed before the import started;
// duplicates within doc itself are all appended.
func Import(store *group.Store, doc *Document, mode ImportMode) (*ImportResult, error) {
	if doc == nil || doc.Groups == nil {
		return nil, errors.NewInvalidFormat("document is missing the groups collection")
	}
	if mode == "" {
		mode = ImportModeMerge
	}
	if mode != ImportModeMerge && mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid import mode %q", mode))
	}

	if mode == ImportModeReplace {
		store.Clear()
	}
	existing := store.Names()

	res := &ImportResult{Names: make([]string, 0, len(doc.Groups))}
	for _, rec := range doc.Groups {
		if mode == ImportModeMerge && existing[rec.Name] {
			res.Skipped++
			res.Skips = append(res.Skips, rec.Name)
			continue
		}

		g := group.New(rec.Name)
		g.WorkspaceName = rec.WorkspaceName
		for _, c := range rec.Categories {
			g.Append(c.Name, c.Enabled)
		}
		store.Append(g)

		res.Imported++
		res.Names = append(res.Names, rec.Name)
	}
	return res, nil
}
