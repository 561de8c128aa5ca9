// Package codec serializes the group store to a versioned, portable document
// and imports such documents back in replace or merge mode.
package codec

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/hpungsan/sieve/internal/errors"
	"github.com/hpungsan/sieve/internal/group"
)

// SchemaVersion is written into every exported document.
const SchemaVersion = "1.0"

// DefaultImportedName names imported groups that carry no name.
const DefaultImportedName = "Imported Group"

// Format selects the document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks a format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Document is the export file layout.
type Document struct {
	Version string        `json:"version" yaml:"version"`
	Groups  []GroupRecord `json:"groups" yaml:"groups"`
}

// GroupRecord is one exported group.
type GroupRecord struct {
	Name          string           `json:"name" yaml:"name"`
	WorkspaceName string           `json:"workspace_name" yaml:"workspace_name"`
	Categories    []CategoryRecord `json:"categories" yaml:"categories"`
}

// CategoryRecord is one exported membership.
type CategoryRecord struct {
	Name    string `json:"name" yaml:"name"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// rawDocument mirrors Document with optional fields so decoding can tell a
// missing key from an empty value.
type rawDocument struct {
	Version *string           `json:"version" yaml:"version"`
	Groups  *[]rawGroupRecord `json:"groups" yaml:"groups"`
}

type rawGroupRecord struct {
	Name          *string             `json:"name" yaml:"name"`
	WorkspaceName *string             `json:"workspace_name" yaml:"workspace_name"`
	Categories    []rawCategoryRecord `json:"categories" yaml:"categories"`
}

type rawCategoryRecord struct {
	Name    string `json:"name" yaml:"name"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// Export builds a document from the store, preserving group and membership order.
func Export(store *group.Store) *Document {
	doc := &Document{Version: SchemaVersion, Groups: make([]GroupRecord, 0, store.Len())}
	for _, g := range store.All() {
		rec := GroupRecord{
			Name:          g.Name,
			WorkspaceName: g.WorkspaceName,
			Categories:    make([]CategoryRecord, 0, len(g.Categories)),
		}
		for _, m := range g.Categories {
			rec.Categories = append(rec.Categories, CategoryRecord{Name: m.Name, Enabled: m.Enabled})
		}
		doc.Groups = append(doc.Groups, rec)
	}
	return doc
}

// Encode renders a document in the given format.
func Encode(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, errors.NewInternal(fmt.Errorf("encoding yaml: %w", err))
		}
		return data, nil
	case FormatJSON, "":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, errors.NewInternal(fmt.Errorf("encoding json: %w", err))
		}
		return append(data, '\n'), nil
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown format %q: must be json or yaml", format))
	}
}

// Decode parses a document. Unparseable input or a missing groups collection
// fails with INVALID_FORMAT. Missing group names default to
// DefaultImportedName; missing workspace bindings and flags default to empty.
func Decode(data []byte, format Format) (*Document, error) {
	var raw rawDocument
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.NewInvalidFormat(fmt.Sprintf("invalid yaml: %v", err))
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.NewInvalidFormat(fmt.Sprintf("invalid json: %v", err))
		}
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown format %q: must be json or yaml", format))
	}

	if raw.Groups == nil {
		return nil, errors.NewInvalidFormat("document is missing the groups collection")
	}

	doc := &Document{Version: SchemaVersion, Groups: make([]GroupRecord, 0, len(*raw.Groups))}
	if raw.Version != nil {
		doc.Version = *raw.Version
	}
	for _, rg := range *raw.Groups {
		rec := GroupRecord{
			Name:       DefaultImportedName,
			Categories: make([]CategoryRecord, 0, len(rg.Categories)),
		}
		if rg.Name != nil {
			rec.Name = *rg.Name
		}
		if rg.WorkspaceName != nil {
			rec.WorkspaceName = *rg.WorkspaceName
		}
		for _, rc := range rg.Categories {
			rec.Categories = append(rec.Categories, CategoryRecord(rc))
		}
		doc.Groups = append(doc.Groups, rec)
	}
	return doc, nil
}
