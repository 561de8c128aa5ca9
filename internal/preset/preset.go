// Package preset holds the built-in workflow presets and matches them against
// the categories a host reports.
package preset

import "strings"

// Preset is an immutable named list of fuzzy name patterns.
type Preset struct {
	Name     string   `json:"name"`
	Patterns []string `json:"patterns"`
}

// Built-in presets, in display order. Patterns cover common spellings used by
// third-party category providers.
var presets = []Preset{
	{
		Name: "Modeling Essentials",
		Patterns: []string{
			"HardOps", "Hard Ops", "Hardops",
			"BoxCutter", "Box Cutter", "Boxcutter",
			"Mesh Machine", "MESHmachine",
			"Fluent",
			"Random Flow", "RandomFlow",
			"Kit Ops", "KIT OPS", "KitOps",
			"Zen UV", "ZenUV",
			"Quad Remesher",
			"Decal Machine", "DECALmachine",
			"Modifier", "Modifiers",
			"Item", "Tool",
		},
	},
	{
		Name: "Hard Surface",
		Patterns: []string{
			"HardOps", "Hard Ops", "Hardops",
			"BoxCutter", "Box Cutter", "Boxcutter",
			"Mesh Machine", "MESHmachine",
			"Decal Machine", "DECALmachine",
			"Fluent",
			"Random Flow", "RandomFlow",
			"Kit Ops", "KIT OPS", "KitOps",
			"Modifier", "Modifiers",
		},
	},
	{
		Name: "Sculpting",
		Patterns: []string{
			"Sculpt Layers",
			"VK",
			"ZenShaders",
			"Item", "Tool",
			"Brush",
		},
	},
	{
		Name: "Animation & Rigging",
		Patterns: []string{
			"Auto Rig Pro", "AutoRigPro", "ARP",
			"Animation Nodes", "AnimationNodes",
			"Rigify",
			"Mixamo",
			"Simply Cloth",
			"Cinepack",
			"Rig", "Rigging",
			"Animation",
			"Pose",
		},
	},
	{
		Name: "Environment",
		Patterns: []string{
			"Geo-Scatter", "GeoScatter", "Geo Scatter", "Scatter",
			"Botaniq",
			"The Grove", "Grove",
			"True Terrain", "TrueTerrain",
			"True Sky", "TrueSky",
			"Physical Starlight", "Starlight",
			"Tree",
			"Vegetation",
		},
	},
	{
		Name: "Texturing",
		Patterns: []string{
			"Sanctus", "Sanctus Library",
			"Extreme PBR", "ExtremePBR",
			"Fluent Materializer",
			"Realtime Materials",
			"Node Preview",
			"Material", "Materials",
			"Shader", "Shaders",
		},
	},
	{
		Name: "Rendering",
		Patterns: []string{
			"Physical Starlight", "Starlight",
			"Physical Atmosphere",
			"Real Clouds",
			"Real Water",
			"Physical Open Water",
			"HDRI",
			"Light", "Lighting",
		},
	},
	{
		Name: "Utility Tools",
		Patterns: []string{
			"Cablerator",
			"Zen Dock", "ZenDock",
			"Outliner Pro",
			"Node Wrangler",
			"Holt Tools",
			"Batch",
			"Export",
			"Import",
		},
	},
	{
		Name: "Retopology",
		Patterns: []string{
			"Retopoflow", "RetopoFlow",
			"Quad Remesher",
			"Edge Flow", "EdgeFlow",
			"Retopo",
		},
	},
	{
		Name: "UV Workflow",
		Patterns: []string{
			"Zen UV", "ZenUV",
			"UV Packmaster", "UVPackmaster",
			"UV", "UVs",
			"Texel",
		},
	},
}

// Names returns the preset names in display order.
func Names() []string {
	out := make([]string, len(presets))
	for i, p := range presets {
		out[i] = p.Name
	}
	return out
}

// All returns copies of every preset in display order.
func All() []Preset {
	out := make([]Preset, len(presets))
	for i, p := range presets {
		out[i] = Preset{Name: p.Name, Patterns: append([]string(nil), p.Patterns...)}
	}
	return out
}

// Lookup returns the preset with the given name.
func Lookup(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return Preset{Name: p.Name, Patterns: append([]string(nil), p.Patterns...)}, true
		}
	}
	return Preset{}, false
}

// Patterns returns the patterns of the named preset, or nil if unknown.
func Patterns(name string) []string {
	p, _ := Lookup(name)
	return p.Patterns
}

// Match returns the available categories matching any pattern of the named
// preset, each once, in input order. A pattern matches when either string
// contains the other, case-insensitively.
//
// The bidirectional substring test over-matches short patterns ("UV", "VK")
// on purpose: provider naming varies too much for exact matching.
func Match(presetName string, available []string) []string {
	return MatchPatterns(Patterns(presetName), available)
}

// MatchPatterns is Match with an explicit pattern list.
func MatchPatterns(patterns []string, available []string) []string {
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}

	seen := make(map[string]bool)
	matches := make([]string, 0)
	for _, cat := range available {
		if seen[cat] {
			continue
		}
		catLower := strings.ToLower(cat)
		for _, p := range lowered {
			if strings.Contains(catLower, p) || strings.Contains(p, catLower) {
				seen[cat] = true
				matches = append(matches, cat)
				break
			}
		}
	}
	return matches
}
