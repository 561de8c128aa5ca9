package mcp

import "github.com/mark3labs/mcp-go/mcp"

var scanToolDef = mcp.NewTool("category_scan",
	mcp.WithDescription("Record the categories the host currently reports and add any new ones, disabled, to every group."),
	mcp.WithArray("categories",
		mcp.Required(),
		mcp.Description("Category names in host order; duplicates allowed"),
		mcp.Items(map[string]any{"type": "string"}),
	),
)

var listToolDef = mcp.NewTool("group_list",
	mcp.WithDescription("List all groups in order with their membership counts and the current selection."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var showToolDef = mcp.NewTool("group_show",
	mcp.WithDescription("Show one group's memberships, optionally filtered by a case-insensitive substring."),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("Group index")),
	mcp.WithString("filter", mcp.Description("Substring to match against category names")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var addToolDef = mcp.NewTool("group_add",
	mcp.WithDescription("Create a group: empty, from the current categories (all disabled), or from a workflow preset."),
	mcp.WithString("name", mcp.Description("Group name (default: New Group, or the preset name)")),
	mcp.WithString("source",
		mcp.Description("How to populate the group"),
		mcp.Enum("empty", "current", "preset"),
	),
	mcp.WithString("preset", mcp.Description("Preset name when source is preset")),
)

var removeToolDef = mcp.NewTool("group_remove",
	mcp.WithDescription("Delete a group. Removing the active group shows all categories again."),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("Group index")),
	mcp.WithDestructiveHintAnnotation(true),
)

var renameToolDef = mcp.NewTool("group_rename",
	mcp.WithDescription("Rename a group."),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("Group index")),
	mcp.WithString("name", mcp.Required(), mcp.Description("New name")),
)

var setCategoryToolDef = mcp.NewTool("group_set_category",
	mcp.WithDescription("Enable or disable a category in a group."),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("Group index")),
	mcp.WithString("category", mcp.Required(), mcp.Description("Original category name")),
	mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("Whether the category is visible when the group is active")),
)

var bindWorkspaceToolDef = mcp.NewTool("group_bind_workspace",
	mcp.WithDescription("Bind a group to a host workspace so switching to it applies the group. Empty clears the binding."),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("Group index")),
	mcp.WithString("workspace", mcp.Description("Workspace name")),
)

var exportToolDef = mcp.NewTool("group_export",
	mcp.WithDescription("Export all groups to a versioned JSON or YAML document."),
	mcp.WithString("path", mcp.Description("Destination (default: ~/.sieve/exports/groups-<timestamp>.json)")),
	mcp.WithString("format", mcp.Description("json or yaml (default: from extension)"), mcp.Enum("json", "yaml")),
)

var importToolDef = mcp.NewTool("group_import",
	mcp.WithDescription("Import groups from a document. Merge skips names that already exist; replace clears all groups first."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source document")),
	mcp.WithString("mode", mcp.Description("merge (default) or replace"), mcp.Enum("merge", "replace")),
)

var applyToolDef = mcp.NewTool("selection_apply",
	mcp.WithDescription("Filter the host's categories to one group, by index or by name. Index -1 shows all."),
	mcp.WithNumber("index", mcp.Description("Group index")),
	mcp.WithString("name", mcp.Description("Group name; takes precedence over index")),
)

var restoreToolDef = mcp.NewTool("selection_restore",
	mcp.WithDescription("Show all categories under their original names."),
	mcp.WithIdempotentHintAnnotation(true),
)

var cycleToolDef = mcp.NewTool("selection_cycle",
	mcp.WithDescription("Step to the next or previous group, wrapping through show-all."),
	mcp.WithNumber("delta", mcp.Description("+1 next (default), -1 previous")),
)

var statusToolDef = mcp.NewTool("selection_status",
	mcp.WithDescription("Report the current selection."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var resumeToolDef = mcp.NewTool("selection_resume",
	mcp.WithDescription("Re-apply the persisted selection after the host reloads, repairing a dangling group index."),
)

var workspaceToolDef = mcp.NewTool("workspace_activate",
	mcp.WithDescription("Notify a workspace switch; applies the first group bound to it."),
	mcp.WithString("workspace", mcp.Required(), mcp.Description("Workspace name")),
)

var presetListToolDef = mcp.NewTool("preset_list",
	mcp.WithDescription("List the built-in workflow presets and their patterns."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var presetMatchToolDef = mcp.NewTool("preset_match",
	mcp.WithDescription("Preview which known categories a preset would enable."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Preset name")),
	mcp.WithReadOnlyHintAnnotation(true),
)
