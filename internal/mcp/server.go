package mcp

import (
	"database/sql"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/hpungsan/sieve/internal/config"
	"github.com/hpungsan/sieve/internal/logging"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"category", "group", "selection", "workspace", "preset"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"category_scan": {
		def:     scanToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScan },
	},
	"group_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"group_show": {
		def:     showToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleShow },
	},
	"group_add": {
		def:     addToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdd },
	},
	"group_remove": {
		def:     removeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRemove },
	},
	"group_rename": {
		def:     renameToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRename },
	},
	"group_set_category": {
		def:     setCategoryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSetCategory },
	},
	"group_bind_workspace": {
		def:     bindWorkspaceToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBindWorkspace },
	},
	"group_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"group_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"selection_apply": {
		def:     applyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleApply },
	},
	"selection_restore": {
		def:     restoreToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRestore },
	},
	"selection_cycle": {
		def:     cycleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCycle },
	},
	"selection_status": {
		def:     statusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
	"selection_resume": {
		def:     resumeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleResume },
	},
	"workspace_activate": {
		def:     workspaceToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspace },
	},
	"preset_list": {
		def:     presetListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePresetList },
	},
	"preset_match": {
		def:     presetMatchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePresetMatch },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "group_add" → "group").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	sort.Strings(tools)
	return tools
}

// NewServer creates a new MCP server with the sieve tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration; unknown names are logged.
func NewServer(db *sql.DB, cfg *config.Config, log *logging.Logger, version string) *server.MCPServer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logging.NewNop()
	}

	s := server.NewMCPServer(
		"sieve",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, log)

	if unknown := ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("unknown tools in disabled_tools", zap.Strings("tools", unknown))
	}
	if unknown := ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		log.Warn("unknown types in disabled_types", zap.Strings("types", unknown))
	}

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	registered := 0
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
		registered++
	}
	log.Debug("mcp tools registered", zap.Int("count", registered))

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, log *logging.Logger, version string) error {
	s := NewServer(db, cfg, log, version)
	return server.ServeStdio(s)
}
