package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/sieve/internal/codec"
	"github.com/hpungsan/sieve/internal/config"
	"github.com/hpungsan/sieve/internal/errors"
	"github.com/hpungsan/sieve/internal/logging"
	"github.com/hpungsan/sieve/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	log *logging.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, log *logging.Logger) *Handlers {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handlers{db: db, cfg: cfg, log: log}
}

func (h *Handlers) ctx(ctx context.Context) context.Context {
	return logging.WithContext(ctx, h.log)
}

// Request types for each tool

// ScanRequest represents the arguments for category_scan.
type ScanRequest struct {
	Categories []string `json:"categories"`
}

// IndexRequest addresses a group by index.
type IndexRequest struct {
	Index *int `json:"index"`
}

// ShowRequest represents the arguments for group_show.
type ShowRequest struct {
	Index  *int   `json:"index"`
	Filter string `json:"filter,omitempty"`
}

// AddRequest represents the arguments for group_add.
type AddRequest struct {
	Name   string `json:"name,omitempty"`
	Source string `json:"source,omitempty"`
	Preset string `json:"preset,omitempty"`
}

// RenameRequest represents the arguments for group_rename.
type RenameRequest struct {
	Index *int   `json:"index"`
	Name  string `json:"name"`
}

// SetCategoryRequest represents the arguments for group_set_category.
type SetCategoryRequest struct {
	Index    *int   `json:"index"`
	Category string `json:"category"`
	Enabled  *bool  `json:"enabled"`
}

// BindWorkspaceRequest represents the arguments for group_bind_workspace.
type BindWorkspaceRequest struct {
	Index     *int   `json:"index"`
	Workspace string `json:"workspace,omitempty"`
}

// ExportRequest represents the arguments for group_export.
type ExportRequest struct {
	Path   string `json:"path,omitempty"`
	Format string `json:"format,omitempty"`
}

// ImportRequest represents the arguments for group_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// ApplyRequest represents the arguments for selection_apply.
type ApplyRequest struct {
	Index *int   `json:"index,omitempty"`
	Name  string `json:"name,omitempty"`
}

// CycleRequest represents the arguments for selection_cycle.
type CycleRequest struct {
	Delta *int `json:"delta,omitempty"`
}

// WorkspaceRequest represents the arguments for workspace_activate.
type WorkspaceRequest struct {
	Workspace string `json:"workspace"`
}

// PresetMatchRequest represents the arguments for preset_match.
type PresetMatchRequest struct {
	Name string `json:"name"`
}

func requireIndex(index *int) (int, error) {
	if index == nil {
		return 0, errors.NewInvalidRequest("index is required")
	}
	return *index, nil
}

// Handler implementations

// HandleScan handles the category_scan tool call.
func (h *Handlers) HandleScan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScanRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Categories == nil {
		return errorResult(errors.NewInvalidRequest("categories is required")), nil
	}

	result, err := ops.Scan(h.ctx(ctx), h.db, ops.ScanInput{Categories: input.Categories})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleList handles the group_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListGroups(h.ctx(ctx), h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleShow handles the group_show tool call.
func (h *Handlers) HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ShowRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	index, err := requireIndex(input.Index)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ShowGroup(h.ctx(ctx), h.db, ops.ShowGroupInput{Index: index, Filter: input.Filter})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAdd handles the group_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AddGroup(h.ctx(ctx), h.db, ops.AddGroupInput{
		Name:   input.Name,
		Source: ops.AddSource(input.Source),
		Preset: input.Preset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRemove handles the group_remove tool call.
func (h *Handlers) HandleRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IndexRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	index, err := requireIndex(input.Index)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.RemoveGroup(h.ctx(ctx), h.db, ops.RemoveGroupInput{Index: index})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRename handles the group_rename tool call.
func (h *Handlers) HandleRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RenameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	index, err := requireIndex(input.Index)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.RenameGroup(h.ctx(ctx), h.db, ops.RenameGroupInput{Index: index, Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSetCategory handles the group_set_category tool call.
func (h *Handlers) HandleSetCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SetCategoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	index, err := requireIndex(input.Index)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Enabled == nil {
		return errorResult(errors.NewInvalidRequest("enabled is required")), nil
	}

	result, err := ops.SetCategory(h.ctx(ctx), h.db, ops.SetCategoryInput{
		Index:    index,
		Category: input.Category,
		Enabled:  *input.Enabled,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBindWorkspace handles the group_bind_workspace tool call.
func (h *Handlers) HandleBindWorkspace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BindWorkspaceRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	index, err := requireIndex(input.Index)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.BindWorkspace(h.ctx(ctx), h.db, ops.BindWorkspaceInput{Index: index, Workspace: input.Workspace})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the group_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(h.ctx(ctx), h.db, h.cfg, ops.ExportInput{
		Path:   input.Path,
		Format: codec.Format(input.Format),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the group_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(h.ctx(ctx), h.db, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: codec.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleApply handles the selection_apply tool call.
func (h *Handlers) HandleApply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ApplyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Name == "" && input.Index == nil {
		return errorResult(errors.NewInvalidRequest("must specify either index or name")), nil
	}

	in := ops.ApplyInput{Name: input.Name}
	if input.Index != nil {
		in.Index = *input.Index
	}
	result, err := ops.Apply(h.ctx(ctx), h.db, in)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRestore handles the selection_restore tool call.
func (h *Handlers) HandleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Restore(h.ctx(ctx), h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCycle handles the selection_cycle tool call.
func (h *Handlers) HandleCycle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CycleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	delta := 1
	if input.Delta != nil {
		delta = *input.Delta
	}

	result, err := ops.Cycle(h.ctx(ctx), h.db, ops.CycleInput{Delta: delta})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStatus handles the selection_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Status(h.ctx(ctx), h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleResume handles the selection_resume tool call.
func (h *Handlers) HandleResume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Resume(h.ctx(ctx), h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleWorkspace handles the workspace_activate tool call.
func (h *Handlers) HandleWorkspace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WorkspaceRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ActivateWorkspace(h.ctx(ctx), h.db, ops.ActivateWorkspaceInput{Workspace: input.Workspace})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePresetList handles the preset_list tool call.
func (h *Handlers) HandlePresetList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.Presets())
}

// HandlePresetMatch handles the preset_match tool call.
func (h *Handlers) HandlePresetMatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PresetMatchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.MatchPreset(h.ctx(ctx), h.db, ops.MatchPresetInput{Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if sErr, ok := errors.As(err); ok {
		msg := sErr.Message
		// Keep wrapper context such as "items[2]: ...".
		if err != error(sErr) {
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": msg,
			"status":  sErr.Status,
		}
		if sErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		} else if sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
