package web

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"

	"github.com/hpungsan/sieve/internal/config"
	"github.com/hpungsan/sieve/internal/errors"
	"github.com/hpungsan/sieve/internal/logging"
	"github.com/hpungsan/sieve/internal/ops"
	"github.com/hpungsan/sieve/internal/preset"
)

// Handlers contains HTTP route handlers for the dashboard.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	log      *logging.Logger
	renderer *Renderer
}

// HandleGroups handles GET /groups: status header and the group grid.
func (h *Handlers) HandleGroups(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListGroups(h.ctx(r), h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "groups", GroupsPageData{
		PageData: h.renderer.page("Groups", "groups"),
		Groups:   result.Groups,
		Status:   result.Status,
	})
}

// HandleGroup handles GET /groups/{index}: one group's memberships, filtered by ?q=.
func (h *Handlers) HandleGroup(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	query := r.URL.Query().Get("q")

	result, err := ops.ShowGroup(h.ctx(r), h.db, ops.ShowGroupInput{Index: index, Filter: query})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	status, err := ops.Status(h.ctx(r), h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data := GroupPageData{
		PageData: h.renderer.page(result.Name, "groups"),
		Group:    result,
		Query:    query,
		Status:   *status,
	}

	// The filter box swaps just the membership list.
	if r.Header.Get("HX-Target") == "memberships" {
		h.renderer.renderBlock(w, http.StatusOK, "group", "membership-list", data)
		return
	}

	h.renderer.renderPage(w, r, "group", data)
}

// HandleApply handles POST /groups/{index}/apply. Index -1 shows all.
func (h *Handlers) HandleApply(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.Apply(h.ctx(r), h.db, ops.ApplyInput{Index: index})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respondSelection(w, r, result)
}

// HandleRestore handles POST /restore.
func (h *Handlers) HandleRestore(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Restore(h.ctx(r), h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respondSelection(w, r, result)
}

// HandleCycle handles POST /cycle. The form value delta defaults to 1.
func (h *Handlers) HandleCycle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	delta := 1
	if s := r.FormValue("delta"); s != "" {
		d, err := strconv.Atoi(s)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("delta must be an integer"))
			return
		}
		delta = d
	}

	result, err := ops.Cycle(h.ctx(r), h.db, ops.CycleInput{Delta: delta})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respondSelection(w, r, result)
}

// HandleHelp handles GET /help: the preset catalogue.
func (h *Handlers) HandleHelp(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "help", HelpPageData{
		PageData:     h.renderer.page("Help", "help"),
		RenderedHTML: renderMarkdown(presetMarkdown(preset.All())),
	})
}

// respondSelection answers a selection change: htmx clients are told to
// reload the dashboard, JSON clients get the decisions, browsers redirect.
func (h *Handlers) respondSelection(w http.ResponseWriter, r *http.Request, result *ops.SelectionOutput) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/groups")
		w.WriteHeader(http.StatusOK)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/groups", http.StatusFound)
}

func (h *Handlers) ctx(r *http.Request) context.Context {
	return logging.WithContext(r.Context(), h.log)
}

// pathIndex parses the {index} path value.
func pathIndex(r *http.Request) (int, error) {
	s := r.PathValue("index")
	if s == "" {
		return 0, errors.NewInvalidRequest("group index is required")
	}
	index, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewInvalidRequest("group index must be an integer")
	}
	return index, nil
}
