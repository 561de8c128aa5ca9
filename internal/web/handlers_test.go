package web

import (
	"context"
	"encoding/json"
	"html"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hpungsan/sieve/internal/config"
	"github.com/hpungsan/sieve/internal/db"
	"github.com/hpungsan/sieve/internal/logging"
	"github.com/hpungsan/sieve/internal/ops"
	"github.com/hpungsan/sieve/internal/preset"
)

func setupTest(t *testing.T) *Handlers {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}
	log := logging.NewNop()

	return &Handlers{
		db:       database,
		cfg:      cfg,
		log:      log,
		renderer: NewRenderer(templateSub, "test", log),
	}
}

// seedGroups scans four categories and creates two groups:
// "Hard Surface" (HardOps, Tool enabled) and "Sculpting" (Brush enabled).
func seedGroups(t *testing.T, h *Handlers) {
	t.Helper()
	ctx := context.Background()

	if _, err := ops.Scan(ctx, h.db, ops.ScanInput{Categories: []string{"Item", "Tool", "HardOps", "Brush"}}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	for _, name := range []string{"Hard Surface", "Sculpting"} {
		if _, err := ops.AddGroup(ctx, h.db, ops.AddGroupInput{Name: name, Source: ops.AddSourceCurrent}); err != nil {
			t.Fatalf("add %q: %v", name, err)
		}
	}
	enable := []ops.SetCategoryInput{
		{Index: 0, Category: "HardOps", Enabled: true},
		{Index: 0, Category: "Tool", Enabled: true},
		{Index: 1, Category: "Brush", Enabled: true},
	}
	for _, in := range enable {
		if _, err := ops.SetCategory(ctx, h.db, in); err != nil {
			t.Fatalf("set category: %v", err)
		}
	}
}

// serve routes a request through a mux with the production patterns so
// PathValue is populated.
func serve(h *Handlers, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /groups", h.HandleGroups)
	mux.HandleFunc("GET /groups/{index}", h.HandleGroup)
	mux.HandleFunc("POST /groups/{index}/apply", h.HandleApply)
	mux.HandleFunc("POST /restore", h.HandleRestore)
	mux.HandleFunc("POST /cycle", h.HandleCycle)
	mux.HandleFunc("GET /help", h.HandleHelp)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest("POST", target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// --- HandleGroups ---

func TestHandleGroups_Default(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)

	rec := serve(h, httptest.NewRequest("GET", "/groups", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Hard Surface", "Sculpting", "Show all", "2 of 4 enabled"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response", want)
		}
	}
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("expected full layout")
	}
}

func TestHandleGroups_Empty(t *testing.T) {
	h := setupTest(t)

	rec := serve(h, httptest.NewRequest("GET", "/groups", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No groups yet") {
		t.Error("expected empty state message")
	}
}

func TestHandleGroups_HtmxReturnsContentOnly(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)

	req := httptest.NewRequest("GET", "/groups", nil)
	req.Header.Set("HX-Request", "true")
	rec := serve(h, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("htmx response should not include the layout")
	}
	if !strings.Contains(body, "Hard Surface") {
		t.Error("expected group name in htmx content")
	}
}

func TestHandleGroups_JSON(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)

	req := httptest.NewRequest("GET", "/groups", nil)
	req.Header.Set("Accept", "application/json")
	rec := serve(h, req)

	var out ops.ListGroupsOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Groups) != 2 {
		t.Errorf("groups = %d, want 2", len(out.Groups))
	}
}

// --- HandleGroup ---

func TestHandleGroup_Found(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)

	rec := serve(h, httptest.NewRequest("GET", "/groups/0", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Hard Surface", "HardOps", "Brush", `id="memberships"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestHandleGroup_Filter(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)

	rec := serve(h, httptest.NewRequest("GET", "/groups/0?q=hard", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "<td>HardOps</td>") {
		t.Error("expected HardOps to match filter")
	}
	if strings.Contains(body, "<td>Brush</td>") {
		t.Error("did not expect Brush with filter 'hard'")
	}
}

func TestHandleGroup_FilterNoMatches(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)

	rec := serve(h, httptest.NewRequest("GET", "/groups/0?q=zzz", nil))

	if !strings.Contains(rec.Body.String(), "No categories match") {
		t.Error("expected no-match message")
	}
}

func TestHandleGroup_HtmxTargetMemberships_ReturnsFragment(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)

	req := httptest.NewRequest("GET", "/groups/0?q=o", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Target", "memberships")
	rec := serve(h, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(strings.TrimSpace(body), `<div id="memberships">`) {
		t.Errorf("expected membership fragment only, got: %s", body)
	}
	if strings.Contains(body, "<h1>") {
		t.Error("fragment should not include the page heading")
	}
}

func TestHandleGroup_OutOfRange(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)

	rec := serve(h, httptest.NewRequest("GET", "/groups/9", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "out of range") {
		t.Error("expected out of range message")
	}
}

func TestHandleGroup_InvalidIndex(t *testing.T) {
	h := setupTest(t)

	rec := serve(h, httptest.NewRequest("GET", "/groups/abc", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// --- Selection ---

func TestHandleApply_DefaultRedirect(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)

	rec := serve(h, postForm("/groups/1/apply", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/groups" {
		t.Errorf("Location = %q, want /groups", loc)
	}

	status, err := ops.Status(context.Background(), h.db)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.IsFiltering || status.ActiveGroup != "Sculpting" {
		t.Errorf("status = %+v, want filtering on Sculpting", status)
	}
}

func TestHandleApply_JSON(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)

	req := postForm("/groups/0/apply", nil)
	req.Header.Set("Accept", "application/json")
	rec := serve(h, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["group"] != "Hard Surface" {
		t.Errorf("group = %v, want Hard Surface", out["group"])
	}
	if len(out["decisions"].([]any)) != 4 {
		t.Errorf("decisions = %v, want one per category", out["decisions"])
	}
}

func TestHandleApply_Htmx(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)

	req := postForm("/groups/0/apply", nil)
	req.Header.Set("HX-Request", "true")
	rec := serve(h, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("HX-Redirect"); got != "/groups" {
		t.Errorf("HX-Redirect = %q, want /groups", got)
	}
}

func TestHandleApply_OutOfRange_JSON(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)

	req := postForm("/groups/5/apply", nil)
	req.Header.Set("Accept", "application/json")
	rec := serve(h, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	errObj := payload["error"].(map[string]any)
	if errObj["code"] != "INDEX_OUT_OF_RANGE" {
		t.Errorf("code = %v, want INDEX_OUT_OF_RANGE", errObj["code"])
	}
}

func TestHandleRestore(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)
	if _, err := ops.Apply(context.Background(), h.db, ops.ApplyInput{Index: 0}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	req := postForm("/restore", nil)
	req.Header.Set("Accept", "application/json")
	rec := serve(h, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	status, _ := ops.Status(context.Background(), h.db)
	if status.IsFiltering {
		t.Error("expected unfiltered state after restore")
	}
}

func TestHandleCycle(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)

	rec := serve(h, postForm("/cycle", url.Values{"delta": {"-1"}}))
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}

	status, _ := ops.Status(context.Background(), h.db)
	if status.ActiveGroupIndex != 1 {
		t.Errorf("prev from show all: active index = %d, want 1", status.ActiveGroupIndex)
	}

	serve(h, postForm("/cycle", nil))
	status, _ = ops.Status(context.Background(), h.db)
	if status.IsFiltering {
		t.Errorf("next from last group should show all, got %+v", status)
	}
}

func TestHandleCycle_NoGroups(t *testing.T) {
	h := setupTest(t)

	req := postForm("/cycle", nil)
	req.Header.Set("HX-Request", "true")
	rec := serve(h, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `class="error-message"`) {
		t.Error("expected htmx error fragment")
	}
}

func TestHandleCycle_InvalidDelta(t *testing.T) {
	h := setupTest(t)
	seedGroups(t, h)

	rec := serve(h, postForm("/cycle", url.Values{"delta": {"two"}}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// --- HandleHelp ---

func TestHandleHelp(t *testing.T) {
	h := setupTest(t)

	rec := serve(h, httptest.NewRequest("GET", "/help", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>Presets</h1>") {
		t.Error("expected rendered markdown heading")
	}
	for _, name := range preset.Names() {
		if !strings.Contains(body, html.EscapeString(name)) {
			t.Errorf("expected preset %q in help page", name)
		}
	}
}

// --- Errors and server ---

func TestErrorRendering_FullErrorPage(t *testing.T) {
	h := setupTest(t)

	rec := serve(h, httptest.NewRequest("GET", "/groups/3", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "Error 400") {
		t.Error("expected error page title")
	}
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("expected full layout on error page")
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, err := NewServer(nil, config.DefaultConfig(), nil, "test", "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want 302", rec.Code)
	}
	if rec.Header().Get("Location") != "/groups" {
		t.Errorf("Location = %q, want /groups", rec.Header().Get("Location"))
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "default-src 'self'") {
		t.Error("missing Content-Security-Policy")
	}
}

func TestStaticAssets(t *testing.T) {
	srv, err := NewServer(nil, config.DefaultConfig(), nil, "test", "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/static/style.css", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestPathIndex(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"-1", -1, false},
		{"12", 12, false},
		{"", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		req.SetPathValue("index", tt.value)
		got, err := pathIndex(req)
		if (err != nil) != tt.wantErr {
			t.Errorf("pathIndex(%q) err = %v, wantErr %v", tt.value, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("pathIndex(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}
