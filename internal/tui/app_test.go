package tui

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/draftforge/stencil/internal/api"
	"github.com/draftforge/stencil/internal/config"
	"github.com/draftforge/stencil/internal/rules"
	"github.com/draftforge/stencil/internal/session"
	"github.com/draftforge/stencil/internal/sidedata"
)

func TestAnalyzeGenerateDownloadFlow(t *testing.T) {
	srv := newFakeBackend(t)
	defer srv.Close()
	app := newTestApp(t, srv.URL)

	doc := writeTempDoc(t, "spec.docx", "formatting requirements")
	app.selectFile(doc)
	if !app.sess.CanAnalyze() {
		t.Fatalf("analyze unavailable after selecting a document")
	}

	model, cmd := app.startAnalyze()
	app = drain(t, model, cmd)
	if app.sess.Phase() != session.PhaseRulesReady {
		t.Fatalf("expected rules-ready after analyze, got %v (err %q)", app.sess.Phase(), app.sess.Err())
	}
	got, _ := app.sess.Rules()
	if got.FontName != "Arial" {
		t.Fatalf("extracted rules not applied, font %q", got.FontName)
	}

	model, cmd = app.startGenerate()
	app = drain(t, model, cmd)
	if app.sess.TemplateID() != "tpl-1" {
		t.Fatalf("expected template id tpl-1, got %q", app.sess.TemplateID())
	}

	model, cmd = app.startDownload()
	app = drain(t, model, cmd)
	artifact := filepath.Join(app.cfg.DownloadDir(), "report_template_tpl-1.docx")
	data, err := os.ReadFile(artifact)
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if string(data) != "docx bytes" {
		t.Fatalf("artifact content mangled: %q", data)
	}
}

func TestAnalyzeRejectedWhileBusy(t *testing.T) {
	srv := newFakeBackend(t)
	defer srv.Close()
	app := newTestApp(t, srv.URL)
	app.selectFile(writeTempDoc(t, "spec.docx", "x"))

	model, _ := app.startAnalyze()
	app = model.(*App)
	if app.sess.Phase() != session.PhaseAnalyzing {
		t.Fatalf("expected analyzing phase, got %v", app.sess.Phase())
	}

	// The first request is still in flight; a second one must be refused.
	_, cmd := app.startAnalyze()
	if cmd != nil {
		t.Fatalf("a busy session issued a second analyze command")
	}
	_, cmd = app.startGenerate()
	if cmd != nil {
		t.Fatalf("a busy session issued a generate command")
	}
}

func TestStaleAnalyzeResultIsDropped(t *testing.T) {
	srv := newFakeBackend(t)
	defer srv.Close()
	app := newTestApp(t, srv.URL)
	app.selectFile(writeTempDoc(t, "spec.docx", "x"))

	model, _ := app.startAnalyze()
	app = model.(*App)

	// A result carrying a token from some earlier request must not land.
	stale := rules.Default()
	stale.FontName = "Comic Sans"
	model, _ = app.Update(analyzeResultMsg{token: 9999, rules: stale})
	app = model.(*App)
	if app.sess.Phase() != session.PhaseAnalyzing {
		t.Fatalf("a stale result resolved the in-flight analyze, phase %v", app.sess.Phase())
	}
	if _, ok := app.sess.Rules(); ok {
		t.Fatalf("stale rules were applied")
	}
}

func TestAnalyzeFailureSurfacesBackendDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/analyze" {
			http.Error(w, "unsupported file type", http.StatusUnprocessableEntity)
			return
		}
		w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()
	app := newTestApp(t, srv.URL)
	app.selectFile(writeTempDoc(t, "notes.xyz", "x"))

	model, cmd := app.startAnalyze()
	app = drain(t, model, cmd)
	if app.sess.Busy() {
		t.Fatalf("busy flag survived a failed analyze")
	}
	if !strings.Contains(app.sess.Err(), "unsupported file type") {
		t.Fatalf("backend detail missing from error: %q", app.sess.Err())
	}
	if app.sess.FilePath() == "" {
		t.Fatalf("failure dropped the selected document")
	}
}

func TestProfileSaveRejectsBlankName(t *testing.T) {
	srv := newFakeBackend(t)
	defer srv.Close()
	app := newTestApp(t, srv.URL)
	app.sess = app.sess.ApplyRules(rules.Default())

	model, cmd := app.startProfileSave("   ")
	app = drain(t, model, cmd)
	if app.sess.Busy() {
		t.Fatalf("busy flag stuck after a rejected save")
	}
	if !strings.Contains(app.sess.Err(), "name") {
		t.Fatalf("expected a name validation error, got %q", app.sess.Err())
	}
}

func TestSaveProfileRequiresRules(t *testing.T) {
	srv := newFakeBackend(t)
	defer srv.Close()
	app := newTestApp(t, srv.URL)

	if app.sess.CanSaveProfile() {
		t.Fatalf("save must be unavailable without rules")
	}
	_, cmd := app.startProfileSave("GOST")
	if cmd != nil {
		t.Fatalf("a rule-less session issued a save command")
	}
}

func TestSideDataSnapshotClampsSelections(t *testing.T) {
	srv := newFakeBackend(t)
	defer srv.Close()
	app := newTestApp(t, srv.URL)
	app.profileSel = 7

	model, _ := app.Update(sideDataMsg{snapshot: snapshotWith(1, 0, 0)})
	app = model.(*App)
	if app.profileSel != 0 {
		t.Fatalf("selection not clamped to the shrunk list, got %d", app.profileSel)
	}
	if len(app.snapshot.Profiles) != 1 {
		t.Fatalf("snapshot not stored")
	}
}

func TestHistoryPaging(t *testing.T) {
	srv := newFakeBackend(t)
	defer srv.Close()
	app := newTestApp(t, srv.URL)
	app.snapshot = snapshotWith(0, 12, 0)

	if got := len(app.visibleHistory()); got != 5 {
		t.Fatalf("expected the first page of 5 entries, got %d", got)
	}
	app.focus = focusHistory
	model, _ := app.updateHistoryPanel(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	app = model.(*App)
	if got := len(app.visibleHistory()); got != 10 {
		t.Fatalf("expected 10 entries after expanding, got %d", got)
	}
	model, _ = app.updateHistoryPanel(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	app = model.(*App)
	if got := len(app.visibleHistory()); got != 12 {
		t.Fatalf("expected all 12 entries, got %d", got)
	}
	model, _ = app.updateHistoryPanel(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'M'}})
	app = model.(*App)
	if got := len(app.visibleHistory()); got != 5 {
		t.Fatalf("expected collapse back to 5 entries, got %d", got)
	}
}

func TestApplyStoredProfileRules(t *testing.T) {
	srv := newFakeBackend(t)
	defer srv.Close()
	app := newTestApp(t, srv.URL)
	snap := snapshotWith(1, 0, 0)
	stored := rules.Default()
	stored.FontName = "Georgia"
	snap.Profiles[0].Rules = stored
	app.snapshot = snap
	app.focus = focusProfiles

	model, _ := app.updateProfilesPanel(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)
	got, ok := app.sess.Rules()
	if !ok || got.FontName != "Georgia" {
		t.Fatalf("stored profile rules not applied: %+v ok=%v", got, ok)
	}
}

func TestImportRejectsMalformedDocument(t *testing.T) {
	srv := newFakeBackend(t)
	defer srv.Close()
	app := newTestApp(t, srv.URL)
	before, hadRules := app.sess.Rules()

	bad := writeTempDoc(t, "rules.json", `{"font_name": `)
	app.importRules(bad)
	if app.sess.Err() == "" {
		t.Fatalf("malformed import produced no error")
	}
	after, hasRules := app.sess.Rules()
	if hadRules != hasRules || (hasRules && after.FontName != before.FontName) {
		t.Fatalf("malformed import changed the rule set")
	}
}

func TestHealthProbeSetsBackendStatus(t *testing.T) {
	srv := newFakeBackend(t)
	defer srv.Close()
	app := newTestApp(t, srv.URL)

	model, _ := app.Update(healthMsg{err: nil})
	app = model.(*App)
	if !app.backendOK {
		t.Fatalf("healthy probe did not mark the backend ready")
	}
	model, _ = app.Update(healthMsg{err: &api.Error{Kind: api.KindPersistence, Detail: "refused"}})
	app = model.(*App)
	if app.backendOK {
		t.Fatalf("failed probe left the backend marked ready")
	}
}

func TestViewRendersBoard(t *testing.T) {
	srv := newFakeBackend(t)
	defer srv.Close()
	app := newTestApp(t, srv.URL)

	out := app.View()
	if !strings.Contains(out, "STENCIL") {
		t.Fatalf("header missing from view")
	}
	if !strings.Contains(out, "Profiles") {
		t.Fatalf("profiles panel missing from view")
	}
}

func newFakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/health":
			w.Write([]byte(`{"status": "ok"}`))
		case r.URL.Path == "/api/analyze":
			w.Write([]byte(`{"font_name": "Arial"}`))
		case r.URL.Path == "/api/generate":
			w.Write([]byte(`{"template_id": "tpl-1"}`))
		case strings.HasPrefix(r.URL.Path, "/api/download/"):
			w.Write([]byte("docx bytes"))
		case r.Method == http.MethodPost && r.URL.Path == "/api/profiles":
			w.Write([]byte(`{"id": "p1", "name": "GOST", "rules": {}}`))
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/profiles/"):
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Write([]byte(`{"items": []}`))
		}
	}))
}

func newTestApp(t *testing.T, baseURL string) *App {
	t.Helper()
	baseDir := t.TempDir()
	if err := config.InitStencilDir(baseDir); err != nil {
		t.Fatalf("init stencil dir: %v", err)
	}
	cfg, err := config.NewConfig(baseDir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.File.API.BaseURL = baseURL
	app, err := NewApp(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app
}

func writeTempDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func snapshotWith(profiles, history, templates int) (snap sidedata.Snapshot) {
	for i := 0; i < profiles; i++ {
		snap.Profiles = append(snap.Profiles, api.Profile{ID: "p", Name: "GOST", Rules: rules.Default()})
	}
	for i := 0; i < history; i++ {
		snap.History = append(snap.History, api.HistoryEntry{ID: "h", Filename: "spec.docx", Rules: rules.Default()})
	}
	for i := 0; i < templates; i++ {
		snap.Templates = append(snap.Templates, api.TemplateRecord{ID: "t", TemplateID: "tpl", Rules: rules.Default()})
	}
	return snap
}

// drain executes commands until none remain, feeding every message back
// through Update. Spinner ticks are dropped so the loop terminates.
func drain(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	pending := []tea.Cmd{cmd}
	for len(pending) > 0 {
		next := pending[0]
		pending = pending[1:]
		if next == nil {
			continue
		}
		msg := next()
		if msg == nil {
			continue
		}
		if batch, ok := msg.(tea.BatchMsg); ok {
			pending = append(pending, batch...)
			continue
		}
		if _, ok := msg.(spinner.TickMsg); ok {
			continue
		}
		nextModel, nextCmd := app.Update(msg)
		app, ok = nextModel.(*App)
		if !ok {
			t.Fatalf("unexpected model type: %T", nextModel)
		}
		pending = append(pending, nextCmd)
	}
	return app
}
