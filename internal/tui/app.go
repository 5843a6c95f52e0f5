// internal/tui/app.go
//
// This is the main TUI for Stencil. It uses bubbletea, which follows
// The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// All workflow semantics live in internal/session as pure transitions: the
// App owns a session value, feeds it events from Update, and swaps in the
// result. Backend calls run inside tea.Cmd goroutines and re-enter Update
// as messages carrying the request token they were issued with; a message
// whose token is stale is dropped by the session without effect.

package tui

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/draftforge/stencil/internal/api"
	"github.com/draftforge/stencil/internal/config"
	"github.com/draftforge/stencil/internal/logbook"
	"github.com/draftforge/stencil/internal/profiles"
	"github.com/draftforge/stencil/internal/rules"
	"github.com/draftforge/stencil/internal/session"
	"github.com/draftforge/stencil/internal/sidedata"
)

// appState represents which "screen" we're on.
type appState int

const (
	stateBoard      appState = iota // The main workflow board
	stateFilePick                   // Choosing a requirements document
	stateNamePrompt                 // Entering a profile name
	statePathPrompt                 // Entering an import path
)

// boardFocus selects which panel receives navigation keys.
type boardFocus int

const (
	focusEditor boardFocus = iota
	focusProfiles
	focusTemplates
	focusHistory
)

type analyzeResultMsg struct {
	token uint64
	rules rules.RuleSet
	err   error
}

type generateResultMsg struct {
	token      uint64
	templateID string
	err        error
}

type profileSavedMsg struct {
	token uint64
	name  string
	err   error
}

type profileDeletedMsg struct {
	token uint64
	id    string
	err   error
}

type sideDataMsg struct {
	snapshot sidedata.Snapshot
}

type downloadDoneMsg struct {
	path string
	err  error
}

type healthMsg struct {
	err error
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	cfg      *config.Config
	client   *api.Client
	side     *sidedata.Store
	profiles *profiles.Manager
	logbook  *logbook.Logbook

	sess     session.Session
	snapshot sidedata.Snapshot

	state appState
	focus boardFocus

	// Rule editor
	fieldIndex int
	editing    bool
	fieldInput textinput.Model

	// Prompts and picker
	nameInput textinput.Model
	pathInput textinput.Model
	picker    filepicker.Model
	spin      spinner.Model

	// Side panel selections
	profileSel  int
	templateSel int
	historySel  int
	historyShow int

	statusMsg string
	backendOK bool
	width     int
	height    int
}

// NewApp wires the TUI against a loaded configuration.
func NewApp(cfg *config.Config) (*App, error) {
	timeout := time.Duration(cfg.File.API.TimeoutSeconds) * time.Second
	client := api.New(cfg.BaseURL(), api.WithHTTPClient(&http.Client{Timeout: timeout}))
	lb, err := logbook.New(filepath.Join(cfg.LogsDir(), "journey.log"))
	if err != nil {
		return nil, err
	}
	lb.Info("Session opened · backend %s", client.BaseURL())

	side := sidedata.New(client, lb)
	manager := profiles.NewManager(client, side)

	picker := filepicker.New()
	picker.AllowedTypes = []string{".docx", ".txt", ".pdf"}
	if home, err := os.UserHomeDir(); err == nil {
		picker.CurrentDirectory = home
	}

	nameInput := textinput.New()
	nameInput.Placeholder = "Profile name"
	nameInput.CharLimit = 120

	pathInput := textinput.New()
	pathInput.Placeholder = "Path to rules.json"

	fieldInput := textinput.New()
	fieldInput.CharLimit = 120

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return &App{
		cfg:         cfg,
		client:      client,
		side:        side,
		profiles:    manager,
		logbook:     lb,
		sess:        session.New(),
		picker:      picker,
		nameInput:   nameInput,
		pathInput:   pathInput,
		fieldInput:  fieldInput,
		spin:        spin,
		historyShow: cfg.HistoryPageSize(),
	}, nil
}

// Init is called once when the program starts: probe the backend and fetch
// the side collections.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.checkHealth(), a.refreshSideData(), a.picker.Init())
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.picker.Height = max(5, msg.Height-10)
		return a, nil

	case spinner.TickMsg:
		if !a.sess.Busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case healthMsg:
		a.backendOK = msg.err == nil
		if msg.err != nil {
			a.statusMsg = "Backend unreachable — start the template service and press r"
			a.logbook.Warn("Health probe failed: %v", msg.err)
		} else {
			a.statusMsg = "Backend ready"
		}
		return a, nil

	case sideDataMsg:
		a.snapshot = msg.snapshot
		a.clampSelections()
		return a, nil

	case analyzeResultMsg:
		if msg.err != nil {
			a.sess, _ = a.sess.FailAnalyze(msg.token, msg.err.Error())
			a.logbook.Error("Analyze failed: %v", msg.err)
			return a, nil
		}
		next, applied := a.sess.CompleteAnalyze(msg.token, msg.rules)
		if !applied {
			return a, nil
		}
		a.sess = next
		a.logbook.Info("Analyze complete · %s", filepath.Base(a.sess.FilePath()))
		a.statusMsg = "Rules extracted — edit them or press g to generate"
		return a, a.refreshSideData()

	case generateResultMsg:
		if msg.err != nil {
			a.sess, _ = a.sess.FailGenerate(msg.token, msg.err.Error())
			a.logbook.Error("Generate failed: %v", msg.err)
			return a, nil
		}
		next, applied := a.sess.CompleteGenerate(msg.token, msg.templateID)
		if !applied {
			return a, nil
		}
		a.sess = next
		a.logbook.Info("Template generated · %s", msg.templateID)
		a.statusMsg = "Template ready — press d to download"
		return a, a.refreshSideData()

	case profileSavedMsg:
		if msg.err != nil {
			a.sess, _ = a.sess.FailProfileOp(msg.token, msg.err.Error())
			a.logbook.Error("Profile save failed: %v", msg.err)
			return a, nil
		}
		a.sess, _ = a.sess.CompleteProfileOp(msg.token)
		a.statusMsg = fmt.Sprintf("Profile %q saved", msg.name)
		a.logbook.Info("Profile saved · %s", msg.name)
		return a, a.publishSideData()

	case profileDeletedMsg:
		if msg.err != nil {
			a.sess, _ = a.sess.FailProfileOp(msg.token, msg.err.Error())
			a.logbook.Error("Profile delete failed: %v", msg.err)
			return a, nil
		}
		a.sess, _ = a.sess.CompleteProfileOp(msg.token)
		a.statusMsg = "Profile deleted"
		a.logbook.Info("Profile deleted · %s", msg.id)
		return a, a.publishSideData()

	case downloadDoneMsg:
		if msg.err != nil {
			a.sess = a.sess.WithError(msg.err.Error())
			a.logbook.Error("Download failed: %v", msg.err)
			return a, nil
		}
		a.statusMsg = fmt.Sprintf("Saved %s", msg.path)
		a.logbook.Info("Artifact saved · %s", msg.path)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a.updateComponents(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.state {
	case stateFilePick:
		return a.updateFilePicker(msg)
	case stateNamePrompt:
		return a.updateNamePrompt(msg)
	case statePathPrompt:
		return a.updatePathPrompt(msg)
	}

	// An active field edit swallows everything except ctrl+c.
	if a.editing {
		return a.updateEditor(msg)
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "tab":
		a.focus = (a.focus + 1) % 4
		return a, nil
	case "shift+tab":
		a.focus = (a.focus + 3) % 4
		return a, nil
	case "o":
		a.state = stateFilePick
		a.statusMsg = "Select a requirements document (.docx, .txt, .pdf)"
		return a, a.picker.Init()
	case "a":
		return a.startAnalyze()
	case "g":
		return a.startGenerate()
	case "d":
		if a.focus == focusTemplates {
			return a.startTemplateDownload()
		}
		return a.startDownload()
	case "e":
		return a.exportRules()
	case "i":
		a.state = statePathPrompt
		a.pathInput.SetValue("")
		a.pathInput.Focus()
		return a, textinput.Blink
	case "s":
		if !a.sess.CanSaveProfile() {
			return a, nil
		}
		a.state = stateNamePrompt
		a.nameInput.SetValue("")
		a.nameInput.Focus()
		return a, textinput.Blink
	case "r":
		a.statusMsg = "Refreshing..."
		return a, tea.Batch(a.checkHealth(), a.refreshSideData())
	}

	switch a.focus {
	case focusEditor:
		return a.updateEditor(msg)
	case focusProfiles:
		return a.updateProfilesPanel(msg)
	case focusTemplates:
		return a.updateTemplatesPanel(msg)
	case focusHistory:
		return a.updateHistoryPanel(msg)
	}
	return a, nil
}

func (a *App) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.state != stateFilePick {
		return a, nil
	}
	var cmd tea.Cmd
	a.picker, cmd = a.picker.Update(msg)
	if ok, path := a.picker.DidSelectFile(msg); ok {
		a.selectFile(path)
		a.state = stateBoard
	}
	return a, cmd
}

// selectFile records a chosen document, clearing any stale template handle
// and error message.
func (a *App) selectFile(path string) {
	a.sess = a.sess.SelectFile(path)
	a.statusMsg = fmt.Sprintf("Selected %s — press a to analyze", filepath.Base(path))
	a.logbook.Info("Document selected · %s", filepath.Base(path))
}

func (a *App) updateFilePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		a.state = stateBoard
		a.statusMsg = ""
		return a, nil
	}
	var cmd tea.Cmd
	a.picker, cmd = a.picker.Update(msg)
	if ok, path := a.picker.DidSelectFile(msg); ok {
		a.selectFile(path)
		a.state = stateBoard
	}
	return a, cmd
}

func (a *App) updateNamePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.state = stateBoard
		a.nameInput.Blur()
		return a, nil
	case "enter":
		name := a.nameInput.Value()
		a.state = stateBoard
		a.nameInput.Blur()
		return a.startProfileSave(name)
	}
	var cmd tea.Cmd
	a.nameInput, cmd = a.nameInput.Update(msg)
	return a, cmd
}

func (a *App) updatePathPrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.state = stateBoard
		a.pathInput.Blur()
		return a, nil
	case "enter":
		path := strings.TrimSpace(a.pathInput.Value())
		a.state = stateBoard
		a.pathInput.Blur()
		a.importRules(path)
		return a, nil
	}
	var cmd tea.Cmd
	a.pathInput, cmd = a.pathInput.Update(msg)
	return a, cmd
}

// updateEditor drives field selection and in-place editing.
func (a *App) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if _, hasRules := a.sess.Rules(); !hasRules {
		return a, nil
	}
	fields := rules.Fields()

	if a.editing {
		switch msg.String() {
		case "esc":
			a.editing = false
			a.fieldInput.Blur()
			return a, nil
		case "enter":
			a.commitFieldEdit(fields[a.fieldIndex])
			return a, nil
		}
		var cmd tea.Cmd
		a.fieldInput, cmd = a.fieldInput.Update(msg)
		return a, cmd
	}

	switch msg.String() {
	case "up", "k":
		if a.fieldIndex > 0 {
			a.fieldIndex--
		}
	case "down", "j":
		if a.fieldIndex < len(fields)-1 {
			a.fieldIndex++
		}
	case "enter", " ":
		field := fields[a.fieldIndex]
		if field.Kind == rules.KindBool {
			a.toggleBoolField(field)
			return a, nil
		}
		a.beginFieldEdit(field)
		return a, textinput.Blink
	}
	return a, nil
}

func (a *App) beginFieldEdit(field rules.Field) {
	current, hasRules := a.sess.Rules()
	if !hasRules {
		return
	}
	value, err := current.Get(field.Key)
	if err != nil {
		return
	}
	switch v := value.(type) {
	case string:
		a.fieldInput.SetValue(v)
	case float64:
		a.fieldInput.SetValue(strconv.FormatFloat(v, 'f', -1, 64))
	}
	a.fieldInput.CursorEnd()
	a.fieldInput.Focus()
	a.editing = true
}

func (a *App) commitFieldEdit(field rules.Field) {
	raw := a.fieldInput.Value()
	a.editing = false
	a.fieldInput.Blur()

	var value any
	switch field.Kind {
	case rules.KindText:
		value = raw
	case rules.KindNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			a.statusMsg = fmt.Sprintf("%s expects a number", field.Label)
			return
		}
		value = n
	default:
		return
	}

	next, err := a.sess.EditField(field.Key, value)
	if err != nil {
		a.statusMsg = err.Error()
		return
	}
	a.sess = next
}

func (a *App) toggleBoolField(field rules.Field) {
	current, hasRules := a.sess.Rules()
	if !hasRules {
		return
	}
	value, err := current.Get(field.Key)
	if err != nil {
		return
	}
	b, ok := value.(bool)
	if !ok {
		return
	}
	next, err := a.sess.EditField(field.Key, !b)
	if err != nil {
		a.statusMsg = err.Error()
		return
	}
	a.sess = next
}

func (a *App) updateProfilesPanel(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := a.snapshot.Profiles
	switch msg.String() {
	case "up", "k":
		if a.profileSel > 0 {
			a.profileSel--
		}
	case "down", "j":
		if a.profileSel < len(items)-1 {
			a.profileSel++
		}
	case "enter":
		if a.profileSel < len(items) {
			a.applySnapshotRules(items[a.profileSel].Rules, "profile "+items[a.profileSel].Name)
		}
	case "x":
		if a.profileSel < len(items) {
			return a.startProfileDelete(items[a.profileSel].ID)
		}
	}
	return a, nil
}

func (a *App) updateTemplatesPanel(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := a.snapshot.Templates
	switch msg.String() {
	case "up", "k":
		if a.templateSel > 0 {
			a.templateSel--
		}
	case "down", "j":
		if a.templateSel < len(items)-1 {
			a.templateSel++
		}
	case "enter":
		if a.templateSel < len(items) {
			a.applySnapshotRules(items[a.templateSel].Rules, "template record")
		}
	}
	return a, nil
}

func (a *App) updateHistoryPanel(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	shown := a.visibleHistory()
	switch msg.String() {
	case "up", "k":
		if a.historySel > 0 {
			a.historySel--
		}
	case "down", "j":
		if a.historySel < len(shown)-1 {
			a.historySel++
		}
	case "m":
		if a.historyShow < len(a.snapshot.History) {
			a.historyShow += a.cfg.HistoryPageSize()
		}
	case "M":
		a.historyShow = a.cfg.HistoryPageSize()
		if a.historySel >= a.historyShow {
			a.historySel = a.historyShow - 1
		}
	case "enter":
		if a.historySel < len(shown) {
			a.applySnapshotRules(shown[a.historySel].Rules, "analysis of "+shown[a.historySel].Filename)
		}
	}
	return a, nil
}

// applySnapshotRules loads a stored snapshot as the current rule set. The
// template handle and error are always cleared; busy is untouched.
func (a *App) applySnapshotRules(r rules.RuleSet, source string) {
	a.sess = a.sess.ApplyRules(r)
	a.statusMsg = fmt.Sprintf("Applied rules from %s", source)
	a.logbook.Info("Rules applied · %s", source)
}

func (a *App) visibleHistory() []api.HistoryEntry {
	items := a.snapshot.History
	if len(items) > a.historyShow {
		return items[:a.historyShow]
	}
	return items
}

func (a *App) clampSelections() {
	a.profileSel = clampSel(a.profileSel, len(a.snapshot.Profiles))
	a.templateSel = clampSel(a.templateSel, len(a.snapshot.Templates))
	a.historySel = clampSel(a.historySel, len(a.visibleHistory()))
}

func clampSel(sel, length int) int {
	if length == 0 {
		return 0
	}
	if sel >= length {
		return length - 1
	}
	return sel
}

// --- Backend commands ---

func (a *App) startAnalyze() (tea.Model, tea.Cmd) {
	next, token, ok := a.sess.BeginAnalyze()
	if !ok {
		return a, nil
	}
	a.sess = next
	path := a.sess.FilePath()
	mode := a.cfg.AnalysisMode()
	a.statusMsg = "Analyzing..."
	a.logbook.Info("Analyze started · %s (mode %s)", filepath.Base(path), mode)
	return a, tea.Batch(a.spin.Tick, func() tea.Msg {
		file, err := os.Open(path)
		if err != nil {
			return analyzeResultMsg{token: token, err: err}
		}
		defer file.Close()
		ctx, cancel := a.requestContext()
		defer cancel()
		extracted, err := a.client.Analyze(ctx, filepath.Base(path), file, mode)
		return analyzeResultMsg{token: token, rules: extracted, err: err}
	})
}

func (a *App) startGenerate() (tea.Model, tea.Cmd) {
	next, token, ok := a.sess.BeginGenerate()
	if !ok {
		return a, nil
	}
	a.sess = next
	current, _ := a.sess.Rules()
	a.statusMsg = "Generating template..."
	a.logbook.Info("Generate started")
	return a, tea.Batch(a.spin.Tick, func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()
		templateID, err := a.client.Generate(ctx, current)
		return generateResultMsg{token: token, templateID: templateID, err: err}
	})
}

func (a *App) startDownload() (tea.Model, tea.Cmd) {
	if !a.sess.CanDownload() {
		return a, nil
	}
	return a, a.fetchArtifact(a.sess.TemplateID())
}

// startTemplateDownload re-downloads the artifact of the selected template
// record, independent of the current session.
func (a *App) startTemplateDownload() (tea.Model, tea.Cmd) {
	items := a.snapshot.Templates
	if a.templateSel >= len(items) {
		return a, nil
	}
	return a, a.fetchArtifact(items[a.templateSel].TemplateID)
}

func (a *App) fetchArtifact(templateID string) tea.Cmd {
	dest := filepath.Join(a.cfg.DownloadDir(), fmt.Sprintf("report_template_%s.docx", templateID))
	a.statusMsg = "Downloading..."
	return func() tea.Msg {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return downloadDoneMsg{err: err}
		}
		file, err := os.Create(dest)
		if err != nil {
			return downloadDoneMsg{err: err}
		}
		defer file.Close()
		ctx, cancel := a.requestContext()
		defer cancel()
		if err := a.client.FetchArtifact(ctx, templateID, file); err != nil {
			return downloadDoneMsg{err: err}
		}
		return downloadDoneMsg{path: dest}
	}
}

func (a *App) startProfileSave(name string) (tea.Model, tea.Cmd) {
	current, hasRules := a.sess.Rules()
	if !hasRules {
		return a, nil
	}
	next, token, ok := a.sess.BeginProfileOp()
	if !ok {
		return a, nil
	}
	a.sess = next
	a.statusMsg = "Saving profile..."
	return a, tea.Batch(a.spin.Tick, func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()
		profile, err := a.profiles.Save(ctx, name, current)
		return profileSavedMsg{token: token, name: profile.Name, err: err}
	})
}

func (a *App) startProfileDelete(id string) (tea.Model, tea.Cmd) {
	next, token, ok := a.sess.BeginProfileOp()
	if !ok {
		return a, nil
	}
	a.sess = next
	a.statusMsg = "Deleting profile..."
	return a, tea.Batch(a.spin.Tick, func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()
		err := a.profiles.Delete(ctx, id)
		return profileDeletedMsg{token: token, id: id, err: err}
	})
}

// exportRules writes the current rule set to rules.json in the download
// directory.
func (a *App) exportRules() (tea.Model, tea.Cmd) {
	current, hasRules := a.sess.Rules()
	if !hasRules {
		return a, nil
	}
	data, err := rules.Export(current)
	if err != nil {
		a.statusMsg = fmt.Sprintf("Export failed: %v", err)
		return a, nil
	}
	dest := filepath.Join(a.cfg.DownloadDir(), rules.ExportFilename)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		a.statusMsg = fmt.Sprintf("Export failed: %v", err)
		return a, nil
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		a.statusMsg = fmt.Sprintf("Export failed: %v", err)
		return a, nil
	}
	a.statusMsg = fmt.Sprintf("Exported %s", dest)
	a.logbook.Info("Rules exported · %s", dest)
	return a, nil
}

// importRules loads a rules.json document. Malformed input surfaces the
// parse error and leaves the session untouched.
func (a *App) importRules(path string) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		a.sess = a.sess.WithError(fmt.Sprintf("import: %v", err))
		return
	}
	imported, err := rules.Import(data)
	if err != nil {
		a.sess = a.sess.WithError(err.Error())
		a.logbook.Warn("Import rejected · %s: %v", path, err)
		return
	}
	a.applySnapshotRules(imported, filepath.Base(path))
}

func (a *App) refreshSideData() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()
		return sideDataMsg{snapshot: a.side.Refresh(ctx)}
	}
}

// publishSideData re-reads the cache without re-fetching; the profile
// manager already refreshed after its mutation.
func (a *App) publishSideData() tea.Cmd {
	return func() tea.Msg {
		return sideDataMsg{snapshot: a.side.Snapshot()}
	}
}

func (a *App) checkHealth() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()
		return healthMsg{err: a.client.Health(ctx)}
	}
}

func (a *App) requestContext() (context.Context, context.CancelFunc) {
	timeout := time.Duration(a.cfg.File.API.TimeoutSeconds) * time.Second
	return context.WithTimeout(context.Background(), timeout)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
