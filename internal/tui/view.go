package tui

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/draftforge/stencil/internal/rules"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF")).
			MarginBottom(1)
	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	noteStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7B801"))
	readyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
)

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(34, width/3)
	leftWidth := width - rightWidth - 4
	if leftWidth < 40 {
		leftWidth = width - 4
		rightWidth = 0
	}

	var content string
	switch a.state {
	case stateFilePick:
		content = a.renderFilePicker()
	case stateNamePrompt:
		content = a.renderPrompt("Save profile as:", a.nameInput.View())
	case statePathPrompt:
		content = a.renderPrompt("Import rules from:", a.pathInput.View())
	default:
		content = a.renderWorkflow(leftWidth - 4)
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		a.renderPhasePanel(leftWidth-4),
		"",
		content,
	)
	leftBox := boxStyle.Width(max(20, leftWidth)).Render(left)

	var body string
	if rightWidth > 0 {
		right := lipgloss.JoinVertical(lipgloss.Left,
			a.renderProfilesPanel(rightWidth-4),
			"",
			a.renderTemplatesPanel(rightWidth-4),
			"",
			a.renderHistoryPanel(rightWidth-4),
		)
		rightBox := boxStyle.Width(max(20, rightWidth)).Render(right)
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
	} else {
		body = leftBox
	}

	sections := []string{a.renderHeader(), body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, a.renderFooter())
	return strings.Join(sections, "\n")
}

func (a *App) renderHeader() string {
	badge := strings.TrimPrefix(strings.TrimPrefix(a.client.BaseURL(), "https://"), "http://")
	state := errorStyle.Render("●")
	if a.backendOK {
		state = readyStyle.Render("●")
	}
	return headerStyle.Render("⬒ STENCIL") + dimStyle.Render(fmt.Sprintf("  backend %s ", badge)) + state
}

func (a *App) renderPhasePanel(width int) string {
	phase := a.sess.Phase()
	lines := []string{fmt.Sprintf("Phase: %s", phase.FriendlyName())}
	if path := a.sess.FilePath(); path != "" {
		lines = append(lines, fmt.Sprintf("Document: %s", filepath.Base(path)))
	}
	if id := a.sess.TemplateID(); id != "" {
		lines = append(lines, fmt.Sprintf("Template: %s", id))
	}
	if a.sess.Busy() {
		lines = append(lines, a.spin.View()+"Working...")
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func (a *App) renderWorkflow(width int) string {
	current, hasRules := a.sess.Rules()
	if !hasRules {
		help := []string{
			"o  choose a requirements document",
			"a  analyze it into formatting rules",
			"i  import a rules.json instead",
			"",
			dimStyle.Render("Profiles, templates and history live in the right panels (tab to focus)."),
		}
		return strings.Join(help, "\n")
	}
	return a.renderEditor(current, width)
}

func (a *App) renderEditor(current rules.RuleSet, width int) string {
	title := panelTitleStyle.Render("Rules (editable)")
	var rows []string
	for i, field := range rules.Fields() {
		value, err := current.Get(field.Key)
		if err != nil {
			continue
		}
		rendered := formatFieldValue(value)
		if a.editing && i == a.fieldIndex {
			rendered = a.fieldInput.View()
		}
		line := fmt.Sprintf("%-28s %s", field.Label, rendered)
		if i == a.fieldIndex && a.focus == focusEditor {
			line = selectedStyle.Render("› " + line)
		} else {
			line = "  " + line
		}
		rows = append(rows, line)
	}

	sections := []string{title, strings.Join(rows, "\n")}
	if len(current.RawMatches) > 0 {
		sections = append(sections, "", dimStyle.Render(fmt.Sprintf("raw_matches: %d entries from analysis (exported as-is)", len(current.RawMatches))))
	}
	hint := "enter edit · space toggle · g generate · e export · s save profile"
	sections = append(sections, "", noteStyle.Render(hint))
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(sections, "\n"))
}

func formatFieldValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "on"
		}
		return "off"
	}
	return fmt.Sprintf("%v", value)
}

func (a *App) renderFilePicker() string {
	hint := noteStyle.Render("Enter → select    Esc → cancel")
	return lipgloss.JoinVertical(lipgloss.Left, a.picker.View(), hint)
}

func (a *App) renderPrompt(label, input string) string {
	hint := noteStyle.Render("Enter → confirm    Esc → cancel")
	return lipgloss.JoinVertical(lipgloss.Left, label, input, "", hint)
}

func (a *App) renderProfilesPanel(width int) string {
	title := panelTitleStyle.Render(fmt.Sprintf("Profiles (%d)", len(a.snapshot.Profiles)))
	if len(a.snapshot.Profiles) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("No profiles yet — press s to save one."))
	}
	var rows []string
	for i, p := range a.snapshot.Profiles {
		line := fmt.Sprintf("%s\n%s", p.Name, dimStyle.Render("saved "+formatTimestamp(p.CreatedAt)))
		rows = append(rows, a.panelRow(line, a.focus == focusProfiles && i == a.profileSel, width))
	}
	hint := noteStyle.Render("enter apply · x delete")
	return lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n"), hint)
}

func (a *App) renderTemplatesPanel(width int) string {
	title := panelTitleStyle.Render(fmt.Sprintf("Generated templates (%d)", len(a.snapshot.Templates)))
	if len(a.snapshot.Templates) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("No templates generated yet."))
	}
	var rows []string
	for i, t := range a.snapshot.Templates {
		line := fmt.Sprintf("report_template.docx\n%s", dimStyle.Render("generated "+formatTimestamp(t.CreatedAt)))
		rows = append(rows, a.panelRow(line, a.focus == focusTemplates && i == a.templateSel, width))
	}
	hint := noteStyle.Render("enter apply rules · d download again")
	return lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n"), hint)
}

func (a *App) renderHistoryPanel(width int) string {
	total := len(a.snapshot.History)
	title := panelTitleStyle.Render(fmt.Sprintf("Analysis history (%d)", total))
	if total == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("Nothing analyzed yet."))
	}
	shown := a.visibleHistory()
	var rows []string
	for i, h := range shown {
		line := fmt.Sprintf("%s\n%s", h.Filename, dimStyle.Render("analyzed "+formatTimestamp(h.CreatedAt)))
		rows = append(rows, a.panelRow(line, a.focus == focusHistory && i == a.historySel, width))
	}
	parts := []string{title, strings.Join(rows, "\n")}
	if len(shown) < total {
		parts = append(parts, dimStyle.Render(fmt.Sprintf("…and %d more (m to show)", total-len(shown))))
	}
	parts = append(parts, noteStyle.Render("enter apply rules"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) panelRow(content string, selected bool, width int) string {
	style := lipgloss.NewStyle().Width(max(16, width)).Padding(0, 0, 1, 0)
	if selected {
		style = style.Bold(true).Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	}
	return style.Render(content)
}

func (a *App) renderLogPanel() string {
	lines := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	head := panelTitleStyle.Render("LOG · " + filepath.Base(a.logbook.Path()))
	body := noteStyle.Render(strings.Join(lines, "\n"))
	return boxStyle.Render(head + "\n" + body)
}

func (a *App) renderFooter() string {
	var parts []string
	if msg := a.sess.Err(); msg != "" {
		parts = append(parts, errorStyle.Render("⚠ "+msg))
	}
	if a.statusMsg != "" {
		parts = append(parts, dimStyle.Render(a.statusMsg))
	}
	parts = append(parts, dimStyle.Render("tab panels · o open · a analyze · g generate · d download · e export · i import · s save · r refresh · q quit"))
	return strings.Join(parts, "\n")
}

func formatTimestamp(unix int64) string {
	if unix <= 0 {
		return "unknown"
	}
	return time.Unix(unix, 0).Local().Format("2006-01-02 15:04")
}
