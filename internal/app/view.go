package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwulff/minutes/internal/chat"
	"github.com/jwulff/minutes/internal/markdown"
	"github.com/jwulff/minutes/internal/media"
	"github.com/jwulff/minutes/internal/roles"
	"github.com/jwulff/minutes/internal/ui"
)

const (
	sidebarWidth = 24
	// header, two dividers, message bar, footer
	reservedLines = 5
	// title, capture, file, options, status, blank, tab bar
	recordHeaderLines = 7
)

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	return max(5, m.height-reservedLines)
}

func (m Model) contentWidth() int {
	if m.width == 0 {
		return 80
	}
	return max(30, m.width-sidebarWidth-1)
}

func (m Model) tabVisibleLines() int {
	n := m.contentHeight() - recordHeaderLines
	if m.tab == TabChat {
		n--
	}
	return max(1, n)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	switch m.screen {
	case ScreenLoading:
		return ui.DimStyle.Render("Checking session...")
	case ScreenLogin:
		return m.renderLogin()
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderMainContent())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderMessageBar())
	sections = append(sections, m.renderFooter())
	return strings.Join(sections, "\n")
}

func (m Model) renderLogin() string {
	var lines []string
	lines = append(lines, ui.TitleStyle.Render("MINUTES"))
	lines = append(lines, ui.SubtitleStyle.Render("Sign in to continue"))
	lines = append(lines, "")
	lines = append(lines, m.login.render(true, min(m.width, 60))...)
	lines = append(lines, "")
	switch {
	case m.loginBusy:
		lines = append(lines, ui.SpinnerStyle.Render("Signing in..."))
	case m.errorMessage != "":
		lines = append(lines, ui.ErrorTextStyle.Render(m.errorMessage))
	default:
		lines = append(lines, "")
	}
	lines = append(lines, "")
	lines = append(lines, footer(
		"Enter", "Sign in",
		"Tab", "Next field",
		"Esc", "Quit",
	))

	block := strings.Join(lines, "\n")
	return lipgloss.NewStyle().Padding(1, 2).Render(block)
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("MINUTES")
	who := m.user.FullName()
	if who == "" {
		who = m.user.Email
	}
	right := ui.DimStyle.Render(who) + " " + ui.RoleBadge(m.role.Badge())
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(right)
	if gap < 1 {
		return title + " " + right
	}
	return title + strings.Repeat(" ", gap) + right
}

func (m Model) renderMainContent() string {
	h := m.contentHeight()
	sidebar := strings.Split(m.renderSidebar(sidebarWidth, h), "\n")
	content := m.renderContent(m.contentWidth(), h)
	divider := ui.DividerStyle.Render("│")

	for len(sidebar) < h {
		sidebar = append(sidebar, strings.Repeat(" ", sidebarWidth))
	}
	for len(content) < h {
		content = append(content, "")
	}

	rows := make([]string, 0, h)
	for i := 0; i < h; i++ {
		rows = append(rows, padRight(sidebar[i], sidebarWidth)+divider+" "+content[i])
	}
	return strings.Join(rows, "\n")
}

// renderSidebar draws the role menu. Items without a view are shown dimmed.
func (m Model) renderSidebar(width, height int) string {
	var lines []string
	idx := 0
	for si, section := range m.menu {
		if si > 0 {
			lines = append(lines, "")
		}
		if section.Title != "" {
			lines = append(lines, ui.SectionTitleStyle.Render(" "+strings.ToUpper(section.Title)))
		}
		for _, it := range section.Items {
			selected := idx == m.menuIndex
			label := truncateToWidth(it.Label, width-3)
			var line string
			switch {
			case selected && m.focus == FocusSidebar:
				line = ui.SelectedStyle.Render("> " + label)
			case it.View == m.view && it.Label == m.viewLabel:
				line = ui.PanelTitleActiveStyle.Render("  " + label)
			case it.View == roles.ViewNone:
				line = ui.MenuItemDisabledStyle.Render("  " + label)
			default:
				line = ui.MenuItemStyle.Render("  " + label)
			}
			lines = append(lines, line)
			idx++
		}
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	for i, l := range lines {
		lines[i] = padRight(l, width)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderContent(width, height int) []string {
	var lines []string
	switch m.view {
	case roles.ViewRecord:
		lines = m.renderRecord(width)
	case roles.ViewHistory:
		lines = m.renderHistory(width, height)
	case roles.ViewAccount:
		lines = m.renderAccount(width)
	case roles.ViewAgents:
		lines = m.renderAgents(width, height)
	default:
		lines = []string{
			m.panelTitle(strings.ToUpper(m.viewLabel)),
			"",
			ui.DimStyle.Render(m.viewLabel + " is not available in the terminal client."),
		}
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return lines
}

func (m Model) panelTitle(s string) string {
	if m.focus == FocusContent {
		return ui.PanelTitleActiveStyle.Render(s)
	}
	return ui.PanelTitleStyle.Render(s)
}

func (m Model) renderRecord(width int) []string {
	var lines []string
	lines = append(lines, m.panelTitle("NEW RECORDING"))

	// capture
	if m.recording {
		lines = append(lines, ui.RecordingDotStyle.Render("● REC ")+
			string(m.captureType)+"  "+
			ui.RecordingDotStyle.Render(media.FormatDuration(m.elapsed, true)))
	} else if m.stopping {
		lines = append(lines, ui.SpinnerStyle.Render("⟳ Finishing recording..."))
	} else {
		lines = append(lines, ui.IdleDotStyle.Render("○ IDLE ")+ui.DimStyle.Render("Source: ")+string(m.captureType))
	}

	// staged file
	if m.staged != nil {
		info := fmt.Sprintf("%s (%s, %s)", m.staged.Name,
			media.FormatFileSize(m.staged.Size),
			media.FormatDuration(m.staged.Duration, m.staged.DurationKnown))
		lines = append(lines, ui.LabelStyle.Render("File")+truncateToWidth(info, width-12))
	} else {
		lines = append(lines, ui.LabelStyle.Render("File")+ui.DimStyle.Render("No file selected"))
	}

	// options
	opts := ui.LabelStyle.Render("Language") + m.language
	if m.role.CanManageAgents() {
		agent := "Default"
		if a, ok := m.activeAgent(); ok {
			agent = a.Name
		}
		opts += "   " + ui.DimStyle.Render("Agent ") + agent
	}
	lines = append(lines, opts)

	// status or path input
	switch {
	case m.input == inputPath:
		lines = append(lines, m.path.render(true, width))
	case m.processing:
		lines = append(lines, ui.SpinnerStyle.Render("⟳ "+m.statusText))
	default:
		lines = append(lines, "")
	}
	lines = append(lines, "")

	lines = append(lines, m.renderTabs())
	body := m.tabLines(width)
	visible := m.tabVisibleLines()
	start := min(m.scroll, max(0, len(body)-1))
	end := min(len(body), start+visible)
	lines = append(lines, body[start:end]...)
	if m.tab == TabChat {
		for len(lines) < recordHeaderLines+visible {
			lines = append(lines, "")
		}
		if m.chatBusy {
			lines = append(lines, ui.SpinnerStyle.Render("⟳ Thinking..."))
		} else {
			lines = append(lines, m.chatInput.render(m.input == inputChat, width))
		}
	}
	return lines
}

func (m Model) renderTabs() string {
	names := []string{"1 Summary", "2 Transcript", "3 Chat"}
	var parts []string
	for i, n := range names {
		if ResultTab(i) == m.tab {
			parts = append(parts, ui.TabActiveStyle.Render(n))
		} else {
			parts = append(parts, ui.TabStyle.Render(n))
		}
	}
	return strings.Join(parts, "")
}

// tabLines renders the body of the current tab, unclipped.
func (m Model) tabLines(width int) []string {
	switch m.tab {
	case TabChat:
		return m.chatLines(width)
	case TabTranscript:
		if m.result == nil {
			return []string{ui.DimStyle.Render("The transcript appears here after processing.")}
		}
		turns := make([]markdown.Turn, 0, len(m.result.Dialogues))
		for _, d := range m.result.Dialogues {
			turns = append(turns, markdown.Turn{Speaker: d.Speaker, Text: d.Text})
		}
		return strings.Split(markdown.ToTerminal(markdown.Transcript(turns, m.result.Transcription), width), "\n")
	}

	if m.result == nil {
		return []string{ui.DimStyle.Render("Record or select a file, then press p to process it.")}
	}
	if strings.TrimSpace(m.summary) == "" {
		return []string{ui.DimStyle.Render(chat.NoSummary)}
	}
	return strings.Split(markdown.ToTerminal(m.summary, width), "\n")
}

func (m Model) chatLines(width int) []string {
	msgs := m.deps.Chat.Messages()
	if len(msgs) == 0 {
		if !m.deps.Chat.Ready() {
			return []string{ui.DimStyle.Render("Process a recording to chat about it.")}
		}
		return []string{ui.DimStyle.Render("Ask about the meeting, or ask to edit the summary.")}
	}
	var lines []string
	for i, msg := range msgs {
		if i > 0 {
			lines = append(lines, "")
		}
		if msg.Role == chat.RoleUser {
			lines = append(lines, ui.ChatUserStyle.Render("You"))
			for _, wl := range wrapText(msg.Content, width-2) {
				lines = append(lines, "  "+wl)
			}
			continue
		}
		lines = append(lines, ui.ChatAssistantStyle.Render("Assistant"))
		for _, l := range strings.Split(markdown.ToTerminal(msg.Content, width-2), "\n") {
			lines = append(lines, "  "+l)
		}
	}
	return lines
}

func (m Model) renderHistory(width, height int) []string {
	lines := []string{m.panelTitle(fmt.Sprintf("MY RECORDINGS (%d)", len(m.history)))}
	if len(m.history) == 0 {
		return append(lines, "", ui.DimStyle.Render("No recordings yet. Processed files are listed here."))
	}

	visible := max(1, height-1)
	start := 0
	if m.historyIndex >= visible {
		start = m.historyIndex - visible + 1
	}
	end := min(len(m.history), start+visible)
	for i := start; i < end; i++ {
		rec := m.history[i]
		dur := media.FormatDuration(rec.Duration, rec.Duration > 0)
		row := fmt.Sprintf("%s  %-5s  %s  %s",
			rec.CreatedAt.Local().Format("2006-01-02 15:04"), dur, rec.Language, rec.FileName)
		if rec.Agent != "" {
			row += "  [" + rec.Agent + "]"
		}
		row = truncateToWidth(row, width-2)
		if i == m.historyIndex && m.focus == FocusContent {
			lines = append(lines, ui.SelectedStyle.Render("> "+row))
		} else {
			lines = append(lines, "  "+row)
		}
	}
	return lines
}

func (m Model) renderAccount(width int) []string {
	lines := []string{m.panelTitle("MY ACCOUNT"), ""}
	lines = append(lines, ui.LabelStyle.Render("Name")+m.user.FullName())
	lines = append(lines, ui.LabelStyle.Render("Email")+m.user.Email)
	lines = append(lines, ui.LabelStyle.Render("Role")+ui.RoleBadge(m.role.Badge()))
	lines = append(lines, "")

	if m.input == inputPassword {
		lines = append(lines, ui.PanelTitleStyle.Render("Change password"))
		lines = append(lines, m.password.render(true, width)...)
		if m.pwBusy {
			lines = append(lines, ui.SpinnerStyle.Render("⟳ Updating..."))
		}
	}
	return lines
}

func (m Model) renderAgents(width, height int) []string {
	lines := []string{m.panelTitle(fmt.Sprintf("AGENTS (%d)", len(m.agents)))}
	if len(m.agents) == 0 {
		return append(lines, "", ui.DimStyle.Render("No agents configured. Create one with: minutes agents create"))
	}

	header := fmt.Sprintf("%-20s %-10s %-18s %-8s %s", "Name", "Provider", "Model", "Status", "Description")
	lines = append(lines, ui.DimStyle.Render(truncateToWidth(header, width)))
	visible := max(1, height-2)
	start := min(m.scroll, max(0, len(m.agents)-visible))
	end := min(len(m.agents), start+visible)
	for _, a := range m.agents[start:end] {
		status := ui.StatusInactiveStyle.Render("Inactive")
		if a.IsActive {
			status = ui.StatusActiveStyle.Render("Active  ")
		}
		row := fmt.Sprintf("%-20s %-10s %-18s ", clip(a.Name, 20), clip(a.Provider, 10), clip(a.ModelLabel(), 18))
		lines = append(lines, truncateToWidth(row+status+" "+a.Description, width))
	}
	return lines
}

func (m Model) renderMessageBar() string {
	switch {
	case m.errorMessage != "":
		return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
	case m.notice != "":
		return ui.NoticeStyle.Render(m.notice)
	}
	return ""
}

func (m Model) renderFooter() string {
	switch m.input {
	case inputPath:
		return footer("Enter", "Select file", "Esc", "Cancel")
	case inputChat:
		return footer("Enter", "Send", "Esc", "Done")
	case inputPassword:
		return footer("Enter", "Next/Submit", "Tab", "Next field", "Esc", "Cancel")
	}

	if m.focus == FocusSidebar {
		return footer("j/k", "Nav", "Enter", "Open", "Tab", "Content", "q", "Quit")
	}

	switch m.view {
	case roles.ViewRecord:
		rec := "Record"
		if m.recording {
			rec = "Stop"
		}
		keys := []string{"Space", rec, "t", "Source", "f", "File", "p", "Process", "l", "Language"}
		if m.role.CanManageAgents() {
			keys = append(keys, "g", "Agent")
		}
		keys = append(keys, "1-3", "Tabs", "i", "Chat", "Tab", "Menu", "q", "Quit")
		return footer(keys...)
	case roles.ViewHistory:
		return footer("j/k", "Nav", "Enter", "Open", "r", "Refresh", "Tab", "Menu", "q", "Quit")
	case roles.ViewAccount:
		return footer("c", "Change password", "L", "Log out", "Tab", "Menu", "q", "Quit")
	case roles.ViewAgents:
		return footer("r", "Refresh", "Tab", "Menu", "q", "Quit")
	}
	return footer("Tab", "Menu", "q", "Quit")
}

// footer renders key/description pairs.
func footer(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, ui.FooterKeyStyle.Render(pairs[i])+ui.FooterDescStyle.Render(" "+pairs[i+1]))
	}
	return strings.Join(parts, "  ")
}

// Helpers

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	// Simple truncation for non-styled strings
	runes := []rune(s)
	if width > 1 && len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func clip(s string, width int) string {
	if len([]rune(s)) <= width {
		return s
	}
	return truncateToWidth(s, width)
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
