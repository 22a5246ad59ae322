package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/beacon/internal/logtail"
)

const logTailLines = 200

type logLinesMsg []string

type logErrorMsg struct{ err error }

func readLogsCmd(path string) tea.Cmd {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, logTailLines)
		if err != nil {
			return logErrorMsg{err: err}
		}
		return logLinesMsg(logtail.FormatLines(lines))
	}
}

// logPaneHeight is the height of the log box including its border.
func (m Model) logPaneHeight() int {
	if !m.showLogs {
		return 0
	}
	h := m.height / 3
	if h < 5 {
		h = 5
	}
	return h
}

func (m *Model) resizeLogViewport() {
	w := m.width - 2
	h := m.logPaneHeight() - 2
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(w, h)
	}
	m.logViewport.Width = w
	m.logViewport.Height = h
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
}

func (m *Model) setLogLines(lines []string) {
	m.logLines = lines
	if len(lines) == 0 {
		m.logViewport.SetContent(m.theme.Styles().FaintText.Render("No log output yet"))
		return
	}
	m.logViewport.SetContent(strings.Join(lines, "\n"))
	m.logViewport.GotoBottom()
}

// renderLogs renders the bordered log pane.
func (m Model) renderLogs() string {
	title := m.theme.Styles().AccentText.Bold(true).Render(" Logs ")
	if m.logPath != "" {
		title += m.theme.Styles().FaintText.Render(truncateMiddle(m.logPath, m.width/2))
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.BorderFocus)).
		Width(m.width - 2)
	return title + "\n" + box.Render(m.logViewport.View())
}
