package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/beacon/internal/locate"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	loc := m.snapshot.Location

	parts := []string{bg.Render("beacon", styles.Logo)}

	badge := phaseLabel(loc.Phase)
	if loc.Loading {
		badge = m.spinner.View() + " " + badge
	}
	parts = append(parts, styles.PhaseStyle(loc.Phase).Render(badge))

	if loc.RetryCount > 0 {
		parts = append(parts,
			bg.Render("Retry:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d/%d", loc.RetryCount, loc.MaxRetries), styles.WarningText))
	}

	if m.snapshot.IsStruggling() {
		parts = append(parts,
			bg.Render("!", styles.WarningText.Bold(true))+bg.Space()+
				bg.Render(fmt.Sprintf("%d failed cycles", m.snapshot.ConsecutiveFailures), styles.WarningText))
	}

	if ts := formatTimestamp(loc.UpdatedAt, m.now()); ts != "" && m.snapshot.HasSnapshot {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if m.statusMsg != "" {
		parts = append(parts, bg.Render(truncate(m.statusMsg, 60), styles.WarningText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Padding(0, 1).
		Width(m.width).
		Render(bg.Join(parts, "  "))
}

func phaseLabel(p locate.Phase) string {
	switch p {
	case locate.PhasePending:
		return "LOCATING"
	case locate.PhaseFound:
		return "FOUND"
	case locate.PhaseFailed:
		return "FAILED"
	default:
		return "IDLE"
	}
}

// formatTimestamp formats the last update time with a relative indicator.
func formatTimestamp(at, now time.Time) string {
	if at.IsZero() {
		return ""
	}
	since := now.Sub(at)
	out := at.Format("15:04:05")
	switch {
	case since < time.Minute:
		out += " (now)"
	case since < time.Hour:
		out += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		out += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return out
}

// renderBanner renders the error line shown while the controller reports
// an error. It returns "" when there is nothing to show.
func (m Model) renderBanner() string {
	msg := strings.TrimSpace(m.snapshot.Location.Error)
	if msg == "" {
		return ""
	}
	styles := m.theme.Styles()
	return styles.Banner.Width(m.width).Render(truncate(msg, m.width-2))
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	colon := bg.Sep(":")

	bindings := m.keys.ShortHelp()
	segments := make([]string, 0, len(bindings)+1)
	for _, b := range bindings {
		h := b.Help()
		desc := h.Desc
		if b.Help().Key == m.keys.ToggleLogs.Help().Key && m.showLogs {
			desc = "Hide logs"
		}
		segments = append(segments, bg.Render(h.Key, styles.AccentText)+colon+bg.Render(desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(bg.Join(segments, "  "))
}
