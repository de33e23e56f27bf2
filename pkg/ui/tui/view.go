package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderBanner())

	leftColumn := m.renderLeftColumn()
	rightColumn := m.renderRightColumn()

	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftColumn,
		"  ",
		rightColumn,
	)
	sections = append(sections, mainContent)

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to quit"))
	}

	return baseStyle.Width(m.width).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderBanner() string {
	banner := `LIGHTSPEED EXPORT`
	return bannerStyle.Width(m.width).Render(banner)
}

func (m *Model) renderLeftColumn() string {
	width := (m.width - 4) / 2

	var sections []string
	sections = append(sections, m.renderStatsPanel(width))
	sections = append(sections, m.renderQueuePanel(width))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderRightColumn() string {
	width := (m.width - 4) / 2

	var sections []string
	sections = append(sections, m.renderCurrentPanel(width))
	sections = append(sections, m.renderLogsPanel(width))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderStatsPanel renders the session statistics panel
func (m *Model) renderStatsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" SESSION ")

	elapsed := time.Since(m.sessionStartTime)
	done := m.doneCount()
	total := len(m.endpointOrder)

	stats := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(formatDuration(elapsed))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Endpoints:"), statsValueStyle.Render(fmt.Sprintf("%d/%d", done, total))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Records:"), statsValueStyle.Render(fmt.Sprintf("%d", m.totalRecords))),
	}
	if m.failedEndpoints > 0 {
		stats = append(stats, fmt.Sprintf("%s %s", statsLabelStyle.Render("Failed:"),
			errorStyle.Render(fmt.Sprintf("%d", m.failedEndpoints))))
	}

	var ratio float64
	if total > 0 {
		ratio = float64(done) / float64(total)
	}
	bar := m.overall.ViewAs(ratio)
	stats = append(stats, "", bar)

	if m.finished {
		stats = append(stats, "", successStyle.Render("Done. Press q to exit."))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, stats...)
	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderCurrentPanel renders the in-flight endpoint
func (m *Model) renderCurrentPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" CURRENT ENDPOINT ")

	if m.current == "" {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("Idle")
		return panelStyle.Width(width).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, content),
		)
	}

	item := m.endpoints[m.current]
	lines := []string{
		fmt.Sprintf("%s %s", m.spinner.View(), queueItemActiveStyle.Render(item.Name)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Pages:"), statsValueStyle.Render(fmt.Sprintf("%d", item.Pages))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Records:"), statsValueStyle.Render(fmt.Sprintf("%d", item.Records))),
	}
	if item.Resumed {
		lines = append(lines, warningStyle.Render("resumed from checkpoint"))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderQueuePanel renders the endpoint queue
func (m *Model) renderQueuePanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" ENDPOINTS ")

	var items []string
	for _, name := range m.endpointOrder {
		item := m.endpoints[name]
		switch item.State {
		case EndpointActive:
			items = append(items, queueItemActiveStyle.Render("→ "+name))
		case EndpointCompleted:
			items = append(items, queueItemDoneStyle.Render(fmt.Sprintf("✓ %s (%d)", name, item.Records)))
		case EndpointFailed:
			items = append(items, errorStyle.Render("✗ "+name))
		default:
			items = append(items, queueItemStyle.Render("• "+name))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left, items...)
	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" LOG ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	for i := start; i < len(m.logMessages); i++ {
		entry := m.logMessages[i]
		timestamp := logTimestampStyle.Render(entry.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(entry.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", entry.Level))
		message := entry.Message

		maxMsgLen := width - 25
		if maxMsgLen > 3 && len(message) > maxMsgLen {
			message = message[:maxMsgLen-3] + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(message)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  Navigation:
    q/Q      - Quit the dashboard
    ?        - Toggle this help
    ctrl+l   - Clear the log panel

  Status indicators:
    ` + queueItemActiveStyle.Render("→ active") + `
    ` + successStyle.Render("✓ completed") + `
    ` + errorStyle.Render("✗ failed") + `
`
	return panelStyle.Width(m.width).Render(help)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}
