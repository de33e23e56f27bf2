package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Message types for the TUI

// EndpointStartMsg is sent when an endpoint export starts
type EndpointStartMsg struct {
	Name         string
	Resumed      bool
	RecordsSoFar int
}

// PageMsg is sent after each committed page
type PageMsg struct {
	Name    string
	Pages   int
	Records int
}

// EndpointDoneMsg is sent when an endpoint finishes
type EndpointDoneMsg struct {
	Name    string
	Failed  bool
	Records int
	Error   error
}

// SessionDoneMsg is sent once the whole session is over
type SessionDoneMsg struct {
	Summary string
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tea.Batch(tickCmd(), m.spinner.Tick)

	case EndpointStartMsg:
		m.startEndpoint(msg.Name, msg.Resumed, msg.RecordsSoFar)
		if msg.Resumed {
			m.AddLogMessage("INFO", "Resuming "+msg.Name)
		} else {
			m.AddLogMessage("INFO", "Exporting "+msg.Name)
		}
		return m, nil

	case PageMsg:
		m.updatePage(msg.Name, msg.Pages, msg.Records)
		return m, nil

	case EndpointDoneMsg:
		m.finishEndpoint(msg.Name, msg.Failed, msg.Records, msg.Error)
		if msg.Failed {
			reason := "unknown"
			if msg.Error != nil {
				reason = msg.Error.Error()
			}
			m.AddLogMessage("ERROR", "Failed "+msg.Name+": "+reason)
		} else {
			m.AddLogMessage("SUCCESS", "Completed "+msg.Name)
		}
		return m, nil

	case SessionDoneMsg:
		m.finishSession(msg.Summary)
		m.AddLogMessage("INFO", "Session finished")
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
