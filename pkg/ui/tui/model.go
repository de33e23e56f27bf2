// Package tui provides a full-screen terminal dashboard for export runs,
// built on bubbletea. It is driven by the same progress events as the plain
// line-based display.
package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EndpointState represents the export state of one endpoint
type EndpointState int

const (
	EndpointPending EndpointState = iota
	EndpointActive
	EndpointCompleted
	EndpointFailed
)

// EndpointItem tracks one endpoint's progress through the session
type EndpointItem struct {
	Name      string
	State     EndpointState
	Pages     int
	Records   int
	Resumed   bool
	StartTime time.Time
	Error     error
}

// Model represents the TUI model
type Model struct {
	spinner spinner.Model
	overall progress.Model

	endpoints     map[string]*EndpointItem
	endpointOrder []string
	current       string

	totalRecords     int
	failedEndpoints  int
	sessionStartTime time.Time
	finished         bool
	summary          string

	width       int
	height      int
	showHelp    bool
	logMessages []LogMessage
	maxLogLines int

	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a TUI model for the given endpoint list
func NewModel(endpoints []string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentCyan)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	m := &Model{
		spinner:          s,
		overall:          p,
		endpoints:        make(map[string]*EndpointItem, len(endpoints)),
		sessionStartTime: time.Now(),
		maxLogLines:      50,
	}
	for _, name := range endpoints {
		m.endpoints[name] = &EndpointItem{Name: name, State: EndpointPending}
		m.endpointOrder = append(m.endpointOrder, name)
	}
	return m
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m *Model) startEndpoint(name string, resumed bool, recordsSoFar int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.endpoints[name]
	if !ok {
		item = &EndpointItem{Name: name}
		m.endpoints[name] = item
		m.endpointOrder = append(m.endpointOrder, name)
	}
	item.State = EndpointActive
	item.Resumed = resumed
	item.Records = recordsSoFar
	item.StartTime = time.Now()
	m.current = name
}

func (m *Model) updatePage(name string, pages, records int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.endpoints[name]; ok {
		item.Pages = pages
		item.Records = records
	}
}

func (m *Model) finishEndpoint(name string, failed bool, records int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.endpoints[name]
	if !ok {
		return
	}
	item.Records = records
	item.Error = err
	if failed {
		item.State = EndpointFailed
		m.failedEndpoints++
	} else {
		item.State = EndpointCompleted
		m.totalRecords += records
	}
	if m.current == name {
		m.current = ""
	}
}

func (m *Model) finishSession(summary string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.finished = true
	m.summary = summary
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = accentRed
	case "WARN":
		color = accentOrange
	case "SUCCESS":
		color = accentGreen
	case "INFO":
		color = accentCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})
	if len(m.logMessages) > m.maxLogLines {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogLines:]
	}
}

func (m *Model) countByState(state EndpointState) int {
	n := 0
	for _, item := range m.endpoints {
		if item.State == state {
			n++
		}
	}
	return n
}

func (m *Model) doneCount() int {
	n := 0
	for _, item := range m.endpoints {
		if item.State == EndpointCompleted || item.State == EndpointFailed {
			n++
		}
	}
	return n
}
