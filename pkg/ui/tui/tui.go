package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"lsexport/pkg/checkpoint"
	"lsexport/pkg/export"
)

// TUI represents the terminal dashboard
type TUI struct {
	program *tea.Program
	model   *Model
}

// New creates a dashboard for the given endpoint list
func New(endpoints []string) *TUI {
	model := NewModel(endpoints)
	program := tea.NewProgram(model, tea.WithAltScreen())

	return &TUI{
		program: program,
		model:   model,
	}
}

// Start runs the dashboard. It blocks until the user quits.
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the dashboard gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the dashboard
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Reporter returns a progress reporter that feeds this dashboard
func (t *TUI) Reporter() export.Reporter {
	return &tuiReporter{tui: t}
}

// tuiReporter adapts export progress events into dashboard messages
type tuiReporter struct {
	tui *TUI
}

func (r *tuiReporter) EndpointStarted(name string, resumed bool, recordsSoFar int) {
	r.tui.Send(EndpointStartMsg{Name: name, Resumed: resumed, RecordsSoFar: recordsSoFar})
}

func (r *tuiReporter) EndpointSkipped(name string, status checkpoint.EndpointStatus) {
	r.tui.Send(EndpointDoneMsg{Name: name, Failed: status == checkpoint.EndpointFailed})
	r.tui.Send(LogMsg{Level: "INFO", Message: "Skipped " + name + " (" + string(status) + ")"})
}

func (r *tuiReporter) PageExported(name string, pages, records int) {
	r.tui.Send(PageMsg{Name: name, Pages: pages, Records: records})
}

func (r *tuiReporter) EndpointFinished(name string, status checkpoint.EndpointStatus, records int, err error) {
	r.tui.Send(EndpointDoneMsg{
		Name:    name,
		Failed:  status == checkpoint.EndpointFailed,
		Records: records,
		Error:   err,
	})
}

func (r *tuiReporter) SessionFinished(report *export.Report) {
	r.tui.Send(SessionDoneMsg{Summary: report.Render()})
}
