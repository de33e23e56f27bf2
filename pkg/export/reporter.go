package export

import "lsexport/pkg/checkpoint"

// Reporter receives progress events from the runner. Implementations drive
// the terminal progress display and the optional TUI.
type Reporter interface {
	EndpointStarted(name string, resumed bool, recordsSoFar int)
	EndpointSkipped(name string, status checkpoint.EndpointStatus)
	PageExported(name string, pages, records int)
	EndpointFinished(name string, status checkpoint.EndpointStatus, records int, err error)
	SessionFinished(report *Report)
}

type nopReporter struct{}

func (nopReporter) EndpointStarted(string, bool, int)                           {}
func (nopReporter) EndpointSkipped(string, checkpoint.EndpointStatus)           {}
func (nopReporter) PageExported(string, int, int)                               {}
func (nopReporter) EndpointFinished(string, checkpoint.EndpointStatus, int, error) {}
func (nopReporter) SessionFinished(*Report)                                     {}
