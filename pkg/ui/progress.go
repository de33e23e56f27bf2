package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"lsexport/pkg/checkpoint"
	"lsexport/pkg/export"
)

// ProgressDisplay provides a clean, minimal progress display for export runs.
// It implements export.Reporter.
type ProgressDisplay struct {
	mu             sync.Mutex
	totalEndpoints int
	doneEndpoints  int
	current        string
	currentPages   int
	currentRecords int
	totalRecords   int
	errors         int
	startTime      time.Time
	quiet          bool
}

// NewProgressDisplay creates a progress display for the given endpoint count
func NewProgressDisplay(totalEndpoints int, quiet bool) *ProgressDisplay {
	return &ProgressDisplay{
		totalEndpoints: totalEndpoints,
		startTime:      time.Now(),
		quiet:          quiet,
	}
}

// EndpointStarted marks the start of an endpoint export
func (p *ProgressDisplay) EndpointStarted(name string, resumed bool, recordsSoFar int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = name
	p.currentPages = 0
	p.currentRecords = recordsSoFar

	if p.quiet {
		return
	}
	if resumed {
		fmt.Printf("\n%s %s %s\n", Magenta("→"), name, Dim(fmt.Sprintf("(resuming at %d records)", recordsSoFar)))
	} else {
		fmt.Printf("\n%s %s\n", Magenta("→"), name)
	}
	p.printProgress()
}

// EndpointSkipped reports an endpoint left untouched from an earlier run
func (p *ProgressDisplay) EndpointSkipped(name string, status checkpoint.EndpointStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.doneEndpoints++
	if p.quiet {
		return
	}
	switch status {
	case checkpoint.EndpointCompleted:
		fmt.Printf("\n%s %s %s\n", Green("✓"), name, Dim("(already exported)"))
	default:
		fmt.Printf("\n%s %s %s\n", Yellow("⚠"), name, Dim("(failed earlier, skipping)"))
	}
}

// PageExported updates the running counters after a committed page
func (p *ProgressDisplay) PageExported(name string, pages, records int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.currentPages = pages
	p.currentRecords = records
	if !p.quiet {
		p.printProgress()
	}
}

// EndpointFinished prints the outcome of one endpoint
func (p *ProgressDisplay) EndpointFinished(name string, status checkpoint.EndpointStatus, records int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.doneEndpoints++
	p.totalRecords += records
	p.current = ""

	if status == checkpoint.EndpointFailed {
		p.errors++
		if !p.quiet {
			fmt.Printf("\r%s\r%s %s - %v\n", strings.Repeat(" ", 120), Red("✗"), name, err)
		}
		return
	}
	if !p.quiet {
		fmt.Printf("\r%s\r%s %s • %d records\n", strings.Repeat(" ", 120), Green("✓"), name, records)
	}
}

// SessionFinished prints the final summary
func (p *ProgressDisplay) SessionFinished(report *export.Report) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.quiet {
		return
	}
	fmt.Println()
	if report.Success() {
		PrintSuccess(report.Render())
	} else {
		fmt.Print(report.Render())
	}
}

// printProgress prints the single-line progress indicator
func (p *ProgressDisplay) printProgress() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if elapsed.Seconds() > 0 {
		rate = float64(p.totalRecords+p.currentRecords) / elapsed.Minutes()
	}

	barWidth := 20
	progress := float64(p.doneEndpoints) / float64(p.totalEndpoints)
	filled := int(progress * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("\r[%s] %d/%d endpoints • %s: page %d, %d records • %.0f rec/min",
		bar,
		p.doneEndpoints,
		p.totalEndpoints,
		Cyan(p.current),
		p.currentPages,
		p.currentRecords,
		rate,
	)
	if p.errors > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d failed", p.errors)))
	}

	fmt.Printf("\r%s%s", strings.Repeat(" ", 120), line)
}
