package export

import (
	"fmt"
	"strings"
	"time"
)

// EndpointFailure records why an endpoint ended in failure
type EndpointFailure struct {
	Name   string
	Reason string
}

// Report summarizes the outcome of a session run
type Report struct {
	SessionID  string
	SessionDir string
	Completed  []string
	Failed     []EndpointFailure
	// Unavailable lists optional endpoints the account does not expose
	Unavailable  []string
	Interrupted  bool
	TotalRecords int
	Duration     time.Duration
}

// Success reports whether the run finished with every required endpoint
// completed
func (r *Report) Success() bool {
	return !r.Interrupted && len(r.Failed) == 0
}

// Render returns a human-readable summary for the operator
func (r *Report) Render() string {
	var sb strings.Builder

	if r.Interrupted {
		fmt.Fprintf(&sb, "Export paused after %s. Resume anytime by re-running the export.\n", r.Duration.Round(time.Second))
	} else {
		fmt.Fprintf(&sb, "Export finished in %s.\n", r.Duration.Round(time.Second))
	}
	fmt.Fprintf(&sb, "Session %s: %d records across %d endpoints.\n", r.SessionID, r.TotalRecords, len(r.Completed))
	fmt.Fprintf(&sb, "Output: %s\n", r.SessionDir)

	if len(r.Unavailable) > 0 {
		fmt.Fprintf(&sb, "Not available on this account: %s\n", strings.Join(r.Unavailable, ", "))
	}
	if len(r.Failed) > 0 {
		sb.WriteString("Failed endpoints:\n")
		for _, f := range r.Failed {
			fmt.Fprintf(&sb, "  - %s: %s\n", f.Name, f.Reason)
		}
	}
	return sb.String()
}
