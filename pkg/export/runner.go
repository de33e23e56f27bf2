package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lsexport/pkg/checkpoint"
	errs "lsexport/pkg/errors"
	"lsexport/pkg/jsonl"
	"lsexport/pkg/lightspeed"
	"lsexport/pkg/logger"
	"lsexport/pkg/retry"
)

// Fetcher abstracts the page-fetch side of the API client
type Fetcher interface {
	FetchPage(ctx context.Context, endpoint, cursor string) (*lightspeed.Page, error)
}

// Options tunes the session manager
type Options struct {
	// MaxAttempts bounds retries of a single page fetch
	MaxAttempts int
	// Backoff strategy between retries of the same page
	Backoff retry.BackoffStrategy
	// AnomalyThreshold is the number of consecutive non-progressing pages
	// tolerated before the endpoint is aborted as a pagination anomaly
	AnomalyThreshold int
	// IsOptional marks endpoints whose absence on the remote account is
	// reported but not treated as an export failure
	IsOptional func(endpoint string) bool
}

func (o *Options) withDefaults() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 4
	}
	if out.Backoff == nil {
		out.Backoff = retry.DefaultExponentialBackoff()
	}
	if out.AnomalyThreshold <= 0 {
		out.AnomalyThreshold = 3
	}
	if out.IsOptional == nil {
		out.IsOptional = lightspeed.IsOptional
	}
	return out
}

// Runner drives one export session across its ordered endpoint list.
// Endpoints are processed one at a time, pages one at a time; the commit
// order per page is append-then-checkpoint, and cancellation is observed
// only at page boundaries so the on-disk state always supports a safe resume.
type Runner struct {
	fetcher  Fetcher
	store    *checkpoint.Store
	writer   *jsonl.Writer
	session  *checkpoint.Session
	opts     Options
	reporter Reporter
	logger   logger.Logger
}

// NewRunner creates a session runner
func NewRunner(fetcher Fetcher, store *checkpoint.Store, writer *jsonl.Writer, session *checkpoint.Session, opts *Options) *Runner {
	return &Runner{
		fetcher:  fetcher,
		store:    store,
		writer:   writer,
		session:  session,
		opts:     opts.withDefaults(),
		reporter: nopReporter{},
		logger:   logger.GetLogger(),
	}
}

// SetReporter attaches a progress reporter
func (r *Runner) SetReporter(rep Reporter) {
	if rep != nil {
		r.reporter = rep
	}
}

// Run processes every incomplete endpoint in order. It returns an error only
// when the session itself cannot continue (checkpoint or output persistence
// failure); per-endpoint failures are isolated and summarized in the Report.
// On cancellation the in-flight page triple is completed and the session is
// left in progress, safe to resume.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	for _, ep := range r.session.Endpoints {
		if ctx.Err() != nil {
			break
		}

		switch ep.Status {
		case checkpoint.EndpointCompleted:
			r.logger.InfoWithFields("skipping completed endpoint", map[string]interface{}{
				"endpoint": ep.Name,
				"records":  ep.RecordsWritten,
			})
			r.reporter.EndpointSkipped(ep.Name, ep.Status)
			continue
		case checkpoint.EndpointFailed:
			// A previously failed endpoint stays failed; it is flagged for
			// manual review rather than silently retried on resume.
			r.reporter.EndpointSkipped(ep.Name, ep.Status)
			continue
		}

		err := r.exportEndpoint(ctx, ep)
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		// Persistence failures make further checkpointing meaningless;
		// abort the whole session rather than continue without durability.
		if errs.IsStoreIO(err) {
			return r.buildReport(start), err
		}
		// Endpoint failure was recorded in the checkpoint; continue with
		// the next endpoint.
	}

	if ctx.Err() != nil {
		r.logger.Info("export interrupted, progress saved for resume")
		report := r.buildReport(start)
		report.Interrupted = true
		r.reporter.SessionFinished(report)
		return report, nil
	}

	if err := r.store.MarkSessionComplete(r.session); err != nil {
		return r.buildReport(start), err
	}

	report := r.buildReport(start)
	r.reporter.SessionFinished(report)
	return report, nil
}

// exportEndpoint runs the fetch/append/checkpoint loop for one endpoint
func (r *Runner) exportEndpoint(ctx context.Context, ep *checkpoint.EndpointProgress) error {
	resumed := ep.Status == checkpoint.EndpointInProgress

	// The commit order is append-then-checkpoint, so a crash between the two
	// can leave the last page on disk but not in the checkpoint. When
	// resuming, collect the identities already written and drop duplicates
	// from the first refetched page.
	var seen map[string]struct{}
	if resumed {
		ids, err := r.writer.RecordIDs(ep.Name)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeStoreIO, err, "failed to reconcile output for %s", ep.Name)
		}
		seen = ids
		r.logger.InfoWithFields("resuming endpoint", map[string]interface{}{
			"endpoint": ep.Name,
			"cursor":   ep.Cursor,
			"records":  ep.RecordsWritten,
		})
	}

	r.reporter.EndpointStarted(ep.Name, resumed, ep.RecordsWritten)

	cursor := ep.Cursor
	stalled := 0

	for {
		// Cancellation is only observed here, at the page boundary
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := r.fetchWithRetry(ctx, ep.Name, cursor)
		if err != nil {
			return r.failEndpoint(ep, cursor, err)
		}

		// The dedupe set only applies to the first page actually written
		// after a resume; drop it once a page has been committed. Dropped
		// duplicates are already on disk from the append the interrupted run
		// never checkpointed, so the checkpoint still credits the full page:
		// records_written must equal the record count of the output file.
		records := page.Records
		if len(seen) > 0 {
			records = dropSeen(records, seen)
			if dropped := len(page.Records) - len(records); dropped > 0 {
				r.logger.InfoWithFields("dropped duplicate records from refetched page", map[string]interface{}{
					"endpoint": ep.Name,
					"dropped":  dropped,
				})
			}
		}

		// Repeating cursor means the remote pagination is not progressing.
		// Do not append the repeated page; abort after the configured number
		// of consecutive stalls.
		if !page.Done && page.NextCursor == cursor {
			stalled++
			r.logger.WarnWithFields("pagination made no forward progress", map[string]interface{}{
				"endpoint": ep.Name,
				"cursor":   cursor,
				"stalled":  stalled,
			})
			if stalled >= r.opts.AnomalyThreshold {
				anomaly := &errs.Error{
					Type:     errs.ErrorTypePagination,
					Message:  fmt.Sprintf("cursor %q repeated %d times", cursor, stalled),
					Endpoint: ep.Name,
					Cursor:   cursor,
				}
				return r.failEndpoint(ep, cursor, anomaly)
			}
			continue
		}
		stalled = 0

		if len(records) > 0 {
			if _, err := r.writer.Append(ep.Name, records); err != nil {
				return errs.Wrap(errs.ErrorTypeStoreIO, err, "failed to append page for %s", ep.Name)
			}
		}
		seen = nil

		if page.Done {
			if err := r.store.RecordPage(r.session, ep.Name, cursor, len(page.Records)); err != nil {
				return err
			}
			if err := r.store.MarkEndpointComplete(r.session, ep.Name); err != nil {
				return err
			}
			r.reporter.EndpointFinished(ep.Name, checkpoint.EndpointCompleted, ep.RecordsWritten, nil)
			return nil
		}

		if err := r.store.RecordPage(r.session, ep.Name, page.NextCursor, len(page.Records)); err != nil {
			return err
		}
		cursor = page.NextCursor
		r.reporter.PageExported(ep.Name, ep.Pages, ep.RecordsWritten)
	}
}

// fetchWithRetry retries a single page with bounded exponential backoff.
// Fatal errors and exhausted retries bubble up to fail the endpoint.
func (r *Runner) fetchWithRetry(ctx context.Context, endpoint, cursor string) (*lightspeed.Page, error) {
	cfg := &retry.Config{
		MaxAttempts: r.opts.MaxAttempts,
		Backoff:     r.opts.Backoff,
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      r.logger,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			r.logger.WarnWithFields("retrying page fetch", map[string]interface{}{
				"endpoint": endpoint,
				"cursor":   cursor,
				"attempt":  attempt,
				"delay_ms": delay.Milliseconds(),
				"error":    err.Error(),
			})
		},
	}

	return retry.DoWithResult(func() (*lightspeed.Page, error) {
		return r.fetcher.FetchPage(ctx, endpoint, cursor)
	}, cfg)
}

// failEndpoint records the failure in the checkpoint and reports it.
// The returned error is the original failure so the caller can classify it.
func (r *Runner) failEndpoint(ep *checkpoint.EndpointProgress, cursor string, cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}

	r.logger.ErrorWithFields("endpoint failed", map[string]interface{}{
		"endpoint": ep.Name,
		"cursor":   cursor,
		"type":     string(errs.TypeOf(cause)),
		"error":    cause.Error(),
	})

	if err := r.store.MarkEndpointFailed(r.session, ep.Name, cause.Error(), string(errs.TypeOf(cause))); err != nil {
		return err
	}
	r.reporter.EndpointFinished(ep.Name, checkpoint.EndpointFailed, ep.RecordsWritten, cause)
	return cause
}

func (r *Runner) buildReport(start time.Time) *Report {
	report := &Report{
		SessionID:    r.session.ID,
		SessionDir:   r.store.Dir(),
		TotalRecords: r.session.TotalRecords(),
		Duration:     time.Since(start),
	}

	for _, ep := range r.session.Endpoints {
		switch ep.Status {
		case checkpoint.EndpointCompleted:
			report.Completed = append(report.Completed, ep.Name)
		case checkpoint.EndpointFailed:
			if r.opts.IsOptional(ep.Name) && errs.ErrorType(ep.FailureType) == errs.ErrorTypeNotFound {
				report.Unavailable = append(report.Unavailable, ep.Name)
			} else {
				report.Failed = append(report.Failed, EndpointFailure{Name: ep.Name, Reason: ep.Failure})
			}
		}
	}
	return report
}

// dropSeen filters out records whose identity was already written
func dropSeen(records []lightspeed.Record, seen map[string]struct{}) []lightspeed.Record {
	out := records[:0:0]
	for _, record := range records {
		if _, ok := seen[record.Identity()]; ok {
			continue
		}
		out = append(out, record)
	}
	return out
}
