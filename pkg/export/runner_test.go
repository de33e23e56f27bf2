package export

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lsexport/pkg/checkpoint"
	errs "lsexport/pkg/errors"
	"lsexport/pkg/jsonl"
	"lsexport/pkg/lightspeed"
	"lsexport/pkg/logger"
	"lsexport/pkg/retry"
)

func init() {
	logger.SetLogger(logger.NewTestLogger())
}

// fetcherFunc adapts a function to the Fetcher interface
type fetcherFunc func(ctx context.Context, endpoint, cursor string) (*lightspeed.Page, error)

func (f fetcherFunc) FetchPage(ctx context.Context, endpoint, cursor string) (*lightspeed.Page, error) {
	return f(ctx, endpoint, cursor)
}

// countingFetcher tracks fetch calls per endpoint/cursor pair
type countingFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	inner fetcherFunc
}

func newCountingFetcher(inner fetcherFunc) *countingFetcher {
	return &countingFetcher{calls: make(map[string]int), inner: inner}
}

func (c *countingFetcher) FetchPage(ctx context.Context, endpoint, cursor string) (*lightspeed.Page, error) {
	c.mu.Lock()
	c.calls[endpoint+"/"+cursor]++
	c.mu.Unlock()
	return c.inner(ctx, endpoint, cursor)
}

func (c *countingFetcher) count(endpoint, cursor string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[endpoint+"/"+cursor]
}

func records(ids ...string) []lightspeed.Record {
	out := make([]lightspeed.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, lightspeed.Record{"id": id, "name": "item " + id})
	}
	return out
}

// newTestSession wires a store, session and writer in a temp directory
func newTestSession(t *testing.T, endpoints ...string) (*checkpoint.Store, *checkpoint.Session, *jsonl.Writer) {
	t.Helper()
	dir := t.TempDir()
	store := checkpoint.NewStore(dir)
	session, err := store.Create("test_session", endpoints)
	require.NoError(t, err)
	writer, err := jsonl.NewWriter(dir)
	require.NoError(t, err)
	t.Cleanup(func() { writer.Close() })
	return store, session, writer
}

func fastOptions() *Options {
	return &Options{
		MaxAttempts:      3,
		Backoff:          &retry.ConstantBackoff{Delay: time.Millisecond},
		AnomalyThreshold: 3,
	}
}

// twoPageFetcher serves two pages then the end sentinel for any endpoint
func twoPageFetcher() fetcherFunc {
	return func(ctx context.Context, endpoint, cursor string) (*lightspeed.Page, error) {
		switch cursor {
		case "":
			return &lightspeed.Page{Records: records(endpoint+"-1", endpoint+"-2"), NextCursor: "2"}, nil
		case "2":
			return &lightspeed.Page{Records: records(endpoint + "-3"), Done: true}, nil
		}
		return nil, fmt.Errorf("unexpected cursor %q", cursor)
	}
}

func TestRunExportsAllEndpoints(t *testing.T) {
	store, session, writer := newTestSession(t, "outlets", "products")
	runner := NewRunner(twoPageFetcher(), store, writer, session, fastOptions())

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success())
	assert.Equal(t, []string{"outlets", "products"}, report.Completed)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 6, report.TotalRecords)

	// Checkpoint reflects the finished run
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, checkpoint.SessionCompleted, loaded.Status)
	for _, ep := range loaded.Endpoints {
		assert.Equal(t, checkpoint.EndpointCompleted, ep.Status)
		assert.Equal(t, 3, ep.RecordsWritten)
	}

	// Output files hold every record exactly once
	for _, name := range []string{"outlets", "products"} {
		count, err := writer.CountRecords(name)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	}
}

func TestRunSkipsCompletedEndpoints(t *testing.T) {
	store, session, writer := newTestSession(t, "outlets", "products")

	// First run completes everything
	first := newCountingFetcher(twoPageFetcher())
	_, err := NewRunner(first, store, writer, session, fastOptions()).Run(context.Background())
	require.NoError(t, err)

	// Force the session back in progress so a re-run is allowed
	session.Status = checkpoint.SessionInProgress
	require.NoError(t, store.Save(session))

	second := newCountingFetcher(twoPageFetcher())
	report, err := NewRunner(second, store, writer, session, fastOptions()).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success())
	assert.Empty(t, second.calls, "completed endpoints must not be fetched again")

	// No duplicate records appended
	count, err := writer.CountRecords("outlets")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRunIsolatesEndpointFailures(t *testing.T) {
	store, session, writer := newTestSession(t, "outlets", "products")

	fetcher := fetcherFunc(func(ctx context.Context, endpoint, cursor string) (*lightspeed.Page, error) {
		if endpoint == "outlets" {
			return nil, &errs.Error{Type: errs.ErrorTypeAuth, Message: "authentication failed", Code: 401}
		}
		return &lightspeed.Page{Records: records("p-1"), Done: true}, nil
	})

	report, err := NewRunner(fetcher, store, writer, session, fastOptions()).Run(context.Background())
	require.NoError(t, err, "per-endpoint failures must not abort the session")

	assert.False(t, report.Success())
	assert.Equal(t, []string{"products"}, report.Completed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "outlets", report.Failed[0].Name)
	assert.Contains(t, report.Failed[0].Reason, "authentication failed")

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, checkpoint.EndpointFailed, loaded.Endpoint("outlets").Status)
	assert.Equal(t, string(errs.ErrorTypeAuth), loaded.Endpoint("outlets").FailureType)
	assert.Equal(t, checkpoint.EndpointCompleted, loaded.Endpoint("products").Status)
}

func TestRunRetriesTransientErrors(t *testing.T) {
	store, session, writer := newTestSession(t, "outlets")

	var mu sync.Mutex
	failures := 2
	fetcher := newCountingFetcher(func(ctx context.Context, endpoint, cursor string) (*lightspeed.Page, error) {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return nil, &errs.Error{Type: errs.ErrorTypeServerError, Message: "server error", Code: 503}
		}
		return &lightspeed.Page{Records: records("o-1"), Done: true}, nil
	})

	report, err := NewRunner(fetcher, store, writer, session, fastOptions()).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success())
	assert.Equal(t, 3, fetcher.count("outlets", ""), "two failures then one success")
}

func TestRunFatalErrorsAreNotRetried(t *testing.T) {
	store, session, writer := newTestSession(t, "outlets")

	fetcher := newCountingFetcher(func(ctx context.Context, endpoint, cursor string) (*lightspeed.Page, error) {
		return nil, &errs.Error{Type: errs.ErrorTypeAuth, Message: "authentication failed", Code: 401}
	})

	report, err := NewRunner(fetcher, store, writer, session, fastOptions()).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Success())
	assert.Equal(t, 1, fetcher.count("outlets", ""), "fatal errors must fail fast")
}

func TestRunExhaustedRetriesFailEndpoint(t *testing.T) {
	store, session, writer := newTestSession(t, "outlets")

	fetcher := newCountingFetcher(func(ctx context.Context, endpoint, cursor string) (*lightspeed.Page, error) {
		return nil, &errs.Error{Type: errs.ErrorTypeNetwork, Message: "connection reset"}
	})

	opts := fastOptions()
	opts.MaxAttempts = 2
	report, err := NewRunner(fetcher, store, writer, session, opts).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Success())
	assert.Equal(t, 2, fetcher.count("outlets", ""))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, checkpoint.EndpointFailed, loaded.Endpoint("outlets").Status)
}

func TestRunDetectsPaginationAnomaly(t *testing.T) {
	store, session, writer := newTestSession(t, "outlets")

	// Page 2 keeps pointing at itself
	fetcher := fetcherFunc(func(ctx context.Context, endpoint, cursor string) (*lightspeed.Page, error) {
		switch cursor {
		case "":
			return &lightspeed.Page{Records: records("o-1"), NextCursor: "2"}, nil
		default:
			return &lightspeed.Page{Records: records("o-1"), NextCursor: cursor}, nil
		}
	})

	report, err := NewRunner(fetcher, store, writer, session, fastOptions()).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Success())
	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed[0].Reason, "repeated")

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, string(errs.ErrorTypePagination), loaded.Endpoint("outlets").FailureType)

	// Stalled pages are never appended: only page 1's record is on disk
	count, err := writer.CountRecords("outlets")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunInterruptLeavesResumableState(t *testing.T) {
	store, session, writer := newTestSession(t, "outlets")

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := fetcherFunc(func(_ context.Context, endpoint, cursor string) (*lightspeed.Page, error) {
		switch cursor {
		case "":
			return &lightspeed.Page{Records: records("o-1", "o-2"), NextCursor: "2"}, nil
		default:
			// Interrupt after the first page committed
			cancel()
			return &lightspeed.Page{Records: records("o-3"), NextCursor: "3"}, nil
		}
	})

	report, err := NewRunner(fetcher, store, writer, session, fastOptions()).Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Interrupted)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, checkpoint.SessionInProgress, loaded.Status)

	ep := loaded.Endpoint("outlets")
	assert.Equal(t, checkpoint.EndpointInProgress, ep.Status)
	assert.NotEmpty(t, ep.Cursor)

	// Every committed page is on disk
	count, err := writer.CountRecords("outlets")
	require.NoError(t, err)
	assert.Equal(t, ep.RecordsWritten, count)
}

func TestRunResumeDropsRefetchedDuplicates(t *testing.T) {
	dir := t.TempDir()
	store := checkpoint.NewStore(dir)
	session, err := store.Create("test_session", []string{"outlets"})
	require.NoError(t, err)
	writer, err := jsonl.NewWriter(dir)
	require.NoError(t, err)
	defer writer.Close()

	// Simulate a crash between append and checkpoint: page 2's records are on
	// disk but the checkpoint cursor still points at page 2.
	_, err = writer.Append("outlets", records("o-1", "o-2"))
	require.NoError(t, err)
	require.NoError(t, store.RecordPage(session, "outlets", "2", 2))
	_, err = writer.Append("outlets", records("o-3", "o-4"))
	require.NoError(t, err)

	session, err = store.Load()
	require.NoError(t, err)

	// The resume refetches page 2 (same records) and then finishes
	fetcher := fetcherFunc(func(ctx context.Context, endpoint, cursor string) (*lightspeed.Page, error) {
		switch cursor {
		case "2":
			return &lightspeed.Page{Records: records("o-3", "o-4"), NextCursor: "3"}, nil
		case "3":
			return &lightspeed.Page{Records: records("o-5"), Done: true}, nil
		}
		return nil, fmt.Errorf("unexpected cursor %q", cursor)
	})

	report, err := NewRunner(fetcher, store, writer, session, fastOptions()).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Success())

	// o-3 and o-4 appear exactly once despite the refetch
	ids, err := writer.RecordIDs("outlets")
	require.NoError(t, err)
	assert.Len(t, ids, 5)

	count, err := writer.CountRecords("outlets")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	// The dropped duplicates were on disk before the resume; the checkpoint
	// still credits them, so the completed endpoint's file holds exactly
	// records_written records.
	loaded, err := store.Load()
	require.NoError(t, err)
	ep := loaded.Endpoint("outlets")
	assert.Equal(t, checkpoint.EndpointCompleted, ep.Status)
	assert.Equal(t, count, ep.RecordsWritten, "checkpoint count must match the records on disk")
}

func TestRunOptionalEndpointNotFoundIsSoftFailure(t *testing.T) {
	store, session, writer := newTestSession(t, "outlets", "gift_cards")

	fetcher := fetcherFunc(func(ctx context.Context, endpoint, cursor string) (*lightspeed.Page, error) {
		if endpoint == "gift_cards" {
			return nil, &errs.Error{Type: errs.ErrorTypeNotFound, Message: "endpoint not found", Code: 404}
		}
		return &lightspeed.Page{Records: records("o-1"), Done: true}, nil
	})

	report, err := NewRunner(fetcher, store, writer, session, fastOptions()).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success(), "a missing optional endpoint is not a failure")
	assert.Equal(t, []string{"gift_cards"}, report.Unavailable)
	assert.Empty(t, report.Failed)
}

func TestRunFailedEndpointStaysFailedOnResume(t *testing.T) {
	store, session, writer := newTestSession(t, "outlets", "products")

	require.NoError(t, store.MarkEndpointFailed(session, "outlets", "server error", string(errs.ErrorTypeServerError)))

	fetcher := newCountingFetcher(func(ctx context.Context, endpoint, cursor string) (*lightspeed.Page, error) {
		return &lightspeed.Page{Records: records(endpoint + "-1"), Done: true}, nil
	})

	report, err := NewRunner(fetcher, store, writer, session, fastOptions()).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, fetcher.count("outlets", ""), "failed endpoints are not silently retried")
	assert.Equal(t, []string{"products"}, report.Completed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "outlets", report.Failed[0].Name)
}
