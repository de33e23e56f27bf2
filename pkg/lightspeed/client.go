package lightspeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	errs "lsexport/pkg/errors"
	"lsexport/pkg/logger"
	"lsexport/pkg/ratelimit"
)

// Client fetches pages from the Lightspeed X-Series REST API
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	pageSize   int
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (used by tests)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the derived API base URL (used by tests)
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithLimiter sets the rate limiter applied before each request
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithPageSize sets the requested page size
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient creates an API client for a retailer domain
func NewClient(domain, apiVersion, token string, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    BaseURL(domain, apiVersion),
		token:      token,
		pageSize:   200,
		limiter:    ratelimit.PerSecond(5),
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage fetches one page of an endpoint. The cursor is the opaque token
// returned by the previous call; pass "" for the first page. The returned
// page's Done flag is the end-of-collection sentinel.
func (c *Client) FetchPage(ctx context.Context, endpoint, cursor string) (*Page, error) {
	if !IsValidEndpoint(endpoint) {
		return nil, &errs.Error{
			Type:     errs.ErrorTypeNotFound,
			Message:  "malformed endpoint name",
			Endpoint: endpoint,
		}
	}

	page := 1
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 1 {
			return nil, &errs.Error{
				Type:     errs.ErrorTypeParsing,
				Message:  fmt.Sprintf("malformed cursor %q", cursor),
				Endpoint: endpoint,
				Cursor:   cursor,
			}
		}
		page = n
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := PageURL(c.baseURL, endpoint, page, c.pageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request for %s", endpoint)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.ErrorWithFields("API request failed", map[string]interface{}{
			"endpoint": endpoint,
			"page":     page,
			"error":    err.Error(),
		})
		return nil, &errs.Error{
			Type:     errs.ErrorTypeNetwork,
			Message:  fmt.Sprintf("network error: %v", err),
			Endpoint: endpoint,
			Cursor:   cursor,
			Err:      err,
		}
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("API request completed", map[string]interface{}{
		"endpoint": endpoint,
		"page":     page,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if err := c.checkResponseStatus(resp, endpoint, cursor); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{
			Type:     errs.ErrorTypeNetwork,
			Message:  fmt.Sprintf("failed to read response body: %v", err),
			Code:     resp.StatusCode,
			Endpoint: endpoint,
			Cursor:   cursor,
			Err:      err,
		}
	}

	records, pg, err := parseEnvelope(endpoint, body)
	if err != nil {
		c.logger.ErrorWithFields("failed to parse API response", map[string]interface{}{
			"endpoint": endpoint,
			"page":     page,
			"error":    err.Error(),
		})
		return nil, err
	}

	return c.buildPage(endpoint, page, records, pg), nil
}

// buildPage decides whether the collection is exhausted and what the next
// cursor is. End of data: empty page, a short page, or the pagination
// envelope saying we are on the last page.
func (c *Client) buildPage(endpoint string, page int, records []Record, pg *pagination) *Page {
	result := &Page{Records: records}

	done := false
	switch {
	case len(records) == 0:
		done = true
	case pg != nil:
		done = pg.Page >= pg.Pages
	default:
		done = len(records) < c.pageSize
	}

	if done {
		// A page that comes back exactly page_size long with no reported
		// follow-up has historically meant a server-side result cap, not a
		// true end of data. Surface it so the operator can audit the count.
		if pg == nil && len(records) == c.pageSize {
			c.logger.WarnWithFields("final page exactly at page_size, server may have capped results", map[string]interface{}{
				"endpoint":  endpoint,
				"page":      page,
				"page_size": c.pageSize,
			})
		}
		result.Done = true
		return result
	}

	result.NextCursor = strconv.Itoa(page + 1)
	return result
}

func (c *Client) checkResponseStatus(resp *http.Response, endpoint, cursor string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	e := &errs.Error{
		Type:     errs.TypeForStatusCode(resp.StatusCode),
		Code:     resp.StatusCode,
		Endpoint: endpoint,
		Cursor:   cursor,
	}

	switch e.Type {
	case errs.ErrorTypeAuth:
		e.Message = "authentication failed, check domain and token"
	case errs.ErrorTypeNotFound:
		e.Message = "endpoint not found"
	case errs.ErrorTypeRateLimit:
		e.Message = "rate limit exceeded"
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	case errs.ErrorTypeServerError:
		e.Message = "server error"
	default:
		e.Message = fmt.Sprintf("unexpected status code %d", resp.StatusCode)
	}

	c.logger.WarnWithFields("API returned error status", map[string]interface{}{
		"endpoint": endpoint,
		"status":   resp.StatusCode,
		"type":     string(e.Type),
	})
	return e
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
