// Package fetcher implements the conditional HTTP client used by the
// crawl and backfill lanes: GET with If-None-Match / If-Modified-Since,
// host-tuned read timeouts and a bounded connect-retry policy.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// Result is the outcome of a conditional fetch. On a 304 the body is
// empty, NotModified is set and the prior validators are echoed back.
type Result struct {
	Body         string
	NotModified  bool
	ETag         *string
	LastModified *string
	ContentType  string
	Status       int
	TookMS       int
}

// Client issues conditional GET requests over a shared connection pool.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	headClient   *http.Client
	forceRefresh atomic.Bool
}

// New creates a client. The connect timeout applies at dial time; read
// timeouts are applied per request so they can be host-tuned.
func New(cfg Config) *Client {
	cfg = cfg.WithDefaults()

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
	}

	headDialer := &net.Dialer{Timeout: cfg.HeadConnectTimeout}
	headTransport := &http.Transport{DialContext: headDialer.DialContext}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: transport},
		headClient: &http.Client{Transport: headTransport},
	}
}

// SetForceRefresh toggles the process-wide refresh switch. When set,
// stored validators are discarded so every fetch returns a full body.
func (c *Client) SetForceRefresh(on bool) {
	c.forceRefresh.Store(on)
}

// Fetch issues a conditional GET using the host-tuned read timeout.
func (c *Client) Fetch(ctx context.Context, rawURL string, etag, lastModified *string) (*Result, error) {
	return c.fetch(ctx, rawURL, etag, lastModified, 0)
}

// FetchWithReadTimeout issues a conditional GET with an explicit read
// timeout, overriding the host table. Used by the backfill stage-1 fetch.
func (c *Client) FetchWithReadTimeout(
	ctx context.Context,
	rawURL string,
	etag, lastModified *string,
	readTimeout time.Duration,
) (*Result, error) {
	return c.fetch(ctx, rawURL, etag, lastModified, readTimeout)
}

func (c *Client) fetch(
	ctx context.Context,
	rawURL string,
	etag, lastModified *string,
	readOverride time.Duration,
) (*Result, error) {
	if c.forceRefresh.Load() {
		etag, lastModified = nil, nil
	}

	readTimeout := readOverride
	if readTimeout <= 0 {
		readTimeout = c.cfg.readTimeoutFor(hostOf(rawURL))
	}

	start := time.Now()

	resp, err := c.doWithRetry(ctx, rawURL, etag, lastModified, readTimeout)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	tookMS := int(time.Since(start).Milliseconds())
	ctype := contentTypeOf(resp.Header.Get("Content-Type"))

	if resp.StatusCode == http.StatusNotModified {
		return &Result{
			NotModified:  true,
			ETag:         etag,
			LastModified: lastModified,
			ContentType:  ctype,
			Status:       resp.StatusCode,
			TookMS:       tookMS,
		}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Status: resp.StatusCode, URL: rawURL}
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if readErr != nil {
		return nil, fmt.Errorf("read response body: %w", readErr)
	}

	return &Result{
		Body:         string(body),
		ETag:         headerOr(resp.Header.Get("ETag"), etag),
		LastModified: headerOr(resp.Header.Get("Last-Modified"), lastModified),
		ContentType:  ctype,
		Status:       resp.StatusCode,
		TookMS:       int(time.Since(start).Milliseconds()),
	}, nil
}

// doWithRetry performs the GET with up to MaxConnectRetries additional
// attempts. Retries cover connect-phase failures and the retryable status
// codes; timeouts are never retried so a slow host cannot inflate the run
// deadline (read retries = 0).
func (c *Client) doWithRetry(
	ctx context.Context,
	rawURL string,
	etag, lastModified *string,
	readTimeout time.Duration,
) (*http.Response, error) {
	var lastErr error

	attempts := c.cfg.MaxConnectRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if sleepErr := c.backoff(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
		}

		resp, err := c.doOnce(ctx, rawURL, etag, lastModified, readTimeout)
		if err != nil {
			if IsTimeout(err) || ctx.Err() != nil {
				return nil, err
			}

			lastErr = err

			continue
		}

		if retryableStatus(resp.StatusCode) && attempt < attempts-1 {
			resp.Body.Close()

			lastErr = &HTTPError{Status: resp.StatusCode, URL: rawURL}

			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("fetch %s: %w", rawURL, lastErr)
}

func (c *Client) doOnce(
	ctx context.Context,
	rawURL string,
	etag, lastModified *string,
	readTimeout time.Duration,
) (*http.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, readTimeout)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setHeaders(req)

	if etag != nil {
		req.Header.Set("If-None-Match", *etag)
	}
	if lastModified != nil {
		req.Header.Set("If-Modified-Since", *lastModified)
	}

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		cancel()
		return nil, fmt.Errorf("http fetch: %w", doErr)
	}

	// The body must be readable after return; tie the context cancel to
	// body close so the read timeout still covers the body transfer.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

	return resp, nil
}

// backoff sleeps with exponential growth (factor * 2^(attempt-1) seconds).
func (c *Client) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(c.cfg.BackoffFactor * math.Pow(2, float64(attempt-1)) * float64(time.Second))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", defaultAccept)
	req.Header.Set("Accept-Language", defaultAcceptLanguage)
	req.Header.Set("Connection", "keep-alive")
}

// cancelOnClose releases the request context when the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

func contentTypeOf(header string) string {
	ctype, _, _ := strings.Cut(header, ";")
	return strings.ToLower(strings.TrimSpace(ctype))
}

func headerOr(value string, prior *string) *string {
	if value != "" {
		return &value
	}

	return prior
}

func hostOf(rawURL string) string {
	rest, ok := strings.CutPrefix(rawURL, "https://")
	if !ok {
		rest, _ = strings.CutPrefix(rawURL, "http://")
	}

	host, _, _ := strings.Cut(rest, "/")

	return host
}
