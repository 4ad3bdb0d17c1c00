// Package psx implements the fetch client for the Pakistan Stock Exchange
// data portal: monthly price history, the symbol listing and company
// announcement pages.
package psx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

const (
	defaultBaseURL   = "https://dps.psx.com.pk"
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 10
	userAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	dateFormat       = "2006-01-02"
)

// Client talks to the PSX data portal. It is safe for concurrent use.
type Client struct {
	client    *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	renderer  Renderer
}

// Renderer returns the HTML of a page after its scripts have run.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

var (
	_ scraper.PriceFetcher   = (*Client)(nil)
	_ scraper.ListingFetcher = (*Client)(nil)
)

// New creates a Client with the given options applied.
func New(opts ...Option) *Client {
	c := &Client{
		client:    &http.Client{Timeout: defaultTimeout},
		baseURL:   defaultBaseURL,
		userAgent: userAgent,
		limiter:   rate.NewLimiter(rate.Limit(defaultRateLimit), defaultRateLimit),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Option configures a Client.
type Option func(*Client)

// WithClient sets the HTTP client.
func WithClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithBaseURL overrides the portal root, e.g. for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRateLimit caps outgoing requests per second across all goroutines.
// A non-positive value disables limiting.
func WithRateLimit(rps int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
}

// WithRenderer sets the renderer used for pages whose tables are built by
// scripts, currently the Financial Reports tab. Without one those pages are
// fetched as plain HTML.
func WithRenderer(r Renderer) Option {
	return func(c *Client) { c.renderer = r }
}

// do sends req and returns the body of a 2xx response. Non-2xx statuses are
// reported as *scraper.FetchError with StatusCode set. The caller closes the
// body.
func (c *Client) do(req *http.Request) (io.ReadCloser, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, &scraper.FetchError{URL: req.URL.String(), Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return nil, &scraper.FetchError{URL: req.URL.String(), Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		_ = res.Body.Close()
		return nil, &scraper.FetchError{
			URL:        req.URL.String(),
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", res.Status),
		}
	}
	return res.Body, nil
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &scraper.FetchError{URL: url, Err: err}
	}
	return c.do(req)
}

// attribute fills in the unit that produced err.
func attribute(err error, symbol string, r scraper.DateRange) error {
	fe, ok := err.(*scraper.FetchError)
	if !ok {
		return &scraper.FetchError{Symbol: symbol, Range: r, Err: err}
	}
	fe.Symbol = symbol
	fe.Range = r
	return fe
}
