// Package browser renders pages that build their content with JavaScript
// in a shared headless Chrome instance.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrClosed is returned by Render after Close.
var ErrClosed = errors.New("browser: renderer closed")

// Config controls the browser process.
type Config struct {
	UserAgent string
	// Timeout bounds one Render call, navigation included.
	Timeout time.Duration
	// Settle is how long to wait after the document is ready for scripts
	// to fill in the page.
	Settle    time.Duration
	NoSandbox bool
}

// Renderer starts Chrome on first use and opens one tab per Render call.
// It is safe for concurrent use.
type Renderer struct {
	cfg Config

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	closed        bool
}

// New creates a Renderer. No browser is started until the first Render.
func New(cfg Config) *Renderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}
	return &Renderer{cfg: cfg}
}

func (r *Renderer) browser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if r.browserCtx != nil {
		return r.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", r.cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(r.cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// The first Run launches the process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	slog.Info("started headless browser")
	r.browserCtx, r.browserCancel, r.allocCancel = browserCtx, browserCancel, allocCancel
	return browserCtx, nil
}

// Render loads url in a new tab and returns the document's outer HTML once
// the body is ready and the settle delay has passed.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	browserCtx, err := r.browser()
	if err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.cfg.Timeout)
	defer cancelTimeout()

	// Tabs hang off the browser context, so the caller's cancellation is
	// forwarded by hand.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html string
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.cfg.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	if html == "" {
		return "", fmt.Errorf("render %s: empty document", url)
	}
	return html, nil
}

// Close stops the browser if it was started. Render fails afterwards.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.browserCancel != nil {
		r.browserCancel()
		r.allocCancel()
		r.browserCtx = nil
	}
}
