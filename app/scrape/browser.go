package scrape

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders pages in one headless Chrome, started on the first
// Render. Each Render opens its own tab in that browser, so concurrent calls
// are safe.
type BrowserFetcher struct {
	allocCtx context.Context
	cancel   context.CancelFunc

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

func NewBrowserFetcher(userAgent string, extra ...chromedp.ExecAllocatorOption) *BrowserFetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(userAgent),
	)
	opts = append(opts, extra...)

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &BrowserFetcher{
		allocCtx: allocCtx,
		cancel:   cancel,
	}
}

// browser returns the shared browser context, launching Chrome if it is not
// running. A failed launch is retried on the next call.
func (b *BrowserFetcher) browser() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil && b.browserCtx.Err() == nil {
		return b.browserCtx, nil
	}

	browserCtx, cancel := chromedp.NewContext(b.allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	b.browserCtx, b.cancelBrowser = browserCtx, cancel
	return browserCtx, nil
}

func (b *BrowserFetcher) Render(ctx context.Context, url string, opts RenderOptions) (Page, error) {
	browserCtx, err := b.browser()
	if err != nil {
		return Page{}, err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, opts.PageTimeout)
	defer cancelTimeout()

	var (
		html      string
		finalURL  string
		navigated atomic.Bool
		idleOnce  sync.Once
		idle      = make(chan struct{})
	)

	actions := chromedp.Tasks{}

	if opts.WaitNetworkIdle {
		chromedp.ListenTarget(tabCtx, func(ev interface{}) {
			if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" && navigated.Load() {
				idleOnce.Do(func() { close(idle) })
			}
		})
		actions = append(actions, page.SetLifecycleEventsEnabled(true))
	}

	actions = append(actions,
		chromedp.ActionFunc(func(context.Context) error {
			navigated.Store(true)
			return nil
		}),
		chromedp.Navigate(url),
	)

	if opts.WaitNetworkIdle {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			select {
			case <-idle:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}))
	} else {
		actions = append(actions, chromedp.WaitReady("body", chromedp.ByQuery))
	}

	actions = append(actions,
		chromedp.Sleep(opts.Settle),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedp.Run(tabCtx, actions); err != nil {
		return Page{}, fmt.Errorf("failed to render page: %w", err)
	}

	return Page{URL: finalURL, HTML: html}, nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() {
	b.mu.Lock()
	if b.cancelBrowser != nil {
		b.cancelBrowser()
	}
	b.mu.Unlock()
	b.cancel()
}
