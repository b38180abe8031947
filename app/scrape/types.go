// Package scrape fetches article pages and extracts their main text and a
// representative image.
package scrape

import (
	"context"
	"errors"
	"time"
)

// DesktopUserAgent is sent by both fetch strategies.
const DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var ErrSubThreshold = errors.New("extracted content below minimum length")

type Strategy string

const (
	StrategyRendered Strategy = "rendered"
	StrategyFallback Strategy = "fallback"
	StrategyNone     Strategy = "none"
)

// Result is the outcome of scraping one URL. Content is either empty or at
// least the configured minimum length.
type Result struct {
	URL      string
	Content  string
	ImageURL string
	Strategy Strategy
}

func (r Result) OK() bool {
	return r.Strategy != StrategyNone
}

// Page is a fetched document.
type Page struct {
	URL  string
	HTML string
}

type RenderOptions struct {
	PageTimeout     time.Duration
	Settle          time.Duration
	WaitNetworkIdle bool
}

type RenderedFetcher interface {
	Render(ctx context.Context, url string, opts RenderOptions) (Page, error)
}

type PlainFetcher interface {
	Get(ctx context.Context, url string) (Page, error)
}

type Options struct {
	MinContentLength int
	MaxContentLength int
	Concurrency      int
	FirstRender      RenderOptions
	RetryRender      RenderOptions
}

func DefaultOptions() Options {
	return Options{
		MinContentLength: 100,
		MaxContentLength: 15000,
		Concurrency:      3,
		FirstRender:      RenderOptions{PageTimeout: 30 * time.Second, Settle: 2 * time.Second},
		RetryRender:      RenderOptions{PageTimeout: 45 * time.Second, Settle: 3 * time.Second, WaitNetworkIdle: true},
	}
}
