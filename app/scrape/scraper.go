package scrape

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	nurl "net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/newsletter-digest/app/textnorm"
)

type state int

const (
	stateTryRendered state = iota
	stateTryRenderedRetry
	stateTryFallback
	stateDone
)

type Scraper struct {
	rendered RenderedFetcher
	plain    PlainFetcher
	opts     Options
}

// NewScraper builds a scraper. rendered may be nil, in which case every
// scrape goes straight to the plain HTTP fallback.
func NewScraper(rendered RenderedFetcher, plain PlainFetcher, opts Options) *Scraper {
	defaults := DefaultOptions()
	if opts.MinContentLength <= 0 {
		opts.MinContentLength = defaults.MinContentLength
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = defaults.MaxContentLength
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.Concurrency
	}
	if opts.FirstRender.PageTimeout <= 0 {
		opts.FirstRender = defaults.FirstRender
	}
	if opts.RetryRender.PageTimeout <= 0 {
		opts.RetryRender = defaults.RetryRender
	}

	return &Scraper{
		rendered: rendered,
		plain:    plain,
		opts:     opts,
	}
}

// Scrape tries a rendered fetch, one slower rendered retry, then a plain
// fetch. It never returns an error: a URL nothing could extract from yields
// a Result with StrategyNone and empty fields.
func (s *Scraper) Scrape(ctx context.Context, url string) Result {
	st := stateTryRendered
	if s.rendered == nil {
		st = stateTryFallback
	}

	result := Result{URL: url, Strategy: StrategyNone}

	for st != stateDone {
		var err error

		switch st {
		case stateTryRendered:
			result, err = s.tryRendered(ctx, url, s.opts.FirstRender)
			if err == nil {
				st = stateDone
				continue
			}
			slog.Warn("Rendered fetch failed, retrying", "url", url, "error", err)
			st = stateTryRenderedRetry

		case stateTryRenderedRetry:
			result, err = s.tryRendered(ctx, url, s.opts.RetryRender)
			if err == nil {
				st = stateDone
				continue
			}
			slog.Warn("Rendered retry failed, falling back to plain fetch", "url", url, "error", err)
			st = stateTryFallback

		case stateTryFallback:
			result, err = s.tryFallback(ctx, url)
			if err != nil {
				slog.Warn("Fallback fetch failed", "url", url, "error", err)
				result = Result{URL: url, Strategy: StrategyNone}
			}
			st = stateDone
		}
	}

	if result.OK() {
		slog.Info("Article scraped", "url", url, "strategy", string(result.Strategy), "length", utf8.RuneCountInString(result.Content), "image", result.ImageURL != "")
	} else {
		slog.Warn("No meaningful content found", "url", url)
	}

	return result
}

// ScrapeBatch scrapes urls with at most Options.Concurrency in flight.
// results[i] always belongs to urls[i].
func (s *Scraper) ScrapeBatch(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)

	for i, url := range urls {
		g.Go(func() error {
			results[i] = s.Scrape(ctx, url)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Scraper) tryRendered(ctx context.Context, url string, opts RenderOptions) (Result, error) {
	page, err := s.rendered.Render(ctx, url, opts)
	if err != nil {
		return Result{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse rendered page: %w", err)
	}

	image := extractImage(doc, cmp.Or(page.URL, url))
	StripNonContent(doc)
	content := extractMainText(doc)

	if !s.viable(content) {
		if readable := readerText(page.HTML, cmp.Or(page.URL, url)); s.viable(readable) {
			content = readable
		}
	}

	return s.finish(url, content, image, StrategyRendered)
}

func (s *Scraper) tryFallback(ctx context.Context, url string) (Result, error) {
	if s.plain == nil {
		return Result{}, fmt.Errorf("no plain fetcher configured")
	}

	page, err := s.plain.Get(ctx, url)
	if err != nil {
		return Result{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse page: %w", err)
	}

	image := extractImage(doc, cmp.Or(page.URL, url))
	StripNonContent(doc)

	return s.finish(url, extractMainText(doc), image, StrategyFallback)
}

func (s *Scraper) finish(url, content, image string, strategy Strategy) (Result, error) {
	if !s.viable(content) {
		return Result{}, fmt.Errorf("%w: %d < %d", ErrSubThreshold, utf8.RuneCountInString(content), s.opts.MinContentLength)
	}

	return Result{
		URL:      url,
		Content:  textnorm.Truncate(content, s.opts.MaxContentLength),
		ImageURL: image,
		Strategy: strategy,
	}, nil
}

func (s *Scraper) viable(content string) bool {
	return utf8.RuneCountInString(content) >= s.opts.MinContentLength
}

// readerText runs reader-mode extraction over a rendered page.
func readerText(markup, pageURL string) string {
	parsed, err := nurl.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(markup), parsed)
	if err != nil {
		slog.Debug("Reader-mode extraction failed", "url", pageURL, "error", err)
		return ""
	}

	return normalizeWhitespace(article.TextContent)
}
