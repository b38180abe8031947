package feed

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Ingestor polls feed sources and yields the entries inside the freshness window.
type Ingestor struct {
	httpClient *http.Client
	parser     *Parser
	filterer   *Filterer
	userAgent  string
	window     time.Duration
}

func NewIngestor(httpClient *http.Client, parser *Parser, filterer *Filterer, userAgent string, window time.Duration) *Ingestor {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Ingestor{
		httpClient: httpClient,
		parser:     parser,
		filterer:   filterer,
		userAgent:  userAgent,
		window:     window,
	}
}

// FetchEligibleArticles processes sources in the given order. A source that
// cannot be fetched or parsed is logged and skipped.
func (in *Ingestor) FetchEligibleArticles(ctx context.Context, sources []*Config, reference time.Time) ([]Article, Stats) {
	stats := Stats{Sources: len(sources)}
	var articles []Article

	slog.Info("Fetching articles from feeds", "sources", len(sources), "reference", reference.UTC().Format(time.RFC3339))

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			slog.Warn("Ingestion interrupted", "error", err)
			break
		}

		found, err := in.fetchSource(ctx, source, reference, &stats)
		if err != nil {
			stats.FailedSources++
			slog.Error("Failed to fetch feed", "source", source.SourceName(), "url", source.URL, "error", err)
			continue
		}

		slog.Info("Feed processed", "source", source.SourceName(), "recent", len(found))
		articles = append(articles, found...)
	}

	stats.Eligible = len(articles)
	slog.Info("Ingestion completed",
		"articles", stats.Eligible,
		"entries", stats.Entries,
		"stale", stats.Stale,
		"undated", stats.Undated,
		"malformed", stats.Malformed,
		"filtered", stats.Filtered,
		"failed_sources", stats.FailedSources)

	return articles, stats
}

func (in *Ingestor) fetchSource(ctx context.Context, source *Config, reference time.Time, stats *Stats) ([]Article, error) {
	data, err := in.fetchFeed(ctx, source)
	if err != nil {
		return nil, err
	}

	_, entries, err := in.parser.Run(data)
	if err != nil {
		return nil, err
	}

	stats.Entries += len(entries)

	if source.Settings.MaxItems > 0 && len(entries) > source.Settings.MaxItems {
		entries = entries[:source.Settings.MaxItems]
	}

	entries = in.filterer.Run(entries, source)

	var articles []Article
	for _, entry := range entries {
		published, ok := ParseInstant(cmp.Or(entry.Published, entry.Updated))
		if !ok {
			stats.Undated++
			continue
		}

		if !IsRecent(published, reference, in.window) {
			stats.Stale++
			continue
		}

		if entry.IsFiltered {
			stats.Filtered++
			slog.Debug("Entry filtered", "source", source.SourceName(), "title", entry.Title, "reason", entry.FilterReason)
			continue
		}

		if entry.Link == "" {
			stats.Malformed++
			slog.Warn("Entry without link dropped", "source", source.SourceName(), "title", entry.Title)
			continue
		}

		articles = append(articles, Article{
			Title:     cmp.Or(entry.Title, DefaultTitle),
			URL:       entry.Link,
			Summary:   entry.Summary,
			Author:    cmp.Or(entry.Author, DefaultAuthor),
			Source:    source.SourceName(),
			Published: published,
		})
	}

	return articles, nil
}

func (in *Ingestor) fetchFeed(ctx context.Context, source *Config) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, source.Settings.GetTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", in.userAgent)

	resp, err := in.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
