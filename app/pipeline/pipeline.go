// Package pipeline runs one digest pass: clear the store, ingest fresh
// articles, then scrape, summarize and store each article in feed order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lysyi3m/newsletter-digest/app/feed"
	"github.com/lysyi3m/newsletter-digest/app/scrape"
	"github.com/lysyi3m/newsletter-digest/app/store"
	"github.com/lysyi3m/newsletter-digest/app/textnorm"
)

var (
	ErrStoreUnavailable = errors.New("vector store unavailable")
	ErrAlreadyRunning   = errors.New("pipeline run already in progress")
)

type SourceProvider interface {
	GetEnabledConfigs() []*feed.Config
}

type ArticleSource interface {
	FetchEligibleArticles(ctx context.Context, sources []*feed.Config, reference time.Time) ([]feed.Article, feed.Stats)
}

type Scraper interface {
	Scrape(ctx context.Context, url string) scrape.Result
}

type Summarizer interface {
	Summarize(ctx context.Context, content string) string
}

type Store interface {
	Stats(ctx context.Context) (store.IndexStats, error)
	ClearAll(ctx context.Context) (int, error)
	UpsertArticle(ctx context.Context, in store.Input) error
	Verify(ctx context.Context, limit int) (store.IndexStats, error)
}

type Config struct {
	ArticlePause time.Duration
	VerifySample int
}

func DefaultConfig() Config {
	return Config{
		ArticlePause: 2 * time.Second,
		VerifySample: 5,
	}
}

type Report struct {
	RunID     string
	Started   time.Time
	Duration  time.Duration
	Cleared   int
	ClearErr  error
	Found     int
	Processed int
	Failed    int
	Ingest    feed.Stats
}

// SuccessRate is the share of attempted articles that were stored, in percent.
func (r Report) SuccessRate() float64 {
	total := r.Processed + r.Failed
	if total == 0 {
		return 0
	}
	return float64(r.Processed) / float64(total) * 100
}

type Pipeline struct {
	sources    SourceProvider
	ingestor   ArticleSource
	scraper    Scraper
	summarizer Summarizer
	store      Store
	config     Config
	now        func() time.Time
	running    atomic.Bool
	last       atomic.Pointer[Report]
}

func New(sources SourceProvider, ingestor ArticleSource, scraper Scraper, summarizer Summarizer, st Store, config Config) *Pipeline {
	return &Pipeline{
		sources:    sources,
		ingestor:   ingestor,
		scraper:    scraper,
		summarizer: summarizer,
		store:      st,
		config:     config,
		now:        time.Now,
	}
}

// Run performs one full pass. Only an unreachable store aborts the run. A
// failed clear is logged and kept in the report, and per-article failures
// are counted.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Report{}, ErrAlreadyRunning
	}
	defer p.running.Store(false)

	report := Report{RunID: uuid.NewString(), Started: p.now()}
	log := slog.With("run_id", report.RunID)

	log.Info("Starting digest run", "reference", report.Started.UTC().Format(time.RFC3339))

	stats, err := p.store.Stats(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	log.Info("Store reachable", "dimension", stats.Dimension, "records", stats.TotalVectorCount)

	cleared, err := p.store.ClearAll(ctx)
	report.Cleared = cleared
	if err != nil {
		report.ClearErr = fmt.Errorf("failed to clear store: %w", err)
		log.Warn("Continuing without a full clear", "cleared", cleared, "error", err)
	}

	articles, ingest := p.ingestor.FetchEligibleArticles(ctx, p.sources.GetEnabledConfigs(), report.Started)
	report.Ingest = ingest
	report.Found = len(articles)

	if len(articles) == 0 {
		log.Warn("No recent articles found")
		p.finish(&report)
		return report, nil
	}

	log.Info("Processing articles", "count", len(articles))

	pacer := rate.NewLimiter(rate.Every(p.config.ArticlePause), 1)
	for i, article := range articles {
		if err := pacer.Wait(ctx); err != nil {
			log.Warn("Run interrupted", "processed", report.Processed, "failed", report.Failed, "error", err)
			break
		}

		if err := p.processArticle(ctx, article); err != nil {
			report.Failed++
			log.Error("Article failed", "n", i+1, "of", len(articles), "title", textnorm.Truncate(article.Title, 50), "error", err)
			continue
		}

		report.Processed++
		log.Info("Article processed", "n", i+1, "of", len(articles), "title", textnorm.Truncate(article.Title, 50))
	}

	p.finish(&report)

	if _, err := p.store.Verify(ctx, p.config.VerifySample); err != nil {
		log.Warn("Failed to verify stored data", "error", err)
	}

	return report, nil
}

// LastReport returns the report of the most recent completed run.
func (p *Pipeline) LastReport() (Report, bool) {
	r := p.last.Load()
	if r == nil {
		return Report{}, false
	}
	return *r, true
}

// Running reports whether a run is in progress.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

func (p *Pipeline) processArticle(ctx context.Context, article feed.Article) error {
	slog.Debug("Processing article",
		"title", article.Title,
		"source", article.Source,
		"published", article.PublishedISO(),
		"url", article.URL)

	result := p.scraper.Scrape(ctx, article.URL)
	if !result.OK() {
		return fmt.Errorf("no content scraped: %w", scrape.ErrSubThreshold)
	}

	summary := p.summarizer.Summarize(ctx, result.Content)

	return p.store.UpsertArticle(ctx, store.Input{
		Article:   article,
		Content:   result.Content,
		ImageURL:  result.ImageURL,
		AISummary: summary,
	})
}

func (p *Pipeline) finish(report *Report) {
	report.Duration = p.now().Sub(report.Started)
	snapshot := *report
	p.last.Store(&snapshot)

	slog.Info("Digest run completed",
		"run_id", report.RunID,
		"found", report.Found,
		"processed", report.Processed,
		"failed", report.Failed,
		"success_rate", fmt.Sprintf("%.1f%%", report.SuccessRate()),
		"duration", report.Duration)
}
