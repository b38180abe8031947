package store

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/newsletter-digest/app/feed"
	"github.com/lysyi3m/newsletter-digest/app/retry"
	"github.com/lysyi3m/newsletter-digest/app/textnorm"
)

const (
	// embeddingPrefixLength is how much scraped content feeds the embedding.
	embeddingPrefixLength = 5000
	// enumerateLimit bounds how many ids one clear pass can see.
	enumerateLimit = 10000
	listingProbe   = 0.1
)

// Embedder returns nil when no embedding could be produced.
type Embedder interface {
	Embed(ctx context.Context, content string) []float32
}

type WriterConfig struct {
	Dimension       int
	DeleteBatchSize int
	DeletePause     time.Duration
	VerifyDelay     time.Duration
}

func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Dimension:       DefaultDimension,
		DeleteBatchSize: 100,
		DeletePause:     time.Second,
		VerifyDelay:     time.Second,
	}
}

// Input is everything the writer needs to persist one article.
type Input struct {
	Article   feed.Article
	Content   string
	ImageURL  string
	AISummary string
}

type Writer struct {
	store    VectorStore
	embedder Embedder
	config   WriterConfig
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewWriter(store VectorStore, embedder Embedder, config WriterConfig) *Writer {
	if config.Dimension <= 0 {
		config.Dimension = DefaultDimension
	}
	if config.DeleteBatchSize <= 0 {
		config.DeleteBatchSize = 100
	}
	return &Writer{
		store:    store,
		embedder: embedder,
		config:   config,
		now:      time.Now,
		sleep:    retry.SleepContext,
	}
}

// UpsertArticle embeds, stores and reads back one article. A nil embedding
// yields ErrEmbedding and a record absent on read-back yields ErrVerification.
func (w *Writer) UpsertArticle(ctx context.Context, in Input) error {
	id := Identifier(in.Article.URL)

	vector := w.embedder.Embed(ctx, textnorm.Truncate(in.Content, embeddingPrefixLength))
	if vector == nil {
		return fmt.Errorf("%s: %w", in.Article.URL, ErrEmbedding)
	}

	record := Record{
		ID:       id,
		Values:   vector,
		Metadata: w.buildMetadata(in),
	}

	if err := w.store.Upsert(ctx, []Record{record}); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", id, err)
	}

	if err := w.sleep(ctx, w.config.VerifyDelay); err != nil {
		return err
	}

	found, err := w.store.Fetch(ctx, []string{id})
	if err != nil {
		return fmt.Errorf("failed to read back %s: %w", id, err)
	}

	stored, ok := found[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrVerification)
	}

	slog.Info("Article stored", "id", id, "title", textnorm.Truncate(in.Article.Title, 50), "url", stored.Metadata.URL)
	return nil
}

func (w *Writer) buildMetadata(in Input) Metadata {
	a := in.Article

	image := ""
	if in.ImageURL != "" {
		image = textnorm.SanitizeURL(in.ImageURL, MaxImageLength)
	}

	return Metadata{
		Title:           textnorm.SanitizeMetadata(a.Title, MaxTitleLength),
		URL:             textnorm.SanitizeURL(a.URL, MaxURLLength),
		OriginalSummary: textnorm.SanitizeMetadata(a.Summary, MaxOriginalSummaryLength),
		AISummary:       textnorm.SanitizeMetadata(cmp.Or(in.AISummary, a.Summary), MaxAISummaryLength),
		Author:          textnorm.SanitizeMetadata(a.Author, MaxAuthorLength),
		Source:          textnorm.SanitizeMetadata(a.Source, MaxSourceLength),
		Published:       a.PublishedISO(),
		Content:         textnorm.SanitizeMetadata(in.Content, MaxContentLength),
		Image:           image,
		ProcessedAt:     w.now().UTC().Format(time.RFC3339),
	}
}

// ClearAll deletes every record in batches, pausing between batches. It
// returns how many records were deleted.
func (w *Writer) ClearAll(ctx context.Context) (int, error) {
	matches, err := w.store.Query(ctx, make([]float32, w.config.Dimension), enumerateLimit, false)
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate records: %w", err)
	}

	if len(matches) == 0 {
		slog.Info("No existing articles found to delete")
		return 0, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}

	size := w.config.DeleteBatchSize
	batches := (len(ids) + size - 1) / size
	limiter := rate.NewLimiter(rate.Every(w.config.DeletePause), 1)

	slog.Info("Clearing old articles", "count", len(ids), "batches", batches)

	deleted := 0
	for start := 0; start < len(ids); start += size {
		if err := limiter.Wait(ctx); err != nil {
			return deleted, err
		}

		end := min(start+size, len(ids))
		if err := w.store.Delete(ctx, ids[start:end]); err != nil {
			return deleted, fmt.Errorf("failed to delete batch %d/%d: %w", start/size+1, batches, err)
		}
		deleted += end - start

		slog.Debug("Deleted batch", "batch", start/size+1, "batches", batches)
	}

	slog.Info("Cleared old articles", "count", deleted)
	return deleted, nil
}

// Recent lists up to limit stored records using a fixed probe vector. The
// ranking carries no meaning beyond being stable.
func (w *Writer) Recent(ctx context.Context, limit int) ([]Metadata, error) {
	probe := make([]float32, w.config.Dimension)
	for i := range probe {
		probe[i] = listingProbe
	}

	matches, err := w.store.Query(ctx, probe, limit, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	out := make([]Metadata, 0, len(matches))
	for _, m := range matches {
		if m.Metadata != nil {
			out = append(out, *m.Metadata)
		}
	}
	return out, nil
}

// Stats returns the index statistics.
func (w *Writer) Stats(ctx context.Context) (IndexStats, error) {
	return w.store.DescribeStats(ctx)
}

// Verify logs the index statistics and a sample of stored records.
func (w *Writer) Verify(ctx context.Context, limit int) (IndexStats, error) {
	stats, err := w.store.DescribeStats(ctx)
	if err != nil {
		return IndexStats{}, fmt.Errorf("failed to describe index: %w", err)
	}

	slog.Info("Index stats", "dimension", stats.Dimension, "records", stats.TotalVectorCount)
	if stats.TotalVectorCount == 0 {
		slog.Warn("No records found in index")
		return stats, nil
	}

	sample, err := w.Recent(ctx, min(limit, stats.TotalVectorCount))
	if err != nil {
		return stats, err
	}

	for i, m := range sample {
		slog.Info("Stored article",
			"n", i+1,
			"title", textnorm.Truncate(m.Title, 80),
			"author", m.Author,
			"source", m.Source,
			"published", m.Published,
			"url", m.URL,
			"ai_summary", textnorm.Truncate(m.AISummary, 100))
	}

	return stats, nil
}
