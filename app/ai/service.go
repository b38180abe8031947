package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/lysyi3m/newsletter-digest/app/cache"
	"github.com/lysyi3m/newsletter-digest/app/retry"
	"github.com/lysyi3m/newsletter-digest/app/textnorm"
)

type ServiceConfig struct {
	EmbeddingInputLimit int
	SummaryInputLimit   int
	MinSummaryLength    int
	MaxAttempts         int
	BackoffUnit         time.Duration
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		EmbeddingInputLimit: 10000,
		SummaryInputLimit:   12000,
		MinSummaryLength:    50,
		MaxAttempts:         retry.DefaultMaxAttempts,
		BackoffUnit:         time.Second,
	}
}

// Service applies input caps, retries and summary cleanup on top of the
// raw providers. Its methods report exhaustion through terminal values
// instead of errors.
type Service struct {
	embedder   Embedder
	summarizer Summarizer
	config     ServiceConfig
	sleep      func(ctx context.Context, d time.Duration) error
	cache      SummaryCache
	cacheTTL   time.Duration
}

// SummaryCache stores summaries keyed by their input.
type SummaryCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// WithCache reuses summaries of identical input for ttl. Cache errors are
// logged and otherwise ignored.
func (s *Service) WithCache(c SummaryCache, ttl time.Duration) *Service {
	s.cache = c
	s.cacheTTL = ttl
	return s
}

func NewService(embedder Embedder, summarizer Summarizer, config ServiceConfig) *Service {
	return &Service{
		embedder:   embedder,
		summarizer: summarizer,
		config:     config,
		sleep:      retry.SleepContext,
	}
}

// Embed returns the embedding of content, or nil when every attempt failed.
func (s *Service) Embed(ctx context.Context, content string) []float32 {
	input := textnorm.Truncate(content, s.config.EmbeddingInputLimit)

	vector, err := retry.Do(ctx, retry.Policy[[]float32]{
		Name:        "embed",
		MaxAttempts: s.config.MaxAttempts,
		Backoff:     retry.Exponential(s.config.BackoffUnit),
		Sleep:       s.sleep,
	}, func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, input)
	})
	if err != nil {
		slog.Error("Failed to generate embedding", "length", utf8.RuneCountInString(input), "error", err)
		return nil
	}

	slog.Debug("Embedding generated", "dimension", len(vector))
	return vector
}

// Summarize returns a cleaned, speech-ready summary of content, or
// SummaryUnavailable when every attempt failed or came back too short.
func (s *Service) Summarize(ctx context.Context, content string) string {
	input := textnorm.Truncate(content, s.config.SummaryInputLimit)

	key := cache.Key("summary", input)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("Summary cache lookup failed", "error", err)
		} else if ok {
			slog.Debug("Summary cache hit", "key", key)
			return cached
		}
	}

	summary, err := retry.Do(ctx, retry.Policy[string]{
		Name:        "summarize",
		MaxAttempts: s.config.MaxAttempts,
		Backoff:     retry.Exponential(s.config.BackoffUnit),
		Sleep:       s.sleep,
		Accept: func(summary string) error {
			if n := utf8.RuneCountInString(summary); n < s.config.MinSummaryLength {
				return fmt.Errorf("summary too short: %d characters", n)
			}
			return nil
		},
	}, func(ctx context.Context) (string, error) {
		raw, err := s.summarizer.Summarize(ctx, input)
		if err != nil {
			return "", err
		}
		return textnorm.NormalizeSummary(raw), nil
	})
	if err != nil {
		slog.Error("Failed to generate summary", "error", err)
		return SummaryUnavailable
	}

	slog.Debug("Summary generated", "length", utf8.RuneCountInString(summary))

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
			slog.Warn("Summary cache store failed", "error", err)
		}
	}

	return summary
}

// Ping checks both providers. The embedding dimension is returned for logging.
func (s *Service) Ping(ctx context.Context) (int, error) {
	vector, err := s.embedder.Embed(ctx, "test")
	if err != nil {
		return 0, fmt.Errorf("embedding provider unreachable: %w", err)
	}

	if err := s.summarizer.Ping(ctx); err != nil {
		return 0, err
	}

	return len(vector), nil
}
