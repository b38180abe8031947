package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/newsletter-digest/app/ai"
	"github.com/lysyi3m/newsletter-digest/app/api"
	"github.com/lysyi3m/newsletter-digest/app/cache"
	"github.com/lysyi3m/newsletter-digest/app/cfg"
	"github.com/lysyi3m/newsletter-digest/app/digest"
	"github.com/lysyi3m/newsletter-digest/app/feed"
	"github.com/lysyi3m/newsletter-digest/app/pipeline"
	"github.com/lysyi3m/newsletter-digest/app/scrape"
	"github.com/lysyi3m/newsletter-digest/app/store"
	"github.com/lysyi3m/newsletter-digest/app/tasks"
)

func main() {
	os.Exit(run())
}

func run() int {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if appCfg == nil {
		return 0
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Newsletter Digest", "version", appCfg.Version, "store", appCfg.StoreBackend, "serve", appCfg.Serve)

	configCache := feed.NewConfigCache(appCfg.FeedsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load feed configurations", "error", err)
		return 1
	}
	slog.Info("Feed configurations loaded", "dir", appCfg.FeedsDir, "count", configCache.GetConfigCount())

	httpClient := &http.Client{Timeout: appCfg.Limits.FetchTimeout}

	vectorStore, closeStore, err := openStore(appCfg)
	if err != nil {
		slog.Error("Failed to open vector store", "error", err)
		return 1
	}
	defer closeStore()

	embedder, err := ai.NewGeminiEmbedder(context.Background(), httpClient, appCfg.EmbeddingBaseURL, appCfg.GoogleAPIKey, appCfg.EmbeddingModel)
	if err != nil {
		slog.Error("Failed to create embedding client", "error", err)
		return 1
	}

	service := ai.NewService(
		embedder,
		ai.NewChatSummarizer(appCfg.PerplexityAPIKey, appCfg.SummaryBaseURL, appCfg.SummaryModel),
		ai.ServiceConfig{
			EmbeddingInputLimit: appCfg.Limits.EmbeddingInputLimit,
			SummaryInputLimit:   appCfg.Limits.SummaryInputLimit,
			MinSummaryLength:    appCfg.Limits.MinSummaryLength,
			MaxAttempts:         appCfg.Limits.MaxAttempts,
			BackoffUnit:         appCfg.Limits.BackoffUnit,
		})

	var summaryCache *cache.Cache
	if appCfg.RedisAddr != "" {
		summaryCache, err = cache.NewCache(context.Background(), appCfg.RedisAddr, appCfg.RedisPassword, appCfg.RedisDB)
		if err != nil {
			slog.Warn("Summary cache disabled", "addr", appCfg.RedisAddr, "error", err)
		} else {
			defer summaryCache.Close()
			service.WithCache(summaryCache, appCfg.SummaryCacheTTL)
			slog.Info("Summary cache enabled", "addr", appCfg.RedisAddr, "ttl", appCfg.SummaryCacheTTL)
		}
	}

	writer := store.NewWriter(vectorStore, service, store.WriterConfig{
		Dimension:       appCfg.EmbeddingDimensions,
		DeleteBatchSize: appCfg.Limits.DeleteBatchSize,
		DeletePause:     appCfg.Limits.DeletePause,
		VerifyDelay:     appCfg.Limits.VerifyDelay,
	})

	browser := scrape.NewBrowserFetcher(scrape.DesktopUserAgent)
	defer browser.Close()

	opts := scrape.DefaultOptions()
	opts.MinContentLength = appCfg.Limits.MinContentLength
	opts.MaxContentLength = appCfg.Limits.MaxContentLength
	opts.Concurrency = appCfg.Limits.ScrapeConcurrency
	opts.FirstRender.PageTimeout = appCfg.Limits.RenderTimeout
	opts.FirstRender.Settle = appCfg.Limits.RenderSettle
	opts.RetryRender.PageTimeout = appCfg.Limits.RetryRenderTimeout
	opts.RetryRender.Settle = appCfg.Limits.RetryRenderSettle

	scraper := scrape.NewScraper(browser,
		scrape.NewHTTPFetcher(httpClient, scrape.DesktopUserAgent, appCfg.Limits.FetchTimeout),
		opts)

	ingestor := feed.NewIngestor(httpClient, feed.NewParser(), feed.NewFilterer(), appCfg.UserAgent, appCfg.Limits.FreshnessWindow)

	digestPipeline := pipeline.New(configCache, ingestor, scraper, service, writer, pipeline.Config{
		ArticlePause: appCfg.Limits.ArticlePause,
		VerifySample: 5,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !checkConnections(ctx, service, writer, appCfg.EmbeddingDimensions) {
		slog.Error("Some API connections failed, check your configuration")
		return 1
	}

	if !appCfg.Serve {
		report, err := digestPipeline.Run(ctx)
		if err != nil {
			slog.Error("Pipeline execution failed", "error", err)
			return 1
		}
		slog.Info("Pipeline execution completed", "processed", report.Processed, "failed", report.Failed)
		return 0
	}

	return serve(ctx, appCfg, configCache, writer, digestPipeline, summaryCache)
}

func openStore(appCfg *cfg.Cfg) (store.VectorStore, func(), error) {
	switch appCfg.StoreBackend {
	case cfg.StoreBackendSQLite:
		s, err := store.OpenSQLite(appCfg.SQLitePath, appCfg.EmbeddingDimensions)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		s, err := store.NewPineconeStore(appCfg.PineconeIndexHost, appCfg.PineconeAPIKey)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
}

// checkConnections pings the providers and the store once before any work.
func checkConnections(ctx context.Context, service *ai.Service, writer *store.Writer, dimension int) bool {
	ok := true

	got, err := service.Ping(ctx)
	if err != nil {
		slog.Error("AI provider check failed", "error", err)
		ok = false
	} else {
		slog.Info("AI providers reachable", "embedding_dimension", got)
		if got != dimension {
			slog.Warn("Embedding dimension differs from configured dimension", "got", got, "configured", dimension)
		}
	}

	stats, err := writer.Stats(ctx)
	if err != nil {
		slog.Error("Vector store check failed", "error", err)
		ok = false
	} else {
		slog.Info("Vector store reachable", "dimension", stats.Dimension, "records", stats.TotalVectorCount)
	}

	return ok
}

func serve(ctx context.Context, appCfg *cfg.Cfg, configCache *feed.ConfigCache, writer *store.Writer, digestPipeline *pipeline.Pipeline, summaryCache *cache.Cache) int {
	scheduler := tasks.NewScheduler(digestPipeline, time.Duration(appCfg.SchedulerInterval)*time.Second)
	scheduler.Start()
	defer scheduler.Stop()

	if err := tasks.NewConfigWatcher(appCfg.FeedsDir, configCache, scheduler).Start(ctx); err != nil {
		slog.Warn("Feed configuration watcher disabled", "dir", appCfg.FeedsDir, "error", err)
	}

	var speaker ai.Speaker
	if appCfg.SpeechAPIKey != "" {
		speaker = ai.NewSpeechClient(appCfg.SpeechAPIKey, appCfg.SpeechBaseURL, appCfg.SpeechModel, appCfg.SpeechVoice)
	}

	handler := api.NewHandler(writer, digestPipeline, configCache, scheduler, digestPipeline,
		digest.NewGenerator("", appCfg.BaseUrl, appCfg.Version), speaker)
	if summaryCache != nil {
		handler.WithCache(summaryCache)
	}

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return exitCode
}
