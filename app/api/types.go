package api

import (
	"context"

	"github.com/lysyi3m/newsletter-digest/app/ai"
	"github.com/lysyi3m/newsletter-digest/app/digest"
	"github.com/lysyi3m/newsletter-digest/app/pipeline"
	"github.com/lysyi3m/newsletter-digest/app/store"
	"github.com/lysyi3m/newsletter-digest/app/tasks"
)

const (
	defaultArticleLimit = 7
	maxArticleLimit     = 100
	speechInputLimit    = 4096
)

type ArticleStore interface {
	Recent(ctx context.Context, limit int) ([]store.Metadata, error)
	Stats(ctx context.Context) (store.IndexStats, error)
}

type RunTracker interface {
	LastReport() (pipeline.Report, bool)
	Running() bool
}

type ConfigSource interface {
	GetConfigCount() int
}

// CacheHealth reports the state of an optional cache backend.
type CacheHealth interface {
	Health(ctx context.Context) map[string]interface{}
}

var _ RunTracker = (*pipeline.Pipeline)(nil)

type Handler struct {
	articles  ArticleStore
	runs      RunTracker
	configs   ConfigSource
	scheduler tasks.TaskSchedulerInterface
	runner    tasks.Runner
	generator *digest.Generator
	speaker   ai.Speaker
	cache     CacheHealth
}
