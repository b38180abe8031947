// Package ai wraps the embedding, summarization and speech providers.
package ai

import (
	"context"
	"io"
)

// SummaryUnavailable is returned by Service.Summarize when every attempt failed.
const SummaryUnavailable = "Summary not available"

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
	Ping(ctx context.Context) error
}

type Speaker interface {
	Speak(ctx context.Context, text string) (io.ReadCloser, error)
}
