package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

const (
	DefaultEmbeddingModel   = "models/embedding-001"
	DefaultEmbeddingBaseURL = "https://generativelanguage.googleapis.com/"

	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

var errEmptyEmbedding = errors.New("empty embedding in response")

// GeminiEmbedder embeds documents through the Gemini API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder builds a Gemini API client. An empty baseURL uses the
// public endpoint.
func NewGeminiEmbedder(ctx context.Context, httpClient *http.Client, baseURL, apiKey, model string) (*GeminiEmbedder, error) {
	if model == "" {
		model = DefaultEmbeddingModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEmbedder{client: client, model: model}, nil
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), &genai.EmbedContentConfig{
		TaskType: taskRetrievalDocument,
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, errEmptyEmbedding
	}
	return resp.Embeddings[0].Values, nil
}
