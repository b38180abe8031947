package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type batchEmbedRequest struct {
	Requests []struct {
		Model    string `json:"model"`
		TaskType string `json:"taskType"`
		Content  struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"requests"`
}

func newTestEmbedder(t *testing.T, server *httptest.Server, model string) *GeminiEmbedder {
	t.Helper()
	embedder, err := NewGeminiEmbedder(context.Background(), server.Client(), server.URL+"/", "secret", model)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	return embedder
}

func TestGeminiEmbedderEmbed(t *testing.T) {
	var gotPath, gotKey string
	var gotBody batchEmbedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"embeddings":[{"values":[0.5,-0.25,1]}]}`))
	}))
	defer server.Close()

	vector, err := newTestEmbedder(t, server, "embedding-001").Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if gotPath != "/v1beta/models/embedding-001:batchEmbedContents" {
		t.Errorf("Unexpected path: %s", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("Expected API key header, got '%s'", gotKey)
	}
	if len(gotBody.Requests) != 1 {
		t.Fatalf("Expected 1 embed request, got %d", len(gotBody.Requests))
	}
	req := gotBody.Requests[0]
	if req.TaskType != "RETRIEVAL_DOCUMENT" {
		t.Errorf("Expected document task type, got '%s'", req.TaskType)
	}
	if len(req.Content.Parts) != 1 || req.Content.Parts[0].Text != "hello" {
		t.Errorf("Unexpected content: %+v", req.Content)
	}
	if len(vector) != 3 || vector[1] != -0.25 {
		t.Errorf("Unexpected vector: %v", vector)
	}
}

func TestGeminiEmbedderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`},
		{"empty embedding", http.StatusOK, `{"embeddings":[{"values":[]}]}`},
		{"no embeddings", http.StatusOK, `{}`},
		{"bad json", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			if _, err := newTestEmbedder(t, server, "").Embed(context.Background(), "x"); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestGeminiEmbedderRequiresKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := NewGeminiEmbedder(context.Background(), nil, "", "", ""); err == nil {
		t.Error("Expected error without an API key")
	}
}
