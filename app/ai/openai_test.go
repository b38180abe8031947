package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChatSummarizerSummarize(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"A summary."},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}}`))
	}))
	defer server.Close()

	summarizer := NewChatSummarizer("pplx-key", server.URL, "")

	summary, err := summarizer.Summarize(context.Background(), "article body")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if summary != "A summary." {
		t.Errorf("Expected 'A summary.', got '%s'", summary)
	}
	if gotAuth != "Bearer pplx-key" {
		t.Errorf("Expected bearer auth, got '%s'", gotAuth)
	}
	if gotBody["model"] != DefaultSummaryModel {
		t.Errorf("Expected model %s, got %v", DefaultSummaryModel, gotBody["model"])
	}
	if gotBody["max_tokens"] != float64(summaryMaxTokens) {
		t.Errorf("Expected max_tokens %d, got %v", summaryMaxTokens, gotBody["max_tokens"])
	}

	messages, _ := gotBody["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("Expected system and user messages, got %d", len(messages))
	}
	user, _ := messages[1].(map[string]any)
	if content, _ := user["content"].(string); !strings.HasSuffix(content, "article body") {
		t.Errorf("Expected user prompt to carry the article, got '%s'", content)
	}
}

func TestChatSummarizerNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","choices":[]}`))
	}))
	defer server.Close()

	if _, err := NewChatSummarizer("k", server.URL, "m").Summarize(context.Background(), "x"); err == nil {
		t.Error("Expected error for empty choices")
	}
}

func TestSpeechClientSpeak(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3audio"))
	}))
	defer server.Close()

	stream, err := NewSpeechClient("k", server.URL, "tts-1", "alloy").Speak(context.Background(), "Hello there.")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer stream.Close()

	data, _ := io.ReadAll(stream)
	if string(data) != "ID3audio" {
		t.Errorf("Expected audio bytes, got '%s'", data)
	}
}
