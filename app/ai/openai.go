package ai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultSummaryModel   = "sonar-pro"
	DefaultSummaryBaseURL = "https://api.perplexity.ai"

	summaryMaxTokens   = 250
	summaryTemperature = 0.2
)

const summarySystemPrompt = `You are an expert AI newsletter summarizer. Create a comprehensive yet concise summary that captures the essence of the article.

IMPORTANT: Your response must be clean text suitable for text-to-speech systems. Follow these rules:
- Do NOT use any markdown formatting (no *, **, _, __, backticks)
- Do NOT use special characters like backslashes, forward slashes, or symbols
- Use only plain text with proper punctuation
- Write in complete sentences with proper grammar
- Use simple quotation marks for quotes (not fancy quotes)
- Do NOT include any citations, reference numbers, or source attributions
- Do NOT add [1], [2], (1), (2) or any numbered references
- ALWAYS end with complete sentences, never cut off mid-sentence
- For version numbers, write them WITHOUT spaces (e.g., "Gemini 2.5" not "Gemini 2. 5")
- For model names, use hyphens instead of spaces with numbers (e.g., "GPT-4" not "GPT 4")
- Write out abbreviations when they might be unclear in speech

Your summary should:
- Be exactly 4-5 complete sentences (80-150 words)
- Start with the main news or development
- Include key details, numbers, or quotes when relevant
- Explain the significance or implications
- End with future outlook or impact with a proper conclusion
- Write for business professionals and tech enthusiasts
- Be engaging and informative
- Ensure all sentences are grammatically complete`

const summaryUserPrompt = "Please summarize this article in exactly 4-5 complete sentences with clean, plain text suitable for text-to-speech with no citations or references. Make sure version numbers have no spaces (like 2.5 not 2. 5) and end with a complete sentence:\n\n%s"

// ChatSummarizer summarizes through an OpenAI-compatible chat completion API.
type ChatSummarizer struct {
	client *openai.Client
	model  string
}

func NewChatSummarizer(apiKey, baseURL, model string) *ChatSummarizer {
	config := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultSummaryBaseURL
	}
	config.BaseURL = baseURL
	if model == "" {
		model = DefaultSummaryModel
	}

	return &ChatSummarizer{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (s *ChatSummarizer) Summarize(ctx context.Context, content string) (string, error) {
	start := time.Now()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(summaryUserPrompt, content)},
		},
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat completion response")
	}

	slog.Debug("Summary generated",
		"model", s.model,
		"duration", time.Since(start),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}

// Ping sends a minimal completion to check credentials and reachability.
func (s *ChatSummarizer) Ping(ctx context.Context) error {
	_, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.model,
		Messages:  []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "Hello"}},
		MaxTokens: 10,
	})
	if err != nil {
		return fmt.Errorf("summarization provider unreachable: %w", err)
	}
	return nil
}

// SpeechClient synthesizes audio through an OpenAI-compatible speech API.
type SpeechClient struct {
	client *openai.Client
	model  string
	voice  string
}

func NewSpeechClient(apiKey, baseURL, model, voice string) *SpeechClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &SpeechClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
		voice:  voice,
	}
}

// Speak returns the audio stream. The caller closes it.
func (s *SpeechClient) Speak(ctx context.Context, text string) (io.ReadCloser, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	return resp, nil
}
