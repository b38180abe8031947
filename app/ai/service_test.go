package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeEmbedder struct {
	calls   int
	inputs  []string
	failFor int
	vector  []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	f.inputs = append(f.inputs, text)
	if f.calls <= f.failFor {
		return nil, errors.New("provider error")
	}
	return f.vector, nil
}

type fakeSummarizer struct {
	calls     int
	inputs    []string
	responses []string
	errs      []error
	pingErr   error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, content string) (string, error) {
	i := f.calls
	f.calls++
	f.inputs = append(f.inputs, content)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no response")
}

func (f *fakeSummarizer) Ping(ctx context.Context) error {
	return f.pingErr
}

func newTestService(embedder Embedder, summarizer Summarizer, sleeps *[]time.Duration) *Service {
	service := NewService(embedder, summarizer, DefaultServiceConfig())
	service.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return service
}

const goodSummary = "OpenAI shipped a new model this week. Early users report large gains in coding tasks."

func TestServiceEmbedRetriesThenSucceeds(t *testing.T) {
	var sleeps []time.Duration
	embedder := &fakeEmbedder{failFor: 2, vector: []float32{0.1, 0.2}}

	vector := newTestService(embedder, &fakeSummarizer{}, &sleeps).Embed(context.Background(), "content")

	if len(vector) != 2 {
		t.Fatalf("Expected vector of 2, got %v", vector)
	}
	if embedder.calls != 3 {
		t.Errorf("Expected 3 calls, got %d", embedder.calls)
	}
	if len(sleeps) != 2 || sleeps[0] != time.Second || sleeps[1] != 2*time.Second {
		t.Errorf("Expected sleeps [1s 2s], got %v", sleeps)
	}
}

func TestServiceEmbedExhaustedReturnsNil(t *testing.T) {
	var sleeps []time.Duration
	embedder := &fakeEmbedder{failFor: 3}

	if vector := newTestService(embedder, &fakeSummarizer{}, &sleeps).Embed(context.Background(), "content"); vector != nil {
		t.Errorf("Expected nil vector, got %v", vector)
	}
}

func TestServiceEmbedTruncatesInput(t *testing.T) {
	var sleeps []time.Duration
	embedder := &fakeEmbedder{vector: []float32{1}}

	newTestService(embedder, &fakeSummarizer{}, &sleeps).Embed(context.Background(), strings.Repeat("x", 20000))

	if len(embedder.inputs[0]) != 10000 {
		t.Errorf("Expected input truncated to 10000, got %d", len(embedder.inputs[0]))
	}
}

func TestServiceSummarizeCleansOutput(t *testing.T) {
	var sleeps []time.Duration
	summarizer := &fakeSummarizer{responses: []string{"**Gemini 2. 5** is out[1]. It improves reasoning on long documents noticeably. Sources: x"}}

	summary := newTestService(&fakeEmbedder{}, summarizer, &sleeps).Summarize(context.Background(), strings.Repeat("y", 15000))

	if !strings.Contains(summary, "Gemini 2.5") {
		t.Errorf("Expected normalized version number, got '%s'", summary)
	}
	if strings.Contains(summary, "[1]") || strings.Contains(summary, "Sources") {
		t.Errorf("Expected citations removed, got '%s'", summary)
	}
	if len(summarizer.inputs[0]) != 12000 {
		t.Errorf("Expected input truncated to 12000, got %d", len(summarizer.inputs[0]))
	}
}

func TestServiceSummarizeRetriesShortSummary(t *testing.T) {
	var sleeps []time.Duration
	summarizer := &fakeSummarizer{responses: []string{"Too short.", goodSummary}}

	summary := newTestService(&fakeEmbedder{}, summarizer, &sleeps).Summarize(context.Background(), "content")

	if summary != goodSummary {
		t.Errorf("Expected '%s', got '%s'", goodSummary, summary)
	}
	if summarizer.calls != 2 {
		t.Errorf("Expected 2 calls, got %d", summarizer.calls)
	}
	if len(sleeps) != 1 {
		t.Errorf("Expected a backoff after the quality failure, got %v", sleeps)
	}
}

func TestServiceSummarizeExhausted(t *testing.T) {
	var sleeps []time.Duration
	summarizer := &fakeSummarizer{errs: []error{errors.New("a"), errors.New("b"), errors.New("c")}}

	summary := newTestService(&fakeEmbedder{}, summarizer, &sleeps).Summarize(context.Background(), "content")

	if summary != SummaryUnavailable {
		t.Errorf("Expected '%s', got '%s'", SummaryUnavailable, summary)
	}
	if summarizer.calls != 3 {
		t.Errorf("Expected 3 calls, got %d", summarizer.calls)
	}
}

func TestServicePing(t *testing.T) {
	var sleeps []time.Duration

	dim, err := newTestService(&fakeEmbedder{vector: make([]float32, 768)}, &fakeSummarizer{}, &sleeps).Ping(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if dim != 768 {
		t.Errorf("Expected dimension 768, got %d", dim)
	}

	_, err = newTestService(&fakeEmbedder{vector: []float32{1}}, &fakeSummarizer{pingErr: errors.New("down")}, &sleeps).Ping(context.Background())
	if err == nil {
		t.Error("Expected error when summarizer is down")
	}
}

type memoryCache struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.values[key] = value
	m.ttls[key] = ttl
	return nil
}

func TestServiceSummarizeUsesCache(t *testing.T) {
	var sleeps []time.Duration
	summarizer := &fakeSummarizer{responses: []string{goodSummary}}
	cache := newMemoryCache()
	service := newTestService(&fakeEmbedder{}, summarizer, &sleeps).WithCache(cache, 48*time.Hour)

	first := service.Summarize(context.Background(), "same content")
	second := service.Summarize(context.Background(), "same content")

	if first != second {
		t.Errorf("Expected cached summary, got '%s' and '%s'", first, second)
	}
	if summarizer.calls != 1 {
		t.Errorf("Expected 1 provider call, got %d", summarizer.calls)
	}
	for _, ttl := range cache.ttls {
		if ttl != 48*time.Hour {
			t.Errorf("Expected ttl 48h, got %v", ttl)
		}
	}
}

func TestServiceSummarizeDoesNotCacheUnavailable(t *testing.T) {
	var sleeps []time.Duration
	summarizer := &fakeSummarizer{errs: []error{errors.New("a"), errors.New("b"), errors.New("c")}}
	cache := newMemoryCache()

	summary := newTestService(&fakeEmbedder{}, summarizer, &sleeps).WithCache(cache, time.Hour).Summarize(context.Background(), "content")

	if summary != SummaryUnavailable {
		t.Errorf("Expected unavailable marker, got '%s'", summary)
	}
	if len(cache.values) != 0 {
		t.Error("Expected nothing cached after exhaustion")
	}
}

func TestServiceSummarizeCacheErrorFallsThrough(t *testing.T) {
	var sleeps []time.Duration
	summarizer := &fakeSummarizer{responses: []string{goodSummary}}
	cache := newMemoryCache()
	cache.getErr = errors.New("redis down")

	summary := newTestService(&fakeEmbedder{}, summarizer, &sleeps).WithCache(cache, time.Hour).Summarize(context.Background(), "content")

	if summary == SummaryUnavailable || summarizer.calls != 1 {
		t.Errorf("Expected provider summary despite cache error, got '%s' after %d calls", summary, summarizer.calls)
	}
}
