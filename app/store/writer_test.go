package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/newsletter-digest/app/feed"
)

type memoryStore struct {
	mu          sync.Mutex
	records     map[string]Record
	deleteCalls [][]string
	dropWrites  bool
	queryErr    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]Record)}
}

func (m *memoryStore) Upsert(ctx context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dropWrites {
		return nil
	}
	for _, r := range records {
		m.records[r.ID] = r
	}
	return nil
}

func (m *memoryStore) Fetch(ctx context.Context, ids []string) (map[string]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Record)
	for _, id := range ids {
		if r, ok := m.records[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func (m *memoryStore) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var matches []Match
	for id, r := range m.records {
		match := Match{ID: id}
		if includeMetadata {
			md := r.Metadata
			match.Metadata = &md
		}
		matches = append(matches, match)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *memoryStore) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls = append(m.deleteCalls, append([]string(nil), ids...))
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *memoryStore) DescribeStats(ctx context.Context) (IndexStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return IndexStats{Dimension: 3, TotalVectorCount: len(m.records)}, nil
}

type stubEmbedder struct {
	vector []float32
	inputs []string
}

func (s *stubEmbedder) Embed(ctx context.Context, content string) []float32 {
	s.inputs = append(s.inputs, content)
	return s.vector
}

func newTestWriter(vs VectorStore, embedder Embedder) *Writer {
	w := NewWriter(vs, embedder, WriterConfig{Dimension: 3, DeleteBatchSize: 2})
	w.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	w.now = func() time.Time { return time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC) }
	return w
}

func testArticle() feed.Article {
	return feed.Article{
		Title:     "Café — the “future” of AI",
		URL:       "https://example.com/post?id=1&ref=rss",
		Summary:   "Original teaser",
		Author:    "Jane",
		Source:    "Example Weekly",
		Published: time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC),
	}
}

func TestIdentifierIsStable(t *testing.T) {
	url := "https://example.com/post"

	first := Identifier(url)
	if first != Identifier(url) {
		t.Error("Expected identical identifiers for the same url")
	}
	if len(first) != 32 {
		t.Errorf("Expected 32 hex characters, got %d", len(first))
	}
	if first == Identifier(url+"/") {
		t.Error("Expected different urls to yield different identifiers")
	}
	if Identifier("") != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("Expected md5 of empty string, got %s", Identifier(""))
	}
}

func TestWriterUpsertArticle(t *testing.T) {
	vs := newMemoryStore()
	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
	w := newTestWriter(vs, embedder)

	content := strings.Repeat("c", 6000)
	err := w.UpsertArticle(context.Background(), Input{
		Article:   testArticle(),
		Content:   content,
		ImageURL:  " https://cdn.example.com/a.png ",
		AISummary: "An AI summary.",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(embedder.inputs[0]) != 5000 {
		t.Errorf("Expected embedding input of 5000 characters, got %d", len(embedder.inputs[0]))
	}

	record, ok := vs.records[Identifier(testArticle().URL)]
	if !ok {
		t.Fatal("Expected record stored under url identifier")
	}

	md := record.Metadata
	if md.Title != "Cafe the future of AI" {
		t.Errorf("Expected sanitized title, got '%s'", md.Title)
	}
	if md.URL != "https://example.com/post?id=1&ref=rss" {
		t.Errorf("Expected url preserved, got '%s'", md.URL)
	}
	if md.Image != "https://cdn.example.com/a.png" {
		t.Errorf("Expected trimmed image url, got '%s'", md.Image)
	}
	if md.AISummary != "An AI summary." {
		t.Errorf("Expected AI summary, got '%s'", md.AISummary)
	}
	if md.Published != "2025-01-02T09:30:00Z" {
		t.Errorf("Expected ISO published, got '%s'", md.Published)
	}
	if md.ProcessedAt != "2025-01-02T12:00:00Z" {
		t.Errorf("Expected processed_at, got '%s'", md.ProcessedAt)
	}
	if len(md.Content) != MaxContentLength {
		t.Errorf("Expected content capped at %d, got %d", MaxContentLength, len(md.Content))
	}
}

func TestWriterAISummaryFallsBackToOriginal(t *testing.T) {
	vs := newMemoryStore()
	w := newTestWriter(vs, &stubEmbedder{vector: []float32{1, 0, 0}})

	if err := w.UpsertArticle(context.Background(), Input{Article: testArticle(), Content: "body"}); err != nil {
		t.Fatal(err)
	}

	if got := vs.records[Identifier(testArticle().URL)].Metadata.AISummary; got != "Original teaser" {
		t.Errorf("Expected original summary, got '%s'", got)
	}
}

func TestWriterNilEmbedding(t *testing.T) {
	vs := newMemoryStore()
	w := newTestWriter(vs, &stubEmbedder{})

	err := w.UpsertArticle(context.Background(), Input{Article: testArticle(), Content: "body"})
	if !errors.Is(err, ErrEmbedding) {
		t.Errorf("Expected ErrEmbedding, got: %v", err)
	}
	if len(vs.records) != 0 {
		t.Error("Expected nothing stored")
	}
}

func TestWriterVerificationFailure(t *testing.T) {
	vs := newMemoryStore()
	vs.dropWrites = true
	w := newTestWriter(vs, &stubEmbedder{vector: []float32{1, 0, 0}})

	err := w.UpsertArticle(context.Background(), Input{Article: testArticle(), Content: "body"})
	if !errors.Is(err, ErrVerification) {
		t.Errorf("Expected ErrVerification, got: %v", err)
	}
}

func TestWriterUpsertIsIdempotent(t *testing.T) {
	vs := newMemoryStore()
	w := newTestWriter(vs, &stubEmbedder{vector: []float32{1, 0, 0}})

	for i := 0; i < 2; i++ {
		if err := w.UpsertArticle(context.Background(), Input{Article: testArticle(), Content: "body"}); err != nil {
			t.Fatal(err)
		}
	}

	if len(vs.records) != 1 {
		t.Errorf("Expected 1 record after repeated upsert, got %d", len(vs.records))
	}
}

func TestWriterClearAll(t *testing.T) {
	vs := newMemoryStore()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		vs.records[id] = Record{ID: id}
	}
	w := newTestWriter(vs, &stubEmbedder{})

	deleted, err := w.ClearAll(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if deleted != 5 {
		t.Errorf("Expected 5 deleted, got %d", deleted)
	}
	if len(vs.records) != 0 {
		t.Errorf("Expected empty store, got %d records", len(vs.records))
	}
	if len(vs.deleteCalls) != 3 {
		t.Errorf("Expected 3 delete batches, got %d", len(vs.deleteCalls))
	}
	for i, batch := range vs.deleteCalls {
		if len(batch) > 2 {
			t.Errorf("Expected batch %d to hold at most 2 ids, got %d", i, len(batch))
		}
	}
}

func TestWriterClearAllEmpty(t *testing.T) {
	vs := newMemoryStore()

	deleted, err := newTestWriter(vs, &stubEmbedder{}).ClearAll(context.Background())
	if err != nil || deleted != 0 {
		t.Errorf("Expected 0 deleted and no error, got %d, %v", deleted, err)
	}
	if len(vs.deleteCalls) != 0 {
		t.Errorf("Expected no delete calls, got %d", len(vs.deleteCalls))
	}
}

func TestWriterClearAllQueryError(t *testing.T) {
	vs := newMemoryStore()
	vs.queryErr = errors.New("index unreachable")

	if _, err := newTestWriter(vs, &stubEmbedder{}).ClearAll(context.Background()); err == nil {
		t.Error("Expected error when enumeration fails")
	}
}

func TestWriterRecentAndVerify(t *testing.T) {
	vs := newMemoryStore()
	w := newTestWriter(vs, &stubEmbedder{vector: []float32{1, 0, 0}})

	for _, url := range []string{"https://a.example.com", "https://b.example.com"} {
		article := testArticle()
		article.URL = url
		if err := w.UpsertArticle(context.Background(), Input{Article: article, Content: "body"}); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := w.Recent(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Errorf("Expected 2 recent records, got %d", len(recent))
	}

	stats, err := w.Verify(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalVectorCount != 2 {
		t.Errorf("Expected 2 records in stats, got %d", stats.TotalVectorCount)
	}
}
