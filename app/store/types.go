// Package store persists article embeddings and their metadata in a vector
// index keyed by a url-derived identifier.
package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
)

var (
	ErrVerification = errors.New("record missing on read-back")
	ErrEmbedding    = errors.New("embedding unavailable")
)

// Maximum stored length per metadata field.
const (
	MaxTitleLength           = 500
	MaxURLLength             = 500
	MaxOriginalSummaryLength = 1000
	MaxAISummaryLength       = 2000
	MaxAuthorLength          = 100
	MaxSourceLength          = 100
	MaxContentLength         = 2000
	MaxImageLength           = 500
)

const DefaultDimension = 768

type Metadata struct {
	Title           string `json:"title"`
	URL             string `json:"url"`
	OriginalSummary string `json:"original_summary"`
	AISummary       string `json:"ai_summary"`
	Author          string `json:"author"`
	Source          string `json:"source"`
	Published       string `json:"published"`
	Content         string `json:"content"`
	Image           string `json:"image"`
	ProcessedAt     string `json:"processed_at"`
}

type Record struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

type Match struct {
	ID       string    `json:"id"`
	Score    float32   `json:"score"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

type IndexStats struct {
	Dimension        int `json:"dimension"`
	TotalVectorCount int `json:"totalVectorCount"`
}

// VectorStore is a key-value store of vectors with similarity queries.
type VectorStore interface {
	Upsert(ctx context.Context, records []Record) error
	Fetch(ctx context.Context, ids []string) (map[string]Record, error)
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]Match, error)
	Delete(ctx context.Context, ids []string) error
	DescribeStats(ctx context.Context) (IndexStats, error)
}

// Identifier is the hex MD5 of url. The same url always maps to the same
// record.
func Identifier(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}
