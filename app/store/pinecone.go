package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// pineconeIndex is the part of a Pinecone index connection the store uses.
type pineconeIndex interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	FetchVectors(ctx context.Context, ids []string) (*pinecone.FetchVectorsResponse, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DeleteVectorsById(ctx context.Context, ids []string) error
	DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error)
	Close() error
}

// PineconeStore keeps records in a Pinecone index, default namespace.
type PineconeStore struct {
	index pineconeIndex
}

var _ VectorStore = (*PineconeStore)(nil)

// NewPineconeStore connects to the index served at host.
func NewPineconeStore(host, apiKey string) (*PineconeStore, error) {
	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey:    apiKey,
		SourceTag: "newsletter_digest",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}

	index, err := client.Index(pinecone.NewIndexConnParams{Host: host})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pinecone index %s: %w", host, err)
	}

	return &PineconeStore{index: index}, nil
}

func (p *PineconeStore) Close() error {
	return p.index.Close()
}

func (p *PineconeStore) Upsert(ctx context.Context, records []Record) error {
	vectors := make([]*pinecone.Vector, 0, len(records))
	for _, r := range records {
		metadata, err := toPineconeMetadata(r.Metadata)
		if err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
		values := r.Values
		vectors = append(vectors, &pinecone.Vector{Id: r.ID, Values: &values, Metadata: metadata})
	}

	if _, err := p.index.UpsertVectors(ctx, vectors); err != nil {
		return fmt.Errorf("pinecone upsert: %w", err)
	}
	return nil
}

func (p *PineconeStore) Fetch(ctx context.Context, ids []string) (map[string]Record, error) {
	resp, err := p.index.FetchVectors(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("pinecone fetch: %w", err)
	}

	records := make(map[string]Record, len(resp.Vectors))
	for id, v := range resp.Vectors {
		if v == nil {
			continue
		}
		metadata, err := fromPineconeMetadata(v.Metadata)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		record := Record{ID: id, Metadata: metadata}
		if v.Values != nil {
			record.Values = *v.Values
		}
		records[id] = record
	}
	return records, nil
}

func (p *PineconeStore) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]Match, error) {
	resp, err := p.index.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: includeMetadata,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		match := Match{ID: m.Vector.Id, Score: m.Score}
		if includeMetadata && m.Vector.Metadata != nil {
			metadata, err := fromPineconeMetadata(m.Vector.Metadata)
			if err != nil {
				return nil, fmt.Errorf("record %s: %w", m.Vector.Id, err)
			}
			match.Metadata = &metadata
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (p *PineconeStore) Delete(ctx context.Context, ids []string) error {
	if err := p.index.DeleteVectorsById(ctx, ids); err != nil {
		return fmt.Errorf("pinecone delete: %w", err)
	}
	return nil
}

func (p *PineconeStore) DescribeStats(ctx context.Context) (IndexStats, error) {
	resp, err := p.index.DescribeIndexStats(ctx)
	if err != nil {
		return IndexStats{}, fmt.Errorf("pinecone describe stats: %w", err)
	}

	stats := IndexStats{TotalVectorCount: int(resp.TotalVectorCount)}
	if resp.Dimension != nil {
		stats.Dimension = int(*resp.Dimension)
	}
	return stats, nil
}

// Metadata travels as a protobuf Struct keyed by the json field names.
func toPineconeMetadata(m Metadata) (*pinecone.Metadata, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("convert metadata: %w", err)
	}
	return s, nil
}

func fromPineconeMetadata(s *pinecone.Metadata) (Metadata, error) {
	var m Metadata
	if s == nil {
		return m, nil
	}

	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return m, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}
