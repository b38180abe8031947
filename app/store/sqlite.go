package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

var metadataColumns = []string{
	"title", "url", "original_summary", "ai_summary", "author",
	"source", "published", "content", "image", "processed_at",
}

// SQLiteStore is a local VectorStore. Query scores every row by cosine
// similarity.
type SQLiteStore struct {
	db        *sql.DB
	dimension int
}

var _ VectorStore = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path and migrates it.
func OpenSQLite(path string, dimension int) (*SQLiteStore, error) {
	if dimension <= 0 {
		dimension = DefaultDimension
	}

	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("Database migrated", "path", path, "version", version, "dirty", dirty)

	return &SQLiteStore{db: db, dimension: dimension}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, record := range records {
		if len(record.Values) != s.dimension {
			return fmt.Errorf("vector %s has dimension %d, index expects %d", record.ID, len(record.Values), s.dimension)
		}

		m := record.Metadata
		query := sq.Insert("records").
			Columns(append([]string{"id", "embedding"}, metadataColumns...)...).
			Values(record.ID, encodeVector(record.Values),
				m.Title, m.URL, m.OriginalSummary, m.AISummary, m.Author,
				m.Source, m.Published, m.Content, m.Image, m.ProcessedAt).
			Suffix(`ON CONFLICT(id) DO UPDATE SET
				embedding = excluded.embedding,
				title = excluded.title,
				url = excluded.url,
				original_summary = excluded.original_summary,
				ai_summary = excluded.ai_summary,
				author = excluded.author,
				source = excluded.source,
				published = excluded.published,
				content = excluded.content,
				image = excluded.image,
				processed_at = excluded.processed_at`)

		if _, err := query.RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to upsert record %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Fetch(ctx context.Context, ids []string) (map[string]Record, error) {
	found := make(map[string]Record, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	rows, err := sq.Select(append([]string{"id", "embedding"}, metadataColumns...)...).
		From("records").
		Where(sq.Eq{"id": ids}).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		found[record.ID] = record
	}

	return found, rows.Err()
}

func (s *SQLiteStore) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	rows, err := sq.Select(append([]string{"id", "embedding"}, metadataColumns...)...).
		From("records").
		OrderBy("id").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}

		match := Match{ID: record.ID, Score: cosine(vector, record.Values)}
		if includeMetadata {
			metadata := record.Metadata
			match.Metadata = &metadata
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if _, err := sq.Delete("records").Where(sq.Eq{"id": ids}).RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DescribeStats(ctx context.Context) (IndexStats, error) {
	var count int
	if err := sq.Select("COUNT(*)").From("records").RunWith(s.db).QueryRowContext(ctx).Scan(&count); err != nil {
		return IndexStats{}, fmt.Errorf("failed to count records: %w", err)
	}
	return IndexStats{Dimension: s.dimension, TotalVectorCount: count}, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		record Record
		blob   []byte
		m      = &record.Metadata
	)

	if err := rows.Scan(&record.ID, &blob,
		&m.Title, &m.URL, &m.OriginalSummary, &m.AISummary, &m.Author,
		&m.Source, &m.Published, &m.Content, &m.Image, &m.ProcessedAt); err != nil {
		return Record{}, fmt.Errorf("failed to scan record: %w", err)
	}

	record.Values = decodeVector(blob)
	return record, nil
}

func encodeVector(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	values := make([]float32, len(buf)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return values
}

// cosine returns 0 when either vector has zero length or magnitude.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
