package storage

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemStore is the embedded VectorStore backend, backed by chromem-go.
// It needs no external service: vectors live in memory, optionally persisted
// to a directory on disk. chromem reports cosine similarity per result; the
// adapter exposes it as cosine distance (1 - similarity) so the retriever
// sees one consistent shape per backend.
type ChromemStore struct {
	db   *chromem.DB
	path string

	mu   sync.Mutex
	dims map[string]int
}

// NewChromemStore opens an embedded store. An empty path keeps everything
// in memory; otherwise the store persists under the given directory.
func NewChromemStore(path string) (*ChromemStore, error) {
	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded store: %w", err)
		}
	}

	return &ChromemStore{
		db:   db,
		path: path,
		dims: make(map[string]int),
	}, nil
}

// Metric reports the adapter's score semantics.
func (s *ChromemStore) Metric() Metric {
	return MetricCosineDistance
}

// noEmbed rejects any attempt by chromem to compute embeddings itself.
// Every document and query carries a precomputed vector.
func noEmbed(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("embeddings must be precomputed")
}

func (s *ChromemStore) getOrCreate(collection string) (*chromem.Collection, error) {
	c, err := s.db.GetOrCreateCollection(collection, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return c, nil
}

// Upsert writes records into the collection, creating it on first use.
// Records reuse ids across re-ingestion, so chromem overwrites in place.
func (s *ChromemStore) Upsert(ctx context.Context, collection string, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, ErrNoRecords
	}

	dimension := len(records[0].Vector)
	for i, r := range records {
		if len(r.Vector) != dimension {
			return 0, fmt.Errorf("%w: record %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(r.Vector), dimension)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if known := s.dims[collection]; known != 0 && known != dimension {
		return 0, fmt.Errorf("%w: records have %d dimensions, collection has %d",
			ErrDimensionMismatch, dimension, known)
	}

	c, err := s.getOrCreate(collection)
	if err != nil {
		return 0, err
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Text,
			Metadata:  r.Metadata,
			Embedding: r.Vector,
		}
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("failed to add documents: %w", err)
	}

	s.dims[collection] = dimension
	return len(records), nil
}

// Search returns up to k nearest hits. chromem refuses result limits above
// the document count, so k is clamped; an absent or empty collection yields
// an empty result.
func (s *ChromemStore) Search(ctx context.Context, collection string, vector []float32, k int) ([]SearchHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("search limit must be positive, got %d", k)
	}

	c := s.db.GetCollection(collection, noEmbed)
	if c == nil {
		return []SearchHit{}, nil
	}

	count := c.Count()
	if count == 0 {
		return []SearchHit{}, nil
	}
	if k > count {
		k = count
	}

	results, err := c.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, result := range results {
		hits = append(hits, SearchHit{
			ID:       result.ID,
			Text:     result.Content,
			Metadata: result.Metadata,
			Distance: 1 - result.Similarity,
		})
	}

	return hits, nil
}

// DeleteByFilter removes every record whose metadata matches all filter
// entries and reports how many were removed, measured as the count delta
// around the delete.
func (s *ChromemStore) DeleteByFilter(ctx context.Context, collection string, filter map[string]string) (int, error) {
	if len(filter) == 0 {
		return 0, fmt.Errorf("delete filter must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.db.GetCollection(collection, noEmbed)
	if c == nil {
		return 0, nil
	}

	before := c.Count()
	if err := c.Delete(ctx, filter, nil); err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	return before - c.Count(), nil
}

// HealthCheck reports the embedded store's state. The store is always
// reachable; dimension and record count are filled in when the collection
// exists.
func (s *ChromemStore) HealthCheck(ctx context.Context, collection string) (HealthStatus, error) {
	status := HealthStatus{Healthy: true}

	c := s.db.GetCollection(collection, noEmbed)
	if c == nil {
		return status, nil
	}

	s.mu.Lock()
	status.Dimension = s.dims[collection]
	s.mu.Unlock()
	status.RecordCount = c.Count()

	return status, nil
}

// Close releases the store. The embedded backend holds no connections.
func (s *ChromemStore) Close() error {
	return nil
}
