package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// upsertBatchSize bounds the number of points per Qdrant upsert request.
const upsertBatchSize = 100

// QdrantStore is the client/server VectorStore backend, talking to Qdrant
// over gRPC. Collections are created lazily on first upsert with the
// observed vector dimension. With cosine distance configured, Qdrant
// reports raw scores as cosine similarity in [-1, 1].
type QdrantStore struct {
	client *qdrant.Client
	host   string
	port   int

	// mu serializes structural operations so a first-upsert collection
	// creation cannot race a concurrent delete.
	mu   sync.Mutex
	dims map[string]int // collection -> vector dimension, lazily discovered
}

// NewQdrantStore connects to Qdrant and verifies reachability, retrying
// with exponential backoff before failing.
func NewQdrantStore(host string, port int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &QdrantStore{
		client: client,
		host:   host,
		port:   port,
		dims:   make(map[string]int),
	}

	if err := s.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}

	return s, nil
}

// healthCheckWithRetry performs health checks with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.ping(ctx)
	}, backoff.WithContext(b, ctx))
}

// ping performs a single health check against Qdrant.
func (s *QdrantStore) ping(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Metric reports Qdrant's native score semantics for cosine collections.
func (s *QdrantStore) Metric() Metric {
	return MetricCosineSimilarity
}

func (s *QdrantStore) collectionExists(ctx context.Context, collection string) (bool, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range names {
		if name == collection {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection creates the collection with the given dimension if it
// does not exist, plus a payload index on filename so deletion filters stay
// fast. Idempotent.
func (s *QdrantStore) ensureCollection(ctx context.Context, collection string, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if known := s.dims[collection]; known != 0 && known != dimension {
		return fmt.Errorf("%w: records have %d dimensions, collection has %d",
			ErrDimensionMismatch, dimension, known)
	}

	exists, err := s.collectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		if s.dims[collection] == 0 {
			s.dims[collection] = dimension
		}
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collection,
		FieldName:      MetaFilename,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create filename index: %w", err)
	}

	s.dims[collection] = dimension
	return nil
}

// Upsert writes records in batches, creating the collection on first use
// with the observed vector dimension. Points share ids across re-ingestion,
// so Qdrant overwrites rather than duplicates.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, records []Record) (int, error) {
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
	if err := s.ensureCollection(ctx, collection, dimension); err != nil {
		return 0, err
	}

	for start := 0; start < len(records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(records))
		batch := records[start:end]

		points := make([]*qdrant.PointStruct, len(batch))
		for i, r := range batch {
			payload := make(map[string]any, len(r.Metadata)+1)
			for k, v := range r.Metadata {
				payload[k] = v
			}
			payload["text"] = r.Text

			points[i] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(r.ID),
				Vectors: qdrant.NewVectors(r.Vector...),
				Payload: qdrant.NewValueMap(payload),
			}
		}

		if err := s.upsertWithRetry(ctx, collection, points); err != nil {
			return 0, fmt.Errorf("failed to upsert batch %d-%d: %w", start, end, err)
		}
	}

	return len(records), nil
}

// upsertWithRetry performs one upsert request with exponential backoff.
func (s *QdrantStore) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	}, backoff.WithContext(b, ctx))
}

// Search returns up to k nearest hits. An absent collection yields an empty
// result, not an error: a query against a store nobody has ingested into is
// an ordinary "nothing found".
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, k int) ([]SearchHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("search limit must be positive, got %d", k)
	}

	exists, err := s.collectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []SearchHit{}, nil
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search collection: %w", err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, result := range results {
		payload := result.Payload

		metadata := make(map[string]string, len(payload))
		var text string
		for key, value := range payload {
			if key == "text" {
				text = value.GetStringValue()
				continue
			}
			metadata[key] = value.GetStringValue()
		}

		hits = append(hits, SearchHit{
			ID:       result.Id.GetUuid(),
			Text:     text,
			Metadata: metadata,
			Distance: result.Score,
		})
	}

	return hits, nil
}

// DeleteByFilter removes every record whose payload matches all filter
// entries. The matching count is taken with an exact count before the
// delete is issued with wait semantics, so the reported count reflects
// exactly what the filter removed.
func (s *QdrantStore) DeleteByFilter(ctx context.Context, collection string, filter map[string]string) (int, error) {
	if len(filter) == 0 {
		return 0, fmt.Errorf("delete filter must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.collectionExists(ctx, collection)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	conditions := make([]*qdrant.Condition, 0, len(filter))
	for key, value := range filter {
		conditions = append(conditions, qdrant.NewMatch(key, value))
	}
	qf := &qdrant.Filter{Must: conditions}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Filter:         qf,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count matching records: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelectorFilter(qf),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}

	return int(count), nil
}

// HealthCheck reports reachability plus dimension and record count for the
// named collection when it exists.
func (s *QdrantStore) HealthCheck(ctx context.Context, collection string) (HealthStatus, error) {
	if err := s.ping(ctx); err != nil {
		return HealthStatus{}, err
	}

	status := HealthStatus{Healthy: true}

	exists, err := s.collectionExists(ctx, collection)
	if err != nil || !exists {
		return status, err
	}

	info, err := s.client.GetCollection(ctx, collection)
	if err != nil {
		return status, fmt.Errorf("failed to get collection: %w", err)
	}
	status.RecordCount = int(info.GetPointsCount())
	status.Dimension = int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())

	return status, nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
