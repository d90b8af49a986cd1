// Package storage defines the vector-store abstraction and its backends.
//
// Two interchangeable backends are provided: an embedded chromem index and a
// Qdrant client/server index. Each reports raw scores in its own native
// metric; Metric tells the retrieval layer how to normalize them. Nothing
// above the retriever may depend on which backend produced a score.
package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Metric identifies the native distance semantics of a backend's raw scores.
type Metric int

const (
	// MetricCosineSimilarity means raw scores are cosine similarity in
	// [-1, 1], where 1 is most similar. Normalized via (d+1)/2.
	MetricCosineSimilarity Metric = iota
	// MetricCosineDistance means raw scores are cosine distance, where 0
	// is most similar. Normalized via 1-d.
	MetricCosineDistance
)

// VectorStore persists and retrieves vector records for named collections.
//
// Implementations create a collection on first upsert using the observed
// vector dimension, overwrite records that share an id, and return an empty
// result (not an error) when searching an absent or empty collection.
// Structural operations (collection creation and deletion) are serialized
// internally; Search is safe for concurrent use.
type VectorStore interface {
	// Upsert writes records into the collection, creating it if absent.
	// Records sharing an id with an existing record replace it. Returns
	// the number of records written.
	Upsert(ctx context.Context, collection string, records []Record) (int, error)

	// Search returns up to k nearest records for the query vector along
	// with each backend-native raw score.
	Search(ctx context.Context, collection string, vector []float32, k int) ([]SearchHit, error)

	// DeleteByFilter removes every record whose metadata matches all
	// filter entries, and returns how many were removed. The operation
	// is all-or-nothing: a failure never reports a partial deletion as
	// success.
	DeleteByFilter(ctx context.Context, collection string, filter map[string]string) (int, error)

	// HealthCheck reports backend reachability and stats for the named
	// collection. Dimension and RecordCount are zero when the collection
	// does not exist yet.
	HealthCheck(ctx context.Context, collection string) (HealthStatus, error)

	// Metric reports the native distance semantics of this backend's
	// raw scores. Only the retrieval layer may consume this.
	Metric() Metric

	Close() error
}

// HealthStatus is the result of a VectorStore health check.
type HealthStatus struct {
	Healthy     bool
	Dimension   int
	RecordCount int
}

// chunkNamespace is the fixed UUIDv5 namespace for chunk ids. It must never
// change: re-ingesting a document relies on identical (filename, index)
// pairs mapping to identical ids so upsert overwrites instead of duplicating.
var chunkNamespace = uuid.MustParse("8f3c1c58-5d2b-4b8e-9f4a-2f6d1a7c9e01")

// ChunkID derives the stable record id for a chunk of a document. It is a
// pure function of filename and chunk index, rendered as a UUID so both
// backends accept it as a primary key.
func ChunkID(filename string, index int) string {
	return uuid.NewSHA1(chunkNamespace, fmt.Appendf(nil, "%s_%d", filename, index)).String()
}
