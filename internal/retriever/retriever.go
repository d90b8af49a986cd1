// Package retriever turns a question into ranked context chunks. It embeds
// the query, searches the vector store, and normalizes backend-native
// scores into one similarity scale so callers never see raw distances.
package retriever

import (
	"context"
	"fmt"
	"sort"

	"github.com/bull/rag-server/internal/storage"
)

// QueryEmbedder is the slice of the embedding client the retriever needs.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// RetrievedChunk is one ranked retrieval result. SimilarityScore is
// normalized to [0, 1] where higher means more similar, regardless of
// which backend produced it.
type RetrievedChunk struct {
	Content         string            `json:"content"`
	Metadata        map[string]string `json:"metadata"`
	SimilarityScore float64           `json:"similarity_score"`
	Rank            int               `json:"rank"`
}

// Retriever performs similarity search over a single collection.
type Retriever struct {
	embedder   QueryEmbedder
	store      storage.VectorStore
	collection string
	topK       int
	threshold  float64
}

// New creates a Retriever. topK must be positive; threshold filters out
// chunks scoring below it, with zero meaning no filtering.
func New(embedder QueryEmbedder, store storage.VectorStore, collection string, topK int, threshold float64) (*Retriever, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("similarity threshold must be in [0, 1], got %g", threshold)
	}
	return &Retriever{
		embedder:   embedder,
		store:      store,
		collection: collection,
		topK:       topK,
		threshold:  threshold,
	}, nil
}

// Retrieve embeds the question and returns up to topK chunks ordered by
// descending similarity with 1-based ranks. No matches yields an empty
// slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]RetrievedChunk, error) {
	return r.RetrieveTopK(ctx, question, r.topK)
}

// RetrieveTopK is Retrieve with a per-call result limit.
func (r *Retriever) RetrieveTopK(ctx context.Context, question string, k int) ([]RetrievedChunk, error) {
	if question == "" {
		return nil, fmt.Errorf("question must not be empty")
	}
	if k <= 0 {
		k = r.topK
	}

	vector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	hits, err := r.store.Search(ctx, r.collection, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection: %w", err)
	}

	metric := r.store.Metric()
	chunks := make([]RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		score := NormalizeScore(metric, hit.Distance)
		if r.threshold > 0 && score < r.threshold {
			continue
		}
		chunks = append(chunks, RetrievedChunk{
			Content:         hit.Text,
			Metadata:        hit.Metadata,
			SimilarityScore: score,
		})
	}

	// Backends return results ordered by their native score; re-sort on the
	// normalized scale so the rank order is ours, not theirs. The sort is
	// stable to keep equal-scored hits in backend order.
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].SimilarityScore > chunks[j].SimilarityScore
	})
	for i := range chunks {
		chunks[i].Rank = i + 1
	}

	return chunks, nil
}

// NormalizeScore maps a backend-native raw score onto [0, 1] where higher
// means more similar. Cosine similarity in [-1, 1] maps as (d+1)/2; cosine
// distance maps as 1-d. Results are clamped so float drift at the edges
// never leaks out of range.
func NormalizeScore(metric storage.Metric, distance float32) float64 {
	var score float64
	switch metric {
	case storage.MetricCosineSimilarity:
		score = (float64(distance) + 1) / 2
	case storage.MetricCosineDistance:
		score = 1 - float64(distance)
	default:
		score = float64(distance)
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
