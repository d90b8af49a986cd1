package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendChromem, cfg.VectorBackend)
	assert.Equal(t, "rag_documents", cfg.Collection)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 1000, cfg.MaxBatchSize)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("VECTOR_BACKEND", BackendQdrant)
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("SIMILARITY_THRESHOLD", "0.4")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, BackendQdrant, cfg.VectorBackend)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.InDelta(t, 0.4, cfg.SimilarityThreshold, 1e-9)
}

func TestFromEnvRejectsUnknownBackend(t *testing.T) {
	t.Setenv("VECTOR_BACKEND", "milvus")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvRejectsBadChunking(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")

	_, err := FromEnv()
	assert.Error(t, err)
}
