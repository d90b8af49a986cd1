// Package config centralizes environment-based configuration for the RAG service.
package config

import (
	"fmt"
	"os"
)

// Backend names accepted by VectorBackend.
const (
	BackendChromem = "chromem"
	BackendQdrant  = "qdrant"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// HTTP server
	Port string

	// Vector store
	VectorBackend string // "chromem" or "qdrant"
	Collection    string
	QdrantHost    string
	QdrantPort    int
	ChromemPath   string // empty means in-memory

	// Embedding / completion
	OpenAIBaseURL   string // empty means the openai-go default
	EmbeddingModel  string
	CompletionModel string
	MaxBatchSize    int

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	TopK                int
	SimilarityThreshold float64
}

// FromEnv builds a Config from environment variables, applying defaults
// for anything unset.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		VectorBackend:       getEnv("VECTOR_BACKEND", BackendChromem),
		Collection:          getEnv("COLLECTION_NAME", "rag_documents"),
		QdrantHost:          getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:          getEnvInt("QDRANT_PORT", 6334),
		ChromemPath:         getEnv("CHROMEM_PATH", ""),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		CompletionModel:     getEnv("COMPLETION_MODEL", "gpt-4o-mini"),
		MaxBatchSize:        getEnvInt("MAX_BATCH_SIZE", 1000),
		ChunkSize:           getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:        getEnvInt("CHUNK_OVERLAP", 200),
		TopK:                getEnvInt("RETRIEVAL_TOP_K", 5),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0),
	}

	if cfg.VectorBackend != BackendChromem && cfg.VectorBackend != BackendQdrant {
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q (want %q or %q)",
			cfg.VectorBackend, BackendChromem, BackendQdrant)
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", cfg.ChunkOverlap)
	}
	if cfg.MaxBatchSize <= 0 {
		return nil, fmt.Errorf("MAX_BATCH_SIZE must be positive, got %d", cfg.MaxBatchSize)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}
