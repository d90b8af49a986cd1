// Package main provides the RAG HTTP server entry point.
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/bull/rag-server/internal/answer"
	"github.com/bull/rag-server/internal/chunk"
	"github.com/bull/rag-server/internal/config"
	"github.com/bull/rag-server/internal/docparse"
	"github.com/bull/rag-server/internal/embedding"
	"github.com/bull/rag-server/internal/rag"
	"github.com/bull/rag-server/internal/retriever"
	"github.com/bull/rag-server/internal/server"
	"github.com/bull/rag-server/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("failed to open vector store: %v", err)
	}
	defer store.Close()

	client, err := embedding.NewClient(cfg.OpenAIBaseURL)
	if err != nil {
		log.Fatalf("failed to create API client: %v", err)
	}
	embedder := embedding.NewEmbedder(client, cfg.EmbeddingModel, cfg.MaxBatchSize)

	splitter, err := chunk.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("invalid chunking configuration: %v", err)
	}

	retr, err := retriever.New(embedder, store, cfg.Collection, cfg.TopK, cfg.SimilarityThreshold)
	if err != nil {
		log.Fatalf("invalid retrieval configuration: %v", err)
	}

	template := answer.NewTemplate()
	completion := answer.NewOpenAIStreamer(client, cfg.CompletionModel)
	streamer := answer.NewStreamer(retr, completion, template, logger)

	orch := rag.New(splitter, embedder, store, streamer, docparse.NewRegistry(), cfg.Collection, logger)

	srv := server.New(orch, template, logger)
	logger.Info("Starting RAG server",
		"backend", cfg.VectorBackend,
		"collection", cfg.Collection,
		"port", cfg.Port,
	)
	if err := srv.ListenAndServe(cfg.Port); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}

// newStore opens the configured vector store backend.
func newStore(cfg *config.Config) (storage.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		return storage.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort)
	default:
		return storage.NewChromemStore(cfg.ChromemPath)
	}
}
