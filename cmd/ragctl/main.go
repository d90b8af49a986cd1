// Package main provides the ragctl CLI for managing the RAG document index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/rag-server/internal/answer"
	"github.com/bull/rag-server/internal/chunk"
	"github.com/bull/rag-server/internal/config"
	"github.com/bull/rag-server/internal/docparse"
	"github.com/bull/rag-server/internal/embedding"
	ghclient "github.com/bull/rag-server/internal/github"
	"github.com/bull/rag-server/internal/rag"
	"github.com/bull/rag-server/internal/retriever"
	"github.com/bull/rag-server/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "RAG document index management tool",
	Long: `CLI tool for ingesting, querying and maintaining the RAG document index.

Environment variables:
  VECTOR_BACKEND   "chromem" (embedded, default) or "qdrant"
  QDRANT_HOST      Qdrant hostname (default: localhost)
  QDRANT_PORT      Qdrant gRPC port (default: 6334)
  CHROMEM_PATH     On-disk path for the embedded store (default: in-memory)
  OPENAI_API_KEY   API key for embeddings and completions (required)
  GITHUB_TOKEN     GitHub token for higher rate limits (optional)`,
}

var (
	topK        int
	githubOwner string
	githubRepo  string
	githubPath  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest local documents into the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

var ingestGitHubCmd = &cobra.Command{
	Use:   "ingest-github",
	Short: "Ingest all markdown files from a GitHub repository directory",
	RunE:  runIngestGitHub,
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question against the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <filename>",
	Short: "Remove every chunk of a document from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vector store health and record counts",
	RunE:  runStatus,
}

func init() {
	queryCmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to retrieve (default from config)")

	ingestGitHubCmd.Flags().StringVar(&githubOwner, "owner", "", "repository owner (required)")
	ingestGitHubCmd.Flags().StringVar(&githubRepo, "repo", "", "repository name (required)")
	ingestGitHubCmd.Flags().StringVar(&githubPath, "path", "", "directory within the repository")
	_ = ingestGitHubCmd.MarkFlagRequired("owner")
	_ = ingestGitHubCmd.MarkFlagRequired("repo")

	rootCmd.AddCommand(ingestCmd, ingestGitHubCmd, queryCmd, deleteCmd, statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// pipeline bundles everything a command might need.
type pipeline struct {
	cfg   *config.Config
	store storage.VectorStore
	orch  *rag.Orchestrator
}

// buildPipeline wires the full component stack from environment config.
func buildPipeline() (*pipeline, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var store storage.VectorStore
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		store, err = storage.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort)
	default:
		store, err = storage.NewChromemStore(cfg.ChromemPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	client, err := embedding.NewClient(cfg.OpenAIBaseURL)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	embedder := embedding.NewEmbedder(client, cfg.EmbeddingModel, cfg.MaxBatchSize)

	splitter, err := chunk.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		store.Close()
		return nil, err
	}

	retr, err := retriever.New(embedder, store, cfg.Collection, cfg.TopK, cfg.SimilarityThreshold)
	if err != nil {
		store.Close()
		return nil, err
	}

	completion := answer.NewOpenAIStreamer(client, cfg.CompletionModel)
	streamer := answer.NewStreamer(retr, completion, answer.NewTemplate(), slog.Default())
	orch := rag.New(splitter, embedder, store, streamer, docparse.NewRegistry(), cfg.Collection, slog.Default())

	return &pipeline{cfg: cfg, store: store, orch: orch}, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline()
	if err != nil {
		return err
	}
	defer p.store.Close()

	result, err := p.orch.IngestFiles(context.Background(), args)
	if err != nil {
		return err
	}

	printBatchResult(result)
	return nil
}

func runIngestGitHub(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	p, err := buildPipeline()
	if err != nil {
		return err
	}
	defer p.store.Close()

	gh, err := ghclient.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}
	fetcher := ghclient.NewFetcher(gh, githubOwner, githubRepo, githubPath)

	paths, err := fetcher.ListDocs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	fmt.Printf("Found %d markdown files in %s/%s\n", len(paths), githubOwner, githubRepo)

	var processed, failed, chunks int
	for _, docPath := range paths {
		doc, err := fetcher.FetchDoc(ctx, docPath)
		if err != nil {
			fmt.Printf("  failed %s: %v\n", docPath, err)
			failed++
			continue
		}

		meta := storage.DocumentMetadata{
			Filename:      doc.Path,
			FileType:      "md",
			FileSizeBytes: int64(len(doc.Content)),
			UploadTime:    time.Now().UTC(),
			Title:         docparse.MarkdownTitle([]byte(doc.Content)),
		}

		added, err := p.orch.Ingest(ctx, meta, doc.Content)
		if err != nil {
			fmt.Printf("  failed %s: %v\n", docPath, err)
			failed++
			continue
		}
		processed++
		chunks += added
	}

	fmt.Println()
	fmt.Printf("Ingested %d/%d documents, %d chunks, in %s\n",
		processed, len(paths), chunks, time.Since(start).Round(time.Second))
	if failed > 0 {
		return fmt.Errorf("%d documents failed", failed)
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline()
	if err != nil {
		return err
	}
	defer p.store.Close()

	result, err := p.orch.Query(context.Background(), args[0], topK)
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range result.Sources {
			fmt.Printf("  %d. %s (score %.3f)\n", src.Rank, src.Filename, src.SimilarityScore)
		}
	}
	fmt.Println()
	fmt.Printf("Retrieved %d chunks in %.2fs\n", result.RetrievedChunks, result.ProcessingTime)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline()
	if err != nil {
		return err
	}
	defer p.store.Close()

	deleted, err := p.orch.DeleteDocument(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %d records for %s\n", deleted, args[0])
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline()
	if err != nil {
		return err
	}
	defer p.store.Close()

	status, err := p.orch.Status(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Backend:    %s\n", p.cfg.VectorBackend)
	fmt.Printf("Collection: %s\n", p.cfg.Collection)
	fmt.Printf("Healthy:    %t\n", status.Healthy)
	fmt.Printf("Dimension:  %d\n", status.Dimension)
	fmt.Printf("Records:    %d\n", status.RecordCount)
	return nil
}

func printBatchResult(result *rag.BatchResult) {
	fmt.Printf("Ingested %d files, %d chunks, in %s\n",
		len(result.ProcessedFiles), result.TotalChunks, result.Duration.Round(time.Millisecond))
	for _, f := range result.ProcessedFiles {
		fmt.Printf("  %s: %d chunks\n", f.Filename, f.Chunks)
	}
	if len(result.FailedFiles) > 0 {
		fmt.Println()
		fmt.Println("Failed files:")
		for _, f := range result.FailedFiles {
			fmt.Printf("  - %s: %s\n", f.Filename, f.Reason)
		}
	}
}
