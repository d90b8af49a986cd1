// Package rag composes the full pipeline: chunking, embedding and storage
// for ingestion; retrieval, context assembly and streamed generation for
// querying.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bull/rag-server/internal/answer"
	"github.com/bull/rag-server/internal/chunk"
	"github.com/bull/rag-server/internal/docparse"
	"github.com/bull/rag-server/internal/storage"
)

// historyLimit caps how many recent turns fold into a follow-up question.
const historyLimit = 3

// DocumentEmbedder is the slice of the embedding client ingestion needs.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// ConversationTurn is one prior question/answer pair. The caller owns the
// history; the orchestrator only reads the most recent turns.
type ConversationTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QueryResult is the aggregate outcome of a non-streaming query.
type QueryResult struct {
	Question        string              `json:"question"`
	Answer          string              `json:"answer"`
	Sources         []answer.SourceInfo `json:"sources"`
	ProcessingTime  float64             `json:"processing_time"`
	RetrievedChunks int                 `json:"retrieved_chunks"`
}

// FileResult records one successfully ingested file.
type FileResult struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
}

// FailedFile records one file that could not be ingested.
type FailedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// BatchResult is the per-file accounting of a batch ingestion. Files fail
// independently; one bad file never aborts the batch.
type BatchResult struct {
	ProcessedFiles []FileResult  `json:"processed_files"`
	FailedFiles    []FailedFile  `json:"failed_files"`
	TotalChunks    int           `json:"total_chunks"`
	Duration       time.Duration `json:"-"`
}

// Orchestrator wires the pipeline components together. It holds no
// per-request state, so concurrent ingestions and queries are safe.
type Orchestrator struct {
	splitter   *chunk.Splitter
	embedder   DocumentEmbedder
	store      storage.VectorStore
	streamer   *answer.Streamer
	parser     *docparse.Registry
	collection string
	logger     *slog.Logger
}

// New creates an Orchestrator. A nil logger falls back to slog.Default.
func New(
	splitter *chunk.Splitter,
	embedder DocumentEmbedder,
	store storage.VectorStore,
	streamer *answer.Streamer,
	parser *docparse.Registry,
	collection string,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		splitter:   splitter,
		embedder:   embedder,
		store:      store,
		streamer:   streamer,
		parser:     parser,
		collection: collection,
		logger:     logger,
	}
}

// Ingest chunks, embeds and upserts one document, returning the number of
// chunks added. Empty text or a text that chunks to nothing is a failure.
func (o *Orchestrator) Ingest(ctx context.Context, meta storage.DocumentMetadata, text string) (int, error) {
	if meta.Filename == "" {
		return 0, ErrEmptyFilename
	}
	if strings.TrimSpace(text) == "" {
		return 0, ErrEmptyDocument
	}

	chunks := o.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, ErrNoChunks
	}
	o.logger.Debug("Chunked document", "filename", meta.Filename, "chunks", len(chunks))

	embeddings, err := o.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embeddings: %w", err)
	}

	records := make([]storage.Record, len(chunks))
	for i, text := range chunks {
		records[i] = storage.Record{
			ID:       storage.ChunkID(meta.Filename, i),
			Vector:   embeddings[i],
			Text:     text,
			Metadata: storage.RecordMetadata(meta, i, len(chunks), text),
		}
	}

	if _, err := o.store.Upsert(ctx, o.collection, records); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	o.logger.Info("Ingested document", "filename", meta.Filename, "chunks", len(chunks))
	return len(chunks), nil
}

// IngestFiles parses and ingests each file independently, collecting
// per-file outcomes. Unparseable or failing files are recorded and skipped.
func (o *Orchestrator) IngestFiles(ctx context.Context, paths []string) (*BatchResult, error) {
	if len(paths) == 0 {
		return nil, ErrEmptyFileList
	}

	start := time.Now()
	result := &BatchResult{
		ProcessedFiles: []FileResult{},
		FailedFiles:    []FailedFile{},
	}

	for _, path := range paths {
		doc, err := o.parser.Parse(path)
		if err != nil {
			o.logger.Warn("Failed to parse file", "path", path, "error", err)
			result.FailedFiles = append(result.FailedFiles, FailedFile{
				Filename: path,
				Reason:   err.Error(),
			})
			continue
		}

		chunks, err := o.Ingest(ctx, doc.Metadata, doc.Content)
		if err != nil {
			o.logger.Warn("Failed to ingest file", "path", path, "error", err)
			result.FailedFiles = append(result.FailedFiles, FailedFile{
				Filename: doc.Metadata.Filename,
				Reason:   err.Error(),
			})
			continue
		}

		result.ProcessedFiles = append(result.ProcessedFiles, FileResult{
			Filename: doc.Metadata.Filename,
			Chunks:   chunks,
		})
		result.TotalChunks += chunks
	}

	result.Duration = time.Since(start)
	o.logger.Info("Batch ingestion complete",
		"processed", len(result.ProcessedFiles),
		"failed", len(result.FailedFiles),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)

	return result, nil
}

// StreamQuery answers a question as an ordered event stream.
func (o *Orchestrator) StreamQuery(ctx context.Context, question string, topK int) <-chan answer.Event {
	return o.streamer.StreamQuery(ctx, question, topK)
}

// Query answers a question and aggregates the stream into one result.
func (o *Orchestrator) Query(ctx context.Context, question string, topK int) (*QueryResult, error) {
	return o.query(ctx, question, question, topK)
}

// ConversationalQuery folds recent history into the question before
// retrieval. The original question is preserved in the result for display.
func (o *Orchestrator) ConversationalQuery(ctx context.Context, question string, history []ConversationTurn, topK int) (*QueryResult, error) {
	return o.query(ctx, FoldHistory(question, history), question, topK)
}

// query runs the streamer to completion and collects its events.
func (o *Orchestrator) query(ctx context.Context, effective, display string, topK int) (*QueryResult, error) {
	if effective == "" {
		return nil, ErrEmptyQuestion
	}

	result := &QueryResult{Question: display, Sources: []answer.SourceInfo{}}
	var answerText strings.Builder

	for event := range o.streamer.StreamQuery(ctx, effective, topK) {
		switch e := event.(type) {
		case answer.SourcesEvent:
			result.Sources = e.Sources
		case answer.AnswerEvent:
			answerText.WriteString(e.Answer)
		case answer.CompleteEvent:
			result.ProcessingTime = e.ProcessingTime
			result.RetrievedChunks = e.RetrievedChunks
		case answer.ErrorEvent:
			return nil, fmt.Errorf("query failed: %s", e.Err)
		}
	}

	result.Answer = answerText.String()
	return result, nil
}

// DeleteDocument removes every stored chunk of the named file and reports
// how many records were deleted.
func (o *Orchestrator) DeleteDocument(ctx context.Context, filename string) (int, error) {
	if filename == "" {
		return 0, ErrEmptyFilename
	}

	deleted, err := o.store.DeleteByFilter(ctx, o.collection, map[string]string{
		storage.MetaFilename: filename,
	})
	if err != nil {
		return 0, fmt.Errorf("delete document: %w", err)
	}

	o.logger.Info("Deleted document", "filename", filename, "records", deleted)
	return deleted, nil
}

// Status reports vector store health for the orchestrator's collection.
func (o *Orchestrator) Status(ctx context.Context) (storage.HealthStatus, error) {
	return o.store.HealthCheck(ctx, o.collection)
}

// FoldHistory renders the most recent conversation turns in front of the
// question so retrieval sees follow-ups in context. Empty history returns
// the question unchanged.
func FoldHistory(question string, history []ConversationTurn) string {
	if len(history) == 0 {
		return question
	}
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	var b strings.Builder
	b.WriteString("Given the following conversation history:\n\n")
	for i, turn := range history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s", turn.Question, turn.Answer)
	}
	fmt.Fprintf(&b, "\n\nCurrent question: %s", question)
	return b.String()
}
