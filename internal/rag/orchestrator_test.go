package rag

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/rag-server/internal/answer"
	"github.com/bull/rag-server/internal/chunk"
	"github.com/bull/rag-server/internal/docparse"
	"github.com/bull/rag-server/internal/retriever"
	"github.com/bull/rag-server/internal/storage"
)

const embedDim = 8

// hashEmbedder produces deterministic vectors without a network call.
// Identical texts embed identically, so similarity search still behaves.
type hashEmbedder struct{}

func hashVector(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	v := make([]float32, embedDim)
	for i := range v {
		seed = seed*1664525 + 1013904223
		v[i] = float32(seed%1000)/1000 + 0.001
	}
	return v
}

func (hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t)
	}
	return out, nil
}

func (hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return hashVector(text), nil
}

type fixedCompletion struct {
	tokens []string
}

func (f *fixedCompletion) StreamCompletion(_ context.Context, _ string, emit func(string)) error {
	for _, tok := range f.tokens {
		emit(tok)
	}
	return nil
}

func newTestOrchestrator(t *testing.T, tokens []string) (*Orchestrator, *storage.ChromemStore) {
	t.Helper()

	store, err := storage.NewChromemStore("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	splitter, err := chunk.NewSplitter(1000, 200)
	require.NoError(t, err)

	embedder := hashEmbedder{}
	r, err := retriever.New(embedder, store, "docs", 5, 0)
	require.NoError(t, err)

	streamer := answer.NewStreamer(r, &fixedCompletion{tokens: tokens}, answer.NewTemplate(), nil)

	return New(splitter, embedder, store, streamer, docparse.NewRegistry(), "docs", nil), store
}

func TestIngestEmptyDocument(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	meta := storage.DocumentMetadata{Filename: "empty.txt", FileType: "txt"}

	chunks, err := o.Ingest(context.Background(), meta, "")
	assert.ErrorIs(t, err, ErrEmptyDocument)
	assert.Zero(t, chunks)

	chunks, err = o.Ingest(context.Background(), meta, "   \n\t")
	assert.ErrorIs(t, err, ErrEmptyDocument)
	assert.Zero(t, chunks)
}

func TestIngestMissingFilename(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	_, err := o.Ingest(context.Background(), storage.DocumentMetadata{}, "content")
	assert.ErrorIs(t, err, ErrEmptyFilename)
}

func TestIngestRoundTrip(t *testing.T) {
	o, store := newTestOrchestrator(t, nil)
	ctx := context.Background()

	meta := storage.DocumentMetadata{Filename: "notes.txt", FileType: "txt"}
	chunks, err := o.Ingest(ctx, meta, "some short document about vector search")
	require.NoError(t, err)
	assert.Equal(t, 1, chunks)

	status, err := store.HealthCheck(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, status.RecordCount)
}

func TestIngestIdempotent(t *testing.T) {
	o, store := newTestOrchestrator(t, nil)
	ctx := context.Background()

	meta := storage.DocumentMetadata{Filename: "repeat.txt", FileType: "txt"}
	text := "the same document ingested twice"

	_, err := o.Ingest(ctx, meta, text)
	require.NoError(t, err)
	_, err = o.Ingest(ctx, meta, text)
	require.NoError(t, err)

	status, err := store.HealthCheck(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, status.RecordCount, "Re-ingestion must overwrite, not duplicate")
}

func TestIngestFilesPerFileAccounting(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.txt")
	require.NoError(t, os.WriteFile(good, []byte("useful content"), 0o644))

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte(""), 0o644))

	unsupported := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(unsupported, []byte("binary"), 0o644))

	result, err := o.IngestFiles(context.Background(), []string{good, empty, unsupported})
	require.NoError(t, err, "One bad file must not abort the batch")

	require.Len(t, result.ProcessedFiles, 1)
	assert.Equal(t, "good.txt", result.ProcessedFiles[0].Filename)
	assert.Equal(t, 1, result.ProcessedFiles[0].Chunks)
	assert.Equal(t, 1, result.TotalChunks)

	require.Len(t, result.FailedFiles, 2)
	reasons := map[string]string{}
	for _, f := range result.FailedFiles {
		reasons[f.Filename] = f.Reason
	}
	assert.Contains(t, reasons["empty.txt"], ErrEmptyDocument.Error())
	assert.Contains(t, reasons[unsupported], "unsupported file type")
}

func TestIngestFilesEmptyList(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	_, err := o.IngestFiles(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyFileList)
}

func TestQueryAggregatesStream(t *testing.T) {
	o, _ := newTestOrchestrator(t, []string{"Hel", "lo", ", world"})
	ctx := context.Background()

	meta := storage.DocumentMetadata{Filename: "doc.txt", FileType: "txt"}
	_, err := o.Ingest(ctx, meta, "vector stores hold embeddings")
	require.NoError(t, err)

	result, err := o.Query(ctx, "what holds embeddings?", 5)
	require.NoError(t, err)

	assert.Equal(t, "what holds embeddings?", result.Question)
	assert.Equal(t, "Hello, world", result.Answer)
	assert.Equal(t, 1, result.RetrievedChunks)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "doc.txt", result.Sources[0].Filename)
	assert.GreaterOrEqual(t, result.ProcessingTime, 0.0)
}

func TestQueryEmptyCollection(t *testing.T) {
	o, _ := newTestOrchestrator(t, []string{"never streamed"})

	result, err := o.Query(context.Background(), "anything?", 5)
	require.NoError(t, err)

	assert.Equal(t, answer.FallbackAnswer, result.Answer)
	assert.Zero(t, result.RetrievedChunks)
	assert.Empty(t, result.Sources)
}

func TestQueryEmptyQuestion(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	_, err := o.Query(context.Background(), "", 5)
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestConversationalQueryKeepsOriginalQuestion(t *testing.T) {
	o, _ := newTestOrchestrator(t, []string{"answer"})
	ctx := context.Background()

	meta := storage.DocumentMetadata{Filename: "doc.txt", FileType: "txt"}
	_, err := o.Ingest(ctx, meta, "some background material")
	require.NoError(t, err)

	history := []ConversationTurn{{Question: "first?", Answer: "one"}}
	result, err := o.ConversationalQuery(ctx, "and then?", history, 5)
	require.NoError(t, err)

	assert.Equal(t, "and then?", result.Question, "The displayed question must not include folded history")
}

func TestFoldHistory(t *testing.T) {
	assert.Equal(t, "bare question", FoldHistory("bare question", nil))

	history := []ConversationTurn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
	}
	folded := FoldHistory("q3?", history)
	assert.Equal(t,
		"Given the following conversation history:\n\nQ: q1\nA: a1\n\nQ: q2\nA: a2\n\nCurrent question: q3?",
		folded)
}

func TestFoldHistoryKeepsLastThreeTurns(t *testing.T) {
	history := []ConversationTurn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
		{Question: "q3", Answer: "a3"},
		{Question: "q4", Answer: "a4"},
	}
	folded := FoldHistory("latest?", history)

	assert.NotContains(t, folded, "q1")
	assert.Contains(t, folded, "Q: q2")
	assert.Contains(t, folded, "Q: q4")
	assert.Contains(t, folded, "Current question: latest?")
}

func TestDeleteDocument(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	ctx := context.Background()

	_, err := o.Ingest(ctx, storage.DocumentMetadata{Filename: "keep.txt", FileType: "txt"}, "kept content")
	require.NoError(t, err)
	_, err = o.Ingest(ctx, storage.DocumentMetadata{Filename: "drop.txt", FileType: "txt"}, "dropped content")
	require.NoError(t, err)

	deleted, err := o.DeleteDocument(ctx, "drop.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	status, err := o.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.RecordCount)

	_, err = o.DeleteDocument(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyFilename)
}
