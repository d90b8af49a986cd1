package answer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/rag-server/internal/retriever"
	"github.com/bull/rag-server/internal/storage"
)

type fakeRetriever struct {
	chunks []retriever.RetrievedChunk
	err    error
}

func (f *fakeRetriever) RetrieveTopK(_ context.Context, _ string, _ int) ([]retriever.RetrievedChunk, error) {
	return f.chunks, f.err
}

type fakeCompletion struct {
	tokens []string
	err    error
}

func (f *fakeCompletion) StreamCompletion(_ context.Context, _ string, emit func(string)) error {
	for _, tok := range f.tokens {
		emit(tok)
	}
	return f.err
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, e)
		case <-timeout:
			t.Fatal("timed out waiting for event stream to close")
		}
	}
}

func testChunks() []retriever.RetrievedChunk {
	return []retriever.RetrievedChunk{{
		Content:         "relevant text",
		Metadata:        map[string]string{storage.MetaFilename: "doc.md", storage.MetaFileType: "md"},
		SimilarityScore: 0.9,
		Rank:            1,
	}}
}

func TestStreamQueryTokenOrder(t *testing.T) {
	s := NewStreamer(
		&fakeRetriever{chunks: testChunks()},
		&fakeCompletion{tokens: []string{"Hel", "lo", ", world"}},
		NewTemplate(),
		nil,
	)

	events := collect(t, s.StreamQuery(context.Background(), "greeting?", 5))
	require.Len(t, events, 6)

	assert.Equal(t, StatusEvent{Message: "retrieving"}, events[0])

	sources, ok := events[1].(SourcesEvent)
	require.True(t, ok, "second event must carry sources")
	require.Len(t, sources.Sources, 1)
	assert.Equal(t, "doc.md", sources.Sources[0].Filename)

	// Answer fragments must preserve upstream payloads and order.
	assert.Equal(t, AnswerEvent{Answer: "Hel"}, events[2])
	assert.Equal(t, AnswerEvent{Answer: "lo"}, events[3])
	assert.Equal(t, AnswerEvent{Answer: ", world"}, events[4])

	complete, ok := events[5].(CompleteEvent)
	require.True(t, ok, "stream must end with a complete event")
	assert.Equal(t, 1, complete.RetrievedChunks)
	assert.GreaterOrEqual(t, complete.ProcessingTime, 0.0)
}

func TestStreamQueryZeroResults(t *testing.T) {
	s := NewStreamer(
		&fakeRetriever{},
		&fakeCompletion{tokens: []string{"never emitted"}},
		NewTemplate(),
		nil,
	)

	events := collect(t, s.StreamQuery(context.Background(), "anything?", 5))
	require.Len(t, events, 4)

	assert.Equal(t, StatusEvent{Message: "retrieving"}, events[0])

	sources, ok := events[1].(SourcesEvent)
	require.True(t, ok)
	assert.Empty(t, sources.Sources)

	// Generation is skipped entirely: the fallback answer stands in.
	assert.Equal(t, AnswerEvent{Answer: FallbackAnswer}, events[2])

	complete, ok := events[3].(CompleteEvent)
	require.True(t, ok)
	assert.Equal(t, 0, complete.RetrievedChunks)
}

func TestStreamQueryRetrievalError(t *testing.T) {
	s := NewStreamer(
		&fakeRetriever{err: errors.New("store unreachable")},
		&fakeCompletion{},
		NewTemplate(),
		nil,
	)

	events := collect(t, s.StreamQuery(context.Background(), "q", 5))
	require.Len(t, events, 2)

	assert.Equal(t, StatusEvent{Message: "retrieving"}, events[0])
	errEvent, ok := events[1].(ErrorEvent)
	require.True(t, ok, "error event must terminate the stream")
	assert.Contains(t, errEvent.Err, "store unreachable")
}

func TestStreamQueryGenerationError(t *testing.T) {
	s := NewStreamer(
		&fakeRetriever{chunks: testChunks()},
		&fakeCompletion{tokens: []string{"partial"}, err: errors.New("model timeout")},
		NewTemplate(),
		nil,
	)

	events := collect(t, s.StreamQuery(context.Background(), "q", 5))
	require.NotEmpty(t, events)

	last, ok := events[len(events)-1].(ErrorEvent)
	require.True(t, ok, "generation failure must end with an error event")
	assert.Contains(t, last.Err, "model timeout")

	// The partial fragment is still delivered before the error.
	assert.Contains(t, events, Event(AnswerEvent{Answer: "partial"}))
}

func TestStreamQueryEmptyQuestion(t *testing.T) {
	s := NewStreamer(&fakeRetriever{}, &fakeCompletion{}, NewTemplate(), nil)

	events := collect(t, s.StreamQuery(context.Background(), "", 5))
	require.Len(t, events, 1)
	_, ok := events[0].(ErrorEvent)
	assert.True(t, ok)
}

func TestStreamQueryConsumerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStreamer(
		&fakeRetriever{chunks: testChunks()},
		&fakeCompletion{tokens: []string{"a", "b", "c"}},
		NewTemplate(),
		nil,
	)

	events := s.StreamQuery(ctx, "q", 5)

	// Read the status event, then walk away.
	<-events
	cancel()

	// The producer must notice and close the channel instead of blocking.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("stream did not terminate after consumer cancellation")
		}
	}
}
