package answer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bull/rag-server/internal/retriever"
)

var errEmptyQuestion = errors.New("question must not be empty")

// FallbackAnswer is emitted when retrieval finds nothing relevant.
const FallbackAnswer = "I could not find any relevant documents to answer your question. Try rephrasing it, or upload documents that cover the topic first."

// state tracks where a streamed query is in its lifecycle.
type state int

const (
	stateIdle state = iota
	stateRetrieving
	stateSourcesReady
	stateGenerating
	stateComplete
	stateErrored
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateRetrieving:
		return "retrieving"
	case stateSourcesReady:
		return "sources_ready"
	case stateGenerating:
		return "generating"
	case stateComplete:
		return "complete"
	case stateErrored:
		return "errored"
	}
	return "unknown"
}

// ChunkRetriever is the slice of the retriever the streamer needs.
type ChunkRetriever interface {
	RetrieveTopK(ctx context.Context, question string, k int) ([]retriever.RetrievedChunk, error)
}

// Streamer answers questions as ordered event streams. Each query walks
// Idle, Retrieving, SourcesReady, Generating, Complete; any failure jumps
// to Errored, emits one error event, and stops.
type Streamer struct {
	retriever  ChunkRetriever
	completion TokenStreamer
	template   *Template
	logger     *slog.Logger
}

// NewStreamer creates a Streamer. A nil logger falls back to slog.Default.
func NewStreamer(r ChunkRetriever, completion TokenStreamer, template *Template, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Streamer{
		retriever:  r,
		completion: completion,
		template:   template,
		logger:     logger,
	}
}

// StreamQuery runs one query and returns its event channel. The channel is
// closed after the terminal event (complete or error). Canceling ctx stops
// generation; the stream then terminates with an error event.
func (s *Streamer) StreamQuery(ctx context.Context, question string, topK int) <-chan Event {
	events := make(chan Event)
	go s.run(ctx, question, topK, events)
	return events
}

// run executes the state machine, pushing events until a terminal state.
func (s *Streamer) run(ctx context.Context, question string, topK int, events chan<- Event) {
	defer close(events)
	start := time.Now()

	fail := func(st state, err error) {
		s.logger.Error("query stream failed", "state", st.String(), "error", err)
		s.send(ctx, events, ErrorEvent{Err: err.Error()})
	}

	if question == "" {
		fail(stateIdle, errEmptyQuestion)
		return
	}

	// Idle -> Retrieving
	if !s.send(ctx, events, StatusEvent{Message: "retrieving"}) {
		return
	}

	chunks, err := s.retriever.RetrieveTopK(ctx, question, topK)
	if err != nil {
		fail(stateRetrieving, err)
		return
	}

	// Retrieving -> SourcesReady
	promptContext, sources := Assemble(chunks)
	if !s.send(ctx, events, SourcesEvent{Sources: sources}) {
		return
	}

	if len(chunks) == 0 {
		// Nothing to ground an answer on: skip generation and close out
		// with the fallback.
		if !s.send(ctx, events, AnswerEvent{Answer: FallbackAnswer}) {
			return
		}
		s.send(ctx, events, CompleteEvent{
			ProcessingTime:  time.Since(start).Seconds(),
			RetrievedChunks: 0,
		})
		return
	}

	// SourcesReady -> Generating
	prompt := s.template.Render(promptContext, question)
	var sendFailed bool
	err = s.completion.StreamCompletion(ctx, prompt, func(token string) {
		if !s.send(ctx, events, AnswerEvent{Answer: token}) {
			sendFailed = true
		}
	})
	if sendFailed {
		return
	}
	if err != nil {
		fail(stateGenerating, err)
		return
	}

	// Generating -> Complete
	s.send(ctx, events, CompleteEvent{
		ProcessingTime:  time.Since(start).Seconds(),
		RetrievedChunks: len(chunks),
	})
}

// send delivers one event, reporting false when the consumer is gone.
func (s *Streamer) send(ctx context.Context, events chan<- Event, e Event) bool {
	select {
	case events <- e:
		return true
	case <-ctx.Done():
		return false
	}
}
