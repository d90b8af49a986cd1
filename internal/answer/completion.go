package answer

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/bull/rag-server/internal/embedding"
)

// DefaultCompletionModel is used when no completion model is configured.
const DefaultCompletionModel = "gpt-4o-mini"

// TokenStreamer produces a completion for a prompt, delivering fragments
// through emit in upstream order. Returning from emit unblocks the next
// fragment; the streamer stops when ctx is canceled.
type TokenStreamer interface {
	StreamCompletion(ctx context.Context, prompt string, emit func(token string)) error
}

// OpenAIStreamer streams chat completions from an OpenAI-compatible API.
type OpenAIStreamer struct {
	client *embedding.Client
	model  string
}

// NewOpenAIStreamer creates a streamer sharing the embedding package's API
// client. Empty model means DefaultCompletionModel.
func NewOpenAIStreamer(client *embedding.Client, model string) *OpenAIStreamer {
	if model == "" {
		model = DefaultCompletionModel
	}
	return &OpenAIStreamer{client: client, model: model}
}

// StreamCompletion requests a streamed chat completion and forwards each
// non-empty content delta to emit.
func (s *OpenAIStreamer) StreamCompletion(ctx context.Context, prompt string, emit func(token string)) error {
	stream := s.client.Client().Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(s.model),
	})
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			emit(delta)
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("completion stream failed: %w", err)
	}
	return nil
}
