// Package answer drives answer generation: it assembles retrieved chunks
// into a prompt, streams tokens from the completion model, and exposes the
// whole flow as an ordered event stream.
package answer

import "encoding/json"

// SourceInfo is one citation entry attached to a streamed answer.
type SourceInfo struct {
	Rank            int     `json:"rank"`
	Filename        string  `json:"filename"`
	FileType        string  `json:"file_type"`
	SimilarityScore float64 `json:"similarity_score"`
	ContentPreview  string  `json:"content_preview"`
}

// Event is one element of the stream emitted while answering a query.
// Each variant marshals to a JSON object carrying a "type" discriminator.
type Event interface {
	json.Marshaler
	event()
}

// StatusEvent reports a phase change, e.g. "retrieving".
type StatusEvent struct {
	Message string
}

// SourcesEvent carries the ranked citation list, emitted once per query
// before any answer fragment.
type SourcesEvent struct {
	Sources []SourceInfo
}

// AnswerEvent carries one answer fragment in upstream order.
type AnswerEvent struct {
	Answer string
}

// CompleteEvent terminates a successful stream.
type CompleteEvent struct {
	ProcessingTime  float64
	RetrievedChunks int
}

// ErrorEvent terminates a failed stream. No events follow it.
type ErrorEvent struct {
	Err string
}

func (StatusEvent) event()   {}
func (SourcesEvent) event()  {}
func (AnswerEvent) event()   {}
func (CompleteEvent) event() {}
func (ErrorEvent) event()    {}

func (e StatusEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{"status", e.Message})
}

func (e SourcesEvent) MarshalJSON() ([]byte, error) {
	sources := e.Sources
	if sources == nil {
		sources = []SourceInfo{}
	}
	return json.Marshal(struct {
		Type    string       `json:"type"`
		Sources []SourceInfo `json:"sources"`
	}{"sources", sources})
}

func (e AnswerEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Answer string `json:"answer"`
	}{"answer", e.Answer})
}

// MarshalJSON always writes retrieved_chunks, zero included: a client must
// be able to tell "answered from nothing" apart from a missing field.
func (e CompleteEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type            string  `json:"type"`
		ProcessingTime  float64 `json:"processing_time"`
		RetrievedChunks int     `json:"retrieved_chunks"`
	}{"complete", e.ProcessingTime, e.RetrievedChunks})
}

func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}{"error", e.Err})
}
