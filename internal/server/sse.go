package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bull/rag-server/internal/answer"
)

// streamEvents writes each event as one server-sent event frame
// ("data: {json}\n\n") and flushes immediately so fragments reach the
// client as they arrive. Returns once the channel closes or the client
// disconnects.
func streamEvents(w http.ResponseWriter, r *http.Request, events <-chan answer.Event) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case event, open := <-events:
			if !open {
				return nil
			}
			data, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return err
			}
			flusher.Flush()
		case <-r.Context().Done():
			// Client went away; the producer sees the same context and
			// stops on its own.
			return r.Context().Err()
		}
	}
}
