package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bull/rag-server/internal/rag"
)

// queryRequest is the body of both query endpoints.
type queryRequest struct {
	Question string                 `json:"question"`
	History  []rag.ConversationTurn `json:"history,omitempty"`
	TopK     int                    `json:"top_k,omitempty"`
}

// ingestRequest names server-local files to ingest.
type ingestRequest struct {
	Paths []string `json:"paths"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusForError maps validation failures to 400 and everything else to 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, rag.ErrEmptyQuestion),
		errors.Is(err, rag.ErrEmptyDocument),
		errors.Is(err, rag.ErrEmptyFileList),
		errors.Is(err, rag.ErrEmptyFilename):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleStreamQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	question := rag.FoldHistory(req.Question, req.History)
	events := s.orch.StreamQuery(r.Context(), question, req.TopK)

	if err := streamEvents(w, r, events); err != nil {
		// The SSE stream is already underway; all we can do is log.
		s.logger.Warn("Stream ended early", "error", err)
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.orch.ConversationalQuery(r.Context(), req.Question, req.History, req.TopK)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.orch.IngestFiles(r.Context(), req.Paths)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	deleted, err := s.orch.DeleteDocument(r.Context(), filename)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename": filename,
		"deleted":  deleted,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.orch.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"healthy":      status.Healthy,
		"dimension":    status.Dimension,
		"record_count": status.RecordCount,
	})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"template": s.template.Get()})
}

func (s *Server) handlePutTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Template string `json:"template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.template.Set(req.Template); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"template": s.template.Get()})
}

// healthResponse is the JSON body of the /health endpoint.
type healthResponse struct {
	Status      string `json:"status"`
	VectorStore string `json:"vector_store"`
	Timestamp   string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	response := healthResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	status, err := s.orch.Status(ctx)
	if err != nil || !status.Healthy {
		response.Status = "unhealthy"
		response.VectorStore = "disconnected"
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	response.Status = "healthy"
	response.VectorStore = "connected"
	writeJSON(w, http.StatusOK, response)
}
