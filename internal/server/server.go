// Package server exposes the pipeline over HTTP: document ingestion and
// deletion, streaming and aggregate queries, prompt template management,
// and health.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bull/rag-server/internal/answer"
	"github.com/bull/rag-server/internal/rag"
)

// Server holds the HTTP surface's dependencies.
type Server struct {
	orch     *rag.Orchestrator
	template *answer.Template
	logger   *slog.Logger
}

// New creates a Server. A nil logger falls back to slog.Default.
func New(orch *rag.Orchestrator, template *answer.Template, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{orch: orch, template: template, logger: logger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/query/stream", s.handleStreamQuery)
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("POST /api/documents", s.handleIngest)
	mux.HandleFunc("DELETE /api/documents/{filename}", s.handleDelete)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/template", s.handleGetTemplate)
	mux.HandleFunc("PUT /api/template", s.handlePutTemplate)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// ListenAndServe runs the HTTP server on the given port until it fails.
func (s *Server) ListenAndServe(port string) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%s", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("HTTP server listening", "port", port)
	return srv.ListenAndServe()
}
