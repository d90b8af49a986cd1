// Package docparse turns files on disk into ingestable documents: raw text
// plus DocumentMetadata. Each supported file type has its own parser;
// unsupported types are reported so batch ingestion can skip the file and
// move on.
package docparse

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bull/rag-server/internal/storage"
)

// ErrUnsupportedType marks a file no registered parser can handle.
var ErrUnsupportedType = errors.New("unsupported file type")

// Document is a parsed file ready for ingestion.
type Document struct {
	Content  string
	Metadata storage.DocumentMetadata
}

// Parser extracts text and metadata from one family of file types.
type Parser interface {
	// Extensions lists the lowercase file extensions handled, without dots.
	Extensions() []string
	// Parse reads the file and produces its document.
	Parse(path string) (Document, error)
}

// Registry dispatches files to parsers by extension.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns a registry with the built-in parsers: plain text and
// markdown.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	r.Register(&TextParser{})
	r.Register(&MarkdownParser{})
	return r
}

// Register adds a parser for each of its extensions, replacing any earlier
// registration.
func (r *Registry) Register(p Parser) {
	for _, ext := range p.Extensions() {
		r.parsers[ext] = p
	}
}

// Supported reports whether the path's extension has a parser.
func (r *Registry) Supported(path string) bool {
	_, ok := r.parsers[extOf(path)]
	return ok
}

// Parse dispatches the file to its parser. Unknown extensions return
// ErrUnsupportedType.
func (r *Registry) Parse(path string) (Document, error) {
	ext := extOf(path)
	p, ok := r.parsers[ext]
	if !ok {
		return Document{}, fmt.Errorf("%w: .%s", ErrUnsupportedType, ext)
	}
	return p.Parse(path)
}

func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// baseMetadata fills the fields every parser shares.
func baseMetadata(path string, size int64) storage.DocumentMetadata {
	return storage.DocumentMetadata{
		Filename:      filepath.Base(path),
		FileType:      extOf(path),
		FileSizeBytes: size,
		UploadTime:    time.Now().UTC(),
	}
}

// readFile loads the file and returns its content plus shared metadata.
func readFile(path string) (string, storage.DocumentMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", storage.DocumentMetadata{}, fmt.Errorf("failed to stat file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", storage.DocumentMetadata{}, fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), baseMetadata(path, info.Size()), nil
}
