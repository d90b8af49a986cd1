package storage

import (
	"strconv"
	"time"
)

// DocumentMetadata describes a parsed source document. It is produced by
// the document parser and immutable once created.
type DocumentMetadata struct {
	Filename      string // unique key within a collection
	FileType      string // extension without the dot, e.g. "md"
	FileSizeBytes int64
	UploadTime    time.Time
	Author        string // optional
	Title         string // optional
}

// Record is a single vector entry as persisted by a VectorStore. Metadata
// holds the flattened document fields plus per-chunk bookkeeping; values are
// strings so both backends store them uniformly.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// SearchHit is one nearest-neighbor result. Distance is the backend-native
// raw score; its meaning is given by the store's Metric.
type SearchHit struct {
	ID       string
	Text     string
	Metadata map[string]string
	Distance float32
}

// Metadata keys shared by both backends.
const (
	MetaFilename       = "filename"
	MetaFileType       = "file_type"
	MetaFileSize       = "file_size"
	MetaUploadTime     = "upload_time"
	MetaChunkIndex     = "chunk_index"
	MetaChunkCount     = "chunk_count"
	MetaContentPreview = "content_preview"
	MetaAuthor         = "author"
	MetaTitle          = "title"
)

// previewLimit bounds the content_preview stored alongside each record.
const previewLimit = 100

// RecordMetadata flattens document metadata and chunk bookkeeping into the
// map stored with a record.
func RecordMetadata(meta DocumentMetadata, index, count int, text string) map[string]string {
	m := map[string]string{
		MetaFilename:       meta.Filename,
		MetaFileType:       meta.FileType,
		MetaFileSize:       strconv.FormatInt(meta.FileSizeBytes, 10),
		MetaUploadTime:     meta.UploadTime.UTC().Format(time.RFC3339),
		MetaChunkIndex:     strconv.Itoa(index),
		MetaChunkCount:     strconv.Itoa(count),
		MetaContentPreview: Preview(text, previewLimit),
	}
	if meta.Author != "" {
		m[MetaAuthor] = meta.Author
	}
	if meta.Title != "" {
		m[MetaTitle] = meta.Title
	}
	return m
}

// Preview truncates text to at most limit runes, appending an ellipsis
// marker when anything was cut.
func Preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
