package answer

import (
	"fmt"
	"strings"

	"github.com/bull/rag-server/internal/retriever"
	"github.com/bull/rag-server/internal/storage"
)

// sourcePreviewLimit bounds the content preview attached to a citation.
const sourcePreviewLimit = 200

// Assemble turns ranked chunks into the prompt context string and the
// citation list. Chunk texts are concatenated in rank order, each under a
// "Chunk N:" label, separated by blank lines. Every chunk contributes one
// SourceInfo; nothing is dropped or truncated at this layer.
func Assemble(chunks []retriever.RetrievedChunk) (string, []SourceInfo) {
	sections := make([]string, len(chunks))
	sources := make([]SourceInfo, len(chunks))

	for i, chunk := range chunks {
		sections[i] = fmt.Sprintf("Chunk %d:\n%s", chunk.Rank, chunk.Content)
		sources[i] = SourceInfo{
			Rank:            chunk.Rank,
			Filename:        chunk.Metadata[storage.MetaFilename],
			FileType:        chunk.Metadata[storage.MetaFileType],
			SimilarityScore: chunk.SimilarityScore,
			ContentPreview:  storage.Preview(chunk.Content, sourcePreviewLimit),
		}
	}

	return strings.Join(sections, "\n\n"), sources
}
