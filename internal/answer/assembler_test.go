package answer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/rag-server/internal/retriever"
	"github.com/bull/rag-server/internal/storage"
)

func TestAssemble(t *testing.T) {
	chunks := []retriever.RetrievedChunk{
		{
			Content:         "first chunk text",
			Metadata:        map[string]string{storage.MetaFilename: "a.md", storage.MetaFileType: "md"},
			SimilarityScore: 0.9,
			Rank:            1,
		},
		{
			Content:         "second chunk text",
			Metadata:        map[string]string{storage.MetaFilename: "b.txt", storage.MetaFileType: "txt"},
			SimilarityScore: 0.7,
			Rank:            2,
		},
	}

	promptContext, sources := Assemble(chunks)

	assert.Equal(t, "Chunk 1:\nfirst chunk text\n\nChunk 2:\nsecond chunk text", promptContext)

	require.Len(t, sources, 2)
	assert.Equal(t, SourceInfo{
		Rank:            1,
		Filename:        "a.md",
		FileType:        "md",
		SimilarityScore: 0.9,
		ContentPreview:  "first chunk text",
	}, sources[0])
	assert.Equal(t, "b.txt", sources[1].Filename)
}

func TestAssemblePreviewTruncation(t *testing.T) {
	long := strings.Repeat("x", 500)
	chunks := []retriever.RetrievedChunk{{
		Content:  long,
		Metadata: map[string]string{storage.MetaFilename: "long.txt"},
		Rank:     1,
	}}

	promptContext, sources := Assemble(chunks)

	// The full text goes into the prompt; only the citation preview is cut.
	assert.Contains(t, promptContext, long)
	require.Len(t, sources, 1)
	assert.Equal(t, strings.Repeat("x", 200)+"...", sources[0].ContentPreview)
}

func TestAssembleEmpty(t *testing.T) {
	promptContext, sources := Assemble(nil)
	assert.Empty(t, promptContext)
	assert.Empty(t, sources)
	assert.NotNil(t, sources)
}
