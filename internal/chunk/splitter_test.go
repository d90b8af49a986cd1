package chunk

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewSplitter_Validation(t *testing.T) {
	if _, err := NewSplitter(0, 0); err == nil {
		t.Error("expected error for zero chunk size")
	}
	if _, err := NewSplitter(100, -1); err == nil {
		t.Error("expected error for negative overlap")
	}
	if _, err := NewSplitter(100, 100); err == nil {
		t.Error("expected error for overlap equal to chunk size")
	}
	if _, err := NewSplitter(100, 20); err != nil {
		t.Errorf("unexpected error for valid parameters: %v", err)
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	s, _ := NewSplitter(1000, 200)
	if chunks := s.Split(""); chunks != nil {
		t.Errorf("expected nil for empty input, got %d chunks", len(chunks))
	}
}

func TestSplit_ShortInputSingleChunk(t *testing.T) {
	s, _ := NewSplitter(1000, 200)
	chunks := s.Split("short text")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "short text" {
		t.Errorf("chunk should be the input verbatim, got %q", chunks[0])
	}
}

// TestSplit_CharacterFallback covers the unbroken-text case: 2500 characters
// with no separators, chunk size 1000, overlap 200.
func TestSplit_CharacterFallback(t *testing.T) {
	input := strings.Repeat("A", 2500)
	s, _ := NewSplitter(1000, 200)

	chunks := s.Split(input)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 1000 {
			t.Errorf("chunk %d exceeds size limit: %d", i, len(c))
		}
	}
	// Adjacent chunks share an overlap: the end of each chunk is the start
	// of the next (200 characters, or the whole next chunk if shorter).
	for i := 0; i < len(chunks)-1; i++ {
		k := 200
		if len(chunks[i+1]) < k {
			k = len(chunks[i+1])
		}
		prevTail := chunks[i][len(chunks[i])-k:]
		nextHead := chunks[i+1][:k]
		if prevTail != nextHead {
			t.Errorf("chunks %d/%d do not share a %d-char overlap", i, i+1, k)
		}
	}
}

// TestSplit_ZeroOverlapPartition verifies that with zero overlap the chunk
// sequence exactly partitions the source text.
func TestSplit_ZeroOverlapPartition(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "Paragraph %02d with some filler text to give it length.\n\n", i)
	}
	input := b.String()

	s, _ := NewSplitter(150, 0)
	chunks := s.Split(input)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 150 {
			t.Errorf("chunk %d exceeds size limit: %d", i, len(c))
		}
		if c == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
	if got := strings.Join(chunks, ""); got != input {
		t.Error("concatenated chunks do not reconstruct the source text")
	}
}

// TestSplit_CoverageWithOverlap verifies chunks appear in reading order and
// jointly cover the whole document when overlap is non-zero.
func TestSplit_CoverageWithOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "Sentence number %02d lives on its own line here.\n", i)
	}
	input := b.String()

	s, _ := NewSplitter(120, 40)
	chunks := s.Split(input)

	pos := 0
	covered := 0
	for i, c := range chunks {
		idx := strings.Index(input[pos:], c)
		if idx < 0 {
			t.Fatalf("chunk %d is not a substring of the source at or after offset %d", i, pos)
		}
		start := pos + idx
		if start > covered {
			t.Fatalf("gap before chunk %d: coverage ends at %d but chunk starts at %d", i, covered, start)
		}
		if end := start + len(c); end > covered {
			covered = end
		}
		pos = start
	}
	if covered != len(input) {
		t.Errorf("chunks cover %d of %d bytes", covered, len(input))
	}
}

// TestSplit_PrefersParagraphBoundaries checks that paragraphs are kept whole
// when they fit, rather than being cut mid-sentence.
func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("alpha ", 20) // ~120 chars
	para2 := strings.Repeat("beta ", 20)  // ~100 chars
	input := para1 + "\n\n" + para2

	s, _ := NewSplitter(150, 0)
	chunks := s.Split(input)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks split at the paragraph boundary, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0], "alpha") || strings.Contains(chunks[0], "beta") {
		t.Errorf("first chunk should hold only the first paragraph")
	}
	if !strings.Contains(chunks[1], "beta") {
		t.Errorf("second chunk should hold the second paragraph")
	}
}

// TestSplit_OrderIsReadingOrder verifies chunk order matches document order.
func TestSplit_OrderIsReadingOrder(t *testing.T) {
	input := "first part\n\nsecond part\n\nthird part\n\nfourth part"
	s, _ := NewSplitter(15, 0)
	chunks := s.Split(input)

	joined := strings.Join(chunks, "")
	for _, word := range []string{"first", "second", "third", "fourth"} {
		if !strings.Contains(joined, word) {
			t.Fatalf("missing %q in output", word)
		}
	}
	if strings.Index(joined, "first") > strings.Index(joined, "second") ||
		strings.Index(joined, "second") > strings.Index(joined, "third") ||
		strings.Index(joined, "third") > strings.Index(joined, "fourth") {
		t.Error("chunks are not in document reading order")
	}
}
