// Package chunk splits normalized document text into overlapping segments
// suitable for embedding and retrieval.
package chunk

import (
	"fmt"
	"strings"
)

// defaultSeparators is the boundary hierarchy, largest granularity first.
// Paragraph breaks are preferred, then line breaks, then word breaks; text
// with none of these is cut at the character level.
var defaultSeparators = []string{"\n\n", "\n", " "}

// Splitter recursively splits text on a separator hierarchy, producing
// chunks of at most chunkSize with an overlap carried across boundaries.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter creates a Splitter. chunkSize must be positive and overlap
// must satisfy 0 <= overlap < chunkSize.
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap)
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}, nil
}

// Split breaks text into ordered, non-empty chunks. The position of a chunk
// in the returned slice is its permanent index within the document.
// Empty input yields nil; callers treat that as an ingestion failure.
//
// Separators are kept attached to the piece they terminate, so with zero
// overlap the chunk sequence exactly partitions the source text.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}

	for i, sep := range separators {
		if !strings.Contains(text, sep) {
			continue
		}

		pieces := splitKeep(text, sep)
		var out, pending []string
		flush := func() {
			out = append(out, s.merge(pending)...)
			pending = nil
		}
		for _, p := range pieces {
			if len(p) <= s.chunkSize {
				pending = append(pending, p)
				continue
			}
			// Oversized piece: emit what we have, then recurse with
			// finer separators. Recursive results are final chunks and
			// must not be re-merged.
			flush()
			out = append(out, s.split(p, separators[i+1:])...)
		}
		flush()
		return out
	}

	return s.window(text)
}

// merge greedily packs adjacent pieces into chunks of at most chunkSize.
// When a chunk is emitted, trailing pieces totaling at most overlap bytes
// are retained as the start of the next chunk; the retained tail shrinks
// further if the incoming piece would not otherwise fit.
func (s *Splitter) merge(pieces []string) []string {
	var out []string
	var buf []string
	total := 0

	for _, p := range pieces {
		if len(buf) > 0 && total+len(p) > s.chunkSize {
			out = append(out, strings.Join(buf, ""))
			for len(buf) > 0 && (total > s.overlap || total+len(p) > s.chunkSize) {
				total -= len(buf[0])
				buf = buf[1:]
			}
		}
		buf = append(buf, p)
		total += len(p)
	}
	if len(buf) > 0 {
		out = append(out, strings.Join(buf, ""))
	}
	return out
}

// window is the character-level fallback for text containing no separator:
// a sliding window of chunkSize advancing by chunkSize-overlap. It operates
// on runes so multi-byte text is never cut mid-character.
func (s *Splitter) window(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.overlap

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// splitKeep splits text on sep, keeping the separator attached to the
// preceding piece. Empty pieces are dropped.
func splitKeep(text, sep string) []string {
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		if i < len(parts)-1 {
			part += sep
		}
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
