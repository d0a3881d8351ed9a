// Package chunker splits document text into overlapping windows so a concept
// spanning a window boundary still appears intact in at least one chunk.
package chunker

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 200
)

// Chunk is one bounded segment of a document, tagged with enough metadata to
// recover its origin after retrieval. Source is always the bare filename.
type Chunk struct {
	Text   string
	Source string
	Offset int // rune offset of the chunk start within the document
}

// ChunkingError reports which file could not be turned into chunks.
type ChunkingError struct {
	Filename string
	Err      error
}

func (e *ChunkingError) Error() string {
	return fmt.Sprintf("chunking %s failed: %v", e.Filename, e.Err)
}

func (e *ChunkingError) Unwrap() error { return e.Err }

type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split cuts text into overlapping rune windows. The name may carry a
// storage path; only its base becomes the chunk source. Empty or
// whitespace-only text yields a ChunkingError, never a silent zero-chunk
// result, so a document either indexes completely or not at all.
func (c *Chunker) Split(name, text string) ([]Chunk, error) {
	source := filepath.Base(strings.TrimSpace(name))
	if source == "" || source == "." {
		return nil, &ChunkingError{Filename: name, Err: fmt.Errorf("missing document name")}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ChunkingError{Filename: source, Err: fmt.Errorf("no extractable text")}
	}

	runes := []rune(text)
	step := c.size - c.overlap

	var chunks []Chunk
	for i := 0; i < len(runes); i += step {
		end := i + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Text:   string(runes[i:end]),
			Source: source,
			Offset: i,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
