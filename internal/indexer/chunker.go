// Package indexer provides document chunking, index building and querying.
package indexer

import (
	"strings"

	"github.com/hyperjump/ragfuse/internal/models"
)

// Chunker splits document text into overlapping character windows.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// Returns a ConfigError if size is not positive or overlap is outside [0, size).
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if err := ValidateChunking(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}, nil
}

// ValidateChunking checks chunking parameters without building a chunker.
func ValidateChunking(chunkSize, chunkOverlap int) error {
	if chunkSize <= 0 {
		return models.ConfigError("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return models.ConfigError("chunk overlap must not be negative, got %d", chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return models.ConfigError("chunk overlap %d must be smaller than chunk size %d", chunkOverlap, chunkSize)
	}
	return nil
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.chunkSize }

// Overlap returns the configured overlap width.
func (c *Chunker) Overlap() int { return c.chunkOverlap }

// Chunk splits the document's text into chunks. Consecutive chunks share exactly Overlap
// characters; the last chunk may be shorter. Empty text yields no chunks.
func (c *Chunker) Chunk(doc *models.Document) []models.Chunk {
	return c.ChunkText(doc.ID, doc.Text())
}

// ChunkText splits text into chunks attributed to docID.
func (c *Chunker) ChunkText(docID, text string) []models.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	chunks := make([]models.Chunk, 0, n/step+1)
	for start := 0; ; start += step {
		end := start + c.chunkSize
		if end > n {
			end = n
		}
		chunks = append(chunks, models.Chunk{
			DocumentID: docID,
			Index:      len(chunks),
			Text:       string(runes[start:end]),
			Span:       models.Span{Start: start, End: end},
		})
		if end == n {
			break
		}
	}
	return chunks
}

// Chunk is a convenience wrapper that validates the parameters and chunks one document.
func Chunk(doc *models.Document, chunkSize, chunkOverlap int) ([]models.Chunk, error) {
	c, err := NewChunker(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	return c.Chunk(doc), nil
}

// Reconstruct joins the non-overlapping portions of one document's chunks back into its text.
// chunks must be in sequence order.
func Reconstruct(chunks []models.Chunk) string {
	var b strings.Builder
	covered := 0
	for _, ch := range chunks {
		runes := []rune(ch.Text)
		skip := covered - ch.Span.Start
		if skip < 0 {
			skip = 0
		}
		if skip < len(runes) {
			b.WriteString(string(runes[skip:]))
		}
		if ch.Span.End > covered {
			covered = ch.Span.End
		}
	}
	return b.String()
}
