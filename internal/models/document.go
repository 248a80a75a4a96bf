// Package models defines core data structures for documents, chunks, retrieval results and fused contexts.
package models

import (
	"fmt"
	"strings"
	"time"
)

// PageSeparator joins the pages of a document into its full text.
const PageSeparator = "\n"

// Document is an ingested source file split into ordered pages. Documents are immutable once built.
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Pages       []string  `json:"pages"`
	// ContentHash is the SHA-256 of the uploaded bytes; re-uploading identical bytes is a no-op.
	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Text returns the concatenated page text that chunking operates on.
func (d *Document) Text() string {
	return strings.Join(d.Pages, PageSeparator)
}

// DocumentInput is a raw uploaded blob with its filename.
type DocumentInput struct {
	Filename string `json:"filename"`
	Content  []byte `json:"-"`
}

// Span is a half-open [Start, End) range of character (rune) offsets into a document's text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of characters covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Chunk is one overlapping passage of a document, the unit of indexing.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Span       Span   `json:"span"`
}

// ID returns the chunk identifier used by the vector index.
func (c *Chunk) ID() string {
	return fmt.Sprintf("%s:%d", c.DocumentID, c.Index)
}
