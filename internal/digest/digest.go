// Package digest derives stable identifiers for documents and for built corpus indexes.
package digest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"path/filepath"

	"github.com/hyperjump/ragfuse/internal/models"
)

const docPrefix = "doc_"

// DocumentID returns a stable ID for an uploaded file. Only the base name counts, so the same
// file uploaded from different directories replaces the earlier copy.
func DocumentID(filename string) string {
	name := filepath.Base(filepath.Clean(filename))
	sum := sha256.Sum256([]byte(name))
	return docPrefix + hex.EncodeToString(sum[:8])
}

// ContentHash returns the hex SHA-256 of a document's raw bytes.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// CorpusKey fingerprints everything an index depends on: the embedder identity, the distance
// metric, and every chunk's document, position and text in order. Two builds with equal keys
// produce interchangeable indexes.
func CorpusKey(embedderID, metric string, chunks []models.Chunk) string {
	h := sha256.New()
	writeField(h, []byte(embedderID))
	writeField(h, []byte(metric))
	var buf [8]byte
	for i := range chunks {
		c := &chunks[i]
		writeField(h, []byte(c.DocumentID))
		for _, n := range []int{c.Index, c.Span.Start, c.Span.End} {
			binary.BigEndian.PutUint64(buf[:], uint64(n))
			h.Write(buf[:])
		}
		writeField(h, []byte(c.Text))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeField writes a length-prefixed field so adjacent fields cannot run into each other.
func writeField(h hash.Hash, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	h.Write(n[:])
	h.Write(b)
}
