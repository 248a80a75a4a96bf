package digest

import (
	"strings"
	"testing"

	"github.com/hyperjump/ragfuse/internal/models"
)

func TestDocumentID(t *testing.T) {
	id1 := DocumentID("report.pdf")
	id2 := DocumentID("report.pdf")
	if id1 != id2 {
		t.Errorf("same filename should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, docPrefix) {
		t.Errorf("ID should have prefix %q: got %q", docPrefix, id1)
	}
	if len(id1) != len(docPrefix)+16 {
		t.Errorf("unexpected ID length: %q", id1)
	}
}

func TestDocumentID_differentNames(t *testing.T) {
	if DocumentID("a.pdf") == DocumentID("b.pdf") {
		t.Error("different filenames should give different IDs")
	}
}

func TestDocumentID_baseNameOnly(t *testing.T) {
	id1 := DocumentID("report.pdf")
	id2 := DocumentID("/tmp/uploads/report.pdf")
	id3 := DocumentID("./x/../report.pdf")
	if id1 != id2 || id1 != id3 {
		t.Errorf("IDs should depend on base name only: %q %q %q", id1, id2, id3)
	}
}

func TestContentHash(t *testing.T) {
	if ContentHash([]byte("abc")) != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("unexpected hash %s", ContentHash([]byte("abc")))
	}
}

func TestCorpusKey(t *testing.T) {
	chunks := []models.Chunk{
		{DocumentID: "d1", Index: 0, Text: "hello", Span: models.Span{Start: 0, End: 5}},
		{DocumentID: "d1", Index: 1, Text: "world", Span: models.Span{Start: 3, End: 8}},
	}
	base := CorpusKey("hash/64", "cosine", chunks)
	if base != CorpusKey("hash/64", "cosine", chunks) {
		t.Error("key should be deterministic")
	}

	changedText := append([]models.Chunk(nil), chunks...)
	changedText[1].Text = "World"
	changedSpan := append([]models.Chunk(nil), chunks...)
	changedSpan[1].Span.Start = 4

	tests := []struct {
		name string
		key  string
	}{
		{"embedder", CorpusKey("hash/128", "cosine", chunks)},
		{"metric", CorpusKey("hash/64", "l2", chunks)},
		{"text", CorpusKey("hash/64", "cosine", changedText)},
		{"span", CorpusKey("hash/64", "cosine", changedSpan)},
		{"fewer chunks", CorpusKey("hash/64", "cosine", chunks[:1])},
		{"no chunks", CorpusKey("hash/64", "cosine", nil)},
	}
	for _, tt := range tests {
		if tt.key == base {
			t.Errorf("changing %s should change the key", tt.name)
		}
	}
}

func TestCorpusKey_fieldBoundaries(t *testing.T) {
	a := CorpusKey("ab", "c", nil)
	b := CorpusKey("a", "bc", nil)
	if a == b {
		t.Error("field boundaries should be part of the key")
	}
}
