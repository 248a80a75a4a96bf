package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestDocument_Text(t *testing.T) {
	doc := &Document{ID: "d", Pages: []string{"first page", "second page"}}
	if got := doc.Text(); got != "first page\nsecond page" {
		t.Errorf("Text() = %q", got)
	}
	empty := &Document{ID: "e"}
	if got := empty.Text(); got != "" {
		t.Errorf("Text() of empty document = %q", got)
	}
}

func TestChunk_ID(t *testing.T) {
	c := &Chunk{DocumentID: "doc", Index: 3}
	if c.ID() != "doc:3" {
		t.Errorf("ID() = %s", c.ID())
	}
}

func TestRetrievalResult_BestAndEmpty(t *testing.T) {
	var nilResult *RetrievalResult
	if nilResult.Best() != "" || !nilResult.Empty() {
		t.Error("nil result should be empty")
	}
	r := &RetrievalResult{Source: SourceWebSearch, Items: []RetrievalItem{{Text: "snippet", Rank: 1}}}
	if r.Best() != "snippet" || r.Empty() {
		t.Errorf("unexpected best/empty for %+v", r)
	}
	blank := &RetrievalResult{Items: []RetrievalItem{{Text: ""}}}
	if !blank.Empty() {
		t.Error("result with only blank items should be empty")
	}
}

func TestDomainError_IsMatchesByCode(t *testing.T) {
	cause := errors.New("provider down")
	err := fmt.Errorf("build: %w", EmbeddingError("embed chunk 2", cause))

	if !errors.Is(err, ErrEmbedding) {
		t.Error("expected errors.Is(err, ErrEmbedding)")
	}
	if errors.Is(err, ErrConfig) {
		t.Error("embedding error must not match ErrConfig")
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
	if ErrorCode(err) != CodeEmbedding {
		t.Errorf("ErrorCode = %q", ErrorCode(err))
	}
	if ErrorCode(cause) != "" {
		t.Error("untyped error should have empty code")
	}
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		err  *DomainError
		want string
	}{
		{ConfigError("overlap %d must be smaller than chunk size %d", 50, 50), "[CONFIG_ERROR] overlap 50 must be smaller than chunk size 50"},
		{SourceUnavailable(SourceEncyclopedia, errors.New("timeout")), "[SOURCE_UNAVAILABLE] encyclopedia unavailable: timeout"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestFusedContext_Unavailable(t *testing.T) {
	fc := &FusedContext{
		Corpus:       CorpusSlot{Status: SlotOK},
		Encyclopedia: Slot{Status: SlotUnavailable, Reason: "timeout"},
		WebSearch:    Slot{Status: SlotEmpty},
	}
	got := fc.Unavailable()
	if len(got) != 1 || got[0] != SourceEncyclopedia {
		t.Errorf("Unavailable() = %v", got)
	}
}

func TestAnswer_Reached(t *testing.T) {
	a := &Answer{Trace: []Stage{{State: StateRetrieving}, {State: StateFused}}}
	if !a.Reached(StateFused) || a.Reached(StateDelivered) {
		t.Errorf("unexpected Reached results for trace %v", a.Trace)
	}
}
