package models

// SlotStatus tags how a source contributed to a FusedContext.
type SlotStatus string

const (
	// SlotOK means the source answered with usable text.
	SlotOK SlotStatus = "ok"
	// SlotEmpty means the source answered but found nothing.
	SlotEmpty SlotStatus = "empty"
	// SlotUnavailable means the source failed or timed out; Reason says why.
	SlotUnavailable SlotStatus = "unavailable"
)

// Slot holds the single best-effort text of an external source.
type Slot struct {
	Text   string     `json:"text"`
	Status SlotStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

// Passage is a corpus chunk as it appears in the fused context.
type Passage struct {
	DocumentID string  `json:"document_id"`
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Distance   float64 `json:"distance"`
}

// CorpusSlot holds corpus passages in ascending distance order.
type CorpusSlot struct {
	Passages  []Passage  `json:"passages"`
	Status    SlotStatus `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	Truncated bool       `json:"truncated,omitempty"`
}

// Texts returns the passage texts in order.
func (c *CorpusSlot) Texts() []string {
	out := make([]string, len(c.Passages))
	for i, p := range c.Passages {
		out[i] = p.Text
	}
	return out
}

// FusedContext is the fixed-shape record handed to prompt construction. Every source owns exactly
// one slot; no slot is ever absent.
type FusedContext struct {
	Question     string     `json:"question"`
	Corpus       CorpusSlot `json:"corpus"`
	Encyclopedia Slot       `json:"encyclopedia"`
	WebSearch    Slot       `json:"web_search"`
}

// Unavailable lists the sources whose slots are tagged unavailable.
func (f *FusedContext) Unavailable() []SourceTag {
	var out []SourceTag
	if f.Corpus.Status == SlotUnavailable {
		out = append(out, SourceCorpus)
	}
	if f.Encyclopedia.Status == SlotUnavailable {
		out = append(out, SourceEncyclopedia)
	}
	if f.WebSearch.Status == SlotUnavailable {
		out = append(out, SourceWebSearch)
	}
	return out
}
