// Package fusion assembles per-source retrieval outcomes into the fixed-shape context handed to
// prompt construction.
package fusion

import (
	"context"
	"errors"

	"github.com/hyperjump/ragfuse/internal/models"
)

// Outcome is what one external source produced for a question: a result, or the error that made
// it unavailable.
type Outcome struct {
	Result *models.RetrievalResult
	Err    error
}

// CorpusOutcome is what the corpus query produced. Hits are in ascending distance order;
// Truncated records that the caller dropped or cut hits to fit a length budget.
type CorpusOutcome struct {
	Hits      []models.Hit
	Truncated bool
	Err       error
}

// Fuse builds the FusedContext for question. It never fails: an errored source is tagged
// unavailable with a reason, a source with no text is tagged empty, and every slot is present.
// Corpus passages keep the order they were given in; no source is re-ranked or deduplicated.
func Fuse(corpus CorpusOutcome, encyclopedia, webSearch Outcome, question string) *models.FusedContext {
	return &models.FusedContext{
		Question:     question,
		Corpus:       corpusSlot(corpus),
		Encyclopedia: slot(encyclopedia),
		WebSearch:    slot(webSearch),
	}
}

func corpusSlot(o CorpusOutcome) models.CorpusSlot {
	s := models.CorpusSlot{Passages: []models.Passage{}, Truncated: o.Truncated}
	if o.Err != nil {
		s.Status = models.SlotUnavailable
		s.Reason = Reason(o.Err)
		s.Truncated = false
		return s
	}
	for _, h := range o.Hits {
		if h.Chunk.Text == "" {
			continue
		}
		s.Passages = append(s.Passages, models.Passage{
			DocumentID: h.Chunk.DocumentID,
			Index:      h.Chunk.Index,
			Text:       h.Chunk.Text,
			Distance:   h.Distance,
		})
	}
	if len(s.Passages) == 0 {
		s.Status = models.SlotEmpty
	} else {
		s.Status = models.SlotOK
	}
	return s
}

func slot(o Outcome) models.Slot {
	if o.Err != nil {
		return models.Slot{Status: models.SlotUnavailable, Reason: Reason(o.Err)}
	}
	if o.Result.Empty() {
		return models.Slot{Status: models.SlotEmpty}
	}
	return models.Slot{Text: o.Result.Best(), Status: models.SlotOK}
}

// Reason renders err as a short human-readable cause. Domain errors are reduced to their cause,
// and timeouts read "timed out".
func Reason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var de *models.DomainError
	if errors.As(err, &de) {
		if de.Err != nil {
			return de.Err.Error()
		}
		return de.Message
	}
	return err.Error()
}
