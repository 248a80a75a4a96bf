package generation

import (
	"strings"
	"testing"

	"github.com/hyperjump/ragfuse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullContext() *models.FusedContext {
	return &models.FusedContext{
		Question: "What is a goroutine?",
		Corpus: models.CorpusSlot{
			Status: models.SlotOK,
			Passages: []models.Passage{
				{DocumentID: "doc_1", Index: 0, Text: "first passage"},
				{DocumentID: "doc_1", Index: 1, Text: "second passage"},
			},
		},
		Encyclopedia: models.Slot{Status: models.SlotOK, Text: "Page: Goroutine\nSummary: a lightweight thread"},
		WebSearch:    models.Slot{Status: models.SlotOK, Text: "snippet one snippet two"},
	}
}

func TestRenderPrompt_AllSections(t *testing.T) {
	out, err := RenderPrompt(fullContext())
	require.NoError(t, err)

	pdf := strings.Index(out, "## Based on PDF Content")
	wiki := strings.Index(out, "## Based on Wikipedia Summary")
	web := strings.Index(out, "## Based on Google Search Results")
	question := strings.Index(out, "Question: What is a goroutine?")
	require.True(t, pdf >= 0 && wiki > pdf && web > wiki && question > web, "sections out of order:\n%s", out)

	assert.Contains(t, out, "<context>\nfirst passage\n\nsecond passage\n</context>")
	assert.Contains(t, out, "<wikipedia_result>\nPage: Goroutine\nSummary: a lightweight thread\n</wikipedia_result>")
	assert.Contains(t, out, "<google_result>\nsnippet one snippet two\n</google_result>")
}

func TestRenderPrompt_DegradedSlots(t *testing.T) {
	fc := fullContext()
	fc.Corpus = models.CorpusSlot{Status: models.SlotEmpty}
	fc.Encyclopedia = models.Slot{Status: models.SlotUnavailable, Reason: "timed out"}
	fc.WebSearch = models.Slot{Status: models.SlotEmpty}

	out, err := RenderPrompt(fc)
	require.NoError(t, err)
	assert.Contains(t, out, "No good PDF result was found")
	assert.Contains(t, out, "[unavailable: timed out]")
	assert.Contains(t, out, "No good Google Search Result was found")
}

func TestRenderPrompt_TruncatedCorpus(t *testing.T) {
	fc := fullContext()
	fc.Corpus.Truncated = true

	out, err := RenderPrompt(fc)
	require.NoError(t, err)
	assert.Contains(t, out, "second passage...\n</context>")
}

func TestRenderPrompt_UnavailableWithoutReason(t *testing.T) {
	fc := fullContext()
	fc.Corpus = models.CorpusSlot{Status: models.SlotUnavailable}

	out, err := RenderPrompt(fc)
	require.NoError(t, err)
	assert.Contains(t, out, "[unavailable: unknown error]")
}

func TestSystemPrompt_Sections(t *testing.T) {
	for _, h := range []string{"## Information from PDF", "## Wikipedia Summary", "## Google Search", "## Summary"} {
		assert.Contains(t, SystemPrompt, h)
	}
}
