// Package generation renders the fused context into a chat prompt and sends it to an
// OpenAI-compatible completion endpoint.
package generation

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/hyperjump/ragfuse/internal/models"
)

// SystemPrompt asks for an answer laid out in one section per source plus a summary.
const SystemPrompt = `You are a research assistant. Answer the user's question using the context they provide.
Structure the answer as markdown with exactly these sections:

## Information from PDF
## Wikipedia Summary
## Google Search
## Summary

Under each source section, report what that source says about the question. If a source was
unavailable or had no relevant result, say so in one sentence instead of guessing. The summary
combines the sources into a direct answer of at least 100 words.`

const userTemplate = `Answer the question based on the provided context in at least 100 words.
Provide the most accurate and detailed response based on the available information.

## Based on PDF Content
<context>
{{corpus .Corpus}}
</context>

## Based on Wikipedia Summary
<wikipedia_result>
{{slot .Encyclopedia "No good Wikipedia Search Result was found"}}
</wikipedia_result>

## Based on Google Search Results
<google_result>
{{slot .WebSearch "No good Google Search Result was found"}}
</google_result>

Question: {{.Question}}
`

// PassageSeparator joins corpus passages in the rendered prompt.
const PassageSeparator = "\n\n"

var userPrompt = template.Must(template.New("user").Funcs(template.FuncMap{
	"corpus": renderCorpus,
	"slot":   renderSlot,
}).Parse(userTemplate))

// RenderPrompt renders the user message for fc. Every slot gets its own section; unavailable
// slots render as "[unavailable: <reason>]".
func RenderPrompt(fc *models.FusedContext) (string, error) {
	var buf bytes.Buffer
	if err := userPrompt.Execute(&buf, fc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderCorpus(s models.CorpusSlot) string {
	switch s.Status {
	case models.SlotUnavailable:
		return unavailable(s.Reason)
	case models.SlotEmpty:
		return "No good PDF result was found"
	}
	text := strings.Join(s.Texts(), PassageSeparator)
	if s.Truncated {
		text += "..."
	}
	return text
}

func renderSlot(s models.Slot, emptyText string) string {
	switch s.Status {
	case models.SlotUnavailable:
		return unavailable(s.Reason)
	case models.SlotEmpty:
		return emptyText
	}
	return s.Text
}

func unavailable(reason string) string {
	if reason == "" {
		reason = "unknown error"
	}
	return "[unavailable: " + reason + "]"
}
