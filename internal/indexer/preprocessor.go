package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes extracted page text before chunking: trims, drops control characters
// and collapses whitespace runs into a single space.
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		case unicode.IsControl(r):
			// PDF extraction leaves NULs behind.
		default:
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// PreprocessPages applies Preprocess to every page and drops pages left empty.
func PreprocessPages(pages []string) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		if clean := Preprocess(p); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
