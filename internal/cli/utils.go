// Package cli provides CLI output helpers for ragfuse.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/ragfuse/internal/models"
	"github.com/hyperjump/ragfuse/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json" (case-insensitive); empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

const rule = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer to w in the given format. With verbose, the text format also
// lists the fused context.
func WriteAnswer(w io.Writer, a *models.Answer, format OutputFormat, verbose bool) error {
	if format == OutputJSON {
		return writeJSON(w, a)
	}
	if a.Text != "" {
		fmt.Fprintf(w, "\n%s\n\n", a.Text)
	}
	if a.Error != "" {
		fmt.Fprintf(w, "\nerror: %s\n\n", a.Error)
	}
	if fc := a.Context; fc != nil {
		if unavailable := fc.Unavailable(); len(unavailable) > 0 {
			names := make([]string, len(unavailable))
			for i, s := range unavailable {
				names[i] = string(s)
			}
			fmt.Fprintf(w, "Unavailable sources: %s\n", strings.Join(names, ", "))
		}
		if verbose {
			writeContext(w, fc)
		}
	}
	fmt.Fprintf(w, "Answered in %dms (id %s)\n", a.Elapsed, a.ID)
	return nil
}

func writeContext(w io.Writer, fc *models.FusedContext) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "[corpus] %s", fc.Corpus.Status)
	if fc.Corpus.Reason != "" {
		fmt.Fprintf(w, " (%s)", fc.Corpus.Reason)
	}
	if fc.Corpus.Truncated {
		fmt.Fprint(w, " truncated")
	}
	fmt.Fprintln(w)
	for _, p := range fc.Corpus.Passages {
		fmt.Fprintf(w, "  %s#%d distance %.4f: %s\n", p.DocumentID, p.Index, p.Distance, TruncateWords(p.Text, 20))
	}
	writeSlot(w, models.SourceEncyclopedia, fc.Encyclopedia)
	writeSlot(w, models.SourceWebSearch, fc.WebSearch)
	fmt.Fprintln(w, rule)
}

func writeSlot(w io.Writer, tag models.SourceTag, s models.Slot) {
	fmt.Fprintf(w, "[%s] %s", tag, s.Status)
	if s.Reason != "" {
		fmt.Fprintf(w, " (%s)", s.Reason)
	}
	fmt.Fprintln(w)
	if s.Text != "" {
		fmt.Fprintf(w, "  %s\n", utils.Truncate(s.Text, 200))
	}
}

// WriteReport writes an ingestion report to w in the given format.
func WriteReport(w io.Writer, r *models.IngestReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	fmt.Fprintf(w, "Indexed %d document(s) into %d chunks", len(r.Documents), r.Chunks)
	if r.Cached {
		fmt.Fprint(w, " (cached index)")
	}
	fmt.Fprintln(w)
	for _, d := range r.Documents {
		fmt.Fprintf(w, "  + %s\n", d)
	}
	for _, d := range r.Skipped {
		fmt.Fprintf(w, "  - %s (skipped: no readable text)\n", d)
	}
	return nil
}

// WriteStatus writes the pipeline status to w in the given format.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "State:      %s\n", st.State)
	fmt.Fprintf(w, "Documents:  %d\n", len(st.Documents))
	for _, d := range st.Documents {
		fmt.Fprintf(w, "  %s\n", d)
	}
	fmt.Fprintf(w, "Chunks:     %d\n", st.Chunks)
	if st.IndexKey != "" {
		fmt.Fprintf(w, "Index:      %s\n", st.IndexKey)
	}
	fmt.Fprintf(w, "Embedder:   %s (%s)\n", st.Embedder, st.Metric)
	fmt.Fprintf(w, "Chunking:   size %d, overlap %d, top %d\n", st.ChunkSize, st.ChunkOverlap, st.TopK)
	if st.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "Disk usage: %s\n", FormatBytes(st.DiskUsageBytes))
	}
	if st.LastError != "" {
		fmt.Fprintf(w, "Last error: %s\n", st.LastError)
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
