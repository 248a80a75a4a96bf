package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/ragfuse/internal/models"
)

func sampleAnswer() *models.Answer {
	return &models.Answer{
		ID:       "a-1",
		Question: "what is a goroutine?",
		Text:     "A goroutine is a lightweight thread.",
		Elapsed:  42,
		Context: &models.FusedContext{
			Question: "what is a goroutine?",
			Corpus: models.CorpusSlot{
				Status: models.SlotOK,
				Passages: []models.Passage{
					{DocumentID: "doc1", Index: 0, Text: "goroutines are cheap", Distance: 0.12},
				},
			},
			Encyclopedia: models.Slot{Status: models.SlotUnavailable, Reason: "timed out"},
			WebSearch:    models.Slot{Status: models.SlotOK, Text: "Goroutines run concurrently."},
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{" json ", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleAnswer(), OutputJSON, false); err != nil {
		t.Fatalf("WriteAnswer(json): %v", err)
	}
	var decoded models.Answer
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.ID != "a-1" || decoded.Context == nil || decoded.Context.Encyclopedia.Reason != "timed out" {
		t.Errorf("decoded answer: %+v", decoded)
	}
}

func TestWriteAnswer_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleAnswer(), OutputText, false); err != nil {
		t.Fatalf("WriteAnswer(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"lightweight thread", "Unavailable sources: encyclopedia", "42ms", "a-1"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
	if strings.Contains(out, "[corpus]") {
		t.Errorf("context listed without verbose:\n%s", out)
	}
}

func TestWriteAnswer_verbose(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleAnswer(), OutputText, true); err != nil {
		t.Fatalf("WriteAnswer(verbose): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"[corpus] ok", "doc1#0", "goroutines are cheap", "[encyclopedia] unavailable (timed out)", "[web_search] ok", "Goroutines run concurrently."} {
		if !strings.Contains(out, sub) {
			t.Errorf("verbose output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteAnswer_failedGeneration(t *testing.T) {
	a := sampleAnswer()
	a.Text = ""
	a.Error = "[GENERATION_ERROR] completion failed"
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, a, OutputText, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "error: [GENERATION_ERROR]") {
		t.Errorf("missing error line:\n%s", buf.String())
	}
}

func TestWriteReport(t *testing.T) {
	report := &models.IngestReport{
		Documents: []string{"a.txt", "b.pdf"},
		Skipped:   []string{"scan.pdf"},
		Chunks:    7,
		Cached:    true,
	}
	var buf bytes.Buffer
	if err := WriteReport(&buf, report, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Indexed 2 document(s) into 7 chunks", "cached", "+ a.txt", "- scan.pdf"} {
		if !strings.Contains(out, sub) {
			t.Errorf("report missing %q:\n%s", sub, out)
		}
	}

	buf.Reset()
	if err := WriteReport(&buf, report, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.IngestReport
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Chunks != 7 || len(decoded.Skipped) != 1 {
		t.Errorf("decoded report: %+v", decoded)
	}
}

func TestWriteStatus(t *testing.T) {
	st := &models.Status{
		State:          models.StateIndexed,
		Documents:      []string{"a.txt"},
		Chunks:         3,
		IndexKey:       "abc123",
		Embedder:       "hash/words-fnv32a/256",
		Metric:         "cosine",
		ChunkSize:      1000,
		ChunkOverlap:   220,
		TopK:           4,
		DiskUsageBytes: 2048,
		LastError:      "previous failure",
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"State:      indexed", "a.txt", "abc123", "hash/words-fnv32a/256 (cosine)", "size 1000, overlap 220, top 4", "2.0 KiB", "previous failure"} {
		if !strings.Contains(out, sub) {
			t.Errorf("status missing %q:\n%s", sub, out)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"empty", "", 3, ""},
		{"few words", "one two", 3, "one two"},
		{"exact", "one two three", 3, "one two three"},
		{"more", "one two three four", 3, "one two three..."},
		{"collapses whitespace", "one\n two", 3, "one two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWords(tt.s, tt.maxWords)
			if got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}
