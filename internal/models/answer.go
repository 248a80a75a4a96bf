package models

import "time"

// State is a pipeline state. The lifecycle states (Idle, Ingesting, Indexed, Failed) describe the
// orchestrator; Retrieving, Fused, Delivered and Failed also mark the progress of one question.
type State string

const (
	StateIdle       State = "idle"
	StateIngesting  State = "ingesting"
	StateIndexed    State = "indexed"
	StateRetrieving State = "retrieving"
	StateFused      State = "fused"
	StateDelivered  State = "delivered"
	StateFailed     State = "failed"
)

// Stage records when a question entered a state.
type Stage struct {
	State State     `json:"state"`
	At    time.Time `json:"at"`
}

// Answer is the result of asking one question. Context is set once fusion ran, Text once the
// generation step delivered.
type Answer struct {
	ID       string        `json:"id"`
	Question string        `json:"question"`
	Context  *FusedContext `json:"context,omitempty"`
	Text     string        `json:"answer,omitempty"`
	Trace    []Stage       `json:"trace"`
	Elapsed  int64         `json:"elapsed_ms"`
	Error    string        `json:"error,omitempty"`
}

// Reached reports whether the question passed through state s.
func (a *Answer) Reached(s State) bool {
	for _, st := range a.Trace {
		if st.State == s {
			return true
		}
	}
	return false
}

// IngestReport summarizes one ingestion event.
type IngestReport struct {
	Documents []string `json:"documents"`
	Skipped   []string `json:"skipped,omitempty"`
	Chunks    int      `json:"chunks"`
	IndexKey  string   `json:"index_key"`
	Cached    bool     `json:"cached"`
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	State          State    `json:"state"`
	Documents      []string `json:"documents"`
	Chunks         int      `json:"chunks"`
	IndexKey       string   `json:"index_key,omitempty"`
	LastError      string   `json:"last_error,omitempty"`
	Embedder       string   `json:"embedder"`
	Metric         string   `json:"metric"`
	ChunkSize      int      `json:"chunk_size"`
	ChunkOverlap   int      `json:"chunk_overlap"`
	TopK           int      `json:"top_k"`
	DiskUsageBytes int64    `json:"disk_usage_bytes,omitempty"`
}
