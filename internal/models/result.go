package models

// SourceTag identifies where a piece of evidence came from.
type SourceTag string

const (
	SourceCorpus       SourceTag = "corpus"
	SourceEncyclopedia SourceTag = "encyclopedia"
	SourceWebSearch    SourceTag = "web_search"
)

// Hit is a corpus chunk returned by a vector query, with its distance to the query.
type Hit struct {
	Chunk    Chunk   `json:"chunk"`
	Distance float64 `json:"distance"`
}

// RetrievalItem is one ranked piece of text inside a RetrievalResult.
type RetrievalItem struct {
	Text  string  `json:"text"`
	Score float64 `json:"score,omitempty"`
	Rank  int     `json:"rank"`
}

// RetrievalResult is the output of one source for one question.
type RetrievalResult struct {
	Source SourceTag       `json:"source"`
	Items  []RetrievalItem `json:"items"`
}

// Best returns the text of the first item, or "" when the result is empty.
func (r *RetrievalResult) Best() string {
	if r == nil || len(r.Items) == 0 {
		return ""
	}
	return r.Items[0].Text
}

// Empty reports whether the result carries no usable text.
func (r *RetrievalResult) Empty() bool {
	if r == nil {
		return true
	}
	for _, it := range r.Items {
		if it.Text != "" {
			return false
		}
	}
	return true
}
