// Package source provides retrieval adapters for external evidence: an encyclopedia summary
// lookup and a web search lookup. Each adapter makes exactly one lookup per call and never retries.
package source

import (
	"context"
	"errors"

	"github.com/hyperjump/ragfuse/internal/models"
)

// Adapter retrieves a best-effort summary for a query from one external source.
// Failures are returned as SourceUnavailable errors tagged with the adapter's kind.
type Adapter interface {
	Kind() models.SourceTag
	Retrieve(ctx context.Context, query string) (*models.RetrievalResult, error)
}

// single wraps one summary string as a result; empty text yields an empty result.
func single(kind models.SourceTag, text string) *models.RetrievalResult {
	res := &models.RetrievalResult{Source: kind}
	if text != "" {
		res.Items = []models.RetrievalItem{{Text: text, Rank: 1}}
	}
	return res
}

// Disabled is an adapter that always reports its source as unavailable. It stands in for an
// adapter that is switched off or lacks credentials, so the slot is tagged instead of dropped.
type Disabled struct {
	kind   models.SourceTag
	reason string
}

// NewDisabled returns a Disabled adapter for kind with a human-readable reason.
func NewDisabled(kind models.SourceTag, reason string) *Disabled {
	return &Disabled{kind: kind, reason: reason}
}

// Kind returns the source tag.
func (d *Disabled) Kind() models.SourceTag { return d.kind }

// Retrieve always fails with SourceUnavailable.
func (d *Disabled) Retrieve(context.Context, string) (*models.RetrievalResult, error) {
	return nil, models.SourceUnavailable(d.kind, errors.New(d.reason))
}
