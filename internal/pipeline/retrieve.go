package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/ragfuse/internal/fusion"
	"github.com/hyperjump/ragfuse/internal/generation"
	"github.com/hyperjump/ragfuse/internal/indexer"
	"github.com/hyperjump/ragfuse/internal/models"
	"github.com/hyperjump/ragfuse/internal/source"
	"github.com/hyperjump/ragfuse/internal/telemetry"
	"github.com/hyperjump/ragfuse/pkg/utils"
	"go.uber.org/zap"
)

// retrieveAll queries the corpus and both external sources concurrently and returns once all
// three have finished or failed. Each call runs under the source timeout.
func (o *Orchestrator) retrieveAll(ctx context.Context, h *indexer.Handle, question string) (fusion.CorpusOutcome, fusion.Outcome, fusion.Outcome) {
	var (
		corpus fusion.CorpusOutcome
		enc    fusion.Outcome
		web    fusion.Outcome
		wg     sync.WaitGroup
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		corpus = o.queryCorpus(ctx, h, question)
	}()
	go func() {
		defer wg.Done()
		enc = o.retrieveSource(ctx, o.opts.Encyclopedia, question)
	}()
	go func() {
		defer wg.Done()
		web = o.retrieveSource(ctx, o.opts.WebSearch, question)
	}()
	wg.Wait()
	return corpus, enc, web
}

func (o *Orchestrator) queryCorpus(ctx context.Context, h *indexer.Handle, question string) (out fusion.CorpusOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = fusion.CorpusOutcome{Err: models.EmbeddingError("corpus query panicked", fmt.Errorf("%v", r))}
		}
	}()
	callCtx, cancel := context.WithTimeout(ctx, o.opts.SourceTimeout)
	defer cancel()

	hits, err := h.Query(callCtx, question, o.opts.TopK)
	if err != nil {
		o.logger.Warn("corpus query failed", zap.Error(err))
		telemetry.CaptureError(ctx, err, map[string]string{"source": string(models.SourceCorpus)})
		return fusion.CorpusOutcome{Err: err}
	}
	hits, truncated := fitHits(hits, o.opts.ContextChars)
	return fusion.CorpusOutcome{Hits: hits, Truncated: truncated}
}

// retrieveSource calls a with up to SourceRetries extra attempts. Every attempt has its own
// timeout. A rate-limited source is not retried.
func (o *Orchestrator) retrieveSource(ctx context.Context, a source.Adapter, question string) fusion.Outcome {
	var lastErr error
	for attempt := 0; attempt <= o.opts.SourceRetries; attempt++ {
		res, err := o.callSource(ctx, a, question)
		if err == nil {
			return fusion.Outcome{Result: res}
		}
		lastErr = err
		o.logger.Debug("source attempt failed",
			zap.String("source", string(a.Kind())),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if ctx.Err() != nil || source.IsRateLimited(err) {
			break
		}
	}
	if models.ErrorCode(lastErr) != models.CodeSourceUnavailable {
		lastErr = models.SourceUnavailable(a.Kind(), lastErr)
	}
	o.logger.Warn("source failed", zap.String("source", string(a.Kind())), zap.Error(lastErr))
	telemetry.CaptureError(ctx, lastErr, map[string]string{"source": string(a.Kind())})
	return fusion.Outcome{Err: lastErr}
}

// callSource runs one attempt. The attempt ends at the timeout even if the adapter ignores its
// context; a late result is discarded.
func (o *Orchestrator) callSource(ctx context.Context, a source.Adapter, question string) (*models.RetrievalResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.opts.SourceTimeout)
	defer cancel()

	type result struct {
		res *models.RetrievalResult
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: models.SourceUnavailable(a.Kind(), fmt.Errorf("adapter panicked: %v", r))}
			}
		}()
		res, err := a.Retrieve(callCtx, question)
		done <- result{res: res, err: err}
	}()

	select {
	case r := <-done:
		return r.res, r.err
	case <-callCtx.Done():
		return nil, models.SourceUnavailable(a.Kind(), callCtx.Err())
	}
}

// fitHits keeps whole hits, in order, while their texts joined by the prompt passage separator
// fit in budget characters. A first hit that alone exceeds the budget is cut to it. budget <= 0
// keeps everything.
func fitHits(hits []models.Hit, budget int) ([]models.Hit, bool) {
	if budget <= 0 {
		return hits, false
	}
	sep := utils.RuneLen(generation.PassageSeparator)
	used := 0
	for i, h := range hits {
		n := utils.RuneLen(h.Chunk.Text)
		if i > 0 {
			n += sep
		}
		if used+n <= budget {
			used += n
			continue
		}
		if i == 0 {
			cut := h
			cut.Chunk.Text = string([]rune(h.Chunk.Text)[:budget])
			return []models.Hit{cut}, true
		}
		return hits[:i], true
	}
	return hits, false
}
