package watcher

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/hyperjump/ragfuse/internal/indexer"
	"github.com/hyperjump/ragfuse/internal/models"
	"go.uber.org/zap"
)

// Corpus is the part of the pipeline a watcher feeds.
type Corpus interface {
	Ingest(ctx context.Context, inputs []*models.DocumentInput) (*models.IngestReport, error)
	Remove(ctx context.Context, filename string) error
}

// IngestSink returns a Sink that ingests changed files as one batch and removes deleted ones by
// filename. Failures are logged; the watcher keeps running.
func IngestSink(c Corpus, extensions []string, logger *zap.Logger, isNotFound func(error) bool) Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if isNotFound == nil {
		isNotFound = func(error) bool { return false }
	}
	return func(ctx context.Context, batch Batch) {
		for _, path := range batch.Removed {
			name := filepath.Base(path)
			if err := c.Remove(ctx, name); err != nil && !isNotFound(err) {
				logger.Warn("failed to remove watched document", zap.String("path", path), zap.Error(err))
			}
		}

		var inputs []*models.DocumentInput
		for _, path := range batch.Changed {
			in, err := indexer.ReadFile(path, extensions)
			if err != nil {
				logger.Debug("skipping watched file", zap.String("path", path), zap.Error(err))
				continue
			}
			inputs = append(inputs, in)
		}
		if len(inputs) == 0 {
			return
		}
		report, err := c.Ingest(ctx, inputs)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("failed to ingest watched files", zap.Int("files", len(inputs)), zap.Error(err))
			}
			return
		}
		logger.Info("ingested watched files",
			zap.Strings("documents", report.Documents),
			zap.Strings("skipped", report.Skipped),
			zap.Int("chunks", report.Chunks))
	}
}
