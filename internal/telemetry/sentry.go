// Package telemetry reports pipeline errors and traces to Sentry. Every function is a no-op
// until Init has been called with a DSN.
package telemetry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

const serverName = "ragfuse"

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init initializes Sentry and returns a function that flushes pending events. An empty DSN, or a
// DSN Sentry rejects, leaves telemetry disabled.
func Init(cfg Config, logger *zap.Logger) func() {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DSN == "" {
		return func() {}
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serverName,
		TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
			if ctx.Span.Name == "GET /health" {
				return 0.0
			}
			return cfg.TracesSampleRate
		}),
	})
	if err != nil {
		logger.Warn("sentry init failed, continuing without telemetry", zap.Error(err))
		return func() {}
	}

	logger.Info("sentry initialized",
		zap.String("environment", cfg.Environment),
		zap.Float64("sample_rate", cfg.TracesSampleRate))
	return func() { sentry.Flush(5 * time.Second) }
}

// Span wraps a Sentry span. A nil *Span is valid and does nothing.
type Span struct {
	inner *sentry.Span
}

// StartSpan starts a child of the span in ctx, or a new transaction when there is none.
func StartSpan(ctx context.Context, op, name string) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(op, sentry.WithDescription(name))
	} else {
		span = sentry.StartSpan(ctx, op, sentry.WithTransactionName(name))
	}
	return span.Context(), &Span{inner: span}
}

// SetTag attaches a tag to the span.
func (s *Span) SetTag(key, value string) {
	if s != nil && s.inner != nil {
		s.inner.SetTag(key, value)
	}
}

// End finishes the span, marking it errored when err is non-nil.
func (s *Span) End(err error) {
	if s == nil || s.inner == nil {
		return
	}
	if err != nil {
		s.inner.Status = sentry.SpanStatusInternalError
	} else {
		s.inner.Status = sentry.SpanStatusOK
	}
	s.inner.Finish()
}

// CaptureError reports err with optional tags.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// AddBreadcrumb records a pipeline event on the current scope.
func AddBreadcrumb(ctx context.Context, category, message string) {
	breadcrumb := &sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(breadcrumb, nil)
	} else {
		sentry.AddBreadcrumb(breadcrumb)
	}
}
