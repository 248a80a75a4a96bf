package telemetry

import (
	"context"
	"errors"
	"testing"
)

func TestInit_NoDSNIsNoop(t *testing.T) {
	flush := Init(Config{}, nil)
	if flush == nil {
		t.Fatal("Init returned nil flush func")
	}
	flush()
}

func TestInit_InvalidDSN(t *testing.T) {
	flush := Init(Config{DSN: "not a dsn"}, nil)
	if flush == nil {
		t.Fatal("Init returned nil flush func")
	}
	flush()
}

func TestSpanAndCaptureWithoutClient(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "pipeline.ask", "ask")
	if ctx == nil || span == nil {
		t.Fatal("StartSpan returned nil")
	}
	span.SetTag("question_id", "q1")
	AddBreadcrumb(ctx, "pipeline", "retrieving")
	CaptureError(ctx, errors.New("boom"), map[string]string{"source": "web_search"})
	CaptureError(ctx, nil, nil)
	span.End(errors.New("boom"))

	var nilSpan *Span
	nilSpan.SetTag("k", "v")
	nilSpan.End(nil)
}
