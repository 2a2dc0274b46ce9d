package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrMap(attrs []attribute.KeyValue) map[string]interface{} {
	m := make(map[string]interface{}, len(attrs))
	for _, attr := range attrs {
		m[string(attr.Key)] = attr.Value.AsInterface()
	}
	return m
}

func TestStartSpan(t *testing.T) {
	recorder := recordSpans(t)

	ctx, span := StartSpan(context.Background(), "authorize", AccountAttr("work"))
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		t.Error("expected context to carry the span")
	}
	SetSpanStatus(span, nil)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "authorize" {
		t.Errorf("expected span name 'authorize', got %q", spans[0].Name())
	}
	if got := attrMap(spans[0].Attributes())[SpanAttrAccount]; got != "work" {
		t.Errorf("expected account 'work', got %v", got)
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("expected status Ok, got %v", spans[0].Status().Code)
	}
}

func TestStartGoogleAPISpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartGoogleAPISpan(context.Background(), "threads.list", QueryAttr("in:inbox is:unread"))
	SetSpanStatus(span, errors.New("quota exceeded"))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "google.gmail.threads.list" {
		t.Errorf("unexpected span name %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindClient {
		t.Errorf("expected client span, got %v", s.SpanKind())
	}

	attrs := attrMap(s.Attributes())
	if attrs[SpanAttrService] != ServiceGmail {
		t.Errorf("expected service %q, got %v", ServiceGmail, attrs[SpanAttrService])
	}
	if attrs[SpanAttrOperation] != "threads.list" {
		t.Errorf("expected operation 'threads.list', got %v", attrs[SpanAttrOperation])
	}
	if attrs[SpanAttrQuery] != "in:inbox is:unread" {
		t.Errorf("expected query attribute, got %v", attrs[SpanAttrQuery])
	}

	if s.Status().Code != codes.Error || s.Status().Description != "quota exceeded" {
		t.Errorf("expected error status, got %+v", s.Status())
	}
	if len(s.Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
}
