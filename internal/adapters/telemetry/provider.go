package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/sling/internal/core/ports"
)

// QuietAttribute marks spans that are traced but not rendered.
const QuietAttribute = "sling.quiet"

// LogSink receives the output written to a span.
type LogSink interface {
	OnTaskLog(spanID string, data []byte)
}

var _ ports.Tracer = (*OTelTracer)(nil)

// OTelTracer implements ports.Tracer with the global OpenTelemetry provider.
type OTelTracer struct {
	tracer trace.Tracer

	mu   sync.RWMutex
	sink LogSink
}

// NewOTelTracer creates a new OTelTracer with the given instrumentation name.
func NewOTelTracer(name string) *OTelTracer {
	return &OTelTracer{tracer: otel.Tracer(name)}
}

// SetLogSink routes span output to sink. A nil sink records output as span events.
func (t *OTelTracer) SetLogSink(sink LogSink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sink = sink
}

// WithLogSink is SetLogSink in builder form.
func (t *OTelTracer) WithLogSink(sink LogSink) *OTelTracer {
	t.SetLogSink(sink)
	return t
}

// Start creates a new span.
func (t *OTelTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var startOpts []trace.SpanStartOption
	if cfg.Quiet {
		startOpts = append(startOpts, trace.WithAttributes(attribute.Bool(QuietAttribute, true)))
	}
	ctx, span := t.tracer.Start(ctx, name, startOpts...)

	t.mu.RLock()
	sink := t.sink
	t.mu.RUnlock()

	var batcher *BatchProcessor
	if sink != nil && !cfg.Quiet {
		spanID := span.SpanContext().SpanID().String()
		batcher = NewBatchProcessor(0, 0, func(data []byte) {
			sink.OnTaskLog(spanID, data)
		})
	}

	return ctx, &OTelSpan{span: span, batcher: batcher}
}

// OTelSpan implements ports.Span on top of an OpenTelemetry span.
type OTelSpan struct {
	span    trace.Span
	batcher *BatchProcessor
}

// End flushes pending output and completes the span.
func (s *OTelSpan) End() {
	if s.batcher != nil {
		_ = s.batcher.Close()
	}
	s.span.End()
}

// RecordError records err and marks the span as failed.
func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttribute adds a key-value pair to the span.
func (s *OTelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case []string:
		s.span.SetAttributes(attribute.StringSlice(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// Write sends p to the log sink, or records it as a span event without one.
func (s *OTelSpan) Write(p []byte) (int, error) {
	if s.batcher != nil {
		return s.batcher.Write(p)
	}
	s.span.AddEvent("log", trace.WithAttributes(attribute.String("message", string(p))))
	return len(p), nil
}
