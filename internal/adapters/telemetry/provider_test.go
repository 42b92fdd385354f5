package telemetry_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/sling/internal/adapters/telemetry"
	"go.trai.ch/sling/internal/core/ports"
)

// Tests in this file replace the global tracer provider and must not run in parallel.

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return sr
}

type sinkRecorder struct {
	mu   sync.Mutex
	logs map[string]string
}

func (s *sinkRecorder) OnTaskLog(spanID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logs == nil {
		s.logs = make(map[string]string)
	}
	s.logs[spanID] += string(data)
}

func TestOTelTracer_StartAndAttributes(t *testing.T) {
	sr := setupRecorder(t)
	tracer := telemetry.NewOTelTracer("test")

	_, span := tracer.Start(context.Background(), "graph")
	span.SetAttribute("modules", 3)
	span.SetAttribute("entry", "main")
	span.SetAttribute("partial", true)
	span.SetAttribute("ratio", 0.5)
	span.SetAttribute("chunks", []string{"main", "vendors"})
	span.SetAttribute("other", struct{ A int }{A: 1})
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "graph", ended[0].Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, int64(3), attrs["modules"].AsInt64())
	assert.Equal(t, "main", attrs["entry"].AsString())
	assert.True(t, attrs["partial"].AsBool())
	assert.InDelta(t, 0.5, attrs["ratio"].AsFloat64(), 0)
	assert.Equal(t, []string{"main", "vendors"}, attrs["chunks"].AsStringSlice())
	assert.Equal(t, "{1}", attrs["other"].AsString())
}

func TestOTelTracer_QuietSpan(t *testing.T) {
	sr := setupRecorder(t)
	sink := &sinkRecorder{}
	tracer := telemetry.NewOTelTracer("test").WithLogSink(sink)

	_, span := tracer.Start(context.Background(), "resolve", ports.WithQuiet())
	_, _ = span.Write([]byte("hidden\n"))
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Contains(t, ended[0].Attributes(), attribute.Bool(telemetry.QuietAttribute, true))
	assert.Empty(t, sink.logs)
}

func TestOTelTracer_WriteGoesToSink(t *testing.T) {
	sr := setupRecorder(t)
	sink := &sinkRecorder{}
	tracer := telemetry.NewOTelTracer("test")
	tracer.SetLogSink(sink)

	_, span := tracer.Start(context.Background(), "check:tsc")
	_, err := span.Write([]byte("src/a.ts(1,1): error TS1\n"))
	require.NoError(t, err)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	id := ended[0].SpanContext().SpanID().String()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, "src/a.ts(1,1): error TS1\n", sink.logs[id])
}

func TestOTelTracer_WriteWithoutSinkRecordsEvent(t *testing.T) {
	sr := setupRecorder(t)
	tracer := telemetry.NewOTelTracer("test")

	_, span := tracer.Start(context.Background(), "emit")
	n, err := span.Write([]byte("wrote dist/main.js"))
	require.NoError(t, err)
	assert.Equal(t, 18, n)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	events := ended[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "log", events[0].Name)
}

func TestOTelSpan_RecordError(t *testing.T) {
	sr := setupRecorder(t)
	tracer := telemetry.NewOTelTracer("test")

	_, span := tracer.Start(context.Background(), "transform")
	span.RecordError(errors.New("boom"))
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
}
