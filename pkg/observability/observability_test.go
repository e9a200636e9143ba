package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracingExportsSpans(t *testing.T) {
	previous := otel.GetTracerProvider()
	defer otel.SetTracerProvider(previous)

	var buf bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.ServiceVersion = "test"
	cfg.Writer = &buf

	shutdown, err := InitTracing(cfg)
	require.NoError(t, err)

	_, span := Tracer("trainbin/test").Start(context.Background(), "import")
	EndSpan(span, nil)
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name":"import"`)
	assert.Contains(t, buf.String(), "trainbin")
}

func TestInitTracingNeverSample(t *testing.T) {
	previous := otel.GetTracerProvider()
	defer otel.SetTracerProvider(previous)

	var buf bytes.Buffer
	shutdown, err := InitTracing(TracingConfig{Writer: &buf})
	require.NoError(t, err)

	_, span := Tracer("trainbin/test").Start(context.Background(), "export")
	EndSpan(span, nil)
	require.NoError(t, shutdown(context.Background()))
	assert.Empty(t, buf.String())
}

func TestEndSpanStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("trainbin/test")

	_, ok := tracer.Start(context.Background(), "ok")
	EndSpan(ok, nil)
	_, failed := tracer.Start(context.Background(), "failed")
	EndSpan(failed, errors.New("disk full"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "disk full", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}
