package telemetry_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/marketplace/orderflow/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "order", "perform",
		telemetry.WithAttribute(telemetry.AttrOrderID, "o-1"),
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	telemetry.SetAttributes(span, telemetry.AttrAction, "approve", telemetry.AttrHTTPStatus, 200)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "order.perform", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
	assert.Contains(t, spans[0].Attributes(), attribute.String(telemetry.AttrOrderID, "o-1"))
	assert.Contains(t, spans[0].Attributes(), attribute.String(telemetry.AttrAction, "approve"))
	assert.Contains(t, spans[0].Attributes(), attribute.Int(telemetry.AttrHTTPStatus, 200))
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.RecordError(span, errors.New("boom"))
	telemetry.RecordError(span, nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
}

func TestInjectHTTPHeaders(t *testing.T) {
	setupTestTracer(t)
	_, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	ctx, span := telemetry.StartSpan(context.Background(), "op")
	defer span.End()

	header := http.Header{}
	telemetry.InjectHTTPHeaders(ctx, header)
	assert.Contains(t, header.Get("traceparent"), span.SpanContext().TraceID().String())
}
