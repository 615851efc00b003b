package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogExporterLogsSpans(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(NewLogExporter(zap.New(core))))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "Collector.Run")
	span.SetAttributes(attribute.String("listing_url", "https://medlineplus.gov/druginformation.html"))
	span.SetStatus(codes.Error, "unexpected status 503")
	span.End()

	entries := logs.FilterMessage("span finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "Collector.Run", fields["span"])
	assert.Equal(t, "Error", fields["status"])
	assert.Equal(t, "unexpected status 503", fields["status_description"])
	assert.Equal(t, "https://medlineplus.gov/druginformation.html", fields["listing_url"])
	assert.Equal(t, "trace", entries[0].LoggerName)
}
