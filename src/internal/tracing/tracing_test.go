package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitWithExporterRecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	shutdown, err := InitWithExporter("transfer-orchestrator-test", exporter)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "TransferService.CreateTransfer")
	span.End()

	require.NoError(t, shutdown(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "TransferService.CreateTransfer", spans[0].Name)
}

func TestInitDisabledIsNoop(t *testing.T) {
	var out bytes.Buffer
	shutdown, err := Init("transfer-orchestrator-test", false, &out)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	assert.Zero(t, out.Len())
}

func TestInitWritesSpansToWriter(t *testing.T) {
	var out bytes.Buffer
	shutdown, err := Init("transfer-orchestrator-test", true, &out)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "sweep")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, out.String(), `"Name":"sweep"`)
}
