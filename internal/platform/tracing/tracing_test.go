package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogurasousui/cafe-staffing/internal/platform/config"
)

func TestInit_Disabled(t *testing.T) {
	t.Parallel()

	shutdown, err := Init(context.Background(), config.TracingConfig{Exporter: config.TracingExporterNone}, "test", nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewExporter_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := newExporter(context.Background(), config.TracingConfig{Exporter: "jaeger"})
	assert.ErrorContains(t, err, "unsupported exporter")
}

func TestNewExporter_Stdout(t *testing.T) {
	t.Parallel()

	exp, err := newExporter(context.Background(), config.TracingConfig{Exporter: config.TracingExporterStdout})
	require.NoError(t, err)
	assert.NoError(t, exp.Shutdown(context.Background()))
}
