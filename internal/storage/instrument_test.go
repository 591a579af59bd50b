package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/oriys/lastgood/internal/metrics"
	"github.com/oriys/lastgood/internal/observability"
)

func TestInstrumentNil(t *testing.T) {
	assert.Nil(t, Instrument(nil, "memory"))
}

func TestInstrument(t *testing.T) {
	metrics.InitPrometheus("lastgood", nil)
	rec := tracetest.NewSpanRecorder()
	observability.UseTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	defer observability.Init(context.Background(), observability.Config{})

	ctx := context.Background()
	mem := NewMemory()
	b := Instrument(mem, "memory")
	assert.Same(t, mem, Unwrap(b))

	require.NoError(t, b.Set(ctx, "k", []byte("v")))
	_, err := b.Get(ctx, "k")
	require.NoError(t, err)
	_, err = b.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mem.FailDelete(errors.New("locked"))
	assert.Error(t, b.Delete(ctx, "k"))
	require.NoError(t, b.Ping(ctx))

	spans := rec.Ended()
	require.Len(t, spans, 5)
	assert.Equal(t, "storage.set", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[2].Status().Code, "not found is not a span error")
	assert.Equal(t, codes.Error, spans[3].Status().Code)

	count, err := testutil.GatherAndCount(metrics.PrometheusRegistry(), "lastgood_backend_ops_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count, "set, get, delete(failed), ping series")

	require.NoError(t, b.Close())
}
