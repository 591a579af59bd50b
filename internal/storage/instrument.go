package storage

import (
	"context"
	"errors"
	"time"

	"github.com/oriys/lastgood/internal/metrics"
	"github.com/oriys/lastgood/internal/observability"
)

type instrumented struct {
	next Backend
	name string
}

// Instrument wraps b so every call records a Prometheus sample and an
// OpenTelemetry span labelled with name. A nil backend stays nil.
func Instrument(b Backend, name string) Backend {
	if b == nil {
		return nil
	}
	return &instrumented{next: b, name: name}
}

// Unwrap returns the backend underneath an Instrument wrapper.
func Unwrap(b Backend) Backend {
	if i, ok := b.(*instrumented); ok {
		return i.next
	}
	return b
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	metrics.RecordBackendOp(i.name, op, float64(time.Since(start).Microseconds())/1000, err)
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := observability.StartClientSpan(ctx, "storage.get",
		observability.AttrBackend.String(i.name),
		observability.AttrKey.String(key),
	)
	defer span.End()

	start := time.Now()
	val, err := i.next.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		i.observe("get", start, nil)
		span.SetAttributes(observability.AttrNotFound.Bool(true))
		observability.SetSpanOK(span)
	case err != nil:
		i.observe("get", start, err)
		observability.SetSpanError(span, err)
	default:
		i.observe("get", start, nil)
		span.SetAttributes(observability.AttrBytes.Int(len(val)))
		observability.SetSpanOK(span)
	}
	return val, err
}

func (i *instrumented) Set(ctx context.Context, key string, value []byte) error {
	ctx, span := observability.StartClientSpan(ctx, "storage.set",
		observability.AttrBackend.String(i.name),
		observability.AttrKey.String(key),
		observability.AttrBytes.Int(len(value)),
	)
	defer span.End()

	start := time.Now()
	err := i.next.Set(ctx, key, value)
	i.observe("set", start, err)
	finish(span, err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	ctx, span := observability.StartClientSpan(ctx, "storage.delete",
		observability.AttrBackend.String(i.name),
		observability.AttrKey.String(key),
	)
	defer span.End()

	start := time.Now()
	err := i.next.Delete(ctx, key)
	i.observe("delete", start, err)
	finish(span, err)
	return err
}

func (i *instrumented) Ping(ctx context.Context) error {
	ctx, span := observability.StartClientSpan(ctx, "storage.ping",
		observability.AttrBackend.String(i.name),
	)
	defer span.End()

	start := time.Now()
	err := i.next.Ping(ctx)
	i.observe("ping", start, err)
	finish(span, err)
	return err
}

func (i *instrumented) Close() error {
	return i.next.Close()
}
