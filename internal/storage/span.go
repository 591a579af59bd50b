package storage

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/oriys/lastgood/internal/observability"
)

func finish(span trace.Span, err error) {
	if err != nil {
		observability.SetSpanError(span, err)
		return
	}
	observability.SetSpanOK(span)
}
