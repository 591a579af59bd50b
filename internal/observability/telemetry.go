// Package observability configures OpenTelemetry tracing for lastgood.
// Tracing is off by default; spans then go to a noop tracer.
package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config holds telemetry configuration
type Config struct {
	Enabled     bool    `yaml:"enabled" env:"LASTGOOD_TRACING_ENABLED"`
	Exporter    string  `yaml:"exporter" env:"LASTGOOD_TRACING_EXPORTER"` // otlp-http, none
	Endpoint    string  `yaml:"endpoint" env:"LASTGOOD_TRACING_ENDPOINT"` // localhost:4318
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"` // 0.0 to 1.0
}

// Provider wraps the OpenTelemetry TracerProvider
type Provider struct {
	tp      *sdktrace.TracerProvider
	tracer  trace.Tracer
	enabled bool
}

var (
	providerMu     sync.RWMutex
	globalProvider = &Provider{tracer: noop.NewTracerProvider().Tracer("")}
)

func setProvider(p *Provider) {
	providerMu.Lock()
	globalProvider = p
	providerMu.Unlock()
}

func provider() *Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return globalProvider
}

// Init initializes the global telemetry provider
func Init(ctx context.Context, cfg Config) error {
	if !cfg.Enabled {
		setProvider(&Provider{tracer: noop.NewTracerProvider().Tracer("")})
		return nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "lastgood"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "otlp-http", "otlp", "":
		exp, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("create OTLP exporter: %w", err)
		}
		exporter = exp
	case "none":
		exporter = &noopExporter{}
	default:
		return fmt.Errorf("unknown exporter: %s", cfg.Exporter)
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRate > 0 && cfg.SampleRate < 1.0 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	setProvider(&Provider{
		tp:      tp,
		tracer:  tp.Tracer(cfg.ServiceName),
		enabled: true,
	})
	return nil
}

// UseTracerProvider installs an already built provider. Tests use it with
// an in-memory span recorder.
func UseTracerProvider(tp *sdktrace.TracerProvider) {
	setProvider(&Provider{tp: tp, tracer: tp.Tracer("lastgood"), enabled: true})
}

// Shutdown flushes and stops the telemetry provider
func Shutdown(ctx context.Context) error {
	p := provider()
	if p.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.tp.Shutdown(ctx)
}

// Tracer returns the global tracer
func Tracer() trace.Tracer {
	return provider().tracer
}

// Enabled returns whether tracing is enabled
func Enabled() bool {
	return provider().enabled
}

type noopExporter struct{}

func (e *noopExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return nil
}

func (e *noopExporter) Shutdown(ctx context.Context) error {
	return nil
}
