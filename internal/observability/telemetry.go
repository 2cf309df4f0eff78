// Package observability wires OpenTelemetry tracing and metrics for the bot.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ca-srg/hellobot/internal/config"
)

const defaultShutdownTimeout = 5 * time.Second

// Telemetry owns the global tracer and meter providers
type Telemetry struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Init installs global providers. When telemetry is disabled the providers
// still exist so instrumented code runs unchanged, but nothing is exported.
func Init(ctx context.Context, cfg *config.Config) (*Telemetry, error) {
	s, err := SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !s.Enabled {
		t := &Telemetry{
			tp: sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample())),
			mp: sdkmetric.NewMeterProvider(),
		}
		t.install()
		return t, nil
	}

	res, err := newResource(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to build resource information: %w", err)
	}

	spanExporter, err := newTraceExporter(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to create OTLP trace exporter: %w", err)
	}
	metricExporter, err := newMetricExporter(ctx, s)
	if err != nil {
		_ = spanExporter.Shutdown(ctx)
		return nil, fmt.Errorf("observability: failed to create OTLP metric exporter: %w", err)
	}

	t := &Telemetry{
		tp: sdktrace.NewTracerProvider(
			sdktrace.WithSampler(samplerFromSettings(s)),
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(spanExporter),
		),
		mp: sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(s.MetricExportInterval))),
		),
	}
	t.install()
	return t, nil
}

func (t *Telemetry) install() {
	otel.SetTracerProvider(t.tp)
	otel.SetMeterProvider(t.mp)
}

// ForceFlush exports buffered spans and metrics without shutting down.
// Lambda freezes the sandbox between invocations, so call this before returning.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil {
		return nil
	}
	ctx, cancel := ensureTimeout(ctx)
	defer cancel()

	var errs []error
	if err := t.tp.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer provider: %w", err))
	}
	if err := t.mp.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("meter provider: %w", err))
	}
	return errors.Join(errs...)
}

// Shutdown flushes and stops both providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	ctx, cancel := ensureTimeout(ctx)
	defer cancel()

	var errs []error
	if err := t.tp.Shutdown(ctx); err != nil {
		log.Printf("observability: failed to shutdown tracer provider: %v", err)
		errs = append(errs, fmt.Errorf("tracer provider: %w", err))
	}
	if err := t.mp.Shutdown(ctx); err != nil {
		log.Printf("observability: failed to shutdown meter provider: %v", err)
		errs = append(errs, fmt.Errorf("meter provider: %w", err))
	}
	return errors.Join(errs...)
}

func ensureTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultShutdownTimeout)
}

func samplerFromSettings(s *Settings) sdktrace.Sampler {
	switch s.TracesSampler {
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.TracesSamplerArg))
	case "parentbased_always_on":
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	default:
		return sdktrace.AlwaysSample()
	}
}

func newResource(ctx context.Context, s *Settings) (*resource.Resource, error) {
	attrs := make([]attribute.KeyValue, 0, len(s.ResourceAttributes))
	for k, v := range s.ResourceAttributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	return resource.New(
		ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
	)
}
