package observability

import (
	"context"
	"fmt"
	"strings"

	otlpmetricgrpc "go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otlpmetrichttp "go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otlptracegrpc "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newTraceExporter(ctx context.Context, s *Settings) (sdktrace.SpanExporter, error) {
	switch s.ExporterProtocol {
	case protocolHTTP:
		endpoint, err := normalizeOTLPHTTPPath(s.ExporterEndpoint, "/v1/traces")
		if err != nil {
			return nil, fmt.Errorf("observability: invalid OTLP HTTP endpoint: %w", err)
		}
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(endpoint)}
		if strings.HasPrefix(endpoint, "http://") {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	case protocolGRPC:
		endpoint, insecure, err := parseGRPCEndpoint(s.ExporterEndpoint)
		if err != nil {
			return nil, fmt.Errorf("observability: invalid OTLP gRPC endpoint: %w", err)
		}
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("observability: unsupported trace exporter protocol %q", s.ExporterProtocol)
	}
}

func newMetricExporter(ctx context.Context, s *Settings) (sdkmetric.Exporter, error) {
	switch s.ExporterProtocol {
	case protocolHTTP:
		endpoint, err := normalizeOTLPHTTPPath(s.ExporterEndpoint, "/v1/metrics")
		if err != nil {
			return nil, fmt.Errorf("observability: invalid OTLP HTTP endpoint: %w", err)
		}
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(endpoint)}
		if strings.HasPrefix(endpoint, "http://") {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	case protocolGRPC:
		endpoint, insecure, err := parseGRPCEndpoint(s.ExporterEndpoint)
		if err != nil {
			return nil, fmt.Errorf("observability: invalid OTLP gRPC endpoint: %w", err)
		}
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(endpoint)}
		if insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("observability: unsupported metric exporter protocol %q", s.ExporterProtocol)
	}
}
