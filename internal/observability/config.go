package observability

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ca-srg/hellobot/internal/config"
)

const (
	defaultServiceName      = "hellobot"
	protocolHTTP            = "http/protobuf"
	protocolGRPC            = "grpc"
	resourceServiceNameKey  = "service.name"
	defaultMetricInterval   = 60 * time.Second
	defaultTraceSamplerName = "always_on"
)

// Settings are the OpenTelemetry options resolved from the process config
type Settings struct {
	Enabled              bool
	ServiceName          string
	ExporterEndpoint     string
	ExporterProtocol     string
	ResourceAttributes   map[string]string
	TracesSampler        string
	TracesSamplerArg     float64
	MetricExportInterval time.Duration
}

// SettingsFromConfig resolves and validates telemetry settings
func SettingsFromConfig(cfg *config.Config) (*Settings, error) {
	if cfg == nil {
		return nil, fmt.Errorf("observability: nil configuration provided")
	}

	attrs, err := parseResourceAttributes(cfg.OTelResourceAttributes)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to parse resource attributes: %w", err)
	}

	s := &Settings{
		Enabled:            cfg.OTelEnabled,
		ServiceName:        strings.TrimSpace(cfg.OTelServiceName),
		ExporterEndpoint:   strings.TrimSpace(cfg.OTelExporterOTLPEndpoint),
		ExporterProtocol:   strings.ToLower(strings.TrimSpace(cfg.OTelExporterOTLPProtocol)),
		ResourceAttributes: attrs,
		TracesSampler:      strings.ToLower(strings.TrimSpace(cfg.OTelTracesSampler)),
		TracesSamplerArg:   cfg.OTelTracesSamplerArg,
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if s.ServiceName == "" {
		s.ServiceName = defaultServiceName
	}
	if s.ExporterProtocol == "" {
		s.ExporterProtocol = protocolHTTP
	}
	if s.TracesSampler == "" {
		s.TracesSampler = defaultTraceSamplerName
	}
	if s.MetricExportInterval <= 0 {
		s.MetricExportInterval = defaultMetricInterval
	}
	if s.ResourceAttributes == nil {
		s.ResourceAttributes = make(map[string]string)
	}
	if _, ok := s.ResourceAttributes[resourceServiceNameKey]; !ok {
		s.ResourceAttributes[resourceServiceNameKey] = s.ServiceName
	}

	if !s.Enabled {
		return nil
	}

	if s.ExporterEndpoint == "" {
		return fmt.Errorf("observability: OTLP exporter endpoint is required when OpenTelemetry is enabled")
	}

	switch s.ExporterProtocol {
	case protocolHTTP:
		parsed, err := url.Parse(s.ExporterEndpoint)
		if err != nil {
			return fmt.Errorf("observability: invalid OTLP exporter endpoint: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("observability: OTLP exporter endpoint must include http or https scheme when using http/protobuf protocol")
		}
		if parsed.Host == "" {
			return fmt.Errorf("observability: OTLP exporter endpoint must include a host")
		}
	case protocolGRPC:
		if _, _, err := parseGRPCEndpoint(s.ExporterEndpoint); err != nil {
			return fmt.Errorf("observability: invalid OTLP exporter endpoint for grpc protocol: %w", err)
		}
	default:
		return fmt.Errorf("observability: unsupported OTLP exporter protocol %q", s.ExporterProtocol)
	}

	if s.TracesSampler == "traceidratio" && (s.TracesSamplerArg <= 0 || s.TracesSamplerArg > 1) {
		return fmt.Errorf("observability: traces sampler argument must be between 0 and 1 when sampler is traceidratio")
	}
	return nil
}

func parseResourceAttributes(input string) (map[string]string, error) {
	attributes := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return attributes, nil
	}

	for _, pair := range strings.Split(input, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid resource attribute %q", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("resource attribute key cannot be empty")
		}
		attributes[key] = strings.TrimSpace(value)
	}
	return attributes, nil
}

// normalizeOTLPHTTPPath appends the per-signal suffix (e.g. /v1/traces) unless
// the endpoint already ends with it. Query strings are preserved.
func normalizeOTLPHTTPPath(endpoint string, suffix string) (string, error) {
	if strings.TrimSpace(endpoint) == "" {
		return "", fmt.Errorf("endpoint cannot be empty")
	}
	normalizedSuffix := "/" + strings.Trim(strings.TrimSpace(suffix), "/")

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	trimmedPath := strings.TrimSuffix(parsed.Path, "/")
	switch {
	case trimmedPath == "":
		parsed.Path = normalizedSuffix
	case strings.HasSuffix(trimmedPath, normalizedSuffix):
		parsed.Path = trimmedPath
	default:
		parsed.Path = trimmedPath + normalizedSuffix
	}
	return parsed.String(), nil
}

// parseGRPCEndpoint returns host:port and whether the connection is plaintext
func parseGRPCEndpoint(raw string) (string, bool, error) {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return "", false, fmt.Errorf("endpoint cannot be empty")
	}
	if !strings.Contains(endpoint, "://") {
		if !strings.Contains(endpoint, ":") {
			return "", false, fmt.Errorf("endpoint should be host:port")
		}
		return endpoint, true, nil
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", false, err
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("endpoint must include host")
	}
	switch parsed.Scheme {
	case "http", "grpc":
		return parsed.Host, true, nil
	case "https", "grpcs":
		return parsed.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
}
