package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/hellobot/internal/config"
)

func TestSettingsFromConfig(t *testing.T) {
	t.Run("disabled applies defaults", func(t *testing.T) {
		s, err := SettingsFromConfig(&config.Config{})
		require.NoError(t, err)
		assert.False(t, s.Enabled)
		assert.Equal(t, "hellobot", s.ServiceName)
		assert.Equal(t, protocolHTTP, s.ExporterProtocol)
		assert.Equal(t, "hellobot", s.ResourceAttributes["service.name"])
	})

	t.Run("enabled requires endpoint", func(t *testing.T) {
		_, err := SettingsFromConfig(&config.Config{OTelEnabled: true})
		require.Error(t, err)
	})

	t.Run("resource attributes parsed", func(t *testing.T) {
		s, err := SettingsFromConfig(&config.Config{
			OTelEnabled:              true,
			OTelServiceName:          "bot",
			OTelExporterOTLPEndpoint: "https://collector:4318",
			OTelResourceAttributes:   "deployment.environment=prod, team = chat ,,",
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"deployment.environment": "prod",
			"team":                   "chat",
			"service.name":           "bot",
		}, s.ResourceAttributes)
	})

	t.Run("invalid inputs rejected", func(t *testing.T) {
		cases := []*config.Config{
			nil,
			{OTelResourceAttributes: "novalue"},
			{OTelEnabled: true, OTelExporterOTLPEndpoint: "collector:4318"},
			{OTelEnabled: true, OTelExporterOTLPEndpoint: "collector", OTelExporterOTLPProtocol: "grpc"},
			{OTelEnabled: true, OTelExporterOTLPEndpoint: "https://c:4318", OTelExporterOTLPProtocol: "thrift"},
			{OTelEnabled: true, OTelExporterOTLPEndpoint: "https://c:4318", OTelTracesSampler: "traceidratio", OTelTracesSamplerArg: 2},
		}
		for i, cfg := range cases {
			_, err := SettingsFromConfig(cfg)
			assert.Error(t, err, "case %d", i)
		}
	})
}

func TestNormalizeOTLPHTTPPath(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name     string
		endpoint string
		suffix   string
		want     string
		wantErr  bool
	}{
		{name: "no path appends suffix", endpoint: "https://collector:4318", suffix: "/v1/metrics", want: "https://collector:4318/v1/metrics"},
		{name: "prefix path kept", endpoint: "https://example.com/otlp/", suffix: "/v1/traces", want: "https://example.com/otlp/v1/traces"},
		{name: "suffix already present", endpoint: "https://example.com/otlp/v1/metrics", suffix: "/v1/metrics", want: "https://example.com/otlp/v1/metrics"},
		{name: "query string preserved", endpoint: "https://example.com/otlp?token=abc", suffix: "/v1/traces", want: "https://example.com/otlp/v1/traces?token=abc"},
		{name: "empty endpoint error", endpoint: "", suffix: "/v1/metrics", wantErr: true},
	}

	for _, tt := range testcases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeOTLPHTTPPath(tt.endpoint, tt.suffix)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGRPCEndpoint(t *testing.T) {
	host, insecure, err := parseGRPCEndpoint("collector:4317")
	require.NoError(t, err)
	assert.Equal(t, "collector:4317", host)
	assert.True(t, insecure)

	host, insecure, err = parseGRPCEndpoint("https://collector:4317")
	require.NoError(t, err)
	assert.Equal(t, "collector:4317", host)
	assert.False(t, insecure)

	_, _, err = parseGRPCEndpoint("ftp://collector:4317")
	require.Error(t, err)
}
