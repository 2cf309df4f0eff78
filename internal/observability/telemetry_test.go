package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/ca-srg/hellobot/internal/config"
)

func TestInitExportsToOTLPHTTP(t *testing.T) {
	var traceRequests atomic.Int32
	var metricRequests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/traces":
			traceRequests.Add(1)
		case "/v1/metrics":
			metricRequests.Add(1)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{
		OTelEnabled:              true,
		OTelServiceName:          "hellobot-test",
		OTelExporterOTLPEndpoint: server.URL,
		OTelExporterOTLPProtocol: "http/protobuf",
		OTelResourceAttributes:   "environment=test",
		OTelTracesSampler:        "always_on",
		OTelTracesSamplerArg:     1.0,
	}

	ctx := context.Background()
	tel, err := Init(ctx, cfg)
	require.NoError(t, err)

	_, span := otel.Tracer("hellobot/test").Start(ctx, "flush-span")
	span.End()

	counter, err := otel.Meter("hellobot/test").Int64Counter("hellobot.test.counter", metric.WithDescription("test counter"))
	require.NoError(t, err)
	counter.Add(ctx, 1)

	flushCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, tel.ForceFlush(flushCtx))
	require.GreaterOrEqual(t, traceRequests.Load(), int32(1), "no trace export after flush")
	require.GreaterOrEqual(t, metricRequests.Load(), int32(1), "no metric export after flush")

	require.NoError(t, tel.Shutdown(flushCtx))
}

func TestInitDisabledIsNoop(t *testing.T) {
	tel, err := Init(context.Background(), &config.Config{})
	require.NoError(t, err)
	require.NoError(t, tel.ForceFlush(context.Background()))
	require.NoError(t, tel.Shutdown(context.Background()))

	var nilTel *Telemetry
	require.NoError(t, nilTel.ForceFlush(context.Background()))
}
