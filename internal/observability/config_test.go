package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/ca-srg/elseql/internal/types"
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

	shutdown, err := Init(&types.Config{
		OTelEnabled:              true,
		OTelServiceName:          "elseql-test",
		OTelExporterOTLPEndpoint: server.URL,
		OTelExporterOTLPProtocol: "http/protobuf",
		OTelResourceAttributes:   "service.namespace=elseql-test,environment=test",
		OTelTracesSampler:        "always_on",
		OTelTracesSamplerArg:     1.0,
	}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, span := otel.Tracer("elseql/test").Start(ctx, "integration-span")
	span.End()

	counter, err := otel.Meter("elseql/test").Int64Counter("elseql.test.counter", metric.WithDescription("test counter"))
	require.NoError(t, err)
	counter.Add(ctx, 1)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, shutdown(shutdownCtx))

	require.GreaterOrEqual(t, traceRequests.Load(), int32(1), "no trace export received")
	require.GreaterOrEqual(t, metricRequests.Load(), int32(1), "no metric export received")
}

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(&types.Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.Config
		wantErr bool
	}{
		{name: "disabled needs nothing", cfg: types.Config{}},
		{name: "enabled without endpoint", cfg: types.Config{OTelEnabled: true}, wantErr: true},
		{name: "http endpoint", cfg: types.Config{OTelEnabled: true, OTelExporterOTLPEndpoint: "http://collector:4318"}},
		{name: "http endpoint without scheme", cfg: types.Config{OTelEnabled: true, OTelExporterOTLPEndpoint: "collector:4318"}, wantErr: true},
		{name: "grpc host port", cfg: types.Config{OTelEnabled: true, OTelExporterOTLPEndpoint: "collector:4317", OTelExporterOTLPProtocol: "grpc"}},
		{name: "grpc without port", cfg: types.Config{OTelEnabled: true, OTelExporterOTLPEndpoint: "collector", OTelExporterOTLPProtocol: "grpc"}, wantErr: true},
		{name: "unknown protocol", cfg: types.Config{OTelEnabled: true, OTelExporterOTLPEndpoint: "http://c:1", OTelExporterOTLPProtocol: "thrift"}, wantErr: true},
		{name: "ratio out of range", cfg: types.Config{OTelEnabled: true, OTelExporterOTLPEndpoint: "http://c:1", OTelTracesSampler: "traceidratio", OTelTracesSamplerArg: 2}, wantErr: true},
		{name: "bad resource attribute", cfg: types.Config{OTelResourceAttributes: "novalue"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			_, err := LoadConfig(&cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(&types.Config{OTelResourceAttributes: "team=search, env = dev"})
	require.NoError(t, err)

	assert.Equal(t, "elseql", cfg.ServiceName)
	assert.Equal(t, protocolHTTP, cfg.ExporterProtocol)
	assert.Equal(t, 60*time.Second, cfg.MetricExportInterval)
	assert.Equal(t, map[string]string{"team": "search", "env": "dev", "service.name": "elseql"}, cfg.ResourceAttributes)
}
