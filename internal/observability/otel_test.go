package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestParseOTLPProtocol(t *testing.T) {
	tests := []struct {
		input   string
		want    otlpProtocol
		wantErr bool
	}{
		{"", otlpProtocolGRPC, false},
		{"grpc", otlpProtocolGRPC, false},
		{"GRPC", otlpProtocolGRPC, false},
		{"http", otlpProtocolHTTP, false},
		{"http/protobuf", otlpProtocolHTTP, false},
		{" http ", otlpProtocolHTTP, false},
		{"udp", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseOTLPProtocol(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTraceSamplerForRatio(t *testing.T) {
	assert.Equal(t, sdktrace.NeverSample().Description(), traceSamplerForRatio(0).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), traceSamplerForRatio(-1).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), traceSamplerForRatio(1).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), traceSamplerForRatio(2).Description())

	partial := traceSamplerForRatio(0.25)
	assert.Contains(t, partial.Description(), "ParentBased")
}

func TestIsHTTPEndpointURL(t *testing.T) {
	assert.True(t, isHTTPEndpointURL("http://collector:4318"))
	assert.True(t, isHTTPEndpointURL("https://collector:4318/v1/traces"))
	assert.False(t, isHTTPEndpointURL("collector:4317"))
}

func TestInitStoreMetrics(t *testing.T) {
	metrics, err := InitStoreMetrics()
	require.NoError(t, err)
	require.NotNil(t, metrics)
}

func TestStoreMetricsNilReceiver(t *testing.T) {
	var metrics *StoreMetrics
	// All recorders must be safe on a nil receiver.
	metrics.ObserveQuery(t.Context(), "orders", "get", time.Now(), nil)
	metrics.ObserveAggregation(t.Context(), 3)
	metrics.ObserveTx(t.Context(), true)
	metrics.ObserveTx(t.Context(), false)
}
