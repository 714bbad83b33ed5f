package observability

import (
	"testing"

	"github.com/stretchr/testify/require"

	appconfig "github.com/relaygate/slackbridge/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(&appconfig.Config{})
	require.NoError(t, err)

	require.False(t, cfg.Enabled)
	require.Equal(t, "slackbridge", cfg.ServiceName)
	require.Equal(t, "http/protobuf", cfg.ExporterProtocol)
	require.Equal(t, "always_on", cfg.TracesSampler)
}

func TestLoadConfigRequiresEndpointWhenEnabled(t *testing.T) {
	_, err := LoadConfig(&appconfig.Config{OTelEnabled: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "endpoint")
}

func TestLoadConfigParsesResourceAttributes(t *testing.T) {
	cfg, err := LoadConfig(&appconfig.Config{
		OTelResourceAttributes: "deployment.environment=prod, team=platform",
	})
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.ResourceAttributes["deployment.environment"])
	require.Equal(t, "platform", cfg.ResourceAttributes["team"])
}

func TestLoadConfigRejectsMalformedAttributes(t *testing.T) {
	_, err := LoadConfig(&appconfig.Config{OTelResourceAttributes: "novalue"})
	require.Error(t, err)
}

func TestNormalizeOTLPHTTPPath(t *testing.T) {
	tests := map[string]struct {
		endpoint string
		suffix   string
		want     string
	}{
		"appends suffix to bare host":          {"http://otel:4318", "/v1/traces", "http://otel:4318/v1/traces"},
		"keeps existing suffix":                {"http://otel:4318/v1/traces", "/v1/traces", "http://otel:4318/v1/traces"},
		"appends suffix to custom base path":   {"https://otel.example.com/otlp", "/v1/metrics", "https://otel.example.com/otlp/v1/metrics"},
		"strips trailing slash before suffix":  {"http://otel:4318/", "/v1/metrics", "http://otel:4318/v1/metrics"},
		"tolerates suffix without leading dot": {"http://otel:4318", "v1/traces", "http://otel:4318/v1/traces"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := normalizeOTLPHTTPPath(tt.endpoint, tt.suffix)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseGRPCEndpoint(t *testing.T) {
	host, insecure, err := parseGRPCEndpoint("grpc://collector:4317")
	require.NoError(t, err)
	require.Equal(t, "collector:4317", host)
	require.True(t, insecure)

	host, insecure, err = parseGRPCEndpoint("https://collector:4317")
	require.NoError(t, err)
	require.Equal(t, "collector:4317", host)
	require.False(t, insecure)

	_, _, err = parseGRPCEndpoint("ftp://collector:4317")
	require.Error(t, err)
}
