package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	env "github.com/netflix/go-env"
)

// Config holds every runtime setting for the bridge, resolved from
// environment variables.
type Config struct {
	// Slack webhook verification
	SlackSigningKey string `env:"SLACK_BOT_SIGNING_KEY,required=true"`

	// Downstream collaborators
	RuntimeURL string `env:"RUNTIME_URL,required=true"`
	CredsURL   string `env:"CREDS_URL,required=true"`

	// HTTP server
	HTTPHost        string        `env:"BRIDGE_HTTP_HOST,default=0.0.0.0"`
	HTTPPort        int           `env:"BRIDGE_HTTP_PORT,default=9003"`
	ReadTimeout     time.Duration `env:"BRIDGE_READ_TIMEOUT,default=30s"`
	WriteTimeout    time.Duration `env:"BRIDGE_WRITE_TIMEOUT,default=30s"`
	IdleTimeout     time.Duration `env:"BRIDGE_IDLE_TIMEOUT,default=120s"`
	ShutdownTimeout time.Duration `env:"BRIDGE_SHUTDOWN_TIMEOUT,default=30s"`

	// Outbound calls (Slack Web API, credentials service, event bus)
	OutboundTimeout time.Duration `env:"BRIDGE_OUTBOUND_TIMEOUT,default=10s"`

	// Event-bus forwarding
	ForwardRetryAttempts int           `env:"BRIDGE_FORWARD_RETRY_ATTEMPTS,default=3"`
	ForwardRetryDelay    time.Duration `env:"BRIDGE_FORWARD_RETRY_DELAY,default=500ms"`

	// Retained events: 0 keeps every matched event until it is closed
	// explicitly. A positive value evicts the oldest retained event once
	// the bound is exceeded.
	MaxRetainedEvents int `env:"BRIDGE_MAX_RETAINED_EVENTS,default=0"`

	// Webhook rate limits per minute; 0 disables the limiter.
	RateUserPerMinute    int `env:"BRIDGE_RATE_USER_PER_MINUTE,default=0"`
	RateChannelPerMinute int `env:"BRIDGE_RATE_CHANNEL_PER_MINUTE,default=0"`
	RateGlobalPerMinute  int `env:"BRIDGE_RATE_GLOBAL_PER_MINUTE,default=0"`

	// OpenTelemetry
	OTelEnabled              bool    `env:"OTEL_ENABLED,default=false"`
	OTelServiceName          string  `env:"OTEL_SERVICE_NAME"`
	OTelExporterOTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterOTLPProtocol string  `env:"OTEL_EXPORTER_OTLP_PROTOCOL"`
	OTelResourceAttributes   string  `env:"OTEL_RESOURCE_ATTRIBUTES"`
	OTelTracesSampler        string  `env:"OTEL_TRACES_SAMPLER"`
	OTelTracesSamplerArg     float64 `env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var config Config

	_, err := env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	if err := validateBaseURL("RUNTIME_URL", config.RuntimeURL); err != nil {
		return err
	}
	if err := validateBaseURL("CREDS_URL", config.CredsURL); err != nil {
		return err
	}

	if config.HTTPPort < 1 || config.HTTPPort > 65535 {
		return fmt.Errorf("BRIDGE_HTTP_PORT must be between 1 and 65535")
	}

	if config.OutboundTimeout <= 0 {
		return fmt.Errorf("BRIDGE_OUTBOUND_TIMEOUT must be greater than 0")
	}

	// Clamp retry attempts the way we clamp every other tunable
	if config.ForwardRetryAttempts < 1 {
		config.ForwardRetryAttempts = 1
	}
	if config.ForwardRetryAttempts > 10 {
		config.ForwardRetryAttempts = 10
	}
	if config.ForwardRetryDelay < 0 {
		config.ForwardRetryDelay = 0
	}

	if config.MaxRetainedEvents < 0 {
		return fmt.Errorf("BRIDGE_MAX_RETAINED_EVENTS cannot be negative")
	}

	if config.RateUserPerMinute < 0 || config.RateChannelPerMinute < 0 || config.RateGlobalPerMinute < 0 {
		return fmt.Errorf("webhook rate limits cannot be negative")
	}

	return nil
}

// validateBaseURL checks that a collaborator base URL is an absolute http(s)
// URL without a trailing slash ambiguity.
func validateBaseURL(name, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s URL format: %w", name, err)
	}

	if parsed.Scheme == "" {
		return fmt.Errorf("%s must include scheme (http:// or https://)", name)
	}
	if !strings.HasPrefix(parsed.Scheme, "http") {
		return fmt.Errorf("%s scheme must be http or https", name)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a valid host", name)
	}

	return nil
}
