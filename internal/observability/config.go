package observability

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ca-srg/elseql/internal/types"
)

const (
	defaultServiceName     = "elseql"
	protocolHTTP           = "http/protobuf"
	protocolGRPC           = "grpc"
	resourceServiceNameKey = "service.name"
)

// Config keeps the OpenTelemetry settings resolved from types.Config.
type Config struct {
	Enabled              bool
	ServiceName          string
	ExporterEndpoint     string
	ExporterProtocol     string
	ResourceAttributes   map[string]string
	TracesSampler        string
	TracesSamplerArg     float64
	MetricExportInterval time.Duration
}

// LoadConfig resolves and validates the telemetry part of the root config.
func LoadConfig(cfg *types.Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("observability: nil root configuration provided")
	}

	attrs, err := parseResourceAttributes(cfg.OTelResourceAttributes)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to parse resource attributes: %w", err)
	}

	c := &Config{
		Enabled:            cfg.OTelEnabled,
		ServiceName:        strings.TrimSpace(cfg.OTelServiceName),
		ExporterEndpoint:   strings.TrimSpace(cfg.OTelExporterOTLPEndpoint),
		ExporterProtocol:   strings.ToLower(strings.TrimSpace(cfg.OTelExporterOTLPProtocol)),
		ResourceAttributes: attrs,
		TracesSampler:      strings.ToLower(strings.TrimSpace(cfg.OTelTracesSampler)),
		TracesSamplerArg:   cfg.OTelTracesSamplerArg,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate fills defaults and, when telemetry is enabled, checks the exporter
// endpoint against the protocol.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("observability: config is nil")
	}

	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.ExporterProtocol == "" {
		c.ExporterProtocol = protocolHTTP
	}
	if c.TracesSampler == "" {
		c.TracesSampler = "always_on"
	}
	if c.MetricExportInterval <= 0 {
		c.MetricExportInterval = 60 * time.Second
	}
	if c.ResourceAttributes == nil {
		c.ResourceAttributes = make(map[string]string)
	}
	if _, ok := c.ResourceAttributes[resourceServiceNameKey]; !ok {
		c.ResourceAttributes[resourceServiceNameKey] = c.ServiceName
	}

	if !c.Enabled {
		return nil
	}

	if c.ExporterEndpoint == "" {
		return fmt.Errorf("observability: OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED is true")
	}

	switch c.ExporterProtocol {
	case protocolHTTP:
		parsed, err := url.Parse(c.ExporterEndpoint)
		if err != nil {
			return fmt.Errorf("observability: invalid OTLP exporter endpoint: %w", err)
		}
		if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("observability: OTLP http endpoint must look like http(s)://host[:port]")
		}
	case protocolGRPC:
		if _, _, err := parseGRPCEndpoint(c.ExporterEndpoint); err != nil {
			return fmt.Errorf("observability: invalid OTLP grpc endpoint: %w", err)
		}
	default:
		return fmt.Errorf("observability: unsupported OTLP exporter protocol %q", c.ExporterProtocol)
	}

	if c.TracesSampler == "traceidratio" && (c.TracesSamplerArg <= 0 || c.TracesSamplerArg > 1) {
		return fmt.Errorf("observability: traceidratio sampler needs an argument in (0, 1]")
	}

	return nil
}

// parseResourceAttributes reads OTEL_RESOURCE_ATTRIBUTES style k=v,k=v pairs.
func parseResourceAttributes(input string) (map[string]string, error) {
	attributes := make(map[string]string)

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
