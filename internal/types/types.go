package types

import (
	"time"
)

// ErrorType classifies failures talking to the search engine.
type ErrorType string

const (
	ErrorTypeNetworkTimeout ErrorType = "network_timeout"
	ErrorTypeConnection     ErrorType = "connection"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeServer         ErrorType = "server"
	ErrorTypeUnknown        ErrorType = "unknown"
)

// Config represents the elseql configuration
type Config struct {
	// Search engine connection
	Endpoint          string        `json:"endpoint" yaml:"endpoint" env:"ELSEQL_ENDPOINT,default=http://localhost:9200"`
	Region            string        `json:"region" yaml:"region" env:"ELSEQL_REGION"`
	Username          string        `json:"username" yaml:"username" env:"ELSEQL_USERNAME"`
	Password          string        `json:"-" yaml:"password" env:"ELSEQL_PASSWORD"`
	PasswordSecretID  string        `json:"password_secret_id" yaml:"password_secret_id" env:"ELSEQL_PASSWORD_SECRET_ID"`
	InsecureSkipTLS   bool          `json:"insecure_skip_tls" yaml:"insecure_skip_tls" env:"ELSEQL_INSECURE_SKIP_TLS,default=false"`
	RateLimit         float64       `json:"rate_limit" yaml:"-" env:"ELSEQL_RATE_LIMIT,default=10.0"`
	RateBurst         int           `json:"rate_burst" yaml:"-" env:"ELSEQL_RATE_BURST,default=20"`
	ConnectionTimeout time.Duration `json:"connection_timeout" yaml:"-" env:"ELSEQL_CONNECTION_TIMEOUT,default=30s"`
	RequestTimeout    time.Duration `json:"request_timeout" yaml:"-" env:"ELSEQL_REQUEST_TIMEOUT,default=60s"`
	MaxRetries        int           `json:"max_retries" yaml:"-" env:"ELSEQL_MAX_RETRIES,default=3"`
	RetryDelay        time.Duration `json:"retry_delay" yaml:"-" env:"ELSEQL_RETRY_DELAY,default=1s"`
	MaxConnections    int           `json:"max_connections" yaml:"-" env:"ELSEQL_MAX_CONNECTIONS,default=100"`
	MaxIdleConns      int           `json:"max_idle_conns" yaml:"-" env:"ELSEQL_MAX_IDLE_CONNS,default=10"`
	IdleConnTimeout   time.Duration `json:"idle_conn_timeout" yaml:"-" env:"ELSEQL_IDLE_CONN_TIMEOUT,default=90s"`

	// Session
	Debug        bool   `json:"debug" env:"ELSEQL_DEBUG,default=false"`
	Profile      string `json:"profile" env:"ELSEQL_PROFILE"`
	ProfilesFile string `json:"profiles_file" env:"ELSEQL_PROFILES_FILE"`
	HistoryFile  string `json:"history_file" env:"ELSEQL_HISTORY_FILE"`
	StatsDB      string `json:"stats_db" env:"ELSEQL_STATS_DB"`

	// Logging
	LogEnv   string `json:"log_env" env:"LOG_ENV,default=cli"`
	LogLevel string `json:"log_level" env:"LOG_LEVEL"`

	// OpenTelemetry
	OTelEnabled              bool    `json:"otel_enabled" env:"OTEL_ENABLED,default=false"`
	OTelServiceName          string  `json:"otel_service_name" env:"OTEL_SERVICE_NAME,default=elseql"`
	OTelExporterOTLPEndpoint string  `json:"otel_exporter_otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterOTLPProtocol string  `json:"otel_exporter_otlp_protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	OTelResourceAttributes   string  `json:"otel_resource_attributes" env:"OTEL_RESOURCE_ATTRIBUTES"`
	OTelTracesSampler        string  `json:"otel_traces_sampler" env:"OTEL_TRACES_SAMPLER,default=always_on"`
	OTelTracesSamplerArg     float64 `json:"otel_traces_sampler_arg" env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
}
