package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/google/uuid"
	opensearch "github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	requestsigner "github.com/opensearch-project/opensearch-go/v4/signer/awsv2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ca-srg/elseql/internal/types"
)

var tracer = otel.Tracer("elseql/opensearch")

// Client sends elseql requests to an OpenSearch or Elasticsearch endpoint.
type Client struct {
	client      *opensearchapi.Client
	rateLimiter *rate.Limiter
	config      *Config
	logger      *zap.Logger
}

type Config struct {
	Endpoint          string
	Region            string
	Username          string
	Password          string
	InsecureSkipTLS   bool
	RateLimit         float64
	RateBurst         int
	ConnectionTimeout time.Duration
	RequestTimeout    time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	MaxConnections    int
	MaxIdleConns      int
	IdleConnTimeout   time.Duration
}

func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := &net.Dialer{
		Timeout:   cfg.ConnectionTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipTLS,
		},
		MaxConnsPerHost:       cfg.MaxConnections,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConns / 2,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
	}

	osConfig := opensearch.Config{
		Addresses: []string{cfg.Endpoint},
		Transport: transport,
		// Retries are driven by ExecuteWithRetry so they show up in the logs.
		DisableRetry: true,
	}

	// SigV4 signing for managed domains, basic auth otherwise.
	if cfg.Region != "" {
		awsConfig, err := config.LoadDefaultConfig(context.Background(),
			config.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		signer, err := requestsigner.NewSignerWithService(awsConfig, "es")
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS signer: %w", err)
		}
		osConfig.Signer = signer
	} else {
		osConfig.Username = cfg.Username
		osConfig.Password = cfg.Password
	}

	osClient, err := opensearchapi.NewClient(opensearchapi.Config{Client: osConfig})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSearch client: %w", err)
	}

	return &Client{
		client:      osClient,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		config:      cfg,
		logger:      logger,
	}, nil
}

// URL is the endpoint the client talks to.
func (c *Client) URL() string {
	return c.config.Endpoint
}

// Get issues a GET with a JSON body. Responses with a 4xx or 5xx status are
// returned as bodies so the caller can render the engine's own error; only
// failures to reach the engine produce an error.
func (c *Client) Get(ctx context.Context, path string, params map[string]string, body map[string]interface{}) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "opensearch.get")
	defer span.End()
	span.SetAttributes(attribute.String("opensearch.path", path))

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	start := time.Now()
	var (
		data   []byte
		status int
	)
	err := c.ExecuteWithRetry(ctx, func() error {
		var err error
		data, status, err = c.perform(ctx, path, params, payload)
		if err != nil {
			return err
		}
		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			return ClassifyHTTPError(status, string(data))
		}
		return nil
	}, "GET "+path)
	c.RecordRequest(time.Since(start), err == nil)

	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		var searchErr *SearchError
		if data != nil && errors.As(err, &searchErr) && searchErr.StatusCode > 0 {
			// Out of retries but the engine did answer.
			return engineBody(status, data), nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, err
	}

	return engineBody(status, data), nil
}

// GetMapping fetches the mapping of every index.
func (c *Client) GetMapping(ctx context.Context) (json.RawMessage, error) {
	raw, err := c.Get(ctx, "_mapping", nil, nil)
	if err != nil {
		return nil, err
	}

	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &probe) == nil && len(probe.Error) > 0 {
		return nil, NewSearchError(types.ErrorTypeNotFound, "mapping request failed: "+string(probe.Error))
	}
	return raw, nil
}

func (c *Client) perform(ctx context.Context, path string, params map[string]string, payload []byte) ([]byte, int, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limit wait: %w", err)
	}

	// RequestTimeout bounds the whole round trip, body included.
	reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	var reader io.Reader
	header := http.Header{}
	header.Set("X-Opaque-Id", uuid.New().String())
	if payload != nil {
		reader = bytes.NewReader(payload)
		header.Set("Content-Type", "application/json")
	}

	req, err := opensearch.BuildRequest(http.MethodGet, "/"+strings.TrimPrefix(path, "/"), reader, params, header)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Client.Perform(req.WithContext(reqCtx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, c.classifyTransportError(reqCtx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, resp.StatusCode, ctx.Err()
		}
		return nil, resp.StatusCode, c.classifyTransportError(reqCtx, err)
	}
	return data, resp.StatusCode, nil
}

func (c *Client) classifyTransportError(reqCtx context.Context, err error) *SearchError {
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("request timeout after %s: %w", c.config.RequestTimeout, err)
	}
	return ClassifyConnectionError(err)
}

// engineBody keeps JSON bodies as they are and wraps anything else (proxy
// pages, empty bodies) in the engine's error shape.
func engineBody(status int, data []byte) json.RawMessage {
	if json.Valid(data) {
		return json.RawMessage(data)
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(status)
	}
	wrapped, _ := json.Marshal(map[string]interface{}{
		"error":  fmt.Sprintf("HTTP %d: %s", status, msg),
		"status": status,
	})
	return wrapped
}

// HealthCheck pings the cluster health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	resp, err := c.client.Cluster.Health(ctx, &opensearchapi.ClusterHealthReq{})
	if err != nil {
		c.logger.Warn("health check failed", zap.String("endpoint", c.config.Endpoint), zap.Error(err))
		return fmt.Errorf("health check failed: %w", err)
	}

	if resp != nil {
		c.logger.Debug("health check successful",
			zap.String("endpoint", c.config.Endpoint),
			zap.String("status", resp.Status))
	}
	return nil
}

// RetryableOperation defines a function that can be retried
type RetryableOperation func() error

// ExecuteWithRetry executes an operation with exponential backoff retry logic
func (c *Client) ExecuteWithRetry(ctx context.Context, operation RetryableOperation, operationName string) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * c.config.RetryDelay
			c.logger.Info("retrying",
				zap.String("operation", operationName),
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", c.config.MaxRetries))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := operation()
		if err == nil {
			if attempt > 0 {
				c.logger.Info("operation succeeded after retries",
					zap.String("operation", operationName), zap.Int("retries", attempt))
			}
			return nil
		}
		lastErr = err

		var searchErr *SearchError
		if !errors.As(err, &searchErr) || !searchErr.IsRetryable() {
			c.logger.Debug("operation failed with non-retryable error",
				zap.String("operation", operationName), zap.Error(err))
			return err
		}
		c.logger.Warn("operation failed",
			zap.String("operation", operationName),
			zap.Int("attempt", attempt+1),
			zap.Int("attempts", c.config.MaxRetries+1),
			zap.Error(err))
	}

	return fmt.Errorf("%s operation failed after %d attempts, last error: %w",
		operationName, c.config.MaxRetries+1, lastErr)
}

// PerformanceMetrics holds request statistics for one client.
type PerformanceMetrics struct {
	RequestCount    int64
	SuccessCount    int64
	ErrorCount      int64
	TotalDuration   time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time
}

var (
	metricsMu     sync.Mutex
	globalMetrics = &PerformanceMetrics{}
)

// RecordRequest records request metrics
func (c *Client) RecordRequest(duration time.Duration, success bool) {
	metricsMu.Lock()
	defer metricsMu.Unlock()

	globalMetrics.RequestCount++
	globalMetrics.TotalDuration += duration
	globalMetrics.LastRequestTime = time.Now()

	if success {
		globalMetrics.SuccessCount++
	} else {
		globalMetrics.ErrorCount++
	}

	globalMetrics.AverageLatency = globalMetrics.TotalDuration / time.Duration(globalMetrics.RequestCount)
}

// GetMetrics returns a snapshot of the request metrics
func (c *Client) GetMetrics() PerformanceMetrics {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	return *globalMetrics
}

// LogMetrics logs current request metrics at debug level
func (c *Client) LogMetrics() {
	m := c.GetMetrics()
	c.logger.Debug("opensearch client metrics",
		zap.Int64("requests", m.RequestCount),
		zap.Int64("success", m.SuccessCount),
		zap.Int64("errors", m.ErrorCount),
		zap.Duration("avg_latency", m.AverageLatency))
}
