package opensearch

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ca-srg/elseql/internal/types"
)

type SearchError struct {
	Type       types.ErrorType `json:"type"`
	Message    string          `json:"message"`
	StatusCode int             `json:"status_code,omitempty"`
	Retryable  bool            `json:"retryable"`
	RetryAfter time.Duration   `json:"retry_after,omitempty"`
	Suggestion string          `json:"suggestion,omitempty"`
	Cause      error           `json:"-"`
	Timestamp  time.Time       `json:"timestamp"`
}

func (e *SearchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] %s (HTTP %d)", e.Type, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *SearchError) Unwrap() error {
	return e.Cause
}

func (e *SearchError) IsRetryable() bool {
	return e.Retryable
}

func NewSearchError(errType types.ErrorType, message string) *SearchError {
	return &SearchError{
		Type:      errType,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now(),
	}
}

func NewRetryableSearchError(errType types.ErrorType, message string, retryAfter time.Duration) *SearchError {
	return &SearchError{
		Type:       errType,
		Message:    message,
		Retryable:  true,
		RetryAfter: retryAfter,
		Timestamp:  time.Now(),
	}
}

// ClassifyHTTPError maps an engine status code to a SearchError. Only rate
// limiting and server side failures are retryable.
func ClassifyHTTPError(statusCode int, body string) *SearchError {
	switch statusCode {
	case http.StatusUnauthorized:
		return &SearchError{
			Type:       types.ErrorTypeAuthentication,
			Message:    "authentication failed",
			StatusCode: statusCode,
			Suggestion: "check ELSEQL_USERNAME and ELSEQL_PASSWORD, or the AWS credentials when ELSEQL_REGION is set",
			Timestamp:  time.Now(),
		}
	case http.StatusForbidden:
		return &SearchError{
			Type:       types.ErrorTypeAuthentication,
			Message:    "access denied",
			StatusCode: statusCode,
			Suggestion: "check that the credentials are allowed to search this index",
			Timestamp:  time.Now(),
		}
	case http.StatusNotFound:
		return &SearchError{
			Type:       types.ErrorTypeNotFound,
			Message:    "index or endpoint not found",
			StatusCode: statusCode,
			Suggestion: "check the endpoint URL and the index name",
			Timestamp:  time.Now(),
		}
	case http.StatusRequestTimeout:
		return &SearchError{
			Type:       types.ErrorTypeNetworkTimeout,
			Message:    "request timed out",
			StatusCode: statusCode,
			Retryable:  true,
			RetryAfter: 5 * time.Second,
			Timestamp:  time.Now(),
		}
	case http.StatusTooManyRequests:
		retryAfter := 10 * time.Second
		if strings.Contains(body, "retry after") {
			retryAfter = 30 * time.Second
		}
		return &SearchError{
			Type:       types.ErrorTypeRateLimit,
			Message:    "rate limited by the engine",
			StatusCode: statusCode,
			Retryable:  true,
			RetryAfter: retryAfter,
			Suggestion: "lower ELSEQL_RATE_LIMIT",
			Timestamp:  time.Now(),
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &SearchError{
			Type:       types.ErrorTypeServer,
			Message:    "engine server error",
			StatusCode: statusCode,
			Retryable:  true,
			RetryAfter: 10 * time.Second,
			Suggestion: "check the cluster health",
			Timestamp:  time.Now(),
		}
	default:
		return &SearchError{
			Type:       types.ErrorTypeUnknown,
			Message:    fmt.Sprintf("unexpected HTTP status: %s", body),
			StatusCode: statusCode,
			Retryable:  statusCode >= 500,
			RetryAfter: 5 * time.Second,
			Timestamp:  time.Now(),
		}
	}
}

// ClassifyConnectionError maps a failure to reach the engine to a SearchError.
func ClassifyConnectionError(err error) *SearchError {
	errMsg := err.Error()

	if strings.Contains(errMsg, "timeout") {
		return &SearchError{
			Type:       types.ErrorTypeNetworkTimeout,
			Message:    errMsg,
			Retryable:  true,
			RetryAfter: 5 * time.Second,
			Suggestion: "check the network and the endpoint",
			Cause:      err,
			Timestamp:  time.Now(),
		}
	}

	if strings.Contains(errMsg, "connection refused") {
		return &SearchError{
			Type:       types.ErrorTypeConnection,
			Message:    errMsg,
			Suggestion: "check the endpoint host and port",
			Cause:      err,
			Timestamp:  time.Now(),
		}
	}

	if strings.Contains(errMsg, "no such host") {
		return &SearchError{
			Type:       types.ErrorTypeConnection,
			Message:    errMsg,
			Suggestion: "check the endpoint host name",
			Cause:      err,
			Timestamp:  time.Now(),
		}
	}

	return &SearchError{
		Type:       types.ErrorTypeUnknown,
		Message:    errMsg,
		Retryable:  true,
		RetryAfter: 10 * time.Second,
		Suggestion: "check the network",
		Cause:      err,
		Timestamp:  time.Now(),
	}
}
