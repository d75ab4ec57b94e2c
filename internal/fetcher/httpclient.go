package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"resty.dev/v3"
)

const (
	// Default retry configuration: three extra attempts, waits start at 300ms and double.
	defaultRetryCount       = 3
	defaultRetryWaitTime    = 300 * time.Millisecond
	defaultRetryMaxWaitTime = 5 * time.Second
)

// RetryableStatuses are the response statuses that are retried with backoff.
var RetryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryableStatus reports whether a response status is retried.
func IsRetryableStatus(statusCode int) bool {
	return RetryableStatuses[statusCode]
}

// RetryPolicy bounds the attempts made for a single request.
type RetryPolicy struct {
	// Count is the number of attempts made after the first one.
	Count int
	// WaitTime is the first backoff delay; each further delay doubles it.
	WaitTime time.Duration
	// MaxWaitTime caps a single backoff delay.
	MaxWaitTime time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Count:       defaultRetryCount,
		WaitTime:    defaultRetryWaitTime,
		MaxWaitTime: defaultRetryMaxWaitTime,
	}
}

// NewHTTPClient creates a new HTTP client with retry logic and exponential backoff.
// Only retryCondition decides what is retried; resty's own conditions are off.
func NewHTTPClient(baseURL string, policy RetryPolicy) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(policy.Count).
		SetRetryWaitTime(policy.WaitTime).
		SetRetryMaxWaitTime(policy.MaxWaitTime).
		SetRetryDefaultConditions(false).
		AddRetryConditions(retryCondition).
		AddRetryHooks(retryHook)

	return client
}

// retryCondition determines whether a request should be retried based on the response and error
func retryCondition(r *resty.Response, err error) bool {
	// A response that arrived but failed to decode is not transient.
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false
		}
		return r == nil || r.StatusCode() == 0
	}

	return IsRetryableStatus(r.StatusCode())
}

// retryHook logs retry attempts for observability
func retryHook(r *resty.Response, err error) {
	if err != nil {
		slog.Debug("retrying request due to error",
			"url", r.Request.URL,
			"attempt", r.Request.Attempt,
			"error", err.Error())
		return
	}

	slog.Debug("retrying request due to status code",
		"url", r.Request.URL,
		"attempt", r.Request.Attempt,
		"status_code", r.StatusCode())
}

// Client is the resty-backed Fetcher.
type Client struct {
	client *resty.Client
}

// NewClient creates a Fetcher against baseURL using the given retry policy.
func NewClient(baseURL string, policy RetryPolicy) *Client {
	return &Client{client: NewHTTPClient(baseURL, policy)}
}

// Get performs a GET of path with the given query and returns the JSON body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	var body json.RawMessage

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		SetResult(&body).
		Get(path)

	if resp != nil && resp.StatusCode() > 0 && !resp.IsSuccess() {
		return nil, ClassifyHTTPError(resp.StatusCode())
	}

	if err != nil {
		if resp != nil && resp.IsSuccess() {
			return nil, NewValidationError("failed to decode response body", err)
		}
		return nil, classifyTransportError(err)
	}

	if len(body) == 0 || !json.Valid(body) {
		return nil, NewValidationError("response body is not a JSON document", nil)
	}

	return body, nil
}
