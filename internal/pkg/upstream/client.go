package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/metrics"
)

const maxBodyLog = 512

// Client sends JSON requests to a single upstream service with a fixed
// per-call timeout and no retries.
type Client struct {
	service    string
	httpClient *http.Client
	timeout    time.Duration
	headers    map[string]string
}

func NewClient(service string, timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		service:    service,
		httpClient: &http.Client{},
		timeout:    timeout,
		headers:    headers,
	}
}

// Response is the raw body of a completed exchange.
type Response struct {
	StatusCode int
	Body       []byte
}

// Do sends payload as JSON and returns the response body. Only transport
// failures and non-2xx statuses are reported as failures; decoding is left to
// the caller.
func (c *Client) Do(ctx context.Context, method, url string, payload any) Result[Response] {
	result := c.do(ctx, method, url, payload)
	metrics.UpstreamCalls.WithLabelValues(c.service, string(result.Outcome)).Inc()
	return result
}

func (c *Client) do(ctx context.Context, method, url string, payload any) Result[Response] {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return Fail[Response](OutcomeMalformed, 0, fmt.Errorf("failed to encode request: %w", err))
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return Fail[Response](OutcomeUnavailable, 0, fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome := Classify(err)
		slog.Warn("Upstream call failed", "service", c.service, "url", url, "outcome", outcome, "error", err)
		return Fail[Response](outcome, 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome := Classify(err)
		return Fail[Response](outcome, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("Upstream returned error status",
			"service", c.service,
			"url", url,
			"status", resp.StatusCode,
			"body", truncate(respBody),
		)
		return Fail[Response](OutcomeUnavailable, resp.StatusCode, fmt.Errorf("%s returned status %d", c.service, resp.StatusCode))
	}

	return OK(Response{StatusCode: resp.StatusCode, Body: respBody}, resp.StatusCode)
}

func truncate(b []byte) string {
	if len(b) > maxBodyLog {
		return string(b[:maxBodyLog]) + "..."
	}
	return string(b)
}
