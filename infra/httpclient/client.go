package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Config represents configuration for the shared HTTP client
type Config struct {
	Timeout        time.Duration
	DefaultHeaders map[string]string
}

// Request represents a standardized outbound request. Endpoint may be an
// absolute URL; QueryParams are merged into it.
type Request struct {
	Method      string
	Endpoint    string
	Headers     map[string]string
	Body        any
	QueryParams map[string]string
}

// Response represents a standardized HTTP response. It is returned for every
// completed exchange, including non-2xx statuses; callers classify those
// themselves.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports whether the response status is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client provides standardized JSON HTTP operations for backend calls
type Client struct {
	config *Config
	client *http.Client
}

// NewClient creates a new shared HTTP client
func NewClient(config *Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// SendJSON sends a JSON request and returns the response. A non-2xx status is
// not an error; only transport failures are.
func (c *Client) SendJSON(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		jsonData, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON body: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	fullURL := buildURL(req.Endpoint, req.QueryParams)
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

// ParseJSON parses the response body as JSON into the target
func (c *Client) ParseJSON(response *Response, target any) error {
	return json.Unmarshal(response.Body, target)
}

// buildURL constructs the full URL with query parameters
func buildURL(endpoint string, queryParams map[string]string) string {
	if len(queryParams) == 0 {
		return endpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}

	q := u.Query()
	for key, value := range queryParams {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// DefaultConfig creates a standard client configuration
func DefaultConfig(timeout time.Duration) *Config {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Config{
		Timeout: timeout,
		DefaultHeaders: map[string]string{
			"Accept":     "application/json",
			"User-Agent": "topup/1.0",
		},
	}
}
