// Package crm talks to the lead CRM over HTTP.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonhttp "cashflow-loans/internal/common/http"
	"cashflow-loans/internal/common/metrics"
	"cashflow-loans/internal/models"
)

// Client creates and reads leads on the CRM clients endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient commonhttp.Doer
}

// Response is a 2xx CRM answer. Body is nil when the payload was not a JSON object.
type Response struct {
	StatusCode int
	Body       map[string]interface{}
	Raw        []byte
}

// RemoteError is a non-2xx answer from the CRM.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("CRM Server Error: %d - %s", e.StatusCode, e.Body)
}

// TransportError means no HTTP response was obtained.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("crm %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

type Option func(*Client)

// WithHTTPClient replaces the transport, mostly for tests.
func WithHTTPClient(d commonhttp.Doer) Option {
	return func(c *Client) { c.httpClient = d }
}

func NewClient(endpoint, apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: commonhttp.NewClient(timeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the clients collection URL.
func (c *Client) Endpoint() string { return c.endpoint }

// CreateClient POSTs one lead. Exactly one request is made.
func (c *Client) CreateClient(ctx context.Context, record *models.ApplicationRecord) (*Response, error) {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal application record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, "create")
}

// GetClient fetches one lead by id.
func (c *Client) GetClient(ctx context.Context, id string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.endpoint, id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, "get")
}

// ListClients fetches the raw client collection.
func (c *Client) ListClients(ctx context.Context) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, "list")
}

func (c *Client) do(req *http.Request, op string) (*Response, error) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveCRMRequest("transport_error", time.Since(start))
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveCRMRequest("transport_error", time.Since(start))
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveCRMRequest("rejected", time.Since(start))
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	metrics.ObserveCRMRequest("ok", time.Since(start))

	out := &Response{StatusCode: resp.StatusCode, Raw: body}
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err == nil {
		out.Body = parsed
	}
	return out, nil
}
