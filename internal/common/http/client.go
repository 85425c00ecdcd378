package http

import (
	"net/http"
	"time"
)

// Doer is satisfied by *http.Client and *Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an http.Client with fixed default headers.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers:    map[string]string{"User-Agent": "cashflow-loan-portal"},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for k, v := range c.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return c.httpClient.Do(req)
}
