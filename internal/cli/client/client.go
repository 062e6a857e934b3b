// Package client talks to a running bridge over HTTP. It backs the send and
// health subcommands.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Options configures a Client.
type Options struct {
	// URL is the bridge base URL, e.g. http://localhost:8000.
	URL     string
	Token   string
	Timeout time.Duration
}

// Client is a bridge API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new bridge API client.
func New(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimSuffix(opts.URL, "/"),
		token:      opts.Token,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}, nil
}

// APIError is a non-2xx response from the bridge.
type APIError struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// do performs a request and decodes a JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, result any) error {
	reqURL, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		reqURL.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mattermost-bridge-cli/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			// Drop the URL so the token in the query string is not printed.
			err = uerr.Err
		}
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if len(respBody) > 0 {
			_ = json.Unmarshal(respBody, apiErr)
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Health is the body of GET /health.
type Health struct {
	App    string `json:"app"`
	Status string `json:"status"`
}

// Health checks that the bridge is up.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

type webhookResponse struct {
	Status string `json:"status"`
	Data   struct {
		DispatchID string `json:"dispatch_id"`
	} `json:"data"`
}

// SendWebhook posts raw to /webhook and returns the dispatch id assigned by
// the bridge. A 200 response does not imply the alert reached Mattermost.
func (c *Client) SendWebhook(ctx context.Context, raw []byte) (string, error) {
	var resp webhookResponse
	query := url.Values{"auth_token": {c.token}}
	if err := c.do(ctx, http.MethodPost, "/webhook", query, raw, &resp); err != nil {
		return "", err
	}
	return resp.Data.DispatchID, nil
}
