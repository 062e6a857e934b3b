// Package mattermost posts rendered messages to Mattermost incoming webhooks.
package mattermost

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mr-karan/mattermost-bridge/internal/metrics"
	"github.com/mr-karan/mattermost-bridge/pkg/models"
)

// ErrDeliveryFailed wraps every delivery error returned by Send.
var ErrDeliveryFailed = errors.New("mattermost delivery failed")

// maxErrorBody caps how much of a failed response body is kept for logging.
const maxErrorBody = 512

type ClientOptions struct {
	BaseURL       string
	Timeout       time.Duration
	SkipTLSVerify bool
	Logger        *slog.Logger
}

// Client delivers messages with a single best-effort POST; it never retries.
type Client struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

type webhookPayload struct {
	Channel  string `json:"channel"`
	Username string `json:"username"`
	Text     string `json:"text"`
	IconURL  string `json:"icon_url,omitempty"`
}

func NewClient(opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.SkipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 - intentionally configurable
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		client:  &http.Client{Timeout: timeout, Transport: transport},
		log:     logger.With("component", "mattermost_client"),
	}
}

// HookURL returns the incoming webhook endpoint for a webhook identifier.
func (c *Client) HookURL(webhook string) string {
	return c.baseURL + "/hooks/" + strings.Trim(webhook, "/")
}

// Deliver posts msg and reports whether Mattermost answered 200. Failures are
// logged, never returned.
func (c *Client) Deliver(ctx context.Context, msg models.Message) bool {
	if err := c.Send(ctx, msg); err != nil {
		c.log.Error("failed to deliver message",
			"channel", msg.Channel,
			"error", err)
		return false
	}
	return true
}

// Send posts msg and returns an error wrapping ErrDeliveryFailed on any
// transport failure or non-200 response.
func (c *Client) Send(ctx context.Context, msg models.Message) error {
	if msg.Webhook == "" {
		return fmt.Errorf("%w: empty webhook identifier", ErrDeliveryFailed)
	}
	body, err := json.Marshal(webhookPayload{
		Channel:  msg.Channel,
		Username: msg.Username,
		Text:     msg.Text,
		IconURL:  msg.IconURL,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to marshal payload: %v", ErrDeliveryFailed, err)
	}

	endpoint := c.HookURL(msg.Webhook)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	request.Header.Set("Content-Type", "application/json")

	started := time.Now()
	response, err := c.client.Do(request)
	if err != nil {
		metrics.RecordDelivery(0, started)
		// *url.Error embeds the full URL, webhook identifier included.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("%w: %s: %v", ErrDeliveryFailed, redact(endpoint), err)
	}
	responseBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
	_ = response.Body.Close()
	metrics.RecordDelivery(response.StatusCode, started)

	if response.StatusCode != http.StatusOK {
		if readErr != nil {
			return fmt.Errorf("%w: status %d (body read error: %v)", ErrDeliveryFailed, response.StatusCode, readErr)
		}
		trimmed := strings.TrimSpace(string(responseBody))
		if trimmed == "" {
			trimmed = response.Status
		}
		return fmt.Errorf("%w: status %d (%s)", ErrDeliveryFailed, response.StatusCode, trimmed)
	}
	c.log.Debug("message delivered", "channel", msg.Channel, "duration", time.Since(started))
	return nil
}

// redact hides the webhook identifier, which is a credential.
func redact(endpoint string) string {
	if i := strings.LastIndex(endpoint, "/hooks/"); i >= 0 {
		return endpoint[:i] + "/hooks/***"
	}
	return endpoint
}
