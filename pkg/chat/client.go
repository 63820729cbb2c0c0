package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smartguide/smartguide/pkg/llm"
)

// RelayError is a structured error returned by the relay.
type RelayError struct {
	StatusCode int
	Message    string
}

func (e *RelayError) Error() string {
	return e.Message
}

// Relayer opens a streamed completion for a conversation.
type Relayer interface {
	// Stream sends the turns to the relay. On success the returned body is an
	// event stream that the caller must close.
	Stream(ctx context.Context, turns []llm.Message) (io.ReadCloser, error)
}

// Client is the HTTP client for the relay's /chat endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for relay requests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client for the relay at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("chat: relay URL must not be empty")
	}

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// No overall timeout: streams are bounded by the caller's context.
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: time.Minute,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Stream implements Relayer.
func (c *Client) Stream(ctx context.Context, turns []llm.Message) (io.ReadCloser, error) {
	body, err := json.Marshal(llm.RelayRequest{Messages: turns})
	if err != nil {
		return nil, fmt.Errorf("chat: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chat: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: relay request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeRelayError(resp)
	}

	return resp.Body, nil
}

func decodeRelayError(resp *http.Response) *RelayError {
	relayErr := &RelayError{StatusCode: resp.StatusCode, Message: "Failed to get response"}

	var payload llm.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		relayErr.Message = payload.Error
	}
	return relayErr
}
