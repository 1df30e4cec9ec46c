// Package realtime is a WebSocket client for OpenAI's Realtime API,
// used by the console to preview an agent preset in a live session.
//
// A Session is driven by sending client events (session.update,
// conversation items, response.create) and ranging over Events() for
// the server's stream. The console builds the SessionConfig from a
// preset, so what the preview runs is exactly what the deployed
// widget will run.
package realtime

import (
	"net/http"
)

// DefaultWebSocketURL is the default WebSocket endpoint.
const DefaultWebSocketURL = "wss://api.openai.com/v1/realtime"

// Models known to support realtime sessions.
const (
	ModelGPT4oRealtimePreview     = "gpt-4o-realtime-preview"
	ModelGPT4oMiniRealtimePreview = "gpt-4o-mini-realtime-preview"
)

// Client connects realtime sessions.
type Client struct {
	config *clientConfig
}

type clientConfig struct {
	apiKey       string
	organization string
	wsURL        string
	httpClient   *http.Client
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient creates a realtime client. The API key comes from the
// preset's provider credential.
func NewClient(apiKey string, opts ...Option) *Client {
	if apiKey == "" {
		panic("realtime: API key is required")
	}
	cfg := &clientConfig{
		apiKey:     apiKey,
		wsURL:      DefaultWebSocketURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{config: cfg}
}

// WithOrganization sets the organization ID for API requests.
func WithOrganization(orgID string) Option {
	return func(c *clientConfig) {
		c.organization = orgID
	}
}

// WithWebSocketURL sets the WebSocket URL.
func WithWebSocketURL(url string) Option {
	return func(c *clientConfig) {
		c.wsURL = url
	}
}

// WithHTTPClient sets a custom HTTP client. Its timeout is used as
// the WebSocket handshake timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}
