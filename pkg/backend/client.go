// Package backend implements the Go client for the voxdeck platform API:
// row storage over named collections, named platform functions, and
// email/password authentication.
//
// The platform is the single source of truth for console state. This client
// never retries a failed call; callers decide whether to re-issue.
//
// Example usage:
//
//	client := backend.NewClient("https://api.voxdeck.dev", anonKey)
//	session, err := client.Auth.SignIn(ctx, "op@example.com", "secret")
//	rows, err := client.Rows.List(ctx, "presets", backend.Query{})
package backend

import (
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "voxdeck-go/1.0"
)

// Collection names used by the console.
const (
	CollectionPresets         = "presets"
	CollectionProviderKeys    = "provider_keys"
	CollectionConnections     = "connections"
	CollectionConnectionTools = "connection_tools"
	CollectionIntegrations    = "webhook_integrations"
	CollectionToolSelections  = "tool_selections"
	CollectionSpaces          = "knowledge_spaces"
	CollectionDocuments       = "knowledge_documents"
	CollectionChatSessions    = "chat_sessions"
	CollectionChatMessages    = "chat_messages"
	CollectionUsageEvents     = "usage_events"
)

// Platform function names.
const (
	FnRAGService      = "rag-service"
	FnEmbedService    = "embed-service"
	FnInviteUser      = "invite-user"
	FnExternalAPICall = "external-api-call"
)

// Client is the voxdeck platform API client.
type Client struct {
	Rows      *RowsService
	Functions *FunctionsService
	Auth      *AuthService

	http *httpClient
}

// clientConfig holds internal client configuration.
type clientConfig struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

// Option configures the client.
type Option func(*clientConfig)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the request timeout. Ignored when a custom HTTP client
// is supplied.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// NewClient creates a new platform client.
//
// baseURL is the project API endpoint; anonKey is the publishable API key
// sent with every request. Authenticated calls additionally carry the
// session's bearer token once a session is set.
func NewClient(baseURL, anonKey string, opts ...Option) *Client {
	config := &clientConfig{
		baseURL:   strings.TrimRight(baseURL, "/"),
		anonKey:   anonKey,
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
	}

	for _, opt := range opts {
		opt(config)
	}

	c := &Client{
		http: newHTTPClient(config),
	}

	c.Rows = newRowsService(c)
	c.Functions = newFunctionsService(c)
	c.Auth = newAuthService(c)

	return c
}

// BaseURL returns the configured API endpoint.
func (c *Client) BaseURL() string {
	return c.http.config.baseURL
}

// SetSession installs the session whose access token authenticates
// subsequent calls. Pass nil to fall back to the publishable key only.
func (c *Client) SetSession(s *Session) {
	c.http.setSession(s)
}

// Session returns the currently installed session, or nil.
func (c *Client) Session() *Session {
	return c.http.currentSession()
}
