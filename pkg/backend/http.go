package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
)

// httpClient handles HTTP communication with the platform API.
type httpClient struct {
	config *clientConfig
	client *http.Client

	mu      sync.RWMutex
	session *Session
}

func newHTTPClient(config *clientConfig) *httpClient {
	client := config.httpClient
	if client == nil {
		client = &http.Client{Timeout: config.timeout}
	}
	return &httpClient{
		config: config,
		client: client,
	}
}

func (h *httpClient) setSession(s *Session) {
	h.mu.Lock()
	h.session = s
	h.mu.Unlock()
}

func (h *httpClient) currentSession() *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session
}

// request performs a JSON request against the platform API and decodes the
// response into result (which may be nil).
//
// Failed calls surface immediately as *Error; nothing is retried here.
func (h *httpClient) request(ctx context.Context, method, path string, query url.Values, body, result any) error {
	u := h.config.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	h.setHeaders(req)

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		slog.DebugContext(ctx, "backend request", "method", method, "path", path)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		slog.DebugContext(ctx, "backend response", "method", method, "path", path, "status", resp.StatusCode)
	}

	return h.handleResponse(resp, result)
}

// setHeaders sets the common request headers. Every call carries the
// publishable key; the bearer token is the session's access token when one
// is installed and the publishable key otherwise.
func (h *httpClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.config.userAgent)
	req.Header.Set("Apikey", h.config.anonKey)

	token := h.config.anonKey
	if s := h.currentSession(); s != nil && s.AccessToken != "" {
		token = s.AccessToken
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// handleResponse reads the response body, turns error statuses into *Error,
// and unmarshals successful payloads into result.
func (h *httpClient) handleResponse(resp *http.Response, result any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, data)
	}

	if result == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}

// parseError builds an *Error from an error response body. The platform
// wraps errors as {"error": {"code": ..., "message": ..., "hint": ...}};
// anything else falls back to the raw body text.
func parseError(status int, body []byte) error {
	var envelope struct {
		Error *Error `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		envelope.Error.HTTPStatus = status
		return envelope.Error
	}

	msg := string(bytes.TrimSpace(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{
		HTTPStatus: status,
		Code:       codeForStatus(status),
		Message:    msg,
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "request_failed"
	}
}
