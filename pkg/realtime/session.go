package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type eventOrError struct {
	event *ServerEvent
	err   error
}

// Session is a live WebSocket conversation with the Realtime API.
// Events must be consumed from Events; the stream stops after Close
// or a read error.
type Session struct {
	client *Client
	conn   *websocket.Conn
	model  string

	mu        sync.Mutex
	sessionID string
	closed    bool

	closeCh   chan struct{}
	eventsCh  chan eventOrError
	closeOnce sync.Once
}

// Connect establishes a WebSocket session for the given model.
func (c *Client) Connect(ctx context.Context, model string) (*Session, error) {
	u, err := url.Parse(c.config.wsURL)
	if err != nil {
		return nil, fmt.Errorf("realtime: invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("model", model)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.config.apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")
	if c.config.organization != "" {
		header.Set("OpenAI-Organization", c.config.organization)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.httpClient.Timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		apiErr := &Error{
			Code:    "connection_failed",
			Message: fmt.Sprintf("failed to connect: %v", err),
		}
		if resp != nil {
			apiErr.HTTPStatus = resp.StatusCode
		}
		return nil, apiErr
	}

	s := &Session{
		client:   c,
		conn:     conn,
		model:    model,
		closeCh:  make(chan struct{}),
		eventsCh: make(chan eventOrError, 100),
	}
	go s.readLoop()
	return s, nil
}

// SessionID returns the server-assigned session ID, available after
// the session.created event has been received.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Close terminates the connection. It is safe to call multiple times.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteMessage(websocket.CloseMessage, msg)
		s.mu.Unlock()
		close(s.closeCh)
		err = s.conn.Close()
	})
	return err
}

// UpdateSession sends a session.update event with the given
// configuration. Only non-zero fields are transmitted.
func (s *Session) UpdateSession(ctx context.Context, config SessionConfig) error {
	return s.sendEvent(ctx, map[string]any{
		"type":    EventTypeSessionUpdate,
		"session": config,
	})
}

// SendUserText appends a user text message to the conversation. It
// does not trigger a response by itself; call CreateResponse after.
func (s *Session) SendUserText(ctx context.Context, text string) error {
	return s.sendEvent(ctx, map[string]any{
		"type": EventTypeConversationItemCreate,
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	})
}

// AddFunctionCallOutput reports the result of a tool invocation back
// to the conversation.
func (s *Session) AddFunctionCallOutput(ctx context.Context, callID, output string) error {
	return s.sendEvent(ctx, map[string]any{
		"type": EventTypeConversationItemCreate,
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  output,
		},
	})
}

// CreateResponse asks the model to generate a response. A nil opts
// uses the session defaults.
func (s *Session) CreateResponse(ctx context.Context, opts *ResponseCreateOptions) error {
	event := map[string]any{"type": EventTypeResponseCreate}
	if opts != nil {
		event["response"] = opts
	}
	return s.sendEvent(ctx, event)
}

// CancelResponse interrupts the in-progress response, if any.
func (s *Session) CancelResponse(ctx context.Context) error {
	return s.sendEvent(ctx, map[string]any{
		"type": EventTypeResponseCancel,
	})
}

// SendRaw transmits an arbitrary client event. The payload must
// marshal to a JSON object with a "type" field.
func (s *Session) SendRaw(ctx context.Context, event any) error {
	return s.sendEvent(ctx, event)
}

// Events iterates over server events until the session closes. The
// yielded error is non-nil exactly once, as the final element, when
// the stream ends abnormally.
func (s *Session) Events() iter.Seq2[*ServerEvent, error] {
	return func(yield func(*ServerEvent, error) bool) {
		for {
			select {
			case <-s.closeCh:
				return
			case ev, ok := <-s.eventsCh:
				if !ok {
					return
				}
				if ev.err != nil {
					yield(nil, ev.err)
					return
				}
				if !yield(ev.event, nil) {
					return
				}
			}
		}
	}
}

func (s *Session) sendEvent(ctx context.Context, event any) error {
	if m, ok := event.(map[string]any); ok {
		if _, ok := m["event_id"]; !ok {
			m["event_id"] = generateEventID()
		}
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("realtime: marshal event: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		slog.DebugContext(ctx, "realtime send", "event", string(data))
	}

	// The mutex serializes writers; gorilla allows only one at a time.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &Error{Code: "session_closed", Message: "session is closed"}
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("realtime: write event: %w", err)
	}
	return nil
}

func (s *Session) readLoop() {
	defer close(s.eventsCh)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			s.deliver(eventOrError{err: fmt.Errorf("realtime: read event: %w", err)})
			return
		}

		event, err := parseEvent(data)
		if err != nil {
			s.deliver(eventOrError{err: err})
			return
		}

		switch event.Type {
		case EventTypeSessionCreated:
			if event.Session != nil {
				s.mu.Lock()
				s.sessionID = event.Session.ID
				s.mu.Unlock()
			}
		case EventTypeError:
			if event.Err != nil {
				s.deliver(eventOrError{err: event.Err.ToError()})
				return
			}
		}
		s.deliver(eventOrError{event: event})
	}
}

func (s *Session) deliver(ev eventOrError) {
	select {
	case s.eventsCh <- ev:
	case <-s.closeCh:
	}
}

func parseEvent(data []byte) (*ServerEvent, error) {
	var event ServerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("realtime: parse event: %w", err)
	}
	event.Raw = data
	return &event, nil
}

func generateEventID() string {
	return "evt_" + uuid.NewString()[:12]
}
