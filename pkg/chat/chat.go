// Package chat reads and writes conversation history: the sessions end
// users hold with a deployed agent and the messages inside them. It
// also hosts the operator-facing test surfaces, a text playground that
// calls the preset's provider directly and transcript rendering for
// the terminal.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voxdeck/voxdeck/pkg/backend"
	"github.com/voxdeck/voxdeck/pkg/jsontime"
)

// Message roles as stored on message rows. Rows written by newer
// runtimes may carry roles this list does not name; they pass through
// untouched.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Session states.
const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

// ErrNotFound is returned when no session matches the requested id.
var ErrNotFound = errors.New("chat session not found")

// Session is one conversation between an end user and an agent.
type Session struct {
	ID       string
	PresetID string

	// Visitor identifies the end user, as far as the widget knows one.
	Visitor string

	Status    string
	StartedAt time.Time
	EndedAt   time.Time
}

// SessionFromRow maps a persisted session row.
func SessionFromRow(row backend.Row) (*Session, error) {
	s := &Session{
		ID:        row.GetString("id"),
		PresetID:  row.GetString("preset_id"),
		Visitor:   row.GetString("visitor_id"),
		Status:    row.GetString("status"),
		StartedAt: row.GetTime("created_at"),
		EndedAt:   row.GetTime("ended_at"),
	}
	if s.ID == "" {
		return nil, fmt.Errorf("chat: session row has no id")
	}
	if s.Status == "" {
		s.Status = StatusActive
	}
	return s, nil
}

// Message is one turn of a session. Widget carries the declarative UI
// payload, raw; it is decoded at render time so a malformed payload
// never breaks history loading.
type Message struct {
	ID        string
	SessionID string
	Role      string
	Text      string
	Widget    string
	CreatedAt time.Time
}

// MessageFromRow maps a persisted message row.
func MessageFromRow(row backend.Row) (*Message, error) {
	m := &Message{
		ID:        row.GetString("id"),
		SessionID: row.GetString("session_id"),
		Role:      row.GetString("role"),
		Text:      row.GetString("content"),
		Widget:    rawWidget(row["widget"]),
		CreatedAt: row.GetTime("created_at"),
	}
	if m.ID == "" {
		return nil, fmt.Errorf("chat: message row has no id")
	}
	if m.Role == "" {
		m.Role = RoleUser
	}
	return m, nil
}

// ToRow maps the message to wire columns.
func (m *Message) ToRow() backend.Row {
	row := backend.Row{
		"session_id": m.SessionID,
		"role":       m.Role,
		"content":    m.Text,
	}
	if m.ID != "" {
		row["id"] = m.ID
	}
	if m.Widget != "" {
		row["widget"] = m.Widget
	}
	return row
}

// Service performs session and message CRUD against the platform.
type Service struct {
	client *backend.Client
}

// NewService creates a chat service over the given client.
func NewService(client *backend.Client) *Service {
	return &Service{client: client}
}

// Sessions lists sessions, newest first. presetID narrows to one
// preset when non-empty; limit caps the result when positive.
func (s *Service) Sessions(ctx context.Context, presetID string, limit int) ([]*Session, error) {
	q := backend.Query{OrderBy: "created_at", Desc: true, Limit: limit}
	if presetID != "" {
		q.Filter = backend.Filter{"preset_id": presetID}
	}
	rows, err := s.client.Rows.List(ctx, backend.CollectionChatSessions, q)
	if err != nil {
		return nil, fmt.Errorf("chat: list sessions: %w", err)
	}
	sessions := make([]*Session, 0, len(rows))
	for _, row := range rows {
		sess, err := SessionFromRow(row)
		if err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// Session returns one session by id.
func (s *Service) Session(ctx context.Context, id string) (*Session, error) {
	rows, err := s.client.Rows.List(ctx, backend.CollectionChatSessions, backend.Query{
		Filter: backend.Filter{"id": id},
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("chat: get session: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return SessionFromRow(rows[0])
}

// Start creates a session, used by the console's manual test flows.
// Widget-originated sessions are created by the backend runtime.
func (s *Service) Start(ctx context.Context, presetID, visitor string) (*Session, error) {
	if presetID == "" {
		return nil, fmt.Errorf("chat: start requires a preset id")
	}
	row := backend.Row{
		"id":        uuid.NewString(),
		"preset_id": presetID,
		"status":    StatusActive,
	}
	if visitor != "" {
		row["visitor_id"] = visitor
	}
	rows, err := s.client.Rows.Insert(ctx, backend.CollectionChatSessions, []backend.Row{row})
	if err != nil {
		return nil, fmt.Errorf("chat: start session: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("chat: start session: platform returned no row")
	}
	return SessionFromRow(rows[0])
}

// End marks a session closed.
func (s *Service) End(ctx context.Context, id string) error {
	count, err := s.client.Rows.Update(ctx, backend.CollectionChatSessions,
		backend.Filter{"id": id},
		backend.Row{"status": StatusEnded, "ended_at": jsontime.NowEpochMilli()})
	if err != nil {
		return fmt.Errorf("chat: end session %s: %w", id, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// Messages returns the messages of a session in conversation order.
func (s *Service) Messages(ctx context.Context, sessionID string) ([]*Message, error) {
	rows, err := s.client.Rows.List(ctx, backend.CollectionChatMessages, backend.Query{
		Filter:  backend.Filter{"session_id": sessionID},
		OrderBy: "created_at",
	})
	if err != nil {
		return nil, fmt.Errorf("chat: list messages: %w", err)
	}
	msgs := make([]*Message, 0, len(rows))
	for _, row := range rows {
		m, err := MessageFromRow(row)
		if err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Append stores a message, minting an id when the caller supplied
// none.
func (s *Service) Append(ctx context.Context, m *Message) (*Message, error) {
	if m.SessionID == "" {
		return nil, fmt.Errorf("chat: message has no session id")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Role == "" {
		m.Role = RoleUser
	}
	rows, err := s.client.Rows.Insert(ctx, backend.CollectionChatMessages, []backend.Row{m.ToRow()})
	if err != nil {
		return nil, fmt.Errorf("chat: append message: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("chat: append message: platform returned no row")
	}
	return MessageFromRow(rows[0])
}

// rawWidget normalizes the widget column: some runtimes store the tree
// as a JSON string, others as a nested object.
func rawWidget(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
	return ""
}
