package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/voxdeck/voxdeck/pkg/widget"
)

// Transcript is a session plus its messages, ready to render.
type Transcript struct {
	Session  *Session
	Messages []*Message
}

// Transcript loads a session and its full message history.
func (s *Service) Transcript(ctx context.Context, sessionID string) (*Transcript, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.Messages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Transcript{Session: sess, Messages: msgs}, nil
}

// Render draws the transcript for the terminal. Widget payloads are
// decoded per message with the message text as fallback, so broken
// payloads degrade to plain text instead of holes in the history.
func (t *Transcript) Render(r *widget.Renderer) string {
	var b strings.Builder
	if t.Session != nil {
		fmt.Fprintf(&b, "session %s", t.Session.ID)
		if t.Session.PresetID != "" {
			fmt.Fprintf(&b, "  preset %s", t.Session.PresetID)
		}
		fmt.Fprintf(&b, "  [%s]\n", t.Session.Status)
	}
	for _, m := range t.Messages {
		b.WriteString(renderMessage(m, r))
		b.WriteByte('\n')
	}
	return b.String()
}

func renderMessage(m *Message, r *widget.Renderer) string {
	header := m.Role
	if !m.CreatedAt.IsZero() {
		header = m.CreatedAt.Format("15:04:05") + " " + header
	}

	body := m.Text
	if m.Widget != "" {
		body = r.Render(widget.Decode(m.Widget, m.Text))
	}
	if body == "" {
		return header
	}
	return header + "\n" + indent(body, "  ")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
