// Package usage reads the metering trail the platform writes while
// agents run and turns it into operator-facing rollups. Metering
// itself happens server-side; this package is read-side mapping and
// arithmetic.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/voxdeck/voxdeck/pkg/backend"
)

// Event kinds the platform is known to write. Rows may carry kinds
// this list does not name; they aggregate under their own label.
const (
	KindText      = "text"
	KindVoice     = "voice"
	KindEmbedding = "embedding"
	KindSearch    = "search"
)

// Event is one metered unit of work: a completion, a stretch of
// realtime audio, an embedding batch, a knowledge search.
type Event struct {
	ID        string
	PresetID  string
	SessionID string
	Kind      string
	Model     string

	InputTokens  int64
	OutputTokens int64
	AudioSeconds float64
	Cost         float64

	At time.Time
}

// EventFromRow maps a persisted usage row. Numeric columns tolerate
// whatever width the wire chose; missing ones read as zero.
func EventFromRow(row backend.Row) (*Event, error) {
	e := &Event{
		ID:           row.GetString("id"),
		PresetID:     row.GetString("preset_id"),
		SessionID:    row.GetString("session_id"),
		Kind:         row.GetString("kind"),
		Model:        row.GetString("model"),
		InputTokens:  row.GetInt("input_tokens"),
		OutputTokens: row.GetInt("output_tokens"),
		AudioSeconds: row.GetFloat("audio_seconds"),
		Cost:         row.GetFloat("cost"),
		At:           row.GetTime("created_at"),
	}
	if e.ID == "" {
		return nil, fmt.Errorf("usage: event row has no id")
	}
	return e, nil
}

// Service reads usage events from the platform.
type Service struct {
	client *backend.Client
}

// NewService creates a usage service over the given client.
func NewService(client *backend.Client) *Service {
	return &Service{client: client}
}

// List returns events newest first. presetID narrows to one preset
// when non-empty; limit caps the result when positive. Time-window
// narrowing happens in Summarize, the row filter is equality only.
func (s *Service) List(ctx context.Context, presetID string, limit int) ([]*Event, error) {
	q := backend.Query{OrderBy: "created_at", Desc: true, Limit: limit}
	if presetID != "" {
		q.Filter = backend.Filter{"preset_id": presetID}
	}
	rows, err := s.client.Rows.List(ctx, backend.CollectionUsageEvents, q)
	if err != nil {
		return nil, fmt.Errorf("usage: list events: %w", err)
	}
	events := make([]*Event, 0, len(rows))
	for _, row := range rows {
		e, err := EventFromRow(row)
		if err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
