// Package knowledge manages the retrieval spaces behind an agent:
// named document collections the platform chunks, embeds, and serves
// back through semantic search. Chunking and embedding happen
// server-side; the console uploads sources, tracks embedding state,
// and runs searches.
package knowledge

import (
	"fmt"
	"time"

	"github.com/voxdeck/voxdeck/pkg/backend"
)

// Document embedding states.
const (
	StatusPending  = "pending"
	StatusEmbedded = "embedded"
	StatusFailed   = "failed"
)

// Space is one retrieval corpus.
type Space struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// SpaceFromRow maps a persisted space row.
func SpaceFromRow(row backend.Row) (*Space, error) {
	s := &Space{
		ID:          row.GetString("id"),
		Name:        row.GetString("name"),
		Description: row.GetString("description"),
		CreatedAt:   row.GetTime("created_at"),
	}
	if s.ID == "" {
		return nil, fmt.Errorf("knowledge: space row has no id")
	}
	if s.Name == "" {
		return nil, fmt.Errorf("knowledge: space row %s has no name", s.ID)
	}
	return s, nil
}

// Document is one uploaded source inside a space. Status tracks the
// platform's embedding pipeline; Error carries the failure detail when
// Status is failed.
type Document struct {
	ID      string
	SpaceID string
	Name    string

	// Source is the store path or URL the content was imported from.
	Source string

	Status string
	Error  string
	Bytes  int64
	Chunks int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentFromRow maps a persisted document row.
func DocumentFromRow(row backend.Row) (*Document, error) {
	d := &Document{
		ID:        row.GetString("id"),
		SpaceID:   row.GetString("space_id"),
		Name:      row.GetString("name"),
		Source:    row.GetString("source"),
		Status:    row.GetString("status"),
		Error:     row.GetString("error"),
		Bytes:     row.GetInt("bytes"),
		Chunks:    row.GetInt("chunks"),
		CreatedAt: row.GetTime("created_at"),
		UpdatedAt: row.GetTime("updated_at"),
	}
	if d.ID == "" {
		return nil, fmt.Errorf("knowledge: document row has no id")
	}
	if d.Status == "" {
		d.Status = StatusPending
	}
	return d, nil
}

// Hit is one search result.
type Hit struct {
	DocumentID string  `json:"document_id"`
	Document   string  `json:"document"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// EmbedStatus is the embedding pipeline state of a space.
type EmbedStatus struct {
	Total    int `json:"total"`
	Embedded int `json:"embedded"`
	Pending  int `json:"pending"`
	Failed   int `json:"failed"`
}
