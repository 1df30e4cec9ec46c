// Package preset models agent configurations: the named parameter sets
// that define one deployable agent. A preset owns its instructions,
// model/voice parameters, an optional provider credential reference,
// and (through pkg/toolset) a set of bound callable tools.
//
// Rows arrive from the platform with loosely typed columns; the mappers
// here coerce them into trusted structs and only fail when a row lacks
// its identity fields.
package preset

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/voxdeck/voxdeck/pkg/backend"
)

// Preset is one agent configuration.
type Preset struct {
	ID           string
	Name         string
	Instructions string
	Model        string
	Voice        string

	// Temperature overrides the provider default when non-nil.
	Temperature *float64

	// Greeting is spoken/written by the agent when a session opens.
	Greeting string

	// Language is a BCP 47 tag hint for the agent's replies.
	Language string

	// ProviderKeyID references the provider credential used by the
	// playground and the live preview. Empty means none bound yet.
	ProviderKeyID string

	// PublicID is the identifier embedded in widget snippets. Empty
	// until the preset is published.
	PublicID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FromRow maps a persisted preset row. It errors only when the row is
// missing its identity columns.
func FromRow(row backend.Row) (*Preset, error) {
	p := &Preset{
		ID:            row.GetString("id"),
		Name:          row.GetString("name"),
		Instructions:  row.GetString("instructions"),
		Model:         row.GetString("model"),
		Voice:         row.GetString("voice"),
		Greeting:      row.GetString("greeting"),
		Language:      row.GetString("language"),
		ProviderKeyID: row.GetString("provider_key_id"),
		PublicID:      row.GetString("public_id"),
		CreatedAt:     row.GetTime("created_at"),
		UpdatedAt:     row.GetTime("updated_at"),
	}
	if p.ID == "" {
		return nil, fmt.Errorf("preset: row has no id")
	}
	if p.Name == "" {
		return nil, fmt.Errorf("preset: row %s has no name", p.ID)
	}
	if f, ok := floatValue(row["temperature"]); ok {
		p.Temperature = &f
	}
	return p, nil
}

// ToRow maps the preset back to wire columns. Timestamps are platform
// assigned and never written by the client.
func (p *Preset) ToRow() backend.Row {
	row := backend.Row{
		"name":            p.Name,
		"instructions":    p.Instructions,
		"model":           p.Model,
		"voice":           p.Voice,
		"greeting":        p.Greeting,
		"language":        p.Language,
		"provider_key_id": p.ProviderKeyID,
		"public_id":       p.PublicID,
	}
	if p.ID != "" {
		row["id"] = p.ID
	}
	if p.Temperature != nil {
		row["temperature"] = *p.Temperature
	}
	return row
}

// Validate checks the fields a user can set through forms or apply
// documents.
func (p *Preset) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("preset: name is required")
	}
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
		return fmt.Errorf("preset %s: temperature %v out of range [0, 2]", p.Name, *p.Temperature)
	}
	return nil
}

// floatValue interprets a wire column as a float. Malformed values
// read as absent rather than zero.
func floatValue(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}
