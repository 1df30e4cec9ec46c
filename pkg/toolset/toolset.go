// Package toolset reconciles the tools an agent preset may call.
//
// Tools arrive from two sources. Connection tools are discovered from
// enabled MCP server connections and keep the name the server reports.
// Webhook tools are minted one per enabled webhook integration of a
// preset, with a name derived from the integration's display name and
// id so the name stays stable across renames.
//
// Which tools a preset has enabled lives in three places that drift
// apart: the backend's selection rows, a local cache written by
// earlier edits, and the set of tools currently available. The Manager
// merges the three on every load and keeps toggles local until an
// explicit save replaces the persisted set wholesale.
package toolset

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

// Source tags where a tool came from. The two values are the only ones
// the backend stores; consumers switch exhaustively so a new source is
// a visible change everywhere.
type Source string

// Source constants.
const (
	SourceMCP     Source = "mcp" // discovered from an MCP server connection
	SourceWebhook Source = "n8n" // minted from a webhook integration
)

var validSources = map[string]struct{}{
	string(SourceMCP):     {},
	string(SourceWebhook): {},
}

// Sources lists the valid sources in a stable order.
func Sources() []Source { return []Source{SourceMCP, SourceWebhook} }

// IsValid returns true if the source is one of the known values.
func (s Source) IsValid() bool {
	_, ok := validSources[string(s)]
	return ok
}

// UnmarshalJSON implements json.Unmarshaler with validation.
func (s *Source) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	src := Source(raw)
	if !src.IsValid() {
		return fmt.Errorf("invalid tool source: %q (must be %q or %q)", raw, SourceMCP, SourceWebhook)
	}
	*s = src
	return nil
}

// UnmarshalMsgpack implements msgpack.Unmarshaler with validation.
func (s *Source) UnmarshalMsgpack(data []byte) error {
	var raw string
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return err
	}
	src := Source(raw)
	if !src.IsValid() {
		return fmt.Errorf("invalid tool source: %q (must be %q or %q)", raw, SourceMCP, SourceWebhook)
	}
	*s = src
	return nil
}

// Tool is one callable capability an agent may invoke.
//
// Exactly one of ConnectionID and IntegrationID is set, matching the
// Source. Params is only populated for webhook tools.
type Tool struct {
	Name          string  `json:"name" msgpack:"name"`
	Source        Source  `json:"source" msgpack:"source"`
	Description   string  `json:"description,omitzero" msgpack:"description,omitempty"`
	ConnectionID  string  `json:"connection_id,omitzero" msgpack:"connection_id,omitempty"`
	IntegrationID string  `json:"integration_id,omitzero" msgpack:"integration_id,omitempty"`
	Params        []Param `json:"params,omitzero" msgpack:"params,omitempty"`
}

// Catalog is the set of tools currently available to a preset, split
// by source and keyed by tool name.
type Catalog struct {
	MCP     map[string]Tool
	Webhook map[string]Tool
}

// NewCatalog returns an empty catalog with both maps allocated.
func NewCatalog() *Catalog {
	return &Catalog{
		MCP:     make(map[string]Tool),
		Webhook: make(map[string]Tool),
	}
}

// BuildCatalog assembles the available tools from enabled connections,
// their discovered tools, and the preset's enabled integrations.
//
// A discovered tool whose connection is absent or disabled is not
// available. Disabled integrations are skipped entirely; selection
// rows referencing them stay dormant until the next save.
func BuildCatalog(conns []Connection, discovered []ConnectionTool, integrations []Integration) *Catalog {
	cat := NewCatalog()

	enabled := make(map[string]struct{}, len(conns))
	for _, c := range conns {
		if c.Enabled {
			enabled[c.ID] = struct{}{}
		}
	}

	for _, dt := range discovered {
		if !dt.Enabled {
			continue
		}
		if _, ok := enabled[dt.ConnectionID]; !ok {
			continue
		}
		cat.MCP[dt.Name] = Tool{
			Name:         dt.Name,
			Source:       SourceMCP,
			Description:  dt.Description,
			ConnectionID: dt.ConnectionID,
		}
	}

	for _, in := range integrations {
		if !in.Enabled {
			continue
		}
		name := in.ToolName
		if name == "" {
			// Rows created before tool names were persisted.
			name = DeriveToolName(in.Name, in.ID)
		}
		cat.Webhook[name] = Tool{
			Name:          name,
			Source:        SourceWebhook,
			Description:   in.Description,
			IntegrationID: in.ID,
			Params:        in.Params,
		}
	}

	return cat
}

// Names returns the sorted tool names for one source.
func (c *Catalog) Names(src Source) []string {
	return slices.Sorted(maps.Keys(c.bySource(src)))
}

// Lookup returns the available tool with the given name, if any.
func (c *Catalog) Lookup(src Source, name string) (Tool, bool) {
	t, ok := c.bySource(src)[name]
	return t, ok
}

// Len returns the total number of available tools.
func (c *Catalog) Len() int { return len(c.MCP) + len(c.Webhook) }

func (c *Catalog) bySource(src Source) map[string]Tool {
	if src == SourceWebhook {
		return c.Webhook
	}
	return c.MCP
}
