package toolset

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/voxdeck/voxdeck/pkg/backend"
	"github.com/voxdeck/voxdeck/pkg/jsontime"
	"github.com/voxdeck/voxdeck/pkg/kv"
	"github.com/voxdeck/voxdeck/pkg/uicache"
)

// NoToolsSentinel is the tool name of the marker row a save writes
// when the user deliberately enabled zero tools. It distinguishes
// "saved as empty" from "never saved", which defaults to all
// available tools selected.
const NoToolsSentinel = "__no_tools__"

// IsSentinel reports whether a persisted tool name is the "no tools"
// marker rather than a real tool.
func IsSentinel(name string) bool { return name == NoToolsSentinel }

// SelectionRow is one persisted (preset, tool) enablement row.
type SelectionRow struct {
	ID            string
	PresetID      string
	ToolName      string
	Source        Source
	ConnectionID  string
	IntegrationID string
	Params        []Param
}

// SelectionRowFromRow maps a backend row into a SelectionRow. An
// unknown source discriminator is coerced to the connection source so
// one odd row never fails a load; the row then surfaces as dormant if
// no such tool is available.
func SelectionRowFromRow(row backend.Row) SelectionRow {
	src := Source(row.GetString("tool_source"))
	if !src.IsValid() {
		src = SourceMCP
	}
	return SelectionRow{
		ID:            row.GetString("id"),
		PresetID:      row.GetString("preset_id"),
		ToolName:      row.GetString("tool_name"),
		Source:        src,
		ConnectionID:  row.GetString("connection_id"),
		IntegrationID: row.GetString("integration_id"),
		Params:        ParamsFromMetadata(row["metadata"]),
	}
}

// ToRow maps a SelectionRow into a backend row for insert.
func (r SelectionRow) ToRow() backend.Row {
	row := backend.Row{
		"id":          r.ID,
		"preset_id":   r.PresetID,
		"tool_name":   r.ToolName,
		"tool_source": string(r.Source),
	}
	if r.ConnectionID != "" {
		row["connection_id"] = r.ConnectionID
	}
	if r.IntegrationID != "" {
		row["integration_id"] = r.IntegrationID
	}
	if r.Source == SourceWebhook && !IsSentinel(r.ToolName) {
		row["metadata"] = MetadataFromParams(r.Params)
	}
	return row
}

// partitionRows splits persisted selection rows by source, pulls the
// payload parameters out of webhook row metadata, and notes whether
// the "no tools" sentinel is present. Sentinel rows never appear in
// the name lists.
func partitionRows(rows []SelectionRow) (mcp, webhook []string, params map[string][]Param, hasSentinel bool) {
	params = make(map[string][]Param)
	for _, r := range rows {
		if IsSentinel(r.ToolName) {
			hasSentinel = true
			continue
		}
		switch r.Source {
		case SourceWebhook:
			webhook = append(webhook, r.ToolName)
			if r.IntegrationID != "" {
				params[r.IntegrationID] = r.Params
			}
		default:
			mcp = append(mcp, r.ToolName)
		}
	}
	slices.Sort(mcp)
	slices.Sort(webhook)
	return mcp, webhook, params, hasSentinel
}

// snapshot is the cache entry for one preset's selection. Besides the
// selected names it records the server baseline the entry was
// reconciled against, so the next load can tell local edits on top of
// an unchanged server from a stale entry the server has moved past.
type snapshot struct {
	MCP             []string           `msgpack:"mcp"`
	Webhook         []string           `msgpack:"webhook"`
	DormantMCP      []string           `msgpack:"dormant_mcp,omitempty"`
	DormantWebhook  []string           `msgpack:"dormant_webhook,omitempty"`
	BaselineMCP     []string           `msgpack:"baseline_mcp,omitempty"`
	BaselineWebhook []string           `msgpack:"baseline_webhook,omitempty"`
	Params          map[string][]Param `msgpack:"params,omitempty"`
	Dirty           bool               `msgpack:"dirty,omitempty"`
	WrittenAt       jsontime.Milli     `msgpack:"written_at,omitempty"`
}

// SnapshotPrefix is the cache namespace selection snapshots live
// under. Sign-out clears it wholesale.
func SnapshotPrefix() kv.Key {
	return kv.Key{"tools"}
}

func selectionKey(presetID string) kv.Key {
	return append(SnapshotPrefix(), presetID)
}

// Selection is the reconciled tool enablement for one preset. It is
// the single source of truth the UI renders from: toggles mutate it
// and write through to the local cache, and nothing reaches the
// backend until Save.
//
// Selection is not safe for concurrent use. The console drives it
// from a single command flow.
type Selection struct {
	PresetID string

	catalog  *Catalog
	selected map[Source]map[string]Tool
	dormant  map[Source][]string
	params   map[string][]Param
	baseline map[Source][]string
	dirty    bool

	cache    *uicache.Cache
	cacheKey kv.Key
}

func newSelection(presetID string, catalog *Catalog, cache *uicache.Cache) *Selection {
	return &Selection{
		PresetID: presetID,
		catalog:  catalog,
		selected: map[Source]map[string]Tool{
			SourceMCP:     make(map[string]Tool),
			SourceWebhook: make(map[string]Tool),
		},
		dormant:  make(map[Source][]string),
		params:   make(map[string][]Param),
		baseline: make(map[Source][]string),
		cache:    cache,
		cacheKey: selectionKey(presetID),
	}
}

// applyNames marks the given tool names selected. Names with no
// available tool behind them are kept as dormant so a save can drop
// them and the UI can report them.
func (s *Selection) applyNames(src Source, names []string) {
	for _, name := range names {
		if tool, ok := s.catalog.Lookup(src, name); ok {
			s.selected[src][name] = tool
		} else if !slices.Contains(s.dormant[src], name) {
			s.dormant[src] = append(s.dormant[src], name)
		}
	}
	slices.Sort(s.dormant[src])
}

// Catalog returns the currently available tools.
func (s *Selection) Catalog() *Catalog { return s.catalog }

// Dirty reports whether there are unsaved local edits.
func (s *Selection) Dirty() bool { return s.dirty }

// Count returns the number of selected tools across both sources,
// dormant names included.
func (s *Selection) Count() int {
	n := 0
	for _, src := range Sources() {
		n += len(s.selected[src]) + len(s.dormant[src])
	}
	return n
}

// SelectedNames returns the sorted selected tool names for one
// source. Dormant names (saved but not currently available) are
// included; they stay selected until a save drops them.
func (s *Selection) SelectedNames(src Source) []string {
	names := slices.Sorted(maps.Keys(s.selected[src]))
	if len(s.dormant[src]) > 0 {
		names = append(names, s.dormant[src]...)
		slices.Sort(names)
	}
	return names
}

// IsSelected reports whether the named tool is currently selected.
func (s *Selection) IsSelected(src Source, name string) bool {
	if _, ok := s.selected[src][name]; ok {
		return true
	}
	return slices.Contains(s.dormant[src], name)
}

// Params returns the payload parameters for a webhook integration.
// Local edits win; otherwise the integration's own declared
// parameters are the starting point.
func (s *Selection) Params(integrationID string) []Param {
	if p, ok := s.params[integrationID]; ok {
		return p
	}
	for _, t := range s.catalog.Webhook {
		if t.IntegrationID == integrationID {
			return t.Params
		}
	}
	return nil
}

// Toggle flips the named tool and writes the updated selection to the
// local cache. It returns the new selected state. Toggling a tool
// that is not currently available is an error.
func (s *Selection) Toggle(ctx context.Context, src Source, name string) (bool, error) {
	tool, ok := s.catalog.Lookup(src, name)
	if !ok {
		return false, fmt.Errorf("toolset: %s tool %q is not available", src, name)
	}
	var nowSelected bool
	if _, on := s.selected[src][name]; on {
		delete(s.selected[src], name)
	} else {
		s.selected[src][name] = tool
		nowSelected = true
	}
	s.dirty = true
	return nowSelected, s.persist(ctx)
}

// SelectAll marks every available tool of one source selected.
func (s *Selection) SelectAll(ctx context.Context, src Source) error {
	for name, tool := range s.catalog.bySource(src) {
		s.selected[src][name] = tool
	}
	s.dirty = true
	return s.persist(ctx)
}

// Clear deselects every tool of one source, dormant names included.
func (s *Selection) Clear(ctx context.Context, src Source) error {
	s.selected[src] = make(map[string]Tool)
	s.dormant[src] = nil
	s.dirty = true
	return s.persist(ctx)
}

// SetParams replaces the payload parameters for a webhook integration
// and writes through to the cache.
func (s *Selection) SetParams(ctx context.Context, integrationID string, params []Param) error {
	s.params[integrationID] = params
	s.dirty = true
	return s.persist(ctx)
}

// buildRows turns the selection into the rows a save persists. Only
// currently available tools produce rows, so dormant names drop out
// on save. An empty selection produces the single sentinel row.
func (s *Selection) buildRows() []backend.Row {
	var rows []backend.Row
	for _, src := range Sources() {
		for _, name := range slices.Sorted(maps.Keys(s.selected[src])) {
			tool := s.selected[src][name]
			rec := SelectionRow{
				ID:            uuid.NewString(),
				PresetID:      s.PresetID,
				ToolName:      name,
				Source:        src,
				ConnectionID:  tool.ConnectionID,
				IntegrationID: tool.IntegrationID,
			}
			if src == SourceWebhook {
				rec.Params = s.Params(tool.IntegrationID)
			}
			rows = append(rows, rec.ToRow())
		}
	}
	if len(rows) == 0 {
		sentinel := SelectionRow{
			ID:       uuid.NewString(),
			PresetID: s.PresetID,
			ToolName: NoToolsSentinel,
			Source:   SourceMCP,
		}
		rows = append(rows, sentinel.ToRow())
	}
	return rows
}

func (s *Selection) snapshot() snapshot {
	return snapshot{
		MCP:             slices.Sorted(maps.Keys(s.selected[SourceMCP])),
		Webhook:         slices.Sorted(maps.Keys(s.selected[SourceWebhook])),
		DormantMCP:      slices.Clone(s.dormant[SourceMCP]),
		DormantWebhook:  slices.Clone(s.dormant[SourceWebhook]),
		BaselineMCP:     slices.Clone(s.baseline[SourceMCP]),
		BaselineWebhook: slices.Clone(s.baseline[SourceWebhook]),
		Params:          maps.Clone(s.params),
		Dirty:           s.dirty,
		WrittenAt:       jsontime.NowEpochMilli(),
	}
}

// persist writes the current state to the local cache. Selections not
// backed by a cache skip the write.
func (s *Selection) persist(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return uicache.Put(ctx, s.cache, s.cacheKey, s.snapshot())
}
