package toolset

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/voxdeck/voxdeck/pkg/backend"
	"github.com/voxdeck/voxdeck/pkg/uicache"
)

// Manager loads and saves tool selections for presets. The cache is
// optional; without one selections live only in memory and reload
// from the backend every time.
type Manager struct {
	client *backend.Client
	cache  *uicache.Cache
}

// NewManager returns a Manager over the given backend client and
// local cache.
func NewManager(client *backend.Client, cache *uicache.Cache) *Manager {
	return &Manager{client: client, cache: cache}
}

// SaveSummary reports what a save changed. Tools is the selected tool
// count after the save, for refreshing count badges.
type SaveSummary struct {
	Deleted  int
	Inserted int
	Tools    int
}

// Load reconciles the three sources of truth for one preset: the
// tools currently available, the backend's persisted selection rows,
// and the local cache.
//
// The persisted rows win when present; a sentinel row counts as an
// explicit empty selection. With no persisted selection at all, every
// available tool starts selected. A dirty cache entry keeps its local
// edits only while the server baseline it was written against is
// still current; once the server moves, the fresh baseline replaces
// it. The reconciled state is written back to the cache so toggles
// and the next load read one source of truth.
func (m *Manager) Load(ctx context.Context, presetID string) (*Selection, error) {
	var (
		connRows, toolRows, integRows, selRows []backend.Row
		connErr, toolErr, integErr, selErr     error
	)
	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		connRows, connErr = m.client.Rows.List(ctx, backend.CollectionConnections, backend.Query{
			Filter: backend.Filter{"enabled": true},
		})
	}()
	go func() {
		defer wg.Done()
		toolRows, toolErr = m.client.Rows.List(ctx, backend.CollectionConnectionTools, backend.Query{
			Filter: backend.Filter{"enabled": true},
		})
	}()
	go func() {
		defer wg.Done()
		integRows, integErr = m.client.Rows.List(ctx, backend.CollectionIntegrations, backend.Query{
			Filter: backend.Filter{"preset_id": presetID, "enabled": true},
		})
	}()
	go func() {
		defer wg.Done()
		selRows, selErr = m.client.Rows.List(ctx, backend.CollectionToolSelections, backend.Query{
			Filter: backend.Filter{"preset_id": presetID},
		})
	}()
	wg.Wait()
	if err := errors.Join(connErr, toolErr, integErr, selErr); err != nil {
		return nil, fmt.Errorf("toolset: load preset %s: %w", presetID, err)
	}

	conns := make([]Connection, 0, len(connRows))
	for _, row := range connRows {
		conns = append(conns, ConnectionFromRow(row))
	}
	discovered := make([]ConnectionTool, 0, len(toolRows))
	for _, row := range toolRows {
		discovered = append(discovered, ConnectionToolFromRow(row))
	}
	integrations := make([]Integration, 0, len(integRows))
	for _, row := range integRows {
		integrations = append(integrations, IntegrationFromRow(row))
	}
	catalog := BuildCatalog(conns, discovered, integrations)

	saved := make([]SelectionRow, 0, len(selRows))
	for _, row := range selRows {
		saved = append(saved, SelectionRowFromRow(row))
	}
	savedMCP, savedWebhook, savedParams, hasSentinel := partitionRows(saved)

	// The sentinel marks a deliberate empty save; without it an empty
	// row set means the preset was never configured and defaults to
	// everything available.
	explicit := hasSentinel || len(savedMCP) > 0 || len(savedWebhook) > 0
	baseMCP, baseWebhook := savedMCP, savedWebhook
	if !explicit {
		baseMCP = catalog.Names(SourceMCP)
		baseWebhook = catalog.Names(SourceWebhook)
	}

	sel := newSelection(presetID, catalog, m.cache)
	sel.baseline[SourceMCP] = baseMCP
	sel.baseline[SourceWebhook] = baseWebhook

	// A corrupt cache entry reads as a miss and is overwritten below.
	var cached snapshot
	var ok bool
	if m.cache != nil {
		cached, ok, _ = uicache.Get[snapshot](ctx, m.cache, sel.cacheKey)
	}
	keepLocal := ok && cached.Dirty &&
		slices.Equal(cached.BaselineMCP, baseMCP) &&
		slices.Equal(cached.BaselineWebhook, baseWebhook)

	if keepLocal {
		// Unsaved edits on top of an unchanged server survive the
		// reload.
		sel.applyNames(SourceMCP, append(cached.MCP, cached.DormantMCP...))
		sel.applyNames(SourceWebhook, append(cached.Webhook, cached.DormantWebhook...))
		if cached.Params != nil {
			sel.params = cached.Params
		}
		sel.dirty = true
	} else {
		sel.applyNames(SourceMCP, baseMCP)
		sel.applyNames(SourceWebhook, baseWebhook)
		for id, p := range savedParams {
			sel.params[id] = p
		}
	}

	if err := sel.persist(ctx); err != nil {
		return nil, fmt.Errorf("toolset: cache selection for preset %s: %w", presetID, err)
	}
	return sel, nil
}

// Save replaces the preset's persisted selection with the current
// in-memory one: every existing row is deleted, then one row per
// selected available tool is inserted, or the sentinel row when
// nothing is selected. Dormant names drop out here.
//
// On failure the dirty flag and the local state stay as they were, so
// the caller can retry without re-selecting. There is no automatic
// retry.
func (m *Manager) Save(ctx context.Context, sel *Selection) (SaveSummary, error) {
	rows := sel.buildRows()

	deleted, err := m.client.Rows.Delete(ctx, backend.CollectionToolSelections, backend.Filter{
		"preset_id": sel.PresetID,
	})
	if err != nil {
		return SaveSummary{}, fmt.Errorf("toolset: clear persisted selection: %w", err)
	}
	if _, err := m.client.Rows.Insert(ctx, backend.CollectionToolSelections, rows); err != nil {
		return SaveSummary{Deleted: deleted}, fmt.Errorf("toolset: persist selection: %w", err)
	}

	sel.baseline[SourceMCP] = slices.Sorted(maps.Keys(sel.selected[SourceMCP]))
	sel.baseline[SourceWebhook] = slices.Sorted(maps.Keys(sel.selected[SourceWebhook]))
	sel.dormant[SourceMCP] = nil
	sel.dormant[SourceWebhook] = nil
	sel.dirty = false

	summary := SaveSummary{Deleted: deleted, Inserted: len(rows), Tools: sel.Count()}
	if err := sel.persist(ctx); err != nil {
		// The backend accepted the save; only the local cache write
		// failed.
		return summary, fmt.Errorf("toolset: cache selection after save: %w", err)
	}
	return summary, nil
}

// Invalidate drops the cached selection for a preset. Deleting a
// preset calls this so a later preset with the same id starts clean.
func (m *Manager) Invalidate(ctx context.Context, presetID string) error {
	if m.cache == nil {
		return nil
	}
	return m.cache.Delete(ctx, selectionKey(presetID))
}
