package toolset_test

import (
	"context"
	"slices"
	"testing"

	"github.com/voxdeck/voxdeck/pkg/backend"
	"github.com/voxdeck/voxdeck/pkg/backend/backendtest"
	"github.com/voxdeck/voxdeck/pkg/kv"
	"github.com/voxdeck/voxdeck/pkg/toolset"
	"github.com/voxdeck/voxdeck/pkg/uicache"
)

const presetID = "p1"

// seedCatalog installs one enabled connection with two discovered
// tools and one enabled webhook integration for the preset.
func seedCatalog(srv *backendtest.Server) {
	srv.Seed(backend.CollectionConnections,
		backend.Row{"id": "c1", "name": "ops", "enabled": true})
	srv.Seed(backend.CollectionConnectionTools,
		backend.Row{"id": "t1", "connection_id": "c1", "name": "searchDocs", "enabled": true},
		backend.Row{"id": "t2", "connection_id": "c1", "name": "listOrders", "enabled": true})
	srv.Seed(backend.CollectionIntegrations,
		backend.Row{"id": "i1", "preset_id": presetID, "name": "CRM Sync", "tool_name": "crmSync_i1",
			"url": "https://hooks.test/crm", "enabled": true})
}

func newManager(t *testing.T, srv *backendtest.Server) (*toolset.Manager, *uicache.Cache) {
	t.Helper()
	cache := uicache.New(kv.NewMemory())
	return toolset.NewManager(srv.Client(), cache), cache
}

func selectionRowNames(rows []backend.Row) []string {
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.GetString("tool_name"))
	}
	slices.Sort(names)
	return names
}

func TestLoadDefaultsToAllAvailable(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	mgr, _ := newManager(t, srv)

	sel, err := mgr.Load(context.Background(), presetID)
	if err != nil {
		t.Fatal(err)
	}

	if got := sel.SelectedNames(toolset.SourceMCP); !slices.Equal(got, []string{"listOrders", "searchDocs"}) {
		t.Errorf("mcp selection = %v", got)
	}
	if got := sel.SelectedNames(toolset.SourceWebhook); !slices.Equal(got, []string{"crmSync_i1"}) {
		t.Errorf("webhook selection = %v", got)
	}
	if sel.Dirty() {
		t.Error("a fresh default selection is not dirty")
	}
	if sel.Count() != 3 {
		t.Errorf("Count = %d, want 3", sel.Count())
	}

	// The default is local only; nothing was persisted.
	if rows := srv.Rows(backend.CollectionToolSelections); len(rows) != 0 {
		t.Errorf("load must not write selection rows, found %d", len(rows))
	}
}

func TestLoadSentinelMeansEmpty(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	srv.Seed(backend.CollectionToolSelections,
		backend.Row{"preset_id": presetID, "tool_name": toolset.NoToolsSentinel, "tool_source": "mcp"})
	mgr, _ := newManager(t, srv)

	sel, err := mgr.Load(context.Background(), presetID)
	if err != nil {
		t.Fatal(err)
	}

	if sel.Count() != 0 {
		t.Fatalf("sentinel must yield an empty selection, got %d tools", sel.Count())
	}
	if sel.IsSelected(toolset.SourceMCP, toolset.NoToolsSentinel) {
		t.Error("the sentinel itself must never appear as a selected tool")
	}
}

func TestLoadExplicitRowsVerbatim(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	srv.Seed(backend.CollectionToolSelections,
		backend.Row{"preset_id": presetID, "tool_name": "searchDocs", "tool_source": "mcp", "connection_id": "c1"})
	mgr, _ := newManager(t, srv)

	sel, err := mgr.Load(context.Background(), presetID)
	if err != nil {
		t.Fatal(err)
	}

	if !sel.IsSelected(toolset.SourceMCP, "searchDocs") {
		t.Error("persisted tool should be selected")
	}
	if sel.IsSelected(toolset.SourceMCP, "listOrders") {
		t.Error("an explicit selection must not grow to all available tools")
	}
	if sel.IsSelected(toolset.SourceWebhook, "crmSync_i1") {
		t.Error("webhook tool was not in the persisted selection")
	}
}

func TestRenameKeepsToolName(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	mgr, _ := newManager(t, srv)
	ctx := context.Background()

	before, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	wantName := before.Catalog().Names(toolset.SourceWebhook)[0]

	// Rename the integration without touching its persisted tool name.
	if _, err := srv.Client().Rows.Update(ctx, backend.CollectionIntegrations,
		backend.Filter{"id": "i1"}, map[string]any{"name": "CRM Sync v2"}); err != nil {
		t.Fatal(err)
	}

	after, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	got := after.Catalog().Names(toolset.SourceWebhook)
	if !slices.Equal(got, []string{wantName}) {
		t.Errorf("tool name changed across rename: %v, want [%s]", got, wantName)
	}
}

func TestDuplicateDisplayNamesStayDistinct(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	srv.Seed(backend.CollectionIntegrations,
		backend.Row{"id": "i2", "preset_id": presetID, "name": "CRM Sync", "tool_name": "crmSync_i2",
			"url": "https://hooks.test/crm2", "enabled": true})
	mgr, _ := newManager(t, srv)

	sel, err := mgr.Load(context.Background(), presetID)
	if err != nil {
		t.Fatal(err)
	}
	names := sel.Catalog().Names(toolset.SourceWebhook)
	if !slices.Equal(names, []string{"crmSync_i1", "crmSync_i2"}) {
		t.Errorf("duplicate display names collapsed: %v", names)
	}
}

func TestToggleSurvivesReload(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	mgr, _ := newManager(t, srv)
	ctx := context.Background()

	sel, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	nowOn, err := sel.Toggle(ctx, toolset.SourceMCP, "searchDocs")
	if err != nil {
		t.Fatal(err)
	}
	if nowOn {
		t.Fatal("toggling a selected tool should deselect it")
	}
	if !sel.Dirty() {
		t.Fatal("toggle must mark the selection dirty")
	}

	// Reload with unchanged server state. The unsaved toggle wins.
	reloaded, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.IsSelected(toolset.SourceMCP, "searchDocs") {
		t.Error("unsaved toggle lost on reload")
	}
	if !reloaded.IsSelected(toolset.SourceMCP, "listOrders") {
		t.Error("untouched tool should stay selected")
	}
	if !reloaded.Dirty() {
		t.Error("reloaded selection with unsaved edits must stay dirty")
	}
}

func TestServerDivergenceWinsOverLocalEdits(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	mgr, _ := newManager(t, srv)
	ctx := context.Background()

	sel, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sel.Toggle(ctx, toolset.SourceMCP, "searchDocs"); err != nil {
		t.Fatal(err)
	}

	// Another device saves an explicit selection in the meantime.
	srv.Seed(backend.CollectionToolSelections,
		backend.Row{"preset_id": presetID, "tool_name": "listOrders", "tool_source": "mcp", "connection_id": "c1"})

	reloaded, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.SelectedNames(toolset.SourceMCP); !slices.Equal(got, []string{"listOrders"}) {
		t.Errorf("server selection should win after divergence, got %v", got)
	}
	if reloaded.Dirty() {
		t.Error("selection rebuilt from server state is not dirty")
	}
}

func TestStaleCleanCacheOverwritten(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	mgr, cache := newManager(t, srv)
	ctx := context.Background()

	// First load caches the default-all selection, clean.
	if _, err := mgr.Load(ctx, presetID); err != nil {
		t.Fatal(err)
	}

	// The server gains an explicit selection; the clean cache entry is
	// now stale and must lose.
	srv.Seed(backend.CollectionToolSelections,
		backend.Row{"preset_id": presetID, "tool_name": "searchDocs", "tool_source": "mcp", "connection_id": "c1"})

	sel, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	if got := sel.SelectedNames(toolset.SourceMCP); !slices.Equal(got, []string{"searchDocs"}) {
		t.Errorf("stale cache should be replaced, got %v", got)
	}

	// And the cache itself was rewritten, not just the in-memory view.
	fresh, err := toolset.NewManager(srv.Client(), cache).Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	if got := fresh.SelectedNames(toolset.SourceMCP); !slices.Equal(got, []string{"searchDocs"}) {
		t.Errorf("cache still stale after reconcile, got %v", got)
	}
}

func TestSaveReplacesNotMerges(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	srv.Seed(backend.CollectionToolSelections,
		backend.Row{"preset_id": presetID, "tool_name": "searchDocs", "tool_source": "mcp", "connection_id": "c1"},
		backend.Row{"preset_id": presetID, "tool_name": "listOrders", "tool_source": "mcp", "connection_id": "c1"},
		backend.Row{"preset_id": presetID, "tool_name": "crmSync_i1", "tool_source": "n8n", "integration_id": "i1"})
	mgr, _ := newManager(t, srv)
	ctx := context.Background()

	sel, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sel.Toggle(ctx, toolset.SourceMCP, "listOrders"); err != nil {
		t.Fatal(err)
	}

	summary, err := mgr.Save(ctx, sel)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Deleted != 3 || summary.Inserted != 2 || summary.Tools != 2 {
		t.Errorf("summary = %+v, want Deleted:3 Inserted:2 Tools:2", summary)
	}
	if sel.Dirty() {
		t.Error("successful save clears the dirty flag")
	}

	got := selectionRowNames(srv.Rows(backend.CollectionToolSelections))
	if !slices.Equal(got, []string{"crmSync_i1", "searchDocs"}) {
		t.Errorf("persisted rows = %v; save must replace the whole set", got)
	}
}

func TestSaveEmptyWritesSentinel(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	mgr, _ := newManager(t, srv)
	ctx := context.Background()

	sel, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	if err := sel.Clear(ctx, toolset.SourceMCP); err != nil {
		t.Fatal(err)
	}
	if err := sel.Clear(ctx, toolset.SourceWebhook); err != nil {
		t.Fatal(err)
	}

	summary, err := mgr.Save(ctx, sel)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Tools != 0 {
		t.Errorf("Tools = %d, want 0", summary.Tools)
	}

	rows := srv.Rows(backend.CollectionToolSelections)
	if len(rows) != 1 || rows[0].GetString("tool_name") != toolset.NoToolsSentinel {
		t.Fatalf("expected the single sentinel row, got %v", rows)
	}

	// A later load sees the deliberate empty, not default-all.
	reloaded, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Count() != 0 {
		t.Errorf("cleared preset reloaded %d tools, want 0", reloaded.Count())
	}
}

func TestSaveFailureKeepsDirtyAndLocalState(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	mgr, _ := newManager(t, srv)
	ctx := context.Background()

	sel, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sel.Toggle(ctx, toolset.SourceMCP, "searchDocs"); err != nil {
		t.Fatal(err)
	}

	srv.FailNext("DELETE", backend.CollectionToolSelections, 500)
	if _, err := mgr.Save(ctx, sel); err == nil {
		t.Fatal("expected save to fail")
	}
	if !sel.Dirty() {
		t.Error("failed save must leave the dirty flag set")
	}
	if sel.IsSelected(toolset.SourceMCP, "searchDocs") {
		t.Error("failed save must not roll back local edits")
	}

	// Exactly one delete attempt; there is no automatic retry.
	if n := srv.Calls("DELETE", backend.CollectionToolSelections); n != 1 {
		t.Errorf("delete attempted %d times, want 1", n)
	}

	// The retry the user triggers succeeds from the same state.
	summary, err := mgr.Save(ctx, sel)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Tools != 2 {
		t.Errorf("Tools = %d, want 2", summary.Tools)
	}
	got := selectionRowNames(srv.Rows(backend.CollectionToolSelections))
	if !slices.Equal(got, []string{"crmSync_i1", "listOrders"}) {
		t.Errorf("persisted rows after retry = %v", got)
	}
}

func TestMalformedMetadataYieldsEmptyParams(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	srv.Seed(backend.CollectionToolSelections,
		backend.Row{"preset_id": presetID, "tool_name": "crmSync_i1", "tool_source": "n8n",
			"integration_id": "i1", "metadata": map[string]any{"payloadParameters": "corrupted"}})
	mgr, _ := newManager(t, srv)

	sel, err := mgr.Load(context.Background(), presetID)
	if err != nil {
		t.Fatalf("malformed metadata must not fail the load: %v", err)
	}
	if params := sel.Params("i1"); len(params) != 0 {
		t.Errorf("params = %v, want empty", params)
	}
	if !sel.IsSelected(toolset.SourceWebhook, "crmSync_i1") {
		t.Error("the row itself still counts as a selection")
	}
}

func TestParamsRoundTripThroughSave(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	mgr, _ := newManager(t, srv)
	ctx := context.Background()

	sel, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	params := []toolset.Param{
		{Key: "customer_id", Type: "string", Description: "CRM id", Required: true},
		{Key: "amount", Type: "number", Example: "42.50"},
	}
	if err := sel.SetParams(ctx, "i1", params); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Save(ctx, sel); err != nil {
		t.Fatal(err)
	}

	reloaded, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	got := reloaded.Params("i1")
	if len(got) != 2 || got[0] != params[0] || got[1] != params[1] {
		t.Errorf("params after round trip = %+v, want %+v", got, params)
	}
}

func TestDormantSelectionKeptUntilSave(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	// A selection saved while integration i2 was enabled; i2 has since
	// been disabled.
	srv.Seed(backend.CollectionIntegrations,
		backend.Row{"id": "i2", "preset_id": presetID, "name": "Paused", "tool_name": "paused_i2",
			"url": "https://hooks.test/paused", "enabled": false})
	srv.Seed(backend.CollectionToolSelections,
		backend.Row{"preset_id": presetID, "tool_name": "searchDocs", "tool_source": "mcp", "connection_id": "c1"},
		backend.Row{"preset_id": presetID, "tool_name": "paused_i2", "tool_source": "n8n", "integration_id": "i2"})
	mgr, _ := newManager(t, srv)
	ctx := context.Background()

	sel, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	if !sel.IsSelected(toolset.SourceWebhook, "paused_i2") {
		t.Error("saved selection for a disabled integration stays selected")
	}
	if _, ok := sel.Catalog().Lookup(toolset.SourceWebhook, "paused_i2"); ok {
		t.Error("a disabled integration must not be available")
	}

	// The next save overwrites the whole set and drops the dormant row.
	if _, err := mgr.Save(ctx, sel); err != nil {
		t.Fatal(err)
	}
	got := selectionRowNames(srv.Rows(backend.CollectionToolSelections))
	if slices.Contains(got, "paused_i2") {
		t.Errorf("dormant selection survived a save: %v", got)
	}
	if !slices.Contains(got, "searchDocs") {
		t.Errorf("live selection lost on save: %v", got)
	}
}

func TestToggleUnknownTool(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	mgr, _ := newManager(t, srv)
	ctx := context.Background()

	sel, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sel.Toggle(ctx, toolset.SourceMCP, "nosuch"); err == nil {
		t.Error("toggling an unavailable tool must error")
	}
}

func TestSelectAllAfterClear(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	mgr, _ := newManager(t, srv)
	ctx := context.Background()

	sel, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	if err := sel.Clear(ctx, toolset.SourceMCP); err != nil {
		t.Fatal(err)
	}
	if got := sel.SelectedNames(toolset.SourceMCP); len(got) != 0 {
		t.Fatalf("after clear: %v", got)
	}
	if err := sel.SelectAll(ctx, toolset.SourceMCP); err != nil {
		t.Fatal(err)
	}
	if got := sel.SelectedNames(toolset.SourceMCP); !slices.Equal(got, []string{"listOrders", "searchDocs"}) {
		t.Errorf("after select-all: %v", got)
	}
	// Webhook side untouched throughout.
	if !sel.IsSelected(toolset.SourceWebhook, "crmSync_i1") {
		t.Error("per-source operations must not leak across sources")
	}
}

func TestInvalidateDropsCacheEntry(t *testing.T) {
	srv := backendtest.New(t)
	seedCatalog(srv)
	mgr, _ := newManager(t, srv)
	ctx := context.Background()

	sel, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sel.Toggle(ctx, toolset.SourceMCP, "searchDocs"); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Invalidate(ctx, presetID); err != nil {
		t.Fatal(err)
	}

	// With the cache gone the unsaved toggle is gone too.
	reloaded, err := mgr.Load(ctx, presetID)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.IsSelected(toolset.SourceMCP, "searchDocs") {
		t.Error("invalidated cache should fall back to the default selection")
	}
	if reloaded.Dirty() {
		t.Error("fresh selection is not dirty")
	}
}
