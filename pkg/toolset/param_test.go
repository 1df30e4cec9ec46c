package toolset

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestParamsFromMetadata(t *testing.T) {
	valid := map[string]any{
		"payloadParameters": []any{
			map[string]any{"key": "customer_id", "type": "string", "description": "CRM id", "required": true},
			map[string]any{"key": "amount", "type": "number", "example": "42.50"},
		},
	}

	params := ParamsFromMetadata(valid)
	if len(params) != 2 {
		t.Fatalf("got %d params, want 2", len(params))
	}
	if params[0].Key != "customer_id" || !params[0].Required {
		t.Errorf("first param = %+v", params[0])
	}
	if params[1].Type != "number" || params[1].Example != "42.50" {
		t.Errorf("second param = %+v", params[1])
	}
}

func TestParamsFromMetadataMalformed(t *testing.T) {
	tests := []struct {
		name     string
		metadata any
	}{
		{"nil", nil},
		{"string instead of map", "oops"},
		{"number", 42},
		{"params is a string", map[string]any{"payloadParameters": "not an array"}},
		{"params is a map", map[string]any{"payloadParameters": map[string]any{"key": "x"}}},
		{"params is a number", map[string]any{"payloadParameters": 7}},
		{"missing key field", map[string]any{"payloadParameters": []any{map[string]any{"type": "string"}}}},
		{"non-object entries", map[string]any{"payloadParameters": []any{"a", 1, true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParamsFromMetadata(tt.metadata); len(got) != 0 {
				t.Errorf("got %d params, want 0", len(got))
			}
		})
	}
}

func TestParamsFromMetadataDefaultsType(t *testing.T) {
	params := ParamsFromMetadata(map[string]any{
		"payloadParameters": []any{map[string]any{"key": "note"}},
	})
	if len(params) != 1 || params[0].Type != "string" {
		t.Fatalf("got %+v, want one string param", params)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	in := []Param{
		{Key: "customer_id", Type: "string", Description: "CRM id", Required: true},
		{Key: "amount", Type: "number", Example: "42.50"},
	}

	// Simulate the backend round trip through JSON.
	data, err := json.Marshal(MetadataFromParams(in))
	if err != nil {
		t.Fatal(err)
	}
	var stored any
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatal(err)
	}

	out := ParamsFromMetadata(stored)
	if len(out) != 2 {
		t.Fatalf("got %d params, want 2", len(out))
	}
	if out[0] != in[0] || out[1] != in[1] {
		t.Errorf("round trip changed params: %+v vs %+v", out, in)
	}
}

func TestMetadataFromParamsEmpty(t *testing.T) {
	m := MetadataFromParams(nil)
	raw, ok := m[metadataParamsKey].([]any)
	if !ok || len(raw) != 0 {
		t.Fatalf("empty params should store an empty array, got %v", m)
	}
}

func TestParamsSchema(t *testing.T) {
	schema := ParamsSchema([]Param{
		{Key: "customer_id", Type: "string", Description: "CRM id", Required: true},
		{Key: "amount", Type: "number"},
		{Key: "urgent", Type: "boolean"},
		{Key: "note", Type: "freeform"},
	})

	if schema.Type != "object" {
		t.Errorf("schema type = %q", schema.Type)
	}
	if !slices.Equal(schema.Required, []string{"customer_id"}) {
		t.Errorf("required = %v", schema.Required)
	}
	if schema.Properties["amount"].Type != "number" {
		t.Errorf("amount type = %q", schema.Properties["amount"].Type)
	}
	if schema.Properties["note"].Type != "string" {
		t.Errorf("unknown declared type should map to string, got %q", schema.Properties["note"].Type)
	}
	if schema.Properties["customer_id"].Description != "CRM id" {
		t.Errorf("description lost")
	}
}

func TestSourceUnmarshal(t *testing.T) {
	var s Source
	if err := json.Unmarshal([]byte(`"mcp"`), &s); err != nil || s != SourceMCP {
		t.Errorf("mcp: %v, %v", s, err)
	}
	if err := json.Unmarshal([]byte(`"n8n"`), &s); err != nil || s != SourceWebhook {
		t.Errorf("n8n: %v, %v", s, err)
	}
	if err := json.Unmarshal([]byte(`"slack"`), &s); err == nil {
		t.Error("unknown source should fail to unmarshal")
	}
}

func TestJQExprRun(t *testing.T) {
	e, err := ParseJQ(".data.items | length")
	if err != nil {
		t.Fatal(err)
	}
	out, err := e.Run(map[string]any{
		"data": map[string]any{"items": []any{1, 2, 3}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "3" {
		t.Errorf("got %q, want 3", out)
	}
}

func TestJQExprEmptyIsIdentity(t *testing.T) {
	e, err := ParseJQ("")
	if err != nil {
		t.Fatal(err)
	}
	out, err := e.Run(map[string]any{"ok": true})
	if err != nil {
		t.Fatal(err)
	}
	if out != `{"ok":true}` {
		t.Errorf("got %q", out)
	}
}

func TestParseJQInvalid(t *testing.T) {
	if _, err := ParseJQ(".data["); err == nil {
		t.Error("expected parse error")
	}
}

func TestBuildCatalogExclusions(t *testing.T) {
	conns := []Connection{
		{ID: "c1", Name: "ops", Enabled: true},
		{ID: "c2", Name: "legacy", Enabled: false},
	}
	discovered := []ConnectionTool{
		{ID: "t1", ConnectionID: "c1", Name: "searchDocs", Enabled: true},
		{ID: "t2", ConnectionID: "c1", Name: "listOrders", Enabled: false},
		{ID: "t3", ConnectionID: "c2", Name: "oldTool", Enabled: true},
		{ID: "t4", ConnectionID: "c9", Name: "orphan", Enabled: true},
	}
	integrations := []Integration{
		{ID: "i1", Name: "CRM Sync", ToolName: "crmSync_i1", Enabled: true},
		{ID: "i2", Name: "Paused", ToolName: "paused_i2", Enabled: false},
	}

	cat := BuildCatalog(conns, discovered, integrations)

	if !slices.Equal(cat.Names(SourceMCP), []string{"searchDocs"}) {
		t.Errorf("mcp names = %v", cat.Names(SourceMCP))
	}
	if !slices.Equal(cat.Names(SourceWebhook), []string{"crmSync_i1"}) {
		t.Errorf("webhook names = %v", cat.Names(SourceWebhook))
	}
	if cat.Len() != 2 {
		t.Errorf("Len = %d", cat.Len())
	}
}

func TestBuildCatalogLegacyToolName(t *testing.T) {
	cat := BuildCatalog(nil, nil, []Integration{
		{ID: "i1", Name: "CRM Sync", Enabled: true},
	})
	if _, ok := cat.Lookup(SourceWebhook, "crmSync_i1"); !ok {
		t.Errorf("legacy integration should derive its tool name, got %v", cat.Names(SourceWebhook))
	}
}
