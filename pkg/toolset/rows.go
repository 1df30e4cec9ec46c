package toolset

import (
	"github.com/voxdeck/voxdeck/pkg/backend"
)

// Connection is an MCP server connection registered account-wide.
// Tools discovered from it become available to every preset while the
// connection is enabled.
type Connection struct {
	ID        string
	Name      string
	ServerURL string
	Enabled   bool
}

// ConnectionFromRow maps a backend row into a Connection. Missing
// fields default rather than fail; a row without an id is returned as
// the zero value and skipped by callers.
func ConnectionFromRow(row backend.Row) Connection {
	return Connection{
		ID:        row.GetString("id"),
		Name:      row.GetString("name"),
		ServerURL: row.GetString("server_url"),
		Enabled:   row.GetBool("enabled", true),
	}
}

// ConnectionTool is one capability discovered from an MCP connection.
// The name is the one the server reports and is used verbatim.
type ConnectionTool struct {
	ID           string
	ConnectionID string
	Name         string
	Description  string
	Enabled      bool
}

// ConnectionToolFromRow maps a backend row into a ConnectionTool.
func ConnectionToolFromRow(row backend.Row) ConnectionTool {
	return ConnectionTool{
		ID:           row.GetString("id"),
		ConnectionID: row.GetString("connection_id"),
		Name:         row.GetString("name"),
		Description:  row.GetString("description"),
		Enabled:      row.GetBool("enabled", true),
	}
}

// Integration is a per-preset outbound webhook. Its callable tool
// name is derived once at creation and persisted; rows written before
// that convention carry an empty ToolName and get the derived name at
// read time.
type Integration struct {
	ID          string
	PresetID    string
	Name        string
	ToolName    string
	URL         string
	Method      string
	Description string
	Enabled     bool
	Params      []Param
	ResultExpr  *JQExpr
}

// IntegrationFromRow maps a backend row into an Integration.
//
// A malformed result_expr is dropped rather than failing the load;
// the webhook response then passes through untransformed.
func IntegrationFromRow(row backend.Row) Integration {
	in := Integration{
		ID:          row.GetString("id"),
		PresetID:    row.GetString("preset_id"),
		Name:        row.GetString("name"),
		ToolName:    row.GetString("tool_name"),
		URL:         row.GetString("url"),
		Method:      row.GetString("method"),
		Description: row.GetString("description"),
		Enabled:     row.GetBool("enabled", true),
		Params:      ParamsFromMetadata(row["metadata"]),
	}
	if in.Method == "" {
		in.Method = "POST"
	}
	if expr := row.GetString("result_expr"); expr != "" {
		if parsed, err := ParseJQ(expr); err == nil {
			in.ResultExpr = parsed
		}
	}
	return in
}

// ToRow maps an Integration back into a backend row for insert or
// upsert.
func (in Integration) ToRow() backend.Row {
	row := backend.Row{
		"id":        in.ID,
		"preset_id": in.PresetID,
		"name":      in.Name,
		"tool_name": in.ToolName,
		"url":       in.URL,
		"method":    in.Method,
		"enabled":   in.Enabled,
	}
	if in.Description != "" {
		row["description"] = in.Description
	}
	if len(in.Params) > 0 {
		row["metadata"] = MetadataFromParams(in.Params)
	}
	if in.ResultExpr != nil && in.ResultExpr.Expr != "" {
		row["result_expr"] = in.ResultExpr.Expr
	}
	return row
}
