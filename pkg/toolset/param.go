package toolset

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// metadataParamsKey is the field inside a selection row's metadata
// that holds the payload parameter list for a webhook tool.
const metadataParamsKey = "payloadParameters"

// Param documents one field of the request body a webhook tool sends.
type Param struct {
	Key         string `json:"key" msgpack:"key"`
	Type        string `json:"type" msgpack:"type"`
	Description string `json:"description,omitzero" msgpack:"description,omitempty"`
	Required    bool   `json:"required,omitzero" msgpack:"required,omitempty"`
	Example     string `json:"example,omitzero" msgpack:"example,omitempty"`
}

// ParamsFromMetadata extracts the payload parameter list from a
// selection row's metadata.
//
// Metadata comes back from the backend as whatever was stored, and
// older rows carry shapes this version never wrote. Anything that is
// not a map holding a payloadParameters array of objects yields an
// empty list. A load never fails because of metadata.
func ParamsFromMetadata(metadata any) []Param {
	m, ok := metadata.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := m[metadataParamsKey].([]any)
	if !ok {
		return nil
	}

	params := make([]Param, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p := Param{
			Key:         stringField(entry, "key"),
			Type:        stringField(entry, "type"),
			Description: stringField(entry, "description"),
			Example:     stringField(entry, "example"),
		}
		if req, ok := entry["required"].(bool); ok {
			p.Required = req
		}
		if p.Key == "" {
			continue
		}
		if p.Type == "" {
			p.Type = "string"
		}
		params = append(params, p)
	}
	return params
}

// MetadataFromParams builds the metadata value stored on a selection
// row. An empty list stores an empty array so a row saved with no
// parameters round-trips to an empty list, not to nil metadata.
func MetadataFromParams(params []Param) map[string]any {
	entries := make([]any, 0, len(params))
	for _, p := range params {
		entry := map[string]any{
			"key":  p.Key,
			"type": p.Type,
		}
		if p.Description != "" {
			entry["description"] = p.Description
		}
		if p.Required {
			entry["required"] = true
		}
		if p.Example != "" {
			entry["example"] = p.Example
		}
		entries = append(entries, entry)
	}
	return map[string]any{metadataParamsKey: entries}
}

// ParamsSchema converts a parameter list into a JSON schema describing
// the webhook request body. Chat playgrounds hand this to the model as
// the tool's input schema.
func ParamsSchema(params []Param) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(params)),
	}
	for _, p := range params {
		prop := &jsonschema.Schema{
			Type:        schemaType(p.Type),
			Description: p.Description,
		}
		if p.Example != "" {
			prop.Examples = []any{p.Example}
		}
		schema.Properties[p.Key] = prop
		if p.Required {
			schema.Required = append(schema.Required, p.Key)
		}
	}
	return schema
}

// schemaType maps the loose types the console stores to JSON schema
// type names.
func schemaType(t string) string {
	switch t {
	case "number", "integer", "boolean", "object", "array":
		return t
	default:
		return "string"
	}
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return trimFloat(v)
	default:
		return ""
	}
}

func trimFloat(f float64) string {
	b, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	return string(b)
}
