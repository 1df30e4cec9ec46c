package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/voxdeck/voxdeck/pkg/backend"
	"github.com/voxdeck/voxdeck/pkg/preset"
	"github.com/voxdeck/voxdeck/pkg/toolset"
)

// Kind names accepted in apply documents.
const (
	KindPreset      = "preset"
	KindProviderKey = "providerkey"
	KindConnection  = "connection"
	KindIntegration = "integration"
	KindSpace       = "space"
)

func registerBuiltinSchemas(r *SchemaRegistry) {
	r.Register(&Schema{
		Kind:       KindPreset,
		Collection: backend.CollectionPresets,
		Required:   []string{"name"},
		Optional: []string{
			"instructions", "model", "voice", "temperature",
			"greeting", "language", "provider_key",
		},
		ValidateFn: validateTemperature,
		PrepareFn:  preparePreset,
		CreateFn: func(row backend.Row) {
			row["public_id"] = mintPublicID()
		},
		CleanupFn: cleanupPreset,
	})

	r.Register(&Schema{
		Kind:       KindProviderKey,
		Collection: backend.CollectionProviderKeys,
		Required:   []string{"name", "provider", "secret"},
		ValidateFn: validateProvider,
		RedactFn: func(fields map[string]any) {
			if secret, ok := fields["secret"].(string); ok {
				fields["secret"] = preset.MaskSecret(secret)
			}
		},
	})

	r.Register(&Schema{
		Kind:       KindConnection,
		Collection: backend.CollectionConnections,
		Required:   []string{"name", "server_url"},
		Optional:   []string{"enabled"},
		ValidateFn: validateHTTPURL("server_url"),
		CleanupFn: func(ctx context.Context, c *Console, id string) error {
			_, err := c.client.Rows.Delete(ctx, backend.CollectionConnectionTools,
				backend.Filter{"connection_id": id})
			if err != nil {
				return fmt.Errorf("delete discovered tools: %w", err)
			}
			return nil
		},
	})

	r.Register(&Schema{
		Kind:       KindIntegration,
		Collection: backend.CollectionIntegrations,
		Required:   []string{"name", "preset", "url"},
		Optional: []string{
			"method", "description", "params", "result_expr", "enabled",
		},
		ValidateFn: chainValidators(validateHTTPURL("url"), validateResultExpr),
		PrepareFn:  prepareIntegration,
		MatchFn: func(fields map[string]any) backend.Filter {
			name, _ := fields["name"].(string)
			return backend.Filter{"name": name, "preset_id": fields["preset_id"]}
		},
		CreateFn: func(row backend.Row) {
			row["tool_name"] = toolset.DeriveToolName(row.GetString("name"), row.GetString("id"))
		},
	})

	r.Register(&Schema{
		Kind:       KindSpace,
		Collection: backend.CollectionSpaces,
		Required:   []string{"name"},
		Optional:   []string{"description"},
		CleanupFn: func(ctx context.Context, c *Console, id string) error {
			_, err := c.client.Rows.Delete(ctx, backend.CollectionDocuments,
				backend.Filter{"space_id": id})
			if err != nil {
				return fmt.Errorf("delete documents: %w", err)
			}
			return nil
		},
	})
}

// mintPublicID returns the identifier widgets use to address a preset.
// It is separate from the row id so embed snippets never expose one.
func mintPublicID() string {
	return "pub_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// preparePreset resolves the provider_key name reference into the
// stored provider_key_id column.
func preparePreset(ctx context.Context, c *Console, fields map[string]any) error {
	ref, _ := fields["provider_key"].(string)
	delete(fields, "provider_key")
	if ref == "" {
		return nil
	}
	key, err := c.providerKeyByName(ctx, ref)
	if err != nil {
		return err
	}
	fields["provider_key_id"] = key.ID
	return nil
}

// cleanupPreset removes the rows and cache entries that hang off a
// preset: persisted tool selections, webhook integrations, and the
// local selection snapshot.
func cleanupPreset(ctx context.Context, c *Console, id string) error {
	if _, err := c.client.Rows.Delete(ctx, backend.CollectionToolSelections,
		backend.Filter{"preset_id": id}); err != nil {
		return fmt.Errorf("delete selections: %w", err)
	}
	if _, err := c.client.Rows.Delete(ctx, backend.CollectionIntegrations,
		backend.Filter{"preset_id": id}); err != nil {
		return fmt.Errorf("delete integrations: %w", err)
	}
	return c.tools.Invalidate(ctx, id)
}

// prepareIntegration resolves the preset name reference, normalizes
// the HTTP method, and folds the params list into the stored metadata
// shape.
func prepareIntegration(ctx context.Context, c *Console, fields map[string]any) error {
	ref, _ := fields["preset"].(string)
	delete(fields, "preset")
	p, err := c.presetByName(ctx, ref)
	if err != nil {
		return err
	}
	fields["preset_id"] = p.ID

	method, _ := fields["method"].(string)
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "POST"
	}
	switch method {
	case "GET", "POST", "PUT", "PATCH", "DELETE":
	default:
		return fmt.Errorf("field 'method' must be GET, POST, PUT, PATCH or DELETE, got %q", method)
	}
	fields["method"] = method

	if raw, ok := fields["params"]; ok {
		delete(fields, "params")
		params, err := integrationParams(raw)
		if err != nil {
			return err
		}
		fields["metadata"] = toolset.MetadataFromParams(params)
	}
	return nil
}

// integrationParams converts the document's params list into payload
// parameters. Unlike reads from the platform, applies fail loudly on a
// malformed entry.
func integrationParams(v any) ([]toolset.Param, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field 'params' must be a list")
	}
	params := make([]toolset.Param, 0, len(raw))
	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("params[%d]: must be a mapping", i)
		}
		p := toolset.Param{
			Key:         docString(entry, "key"),
			Type:        docString(entry, "type"),
			Description: docString(entry, "description"),
			Example:     docString(entry, "example"),
		}
		if req, ok := entry["required"].(bool); ok {
			p.Required = req
		}
		if p.Key == "" {
			return nil, fmt.Errorf("params[%d]: missing 'key'", i)
		}
		if p.Type == "" {
			p.Type = "string"
		}
		params = append(params, p)
	}
	return params, nil
}

func docString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// validateProvider checks the provider field against the supported
// vendors.
func validateProvider(fields map[string]any) error {
	raw, _ := fields["provider"].(string)
	if !preset.Provider(raw).IsValid() {
		return fmt.Errorf("field 'provider' must be %q or %q, got %q",
			preset.ProviderOpenAI, preset.ProviderGemini, raw)
	}
	return nil
}

// validateResultExpr checks that result_expr, when present, is a
// parseable jq program.
func validateResultExpr(fields map[string]any) error {
	expr, _ := fields["result_expr"].(string)
	if expr == "" {
		return nil
	}
	if _, err := toolset.ParseJQ(expr); err != nil {
		return fmt.Errorf("field 'result_expr': %w", err)
	}
	return nil
}
