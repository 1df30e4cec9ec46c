package console

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/voxdeck/voxdeck/pkg/backend"
)

// Schema defines validation rules and the platform collection for a
// kind.
//
// Hooks run in apply order: Validate on the raw document fields,
// PrepareFn to rewrite them into wire columns, Match to locate an
// existing row, CreateFn on first insert, CleanupFn after delete.
type Schema struct {
	Kind       string
	Collection string
	Required   []string
	Optional   []string

	// ValidateFn runs additional validation beyond required/known
	// fields.
	ValidateFn func(fields map[string]any) error

	// PrepareFn rewrites document fields into wire columns: resolving
	// name references to row ids, normalizing enums, folding nested
	// structures into their stored shape.
	PrepareFn func(ctx context.Context, c *Console, fields map[string]any) error

	// MatchFn returns the filter identifying this document's row after
	// PrepareFn ran. Defaults to name equality.
	MatchFn func(fields map[string]any) backend.Filter

	// CreateFn fills derived columns on first create, after the row id
	// is minted. Updates never touch these columns.
	CreateFn func(row backend.Row)

	// CleanupFn runs after the row is deleted, removing dependent rows
	// and local cache state.
	CleanupFn func(ctx context.Context, c *Console, id string) error

	// RedactFn strips sensitive columns from documents before Get and
	// List return them.
	RedactFn func(fields map[string]any)
}

// Validate checks that all required fields are present and non-empty,
// rejects fields the schema does not know (a typoed key would otherwise
// become a stray column on the row), then runs any additional
// validation.
func (s *Schema) Validate(fields map[string]any) error {
	for _, req := range s.Required {
		val, ok := fields[req]
		if !ok {
			return fmt.Errorf("kind %q: missing required field %q", s.Kind, req)
		}
		if str, isStr := val.(string); isStr && str == "" {
			return fmt.Errorf("kind %q: field %q cannot be empty", s.Kind, req)
		}
	}
	for key := range fields {
		if !s.knownField(key) {
			return fmt.Errorf("kind %q: unknown field %q", s.Kind, key)
		}
	}
	if s.ValidateFn != nil {
		return s.ValidateFn(fields)
	}
	return nil
}

func (s *Schema) knownField(key string) bool {
	for _, f := range s.Required {
		if f == key {
			return true
		}
	}
	for _, f := range s.Optional {
		if f == key {
			return true
		}
	}
	return false
}

// Match returns the row filter for this document's fields.
func (s *Schema) Match(fields map[string]any) backend.Filter {
	if s.MatchFn != nil {
		return s.MatchFn(fields)
	}
	name, _ := fields["name"].(string)
	return backend.Filter{"name": name}
}

// SchemaRegistry holds all registered schemas.
type SchemaRegistry struct {
	schemas map[string]*Schema
}

// NewSchemaRegistry creates a registry with all built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	r := &SchemaRegistry{schemas: make(map[string]*Schema)}
	registerBuiltinSchemas(r)
	return r
}

// Register adds a schema to the registry.
func (r *SchemaRegistry) Register(s *Schema) {
	r.schemas[s.Kind] = s
}

// Get returns the schema for a kind, or nil if not found.
func (r *SchemaRegistry) Get(kind string) *Schema {
	return r.schemas[kind]
}

// Kinds returns all registered kind names sorted.
func (r *SchemaRegistry) Kinds() []string {
	kinds := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// validateTemperature checks temperature range 0-2.
func validateTemperature(fields map[string]any) error {
	if v, ok := fields["temperature"]; ok {
		var temp float64
		switch t := v.(type) {
		case float64:
			temp = t
		case int:
			temp = float64(t)
		default:
			return fmt.Errorf("field 'temperature' must be a number")
		}
		if temp < 0 || temp > 2 {
			return fmt.Errorf("field 'temperature' must be between 0 and 2, got %v", temp)
		}
	}
	return nil
}

// validateHTTPURL returns a validator requiring the named field, when
// present, to be an absolute http(s) URL.
func validateHTTPURL(field string) func(map[string]any) error {
	return func(fields map[string]any) error {
		raw, _ := fields[field].(string)
		if raw == "" {
			return nil
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("field %q must be an absolute http(s) URL, got %q", field, raw)
		}
		return nil
	}
}

// chainValidators runs multiple validators in sequence.
func chainValidators(validators ...func(map[string]any) error) func(map[string]any) error {
	return func(fields map[string]any) error {
		for _, v := range validators {
			if err := v(fields); err != nil {
				return err
			}
		}
		return nil
	}
}
