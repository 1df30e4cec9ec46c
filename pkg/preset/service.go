package preset

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/voxdeck/voxdeck/pkg/backend"
)

// ErrNotFound is returned when no preset matches the requested id or
// name.
var ErrNotFound = errors.New("preset not found")

// Service performs preset and provider-key CRUD against the platform.
type Service struct {
	client *backend.Client
}

// NewService creates a preset service over the given client.
func NewService(client *backend.Client) *Service {
	return &Service{client: client}
}

// List returns all presets, newest first. Rows that fail to map are
// skipped rather than failing the whole listing.
func (s *Service) List(ctx context.Context) ([]*Preset, error) {
	rows, err := s.client.Rows.List(ctx, backend.CollectionPresets, backend.Query{
		OrderBy: "created_at",
		Desc:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("preset: list: %w", err)
	}
	presets := make([]*Preset, 0, len(rows))
	for _, row := range rows {
		p, err := FromRow(row)
		if err != nil {
			continue
		}
		presets = append(presets, p)
	}
	return presets, nil
}

// Get returns the preset with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Preset, error) {
	return s.one(ctx, backend.Filter{"id": id})
}

// GetByName returns the preset with the given display name.
func (s *Service) GetByName(ctx context.Context, name string) (*Preset, error) {
	return s.one(ctx, backend.Filter{"name": name})
}

func (s *Service) one(ctx context.Context, filter backend.Filter) (*Preset, error) {
	rows, err := s.client.Rows.List(ctx, backend.CollectionPresets, backend.Query{
		Filter: filter,
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("preset: get: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return FromRow(rows[0])
}

// Create validates and inserts the preset, minting an id when the
// caller supplied none, and returns the stored record.
func (s *Service) Create(ctx context.Context, p *Preset) (*Preset, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	rows, err := s.client.Rows.Insert(ctx, backend.CollectionPresets, []backend.Row{p.ToRow()})
	if err != nil {
		return nil, fmt.Errorf("preset: create %s: %w", p.Name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("preset: create %s: platform returned no row", p.Name)
	}
	return FromRow(rows[0])
}

// Update replaces the mutable columns of an existing preset.
func (s *Service) Update(ctx context.Context, p *Preset) error {
	if p.ID == "" {
		return fmt.Errorf("preset: update requires an id")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	set := p.ToRow()
	delete(set, "id")
	count, err := s.client.Rows.Update(ctx, backend.CollectionPresets, backend.Filter{"id": p.ID}, set)
	if err != nil {
		return fmt.Errorf("preset: update %s: %w", p.ID, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the preset and its persisted tool selections. The
// caller is responsible for dropping the local cache namespace.
func (s *Service) Delete(ctx context.Context, id string) error {
	count, err := s.client.Rows.Delete(ctx, backend.CollectionPresets, backend.Filter{"id": id})
	if err != nil {
		return fmt.Errorf("preset: delete %s: %w", id, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	if _, err := s.client.Rows.Delete(ctx, backend.CollectionToolSelections, backend.Filter{"preset_id": id}); err != nil {
		return fmt.Errorf("preset: delete %s selections: %w", id, err)
	}
	return nil
}

// Keys returns all stored provider credentials.
func (s *Service) Keys(ctx context.Context) ([]*ProviderKey, error) {
	rows, err := s.client.Rows.List(ctx, backend.CollectionProviderKeys, backend.Query{
		OrderBy: "created_at",
		Desc:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("preset: list provider keys: %w", err)
	}
	keys := make([]*ProviderKey, 0, len(rows))
	for _, row := range rows {
		k, err := ProviderKeyFromRow(row)
		if err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Key returns the provider credential with the given id.
func (s *Service) Key(ctx context.Context, id string) (*ProviderKey, error) {
	rows, err := s.client.Rows.List(ctx, backend.CollectionProviderKeys, backend.Query{
		Filter: backend.Filter{"id": id},
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("preset: get provider key: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return ProviderKeyFromRow(rows[0])
}

// CreateKey stores a provider credential, minting an id when needed.
func (s *Service) CreateKey(ctx context.Context, k *ProviderKey) (*ProviderKey, error) {
	if !k.Provider.IsValid() {
		return nil, fmt.Errorf("preset: invalid provider %q", string(k.Provider))
	}
	if k.Secret == "" {
		return nil, fmt.Errorf("preset: provider key %s has no secret", k.Name)
	}
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	rows, err := s.client.Rows.Insert(ctx, backend.CollectionProviderKeys, []backend.Row{k.ToRow()})
	if err != nil {
		return nil, fmt.Errorf("preset: create provider key %s: %w", k.Name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("preset: create provider key %s: platform returned no row", k.Name)
	}
	return ProviderKeyFromRow(rows[0])
}

// DeleteKey removes a provider credential. Presets referencing it keep
// their reference; the playground reports the dangling key when used.
func (s *Service) DeleteKey(ctx context.Context, id string) error {
	count, err := s.client.Rows.Delete(ctx, backend.CollectionProviderKeys, backend.Filter{"id": id})
	if err != nil {
		return fmt.Errorf("preset: delete provider key %s: %w", id, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
