package preset

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/voxdeck/voxdeck/pkg/backend"
)

// Provider identifies which model vendor a credential belongs to.
type Provider string

// Supported providers.
const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

var validProviders = map[string]struct{}{
	string(ProviderOpenAI): {},
	string(ProviderGemini): {},
}

// Providers lists the supported providers in a stable order.
func Providers() []Provider { return []Provider{ProviderOpenAI, ProviderGemini} }

// IsValid returns true if the provider is one of the known values.
func (p Provider) IsValid() bool {
	_, ok := validProviders[string(p)]
	return ok
}

// UnmarshalJSON implements json.Unmarshaler with validation.
func (p *Provider) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Provider(raw)
	if !v.IsValid() {
		return fmt.Errorf("invalid provider: %q (must be %q or %q)", raw, ProviderOpenAI, ProviderGemini)
	}
	*p = v
	return nil
}

// ProviderKey is a stored provider credential. The secret never leaves
// the platform unmasked except to the playground and live preview,
// which need it to open provider sessions.
type ProviderKey struct {
	ID        string
	Name      string
	Provider  Provider
	Secret    string
	CreatedAt time.Time
}

// ProviderKeyFromRow maps a persisted credential row. Rows with an
// unsupported provider value fail rather than default, so a key can
// never silently route to the wrong vendor.
func ProviderKeyFromRow(row backend.Row) (*ProviderKey, error) {
	k := &ProviderKey{
		ID:        row.GetString("id"),
		Name:      row.GetString("name"),
		Provider:  Provider(row.GetString("provider")),
		Secret:    row.GetString("secret"),
		CreatedAt: row.GetTime("created_at"),
	}
	if k.ID == "" {
		return nil, fmt.Errorf("preset: provider key row has no id")
	}
	if !k.Provider.IsValid() {
		return nil, fmt.Errorf("preset: provider key %s: invalid provider %q", k.ID, string(k.Provider))
	}
	return k, nil
}

// ToRow maps the credential back to wire columns.
func (k *ProviderKey) ToRow() backend.Row {
	row := backend.Row{
		"name":     k.Name,
		"provider": string(k.Provider),
		"secret":   k.Secret,
	}
	if k.ID != "" {
		row["id"] = k.ID
	}
	return row
}

// Masked returns the secret in display form.
func (k *ProviderKey) Masked() string { return MaskSecret(k.Secret) }

// MaskSecret hides all but the edges of a credential for display.
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:3] + "..." + s[len(s)-4:]
}
