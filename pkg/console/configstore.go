// Package console is the operator-side runtime. ConfigStore manages
// named platform contexts as plain files; Console wires a context's
// platform client, local cache, and upload store into the document
// surface the CLI speaks (apply, get, list, delete) plus the domain
// services behind it.
package console

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

// ErrNoContext is returned when no context has been selected yet.
var ErrNoContext = errors.New("no context selected; run 'voxdeck ctx use <name>'")

// ConfigStore holds named platform contexts on disk. A context names
// one deployment (staging, prod, a local stack) together with the
// local stores the console uses for it. Contexts are directories under
// <dir>/contexts; the selection lives in <dir>/current-context.
//
// The store opens no network connections, and every method works on
// independent files, so concurrent processes stay consistent.
type ConfigStore struct {
	dir string
}

// OpenConfigStore opens the store under the user config directory:
// ~/.config/voxdeck on Linux, the platform equivalent elsewhere.
func OpenConfigStore() (*ConfigStore, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locate config dir: %w", err)
	}
	return OpenConfigStoreAt(filepath.Join(base, "voxdeck"))
}

// OpenConfigStoreAt opens the store rooted at dir, creating it if
// needed.
func OpenConfigStoreAt(dir string) (*ConfigStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	return &ConfigStore{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *ConfigStore) Dir() string { return s.dir }

// CtxConfig holds the platform and local-store configuration for a
// context.
type CtxConfig struct {
	// API is the platform base URL, e.g. https://api.voxdeck.dev.
	API string `yaml:"api,omitempty" json:"api,omitempty"`
	// AnonKey is the publishable key sent on every request.
	AnonKey string `yaml:"anon_key,omitempty" json:"anon_key,omitempty"`
	// EmbedHost is the base URL baked into widget embed snippets.
	// Defaults to API when empty.
	EmbedHost string `yaml:"embed_host,omitempty" json:"embed_host,omitempty"`
	// Cache is the local cache store URL (badger:///path or memory://).
	// Empty means a badger store inside the context directory.
	Cache string `yaml:"cache,omitempty" json:"cache,omitempty"`
	// Uploads is the document upload store URL (file:///dir or
	// s3://bucket/prefix). Empty disables knowledge imports.
	Uploads string `yaml:"uploads,omitempty" json:"uploads,omitempty"`
	// Timeout is the platform HTTP timeout as a Go duration string.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// slot maps a config key to the field it sets.
func (c *CtxConfig) slot(key string) (*string, bool) {
	switch key {
	case "api":
		return &c.API, true
	case "anon_key":
		return &c.AnonKey, true
	case "embed_host":
		return &c.EmbedHost, true
	case "cache":
		return &c.Cache, true
	case "uploads":
		return &c.Uploads, true
	case "timeout":
		return &c.Timeout, true
	}
	return nil, false
}

var ctxConfigKeys = map[string]string{
	"api":        "Platform API base URL",
	"anon_key":   "Publishable API key",
	"embed_host": "Widget embed host (defaults to api)",
	"cache":      "Local cache store (badger:///path or memory://)",
	"uploads":    "Upload store (file:///dir or s3://bucket/prefix)",
	"timeout":    "Platform HTTP timeout (Go duration, e.g. 45s)",
}

// CtxInfo is one row of 'ctx list' output.
type CtxInfo struct {
	Name    string
	Current bool
}

// ConfigKeyInfo is one row of 'ctx config list' output.
type ConfigKeyInfo struct {
	Key         string
	Description string
}

func (s *ConfigStore) contextDir(name string) string {
	return filepath.Join(s.dir, "contexts", name)
}

func (s *ConfigStore) contextConfigFile(name string) string {
	return filepath.Join(s.contextDir(name), "ctx.yaml")
}

func (s *ConfigStore) currentFile() string {
	return filepath.Join(s.dir, "current-context")
}

// CtxAdd creates an empty context. Mkdir makes duplicate detection
// race-free across processes.
func (s *ConfigStore) CtxAdd(name string) error {
	if err := checkContextName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(s.dir, "contexts"), 0755); err != nil {
		return fmt.Errorf("create contexts dir: %w", err)
	}
	if err := os.Mkdir(s.contextDir(name), 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("context %q already exists", name)
		}
		return fmt.Errorf("create context %q: %w", name, err)
	}
	return nil
}

// CtxRemove deletes a context and everything under it, including any
// cache store living in the context directory. The selected context
// cannot be removed.
func (s *ConfigStore) CtxRemove(name string) error {
	if err := checkContextName(name); err != nil {
		return err
	}
	if cur, _ := s.CtxCurrent(); cur == name {
		return fmt.Errorf("context %q is selected; switch away before removing it", name)
	}
	dir := s.contextDir(name)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("context %q does not exist", name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove context %q: %w", name, err)
	}
	return nil
}

// CtxUse selects name as the current context.
func (s *ConfigStore) CtxUse(name string) error {
	if err := checkContextName(name); err != nil {
		return err
	}
	if _, err := os.Stat(s.contextDir(name)); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("context %q does not exist", name)
	}
	return writePrivate(s.currentFile(), []byte(name+"\n"))
}

// CtxCurrent returns the selected context's name, or ErrNoContext.
func (s *ConfigStore) CtxCurrent() (string, error) {
	data, err := os.ReadFile(s.currentFile())
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoContext
	}
	if err != nil {
		return "", fmt.Errorf("read current context: %w", err)
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", ErrNoContext
	}
	return name, nil
}

// CtxList returns every context, marking the selected one. ReadDir
// returns sorted entries, so the listing is alphabetical.
func (s *ConfigStore) CtxList() ([]CtxInfo, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, "contexts"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	cur, _ := s.CtxCurrent()
	var infos []CtxInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		infos = append(infos, CtxInfo{Name: e.Name(), Current: e.Name() == cur})
	}
	return infos, nil
}

// CtxShow loads a context's config. An empty name means the selected
// context. A context that never saved a ctx.yaml shows as all
// defaults.
func (s *ConfigStore) CtxShow(name string) (string, *CtxConfig, error) {
	if name == "" {
		cur, err := s.CtxCurrent()
		if err != nil {
			return "", nil, err
		}
		name = cur
	}
	data, err := os.ReadFile(s.contextConfigFile(name))
	if errors.Is(err, fs.ErrNotExist) {
		return name, &CtxConfig{}, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("read context %q config: %w", name, err)
	}
	var cfg CtxConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", nil, fmt.Errorf("context %q config: %w", name, err)
	}
	return name, &cfg, nil
}

// CtxConfigSet writes one config key on the selected context.
func (s *ConfigStore) CtxConfigSet(key, value string) error {
	name, err := s.CtxCurrent()
	if err != nil {
		return err
	}
	_, cfg, err := s.CtxShow(name)
	if err != nil {
		return err
	}
	slot, ok := cfg.slot(key)
	if !ok {
		return fmt.Errorf("unknown config key %q (valid: %s)", key, configKeyList())
	}
	*slot = value
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode context config: %w", err)
	}
	return writePrivate(s.contextConfigFile(name), data)
}

// CtxConfigList returns the supported config keys with descriptions.
func (s *ConfigStore) CtxConfigList() []ConfigKeyInfo {
	keys := make([]ConfigKeyInfo, 0, len(ctxConfigKeys))
	for k, desc := range ctxConfigKeys {
		keys = append(keys, ConfigKeyInfo{Key: k, Description: desc})
	}
	slices.SortFunc(keys, func(a, b ConfigKeyInfo) int { return strings.Compare(a.Key, b.Key) })
	return keys
}

// Context names become directory names, so path metacharacters and
// dotfiles are rejected up front.
func checkContextName(name string) error {
	switch {
	case name == "":
		return errors.New("context name is empty")
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("context name %q starts with a dot", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("context name %q contains a path separator", name)
	}
	return nil
}

// writePrivate writes a file readable only by the owner; context
// configs carry keys.
func writePrivate(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func configKeyList() string {
	return strings.Join(slices.Sorted(maps.Keys(ctxConfigKeys)), ", ")
}
