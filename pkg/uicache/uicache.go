// Package uicache provides a typed local cache over a kv.Store.
//
// The console uses it to keep per-context state that should survive
// process restarts but never needs to reach the backend: the signed-in
// session, last-known tool snapshots per preset, and similar UI-local
// values. Values are msgpack-encoded.
//
// A cache miss is not an error. Callers that treat the cache as a warm
// start (show cached data, then refresh from the backend) check the
// returned ok flag instead of an error value.
package uicache

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/voxdeck/voxdeck/pkg/kv"
)

// Cache wraps a kv.Store with msgpack value encoding.
type Cache struct {
	store kv.Store
}

// New returns a Cache backed by store. The cache does not take
// ownership of the store; closing it is the caller's job.
func New(store kv.Store) *Cache {
	return &Cache{store: store}
}

// Get decodes the value at key into a T. The second return is false
// when the key is absent. Decode failures are returned as errors so a
// corrupt entry is visible rather than silently treated as a miss.
func Get[T any](ctx context.Context, c *Cache, key kv.Key) (T, bool, error) {
	var zero T
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	var v T
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return zero, false, fmt.Errorf("uicache: decode %s: %w", key, err)
	}
	return v, true, nil
}

// Put encodes v and stores it at key, replacing any previous value.
func Put[T any](ctx context.Context, c *Cache, key kv.Key, v T) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("uicache: encode %s: %w", key, err)
	}
	return c.store.Set(ctx, key, data)
}

// Delete removes the entry at key. Deleting an absent key is not an
// error.
func (c *Cache) Delete(ctx context.Context, key kv.Key) error {
	return c.store.Delete(ctx, key)
}

// DeletePrefix removes every entry whose key starts with prefix. It
// returns the number of entries removed.
func (c *Cache) DeletePrefix(ctx context.Context, prefix kv.Key) (int, error) {
	var keys []kv.Key
	for entry, err := range c.store.List(ctx, prefix) {
		if err != nil {
			return 0, err
		}
		keys = append(keys, entry.Key)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := c.store.BatchDelete(ctx, keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}
