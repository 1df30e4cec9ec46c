// Package kv is the console's local cache store: a small key-value
// interface with path-shaped keys over either BadgerDB (the on-disk
// per-context cache) or a plain map (tests and memory:// contexts).
//
// Keys are segment slices such as Key{"tools", presetID}, joined with
// ':' on the way to storage. Values are opaque bytes; typed encoding
// lives a layer up in uicache.
package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrNotFound reports a key with no stored value.
var ErrNotFound = errors.New("kv: not found")

// separator joins key segments in the encoded form.
const separator byte = ':'

// Key is a storage path as a slice of segments. Segments must not
// contain ':'; encoding such a key panics rather than corrupt the
// namespace layout.
type Key []string

// String returns the display form, segments joined with ':'.
func (k Key) String() string {
	return strings.Join(k, ":")
}

// Entry is one stored pair, as yielded by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is the cache storage contract. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores value at key, replacing any previous value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes key. Absent keys are not an error.
	Delete(ctx context.Context, key Key) error

	// List yields every entry under prefix in encoded-key order. An
	// empty prefix walks the whole store.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// BatchDelete removes the given keys in one write.
	BatchDelete(ctx context.Context, keys []Key) error

	// Close releases the store.
	Close() error
}

func encodeKey(k Key) []byte {
	n := 0
	for i, seg := range k {
		if strings.IndexByte(seg, separator) >= 0 {
			panic(fmt.Sprintf("kv: key segment %q contains separator %q", seg, separator))
		}
		if i > 0 {
			n++
		}
		n += len(seg)
	}
	buf := make([]byte, 0, n)
	for i, seg := range k {
		if i > 0 {
			buf = append(buf, separator)
		}
		buf = append(buf, seg...)
	}
	return buf
}

func decodeKey(b []byte) Key {
	return Key(strings.Split(string(b), string(separator)))
}

// prefixScan returns the byte prefix a List scan matches against. The
// trailing separator keeps Key{"ab"} from matching "abc:x". An empty
// prefix scans everything.
func prefixScan(prefix Key) []byte {
	p := encodeKey(prefix)
	if len(p) == 0 {
		return nil
	}
	return append(p, separator)
}
