// Package storage is the console's upload store: where knowledge
// documents are staged before the platform's embedding pipeline takes
// over. Files are addressed by forward-slash paths relative to a
// store root. The local implementation backs file:// upload contexts;
// the S3 one backs s3:// contexts, MinIO and R2 included.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// FileStore is the storage contract uploads go through.
// Implementations are safe for concurrent use.
type FileStore interface {
	// Read opens the file at path. The caller closes the reader. A
	// missing file satisfies errors.Is(err, fs.ErrNotExist).
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write stores the contents of r at path, replacing any previous
	// file and creating parents as needed.
	Write(ctx context.Context, path string, r io.Reader) error

	// Delete removes the file at path. Absent files are not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether path names a stored file.
	Exists(ctx context.Context, path string) (bool, error)
}

// cleanPath validates a store path: non-empty, relative, already in
// clean form, and never escaping the root.
func cleanPath(p string) (string, error) {
	if p == "" || path.IsAbs(p) || p != path.Clean(p) || strings.HasPrefix(p, "..") {
		return "", fmt.Errorf("storage: invalid path %q", p)
	}
	return p, nil
}
