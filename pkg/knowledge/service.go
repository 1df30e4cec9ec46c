package knowledge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/voxdeck/voxdeck/pkg/backend"
	"github.com/voxdeck/voxdeck/pkg/storage"
)

// ErrNotFound is returned when no space or document matches.
var ErrNotFound = errors.New("knowledge item not found")

// Imports above this size are rejected; the row API is not a blob
// store.
const maxImportBytes = 8 << 20

// Service manages spaces and documents and fronts the platform's
// retrieval functions.
type Service struct {
	client *backend.Client
	files  storage.FileStore
}

// NewService creates a knowledge service. files may be nil when the
// caller never imports.
func NewService(client *backend.Client, files storage.FileStore) *Service {
	return &Service{client: client, files: files}
}

// Spaces lists all spaces, newest first.
func (s *Service) Spaces(ctx context.Context) ([]*Space, error) {
	rows, err := s.client.Rows.List(ctx, backend.CollectionSpaces, backend.Query{
		OrderBy: "created_at",
		Desc:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: list spaces: %w", err)
	}
	spaces := make([]*Space, 0, len(rows))
	for _, row := range rows {
		sp, err := SpaceFromRow(row)
		if err != nil {
			continue
		}
		spaces = append(spaces, sp)
	}
	return spaces, nil
}

// Space returns one space by id.
func (s *Service) Space(ctx context.Context, id string) (*Space, error) {
	rows, err := s.client.Rows.List(ctx, backend.CollectionSpaces, backend.Query{
		Filter: backend.Filter{"id": id},
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: get space: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return SpaceFromRow(rows[0])
}

// CreateSpace creates a space.
func (s *Service) CreateSpace(ctx context.Context, name, description string) (*Space, error) {
	if name == "" {
		return nil, fmt.Errorf("knowledge: space name is required")
	}
	row := backend.Row{
		"id":   uuid.NewString(),
		"name": name,
	}
	if description != "" {
		row["description"] = description
	}
	rows, err := s.client.Rows.Insert(ctx, backend.CollectionSpaces, []backend.Row{row})
	if err != nil {
		return nil, fmt.Errorf("knowledge: create space: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("knowledge: create space: platform returned no row")
	}
	return SpaceFromRow(rows[0])
}

// DeleteSpace removes a space and all of its documents.
func (s *Service) DeleteSpace(ctx context.Context, id string) error {
	count, err := s.client.Rows.Delete(ctx, backend.CollectionSpaces, backend.Filter{"id": id})
	if err != nil {
		return fmt.Errorf("knowledge: delete space %s: %w", id, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	if _, err := s.client.Rows.Delete(ctx, backend.CollectionDocuments, backend.Filter{"space_id": id}); err != nil {
		return fmt.Errorf("knowledge: delete documents of space %s: %w", id, err)
	}
	return nil
}

// Documents lists a space's documents, newest first.
func (s *Service) Documents(ctx context.Context, spaceID string) ([]*Document, error) {
	rows, err := s.client.Rows.List(ctx, backend.CollectionDocuments, backend.Query{
		Filter:  backend.Filter{"space_id": spaceID},
		OrderBy: "created_at",
		Desc:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: list documents: %w", err)
	}
	docs := make([]*Document, 0, len(rows))
	for _, row := range rows {
		d, err := DocumentFromRow(row)
		if err != nil {
			continue
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// DeleteDocument removes one document and, when its source names a
// staged file, the staged copy as well.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	rows, err := s.client.Rows.List(ctx, backend.CollectionDocuments, backend.Query{
		Filter: backend.Filter{"id": id},
		Limit:  1,
	})
	if err != nil {
		return fmt.Errorf("knowledge: delete document %s: %w", id, err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	source := rows[0].GetString("source")
	if _, err := s.client.Rows.Delete(ctx, backend.CollectionDocuments, backend.Filter{"id": id}); err != nil {
		return fmt.Errorf("knowledge: delete document %s: %w", id, err)
	}
	if s.files != nil && source != "" {
		// Best effort; a missing staged copy is already the goal state.
		_ = s.files.Delete(ctx, source)
	}
	return nil
}

// Upload copies a local file into the store's staging area for the
// space and registers it as a pending document. Unless overwrite is
// set, a path that is already staged is an error.
func (s *Service) Upload(ctx context.Context, spaceID, localPath string, overwrite bool) (*Document, error) {
	if s.files == nil {
		return nil, fmt.Errorf("knowledge: no file store configured (set uploads in ctx config)")
	}
	if spaceID == "" {
		return nil, fmt.Errorf("knowledge: upload requires a space id")
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open %s: %w", localPath, err)
	}
	defer f.Close()
	data, err := readCapped(f, localPath)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(localPath)
	staged := path.Join("spaces", spaceID, name)
	if !overwrite {
		ok, err := s.files.Exists(ctx, staged)
		if err != nil {
			return nil, fmt.Errorf("knowledge: stat %s: %w", staged, err)
		}
		if ok {
			return nil, fmt.Errorf("knowledge: %s is already staged; pass overwrite to replace it", staged)
		}
	}
	if err := s.files.Write(ctx, staged, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("knowledge: stage %s: %w", staged, err)
	}
	if overwrite {
		// A replaced file retires the rows describing the old bytes.
		if _, err := s.client.Rows.Delete(ctx, backend.CollectionDocuments, backend.Filter{"space_id": spaceID, "source": staged}); err != nil {
			return nil, fmt.Errorf("knowledge: replace %s: %w", staged, err)
		}
	}
	return s.register(ctx, spaceID, name, staged, data)
}

// Import registers a file that already lives in the store as a pending
// document. The platform's embedding pipeline picks pending documents
// up from there.
func (s *Service) Import(ctx context.Context, spaceID, srcPath string) (*Document, error) {
	if s.files == nil {
		return nil, fmt.Errorf("knowledge: no file store configured (set uploads in ctx config)")
	}
	if spaceID == "" {
		return nil, fmt.Errorf("knowledge: import requires a space id")
	}
	rc, err := s.files.Read(ctx, srcPath)
	if err != nil {
		return nil, fmt.Errorf("knowledge: read %s: %w", srcPath, err)
	}
	defer rc.Close()
	data, err := readCapped(rc, srcPath)
	if err != nil {
		return nil, err
	}
	return s.register(ctx, spaceID, path.Base(srcPath), srcPath, data)
}

// readCapped reads at most the import limit, rejecting larger files.
func readCapped(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("knowledge: read %s: %w", name, err)
	}
	if len(data) > maxImportBytes {
		return nil, fmt.Errorf("knowledge: %s exceeds the %d MiB import limit", name, maxImportBytes>>20)
	}
	return data, nil
}

// register inserts the document row that makes the platform see the
// file. Content rides along so chunking needs no second fetch.
func (s *Service) register(ctx context.Context, spaceID, name, source string, data []byte) (*Document, error) {
	row := backend.Row{
		"id":       uuid.NewString(),
		"space_id": spaceID,
		"name":     name,
		"source":   source,
		"content":  string(data),
		"status":   StatusPending,
		"bytes":    len(data),
	}
	rows, err := s.client.Rows.Insert(ctx, backend.CollectionDocuments, []backend.Row{row})
	if err != nil {
		return nil, fmt.Errorf("knowledge: register %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("knowledge: register %s: platform returned no row", name)
	}
	return DocumentFromRow(rows[0])
}

// Search runs a semantic query over one space.
func (s *Service) Search(ctx context.Context, spaceID, query string, limit int) ([]Hit, error) {
	if query == "" {
		return nil, fmt.Errorf("knowledge: search requires a query")
	}
	params := map[string]any{
		"space_id": spaceID,
		"query":    query,
	}
	if limit > 0 {
		params["limit"] = limit
	}
	var result struct {
		Hits []Hit `json:"hits"`
	}
	if err := s.client.Functions.Invoke(ctx, backend.FnRAGService, params, &result); err != nil {
		return nil, fmt.Errorf("knowledge: search: %w", err)
	}
	return result.Hits, nil
}

// Status reports the embedding pipeline state of a space.
func (s *Service) Status(ctx context.Context, spaceID string) (*EmbedStatus, error) {
	var status EmbedStatus
	err := s.client.Functions.Invoke(ctx, backend.FnEmbedService,
		map[string]any{"action": "status", "space_id": spaceID}, &status)
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed status: %w", err)
	}
	return &status, nil
}

// Reindex asks the platform to re-embed a space. It returns the number
// of documents queued.
func (s *Service) Reindex(ctx context.Context, spaceID string) (int, error) {
	var result struct {
		Queued int `json:"queued"`
	}
	err := s.client.Functions.Invoke(ctx, backend.FnEmbedService,
		map[string]any{"action": "reindex", "space_id": spaceID}, &result)
	if err != nil {
		return 0, fmt.Errorf("knowledge: reindex: %w", err)
	}
	return result.Queued, nil
}
