package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/voxdeck/voxdeck/pkg/jsontime"
)

// Row is a single record in a platform collection. Columns are dynamically
// typed; use the Get helpers for tolerant access.
type Row map[string]any

// GetString returns the named column as a string, or "" if absent or not
// a string.
func (r Row) GetString(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// GetBool returns the named column as a bool, or the default for absent
// or non-bool values.
func (r Row) GetBool(key string, def bool) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return def
}

// GetFloat returns the named column as a float64, tolerating numeric
// strings. Returns 0 if the value cannot be interpreted.
func (r Row) GetFloat(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

// GetInt returns the named column as an int64, truncating floats and
// tolerating numeric strings. Returns 0 if the value cannot be interpreted.
func (r Row) GetInt(key string) int64 {
	switch v := r[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// GetTime returns the named column as a time, accepting RFC 3339 strings
// and Unix millisecond numbers. Returns the zero time otherwise.
func (r Row) GetTime(key string) time.Time {
	switch v := r[key].(type) {
	case string:
		return jsontime.ParseAny(v)
	case float64:
		return time.UnixMilli(int64(v))
	case int64:
		return time.UnixMilli(v)
	}
	return time.Time{}
}

// Filter selects rows by exact column match. All entries must match
// (logical AND). Values may be scalars or, for IN-style matches, slices.
type Filter map[string]any

// Query shapes a List call.
type Query struct {
	// Filter restricts the result to matching rows. Nil selects all.
	Filter Filter

	// OrderBy names the column to sort by. Empty means platform order.
	OrderBy string

	// Desc reverses the sort direction.
	Desc bool

	// Limit caps the number of returned rows. Zero means no limit.
	Limit int
}

// RowsService provides CRUD over platform collections.
type RowsService struct {
	client *Client
}

func newRowsService(c *Client) *RowsService {
	return &RowsService{client: c}
}

func rowsPath(collection string) string {
	return "/v1/tables/" + url.PathEscape(collection) + "/rows"
}

func encodeQuery(q Query) (url.Values, error) {
	values := url.Values{}
	if len(q.Filter) > 0 {
		data, err := json.Marshal(q.Filter)
		if err != nil {
			return nil, fmt.Errorf("backend: encode filter: %w", err)
		}
		values.Set("where", string(data))
	}
	if q.OrderBy != "" {
		values.Set("order", q.OrderBy)
		if q.Desc {
			values.Set("dir", "desc")
		}
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return values, nil
}

// List returns the rows of a collection matching the query.
func (s *RowsService) List(ctx context.Context, collection string, q Query) ([]Row, error) {
	values, err := encodeQuery(q)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Rows []Row `json:"rows"`
	}
	if err := s.client.http.request(ctx, "GET", rowsPath(collection), values, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

// Insert adds rows to a collection and returns them with platform-assigned
// columns filled in.
func (s *RowsService) Insert(ctx context.Context, collection string, rows []Row) ([]Row, error) {
	req := map[string]any{"rows": rows}
	var resp struct {
		Rows []Row `json:"rows"`
	}
	if err := s.client.http.request(ctx, "POST", rowsPath(collection), nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

// Upsert inserts rows, replacing existing rows with the same id.
func (s *RowsService) Upsert(ctx context.Context, collection string, rows []Row) ([]Row, error) {
	req := map[string]any{"rows": rows}
	var resp struct {
		Rows []Row `json:"rows"`
	}
	if err := s.client.http.request(ctx, "PUT", rowsPath(collection), nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

// Update patches all rows matching the filter with the given column values
// and returns the number of rows changed.
func (s *RowsService) Update(ctx context.Context, collection string, filter Filter, set Row) (int, error) {
	values, err := encodeQuery(Query{Filter: filter})
	if err != nil {
		return 0, err
	}
	req := map[string]any{"set": set}
	var resp struct {
		Count int `json:"count"`
	}
	if err := s.client.http.request(ctx, "PATCH", rowsPath(collection), values, req, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Delete removes all rows matching the filter and returns the number of
// rows removed. An empty filter is rejected to avoid wiping a collection
// by accident.
func (s *RowsService) Delete(ctx context.Context, collection string, filter Filter) (int, error) {
	if len(filter) == 0 {
		return 0, fmt.Errorf("backend: delete from %s requires a filter", collection)
	}
	values, err := encodeQuery(Query{Filter: filter})
	if err != nil {
		return 0, err
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := s.client.http.request(ctx, "DELETE", rowsPath(collection), values, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}
