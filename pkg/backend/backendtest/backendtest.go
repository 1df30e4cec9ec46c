// Package backendtest runs an in-memory stand-in for the voxdeck
// backend in tests.
//
// The server implements the row CRUD and function call surface the
// real backend exposes, keeps its tables in memory, and lets tests
// seed rows, inspect what was persisted, register function handlers,
// and inject failures. It accepts any credentials.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voxdeck/voxdeck/pkg/backend"
)

// AnonKey is the publishable key the test client is constructed with.
const AnonKey = "pk_test_anon"

// FuncHandler handles one named function call. Returning a non-nil
// *backend.Error produces the error envelope.
type FuncHandler func(params map[string]any) (any, *backend.Error)

// Server is an in-memory backend.
type Server struct {
	URL string

	hs *httptest.Server

	mu       sync.Mutex
	tables   map[string][]backend.Row
	fns      map[string]FuncHandler
	calls    map[string]int
	failNext map[string][]int
	nextID   int
}

// New starts a Server and registers its shutdown with t.Cleanup.
func New(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		tables:   make(map[string][]backend.Row),
		fns:      make(map[string]FuncHandler),
		calls:    make(map[string]int),
		failNext: make(map[string][]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/token", s.handleToken)
	mux.HandleFunc("POST /v1/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/v1/tables/{collection}/rows", s.handleRows)
	mux.HandleFunc("POST /v1/functions/{name}", s.handleFunction)

	s.hs = httptest.NewServer(mux)
	s.URL = s.hs.URL
	t.Cleanup(s.hs.Close)
	return s
}

// Client returns a backend client pointed at the server.
func (s *Server) Client() *backend.Client {
	return backend.NewClient(s.URL, AnonKey)
}

// Seed stores rows in a collection, minting ids for rows without one.
func (s *Server) Seed(collection string, rows ...backend.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		r := cloneRow(row)
		if r.GetString("id") == "" {
			s.nextID++
			r["id"] = fmt.Sprintf("row-%d", s.nextID)
		}
		s.tables[collection] = append(s.tables[collection], r)
	}
}

// Rows returns a copy of a collection's rows in insertion order.
func (s *Server) Rows(collection string) []backend.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]backend.Row, 0, len(s.tables[collection]))
	for _, row := range s.tables[collection] {
		out = append(out, cloneRow(row))
	}
	return out
}

// HandleFunc registers a handler for a named function. Calls to
// unregistered functions return a function_not_found error envelope.
func (s *Server) HandleFunc(name string, fn FuncHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns[name] = fn
}

// FailNext makes the next table request matching method and
// collection fail with the given HTTP status. Stacking calls queues
// consecutive failures.
func (s *Server) FailNext(method, collection string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + collection
	s.failNext[key] = append(s.failNext[key], status)
}

// Calls returns how many table requests matched method and
// collection, injected failures included.
func (s *Server) Calls(method, collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+collection]
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email        string `json:"email"`
		RefreshToken string `json:"refresh_token"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	email := body.Email
	if email == "" {
		email = "user@test.local"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  "test-access-token",
		"refresh_token": "test-refresh-token",
		"token_type":    "bearer",
		"expires_at":    time.Now().Add(time.Hour).Unix(),
		"user":          map[string]any{"id": "u-test", "email": email},
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  "test-access-token",
		"refresh_token": "test-refresh-token",
		"token_type":    "bearer",
		"expires_at":    time.Now().Add(time.Hour).Unix(),
		"user":          map[string]any{"id": "u-new", "email": body.Email},
	})
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")

	s.mu.Lock()
	key := r.Method + " " + collection
	s.calls[key]++
	if statuses := s.failNext[key]; len(statuses) > 0 {
		status := statuses[0]
		s.failNext[key] = statuses[1:]
		s.mu.Unlock()
		writeJSON(w, status, map[string]any{"error": map[string]any{
			"code": "internal", "message": "injected failure",
		}})
		return
	}
	s.mu.Unlock()

	filter, err := parseWhere(r.URL.Query().Get("where"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{
			"code": "bad_request", "message": err.Error(),
		}})
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.listRows(w, r, collection, filter)
	case http.MethodPost:
		s.insertRows(w, r, collection)
	case http.MethodPut:
		s.upsertRows(w, r, collection)
	case http.MethodPatch:
		s.updateRows(w, r, collection, filter)
	case http.MethodDelete:
		s.deleteRows(w, collection, filter)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": map[string]any{
			"code": "bad_request", "message": "unsupported method",
		}})
	}
}

func (s *Server) listRows(w http.ResponseWriter, r *http.Request, collection string, filter map[string]any) {
	s.mu.Lock()
	var matched []backend.Row
	for _, row := range s.tables[collection] {
		if matchRow(row, filter) {
			matched = append(matched, cloneRow(row))
		}
	}
	s.mu.Unlock()

	if orderBy := r.URL.Query().Get("order"); orderBy != "" {
		desc := r.URL.Query().Get("dir") == "desc"
		slices.SortStableFunc(matched, func(a, b backend.Row) int {
			c := compareValues(a[orderBy], b[orderBy])
			if desc {
				return -c
			}
			return c
		})
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit >= 0 && limit < len(matched) {
			matched = matched[:limit]
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": matched})
}

func (s *Server) insertRows(w http.ResponseWriter, r *http.Request, collection string) {
	var body struct {
		Rows []backend.Row `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{
			"code": "bad_request", "message": err.Error(),
		}})
		return
	}
	s.mu.Lock()
	inserted := make([]backend.Row, 0, len(body.Rows))
	for _, row := range body.Rows {
		stored := cloneRow(row)
		if stored.GetString("id") == "" {
			s.nextID++
			stored["id"] = fmt.Sprintf("row-%d", s.nextID)
		}
		s.tables[collection] = append(s.tables[collection], stored)
		inserted = append(inserted, cloneRow(stored))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"rows": inserted})
}

func (s *Server) upsertRows(w http.ResponseWriter, r *http.Request, collection string) {
	var body struct {
		Rows []backend.Row `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{
			"code": "bad_request", "message": err.Error(),
		}})
		return
	}
	s.mu.Lock()
	result := make([]backend.Row, 0, len(body.Rows))
	for _, row := range body.Rows {
		stored := cloneRow(row)
		id := stored.GetString("id")
		if id == "" {
			s.nextID++
			stored["id"] = fmt.Sprintf("row-%d", s.nextID)
		}
		replaced := false
		for i, existing := range s.tables[collection] {
			if existing.GetString("id") == stored.GetString("id") {
				s.tables[collection][i] = stored
				replaced = true
				break
			}
		}
		if !replaced {
			s.tables[collection] = append(s.tables[collection], stored)
		}
		result = append(result, cloneRow(stored))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"rows": result})
}

func (s *Server) updateRows(w http.ResponseWriter, r *http.Request, collection string, filter map[string]any) {
	var body struct {
		Set map[string]any `json:"set"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{
			"code": "bad_request", "message": err.Error(),
		}})
		return
	}
	s.mu.Lock()
	count := 0
	for _, row := range s.tables[collection] {
		if matchRow(row, filter) {
			for k, v := range body.Set {
				row[k] = v
			}
			count++
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (s *Server) deleteRows(w http.ResponseWriter, collection string, filter map[string]any) {
	s.mu.Lock()
	var kept []backend.Row
	count := 0
	for _, row := range s.tables[collection] {
		if matchRow(row, filter) {
			count++
			continue
		}
		kept = append(kept, row)
	}
	s.tables[collection] = kept
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (s *Server) handleFunction(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	s.mu.Lock()
	s.calls["FN "+name]++
	fn := s.fns[name]
	s.mu.Unlock()

	if fn == nil {
		writeJSON(w, http.StatusOK, map[string]any{"error": map[string]any{
			"code":    "function_not_found",
			"message": "no handler registered for " + name,
		}})
		return
	}

	var params map[string]any
	json.NewDecoder(r.Body).Decode(&params)
	result, fnErr := fn(params)
	if fnErr != nil {
		writeJSON(w, http.StatusOK, map[string]any{"error": fnErr})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

// FnCalls returns how many times a named function was invoked.
func (s *Server) FnCalls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls["FN "+name]
}

func parseWhere(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var filter map[string]any
	if err := json.Unmarshal([]byte(raw), &filter); err != nil {
		return nil, fmt.Errorf("invalid where filter: %w", err)
	}
	return filter, nil
}

// matchRow applies equality semantics per key, with slice values
// meaning "any of".
func matchRow(row backend.Row, filter map[string]any) bool {
	for key, want := range filter {
		got := row[key]
		if list, ok := want.([]any); ok {
			found := false
			for _, w := range list {
				if valuesEqual(got, w) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if na, aok := toFloat(a); aok {
		if nb, bok := toFloat(b); bok {
			return na == nb
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func compareValues(a, b any) int {
	if na, aok := toFloat(a); aok {
		if nb, bok := toFloat(b); bok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// cloneRow deep-copies a row through JSON so callers and the server
// never alias nested maps.
func cloneRow(row backend.Row) backend.Row {
	data, err := json.Marshal(row)
	if err != nil {
		panic(fmt.Sprintf("backendtest: row not JSON-encodable: %v", err))
	}
	var out backend.Row
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("backendtest: row round-trip: %v", err))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
