package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/voxdeck/voxdeck/pkg/backend"
)

const testAnonKey = "pk_test_0001"

func newTestClient(t *testing.T, handler http.Handler) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, testAnonKey)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestSignInInstallsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Apikey"); got != testAnonKey {
			t.Errorf("apikey header = %q, want %q", got, testAnonKey)
		}
		if got := r.URL.Query().Get("grant_type"); got != "password" {
			t.Errorf("grant_type = %q, want password", got)
		}
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Email != "op@example.com" {
			t.Errorf("email = %q", body.Email)
		}
		writeJSON(w, 200, map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"token_type":    "bearer",
			"expires_at":    4102444800,
			"user":          map[string]any{"id": "u1", "email": "op@example.com"},
		})
	})
	mux.HandleFunc("GET /v1/tables/presets/rows", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			t.Errorf("Authorization = %q, want Bearer at-1", got)
		}
		writeJSON(w, 200, map[string]any{"rows": []any{}})
	})

	client := newTestClient(t, mux)
	ctx := context.Background()

	session, err := client.Auth.SignIn(ctx, "op@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if session.User.ID != "u1" {
		t.Errorf("User.ID = %q, want u1", session.User.ID)
	}
	if session.Expired() {
		t.Error("fresh session should not be expired")
	}
	if client.Session() == nil {
		t.Fatal("SignIn should install the session on the client")
	}

	// Subsequent calls must carry the session bearer token.
	if _, err := client.Rows.List(ctx, backend.CollectionPresets, backend.Query{}); err != nil {
		t.Fatalf("List: %v", err)
	}
}

func TestAnonBearerWithoutSession(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer "+testAnonKey {
			t.Errorf("Authorization = %q, want anon bearer", got)
		}
		writeJSON(w, 200, map[string]any{"rows": []any{}})
	}))

	if _, err := client.Rows.List(context.Background(), "presets", backend.Query{}); err != nil {
		t.Fatalf("List: %v", err)
	}
}

func TestRowsListFilterEncoding(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var filter map[string]any
		if err := json.Unmarshal([]byte(r.URL.Query().Get("where")), &filter); err != nil {
			t.Errorf("where is not JSON: %v", err)
		}
		if filter["preset_id"] != "p1" {
			t.Errorf("filter preset_id = %v, want p1", filter["preset_id"])
		}
		if r.URL.Query().Get("order") != "created_at" {
			t.Errorf("order = %q", r.URL.Query().Get("order"))
		}
		if r.URL.Query().Get("dir") != "desc" {
			t.Errorf("dir = %q", r.URL.Query().Get("dir"))
		}
		if r.URL.Query().Get("limit") != "10" {
			t.Errorf("limit = %q", r.URL.Query().Get("limit"))
		}
		writeJSON(w, 200, map[string]any{"rows": []map[string]any{
			{"id": "s1", "preset_id": "p1"},
		}})
	}))

	rows, err := client.Rows.List(context.Background(), "chat_sessions", backend.Query{
		Filter:  backend.Filter{"preset_id": "p1"},
		OrderBy: "created_at",
		Desc:    true,
		Limit:   10,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].GetString("id") != "s1" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestRowsInsertReturnsAssigned(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req struct {
			Rows []map[string]any `json:"rows"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for i, row := range req.Rows {
			row["id"] = "gen-" + string(rune('a'+i))
		}
		writeJSON(w, 201, map[string]any{"rows": req.Rows})
	}))

	rows, err := client.Rows.Insert(context.Background(), "presets", []backend.Row{
		{"name": "support"},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if rows[0].GetString("id") != "gen-a" {
		t.Errorf("id = %q, want gen-a", rows[0].GetString("id"))
	}
}

func TestRowsDeleteRequiresFilter(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the server")
	}))

	_, err := client.Rows.Delete(context.Background(), "tool_selections", nil)
	if err == nil {
		t.Fatal("expected error for empty filter")
	}
}

func TestRowsDeleteCount(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		if r.URL.Query().Get("where") == "" {
			t.Error("where filter missing")
		}
		writeJSON(w, 200, map[string]any{"count": 3})
	}))

	n, err := client.Rows.Delete(context.Background(), "tool_selections", backend.Filter{"preset_id": "p1"})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestErrorParsing(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, map[string]any{"error": map[string]any{
			"code":    "not_found",
			"message": "no such collection",
			"hint":    "check the collection name",
		}})
	}))

	_, err := client.Rows.List(context.Background(), "nope", backend.Query{})
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := backend.AsError(err)
	if !ok {
		t.Fatalf("expected *backend.Error, got %T: %v", err, err)
	}
	if !apiErr.IsNotFound() {
		t.Errorf("IsNotFound = false for %v", apiErr)
	}
	if apiErr.Hint != "check the collection name" {
		t.Errorf("Hint = %q", apiErr.Hint)
	}
	if apiErr.HTTPStatus != 404 {
		t.Errorf("HTTPStatus = %d, want 404", apiErr.HTTPStatus)
	}
}

func TestErrorParsingPlainBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))

	_, err := client.Rows.List(context.Background(), "presets", backend.Query{})
	apiErr, ok := backend.AsError(err)
	if !ok {
		t.Fatalf("expected *backend.Error, got %v", err)
	}
	if !apiErr.IsRateLimit() {
		t.Errorf("IsRateLimit = false for %v", apiErr)
	}
	if apiErr.Message != "slow down" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestNoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, 500, map[string]any{"error": map[string]any{
			"code": "internal", "message": "boom",
		}})
	}))

	_, err := client.Rows.List(context.Background(), "presets", backend.Query{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("server saw %d calls, want exactly 1 (no retries)", got)
	}
}

func TestFunctionInvokeResult(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/functions/rag-service" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var params map[string]any
		json.NewDecoder(r.Body).Decode(&params)
		if params["query"] != "return policy" {
			t.Errorf("query param = %v", params["query"])
		}
		writeJSON(w, 200, map[string]any{"result": map[string]any{
			"hits": []map[string]any{{"document_id": "d1", "score": 0.92}},
		}})
	}))

	var result struct {
		Hits []struct {
			DocumentID string  `json:"document_id"`
			Score      float64 `json:"score"`
		} `json:"hits"`
	}
	err := client.Functions.Invoke(context.Background(), backend.FnRAGService,
		map[string]any{"query": "return policy"}, &result)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(result.Hits) != 1 || result.Hits[0].DocumentID != "d1" {
		t.Fatalf("result = %+v", result)
	}
}

func TestFunctionEnvelopeError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Function failures arrive with HTTP 200 and an error envelope.
		writeJSON(w, 200, map[string]any{"error": map[string]any{
			"code":    "space_not_ready",
			"message": "embedding in progress",
		}})
	}))

	err := client.Functions.Invoke(context.Background(), backend.FnEmbedService, nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := backend.AsError(err)
	if !ok {
		t.Fatalf("expected *backend.Error, got %T", err)
	}
	if apiErr.Code != "space_not_ready" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if apiErr.HTTPStatus != 0 {
		t.Errorf("HTTPStatus = %d, want 0 for envelope errors", apiErr.HTTPStatus)
	}
}

func TestSignOutClearsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"access_token": "at-9", "refresh_token": "rt-9"})
	})
	mux.HandleFunc("POST /v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux)
	ctx := context.Background()

	if _, err := client.Auth.SignIn(ctx, "op@example.com", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := client.Auth.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if client.Session() != nil {
		t.Error("session should be cleared after SignOut")
	}

	// SignOut without a session is a no-op.
	if err := client.Auth.SignOut(ctx); err != nil {
		t.Fatalf("second SignOut: %v", err)
	}
}

func TestRefreshWithoutSession(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the server")
	}))

	_, err := client.Auth.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected error without a session")
	}
	if _, ok := backend.AsError(err); ok {
		t.Error("local precondition failures should not be *backend.Error")
	}
}
