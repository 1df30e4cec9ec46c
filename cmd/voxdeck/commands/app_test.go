package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/voxdeck/voxdeck/pkg/backend"
	"github.com/voxdeck/voxdeck/pkg/backend/backendtest"
	"github.com/voxdeck/voxdeck/pkg/kv"
)

// setupBackend wires the command tree to a stub backend and a shared
// in-memory KV, on top of a fresh config dir with an active context.
func setupBackend(t *testing.T) (*backendtest.Server, func()) {
	t.Helper()
	setupTestEnv(t)
	runCmd(t, "ctx", "add", "test")
	runCmd(t, "ctx", "use", "test")

	srv := backendtest.New(t)
	testKVOverride = kv.NewMemory()
	testClientOverride = srv.Client()
	return srv, func() {
		testKVOverride = nil
		testClientOverride = nil
	}
}

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docs.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestApplyAndGet(t *testing.T) {
	_, cleanup := setupBackend(t)
	defer cleanup()

	path := writeTempYAML(t, `
kind: preset
name: support-bot
model: gpt-4o-mini
temperature: 0.7
`)
	stdout, stderr, code := runCmd(t, "apply", "-f", path)
	if code != 0 {
		t.Fatalf("apply failed: %s", stderr)
	}
	if !strings.Contains(stdout, "preset/support-bot created") {
		t.Fatalf("expected created line, got: %s", stdout)
	}

	stdout, stderr, code = runCmd(t, "get", "preset", "support-bot")
	if code != 0 {
		t.Fatalf("get failed: %s", stderr)
	}
	if !strings.Contains(stdout, "support-bot") || !strings.Contains(stdout, "gpt-4o-mini") {
		t.Fatalf("unexpected get output: %s", stdout)
	}
}

func TestApplyUpdatesExisting(t *testing.T) {
	_, cleanup := setupBackend(t)
	defer cleanup()

	path := writeTempYAML(t, "kind: space\nname: faq\n")
	runCmd(t, "apply", "-f", path)
	stdout, _, code := runCmd(t, "apply", "-f", path)
	if code != 0 {
		t.Fatalf("second apply failed, exit %d", code)
	}
	if !strings.Contains(stdout, "space/faq updated") {
		t.Fatalf("expected updated line, got: %s", stdout)
	}
}

func TestApplyBadDocumentFails(t *testing.T) {
	_, cleanup := setupBackend(t)
	defer cleanup()

	path := writeTempYAML(t, "kind: preset\nname: hot\ntemperature: 9\n")
	_, stderr, code := runCmd(t, "apply", "-f", path)
	if code == 0 {
		t.Fatal("expected non-zero exit for invalid temperature")
	}
	if !strings.Contains(stderr, "temperature") {
		t.Fatalf("expected temperature error, got: %s", stderr)
	}
}

func TestListPresets(t *testing.T) {
	srv, cleanup := setupBackend(t)
	defer cleanup()

	srv.Seed(backend.CollectionPresets,
		backend.Row{"id": "p1", "name": "alpha", "model": "gpt-4o-mini", "created_at": "2026-08-01T10:00:00Z"},
		backend.Row{"id": "p2", "name": "beta", "model": "gemini-2.0-flash", "created_at": "2026-08-02T10:00:00Z"},
	)

	stdout, stderr, code := runCmd(t, "list", "preset")
	if code != 0 {
		t.Fatalf("list failed: %s", stderr)
	}
	for _, want := range []string{"alpha", "beta", "model=gpt-4o-mini", "(2 items)"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output, got: %s", want, stdout)
		}
	}
}

func TestListNameFormat(t *testing.T) {
	srv, cleanup := setupBackend(t)
	defer cleanup()

	srv.Seed(backend.CollectionPresets, backend.Row{"id": "p1", "name": "alpha"})

	stdout, _, code := runCmd(t, "list", "preset", "--format", "name")
	if code != 0 {
		t.Fatalf("list failed, exit %d", code)
	}
	if strings.TrimSpace(stdout) != "preset/alpha" {
		t.Fatalf("expected bare full name, got: %q", stdout)
	}
}

func TestDeletePreset(t *testing.T) {
	srv, cleanup := setupBackend(t)
	defer cleanup()

	srv.Seed(backend.CollectionPresets, backend.Row{"id": "p1", "name": "alpha"})

	stdout, stderr, code := runCmd(t, "delete", "preset", "alpha")
	if code != 0 {
		t.Fatalf("delete failed: %s", stderr)
	}
	if !strings.Contains(stdout, "Deleted preset/alpha") {
		t.Fatalf("unexpected output: %s", stdout)
	}
	if got := len(srv.Rows(backend.CollectionPresets)); got != 0 {
		t.Fatalf("expected no preset rows left, got %d", got)
	}
}

func TestLoginAndWhoami(t *testing.T) {
	_, cleanup := setupBackend(t)
	defer cleanup()

	stdout, stderr, code := runCmd(t, "login", "op@example.com", "--password", "secret")
	if code != 0 {
		t.Fatalf("login failed: %s", stderr)
	}
	if !strings.Contains(stdout, "Signed in as op@example.com") {
		t.Fatalf("unexpected login output: %s", stdout)
	}

	stdout, _, code = runCmd(t, "whoami")
	if code != 0 {
		t.Fatalf("whoami failed, exit %d", code)
	}
	if !strings.Contains(stdout, "op@example.com") {
		t.Fatalf("expected email, got: %s", stdout)
	}
}

func TestLoginMissingPassword(t *testing.T) {
	_, cleanup := setupBackend(t)
	defer cleanup()

	_, stderr, code := runCmd(t, "login", "op@example.com")
	if code == 0 {
		t.Fatal("expected non-zero exit without password")
	}
	if !strings.Contains(stderr, "password required") {
		t.Fatalf("expected password error, got: %s", stderr)
	}
}

func TestWhoamiSignedOut(t *testing.T) {
	_, cleanup := setupBackend(t)
	defer cleanup()

	_, stderr, code := runCmd(t, "whoami")
	if code == 0 {
		t.Fatal("expected non-zero exit when signed out")
	}
	if !strings.Contains(stderr, "not signed in") {
		t.Fatalf("expected 'not signed in', got: %s", stderr)
	}
}

func TestInvite(t *testing.T) {
	srv, cleanup := setupBackend(t)
	defer cleanup()

	srv.HandleFunc(backend.FnInviteUser, func(params map[string]any) (any, *backend.Error) {
		return map[string]any{"ok": true}, nil
	})

	stdout, stderr, code := runCmd(t, "invite", "new@example.com", "--role", "admin")
	if code != 0 {
		t.Fatalf("invite failed: %s", stderr)
	}
	if !strings.Contains(stdout, "Invited new@example.com") {
		t.Fatalf("unexpected output: %s", stdout)
	}
	if srv.FnCalls(backend.FnInviteUser) != 1 {
		t.Fatal("expected one invite-user call")
	}
}

func seedToolFixtures(t *testing.T, srv *backendtest.Server) {
	t.Helper()
	srv.Seed(backend.CollectionPresets, backend.Row{"id": "p1", "name": "support-bot"})
	srv.Seed(backend.CollectionConnections,
		backend.Row{"id": "c1", "name": "crm", "server_url": "https://mcp.crm.example.com", "enabled": true})
	srv.Seed(backend.CollectionConnectionTools,
		backend.Row{"id": "t1", "connection_id": "c1", "name": "search", "description": "Search CRM records", "enabled": true},
		backend.Row{"id": "t2", "connection_id": "c1", "name": "update", "description": "Update a record", "enabled": true})
	srv.Seed(backend.CollectionIntegrations,
		backend.Row{"id": "i1", "preset_id": "p1", "name": "Ticket Hook", "tool_name": "ticketHook_i1",
			"url": "https://hooks.example.com/t", "method": "POST", "enabled": true})
}

func TestToolsListAndSave(t *testing.T) {
	srv, cleanup := setupBackend(t)
	defer cleanup()
	seedToolFixtures(t, srv)

	stdout, stderr, code := runCmd(t, "tools", "list", "--preset", "support-bot")
	if code != 0 {
		t.Fatalf("tools list failed: %s", stderr)
	}
	for _, want := range []string{"search", "update", "ticketHook_i1", "(3 of 3 selected)"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output, got: %s", want, stdout)
		}
	}

	stdout, stderr, code = runCmd(t, "tools", "disable", "search", "--preset", "support-bot")
	if code != 0 {
		t.Fatalf("tools disable failed: %s", stderr)
	}
	if !strings.Contains(stdout, "Deselected search") {
		t.Fatalf("unexpected output: %s", stdout)
	}

	// The draft survives into the next invocation through the shared KV.
	stdout, _, _ = runCmd(t, "tools", "list", "--preset", "support-bot")
	if !strings.Contains(stdout, "(2 of 3 selected)") || !strings.Contains(stdout, "Unsaved changes") {
		t.Fatalf("expected dirty draft with 2 selected, got: %s", stdout)
	}

	stdout, stderr, code = runCmd(t, "tools", "save", "--preset", "support-bot")
	if code != 0 {
		t.Fatalf("tools save failed: %s", stderr)
	}
	if !strings.Contains(stdout, "Saved 2 tools") {
		t.Fatalf("unexpected save output: %s", stdout)
	}
	if got := len(srv.Rows(backend.CollectionToolSelections)); got != 2 {
		t.Fatalf("expected 2 selection rows, got %d", got)
	}
}

func TestToolsRequiresPreset(t *testing.T) {
	_, cleanup := setupBackend(t)
	defer cleanup()

	_, stderr, code := runCmd(t, "tools", "list")
	if code == 0 {
		t.Fatal("expected non-zero exit without --preset")
	}
	if !strings.Contains(stderr, "--preset is required") {
		t.Fatalf("expected preset error, got: %s", stderr)
	}
}

func TestToolsUnknownTool(t *testing.T) {
	srv, cleanup := setupBackend(t)
	defer cleanup()
	seedToolFixtures(t, srv)

	_, stderr, code := runCmd(t, "tools", "enable", "bogus", "--preset", "support-bot")
	if code == 0 {
		t.Fatal("expected non-zero exit for unknown tool")
	}
	if !strings.Contains(stderr, "not available") {
		t.Fatalf("expected availability error, got: %s", stderr)
	}
}

func TestEmbedIframe(t *testing.T) {
	srv, cleanup := setupBackend(t)
	defer cleanup()

	runCmd(t, "ctx", "config", "set", "embed_host", "https://widgets.example.com")
	srv.Seed(backend.CollectionPresets,
		backend.Row{"id": "p1", "name": "support-bot", "public_id": "pub_abc123"})

	stdout, stderr, code := runCmd(t, "embed", "iframe", "support-bot", "--primary", "#4f46e5")
	if code != 0 {
		t.Fatalf("embed iframe failed: %s", stderr)
	}
	if !strings.Contains(stdout, "https://widgets.example.com/embed/pub_abc123") {
		t.Fatalf("expected embed URL, got: %s", stdout)
	}
	if !strings.Contains(stdout, "<iframe") || !strings.Contains(stdout, "primary=%234f46e5") {
		t.Fatalf("expected branded iframe, got: %s", stdout)
	}
}

func TestEmbedUnpublishedPreset(t *testing.T) {
	srv, cleanup := setupBackend(t)
	defer cleanup()

	runCmd(t, "ctx", "config", "set", "embed_host", "https://widgets.example.com")
	srv.Seed(backend.CollectionPresets, backend.Row{"id": "p1", "name": "draft-bot"})

	_, stderr, code := runCmd(t, "embed", "iframe", "draft-bot")
	if code == 0 {
		t.Fatal("expected non-zero exit for preset without public id")
	}
	if !strings.Contains(stderr, "no public id") {
		t.Fatalf("expected public id error, got: %s", stderr)
	}
}

func TestUsageSummary(t *testing.T) {
	srv, cleanup := setupBackend(t)
	defer cleanup()

	now := time.Now().UTC().Format(time.RFC3339)
	srv.Seed(backend.CollectionPresets, backend.Row{"id": "p1", "name": "support-bot"})
	srv.Seed(backend.CollectionUsageEvents,
		backend.Row{"id": "e1", "preset_id": "p1", "session_id": "s1", "kind": "text",
			"input_tokens": 120, "output_tokens": 80, "cost": 0.03, "created_at": now},
		backend.Row{"id": "e2", "preset_id": "p1", "session_id": "s1", "kind": "voice",
			"audio_seconds": 42.5, "cost": 0.12, "created_at": now},
	)

	stdout, stderr, code := runCmd(t, "usage", "--days", "7")
	if code != 0 {
		t.Fatalf("usage failed: %s", stderr)
	}
	for _, want := range []string{"2 events", "1 sessions", "text", "voice"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output, got: %s", want, stdout)
		}
	}
}

func TestUsageJQFilter(t *testing.T) {
	srv, cleanup := setupBackend(t)
	defer cleanup()

	now := time.Now().UTC().Format(time.RFC3339)
	srv.Seed(backend.CollectionUsageEvents,
		backend.Row{"id": "e1", "preset_id": "p1", "session_id": "s1", "kind": "text",
			"input_tokens": 120, "output_tokens": 80, "cost": 0.03, "created_at": now},
	)

	stdout, stderr, code := runCmd(t, "usage", "--jq", ".Totals.Events")
	if code != 0 {
		t.Fatalf("usage --jq failed: %s", stderr)
	}
	if strings.TrimSpace(stdout) != "1" {
		t.Fatalf("expected filtered event count, got: %q", stdout)
	}

	_, stderr, code = runCmd(t, "usage", "--jq", ".Totals[")
	if code == 0 {
		t.Fatal("expected non-zero exit for a bad jq expression")
	}
	if !strings.Contains(stderr, "invalid jq expression") {
		t.Fatalf("expected parse error, got: %s", stderr)
	}
}

func TestChatSessionsAndLog(t *testing.T) {
	srv, cleanup := setupBackend(t)
	defer cleanup()

	srv.Seed(backend.CollectionPresets, backend.Row{"id": "p1", "name": "support-bot"})
	srv.Seed(backend.CollectionChatSessions,
		backend.Row{"id": "s1", "preset_id": "p1", "visitor_id": "v-42", "status": "active",
			"created_at": "2026-08-20T09:00:00Z"})
	srv.Seed(backend.CollectionChatMessages,
		backend.Row{"id": "m1", "session_id": "s1", "role": "user", "content": "hello",
			"created_at": "2026-08-20T09:00:01Z"},
		backend.Row{"id": "m2", "session_id": "s1", "role": "assistant", "content": "hi there",
			"created_at": "2026-08-20T09:00:02Z"},
	)

	stdout, stderr, code := runCmd(t, "chat", "sessions", "--preset", "support-bot")
	if code != 0 {
		t.Fatalf("chat sessions failed: %s", stderr)
	}
	if !strings.Contains(stdout, "s1") || !strings.Contains(stdout, "v-42") {
		t.Fatalf("expected session row, got: %s", stdout)
	}

	stdout, stderr, code = runCmd(t, "chat", "log", "s1")
	if code != 0 {
		t.Fatalf("chat log failed: %s", stderr)
	}
	if !strings.Contains(stdout, "hello") || !strings.Contains(stdout, "hi there") {
		t.Fatalf("expected transcript text, got: %s", stdout)
	}
}

func TestKbSpacesAndStatus(t *testing.T) {
	srv, cleanup := setupBackend(t)
	defer cleanup()

	srv.Seed(backend.CollectionSpaces,
		backend.Row{"id": "sp1", "name": "faq", "description": "Customer FAQ"})
	srv.HandleFunc(backend.FnEmbedService, func(params map[string]any) (any, *backend.Error) {
		if params["action"] != "status" || params["space_id"] != "sp1" {
			return nil, &backend.Error{Code: "bad_request", Message: "unexpected params"}
		}
		return map[string]any{"total": 2, "embedded": 1, "pending": 1, "failed": 0}, nil
	})

	stdout, stderr, code := runCmd(t, "kb", "spaces")
	if code != 0 {
		t.Fatalf("kb spaces failed: %s", stderr)
	}
	if !strings.Contains(stdout, "faq") || !strings.Contains(stdout, "Customer FAQ") {
		t.Fatalf("expected space row, got: %s", stdout)
	}

	stdout, stderr, code = runCmd(t, "kb", "status", "faq")
	if code != 0 {
		t.Fatalf("kb status failed: %s", stderr)
	}
	if !strings.Contains(stdout, "2 documents") || !strings.Contains(stdout, "1 embedded") {
		t.Fatalf("expected status counts, got: %s", stdout)
	}
}

func TestKbSearch(t *testing.T) {
	srv, cleanup := setupBackend(t)
	defer cleanup()

	srv.Seed(backend.CollectionSpaces, backend.Row{"id": "sp1", "name": "faq"})
	srv.HandleFunc(backend.FnRAGService, func(params map[string]any) (any, *backend.Error) {
		if params["space_id"] != "sp1" || params["query"] != "refunds" {
			return nil, &backend.Error{Code: "bad_request", Message: "unexpected params"}
		}
		return map[string]any{"hits": []map[string]any{
			{"document_id": "d1", "document": "handbook.md", "snippet": "Refunds take 5 days.", "score": 0.91},
		}}, nil
	})

	stdout, stderr, code := runCmd(t, "kb", "search", "faq", "refunds")
	if code != 0 {
		t.Fatalf("kb search failed: %s", stderr)
	}
	if !strings.Contains(stdout, "handbook.md") || !strings.Contains(stdout, "Refunds take 5 days.") {
		t.Fatalf("expected hit output, got: %s", stdout)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, code := runCmd(t, "version")
	if code != 0 {
		t.Fatalf("version failed, exit %d", code)
	}
	if !strings.Contains(stdout, "voxdeck") {
		t.Fatalf("expected version line, got: %s", stdout)
	}
}
