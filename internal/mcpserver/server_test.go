package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tjfontaine/slack-mcp-gateway/internal/config"
	"github.com/tjfontaine/slack-mcp-gateway/internal/slack"
	"github.com/tjfontaine/slack-mcp-gateway/internal/workspace"
)

// fakeGateway scripts CallAPI responses per method and remembers which
// token it was built for.
type fakeGateway struct {
	token     string
	responses map[string]map[string]any
	err       error
}

func (f *fakeGateway) CallAPI(_ context.Context, method string, _ map[string]any) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	resp, ok := f.responses[method]
	if !ok {
		return nil, fmt.Errorf("unscripted method %s", method)
	}
	return resp, nil
}

func (f *fakeGateway) UploadFile(context.Context, string, map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("unscripted upload")
}

func (f *fakeGateway) AuthTest(context.Context) (*slack.AuthInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &slack.AuthInfo{OK: true, Team: "Fake Team"}, nil
}

type testEnv struct {
	srv     *Server
	gateway *fakeGateway
	builds  []string
}

func newTestEnv(t *testing.T, workspaces map[string]workspace.Config) *testEnv {
	t.Helper()

	dir := t.TempDir()
	if err := os.Chmod(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	for name, cfg := range workspaces {
		data, err := json.Marshal(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &config.Config{}
	cfg.Server.Name = "slack-mcp"
	cfg.Server.Version = "test"

	env := &testEnv{
		gateway: &fakeGateway{responses: make(map[string]map[string]any)},
	}
	env.srv = New(cfg, workspace.NewStore(dir, nil), nil, nil)
	env.srv.newClient = func(token string) (slack.API, error) {
		env.builds = append(env.builds, token)
		env.gateway.token = token
		return env.gateway, nil
	}
	return env
}

func callRequest(tool string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func TestServer_ListUsers_BuildsBundleOnce(t *testing.T) {
	env := newTestEnv(t, map[string]workspace.Config{
		"main": {Token: "xoxp-main"},
	})
	env.gateway.responses["users.list"] = map[string]any{
		"ok":      true,
		"members": []any{map[string]any{"id": "U1", "name": "alice"}},
	}

	for i := 0; i < 2; i++ {
		result, err := env.srv.handleUsers(context.Background(),
			callRequest("slack_users", map[string]any{"operation": "list_users"}))
		if err != nil {
			t.Fatalf("handleUsers() #%d error = %v", i, err)
		}
		if result.IsError {
			t.Fatalf("handleUsers() #%d = error result %q", i, resultText(t, result))
		}
		if !strings.HasPrefix(resultText(t, result), "Found 1 users:") {
			t.Errorf("text = %q", resultText(t, result))
		}
	}

	if len(env.builds) != 1 {
		t.Errorf("client builds = %d, want 1", len(env.builds))
	}
	if env.builds[0] != "xoxp-main" {
		t.Errorf("built with token %q", env.builds[0])
	}
}

func TestServer_SwitchWorkspace_RebuildsBundle(t *testing.T) {
	env := newTestEnv(t, map[string]workspace.Config{
		"alpha": {Token: "xoxp-alpha", Default: true},
		"beta":  {Token: "xoxp-beta"},
	})
	env.gateway.responses["users.list"] = map[string]any{"ok": true, "members": []any{}}

	call := func() {
		t.Helper()
		result, err := env.srv.handleUsers(context.Background(),
			callRequest("slack_users", map[string]any{"operation": "list_users"}))
		if err != nil || result.IsError {
			t.Fatalf("list_users failed: err=%v result=%v", err, result)
		}
	}

	call()
	result, err := env.srv.handleWorkspace(context.Background(),
		callRequest("slack_workspace", map[string]any{
			"operation":      "switch_workspace",
			"workspace_name": "beta",
		}))
	if err != nil || result.IsError {
		t.Fatalf("switch failed: err=%v result=%v", err, result)
	}
	if got := resultText(t, result); got != "Switched to workspace: beta" {
		t.Errorf("text = %q", got)
	}
	call()

	if len(env.builds) != 2 {
		t.Fatalf("client builds = %d, want 2", len(env.builds))
	}
	if env.builds[0] != "xoxp-alpha" || env.builds[1] != "xoxp-beta" {
		t.Errorf("build tokens = %v", env.builds)
	}
}

func TestServer_SwitchWorkspace_UnknownTargetKeepsBundle(t *testing.T) {
	env := newTestEnv(t, map[string]workspace.Config{
		"alpha": {Token: "xoxp-alpha"},
	})
	env.gateway.responses["users.list"] = map[string]any{"ok": true, "members": []any{}}

	if _, err := env.srv.handleUsers(context.Background(),
		callRequest("slack_users", map[string]any{"operation": "list_users"})); err != nil {
		t.Fatal(err)
	}

	result, err := env.srv.handleWorkspace(context.Background(),
		callRequest("slack_workspace", map[string]any{
			"operation":      "switch_workspace",
			"workspace_name": "missing",
		}))
	if err != nil {
		t.Fatalf("handleWorkspace() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("switch to missing workspace succeeded, want error result")
	}

	// The old bundle must survive a failed switch.
	if _, err := env.srv.handleUsers(context.Background(),
		callRequest("slack_users", map[string]any{"operation": "list_users"})); err != nil {
		t.Fatal(err)
	}
	if len(env.builds) != 1 {
		t.Errorf("client builds = %d, want 1", len(env.builds))
	}
}

func TestServer_UnknownOperation(t *testing.T) {
	env := newTestEnv(t, map[string]workspace.Config{
		"main": {Token: "xoxp-main"},
	})

	result, err := env.srv.handleFiles(context.Background(),
		callRequest("slack_files", map[string]any{"operation": "shred"}))
	if err != nil {
		t.Fatalf("handleFiles() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("want error result for unknown operation")
	}
	if got := resultText(t, result); !strings.Contains(got, "unknown files operation") {
		t.Errorf("text = %q", got)
	}
}

func TestServer_MissingOperation(t *testing.T) {
	env := newTestEnv(t, map[string]workspace.Config{
		"main": {Token: "xoxp-main"},
	})

	result, err := env.srv.handleConversations(context.Background(),
		callRequest("slack_conversations", map[string]any{}))
	if err != nil {
		t.Fatalf("handleConversations() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("want error result for missing operation")
	}
}

func TestServer_APIErrorFraming(t *testing.T) {
	env := newTestEnv(t, map[string]workspace.Config{
		"main": {Token: "xoxp-main"},
	})
	env.gateway.err = &slack.APIError{
		Kind:    slack.ErrorKindMissingScope,
		Method:  "users.list",
		Message: "missing scope: users:read",
	}

	result, err := env.srv.handleUsers(context.Background(),
		callRequest("slack_users", map[string]any{"operation": "list_users"}))
	if err != nil {
		t.Fatalf("handleUsers() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("want error result")
	}
	if got := resultText(t, result); !strings.HasPrefix(got, "Slack API error: ") {
		t.Errorf("text = %q, want Slack API error prefix", got)
	}
}

func TestServer_ValidationErrorFraming(t *testing.T) {
	env := newTestEnv(t, map[string]workspace.Config{
		"main": {Token: "xoxp-main"},
	})

	result, err := env.srv.handleConversations(context.Background(),
		callRequest("slack_conversations", map[string]any{
			"operation": "post_message",
			"channel":   "X123",
			"text":      "hi",
		}))
	if err != nil {
		t.Fatalf("handleConversations() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("want error result")
	}
	if got := resultText(t, result); !strings.HasPrefix(got, "Error: ") {
		t.Errorf("text = %q, want Error prefix", got)
	}
}

func TestServer_WorkspaceRegistryOpsSkipBundle(t *testing.T) {
	env := newTestEnv(t, map[string]workspace.Config{
		"alpha": {Token: "xoxp-alpha", Default: true},
		"beta":  {Token: "xoxp-beta"},
	})

	result, err := env.srv.handleWorkspace(context.Background(),
		callRequest("slack_workspace", map[string]any{"operation": "list_workspaces"}))
	if err != nil || result.IsError {
		t.Fatalf("list_workspaces failed: err=%v result=%v", err, result)
	}
	if !strings.HasPrefix(resultText(t, result), "Found 2 workspaces:") {
		t.Errorf("text = %q", resultText(t, result))
	}

	result, err = env.srv.handleWorkspace(context.Background(),
		callRequest("slack_workspace", map[string]any{"operation": "get_active_workspace"}))
	if err != nil || result.IsError {
		t.Fatalf("get_active_workspace failed: err=%v result=%v", err, result)
	}
	if !strings.Contains(resultText(t, result), `"name": "alpha"`) {
		t.Errorf("text = %q", resultText(t, result))
	}

	if len(env.builds) != 0 {
		t.Errorf("client builds = %d, want 0 for registry operations", len(env.builds))
	}
}

func TestServer_GetStats(t *testing.T) {
	env := newTestEnv(t, map[string]workspace.Config{
		"main": {Token: "xoxp-main"},
	})
	env.gateway.responses["team.info"] = map[string]any{"ok": true, "team": map[string]any{"id": "T1"}}
	env.gateway.responses["users.list"] = map[string]any{"ok": true, "members": []any{map[string]any{"id": "U1"}}}
	env.gateway.responses["conversations.list"] = map[string]any{"ok": true, "channels": []any{}}
	env.gateway.responses["emoji.list"] = map[string]any{"ok": true, "emoji": map[string]any{}}

	result, err := env.srv.handleWorkspace(context.Background(),
		callRequest("slack_workspace", map[string]any{"operation": "get_stats"}))
	if err != nil || result.IsError {
		t.Fatalf("get_stats failed: err=%v result=%v", err, result)
	}
	if !strings.HasPrefix(resultText(t, result), "Workspace stats:") {
		t.Errorf("text = %q", resultText(t, result))
	}
}
