// Package mcpserver exposes the operation managers as MCP tools. Four
// thematic tools cover conversations, users, files, and workspace
// operations; each multiplexes its operations through a required
// "operation" argument.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/slack-mcp-gateway/internal/audit"
	"github.com/tjfontaine/slack-mcp-gateway/internal/config"
	"github.com/tjfontaine/slack-mcp-gateway/internal/manager"
	"github.com/tjfontaine/slack-mcp-gateway/internal/slack"
	"github.com/tjfontaine/slack-mcp-gateway/internal/workspace"
)

const instructions = `This server exposes Slack workspace operations as four tools:
slack_conversations (messages and channels), slack_users (profiles and
presence), slack_files (uploads and file management), and slack_workspace
(team metadata and multi-workspace management). Every call takes an
"operation" argument selecting what to do; the tool descriptions list the
operations and their parameters.`

// UnknownOperationError reports an operation value outside a tool's enum.
type UnknownOperationError struct {
	Tool      string
	Operation string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown %s operation: %q", e.Tool, e.Operation)
}

// bundle is the per-workspace operational state: one authenticated client
// and the managers built over it. Replaced wholesale on workspace switch;
// never partially rebound.
type bundle struct {
	client        slack.API
	conversations *manager.Conversations
	users         *manager.Users
	files         *manager.Files
	workspaceOps  *manager.WorkspaceOps
}

// Server binds the workspace store, the managers, and the MCP protocol
// surface together.
type Server struct {
	cfg      *config.Config
	store    *workspace.Store
	recorder *audit.Recorder
	logger   *slog.Logger
	mcp      *server.MCPServer

	// newClient builds a gateway client for a token. Tests swap this for
	// a factory returning scripted fakes.
	newClient func(token string) (slack.API, error)

	mu     sync.Mutex
	bundle *bundle
}

// New creates the server and registers all four tools.
func New(cfg *config.Config, store *workspace.Store, recorder *audit.Recorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
	s.newClient = s.defaultNewClient

	s.mcp = server.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	s.mcp.AddTool(conversationsTool(), s.handleConversations)
	s.mcp.AddTool(usersTool(), s.handleUsers)
	s.mcp.AddTool(filesTool(), s.handleFiles)
	s.mcp.AddTool(workspaceTool(), s.handleWorkspace)

	logger.Info("MCP tools registered",
		slog.String("server", cfg.Server.Name),
		slog.String("version", cfg.Server.Version))
	return s
}

// MCP returns the underlying protocol server for transport wiring.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio runs the server over stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) defaultNewClient(token string) (slack.API, error) {
	opts := []slack.ClientOption{slack.WithLogger(s.logger)}
	if s.cfg.Slack.BaseURL != "" {
		opts = append(opts, slack.WithBaseURL(s.cfg.Slack.BaseURL))
	}
	if s.cfg.Telemetry.Enabled {
		opts = append(opts, slack.WithHTTPClient(&http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		}))
	}
	return slack.NewClient(token, opts...)
}

// getBundle returns the active workspace's client and managers, building
// them on first use. Construction validates the token with auth.test; a
// failed build leaves no bundle behind.
func (s *Server) getBundle(ctx context.Context) (*bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bundle != nil {
		return s.bundle, nil
	}

	token, err := s.store.Token("")
	if err != nil {
		return nil, err
	}

	client, err := s.newClient(token)
	if err != nil {
		return nil, err
	}
	if _, err := client.AuthTest(ctx); err != nil {
		return nil, err
	}

	b := &bundle{
		client:        client,
		conversations: manager.NewConversations(client, s.logger),
		users:         manager.NewUsers(client, s.logger),
		files:         manager.NewFiles(client, s.logger),
		workspaceOps:  manager.NewWorkspaceOps(client, s.logger),
	}
	s.bundle = b
	return b, nil
}

// switchWorkspace validates the target through the store, then drops the
// bundle so the next call rebuilds against the new credential.
func (s *Server) switchWorkspace(name string) error {
	if err := s.store.Switch(name); err != nil {
		return err
	}

	s.mu.Lock()
	s.bundle = nil
	s.mu.Unlock()
	return nil
}

// record writes one audit row when auditing is enabled.
func (s *Server) record(ctx context.Context, tool, operation string, start time.Time, err error) {
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	ws, _ := s.store.Active()
	s.recorder.Record(ctx, audit.Invocation{
		Tool:      tool,
		Operation: operation,
		Workspace: ws,
		Duration:  time.Since(start),
		Err:       errText,
	})
}

// jsonResult renders a headline plus pretty-printed JSON payload.
func jsonResult(headline string, v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(headline + ":\n\n" + string(data)), nil
}

// errResult converts a failure into a tool error result. Gateway errors
// keep their API framing; everything else gets a generic prefix. Errors
// never propagate out of a handler; a handler error return would tear
// down the protocol session.
func errResult(err error) *mcp.CallToolResult {
	var apiErr *slack.APIError
	if errors.As(err, &apiErr) {
		return mcp.NewToolResultError("Slack API error: " + apiErr.Error())
	}
	return mcp.NewToolResultError("Error: " + err.Error())
}
