package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	opGetTeamInfo        = "get_team_info"
	opListEmoji          = "list_emoji"
	opGetStats           = "get_stats"
	opListWorkspaces     = "list_workspaces"
	opSwitchWorkspace    = "switch_workspace"
	opGetActiveWorkspace = "get_active_workspace"
)

func workspaceTool() mcp.Tool {
	return mcp.NewTool("slack_workspace",
		mcp.WithDescription(`Slack workspace metadata and multi-workspace operations.

Operations:
- get_team_info: Get workspace/team information
- list_emoji: List custom emoji in workspace
- get_stats: Get workspace statistics
- list_workspaces: List all configured workspaces
- switch_workspace: Switch to a different workspace
- get_active_workspace: Get current workspace info`),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("Operation to perform"),
			mcp.Enum(opGetTeamInfo, opListEmoji, opGetStats,
				opListWorkspaces, opSwitchWorkspace, opGetActiveWorkspace),
		),
		mcp.WithString("workspace_name", mcp.Description("Workspace name (for switch_workspace)")),
	)
}

func (s *Server) handleWorkspace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	op, err := req.RequireString("operation")
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}
	s.logger.Info("tool call", slog.String("tool", "slack_workspace"), slog.String("operation", op))

	start := time.Now()
	result, err := s.dispatchWorkspace(ctx, op, req)
	s.record(ctx, "slack_workspace", op, start, err)
	if err != nil {
		return errResult(err), nil
	}
	return result, nil
}

// dispatchWorkspace handles both gateway-backed metadata operations and
// store-backed registry operations. The registry ones never build a
// bundle; listing and switching must work even when the active credential
// is broken.
func (s *Server) dispatchWorkspace(ctx context.Context, op string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch op {
	case opGetTeamInfo:
		b, err := s.getBundle(ctx)
		if err != nil {
			return nil, err
		}
		info, err := b.workspaceOps.TeamInfo(ctx)
		if err != nil {
			return nil, err
		}
		return jsonResult("Team info", info)

	case opListEmoji:
		b, err := s.getBundle(ctx)
		if err != nil {
			return nil, err
		}
		emoji, err := b.workspaceOps.ListEmoji(ctx)
		if err != nil {
			return nil, err
		}
		return jsonResult(fmt.Sprintf("Found %d custom emoji", len(emoji)), emoji)

	case opGetStats:
		b, err := s.getBundle(ctx)
		if err != nil {
			return nil, err
		}
		stats, err := b.workspaceOps.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return jsonResult("Workspace stats", stats)

	case opListWorkspaces:
		workspaces, err := s.store.List()
		if err != nil {
			return nil, err
		}
		return jsonResult(fmt.Sprintf("Found %d workspaces", len(workspaces)), workspaces)

	case opSwitchWorkspace:
		name, err := req.RequireString("workspace_name")
		if err != nil {
			return nil, fmt.Errorf("switch_workspace requires 'workspace_name' parameter")
		}
		if err := s.switchWorkspace(name); err != nil {
			return nil, err
		}
		return mcp.NewToolResultText("Switched to workspace: " + name), nil

	case opGetActiveWorkspace:
		active, err := s.store.ActiveInfo()
		if err != nil {
			return nil, err
		}
		return jsonResult("Active workspace", active)

	default:
		return nil, &UnknownOperationError{Tool: "workspace", Operation: op}
	}
}
