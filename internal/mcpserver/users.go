package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	opListUsers   = "list_users"
	opGetUser     = "get_user"
	opGetPresence = "get_presence"
	opSearchUsers = "search_users"
)

func usersTool() mcp.Tool {
	return mcp.NewTool("slack_users",
		mcp.WithDescription(`Slack user profile and presence operations.

Operations:
- list_users: List all workspace users
- get_user: Get user profile by ID or email
- get_presence: Check user presence status
- search_users: Search users by name or email`),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("Operation to perform"),
			mcp.Enum(opListUsers, opGetUser, opGetPresence, opSearchUsers),
		),
		mcp.WithString("user_id", mcp.Description("User ID (U... or W...)")),
		mcp.WithString("email", mcp.Description("User email address")),
		mcp.WithString("query", mcp.Description("Search query for users")),
		mcp.WithNumber("limit", mcp.Description("Max results")),
	)
}

func (s *Server) handleUsers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	op, err := req.RequireString("operation")
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}
	s.logger.Info("tool call", slog.String("tool", "slack_users"), slog.String("operation", op))

	start := time.Now()
	result, err := s.dispatchUsers(ctx, op, req)
	s.record(ctx, "slack_users", op, start, err)
	if err != nil {
		return errResult(err), nil
	}
	return result, nil
}

func (s *Server) dispatchUsers(ctx context.Context, op string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := s.getBundle(ctx)
	if err != nil {
		return nil, err
	}

	switch op {
	case opListUsers:
		users, err := b.users.ListUsers(ctx, req.GetInt("limit", 0))
		if err != nil {
			return nil, err
		}
		return jsonResult(fmt.Sprintf("Found %d users", len(users)), users)

	case opGetUser:
		user, err := b.users.GetUser(ctx, req.GetString("user_id", ""), req.GetString("email", ""))
		if err != nil {
			return nil, err
		}
		return jsonResult("User profile", user)

	case opGetPresence:
		userID, err := req.RequireString("user_id")
		if err != nil {
			return nil, fmt.Errorf("get_presence requires 'user_id' parameter")
		}
		presence, err := b.users.GetPresence(ctx, userID)
		if err != nil {
			return nil, err
		}
		return jsonResult("User presence", presence)

	case opSearchUsers:
		query, err := req.RequireString("query")
		if err != nil {
			return nil, fmt.Errorf("search_users requires 'query' parameter")
		}
		matches, err := b.users.SearchUsers(ctx, query)
		if err != nil {
			return nil, err
		}
		return jsonResult(fmt.Sprintf("Found %d users", len(matches)), matches)

	default:
		return nil, &UnknownOperationError{Tool: "users", Operation: op}
	}
}
