package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tjfontaine/slack-mcp-gateway/internal/manager"
)

const (
	opSearch         = "search"
	opGetHistory     = "get_history"
	opGetReplies     = "get_replies"
	opPostMessage    = "post_message"
	opListChannels   = "list_channels"
	opCreateChannel  = "create_channel"
	opArchiveChannel = "archive_channel"
)

func conversationsTool() mcp.Tool {
	return mcp.NewTool("slack_conversations",
		mcp.WithDescription(`Slack conversations and channel operations.

Operations:
- search: Search messages with query and optional filters
- get_history: Read message history from a channel
- get_replies: Read all replies in a thread
- post_message: Post message to channel or thread
- list_channels: List channels with optional type filters
- create_channel: Create a new channel
- archive_channel: Archive a channel`),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("Operation to perform"),
			mcp.Enum(opSearch, opGetHistory, opGetReplies, opPostMessage,
				opListChannels, opCreateChannel, opArchiveChannel),
		),
		mcp.WithString("query", mcp.Description("Search query (for search operation)")),
		mcp.WithString("channel", mcp.Description("Channel ID (C..., G..., or D...)")),
		mcp.WithString("text", mcp.Description("Message text (for post_message)")),
		mcp.WithString("thread_ts", mcp.Description("Thread timestamp (for get_replies, post_message)")),
		mcp.WithString("oldest", mcp.Description("Unix timestamp - only messages after this time (for get_history, get_replies)")),
		mcp.WithString("latest", mcp.Description("Unix timestamp - only messages before this time (for get_history, get_replies)")),
		mcp.WithBoolean("inclusive", mcp.Description("Include messages with oldest/latest timestamp (for get_history, get_replies)")),
		mcp.WithArray("types",
			mcp.Description("Channel types: public_channel, private_channel, im, mpim"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("name", mcp.Description("Channel name (for create_channel)")),
		mcp.WithBoolean("is_private", mcp.Description("Create private channel")),
		mcp.WithBoolean("member_only", mcp.Description("Only list member channels (default: true)")),
		mcp.WithBoolean("exclude_archived", mcp.Description("Exclude archived channels (default: true)")),
		mcp.WithNumber("limit", mcp.Description("Max results (1-100 for search, 1-1000 for get_history/get_replies)")),
	)
}

func (s *Server) handleConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	op, err := req.RequireString("operation")
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}
	s.logger.Info("tool call", slog.String("tool", "slack_conversations"), slog.String("operation", op))

	start := time.Now()
	result, err := s.dispatchConversations(ctx, op, req)
	s.record(ctx, "slack_conversations", op, start, err)
	if err != nil {
		return errResult(err), nil
	}
	return result, nil
}

func (s *Server) dispatchConversations(ctx context.Context, op string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := s.getBundle(ctx)
	if err != nil {
		return nil, err
	}

	switch op {
	case opSearch:
		query, err := req.RequireString("query")
		if err != nil {
			return nil, fmt.Errorf("search operation requires 'query' parameter")
		}
		matches, err := b.conversations.SearchMessages(ctx, query,
			req.GetString("channel", ""), req.GetInt("limit", 0))
		if err != nil {
			return nil, err
		}
		return jsonResult(fmt.Sprintf("Found %d messages", len(matches)), matches)

	case opGetHistory:
		q, err := historyQuery(req)
		if err != nil {
			return nil, err
		}
		result, err := b.conversations.GetHistory(ctx, q)
		if err != nil {
			return nil, err
		}
		return jsonResult(fmt.Sprintf("Retrieved %d messages from channel %s",
			messageCount(result), q.Channel), result)

	case opGetReplies:
		q, err := historyQuery(req)
		if err != nil {
			return nil, err
		}
		q.ThreadTS = req.GetString("thread_ts", "")
		result, err := b.conversations.GetReplies(ctx, q)
		if err != nil {
			return nil, err
		}
		return jsonResult(fmt.Sprintf("Retrieved %d replies from thread %s",
			messageCount(result), q.ThreadTS), result)

	case opPostMessage:
		channel, err := req.RequireString("channel")
		if err != nil {
			return nil, fmt.Errorf("post_message requires 'channel' and 'text' parameters")
		}
		text, err := req.RequireString("text")
		if err != nil {
			return nil, fmt.Errorf("post_message requires 'channel' and 'text' parameters")
		}
		result, err := b.conversations.PostMessage(ctx, channel, text, req.GetString("thread_ts", ""))
		if err != nil {
			return nil, err
		}
		return jsonResult("Message posted", result)

	case opListChannels:
		channels, err := b.conversations.ListChannels(ctx, manager.ListChannelsQuery{
			Types:           req.GetStringSlice("types", nil),
			ExcludeArchived: req.GetBool("exclude_archived", true),
			MemberOnly:      req.GetBool("member_only", true),
			Limit:           req.GetInt("limit", 0),
		})
		if err != nil {
			return nil, err
		}
		return jsonResult(fmt.Sprintf("Found %d channels", len(channels)), channels)

	case opCreateChannel:
		name, err := req.RequireString("name")
		if err != nil {
			return nil, fmt.Errorf("create_channel requires 'name' parameter")
		}
		result, err := b.conversations.CreateChannel(ctx, name, req.GetBool("is_private", false))
		if err != nil {
			return nil, err
		}
		return jsonResult("Channel created", result)

	case opArchiveChannel:
		channel, err := req.RequireString("channel")
		if err != nil {
			return nil, fmt.Errorf("archive_channel requires 'channel' parameter")
		}
		if err := b.conversations.ArchiveChannel(ctx, channel); err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(fmt.Sprintf("Channel %s archived successfully", channel)), nil

	default:
		return nil, &UnknownOperationError{Tool: "conversations", Operation: op}
	}
}

func historyQuery(req mcp.CallToolRequest) (manager.HistoryQuery, error) {
	channel, err := req.RequireString("channel")
	if err != nil {
		return manager.HistoryQuery{}, fmt.Errorf("operation requires 'channel' parameter")
	}
	return manager.HistoryQuery{
		Channel:   channel,
		Limit:     req.GetInt("limit", 0),
		Oldest:    req.GetString("oldest", ""),
		Latest:    req.GetString("latest", ""),
		Inclusive: req.GetBool("inclusive", false),
	}, nil
}

func messageCount(result map[string]any) int {
	messages, _ := result["messages"].([]any)
	return len(messages)
}
