package manager

import (
	"context"
	"log/slog"

	"github.com/tjfontaine/slack-mcp-gateway/internal/slack"
)

// WorkspaceOps handles workspace-level metadata operations.
type WorkspaceOps struct {
	api    slack.API
	logger *slog.Logger
}

// NewWorkspaceOps creates a workspace operations manager over the gateway.
func NewWorkspaceOps(api slack.API, logger *slog.Logger) *WorkspaceOps {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkspaceOps{api: api, logger: logger}
}

// TeamInfo fetches workspace/team metadata.
func (m *WorkspaceOps) TeamInfo(ctx context.Context) (map[string]any, error) {
	resp, err := m.api.CallAPI(ctx, "team.info", map[string]any{})
	if err != nil {
		return nil, err
	}

	team, _ := resp["team"].(map[string]any)
	return team, nil
}

// ListEmoji lists the workspace's custom emoji as name -> image URL.
func (m *WorkspaceOps) ListEmoji(ctx context.Context) (map[string]any, error) {
	resp, err := m.api.CallAPI(ctx, "emoji.list", map[string]any{})
	if err != nil {
		return nil, err
	}

	emoji, _ := resp["emoji"].(map[string]any)
	m.logger.Info("listed custom emoji", slog.Int("count", len(emoji)))
	return emoji, nil
}

// Stats aggregates one page each of team, user, and channel data plus the
// emoji count. User and channel figures are first-page samples, not full
// counts; the result says so explicitly.
func (m *WorkspaceOps) Stats(ctx context.Context) (map[string]any, error) {
	stats := map[string]any{}

	teamResp, err := m.api.CallAPI(ctx, "team.info", map[string]any{})
	if err != nil {
		return nil, err
	}
	stats["team_info"] = teamResp["team"]

	usersResp, err := m.api.CallAPI(ctx, "users.list", map[string]any{"limit": 1})
	if err != nil {
		return nil, err
	}
	active := 0
	for _, member := range recordList(usersResp, "members") {
		bot, _ := member["is_bot"].(bool)
		deleted, _ := member["deleted"].(bool)
		if !bot && !deleted {
			active++
		}
	}
	stats["user_count_sample"] = active
	stats["user_count_note"] = "Sample from first page only"

	channelsResp, err := m.api.CallAPI(ctx, "conversations.list", map[string]any{
		"types": "public_channel",
		"limit": 1,
	})
	if err != nil {
		return nil, err
	}
	stats["channel_count_sample"] = len(recordList(channelsResp, "channels"))
	stats["channel_count_note"] = "Sample from first page only"
	if meta, ok := channelsResp["response_metadata"].(map[string]any); ok {
		stats["response_metadata"] = meta
	}

	emojiResp, err := m.api.CallAPI(ctx, "emoji.list", map[string]any{})
	if err != nil {
		return nil, err
	}
	emoji, _ := emojiResp["emoji"].(map[string]any)
	stats["emoji_count"] = len(emoji)

	m.logger.Info("aggregated workspace stats")
	return stats, nil
}
