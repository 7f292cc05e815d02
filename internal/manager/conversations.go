package manager

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tjfontaine/slack-mcp-gateway/internal/slack"
)

const (
	maxMessageLength  = 40000
	maxChannelName    = 80
	channelPageSize   = 200
	defaultListLimit  = 100
	maxHistoryLimit   = 1000
	maxSearchLimit    = 100
	defaultSearchHits = 10
)

var validChannelTypes = map[string]bool{
	"public_channel":  true,
	"private_channel": true,
	"im":              true,
	"mpim":            true,
}

// Conversations handles message and channel operations.
type Conversations struct {
	api    slack.API
	logger *slog.Logger
}

// NewConversations creates a conversations manager over the gateway.
func NewConversations(api slack.API, logger *slog.Logger) *Conversations {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conversations{api: api, logger: logger}
}

// SearchMessages searches workspace messages. A channel filter is folded
// into the query text as "in:<channel> <query>". Single call, no paging.
func (m *Conversations) SearchMessages(ctx context.Context, query, channel string, limit int) ([]map[string]any, error) {
	if query == "" {
		return nil, validationErr("query", "search query must not be empty")
	}
	if limit == 0 {
		limit = defaultSearchHits
	}
	if limit < 1 || limit > maxSearchLimit {
		return nil, validationErr("limit", fmt.Sprintf("must be between 1 and %d", maxSearchLimit))
	}

	searchQuery := query
	if channel != "" {
		searchQuery = fmt.Sprintf("in:%s %s", channel, query)
	}

	resp, err := m.api.CallAPI(ctx, "search.messages", map[string]any{
		"query": searchQuery,
		"count": limit,
	})
	if err != nil {
		return nil, err
	}

	messages, _ := resp["messages"].(map[string]any)
	matches := recordList(messages, "matches")
	m.logger.Info("searched messages", slog.String("query", query), slog.Int("matches", len(matches)))
	return matches, nil
}

// HistoryQuery bounds a channel history or thread replies read. Oldest,
// Latest, and Inclusive are passed through to the API verbatim.
type HistoryQuery struct {
	Channel   string
	ThreadTS  string // replies only
	Limit     int
	Oldest    string
	Latest    string
	Inclusive bool
}

// GetHistory reads a channel's message history with a single bounded call.
func (m *Conversations) GetHistory(ctx context.Context, q HistoryQuery) (map[string]any, error) {
	params, err := historyParams(q)
	if err != nil {
		return nil, err
	}

	resp, err := m.api.CallAPI(ctx, "conversations.history", params)
	if err != nil {
		return nil, err
	}
	return historyResult(resp), nil
}

// GetReplies reads a thread's replies with a single bounded call.
func (m *Conversations) GetReplies(ctx context.Context, q HistoryQuery) (map[string]any, error) {
	if q.ThreadTS == "" {
		return nil, validationErr("thread_ts", "thread timestamp is required")
	}

	params, err := historyParams(q)
	if err != nil {
		return nil, err
	}
	params["ts"] = q.ThreadTS

	resp, err := m.api.CallAPI(ctx, "conversations.replies", params)
	if err != nil {
		return nil, err
	}
	return historyResult(resp), nil
}

func historyParams(q HistoryQuery) (map[string]any, error) {
	if !validChannelID(q.Channel) {
		return nil, validationErr("channel", "channel ID must start with C, G, or D")
	}
	limit := q.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit < 1 || limit > maxHistoryLimit {
		return nil, validationErr("limit", fmt.Sprintf("must be between 1 and %d", maxHistoryLimit))
	}

	params := map[string]any{
		"channel": q.Channel,
		"limit":   limit,
	}
	if q.Oldest != "" {
		params["oldest"] = q.Oldest
	}
	if q.Latest != "" {
		params["latest"] = q.Latest
	}
	if q.Inclusive {
		params["inclusive"] = true
	}
	return params, nil
}

func historyResult(resp map[string]any) map[string]any {
	hasMore, _ := resp["has_more"].(bool)
	return map[string]any{
		"messages": resp["messages"],
		"has_more": hasMore,
	}
}

// PostMessage posts text to a channel, optionally into a thread.
func (m *Conversations) PostMessage(ctx context.Context, channel, text, threadTS string) (map[string]any, error) {
	if !validChannelID(channel) {
		return nil, validationErr("channel", "channel ID must start with C, G, or D")
	}
	if text == "" {
		return nil, validationErr("text", "message text must not be empty")
	}
	if len(text) > maxMessageLength {
		return nil, validationErr("text", fmt.Sprintf("message text must be at most %d characters", maxMessageLength))
	}

	params := map[string]any{
		"channel": channel,
		"text":    text,
	}
	if threadTS != "" {
		params["thread_ts"] = threadTS
	}

	resp, err := m.api.CallAPI(ctx, "chat.postMessage", params)
	if err != nil {
		return nil, err
	}

	m.logger.Info("posted message", slog.String("channel", channel))
	return map[string]any{
		"ok":      true,
		"channel": resp["channel"],
		"ts":      resp["ts"],
		"message": resp["message"],
	}, nil
}

// ListChannelsQuery configures a channel listing.
type ListChannelsQuery struct {
	Types           []string
	ExcludeArchived bool
	MemberOnly      bool
	Limit           int
}

// ListChannels lists conversations via cursor pagination. With MemberOnly,
// non-member channels are filtered out before they count toward the limit.
func (m *Conversations) ListChannels(ctx context.Context, q ListChannelsQuery) ([]map[string]any, error) {
	typesParam := "public_channel,private_channel"
	if len(q.Types) > 0 {
		if bad := invalidTypes(q.Types, validChannelTypes); len(bad) > 0 {
			return nil, validationErr("types", fmt.Sprintf("invalid channel types: %s (valid: public_channel, private_channel, im, mpim)", strings.Join(bad, ", ")))
		}
		typesParam = strings.Join(q.Types, ",")
	}
	limit := q.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit < 1 {
		return nil, validationErr("limit", "must be positive")
	}

	var include func(map[string]any) bool
	if q.MemberOnly {
		include = func(rec map[string]any) bool {
			member, _ := rec["is_member"].(bool)
			return member
		}
	}

	channels, err := slack.FetchCursor(ctx, m.api, slack.FetchQuery{
		Method: "conversations.list",
		Params: map[string]any{
			"types":            typesParam,
			"exclude_archived": q.ExcludeArchived,
		},
		ItemsKey: "channels",
		Target:   limit,
		PageSize: channelPageSize,
		Include:  include,
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("listed channels", slog.Int("count", len(channels)))
	return channels, nil
}

// CreateChannel creates a public or private channel.
func (m *Conversations) CreateChannel(ctx context.Context, name string, isPrivate bool) (map[string]any, error) {
	if name == "" {
		return nil, validationErr("name", "channel name is required")
	}
	if len(name) > maxChannelName {
		return nil, validationErr("name", fmt.Sprintf("channel name must be at most %d characters", maxChannelName))
	}
	if name != strings.ToLower(name) || strings.Contains(name, " ") {
		return nil, validationErr("name", "channel name must be lowercase with no spaces")
	}

	resp, err := m.api.CallAPI(ctx, "conversations.create", map[string]any{
		"name":       name,
		"is_private": isPrivate,
	})
	if err != nil {
		return nil, err
	}

	channel, _ := resp["channel"].(map[string]any)
	m.logger.Info("created channel", slog.String("name", name))
	return channel, nil
}

// ArchiveChannel archives a channel.
func (m *Conversations) ArchiveChannel(ctx context.Context, channel string) error {
	if channel == "" {
		return validationErr("channel", "channel ID is required")
	}

	if _, err := m.api.CallAPI(ctx, "conversations.archive", map[string]any{"channel": channel}); err != nil {
		return err
	}

	m.logger.Info("archived channel", slog.String("channel", channel))
	return nil
}

func recordList(m map[string]any, key string) []map[string]any {
	if m == nil {
		return nil
	}
	raw, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out
}
