package manager

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tjfontaine/slack-mcp-gateway/internal/slack"
)

const (
	userPageSize = 200

	// userSearchCap bounds how many users a local search scans. The Web
	// API has no user-search method, so search fetches up to this many and
	// matches client-side; workspaces with more users get partial results.
	userSearchCap = 1000
)

// Users handles user profile and presence operations.
type Users struct {
	api    slack.API
	logger *slog.Logger
}

// NewUsers creates a users manager over the gateway.
func NewUsers(api slack.API, logger *slog.Logger) *Users {
	if logger == nil {
		logger = slog.Default()
	}
	return &Users{api: api, logger: logger}
}

// ListUsers lists workspace members via cursor pagination. Bot and deleted
// accounts are dropped before they count toward the limit.
func (m *Users) ListUsers(ctx context.Context, limit int) ([]map[string]any, error) {
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit < 1 {
		return nil, validationErr("limit", "must be positive")
	}

	users, err := slack.FetchCursor(ctx, m.api, slack.FetchQuery{
		Method:   "users.list",
		Params:   map[string]any{},
		ItemsKey: "members",
		Target:   limit,
		PageSize: userPageSize,
		Include: func(rec map[string]any) bool {
			bot, _ := rec["is_bot"].(bool)
			deleted, _ := rec["deleted"].(bool)
			return !bot && !deleted
		},
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("listed users", slog.Int("count", len(users)))
	return users, nil
}

// GetUser fetches one user profile by ID or email. Exactly one selector is
// required; email lookup does not go through ID validation.
func (m *Users) GetUser(ctx context.Context, userID, email string) (map[string]any, error) {
	if userID == "" && email == "" {
		return nil, validationErr("user_id", "either user_id or email is required")
	}
	if userID != "" && email != "" {
		return nil, validationErr("user_id", "provide user_id or email, not both")
	}

	var resp map[string]any
	var err error
	if email != "" {
		resp, err = m.api.CallAPI(ctx, "users.lookupByEmail", map[string]any{"email": email})
	} else {
		if !validUserID(userID) {
			return nil, validationErr("user_id", "user ID must start with U or W")
		}
		resp, err = m.api.CallAPI(ctx, "users.info", map[string]any{"user": userID})
	}
	if err != nil {
		return nil, err
	}

	user, _ := resp["user"].(map[string]any)
	return user, nil
}

// GetPresence checks a user's presence status.
func (m *Users) GetPresence(ctx context.Context, userID string) (map[string]any, error) {
	if userID == "" {
		return nil, validationErr("user_id", "user ID is required")
	}
	if !validUserID(userID) {
		return nil, validationErr("user_id", "user ID must start with U or W")
	}

	resp, err := m.api.CallAPI(ctx, "users.getPresence", map[string]any{"user": userID})
	if err != nil {
		return nil, err
	}

	presence, _ := resp["presence"].(string)
	if presence == "" {
		presence = "unknown"
	}
	online, _ := resp["online"].(bool)
	autoAway, _ := resp["auto_away"].(bool)
	manualAway, _ := resp["manual_away"].(bool)

	return map[string]any{
		"ok":          true,
		"presence":    presence,
		"online":      online,
		"auto_away":   autoAway,
		"manual_away": manualAway,
	}, nil
}

// SearchUsers matches users by substring across name, real name, and
// profile email. See userSearchCap for the scan bound.
func (m *Users) SearchUsers(ctx context.Context, query string) ([]map[string]any, error) {
	if query == "" {
		return nil, validationErr("query", "search query must not be empty")
	}

	all, err := m.ListUsers(ctx, userSearchCap)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	var matches []map[string]any
	for _, user := range all {
		if userMatches(user, needle) {
			matches = append(matches, user)
		}
	}

	m.logger.Info("searched users", slog.String("query", query), slog.Int("matches", len(matches)))
	return matches, nil
}

func userMatches(user map[string]any, needle string) bool {
	name, _ := user["name"].(string)
	realName, _ := user["real_name"].(string)
	var email string
	if profile, ok := user["profile"].(map[string]any); ok {
		email, _ = profile["email"].(string)
	}
	return strings.Contains(strings.ToLower(name), needle) ||
		strings.Contains(strings.ToLower(realName), needle) ||
		strings.Contains(strings.ToLower(email), needle)
}
