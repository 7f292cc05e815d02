package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	defaultBaseURL = "https://slack.com/api"

	// tokenPrefix is the user OAuth token prefix. Bot and app tokens use
	// different prefixes and different scopes; this server only works with
	// user tokens.
	tokenPrefix = "xoxp-"
)

// API is the invocation boundary consumed by the operation managers. The
// concrete Client implements it; tests substitute scripted fakes.
type API interface {
	// CallAPI invokes a named Web API method with the given parameters and
	// returns the decoded response envelope.
	CallAPI(ctx context.Context, method string, params map[string]any) (map[string]any, error)

	// UploadFile uploads the file at path via files.upload, passing params
	// as additional form fields.
	UploadFile(ctx context.Context, path string, params map[string]any) (map[string]any, error)

	// AuthTest validates the token and returns the identity snapshot. The
	// result is cached for the client's lifetime.
	AuthTest(ctx context.Context) (*AuthInfo, error)
}

// AuthInfo is the cached auth.test snapshot.
type AuthInfo struct {
	OK     bool   `json:"ok"`
	URL    string `json:"url"`
	Team   string `json:"team"`
	User   string `json:"user"`
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for call tracing.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client is a bearer-token HTTP client for the Slack Web API. It holds one
// workspace credential; switching workspaces creates a new Client rather
// than mutating an existing one.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu       sync.Mutex
	authInfo *AuthInfo
}

// NewClient creates a client for the given user OAuth token.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return nil, &APIError{
			Kind:    ErrorKindAuth,
			Message: "invalid OAuth token format, must be a user token (xoxp-...)",
		}
	}

	c := &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CallAPI implements API. Parameters are sent form-encoded; scalar values
// are stringified the way the Web API expects (bools as "true"/"false").
func (c *Client) CallAPI(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, paramString(v))
	}

	body := strings.NewReader(form.Encode())
	return c.do(ctx, method, body, "application/x-www-form-urlencoded")
}

// UploadFile implements API. The file is streamed as a multipart form part
// named "file"; params become plain form fields.
func (c *Client) UploadFile(ctx context.Context, path string, params map[string]any) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	mw := multipart.NewWriter(&buf)
	for k, v := range params {
		if err := mw.WriteField(k, paramString(v)); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", k, err)
		}
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read upload file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	return c.do(ctx, "files.upload", strings.NewReader(buf.String()), mw.FormDataContentType())
}

// AuthTest implements API. The first call hits auth.test; every later call
// returns the cached snapshot without a network round trip.
func (c *Client) AuthTest(ctx context.Context) (*AuthInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.authInfo != nil {
		return c.authInfo, nil
	}

	resp, err := c.do(ctx, "auth.test", strings.NewReader(""), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}

	info := &AuthInfo{
		OK:     true,
		URL:    stringField(resp, "url"),
		Team:   stringField(resp, "team"),
		User:   stringField(resp, "user"),
		TeamID: stringField(resp, "team_id"),
		UserID: stringField(resp, "user_id"),
	}
	c.authInfo = info

	c.logger.Info("auth validated",
		slog.String("team", info.Team),
		slog.String("user", info.User))
	return info, nil
}

// AuthInfo returns the cached auth.test snapshot, or nil if AuthTest has
// not succeeded yet.
func (c *Client) AuthInfo() *AuthInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authInfo
}

func (c *Client) do(ctx context.Context, method string, body io.Reader, contentType string) (map[string]any, error) {
	requestID := uuid.NewString()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.Debug("calling slack API",
		slog.String("method", method),
		slog.String("request_id", requestID))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return nil, classifyError(method, "ratelimited", retryAfter)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			Kind:    ErrorKindAPI,
			Method:  method,
			Message: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var envelope map[string]any
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if ok, _ := envelope["ok"].(bool); !ok {
		code := stringField(envelope, "error")
		if code == "" {
			code = "unknown_error"
		}
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		apiErr := classifyError(method, code, retryAfter)
		c.logger.Error("slack API error",
			slog.String("method", method),
			slog.String("request_id", requestID),
			slog.String("code", code))
		return nil, apiErr
	}

	return envelope, nil
}

func paramString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
