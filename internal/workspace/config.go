// Package workspace resolves workspace names to Slack credentials. Each
// workspace is one JSON document in the config directory; the file stem is
// the workspace name.
package workspace

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// tokenPrefix is the required credential prefix; only user OAuth
	// tokens are accepted.
	tokenPrefix = "xoxp-"

	// fileMode is the only permission mode accepted on a credential file.
	fileMode fs.FileMode = 0o600

	// dirMode is the expected mode on the config directory. A mismatch is
	// logged but tolerated, matching how most tools treat the parent dir.
	dirMode fs.FileMode = 0o700
)

// ErrorKind categorizes a configuration failure.
type ErrorKind string

const (
	ErrorKindNotFound     ErrorKind = "not_found"
	ErrorKindInsecure     ErrorKind = "insecure_permissions"
	ErrorKindMalformed    ErrorKind = "malformed"
	ErrorKindNoWorkspaces ErrorKind = "no_workspaces"
)

// ConfigError reports a problem with the workspace config directory or one
// of its documents.
type ConfigError struct {
	Kind   ErrorKind
	Path   string
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return e.Detail
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Detail)
}

// Config is one workspace's credential document. Immutable after load; a
// reload happens only through cache invalidation.
type Config struct {
	Token         string `json:"token"`
	WorkspaceName string `json:"workspace_name"`
	WorkspaceID   string `json:"workspace_id"`
	Default       bool   `json:"default"`
}

// DefaultDir returns ~/.config/slack-mcp.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "slack-mcp"), nil
}

// discover lists workspace names in the directory, sorted for a stable
// discovery order. The directory must exist.
func discover(dir string) ([]string, fs.FileMode, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, 0, &ConfigError{
			Kind:   ErrorKindNotFound,
			Path:   dir,
			Detail: fmt.Sprintf("configuration directory not found, create it with: mkdir -p %s", dir),
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("read config directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)

	return names, info.Mode().Perm(), nil
}

// load reads and validates one workspace document. The file's permission
// bits are checked on the same file that is parsed, so the two can never
// diverge.
func load(dir, name string) (*Config, error) {
	path := filepath.Join(dir, name+".json")

	info, err := os.Stat(path)
	if err != nil {
		return nil, &ConfigError{
			Kind:   ErrorKindNotFound,
			Path:   path,
			Detail: fmt.Sprintf("workspace config not found: %s", name),
		}
	}

	if mode := info.Mode().Perm(); mode != fileMode {
		return nil, &ConfigError{
			Kind:   ErrorKindInsecure,
			Path:   path,
			Detail: fmt.Sprintf("config file must have 600 permissions, has %o; fix with: chmod 600 %s", mode, path),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workspace config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{
			Kind:   ErrorKindMalformed,
			Path:   path,
			Detail: fmt.Sprintf("invalid JSON: %v", err),
		}
	}

	if cfg.Token == "" {
		return nil, &ConfigError{
			Kind:   ErrorKindMalformed,
			Path:   path,
			Detail: "missing required 'token' field",
		}
	}
	if !strings.HasPrefix(cfg.Token, tokenPrefix) {
		return nil, &ConfigError{
			Kind:   ErrorKindMalformed,
			Path:   path,
			Detail: "invalid token format, must be a user OAuth token (xoxp-...)",
		}
	}

	return &cfg, nil
}
