// Package config loads server-level settings from config.yaml and
// SLACK_MCP_ environment variables. Workspace credentials are NOT here;
// those live in the workspace package's per-workspace documents.
package config

import (
	"errors"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Slack     SlackConfig     `koanf:"slack"`
	Workspace WorkspaceConfig `koanf:"workspace"`
	Audit     AuditConfig     `koanf:"audit"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Name      string `koanf:"name"`
	Version   string `koanf:"version"`
	Transport string `koanf:"transport"` // stdio or http
	Addr      string `koanf:"addr"`      // http transport only
}

type SlackConfig struct {
	// BaseURL overrides the Web API endpoint. Used by tests and proxies.
	BaseURL string `koanf:"base_url"`
}

type WorkspaceConfig struct {
	// Dir overrides the workspace credential directory (~/.config/slack-mcp).
	Dir string `koanf:"dir"`
}

type AuditConfig struct {
	// Path enables the sqlite invocation log when set.
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or text
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (config.yaml when empty), overlays SLACK_MCP_ environment
// variables (SLACK_MCP_SERVER__ADDR -> server.addr), and applies defaults.
// A missing file is not an error; env-only setups are supported.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err := k.Load(env.Provider("SLACK_MCP_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "SLACK_MCP_")), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	defaults := map[string]any{
		"server.name":      "slack-mcp",
		"server.version":   "0.1.0",
		"server.transport": "stdio",
		"server.addr":      ":8716",
		"log.level":        "info",
		"log.format":       "json",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Audit.Path = substituteEnvVars(cfg.Audit.Path)
	cfg.Workspace.Dir = substituteEnvVars(cfg.Workspace.Dir)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}
