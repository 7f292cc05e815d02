package workspace

import (
	"log/slog"
	"sync"
)

// Summary describes one discoverable workspace for listing. Entries for
// sources that fail to load carry the error text instead of metadata.
type Summary struct {
	Name          string `json:"name"`
	WorkspaceName string `json:"workspace_name,omitempty"`
	WorkspaceID   string `json:"workspace_id,omitempty"`
	Error         string `json:"error,omitempty"`
	IsCurrent     bool   `json:"is_current"`
	IsDefault     bool   `json:"is_default"`
}

// Store resolves, caches, and switches workspace configurations. It is an
// explicit object rather than package state so tests can run independent
// stores against separate directories. All state is mutex-guarded; the MCP
// host may dispatch tool calls concurrently.
type Store struct {
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	active string
	cache  map[string]*Config
}

// NewStore creates a store over the given config directory.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:    dir,
		logger: logger,
		cache:  make(map[string]*Config),
	}
}

// Active returns the active workspace name, resolving the default on first
// use: the first discovered workspace with default=true, else the first
// discovered workspace.
func (s *Store) Active() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

func (s *Store) activeLocked() (string, error) {
	if s.active != "" {
		return s.active, nil
	}

	names, mode, err := discover(s.dir)
	if err != nil {
		return "", err
	}
	if mode != dirMode {
		s.logger.Warn("config directory has loose permissions",
			slog.String("dir", s.dir),
			slog.String("mode", mode.String()))
	}
	if len(names) == 0 {
		return "", &ConfigError{
			Kind:   ErrorKindNoWorkspaces,
			Detail: "no workspace configurations found, create one in " + s.dir,
		}
	}

	for _, name := range names {
		cfg, err := s.configLocked(name)
		if err != nil {
			continue
		}
		if cfg.Default {
			s.active = name
			s.logger.Info("using default workspace", slog.String("workspace", name))
			return name, nil
		}
	}

	s.active = names[0]
	s.logger.Info("no default workspace configured, using first discovered",
		slog.String("workspace", s.active))
	return s.active, nil
}

// Config returns the configuration for the named workspace, or for the
// active workspace when name is empty. Loads go through the cache; a failed
// load leaves no cache entry behind.
func (s *Store) Config(name string) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		active, err := s.activeLocked()
		if err != nil {
			return nil, err
		}
		name = active
	}
	return s.configLocked(name)
}

func (s *Store) configLocked(name string) (*Config, error) {
	if cfg, ok := s.cache[name]; ok {
		return cfg, nil
	}

	cfg, err := load(s.dir, name)
	if err != nil {
		return nil, err
	}

	s.cache[name] = cfg
	s.logger.Info("loaded workspace configuration", slog.String("workspace", name))
	return cfg, nil
}

// Token returns the OAuth token for the named (or active) workspace.
func (s *Store) Token(name string) (string, error) {
	cfg, err := s.Config(name)
	if err != nil {
		return "", err
	}
	return cfg.Token, nil
}

// Switch makes name the active workspace. The target is validated by
// loading it first; on failure the active workspace is unchanged.
func (s *Store) Switch(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.configLocked(name); err != nil {
		return err
	}

	s.active = name
	s.logger.Info("switched workspace", slog.String("workspace", name))
	return nil
}

// List enumerates every discoverable workspace. A source that fails to
// load yields an entry carrying the error; it never aborts the listing.
func (s *Store) List() ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, _, err := discover(s.dir)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(names))
	for _, name := range names {
		cfg, err := s.configLocked(name)
		if err != nil {
			summaries = append(summaries, Summary{Name: name, Error: err.Error()})
			continue
		}

		display := cfg.WorkspaceName
		if display == "" {
			display = name
		}
		summaries = append(summaries, Summary{
			Name:          name,
			WorkspaceName: display,
			WorkspaceID:   cfg.WorkspaceID,
			IsCurrent:     name == s.active,
			IsDefault:     cfg.Default,
		})
	}
	return summaries, nil
}

// ActiveInfo returns the active workspace's summary.
func (s *Store) ActiveInfo() (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.activeLocked()
	if err != nil {
		return nil, err
	}
	cfg, err := s.configLocked(name)
	if err != nil {
		return nil, err
	}

	display := cfg.WorkspaceName
	if display == "" {
		display = name
	}
	return &Summary{
		Name:          name,
		WorkspaceName: display,
		WorkspaceID:   cfg.WorkspaceID,
		IsCurrent:     true,
		IsDefault:     cfg.Default,
	}, nil
}

// Invalidate drops one cache entry, or the whole cache when name is empty.
// The active pointer is untouched; the next Config call reloads from disk.
func (s *Store) Invalidate(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		s.cache = make(map[string]*Config)
		s.logger.Info("cleared workspace config cache")
		return
	}
	delete(s.cache, name)
	s.logger.Info("cleared workspace config cache entry", slog.String("workspace", name))
}
