package main

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// WorkspacesConfig holds all named workspaces and tracks which one is active.
type WorkspacesConfig struct {
	Active     string               `toml:"active"`
	Workspaces map[string]Workspace `toml:"workspaces"`
}

// Workspace is a named database profile.
type Workspace struct {
	DatabaseURL string `toml:"database_url"`
	NATSURL     string `toml:"nats_url,omitempty"`
}

func workspaceConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "propkeep")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "workspaces.toml"), nil
}

func loadWorkspacesConfig() (WorkspacesConfig, error) {
	path, err := workspaceConfigPath()
	if err != nil {
		return WorkspacesConfig{}, err
	}
	return loadWorkspacesFile(path)
}

func loadWorkspacesFile(path string) (WorkspacesConfig, error) {
	var cfg WorkspacesConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return WorkspacesConfig{Workspaces: map[string]Workspace{}}, nil
		}
		return WorkspacesConfig{}, err
	}
	if cfg.Workspaces == nil {
		cfg.Workspaces = map[string]Workspace{}
	}
	return cfg, nil
}

func saveWorkspacesConfig(cfg WorkspacesConfig) error {
	path, err := workspaceConfigPath()
	if err != nil {
		return err
	}
	return saveWorkspacesFile(path, cfg)
}

func saveWorkspacesFile(path string, cfg WorkspacesConfig) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Cached active workspace values, loaded once per process.
var (
	workspaceOnce     sync.Once
	cachedDatabaseURL string
	cachedNATSURL     string
)

func loadActiveWorkspaceOnce() {
	workspaceOnce.Do(func() {
		cfg, err := loadWorkspacesConfig()
		if err != nil || cfg.Active == "" {
			return
		}
		w, ok := cfg.Workspaces[cfg.Active]
		if !ok {
			return
		}
		cachedDatabaseURL = w.DatabaseURL
		cachedNATSURL = w.NATSURL
	})
}

func activeWorkspaceURL() string {
	loadActiveWorkspaceOnce()
	return cachedDatabaseURL
}

func activeWorkspaceNATSURL() string {
	loadActiveWorkspaceOnce()
	return cachedNATSURL
}
