package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and saving the configuration file
type Loader struct {
	path string
}

// NewLoader creates a loader for the configuration file.
// The file is resolved in this order:
//  1. YCLASS_CONFIG environment variable.
//  2. <user config dir>/yclass/config.yaml.
//  3. config.yaml in the working directory when no user config dir exists.
func NewLoader() *Loader {
	if p := os.Getenv(EnvConfig); p != "" {
		return &Loader{path: p}
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return &Loader{path: "config.yaml"}
	}

	return &Loader{path: filepath.Join(dir, "yclass", "config.yaml")}
}

// NewLoaderForPath creates a loader for an explicit file
func NewLoaderForPath(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the configuration file path
func (l *Loader) Path() string {
	return l.path
}

// Load reads the configuration. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(l.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", l.path, err)
		}
	}

	MergeFromEnv(cfg)

	return cfg, nil
}

// Save writes the configuration, creating the directory if needed
func (l *Loader) Save(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
