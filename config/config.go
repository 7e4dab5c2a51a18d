// Package config loads the user configuration that decides how processes are attached.
package config

import (
	"os"
)

const (
	// EnvConfig overrides the configuration file location
	EnvConfig = "YCLASS_CONFIG"

	// EnvPlugin overrides plugin_path from the configuration file
	EnvPlugin = "YCLASS_PLUGIN"
)

// Config is the on-disk configuration
type Config struct {
	// PluginPath is the extension module to attach through. When empty the default
	// module is used if present, otherwise processes are attached natively.
	PluginPath string `yaml:"plugin_path,omitempty"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{}
}

// Plugin returns the module path to try and whether the user configured it explicitly.
// An explicitly configured module must exist; the default one is optional.
func (c *Config) Plugin() (path string, explicit bool) {
	if c == nil || c.PluginPath == "" {
		return "", false
	}
	return c.PluginPath, true
}

// MergeFromEnv applies environment variable overrides
func MergeFromEnv(c *Config) {
	if v, ok := os.LookupEnv(EnvPlugin); ok && v != "" {
		c.PluginPath = v
	}
}
