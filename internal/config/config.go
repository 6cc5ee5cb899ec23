// Package config loads the process-wide browsekit configuration from a TOML
// file: one [providers.<key>] table per backend plus token-store settings.
// Configuration is loaded once at process start and passed by reference into
// the browser and each driver constructor — there is no hidden global.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/browsekit/browsekit/internal/driver"
)

// Token store backends.
const (
	TokensFile   = "file"
	TokensSQLite = "sqlite"
	TokensMemory = "memory"
)

// Config is the top-level configuration parsed from a TOML file.
type Config struct {
	Tokens    TokensConfig              `toml:"tokens"`
	Providers map[string]driver.Options `toml:"providers"`
}

// TokensConfig selects and locates the token store backend.
type TokensConfig struct {
	// Backend is "file", "sqlite", or "memory". Defaults to "file".
	Backend string `toml:"backend"`

	// Path is the token directory (file backend) or database file
	// (sqlite backend).
	Path string `toml:"path"`
}

// Load reads and validates a configuration file. Deprecated provider keys
// are remapped to their canonical spelling with a warning; the deprecated
// key is afterward only retrievable under the canonical one.
func Load(path string, logger *slog.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config %s: %v", driver.ErrInit, path, err)
	}

	return Parse(data, logger)
}

// Parse decodes TOML configuration bytes. Split from Load so tests and
// embedding hosts can supply config without a file.
func Parse(data []byte, logger *slog.Logger) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config: %v", driver.ErrInit, err)
	}

	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("%w: config declares no providers", driver.ErrInit)
	}

	if cfg.Tokens.Backend == "" {
		cfg.Tokens.Backend = TokensFile
	}

	cfg.canonicalizeKeys(logger)

	return &cfg, nil
}

// canonicalizeKeys remaps deprecated provider section names. A canonical
// section always wins over its deprecated alias.
func (c *Config) canonicalizeKeys(logger *slog.Logger) {
	for key, opts := range c.Providers {
		canonical := driver.CanonicalKey(key, logger)
		if canonical == key {
			continue
		}

		if _, exists := c.Providers[canonical]; !exists {
			c.Providers[canonical] = opts
		}

		delete(c.Providers, key)
	}
}

// Provider returns the options for a provider key, resolving deprecated
// aliases. The second return reports whether the section exists.
func (c *Config) Provider(key string, logger *slog.Logger) (driver.Options, bool) {
	opts, ok := c.Providers[driver.CanonicalKey(key, logger)]
	return opts, ok
}
